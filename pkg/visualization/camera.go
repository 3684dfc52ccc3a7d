package visualization

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera orbiting a focal point
type Camera struct {
	position   mgl64.Vec3
	focalPoint mgl64.Vec3
	viewUp     mgl64.Vec3

	// Vertical field of view in degrees
	viewAngle float64

	near, far float64
}

// NewCamera returns a camera at (0,0,1) looking at the origin with a 30
// degree view angle
func NewCamera() *Camera {
	return &Camera{
		position:   mgl64.Vec3{0, 0, 1},
		focalPoint: mgl64.Vec3{0, 0, 0},
		viewUp:     mgl64.Vec3{0, 1, 0},
		viewAngle:  30,
		near:       0.01,
		far:        1000,
	}
}

func (c *Camera) SetPosition(p mgl64.Vec3)   { c.position = p }
func (c *Camera) Position() mgl64.Vec3       { return c.position }
func (c *Camera) SetFocalPoint(p mgl64.Vec3) { c.focalPoint = p }
func (c *Camera) FocalPoint() mgl64.Vec3     { return c.focalPoint }
func (c *Camera) ViewUp() mgl64.Vec3         { return c.viewUp }
func (c *Camera) ViewAngle() float64         { return c.viewAngle }

// SetViewUp sets the up direction, ignored when zero
func (c *Camera) SetViewUp(up mgl64.Vec3) {
	if up.Len() > 0 {
		c.viewUp = up.Normalize()
	}
}

// SetViewAngle sets the vertical field of view in degrees
func (c *Camera) SetViewAngle(deg float64) {
	c.viewAngle = mgl64.Clamp(deg, 1, 179)
}

// ClippingRange returns the near and far distances
func (c *Camera) ClippingRange() (near, far float64) {
	return c.near, c.far
}

// Direction is the unit vector from the position to the focal point
func (c *Camera) Direction() mgl64.Vec3 {
	d := c.focalPoint.Sub(c.position)
	if d.Len() == 0 {
		return mgl64.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

// Distance from the position to the focal point
func (c *Camera) Distance() float64 {
	return c.focalPoint.Sub(c.position).Len()
}

// basis returns the right and true up vectors of the view
func (c *Camera) basis() (right, up mgl64.Vec3) {
	dir := c.Direction()
	right = dir.Cross(c.viewUp)
	if right.Len() < 1e-12 {
		// View up parallel to the direction; pick any perpendicular
		right = dir.Cross(mgl64.Vec3{1, 0, 0})
		if right.Len() < 1e-12 {
			right = dir.Cross(mgl64.Vec3{0, 1, 0})
		}
	}
	right = right.Normalize()
	return right, right.Cross(dir)
}

// ResetCamera keeps the view direction and moves the camera so that the
// sphere around the box fills the view
func (c *Camera) ResetCamera(min, max mgl64.Vec3) {
	center := min.Add(max).Mul(0.5)
	radius := max.Sub(min).Len() / 2
	if radius == 0 {
		radius = 0.5
	}
	dir := c.Direction()
	distance := radius / math.Sin(mgl64.DegToRad(c.viewAngle)/2)

	c.focalPoint = center
	c.position = center.Sub(dir.Mul(distance))
	c.OrthogonalizeViewUp()
	c.near = math.Max(distance-radius*1.01, distance*0.001)
	c.far = distance + radius*1.01
}

// Azimuth rotates the position about the view up through the focal point
func (c *Camera) Azimuth(deg float64) {
	c.orbit(c.viewUp, deg)
}

// Elevation rotates the position about the right axis through the focal
// point
func (c *Camera) Elevation(deg float64) {
	right, _ := c.basis()
	c.orbit(right.Mul(-1), deg)
}

func (c *Camera) orbit(axis mgl64.Vec3, deg float64) {
	if axis.Len() == 0 {
		return
	}
	q := mgl64.QuatRotate(mgl64.DegToRad(deg), axis.Normalize())
	offset := c.position.Sub(c.focalPoint)
	c.position = c.focalPoint.Add(q.Rotate(offset))
}

// Dolly moves toward the focal point by dividing the distance by factor
func (c *Camera) Dolly(factor float64) {
	if factor <= 0 {
		return
	}
	distance := c.Distance() / factor
	c.position = c.focalPoint.Sub(c.Direction().Mul(distance))
	c.near /= factor
	c.far /= factor
}

// OrthogonalizeViewUp makes the view up perpendicular to the direction
func (c *Camera) OrthogonalizeViewUp() {
	_, up := c.basis()
	c.viewUp = up
}

// ViewMatrix returns the world to eye transform
func (c *Camera) ViewMatrix() mgl64.Mat4 {
	_, up := c.basis()
	return mgl64.LookAtV(c.position, c.focalPoint, up)
}

// ProjectionMatrix returns the perspective transform for the aspect ratio
func (c *Camera) ProjectionMatrix(aspect float64) mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.viewAngle), aspect, c.near, c.far)
}

// PixelRay returns the unit direction through the center of pixel (x, y) of
// a width×height image with y growing downward
func (c *Camera) PixelRay(x, y, width, height int) mgl64.Vec3 {
	right, up := c.basis()
	tanHalf := math.Tan(mgl64.DegToRad(c.viewAngle) / 2)
	aspect := float64(width) / float64(height)
	px := (2*(float64(x)+0.5)/float64(width) - 1) * tanHalf * aspect
	py := (1 - 2*(float64(y)+0.5)/float64(height)) * tanHalf
	return c.Direction().Add(right.Mul(px)).Add(up.Mul(py)).Normalize()
}
