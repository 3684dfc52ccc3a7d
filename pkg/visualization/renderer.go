package visualization

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"isovolume/internal/models"
	"isovolume/pkg/stl"
	"isovolume/pkg/volume"
)

// SurfaceActor is an opaque, flat shaded triangle mesh
type SurfaceActor interface {
	Mesh() *stl.Mesh
	Color() mgl64.Vec3
	Visible() bool
}

// VolumeActor blends itself into a frame after the opaque surfaces
type VolumeActor interface {
	Render(cam volume.Camera, target volume.Target) error
	Bounds() (min, max mgl64.Vec3, ok bool)
	Visible() bool
}

// Overlay draws 2-D annotations over the finished frame
type Overlay interface {
	Draw(dst *image.RGBA)
}

// Renderer draws a background, surfaces, volumes and overlays as seen by
// its camera
type Renderer struct {
	background  mgl64.Vec3
	background2 mgl64.Vec3
	gradient    bool

	camera      *Camera
	cameraReset bool

	surfaces []SurfaceActor
	volumes  []VolumeActor
	overlays []Overlay

	workers int
}

// NewRenderer returns a renderer with a black background
func NewRenderer() *Renderer {
	return &Renderer{
		background2: mgl64.Vec3{1, 1, 1},
		camera:      NewCamera(),
		workers:     runtime.NumCPU(),
	}
}

// SetBackground sets the background color, the bottom color of a gradient
func (r *Renderer) SetBackground(red, green, blue float64) {
	r.background = mgl64.Vec3{red, green, blue}
}

// SetBackground2 sets the top color of a gradient background
func (r *Renderer) SetBackground2(red, green, blue float64) {
	r.background2 = mgl64.Vec3{red, green, blue}
}

// GradientBackgroundOn blends the background vertically
func (r *Renderer) GradientBackgroundOn() { r.gradient = true }

// GradientBackgroundOff uses the plain background color
func (r *Renderer) GradientBackgroundOff() { r.gradient = false }

// SetWorkers sets how many goroutines share the rasterization
func (r *Renderer) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	r.workers = n
}

// AddActor adds an opaque surface
func (r *Renderer) AddActor(a SurfaceActor) {
	r.surfaces = append(r.surfaces, a)
}

// AddVolume adds a directly rendered volume
func (r *Renderer) AddVolume(v VolumeActor) {
	r.volumes = append(r.volumes, v)
}

// AddOverlay adds a 2-D annotation
func (r *Renderer) AddOverlay(o Overlay) {
	r.overlays = append(r.overlays, o)
}

// ActiveCamera returns the camera
func (r *Renderer) ActiveCamera() *Camera {
	return r.camera
}

// Bounds returns the union of the bounds of all visible props
func (r *Renderer) Bounds() (min, max mgl64.Vec3, ok bool) {
	min = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	grow := func(lo, hi mgl64.Vec3) {
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], lo[i])
			max[i] = math.Max(max[i], hi[i])
		}
		ok = true
	}
	for _, v := range r.volumes {
		if lo, hi, has := v.Bounds(); has && v.Visible() {
			grow(lo, hi)
		}
	}
	for _, s := range r.surfaces {
		if mesh := s.Mesh(); s.Visible() && mesh != nil && !mesh.Empty() {
			lo, hi := mesh.Bounds()
			grow(vec64(lo), vec64(hi))
		}
	}
	return min, max, ok
}

// ResetCamera fits the camera to the visible props
func (r *Renderer) ResetCamera() {
	if min, max, ok := r.Bounds(); ok {
		r.camera.ResetCamera(min, max)
		r.cameraReset = true
	}
}

// Render draws the 3-D scene into dst. The camera is fitted to the props on
// the first render.
func (r *Renderer) Render(dst *image.RGBA) error {
	if !r.cameraReset {
		r.ResetCamera()
	}

	r.drawBackground(dst)

	b := dst.Bounds()
	depth := make([]float64, b.Dx()*b.Dy())
	for i := range depth {
		depth[i] = math.Inf(1)
	}
	for _, s := range r.surfaces {
		if s.Visible() {
			r.drawSurface(dst, depth, s)
		}
	}

	target := volume.Target{Image: dst, Depth: depth}
	for _, v := range r.volumes {
		if err := v.Render(r.camera, target); err != nil {
			return err
		}
	}
	return nil
}

// DrawOverlays draws the 2-D annotations into the final frame
func (r *Renderer) DrawOverlays(dst *image.RGBA) {
	for _, o := range r.overlays {
		o.Draw(dst)
	}
}

func (r *Renderer) drawBackground(dst *image.RGBA) {
	b := dst.Bounds()
	h := b.Dy()
	for y := 0; y < h; y++ {
		c := r.background
		if r.gradient && h > 1 {
			// Row 0 is the top of the image
			c = lerpVec(r.background2, r.background, float64(y)/float64(h-1))
		}
		rgba := toRGBA(c)
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetRGBA(x, b.Min.Y+y, rgba)
		}
	}
}

// screenTriangle is a projected triangle with its depths and shaded color
type screenTriangle struct {
	p     [3]mgl64.Vec2
	w     [3]float64
	color color.RGBA
}

// drawSurface rasterizes the mesh with a depth test. Faces are lit on both
// sides by a light at the eye.
func (r *Renderer) drawSurface(dst *image.RGBA, depth []float64, s SurfaceActor) {
	mesh := s.Mesh()
	if mesh == nil || mesh.Empty() {
		return
	}
	b := dst.Bounds()
	width, height := b.Dx(), b.Dy()
	near, _ := r.camera.ClippingRange()
	mvp := r.camera.ProjectionMatrix(float64(width) / float64(height)).Mul4(r.camera.ViewMatrix())
	forward := r.camera.Direction()
	base := s.Color()

	tris := make([]screenTriangle, 0, mesh.NumTriangles())
	for i, f := range mesh.Faces {
		var st screenTriangle
		visible := true
		for k := 0; k < 3; k++ {
			clip := mvp.Mul4x1(vec64(mesh.Vertices[f[k]]).Vec4(1))
			if clip[3] <= near {
				visible = false
				break
			}
			st.p[k] = mgl64.Vec2{
				(clip[0]/clip[3]+1)/2*float64(width) - 0.5,
				(1-clip[1]/clip[3])/2*float64(height) - 0.5,
			}
			st.w[k] = clip[3]
		}
		if !visible {
			continue
		}
		n := vec64(mesh.FaceNormal(i))
		st.color = toRGBA(base.Mul(math.Abs(n.Dot(forward))))
		tris = append(tris, st)
	}

	var wg sync.WaitGroup
	for _, rows := range models.SplitSlabs(height, r.workers) {
		wg.Add(1)
		go func(rows models.Slab) {
			defer wg.Done()
			for i := range tris {
				rasterize(dst, depth, &tris[i], rows.ZStart, rows.ZEnd)
			}
		}(rows)
	}
	wg.Wait()
}

// rasterize fills the pixels of rows [y0, y1) covered by t that pass the
// depth test. Depth is interpolated perspective correctly.
func rasterize(dst *image.RGBA, depth []float64, t *screenTriangle, y0, y1 int) {
	b := dst.Bounds()
	width := b.Dx()
	p0, p1, p2 := t.p[0], t.p[1], t.p[2]

	area := edge(p0, p1, p2)
	if math.Abs(area) < 1e-12 {
		return
	}

	minX := int(math.Max(math.Floor(math.Min(p0[0], math.Min(p1[0], p2[0]))), 0))
	maxX := int(math.Min(math.Ceil(math.Max(p0[0], math.Max(p1[0], p2[0]))), float64(width-1)))
	minY := int(math.Max(math.Floor(math.Min(p0[1], math.Min(p1[1], p2[1]))), float64(y0)))
	maxY := int(math.Min(math.Ceil(math.Max(p0[1], math.Max(p1[1], p2[1]))), float64(y1-1)))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := mgl64.Vec2{float64(x), float64(y)}
			l0 := edge(p1, p2, p) / area
			l1 := edge(p2, p0, p) / area
			l2 := edge(p0, p1, p) / area
			if l0 < 0 || l1 < 0 || l2 < 0 {
				continue
			}
			z := 1 / (l0/t.w[0] + l1/t.w[1] + l2/t.w[2])
			i := y*width + x
			if z >= depth[i] {
				continue
			}
			depth[i] = z
			dst.SetRGBA(b.Min.X+x, b.Min.Y+y, t.color)
		}
	}
}

// edge is twice the signed area of the triangle (a, b, c)
func edge(a, b, c mgl64.Vec2) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func vec64(v [3]float32) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func lerpVec(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func toRGBA(c mgl64.Vec3) color.RGBA {
	ch := func(v float64) uint8 {
		return uint8(math.Round(mgl64.Clamp(v, 0, 1) * 255))
	}
	return color.RGBA{ch(c[0]), ch(c[1]), ch(c[2]), 255}
}
