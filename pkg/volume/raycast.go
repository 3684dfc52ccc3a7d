package volume

import (
	"image/color"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"isovolume/internal/models"
)

const (
	// Entries of the precomputed transfer function tables
	tableSize = 4096

	// Accumulated opacity at which a ray stops
	opaqueThreshold = 0.99
)

// classifier maps scalars to color and opacity through lookup tables
// spanning the scalar range of the volume
type classifier struct {
	lo, scale float64

	color []mgl64.Vec3

	// opacity is the transfer function value, corrected holds it adjusted
	// to the sample distance
	opacity   []float64
	corrected []float64
}

func newClassifier(prop *Property, lo, hi, step float64) *classifier {
	if hi <= lo {
		hi = lo + 1
	}
	c := &classifier{
		lo:      lo,
		scale:   float64(tableSize-1) / (hi - lo),
		color:   prop.color.Table(lo, hi, tableSize),
		opacity: prop.opacity.Table(lo, hi, tableSize),
	}
	exponent := step / prop.unitDistance
	c.corrected = make([]float64, tableSize)
	for i, a := range c.opacity {
		c.corrected[i] = 1 - math.Pow(1-a, exponent)
	}
	return c
}

func (c *classifier) index(s float64) int {
	i := int((s-c.lo)*c.scale + 0.5)
	if i < 0 {
		return 0
	}
	if i >= tableSize {
		return tableSize - 1
	}
	return i
}

// rayCaster holds what every ray of one frame shares
type rayCaster struct {
	vol   *models.Volume
	prop  *Property
	cls   *classifier
	blend BlendMode

	step   float64
	linear bool
}

// Render blends the volume as seen from cam into target. Rays stop at the
// opaque depth already in target.
func (m *Mapper) Render(cam Camera, prop *Property, target Target) error {
	if m.input == nil {
		return ErrNoInput
	}
	if prop == nil {
		return ErrNoProperty
	}
	if prop.opacity == nil || prop.color == nil {
		return ErrNoFunction
	}
	if target.Image == nil {
		return nil
	}

	step := m.SampleDistance()
	if step <= 0 {
		step = 1
	}
	lo, hi := m.input.ScalarRange()
	rc := &rayCaster{
		vol:    m.input,
		prop:   prop,
		cls:    newClassifier(prop, lo, hi, step),
		blend:  m.blend,
		step:   step,
		linear: prop.interpolation == LinearInterpolation,
	}

	img := target.Image
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	bmin, bmax := m.input.Bounds()
	eye := cam.Position()
	forward := cam.Direction()

	var wg sync.WaitGroup
	for _, rows := range models.SplitSlabs(height, m.workers) {
		wg.Add(1)
		go func(rows models.Slab) {
			defer wg.Done()
			for y := rows.ZStart; y < rows.ZEnd; y++ {
				for x := 0; x < width; x++ {
					dir := cam.PixelRay(x, y, width, height)
					tnear, tfar, hit := intersectBox(eye, dir, bmin, bmax)
					if !hit {
						continue
					}
					if target.Depth != nil {
						d := target.Depth[y*width+x]
						if cos := dir.Dot(forward); !math.IsInf(d, 1) && cos > 1e-9 {
							tfar = math.Min(tfar, d/cos)
						}
					}
					if tfar <= tnear {
						continue
					}

					rgb, alpha := rc.cast(eye, dir, tnear, tfar)
					if alpha <= 0 {
						continue
					}
					px, py := bounds.Min.X+x, bounds.Min.Y+y
					img.SetRGBA(px, py, over(rgb, alpha, img.RGBAAt(px, py)))
				}
			}
		}(rows)
	}
	wg.Wait()
	return nil
}

// cast returns the premultiplied color and opacity gathered along the ray
// segment [tnear, tfar]
func (rc *rayCaster) cast(eye, dir mgl64.Vec3, tnear, tfar float64) (mgl64.Vec3, float64) {
	if rc.blend != CompositeBlend {
		return rc.project(eye, dir, tnear, tfar)
	}

	var acc mgl64.Vec3
	alpha := 0.0
	for t := tnear; t <= tfar; t += rc.step {
		p := eye.Add(dir.Mul(t))
		i := rc.cls.index(rc.vol.Sample(p, rc.linear))
		a := rc.cls.corrected[i]
		if a <= 0 {
			continue
		}
		c := rc.cls.color[i]
		if rc.prop.shade {
			c = rc.shade(c, p, dir)
		}
		w := (1 - alpha) * a
		acc = acc.Add(c.Mul(w))
		alpha += w
		if alpha >= opaqueThreshold {
			break
		}
	}
	return acc, alpha
}

// project reduces the samples along the ray to one scalar and classifies it
func (rc *rayCaster) project(eye, dir mgl64.Vec3, tnear, tfar float64) (mgl64.Vec3, float64) {
	n := 0
	result := 0.0
	for t := tnear; t <= tfar; t += rc.step {
		s := rc.vol.Sample(eye.Add(dir.Mul(t)), rc.linear)
		switch {
		case n == 0:
			result = s
		case rc.blend == MaximumIntensityBlend:
			result = math.Max(result, s)
		case rc.blend == MinimumIntensityBlend:
			result = math.Min(result, s)
		default:
			result += s
		}
		n++
	}
	if n == 0 {
		return mgl64.Vec3{}, 0
	}
	if rc.blend == AverageIntensityBlend {
		result /= float64(n)
	}
	i := rc.cls.index(result)
	a := rc.cls.opacity[i]
	return rc.cls.color[i].Mul(a), a
}

// shade applies Phong lighting with a light at the eye. The normal is the
// normalized gradient, lit from either side.
func (rc *rayCaster) shade(c, p, dir mgl64.Vec3) mgl64.Vec3 {
	ambient, diffuse, specular, power := rc.prop.Lighting()
	g := rc.vol.Gradient(p, rc.linear)
	mag := g.Len()
	if mag < 1e-9 {
		return c.Mul(ambient + diffuse)
	}
	cosine := math.Abs(g.Dot(dir)) / mag
	spec := specular * math.Pow(cosine, power)
	lit := c.Mul(ambient + diffuse*cosine)
	return mgl64.Vec3{
		math.Min(lit[0]+spec, 1),
		math.Min(lit[1]+spec, 1),
		math.Min(lit[2]+spec, 1),
	}
}

// over blends a premultiplied color with opacity alpha over bg
func over(rgb mgl64.Vec3, alpha float64, bg color.RGBA) color.RGBA {
	keep := 1 - math.Min(alpha, 1)
	ch := func(v float64, b uint8) uint8 {
		out := v*255 + keep*float64(b)
		return uint8(math.Max(0, math.Min(255, math.Round(out))))
	}
	return color.RGBA{
		R: ch(rgb[0], bg.R),
		G: ch(rgb[1], bg.G),
		B: ch(rgb[2], bg.B),
		A: 255,
	}
}
