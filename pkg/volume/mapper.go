package volume

import (
	"errors"
	"image"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl64"

	"isovolume/internal/models"
)

// RenderMode is the requested rendering technique
type RenderMode int

const (
	DefaultRenderMode RenderMode = iota
	RayCastRenderMode
	GPURenderMode
)

func (m RenderMode) String() string {
	switch m {
	case RayCastRenderMode:
		return "raycast"
	case GPURenderMode:
		return "gpu"
	}
	return "default"
}

// BlendMode selects how samples along a ray are combined
type BlendMode int

const (
	CompositeBlend BlendMode = iota
	MaximumIntensityBlend
	MinimumIntensityBlend
	AverageIntensityBlend
)

func (m BlendMode) String() string {
	switch m {
	case MaximumIntensityBlend:
		return "maximum"
	case MinimumIntensityBlend:
		return "minimum"
	case AverageIntensityBlend:
		return "average"
	}
	return "composite"
}

// Errors returned by Render for an incomplete pipeline
var (
	ErrNoInput    = errors.New("volume mapper has no input")
	ErrNoProperty = errors.New("volume has no property")
	ErrNoFunction = errors.New("volume property lacks a transfer function")
)

// Camera gives the rays the mapper casts
type Camera interface {
	// Position is the eye point
	Position() mgl64.Vec3
	// Direction is the unit view direction
	Direction() mgl64.Vec3
	// PixelRay is the unit direction through the center of pixel (x, y) of
	// a width×height image, y growing downward
	PixelRay(x, y, width, height int) mgl64.Vec3
}

// Target is the frame the mapper blends into
type Target struct {
	Image *image.RGBA

	// Depth holds, per pixel, the distance along the view direction of the
	// nearest opaque surface, +Inf where there is none
	Depth []float64
}

// Mapper casts rays through its input volume
type Mapper struct {
	input *models.Volume

	requested      RenderMode
	blend          BlendMode
	sampleDistance float64
	workers        int
}

// NewMapper creates a mapper using every CPU
func NewMapper() *Mapper {
	return &Mapper{workers: runtime.NumCPU()}
}

// SetInput sets the volume to render
func (m *Mapper) SetInput(vol *models.Volume) {
	m.input = vol
}

// Input returns the rendered volume
func (m *Mapper) Input() *models.Volume {
	return m.input
}

// SetRequestedRenderMode records the preferred technique
func (m *Mapper) SetRequestedRenderMode(mode RenderMode) {
	m.requested = mode
}

// RequestedRenderMode returns the preferred technique
func (m *Mapper) RequestedRenderMode() RenderMode {
	return m.requested
}

// EffectiveRenderMode is the technique actually used. There is no GPU
// backend, so every request resolves to the parallel ray caster.
func (m *Mapper) EffectiveRenderMode() RenderMode {
	return RayCastRenderMode
}

// SetBlendMode selects how samples are combined
func (m *Mapper) SetBlendMode(mode BlendMode) {
	m.blend = mode
}

// BlendMode returns the sample combination
func (m *Mapper) BlendMode() BlendMode {
	return m.blend
}

// SetSampleDistance sets the ray step in world units, 0 for automatic
func (m *Mapper) SetSampleDistance(d float64) {
	if d < 0 {
		d = 0
	}
	m.sampleDistance = d
}

// SampleDistance returns the ray step in use for the current input
func (m *Mapper) SampleDistance() float64 {
	if m.sampleDistance > 0 || m.input == nil {
		return m.sampleDistance
	}
	return m.input.MinSpacing() / 2
}

// SetWorkers sets how many goroutines share the image rows
func (m *Mapper) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	m.workers = n
}

// Bounds returns the world box of the input
func (m *Mapper) Bounds() (min, max mgl64.Vec3, ok bool) {
	if m.input == nil {
		return min, max, false
	}
	min, max = m.input.Bounds()
	return min, max, true
}

// intersectBox clips the ray o + t·d against an axis aligned box
func intersectBox(o, d, min, max mgl64.Vec3) (tnear, tfar float64, hit bool) {
	tnear, tfar = math.Inf(-1), math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if o[i] < min[i] || o[i] > max[i] {
				return 0, 0, false
			}
			continue
		}
		t1 := (min[i] - o[i]) / d[i]
		t2 := (max[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tnear = math.Max(tnear, t1)
		tfar = math.Min(tfar, t2)
	}
	if tnear < 0 {
		tnear = 0
	}
	return tnear, tfar, tfar >= tnear
}
