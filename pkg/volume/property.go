// Package volume renders scalar volumes directly by ray casting through
// opacity and color transfer functions.
package volume

import (
	"isovolume/pkg/transfer"
)

// InterpolationType selects how the volume is sampled between grid points
type InterpolationType int

const (
	NearestInterpolation InterpolationType = iota
	LinearInterpolation
)

func (t InterpolationType) String() string {
	if t == LinearInterpolation {
		return "linear"
	}
	return "nearest"
}

// Property describes how scalars are classified and lit
type Property struct {
	opacity *transfer.PiecewiseFunction
	color   *transfer.ColorTransferFunction

	interpolation InterpolationType
	shade         bool

	ambient       float64
	diffuse       float64
	specular      float64
	specularPower float64

	// Path length over which the transfer function opacity applies
	unitDistance float64
}

// NewProperty returns a property with nearest sampling, shading off and
// the usual lighting coefficients
func NewProperty() *Property {
	return &Property{
		interpolation: NearestInterpolation,
		ambient:       0,
		diffuse:       0.7,
		specular:      0.2,
		specularPower: 10,
		unitDistance:  1,
	}
}

// SetScalarOpacity sets the scalar to opacity mapping
func (p *Property) SetScalarOpacity(f *transfer.PiecewiseFunction) {
	p.opacity = f
}

// ScalarOpacity returns the scalar to opacity mapping
func (p *Property) ScalarOpacity() *transfer.PiecewiseFunction {
	return p.opacity
}

// SetColor sets the scalar to color mapping
func (p *Property) SetColor(f *transfer.ColorTransferFunction) {
	p.color = f
}

// Color returns the scalar to color mapping
func (p *Property) Color() *transfer.ColorTransferFunction {
	return p.color
}

// SetInterpolationType selects nearest or trilinear sampling
func (p *Property) SetInterpolationType(t InterpolationType) {
	p.interpolation = t
}

// InterpolationType returns the sampling mode
func (p *Property) InterpolationType() InterpolationType {
	return p.interpolation
}

// ShadeOn enables gradient lighting
func (p *Property) ShadeOn() { p.shade = true }

// ShadeOff disables gradient lighting
func (p *Property) ShadeOff() { p.shade = false }

// Shade reports whether gradient lighting is on
func (p *Property) Shade() bool { return p.shade }

// SetLighting sets the Phong coefficients used when shading is on
func (p *Property) SetLighting(ambient, diffuse, specular, specularPower float64) {
	p.ambient = ambient
	p.diffuse = diffuse
	p.specular = specular
	p.specularPower = specularPower
}

// Lighting returns the Phong coefficients
func (p *Property) Lighting() (ambient, diffuse, specular, specularPower float64) {
	return p.ambient, p.diffuse, p.specular, p.specularPower
}

// SetScalarOpacityUnitDistance sets the path length the opacity refers to
func (p *Property) SetScalarOpacityUnitDistance(d float64) {
	if d > 0 {
		p.unitDistance = d
	}
}

// ScalarOpacityUnitDistance returns the opacity reference length
func (p *Property) ScalarOpacityUnitDistance() float64 {
	return p.unitDistance
}
