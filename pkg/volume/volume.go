package volume

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Volume places a mapper and its property in a scene
type Volume struct {
	mapper   *Mapper
	property *Property
	visible  bool
}

// NewVolume creates a visible volume without mapper or property
func NewVolume() *Volume {
	return &Volume{visible: true}
}

// SetMapper sets the ray caster
func (v *Volume) SetMapper(m *Mapper) {
	v.mapper = m
}

// Mapper returns the ray caster
func (v *Volume) Mapper() *Mapper {
	return v.mapper
}

// SetProperty sets the classification and lighting
func (v *Volume) SetProperty(p *Property) {
	v.property = p
}

// Property returns the classification and lighting
func (v *Volume) Property() *Property {
	return v.property
}

// SetVisible shows or hides the volume
func (v *Volume) SetVisible(on bool) {
	v.visible = on
}

// Visible reports whether the volume is drawn
func (v *Volume) Visible() bool {
	return v.visible
}

// Bounds returns the world box of the mapper input
func (v *Volume) Bounds() (min, max mgl64.Vec3, ok bool) {
	if v.mapper == nil {
		return min, max, false
	}
	return v.mapper.Bounds()
}

// Render draws the volume into target
func (v *Volume) Render(cam Camera, target Target) error {
	if !v.visible {
		return nil
	}
	if v.mapper == nil {
		return ErrNoInput
	}
	return v.mapper.Render(cam, v.property, target)
}
