package isosurface

import (
	"github.com/go-gl/mathgl/mgl64"

	"isovolume/pkg/stl"
	"isovolume/pkg/transfer"
)

// Actor shows the output of an extractor as a flat colored surface
type Actor struct {
	extractor *Extractor

	color            mgl64.Vec3
	lookupTable      *transfer.ColorTransferFunction
	scalarVisibility bool
	visible          bool
}

// NewActor creates a white, visible actor for the extractor's output
func NewActor(e *Extractor) *Actor {
	return &Actor{
		extractor:        e,
		color:            mgl64.Vec3{1, 1, 1},
		scalarVisibility: true,
		visible:          true,
	}
}

// Extractor returns the mesh source
func (a *Actor) Extractor() *Extractor {
	return a.extractor
}

// Mesh returns the current surface, empty when there is no source
func (a *Actor) Mesh() *stl.Mesh {
	if a.extractor == nil {
		return &stl.Mesh{}
	}
	return a.extractor.Output()
}

// SetColor sets the surface color
func (a *Actor) SetColor(r, g, b float64) {
	a.color = mgl64.Vec3{r, g, b}
}

// SetLookupTable sets the color function used while scalar visibility is on
func (a *Actor) SetLookupTable(f *transfer.ColorTransferFunction) {
	a.lookupTable = f
}

// LookupTable returns the scalar color function, nil when none is set
func (a *Actor) LookupTable() *transfer.ColorTransferFunction {
	return a.lookupTable
}

// Color returns the color the surface is drawn with. With scalar visibility
// on and a lookup table set, every point of the surface carries the first
// contour value, so the whole mesh takes that value's color.
func (a *Actor) Color() mgl64.Vec3 {
	if a.scalarVisibility && a.lookupTable != nil && a.lookupTable.Size() > 0 && a.extractor != nil {
		return a.lookupTable.Color(a.extractor.Value(0))
	}
	return a.color
}

// SetScalarVisibility selects whether the contour value colors the surface
// through the lookup table instead of the actor color
func (a *Actor) SetScalarVisibility(on bool) {
	a.scalarVisibility = on
}

// ScalarVisibility reports the scalar coloring flag
func (a *Actor) ScalarVisibility() bool {
	return a.scalarVisibility
}

// SetVisible shows or hides the actor
func (a *Actor) SetVisible(on bool) {
	a.visible = on
}

// Visible reports whether the actor is drawn
func (a *Actor) Visible() bool {
	return a.visible
}
