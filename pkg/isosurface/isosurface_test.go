package isosurface

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"isovolume/internal/models"
	"isovolume/internal/phantom"
	"isovolume/pkg/transfer"
)

// TestSkinSurface verifies that the head phantom has a surface at 500
func TestSkinSurface(t *testing.T) {
	e := New(phantom.Head(32))
	e.SetValue(0, 500)
	if err := e.Update(); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	mesh := e.Output()
	if mesh.Empty() {
		t.Fatal("Expected a non-empty surface at iso 500")
	}

	min, max := mesh.Bounds()
	for i := 0; i < 3; i++ {
		if min[i] < 0 || max[i] > phantom.Extent {
			t.Errorf("Expected bounds inside the phantom, got %v %v", min, max)
		}
	}
}

// TestSliderExtremes verifies that the ends of the slider range never fail
func TestSliderExtremes(t *testing.T) {
	e := New(phantom.Head(16))
	for _, v := range []float64{0, 4100} {
		e.SetValue(0, v)
		if err := e.Update(); err != nil {
			t.Fatalf("Failed to update at %f: %v", v, err)
		}
		if e.Output() == nil {
			t.Fatalf("Expected a mesh at %f", v)
		}
		if !e.Output().Empty() {
			t.Errorf("Expected an empty surface at %f, got %d triangles", v, e.Output().NumTriangles())
		}
	}
}

// TestDeterministic verifies identical output for identical input
func TestDeterministic(t *testing.T) {
	vol := phantom.Head(24)

	first := New(vol)
	first.SetValue(0, 1100)
	first.SetWorkers(1)
	second := New(vol)
	second.SetValue(0, 1100)
	second.SetWorkers(5)

	if err := first.Update(); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if err := second.Update(); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}

	a, b := first.Output(), second.Output()
	if a.NumTriangles() != b.NumTriangles() {
		t.Fatalf("Expected %d triangles, got %d", a.NumTriangles(), b.NumTriangles())
	}
	amin, amax := a.Bounds()
	bmin, bmax := b.Bounds()
	if amin != bmin || amax != bmax {
		t.Errorf("Expected bounds %v %v, got %v %v", amin, amax, bmin, bmax)
	}
}

// TestUpdateOnlyWhenModified verifies the modification tracking
func TestUpdateOnlyWhenModified(t *testing.T) {
	e := New(phantom.Head(12))
	e.SetValue(0, 500)
	e.Update()
	e.Update()
	if e.Extractions() != 1 {
		t.Errorf("Expected 1 extraction, got %d", e.Extractions())
	}

	// Setting the same value is not a change
	e.SetValue(0, 500)
	e.Update()
	if e.Extractions() != 1 {
		t.Errorf("Expected 1 extraction after an unchanged value, got %d", e.Extractions())
	}

	previous := e.Output()
	e.SetValue(0, 2000)
	e.Update()
	if e.Extractions() != 2 {
		t.Errorf("Expected 2 extractions, got %d", e.Extractions())
	}
	if e.Output() == previous {
		t.Error("Expected the mesh to be replaced")
	}

	e.Modified()
	e.Update()
	if e.Extractions() != 3 {
		t.Errorf("Expected 3 extractions after Modified, got %d", e.Extractions())
	}
}

// TestMultipleContours verifies that all contour values land in one mesh
func TestMultipleContours(t *testing.T) {
	vol := phantom.Head(16)

	single := func(v float64) int {
		e := New(vol)
		e.SetValue(0, v)
		e.Update()
		return e.Output().NumTriangles()
	}

	e := New(vol)
	e.SetNumberOfContours(2)
	e.SetValue(0, 500)
	e.SetValue(1, 2000)
	if e.NumberOfContours() != 2 {
		t.Fatalf("Expected 2 contours, got %d", e.NumberOfContours())
	}
	e.Update()

	expected := single(500) + single(2000)
	if got := e.Output().NumTriangles(); got != expected {
		t.Errorf("Expected %d triangles, got %d", expected, got)
	}
	if e.Value(1) != 2000 || e.Value(5) != 0 {
		t.Errorf("Unexpected contour values %f %f", e.Value(1), e.Value(5))
	}
}

// TestNoInput verifies the error for a missing volume
func TestNoInput(t *testing.T) {
	e := New(nil)
	if err := e.Update(); err == nil {
		t.Error("Expected an error without input")
	}

	e.SetInput(models.NewVolume(1, 1, 1))
	if err := e.Update(); err != nil {
		t.Errorf("Expected a degenerate volume to give an empty mesh, got %v", err)
	}
	if !e.Output().Empty() {
		t.Error("Expected an empty mesh")
	}
}

// TestActor verifies the actor defaults and its mesh source
func TestActor(t *testing.T) {
	e := New(phantom.Head(12))
	e.SetValue(0, 500)
	e.Update()

	a := NewActor(e)
	if !a.Visible() || a.Color()[0] != 1 {
		t.Errorf("Expected a visible white actor")
	}
	a.SetScalarVisibility(false)
	if a.ScalarVisibility() {
		t.Error("Expected scalar visibility off")
	}
	if a.Mesh() != e.Output() {
		t.Error("Expected the actor to show the extractor output")
	}
	if NewActor(nil).Mesh() == nil {
		t.Error("Expected an empty mesh without a source")
	}
}

// TestScalarColoring verifies that scalar visibility colors the surface by
// its contour value
func TestScalarColoring(t *testing.T) {
	e := New(phantom.Head(12))
	e.SetValue(0, 500)

	lut := transfer.NewColorTransferFunction()
	lut.AddRGBPoint(0, 0, 0, 1)
	lut.AddRGBPoint(1000, 1, 0, 0)

	a := NewActor(e)
	a.SetColor(0.2, 0.4, 0.6)
	a.SetScalarVisibility(true)
	if a.Color() != (mgl64.Vec3{0.2, 0.4, 0.6}) {
		t.Errorf("Expected the actor color without a lookup table, got %v", a.Color())
	}

	a.SetLookupTable(lut)
	if a.Color() != lut.Color(500) {
		t.Errorf("Expected %v, got %v", lut.Color(500), a.Color())
	}

	// The color follows the contour value
	e.SetValue(0, 1000)
	if a.Color() != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("Expected red at 1000, got %v", a.Color())
	}

	a.SetScalarVisibility(false)
	if a.Color() != (mgl64.Vec3{0.2, 0.4, 0.6}) {
		t.Errorf("Expected the actor color with scalars off, got %v", a.Color())
	}
}
