package models

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// rampVolume returns a volume whose value is x + 10y + 100z
func rampVolume() *Volume {
	v := NewVolume(4, 3, 2)
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				v.Data[v.Index(x, y, z)] = float64(x + 10*y + 100*z)
			}
		}
	}
	return v
}

// TestValidate verifies the consistency checks
func TestValidate(t *testing.T) {
	v := rampVolume()
	if err := v.Validate(); err != nil {
		t.Fatalf("Expected a valid volume, got %v", err)
	}

	v.Data = v.Data[:5]
	if err := v.Validate(); err == nil {
		t.Error("Expected an error for short data")
	}

	v = rampVolume()
	v.VoxelSize[2] = 0
	if err := v.Validate(); err == nil {
		t.Error("Expected an error for zero spacing")
	}
}

// TestSampleLinear verifies trilinear interpolation on a linear field
func TestSampleLinear(t *testing.T) {
	v := rampVolume()
	v.VoxelSize = mgl64.Vec3{2, 1, 0.5}
	v.Origin = mgl64.Vec3{10, 0, 0}

	p := mgl64.Vec3{10 + 2*1.5, 0.25, 0.5 * 0.5}
	expected := 1.5 + 10*0.25 + 100*0.5
	if got := v.Sample(p, true); math.Abs(got-expected) > 1e-9 {
		t.Errorf("Expected %f, got %f", expected, got)
	}

	// Nearest picks the closest grid point
	if got := v.Sample(mgl64.Vec3{10 + 2*1.4, 0, 0}, false); got != 1 {
		t.Errorf("Expected nearest sample 1, got %f", got)
	}

	// Outside the grid the border value is used
	if got := v.Sample(mgl64.Vec3{-100, -100, -100}, true); got != 0 {
		t.Errorf("Expected clamped sample 0, got %f", got)
	}
}

// TestGradient verifies central differences in world units
func TestGradient(t *testing.T) {
	v := rampVolume()
	v.VoxelSize = mgl64.Vec3{2, 1, 1}

	g := v.Gradient(mgl64.Vec3{3, 1, 0.5}, true)
	if math.Abs(g[0]-0.5) > 1e-9 || math.Abs(g[1]-10) > 1e-9 {
		t.Errorf("Expected gradient (0.5, 10, _), got %v", g)
	}

	gg := v.GridGradient(0, 0, 0)
	if gg[0] != 0.5 || gg[1] != 10 || gg[2] != 100 {
		t.Errorf("Expected grid gradient (0.5, 10, 100), got %v", gg)
	}
}

// TestBoundsAndRange verifies world bounds and the scalar range
func TestBoundsAndRange(t *testing.T) {
	v := rampVolume()
	v.VoxelSize = mgl64.Vec3{3.2, 3.2, 1.5}
	v.Origin = mgl64.Vec3{1, 2, 3}

	min, max := v.Bounds()
	if min != v.Origin {
		t.Errorf("Expected min %v, got %v", v.Origin, min)
	}
	if !max.ApproxEqual(mgl64.Vec3{1 + 3*3.2, 2 + 2*3.2, 3 + 1.5}) {
		t.Errorf("Unexpected max %v", max)
	}

	lo, hi := v.ScalarRange()
	if lo != 0 || hi != 123 {
		t.Errorf("Expected range [0,123], got [%f,%f]", lo, hi)
	}
}

// TestStats verifies the histogram and moments
func TestStats(t *testing.T) {
	v := rampVolume()
	s := v.Stats(4)

	total := 0.0
	for _, c := range s.Counts {
		total += c
	}
	if int(total) != len(v.Data) {
		t.Errorf("Expected %d samples in the histogram, got %f", len(v.Data), total)
	}
	if s.Min != 0 || s.Max != 123 {
		t.Errorf("Expected range [0,123], got [%f,%f]", s.Min, s.Max)
	}
	if s.StdDev <= 0 {
		t.Errorf("Expected positive standard deviation, got %f", s.StdDev)
	}

	flat := NewVolume(2, 2, 2)
	fs := flat.Stats(3)
	if fs.Counts[0] != 8 {
		t.Errorf("Expected all samples in the first bin of a flat volume, got %v", fs.Counts)
	}
}

// TestSplitSlabs verifies that slabs cover the range without overlap
func TestSplitSlabs(t *testing.T) {
	slabs := SplitSlabs(10, 3)
	if len(slabs) != 3 {
		t.Fatalf("Expected 3 slabs, got %d", len(slabs))
	}
	next := 0
	for i, s := range slabs {
		if s.Index != i || s.ZStart != next || s.ZEnd <= s.ZStart {
			t.Errorf("Unexpected slab %+v", s)
		}
		next = s.ZEnd
	}
	if next != 10 {
		t.Errorf("Expected slabs to end at 10, got %d", next)
	}

	if got := SplitSlabs(2, 8); len(got) != 2 {
		t.Errorf("Expected at most one slab per layer, got %d", len(got))
	}
	if got := SplitSlabs(0, 4); got != nil {
		t.Errorf("Expected no slabs for an empty range, got %v", got)
	}
}
