package transfer

import (
	"math"
	"testing"
)

// newSkinOpacity builds the opacity curve used for the head data set
func newSkinOpacity() *PiecewiseFunction {
	f := NewPiecewiseFunction()
	f.AddPointMS(-3024, 0, 0.5, 0.0)
	f.AddPointMS(-16, 0, .49, .61)
	f.AddPointMS(3071, .71, 0.5, 0.0)
	return f
}

// newSkinColor builds the color curve used for the head data set
func newSkinColor() *ColorTransferFunction {
	f := NewColorTransferFunction()
	f.AddRGBPointMS(-3024, 0, 0, 0, 0.5, 0.0)
	f.AddRGBPointMS(-16, 0.73, 0.25, 0.30, 0.49, .61)
	f.AddRGBPointMS(641, .90, .82, .56, .5, 0.0)
	f.AddRGBPointMS(3071, 1, 1, 1, .5, 0.0)
	return f
}

// TestOpacityRoundTrip verifies that every node evaluates to its own value
func TestOpacityRoundTrip(t *testing.T) {
	f := newSkinOpacity()
	expected := map[float64]float64{-3024: 0, -16: 0, 3071: .71}
	for x, y := range expected {
		if got := f.Value(x); got != y {
			t.Errorf("Expected opacity %f at %f, got %f", y, x, got)
		}
	}
}

// TestColorRoundTrip verifies that every node evaluates to its own color
func TestColorRoundTrip(t *testing.T) {
	f := newSkinColor()
	for i := 0; i < f.Size(); i++ {
		n, err := f.Node(i)
		if err != nil {
			t.Fatalf("Failed to get node %d: %v", i, err)
		}
		got := f.Color(n.X)
		if got != n.RGB {
			t.Errorf("Expected color %v at %f, got %v", n.RGB, n.X, got)
		}
	}
}

// TestLinearInterpolation verifies the default midpoint and sharpness
func TestLinearInterpolation(t *testing.T) {
	f := NewPiecewiseFunction()
	f.AddPoint(0, 0)
	f.AddPoint(10, 1)

	for _, x := range []float64{0, 2.5, 5, 7.5, 10} {
		if got := f.Value(x); math.Abs(got-x/10) > 1e-12 {
			t.Errorf("Expected %f at %f, got %f", x/10, x, got)
		}
	}
}

// TestClamping verifies values outside the node range
func TestClamping(t *testing.T) {
	f := newSkinOpacity()
	if got := f.Value(-10000); got != 0 {
		t.Errorf("Expected 0 below range, got %f", got)
	}
	if got := f.Value(10000); got != .71 {
		t.Errorf("Expected 0.71 above range, got %f", got)
	}

	c := newSkinColor()
	if got := c.Color(5000); got[0] != 1 || got[1] != 1 || got[2] != 1 {
		t.Errorf("Expected white above range, got %v", got)
	}
}

// TestEmptyFunctions verifies that empty functions evaluate to zero
func TestEmptyFunctions(t *testing.T) {
	if got := NewPiecewiseFunction().Value(3); got != 0 {
		t.Errorf("Expected 0 from empty opacity function, got %f", got)
	}
	if got := NewColorTransferFunction().Color(3); got[0] != 0 || got[1] != 0 || got[2] != 0 {
		t.Errorf("Expected black from empty color function, got %v", got)
	}
}

// TestSharpStep verifies that sharpness 1 produces a step at the midpoint
func TestSharpStep(t *testing.T) {
	f := NewPiecewiseFunction()
	f.AddPointMS(0, 0, 0.25, 1)
	f.AddPoint(100, 1)

	if got := f.Value(20); got != 0 {
		t.Errorf("Expected 0 before the midpoint, got %f", got)
	}
	if got := f.Value(30); got != 1 {
		t.Errorf("Expected 1 after the midpoint, got %f", got)
	}
}

// TestSharpnessStaysInRange verifies that Hermite blending never overshoots
func TestSharpnessStaysInRange(t *testing.T) {
	f := newSkinOpacity()
	prev := -1.0
	for x := -16.0; x <= 3071; x += 7 {
		v := f.Value(x)
		if v < 0 || v > .71 {
			t.Fatalf("Value %f at %f is outside [0,0.71]", v, x)
		}
		if v < prev {
			t.Fatalf("Function decreased from %f to %f at %f", prev, v, x)
		}
		prev = v
	}
}

// TestAddPointReplaces verifies that adding a node at an existing x replaces it
func TestAddPointReplaces(t *testing.T) {
	f := NewPiecewiseFunction()
	f.AddPoint(5, 0.2)
	f.AddPoint(1, 0.1)
	f.AddPoint(5, 0.9)

	if f.Size() != 2 {
		t.Fatalf("Expected 2 nodes, got %d", f.Size())
	}
	n, _ := f.Node(1)
	if n.X != 5 || n.Y != 0.9 {
		t.Errorf("Expected node (5, 0.9), got (%f, %f)", n.X, n.Y)
	}

	if idx := f.RemovePoint(1); idx != 0 {
		t.Errorf("Expected removed index 0, got %d", idx)
	}
	if idx := f.RemovePoint(42); idx != -1 {
		t.Errorf("Expected -1 for missing node, got %d", idx)
	}
	lo, hi := f.Range()
	if lo != 5 || hi != 5 {
		t.Errorf("Expected range [5,5], got [%f,%f]", lo, hi)
	}
}

// TestTable verifies evenly spaced sampling
func TestTable(t *testing.T) {
	f := NewPiecewiseFunction()
	f.AddPoint(0, 0)
	f.AddPoint(1, 1)

	table := f.Table(0, 1, 5)
	for i, v := range table {
		if math.Abs(v-float64(i)/4) > 1e-12 {
			t.Errorf("Expected %f at table entry %d, got %f", float64(i)/4, i, v)
		}
	}

	colors := newSkinColor().Table(-3024, 3071, 3)
	if colors[0][0] != 0 || colors[2][0] != 1 {
		t.Errorf("Unexpected color table ends %v %v", colors[0], colors[2])
	}
}
