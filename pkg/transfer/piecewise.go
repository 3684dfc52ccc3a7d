// Package transfer implements the transfer functions that map scalar samples
// to opacity and color for direct volume rendering.
//
// Both function kinds store ordered nodes. Between two nodes the value is
// shaped by the left node's midpoint and sharpness: a midpoint of 0.5 with
// sharpness 0 interpolates linearly, a sharpness of 1 produces a step at the
// midpoint, and values in between bend the curve with a Hermite blend.
// Outside the node range the functions clamp to the first or last node.
package transfer

import (
	"fmt"
	"math"
	"sort"
)

// Node is one control point of a piecewise function
type Node struct {
	X         float64
	Y         float64
	Midpoint  float64
	Sharpness float64
}

// PiecewiseFunction maps a scalar to a value in [0,1]
type PiecewiseFunction struct {
	nodes []Node
}

// NewPiecewiseFunction returns an empty function
func NewPiecewiseFunction() *PiecewiseFunction {
	return &PiecewiseFunction{}
}

// AddPoint adds a node with linear interpolation to the next node and
// returns its index
func (f *PiecewiseFunction) AddPoint(x, y float64) int {
	return f.AddPointMS(x, y, 0.5, 0)
}

// AddPointMS adds a node with an explicit midpoint and sharpness. A node
// already present at x is replaced.
func (f *PiecewiseFunction) AddPointMS(x, y, midpoint, sharpness float64) int {
	n := Node{X: x, Y: y, Midpoint: midpoint, Sharpness: sharpness}
	i := sort.Search(len(f.nodes), func(i int) bool { return f.nodes[i].X >= x })
	if i < len(f.nodes) && f.nodes[i].X == x {
		f.nodes[i] = n
		return i
	}
	f.nodes = append(f.nodes, Node{})
	copy(f.nodes[i+1:], f.nodes[i:])
	f.nodes[i] = n
	return i
}

// RemovePoint removes the node at x and reports its former index, or -1
func (f *PiecewiseFunction) RemovePoint(x float64) int {
	for i, n := range f.nodes {
		if n.X == x {
			f.nodes = append(f.nodes[:i], f.nodes[i+1:]...)
			return i
		}
	}
	return -1
}

// RemoveAllPoints empties the function
func (f *PiecewiseFunction) RemoveAllPoints() {
	f.nodes = f.nodes[:0]
}

// Size returns the number of nodes
func (f *PiecewiseFunction) Size() int {
	return len(f.nodes)
}

// Node returns the i-th node in ascending x order
func (f *PiecewiseFunction) Node(i int) (Node, error) {
	if i < 0 || i >= len(f.nodes) {
		return Node{}, fmt.Errorf("node index %d out of range [0,%d)", i, len(f.nodes))
	}
	return f.nodes[i], nil
}

// Range returns the x of the first and last node
func (f *PiecewiseFunction) Range() (float64, float64) {
	if len(f.nodes) == 0 {
		return 0, 0
	}
	return f.nodes[0].X, f.nodes[len(f.nodes)-1].X
}

// Value evaluates the function at x
func (f *PiecewiseFunction) Value(x float64) float64 {
	switch {
	case len(f.nodes) == 0:
		return 0
	case x <= f.nodes[0].X:
		return f.nodes[0].Y
	case x >= f.nodes[len(f.nodes)-1].X:
		return f.nodes[len(f.nodes)-1].Y
	}

	// First node strictly right of x; the segment is [i-1, i]
	i := sort.Search(len(f.nodes), func(i int) bool { return f.nodes[i].X > x })
	left, right := f.nodes[i-1], f.nodes[i]
	s := (x - left.X) / (right.X - left.X)
	return blend(left.Y, right.Y, shape(s, left.Midpoint, left.Sharpness), left.Sharpness)
}

// Table samples the function at n evenly spaced points over [lo,hi]
func (f *PiecewiseFunction) Table(lo, hi float64, n int) []float64 {
	table := make([]float64, n)
	for i := range table {
		table[i] = f.Value(tableX(lo, hi, i, n))
	}
	return table
}

func tableX(lo, hi float64, i, n int) float64 {
	if n <= 1 {
		return lo
	}
	return lo + (hi-lo)*float64(i)/float64(n-1)
}

// shape remaps the normalised segment position s by the midpoint and
// sharpness. The result is the Hermite parameter passed to blend, or a
// value of 0 or 1 for a step.
func shape(s, midpoint, sharpness float64) float64 {
	midpoint = math.Min(math.Max(midpoint, 1e-5), 1-1e-5)
	if s < midpoint {
		s = 0.5 * s / midpoint
	} else {
		s = 0.5 + 0.5*(s-midpoint)/(1-midpoint)
	}

	switch {
	case sharpness > 0.99:
		if s < 0.5 {
			return 0
		}
		return 1
	case sharpness < 0.01:
		return s
	}

	exp := 1 + 10*sharpness
	if s < 0.5 {
		return 0.5 * math.Pow(s*2, exp)
	} else if s > 0.5 {
		return 1 - 0.5*math.Pow((1-s)*2, exp)
	}
	return s
}

// blend interpolates between y1 and y2 at parameter s. For soft segments the
// tangents shrink as sharpness grows, and the result never leaves [y1,y2].
func blend(y1, y2, s, sharpness float64) float64 {
	if sharpness > 0.99 || sharpness < 0.01 {
		return (1-s)*y1 + s*y2
	}

	ss := s * s
	sss := ss * s
	h1 := 2*sss - 3*ss + 1
	h2 := -2*sss + 3*ss
	h3 := sss - 2*ss + s
	h4 := sss - ss

	t := (1 - sharpness) * (y2 - y1)
	v := h1*y1 + h2*y2 + h3*t + h4*t

	lo, hi := math.Min(y1, y2), math.Max(y1, y2)
	return math.Min(math.Max(v, lo), hi)
}
