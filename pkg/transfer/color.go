package transfer

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// ColorNode is one control point of a color transfer function
type ColorNode struct {
	X         float64
	RGB       mgl64.Vec3
	Midpoint  float64
	Sharpness float64
}

// ColorTransferFunction maps a scalar to an RGB color, interpolating each
// channel independently in RGB space
type ColorTransferFunction struct {
	nodes []ColorNode
}

// NewColorTransferFunction returns an empty function
func NewColorTransferFunction() *ColorTransferFunction {
	return &ColorTransferFunction{}
}

// AddRGBPoint adds a node with linear interpolation to the next node
func (f *ColorTransferFunction) AddRGBPoint(x, r, g, b float64) int {
	return f.AddRGBPointMS(x, r, g, b, 0.5, 0)
}

// AddRGBPointMS adds a node with an explicit midpoint and sharpness,
// replacing any node already present at x
func (f *ColorTransferFunction) AddRGBPointMS(x, r, g, b, midpoint, sharpness float64) int {
	n := ColorNode{X: x, RGB: mgl64.Vec3{r, g, b}, Midpoint: midpoint, Sharpness: sharpness}
	i := sort.Search(len(f.nodes), func(i int) bool { return f.nodes[i].X >= x })
	if i < len(f.nodes) && f.nodes[i].X == x {
		f.nodes[i] = n
		return i
	}
	f.nodes = append(f.nodes, ColorNode{})
	copy(f.nodes[i+1:], f.nodes[i:])
	f.nodes[i] = n
	return i
}

// RemovePoint removes the node at x and reports its former index, or -1
func (f *ColorTransferFunction) RemovePoint(x float64) int {
	for i, n := range f.nodes {
		if n.X == x {
			f.nodes = append(f.nodes[:i], f.nodes[i+1:]...)
			return i
		}
	}
	return -1
}

// RemoveAllPoints empties the function
func (f *ColorTransferFunction) RemoveAllPoints() {
	f.nodes = f.nodes[:0]
}

// Size returns the number of nodes
func (f *ColorTransferFunction) Size() int {
	return len(f.nodes)
}

// Node returns the i-th node in ascending x order
func (f *ColorTransferFunction) Node(i int) (ColorNode, error) {
	if i < 0 || i >= len(f.nodes) {
		return ColorNode{}, fmt.Errorf("node index %d out of range [0,%d)", i, len(f.nodes))
	}
	return f.nodes[i], nil
}

// Range returns the x of the first and last node
func (f *ColorTransferFunction) Range() (float64, float64) {
	if len(f.nodes) == 0 {
		return 0, 0
	}
	return f.nodes[0].X, f.nodes[len(f.nodes)-1].X
}

// Color evaluates the function at x. An empty function is black.
func (f *ColorTransferFunction) Color(x float64) mgl64.Vec3 {
	switch {
	case len(f.nodes) == 0:
		return mgl64.Vec3{}
	case x <= f.nodes[0].X:
		return f.nodes[0].RGB
	case x >= f.nodes[len(f.nodes)-1].X:
		return f.nodes[len(f.nodes)-1].RGB
	}

	i := sort.Search(len(f.nodes), func(i int) bool { return f.nodes[i].X > x })
	left, right := f.nodes[i-1], f.nodes[i]
	s := shape((x-left.X)/(right.X-left.X), left.Midpoint, left.Sharpness)

	var c mgl64.Vec3
	for ch := 0; ch < 3; ch++ {
		c[ch] = blend(left.RGB[ch], right.RGB[ch], s, left.Sharpness)
	}
	return c
}

// Table samples the function at n evenly spaced points over [lo,hi]
func (f *ColorTransferFunction) Table(lo, hi float64, n int) []mgl64.Vec3 {
	table := make([]mgl64.Vec3, n)
	for i := range table {
		table[i] = f.Color(tableX(lo, hi, i, n))
	}
	return table
}
