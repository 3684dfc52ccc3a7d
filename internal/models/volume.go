package models

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Volume represents a 3D scalar field sampled on a regular grid
type Volume struct {
	// Data is the 3D volume data as a 1D array, x varies fastest
	Data []float64

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the depth of the volume in voxels
	Depth int

	// VoxelSize is the physical distance between neighbouring samples
	VoxelSize mgl64.Vec3

	// Origin is the world position of sample (0,0,0)
	Origin mgl64.Vec3

	// ScalarName is the name of the point data array the samples came from
	ScalarName string

	// ScalarType is the element type the samples were stored as on disk
	ScalarType string
}

// NewVolume allocates a zero-filled volume with unit spacing at the origin
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:      make([]float64, width*height*depth),
		Width:     width,
		Height:    height,
		Depth:     depth,
		VoxelSize: mgl64.Vec3{1, 1, 1},
	}
}

// Validate checks that the dimensions agree with the data length
func (v *Volume) Validate() error {
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 {
		return fmt.Errorf("invalid volume dimensions %dx%dx%d", v.Width, v.Height, v.Depth)
	}
	if len(v.Data) != v.Width*v.Height*v.Depth {
		return fmt.Errorf("volume data has %d samples, dimensions %dx%dx%d need %d",
			len(v.Data), v.Width, v.Height, v.Depth, v.Width*v.Height*v.Depth)
	}
	for i, s := range v.VoxelSize {
		if s <= 0 {
			return fmt.Errorf("voxel size component %d must be positive, got %g", i, s)
		}
	}
	return nil
}

// Index returns the offset of sample (x,y,z) in Data
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the sample at (x,y,z), clamping the indices into the grid
func (v *Volume) At(x, y, z int) float64 {
	x = clampInt(x, 0, v.Width-1)
	y = clampInt(y, 0, v.Height-1)
	z = clampInt(z, 0, v.Depth-1)
	return v.Data[v.Index(x, y, z)]
}

// Bounds returns the world-space axis aligned box covered by the samples
func (v *Volume) Bounds() (min, max mgl64.Vec3) {
	min = v.Origin
	max = mgl64.Vec3{
		v.Origin[0] + float64(v.Width-1)*v.VoxelSize[0],
		v.Origin[1] + float64(v.Height-1)*v.VoxelSize[1],
		v.Origin[2] + float64(v.Depth-1)*v.VoxelSize[2],
	}
	return min, max
}

// MinSpacing returns the smallest voxel edge
func (v *Volume) MinSpacing() float64 {
	return math.Min(v.VoxelSize[0], math.Min(v.VoxelSize[1], v.VoxelSize[2]))
}

// ScalarRange returns the smallest and largest sample
func (v *Volume) ScalarRange() (min, max float64) {
	if len(v.Data) == 0 {
		return 0, 0
	}
	return floats.Min(v.Data), floats.Max(v.Data)
}

// ToIndex converts a world position to continuous grid coordinates
func (v *Volume) ToIndex(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		(p[0] - v.Origin[0]) / v.VoxelSize[0],
		(p[1] - v.Origin[1]) / v.VoxelSize[1],
		(p[2] - v.Origin[2]) / v.VoxelSize[2],
	}
}

// Sample returns the scalar at a world position. With linear set the
// eight surrounding samples are blended, otherwise the nearest one is used.
// Positions outside the grid are clamped to its border.
func (v *Volume) Sample(p mgl64.Vec3, linear bool) float64 {
	return v.SampleIndex(v.ToIndex(p), linear)
}

// SampleIndex is Sample in continuous grid coordinates
func (v *Volume) SampleIndex(g mgl64.Vec3, linear bool) float64 {
	if !linear {
		return v.At(int(math.Round(g[0])), int(math.Round(g[1])), int(math.Round(g[2])))
	}

	gx := clampFloat(g[0], 0, float64(v.Width-1))
	gy := clampFloat(g[1], 0, float64(v.Height-1))
	gz := clampFloat(g[2], 0, float64(v.Depth-1))

	x0, y0, z0 := int(gx), int(gy), int(gz)
	x1, y1, z1 := minInt(x0+1, v.Width-1), minInt(y0+1, v.Height-1), minInt(z0+1, v.Depth-1)
	fx, fy, fz := gx-float64(x0), gy-float64(y0), gz-float64(z0)

	row := v.Width
	slab := v.Width * v.Height
	d := v.Data
	c00 := lerp(d[z0*slab+y0*row+x0], d[z0*slab+y0*row+x1], fx)
	c10 := lerp(d[z0*slab+y1*row+x0], d[z0*slab+y1*row+x1], fx)
	c01 := lerp(d[z1*slab+y0*row+x0], d[z1*slab+y0*row+x1], fx)
	c11 := lerp(d[z1*slab+y1*row+x0], d[z1*slab+y1*row+x1], fx)
	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz)
}

// Gradient returns the world-space scalar gradient at a world position,
// estimated with central differences of the interpolated field
func (v *Volume) Gradient(p mgl64.Vec3, linear bool) mgl64.Vec3 {
	g := v.ToIndex(p)
	var grad mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		lo, hi := g, g
		lo[axis] -= 1
		hi[axis] += 1
		grad[axis] = (v.SampleIndex(hi, linear) - v.SampleIndex(lo, linear)) / (2 * v.VoxelSize[axis])
	}
	return grad
}

// GridGradient returns the gradient at grid point (x,y,z) in grid units
// scaled by the voxel size, using one-sided differences at the border
func (v *Volume) GridGradient(x, y, z int) mgl64.Vec3 {
	var grad mgl64.Vec3
	dims := [3]int{v.Width, v.Height, v.Depth}
	p := [3]int{x, y, z}
	for axis := 0; axis < 3; axis++ {
		lo, hi := p, p
		span := 2.0
		if p[axis] == 0 {
			span = 1
		} else {
			lo[axis]--
		}
		if p[axis] == dims[axis]-1 {
			span--
		} else {
			hi[axis]++
		}
		if span <= 0 {
			continue
		}
		diff := v.At(hi[0], hi[1], hi[2]) - v.At(lo[0], lo[1], lo[2])
		grad[axis] = diff / (span * v.VoxelSize[axis])
	}
	return grad
}

// Statistics summarises the sample distribution of a volume
type Statistics struct {
	Min, Max     float64
	Mean, StdDev float64

	// Dividers are the histogram bin edges, len(Counts)+1 of them
	Dividers []float64
	Counts   []float64
}

// Stats computes the sample statistics with the given number of histogram bins
func (v *Volume) Stats(bins int) Statistics {
	var s Statistics
	if len(v.Data) == 0 || bins <= 0 {
		return s
	}

	s.Min, s.Max = v.ScalarRange()
	s.Mean, s.StdDev = stat.MeanStdDev(v.Data, nil)

	s.Dividers = make([]float64, bins+1)
	if s.Max == s.Min {
		for i := range s.Dividers {
			s.Dividers[i] = s.Min + float64(i)
		}
		s.Counts = make([]float64, bins)
		s.Counts[0] = float64(len(v.Data))
		return s
	}

	floats.Span(s.Dividers, s.Min, s.Max)
	// The last divider is exclusive, nudge it so Max lands in the final bin
	s.Dividers[bins] = math.Nextafter(s.Max, math.Inf(1))

	sorted := make([]float64, len(v.Data))
	copy(sorted, v.Data)
	sort.Float64s(sorted)
	s.Counts = stat.Histogram(nil, s.Dividers, sorted, nil)
	return s
}

// Slab is a range of z layers of a volume handed to one worker
type Slab struct {
	// Index is the position of the slab in the sequence
	Index int

	// ZStart is the first layer of the slab
	ZStart int

	// ZEnd is one past the last layer of the slab
	ZEnd int
}

// SplitSlabs divides the range [0, n) into at most parts contiguous slabs
func SplitSlabs(n, parts int) []Slab {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	slabs := make([]Slab, 0, parts)
	step := n / parts
	extra := n % parts
	start := 0
	for i := 0; i < parts; i++ {
		size := step
		if i < extra {
			size++
		}
		slabs = append(slabs, Slab{Index: i, ZStart: start, ZEnd: start + size})
		start += size
	}
	return slabs
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
