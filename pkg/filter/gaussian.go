// Package filter provides volume filters applied before surface extraction.
//
// Smoothing is done one axis at a time in the frequency domain: every line
// of samples is mirrored at both ends, transformed with a real FFT,
// multiplied by the transfer function of a Gaussian and transformed back.
package filter

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/dsp/fourier"

	"isovolume/internal/models"
)

// Gaussian smooths a volume with a separable Gaussian kernel
type Gaussian struct {
	// Sigma is the standard deviation along x, y and z in voxels. Axes with
	// a zero deviation are left untouched.
	Sigma mgl64.Vec3

	// Workers is the number of goroutines sharing the lines of one axis
	Workers int
}

// NewGaussian returns an isotropic filter with deviation sigma in voxels
func NewGaussian(sigma float64, workers int) *Gaussian {
	if workers < 1 {
		workers = 1
	}
	return &Gaussian{Sigma: mgl64.Vec3{sigma, sigma, sigma}, Workers: workers}
}

// Apply returns a smoothed copy of vol. The input is not modified.
func (g *Gaussian) Apply(vol *models.Volume) (*models.Volume, error) {
	if err := vol.Validate(); err != nil {
		return nil, fmt.Errorf("error smoothing volume: %w", err)
	}
	for i, s := range g.Sigma {
		if s < 0 || math.IsNaN(s) {
			return nil, fmt.Errorf("invalid deviation %g on axis %d", s, i)
		}
	}

	out := *vol
	out.Data = make([]float64, len(vol.Data))
	copy(out.Data, vol.Data)

	dims := [3]int{vol.Width, vol.Height, vol.Depth}
	scratch := make([]float64, len(vol.Data))
	for axis := 0; axis < 3; axis++ {
		if g.Sigma[axis] == 0 || dims[axis] < 2 {
			continue
		}
		g.smoothAxis(out.Data, scratch, dims, axis)
		out.Data, scratch = scratch, out.Data
	}

	zap.L().Debug("Smoothed volume",
		zap.Float64("sigmaX", g.Sigma[0]),
		zap.Float64("sigmaY", g.Sigma[1]),
		zap.Float64("sigmaZ", g.Sigma[2]))
	return &out, nil
}

// smoothAxis filters every line of src along axis into dst
func (g *Gaussian) smoothAxis(src, dst []float64, dims [3]int, axis int) {
	strides := [3]int{1, dims[0], dims[0] * dims[1]}
	b, c := (axis+1)%3, (axis+2)%3
	lines := dims[b] * dims[c]
	n := dims[axis]
	sigma := g.Sigma[axis]
	pad := int(math.Ceil(3 * sigma))
	m := n + 2*pad

	// Transfer function of the Gaussian at the m/2+1 real FFT frequencies
	gain := make([]float64, m/2+1)
	for k := range gain {
		f := float64(k) / float64(m)
		gain[k] = math.Exp(-2 * math.Pi * math.Pi * sigma * sigma * f * f)
	}

	var wg sync.WaitGroup
	for _, slab := range models.SplitSlabs(lines, g.Workers) {
		wg.Add(1)
		go func(slab models.Slab) {
			defer wg.Done()
			fft := fourier.NewFFT(m)
			line := make([]float64, m)
			coeffs := make([]complex128, m/2+1)
			for li := slab.ZStart; li < slab.ZEnd; li++ {
				start := (li%dims[b])*strides[b] + (li/dims[b])*strides[c]
				step := strides[axis]
				for i := 0; i < m; i++ {
					line[i] = src[start+reflect(i-pad, n)*step]
				}
				fft.Coefficients(coeffs, line)
				for k := range coeffs {
					coeffs[k] *= complex(gain[k], 0)
				}
				fft.Sequence(line, coeffs)
				// Sequence is unnormalized
				for i := 0; i < n; i++ {
					dst[start+i*step] = line[pad+i] / float64(m)
				}
			}
		}(slab)
	}
	wg.Wait()
}

// reflect maps i into [0, n) by mirroring at the ends, repeating the edge
// sample
func reflect(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}
