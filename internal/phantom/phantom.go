// Package phantom generates synthetic head volumes with intensities in the
// range of the quarter-resolution head scan, for demos without a data file
// and for tests.
package phantom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"isovolume/internal/models"
)

// Tissue intensities
const (
	Air   = 0.0
	Skin  = 1000.0
	Bone  = 2500.0
	Brain = 1200.0
)

// Extent is the physical edge length of the phantom in mm
const Extent = 200.0

// shell is an ellipsoid given by its semi-axes relative to the volume size
type shell struct {
	radii mgl64.Vec3
	value float64
}

// Layers from the outside in; each overwrites the interior of the previous one
var layers = []shell{
	{mgl64.Vec3{0.42, 0.47, 0.45}, Skin},
	{mgl64.Vec3{0.36, 0.41, 0.39}, Bone},
	{mgl64.Vec3{0.30, 0.35, 0.33}, Brain},
}

// Head builds an n×n×n head phantom centered in the volume. Tissue
// boundaries ramp linearly over about one voxel so that level sets are
// smooth.
func Head(n int) *models.Volume {
	vol := models.NewVolume(n, n, n)
	spacing := Extent / float64(n)
	vol.VoxelSize = mgl64.Vec3{spacing, spacing, spacing}

	center := float64(n-1) / 2
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				p := mgl64.Vec3{float64(x) - center, float64(y) - center, float64(z) - center}
				vol.Data[vol.Index(x, y, z)] = intensity(p, float64(n))
			}
		}
	}
	return vol
}

// intensity returns the phantom value at offset p from the center of a
// volume with edge length size in voxels
func intensity(p mgl64.Vec3, size float64) float64 {
	value := Air
	for _, l := range layers {
		r := mgl64.Vec3{l.radii[0] * size, l.radii[1] * size, l.radii[2] * size}
		// Approximate signed distance in voxels, negative inside
		q := mgl64.Vec3{p[0] / r[0], p[1] / r[1], p[2] / r[2]}
		d := (q.Len() - 1) * math.Min(r[0], math.Min(r[1], r[2]))
		w := math.Min(math.Max(0.5-d, 0), 1)
		value = value*(1-w) + l.value*w
	}
	return value
}
