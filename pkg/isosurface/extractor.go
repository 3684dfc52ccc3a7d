// Package isosurface keeps a triangle mesh in sync with a list of contour
// values over a shared scalar volume.
package isosurface

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"isovolume/internal/models"
	"isovolume/pkg/stl"
)

// Extractor produces the level sets of a volume at its contour values.
// Changing a value marks the extractor modified; Update re-extracts only
// then, replacing the previous mesh.
type Extractor struct {
	mu sync.Mutex

	volume *models.Volume
	values []float64

	workers        int
	computeNormals bool

	modified bool
	output   *stl.Mesh

	// Extractions counts completed re-extractions
	extractions int
}

// New creates an extractor over vol with a single contour at 0
func New(vol *models.Volume) *Extractor {
	return &Extractor{
		volume:         vol,
		values:         []float64{0},
		workers:        runtime.NumCPU(),
		computeNormals: true,
		modified:       true,
		output:         &stl.Mesh{},
	}
}

// SetInput replaces the volume
func (e *Extractor) SetInput(vol *models.Volume) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = vol
	e.modified = true
}

// SetNumberOfContours resizes the value list, keeping existing values and
// filling new slots with 0
func (e *Extractor) SetNumberOfContours(n int) {
	if n < 0 {
		n = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if n == len(e.values) {
		return
	}
	values := make([]float64, n)
	copy(values, e.values)
	e.values = values
	e.modified = true
}

// NumberOfContours returns the number of contour values
func (e *Extractor) NumberOfContours() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.values)
}

// SetValue sets contour i, growing the list when i is past its end
func (e *Extractor) SetValue(i int, v float64) {
	if i < 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.values) <= i {
		e.values = append(e.values, 0)
	}
	if e.values[i] == v {
		return
	}
	e.values[i] = v
	e.modified = true
}

// Value returns contour i, or 0 when it does not exist
func (e *Extractor) Value(i int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.values) {
		return 0
	}
	return e.values[i]
}

// SetWorkers sets how many goroutines each extraction uses
func (e *Extractor) SetWorkers(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workers = n
	e.modified = true
}

// SetComputeNormals toggles per-vertex gradient normals
func (e *Extractor) SetComputeNormals(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.computeNormals = on
	e.modified = true
}

// Modified forces the next Update to re-extract
func (e *Extractor) Modified() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modified = true
}

// Update re-extracts the surface when anything changed since the last run
func (e *Extractor) Update() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.modified {
		return nil
	}
	if e.volume == nil {
		return fmt.Errorf("isosurface extractor has no input volume")
	}

	start := time.Now()
	mesh := &stl.Mesh{}
	for _, v := range e.values {
		mc := stl.NewMarchingCubesForVolume(e.volume, v)
		mc.SetWorkers(e.workers)
		mc.SetComputeNormals(e.computeNormals)
		mesh.Append(mc.Extract())
	}

	e.output = mesh
	e.modified = false
	e.extractions++

	zap.L().Debug("Extracted isosurface",
		zap.Float64s("values", e.values),
		zap.Int("triangles", mesh.NumTriangles()),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Output returns the mesh of the last Update
func (e *Extractor) Output() *stl.Mesh {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output
}

// Extractions returns how many times Update re-extracted the surface
func (e *Extractor) Extractions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.extractions
}
