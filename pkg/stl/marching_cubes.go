// Package stl extracts triangle meshes from scalar volumes with marching
// cubes and reads and writes them as binary STL files.
package stl

import (
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"isovolume/internal/models"
)

// Triangle is one facet with its normal, laid out as in an STL record
type Triangle struct {
	Normal  mgl32.Vec3
	Vertex1 mgl32.Vec3
	Vertex2 mgl32.Vec3
	Vertex3 mgl32.Vec3
}

// MarchingCubes extracts the level set of a volume at one iso value
type MarchingCubes struct {
	volume *models.Volume

	isoLevel float64

	scale  mgl32.Vec3
	origin mgl32.Vec3

	workers        int
	computeNormals bool
}

// NewMarchingCubes creates an extractor over data laid out x fastest with
// the given dimensions. Vertices are placed in grid units until SetScale or
// SetOrigin say otherwise.
func NewMarchingCubes(data []float64, width, height, depth int, isoLevel float64) *MarchingCubes {
	vol := &models.Volume{
		Data:      data,
		Width:     width,
		Height:    height,
		Depth:     depth,
		VoxelSize: mgl64.Vec3{1, 1, 1},
	}
	return &MarchingCubes{
		volume:         vol,
		isoLevel:       isoLevel,
		scale:          mgl32.Vec3{1, 1, 1},
		workers:        runtime.NumCPU(),
		computeNormals: true,
	}
}

// NewMarchingCubesForVolume creates an extractor that places vertices in the
// volume's world coordinates
func NewMarchingCubesForVolume(vol *models.Volume, isoLevel float64) *MarchingCubes {
	mc := NewMarchingCubes(vol.Data, vol.Width, vol.Height, vol.Depth, isoLevel)
	mc.SetScale(float32(vol.VoxelSize[0]), float32(vol.VoxelSize[1]), float32(vol.VoxelSize[2]))
	mc.SetOrigin(float32(vol.Origin[0]), float32(vol.Origin[1]), float32(vol.Origin[2]))
	return mc
}

// SetScale sets the physical distance between samples along each axis
func (mc *MarchingCubes) SetScale(x, y, z float32) {
	mc.scale = mgl32.Vec3{x, y, z}
}

// SetOrigin sets the world position of the first sample
func (mc *MarchingCubes) SetOrigin(x, y, z float32) {
	mc.origin = mgl32.Vec3{x, y, z}
}

// SetIsoLevel changes the extracted level
func (mc *MarchingCubes) SetIsoLevel(iso float64) {
	mc.isoLevel = iso
}

// SetWorkers sets how many goroutines share the extraction
func (mc *MarchingCubes) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	mc.workers = n
}

// SetComputeNormals toggles per-vertex gradient normals
func (mc *MarchingCubes) SetComputeNormals(on bool) {
	mc.computeNormals = on
}

// GenerateTriangles extracts the surface as independent facets
func (mc *MarchingCubes) GenerateTriangles() []Triangle {
	return mc.Extract().Triangles()
}

// slabResult holds the facets of one slab keyed by grid edge
type slabResult struct {
	index     int
	faces     [][3]int64
	positions map[int64]mgl32.Vec3
	normals   map[int64]mgl32.Vec3
}

// Extract runs marching cubes over the whole volume. The cube layers are
// split into slabs processed concurrently; merging them in slab order keeps
// the vertex and face order independent of scheduling.
func (mc *MarchingCubes) Extract() *Mesh {
	v := mc.volume
	mesh := &Mesh{}
	if v.Width < 2 || v.Height < 2 || v.Depth < 2 || len(v.Data) < v.Width*v.Height*v.Depth {
		return mesh
	}

	slabs := models.SplitSlabs(v.Depth-1, mc.workers)
	resultChan := make(chan slabResult)
	for _, slab := range slabs {
		go func(s models.Slab) {
			resultChan <- mc.extractSlab(s)
		}(slab)
	}

	results := make([]slabResult, len(slabs))
	for range slabs {
		res := <-resultChan
		results[res.index] = res
	}

	vertexOf := make(map[int64]uint32)
	for _, res := range results {
		for _, f := range res.faces {
			var face [3]uint32
			for k, key := range f {
				idx, ok := vertexOf[key]
				if !ok {
					idx = uint32(len(mesh.Vertices))
					vertexOf[key] = idx
					mesh.Vertices = append(mesh.Vertices, res.positions[key])
					if mc.computeNormals {
						mesh.Normals = append(mesh.Normals, res.normals[key])
					}
				}
				face[k] = idx
			}
			mesh.Faces = append(mesh.Faces, face)
		}
	}
	return mesh
}

// extractSlab polygonises the cubes whose lower z layer lies in the slab
func (mc *MarchingCubes) extractSlab(s models.Slab) slabResult {
	v := mc.volume
	res := slabResult{
		index:     s.Index,
		positions: make(map[int64]mgl32.Vec3),
		normals:   make(map[int64]mgl32.Vec3),
	}

	var values [8]float64
	for z := s.ZStart; z < s.ZEnd; z++ {
		for y := 0; y < v.Height-1; y++ {
			for x := 0; x < v.Width-1; x++ {
				cubeCase := 0
				for c, off := range cornerOffsets {
					values[c] = v.Data[v.Index(x+off[0], y+off[1], z+off[2])]
					if values[c] >= mc.isoLevel {
						cubeCase |= 1 << c
					}
				}
				if cubeCase == 0 || cubeCase == 255 {
					continue
				}

				for _, tri := range triTable[cubeCase] {
					var face [3]int64
					for k, e := range tri {
						key := mc.edgeKey(x, y, z, e)
						if _, ok := res.positions[key]; !ok {
							mc.interpolate(&res, key, x, y, z, e, values)
						}
						face[k] = key
					}
					res.faces = append(res.faces, face)
				}
			}
		}
	}
	return res
}

// edgeKey identifies a grid edge by its lower grid point and axis
func (mc *MarchingCubes) edgeKey(x, y, z, edge int) int64 {
	off := cornerOffsets[edgeCorners[edge][0]]
	p := int64(mc.volume.Index(x+off[0], y+off[1], z+off[2]))
	return p*3 + int64(edgeAxis[edge])
}

// interpolate places the vertex of a cube edge where the field crosses the
// iso level and records its normal
func (mc *MarchingCubes) interpolate(res *slabResult, key int64, x, y, z, edge int, values [8]float64) {
	ca, cb := edgeCorners[edge][0], edgeCorners[edge][1]
	va, vb := values[ca], values[cb]

	t := 0.5
	if vb != va {
		t = (mc.isoLevel - va) / (vb - va)
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	oa, ob := cornerOffsets[ca], cornerOffsets[cb]
	base := [3]int{x, y, z}
	var p mgl32.Vec3
	for axis := 0; axis < 3; axis++ {
		g := float64(oa[axis]) + t*float64(ob[axis]-oa[axis])
		p[axis] = mc.origin[axis] + float32(float64(base[axis])+g)*mc.scale[axis]
	}
	res.positions[key] = p

	if !mc.computeNormals {
		return
	}
	ga := mc.volume.GridGradient(x+oa[0], y+oa[1], z+oa[2])
	gb := mc.volume.GridGradient(x+ob[0], y+ob[1], z+ob[2])
	grad := ga.Mul(1 - t).Add(gb.Mul(t))
	var n mgl32.Vec3
	for axis := 0; axis < 3; axis++ {
		// Grid gradients are per sample; dividing by the spacing gives world units
		n[axis] = -float32(grad[axis]) / mc.scale[axis]
	}
	if n.Len() > 0 {
		n = n.Normalize()
	}
	res.normals[key] = n
}
