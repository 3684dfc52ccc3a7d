package stl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// sphereData fills a cubic volume with 1 inside a centered sphere and 0 outside
func sphereData(size int, radius float64) []float64 {
	data := make([]float64, size*size*size)
	center := float64(size) / 2.0
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dx := float64(x) - center
				dy := float64(y) - center
				dz := float64(z) - center
				if math.Sqrt(dx*dx+dy*dy+dz*dz) < radius {
					data[z*size*size+y*size+x] = 1.0
				}
			}
		}
	}
	return data
}

// cornerData is a 2x2x2 volume where only the first sample is set
func cornerData() []float64 {
	return []float64{
		1, 0,
		0, 0,

		0, 0,
		0, 0,
	}
}

// TestMarchingCubes verifies the marching cubes implementation with a simple sphere
func TestMarchingCubes(t *testing.T) {
	size := 20
	center := float32(size) / 2.0
	mc := NewMarchingCubes(sphereData(size, float64(size)/4.0), size, size, size, 0.5)

	triangles := mc.GenerateTriangles()

	// A sphere with this resolution should have at least 100 triangles
	if len(triangles) < 100 {
		t.Fatalf("Expected at least 100 triangles for sphere, got %d", len(triangles))
	}

	// Normals face away from the inside, which for a sphere is away from its center
	for _, triangle := range triangles {
		c := triangle.Vertex1.Add(triangle.Vertex2).Add(triangle.Vertex3).Mul(1.0 / 3)
		out := c.Sub([3]float32{center, center, center})
		if out.Len() == 0 {
			continue
		}
		if dot := out.Normalize().Dot(triangle.Normal); dot < -0.5 {
			t.Errorf("Triangle normal appears to point inward, dot product: %f", dot)
		}
	}
}

// TestSetScale verifies that the scaling functionality works
func TestSetScale(t *testing.T) {
	mc := NewMarchingCubes(cornerData(), 2, 2, 2, 0.5)
	xScale, yScale, zScale := float32(2.5), float32(1.5), float32(3.0)
	mc.SetScale(xScale, yScale, zScale)

	triangles := mc.GenerateTriangles()
	if len(triangles) != 1 {
		t.Fatalf("Expected 1 triangle for a single corner, got %d", len(triangles))
	}

	// The corner is cut half way along each axis
	expected := map[[3]float32]bool{
		{0.5 * xScale, 0, 0}: true,
		{0, 0.5 * yScale, 0}: true,
		{0, 0, 0.5 * zScale}: true,
	}
	for _, v := range [][3]float32{triangles[0].Vertex1, triangles[0].Vertex2, triangles[0].Vertex3} {
		if !expected[v] {
			t.Errorf("Unexpected scaled vertex %v", v)
		}
	}

	unscaled := NewMarchingCubes(cornerData(), 2, 2, 2, 0.5).GenerateTriangles()
	if unscaled[0].Vertex1 == triangles[0].Vertex1 && unscaled[0].Vertex2 == triangles[0].Vertex2 {
		t.Error("Scaling had no effect on triangle vertices")
	}
}

// TestSetOrigin verifies that vertices are shifted by the origin
func TestSetOrigin(t *testing.T) {
	mc := NewMarchingCubes(cornerData(), 2, 2, 2, 0.5)
	mc.SetOrigin(10, 20, 30)

	min, max := mc.Extract().Bounds()
	if min[0] != 10 || min[1] != 20 || min[2] != 30 {
		t.Errorf("Expected bounds to start at the origin, got %v", min)
	}
	if max[0] != 10.5 || max[1] != 20.5 || max[2] != 30.5 {
		t.Errorf("Expected bounds to end half a voxel from the origin, got %v", max)
	}
}

// TestSaveToSTL verifies that the STL file can be written and read back
func TestSaveToSTL(t *testing.T) {
	triangles := []Triangle{
		{
			Normal:  [3]float32{0, 0, 1},
			Vertex1: [3]float32{0, 0, 0},
			Vertex2: [3]float32{1, 0, 0},
			Vertex3: [3]float32{0, 1, 0},
		},
	}

	dir, err := os.MkdirTemp("", "isovolume-stl-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "test.stl")

	if err := SaveToSTL(path, triangles); err != nil {
		t.Fatalf("Failed to save STL: %v", err)
	}

	// STL header: 80 bytes, count: 4 bytes, one facet: 50 bytes
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat output file: %v", err)
	}
	if info.Size() != 80+4+50 {
		t.Errorf("Expected STL file of %d bytes, got %d", 80+4+50, info.Size())
	}

	loaded, err := LoadSTL(path)
	if err != nil {
		t.Fatalf("Failed to load STL: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != triangles[0] {
		t.Errorf("Expected %v, got %v", triangles, loaded)
	}
}

// TestLoadTruncatedSTL verifies that short files are rejected
func TestLoadTruncatedSTL(t *testing.T) {
	dir, err := os.MkdirTemp("", "isovolume-stl-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "short.stl")
	if err := os.WriteFile(path, make([]byte, 40), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := LoadSTL(path); err == nil {
		t.Error("Expected an error for a truncated file")
	}
}

// TestOversizedFacetCount verifies that a header claiming more facets than
// the file holds fails on the missing data
func TestOversizedFacetCount(t *testing.T) {
	data := make([]byte, headerSize+4+recordSize)
	binary.LittleEndian.PutUint32(data[headerSize:], math.MaxUint32)

	triangles, err := ReadSTL(bytes.NewReader(data))
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("Expected ErrTruncated, got %v", err)
	}
	if triangles != nil {
		t.Errorf("Expected no triangles, got %d", len(triangles))
	}
}

// TestTriangleInterpolation verifies the vertex interpolation for marching cubes
func TestTriangleInterpolation(t *testing.T) {
	data := cornerData()
	data[0] = 0.8
	mc := NewMarchingCubes(data, 2, 2, 2, 0.5)

	triangles := mc.GenerateTriangles()
	if len(triangles) == 0 {
		t.Fatal("No triangles generated, cannot test interpolation")
	}

	// The crossing sits where 0.8 falls to 0.5, 3/8 of the way along each edge
	for _, v := range [][3]float32{triangles[0].Vertex1, triangles[0].Vertex2, triangles[0].Vertex3} {
		sum := v[0] + v[1] + v[2]
		if math.Abs(float64(sum)-0.375) > 1e-6 {
			t.Errorf("Expected vertex at 0.375 along its edge, got %v", v)
		}
	}

	n := triangles[0].Normal
	if n[0] == 0 && n[1] == 0 && n[2] == 0 {
		t.Error("Triangle normal is zero")
	}
}

// TestWatertight verifies that every edge of a closed surface is shared by two faces
func TestWatertight(t *testing.T) {
	size := 16
	mc := NewMarchingCubes(sphereData(size, 5), size, size, size, 0.5)
	mesh := mc.Extract()
	if mesh.Empty() {
		t.Fatal("Expected a non-empty mesh")
	}

	edges := make(map[[2]uint32]int)
	for _, f := range mesh.Faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[[2]uint32{a, b}]++
		}
	}
	for e, count := range edges {
		if count != 2 {
			t.Fatalf("Edge %v is used by %d faces", e, count)
		}
	}
}

// TestDeterministic verifies that worker count does not change the output
func TestDeterministic(t *testing.T) {
	size := 18
	data := sphereData(size, 6)

	serial := NewMarchingCubes(data, size, size, size, 0.5)
	serial.SetWorkers(1)
	parallel := NewMarchingCubes(data, size, size, size, 0.5)
	parallel.SetWorkers(7)

	a, b := serial.Extract(), parallel.Extract()
	if a.NumTriangles() != b.NumTriangles() || len(a.Vertices) != len(b.Vertices) {
		t.Fatalf("Expected identical meshes, got %d/%d and %d/%d faces/vertices",
			a.NumTriangles(), len(a.Vertices), b.NumTriangles(), len(b.Vertices))
	}
	for i := range a.Faces {
		if a.Faces[i] != b.Faces[i] {
			t.Fatalf("Face %d differs: %v vs %v", i, a.Faces[i], b.Faces[i])
		}
	}
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			t.Fatalf("Vertex %d differs: %v vs %v", i, a.Vertices[i], b.Vertices[i])
		}
	}
}

// TestVertexNormals verifies that gradient normals agree with the facet winding
func TestVertexNormals(t *testing.T) {
	size := 20
	mesh := NewMarchingCubes(sphereData(size, 6), size, size, size, 0.5).Extract()
	if len(mesh.Normals) != len(mesh.Vertices) {
		t.Fatalf("Expected %d vertex normals, got %d", len(mesh.Vertices), len(mesh.Normals))
	}

	agree := 0
	for i, f := range mesh.Faces {
		n := mesh.Normals[f[0]].Add(mesh.Normals[f[1]]).Add(mesh.Normals[f[2]])
		if n.Dot(mesh.FaceNormal(i)) > 0 {
			agree++
		}
	}
	if agree < mesh.NumTriangles()*3/4 {
		t.Errorf("Expected vertex normals to agree with most facets, got %d of %d", agree, mesh.NumTriangles())
	}

	mc := NewMarchingCubes(sphereData(size, 6), size, size, size, 0.5)
	mc.SetComputeNormals(false)
	if got := mc.Extract(); got.Normals != nil {
		t.Errorf("Expected no normals, got %d", len(got.Normals))
	}
}

// TestUniformVolume verifies that volumes without a crossing produce no faces
func TestUniformVolume(t *testing.T) {
	data := make([]float64, 27)
	for _, iso := range []float64{-1, 0.5} {
		if got := NewMarchingCubes(data, 3, 3, 3, iso).Extract(); !got.Empty() {
			t.Errorf("Expected no faces at iso %f, got %d", iso, got.NumTriangles())
		}
	}
	if got := NewMarchingCubes(data, 1, 3, 3, 0).Extract(); !got.Empty() {
		t.Errorf("Expected no faces for a flat volume, got %d", got.NumTriangles())
	}
}

// TestTriTable checks the derived case table
func TestTriTable(t *testing.T) {
	if len(triTable[0]) != 0 || len(triTable[255]) != 0 {
		t.Error("Expected no triangles for empty and full cubes")
	}
	for c := 1; c < 255; c++ {
		if len(triTable[c]) == 0 {
			t.Errorf("Case %d has no triangles", c)
		}
		// Complementary cases cut the same edges
		if len(triTable[c]) > 0 && edgesOf(triTable[c]) != edgesOf(triTable[255-c]) {
			t.Errorf("Cases %d and %d cut different edges", c, 255-c)
		}
	}
}

func edgesOf(tris [][3]int) uint16 {
	var mask uint16
	for _, tri := range tris {
		for _, e := range tri {
			mask |= 1 << e
		}
	}
	return mask
}

// BenchmarkMarchingCubes benchmarks the marching cubes algorithm
func BenchmarkMarchingCubes(b *testing.B) {
	size := 32
	data := sphereData(size, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewMarchingCubes(data, size, size, size, 0.5).Extract()
	}
}
