package stl

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is an indexed triangle mesh. Vertices shared by neighbouring
// triangles are stored once.
type Mesh struct {
	Vertices []mgl32.Vec3

	// Normals holds one unit normal per vertex, or nothing when normals
	// were not computed
	Normals []mgl32.Vec3

	Faces [][3]uint32
}

// NumTriangles returns the number of faces
func (m *Mesh) NumTriangles() int {
	if m == nil {
		return 0
	}
	return len(m.Faces)
}

// Empty reports whether the mesh has no faces
func (m *Mesh) Empty() bool {
	return m.NumTriangles() == 0
}

// FaceNormal returns the unit normal of face i following its winding
func (m *Mesh) FaceNormal(i int) mgl32.Vec3 {
	f := m.Faces[i]
	a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
	n := b.Sub(a).Cross(c.Sub(a))
	if l := n.Len(); l > 0 {
		return n.Mul(1 / l)
	}
	return n
}

// Triangles expands the mesh into independent facets
func (m *Mesh) Triangles() []Triangle {
	if m == nil {
		return nil
	}
	triangles := make([]Triangle, len(m.Faces))
	for i, f := range m.Faces {
		triangles[i] = Triangle{
			Normal:  m.FaceNormal(i),
			Vertex1: m.Vertices[f[0]],
			Vertex2: m.Vertices[f[1]],
			Vertex3: m.Vertices[f[2]],
		}
	}
	return triangles
}

// Bounds returns the axis aligned box around all vertices. An empty mesh
// reports an inverted box with min above max.
func (m *Mesh) Bounds() (min, max mgl32.Vec3) {
	inf := float32(math.Inf(1))
	min = mgl32.Vec3{inf, inf, inf}
	max = mgl32.Vec3{-inf, -inf, -inf}
	if m == nil {
		return min, max
	}
	for _, v := range m.Vertices {
		for axis := 0; axis < 3; axis++ {
			if v[axis] < min[axis] {
				min[axis] = v[axis]
			}
			if v[axis] > max[axis] {
				max[axis] = v[axis]
			}
		}
	}
	return min, max
}

// Append adds the faces of other to m, renumbering its vertices
func (m *Mesh) Append(other *Mesh) {
	if other == nil {
		return
	}
	base := uint32(len(m.Vertices))
	withNormals := len(m.Vertices) == len(m.Normals) && len(other.Vertices) == len(other.Normals)
	m.Vertices = append(m.Vertices, other.Vertices...)
	if withNormals {
		m.Normals = append(m.Normals, other.Normals...)
	} else {
		m.Normals = nil
	}
	for _, f := range other.Faces {
		m.Faces = append(m.Faces, [3]uint32{f[0] + base, f[1] + base, f[2] + base})
	}
}
