package stl

// Cube corners in grid offsets. Corner i is bit i of a cube case index.
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// Cube edges as corner pairs; the first corner has the smaller offset.
var edgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {3, 2}, {0, 3},
	{4, 5}, {5, 6}, {7, 6}, {4, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// Axis along which each edge runs
var edgeAxis = [12]int{0, 1, 0, 1, 0, 1, 0, 1, 2, 2, 2, 2}

// Cube faces as corner cycles, counter-clockwise seen from outside the cube
var faceCorners = [6][4]int{
	{0, 3, 2, 1}, // z = 0
	{4, 5, 6, 7}, // z = 1
	{0, 1, 5, 4}, // y = 0
	{3, 7, 6, 2}, // y = 1
	{0, 4, 7, 3}, // x = 0
	{1, 2, 6, 5}, // x = 1
}

// triTable lists, per cube case, the triangles as triples of cube edges
var triTable [256][][3]int

func init() {
	buildTriTable()
}

// buildTriTable derives the case table from per-face rules. On each face the
// crossings are walked counter-clockwise and every entry into the inside
// region is joined to the following exit, which separates the inside corners
// of an ambiguous face. Two cubes sharing a face see the same corners, so the
// surface is closed across cubes. The joined segments of all six faces form
// closed loops around the cube which are fan triangulated; the inside region
// lies on the same side of every segment, so all triangles wind alike with
// their normals facing away from the inside corners.
func buildTriTable() {
	var edgeOf [8][8]int
	for i := range edgeOf {
		for j := range edgeOf[i] {
			edgeOf[i][j] = -1
		}
	}
	for e, c := range edgeCorners {
		edgeOf[c[0]][c[1]] = e
		edgeOf[c[1]][c[0]] = e
	}

	type crossing struct {
		edge  int
		entry bool
	}

	for cubeCase := 0; cubeCase < 256; cubeCase++ {
		inside := func(corner int) bool { return cubeCase&(1<<corner) != 0 }

		var next [12]int
		for i := range next {
			next[i] = -1
		}

		for _, face := range faceCorners {
			var crossings []crossing
			for k := 0; k < 4; k++ {
				a, b := face[k], face[(k+1)%4]
				if inside(a) != inside(b) {
					crossings = append(crossings, crossing{edge: edgeOf[a][b], entry: inside(b)})
				}
			}
			for i, c := range crossings {
				if !c.entry {
					continue
				}
				for j := 1; j < len(crossings); j++ {
					exit := crossings[(i+j)%len(crossings)]
					if !exit.entry {
						next[c.edge] = exit.edge
						break
					}
				}
			}
		}

		var used [12]bool
		for start := 0; start < 12; start++ {
			if next[start] < 0 || used[start] {
				continue
			}
			var loop []int
			for e := start; e >= 0 && !used[e]; e = next[e] {
				used[e] = true
				loop = append(loop, e)
			}
			for i := 1; i+1 < len(loop); i++ {
				triTable[cubeCase] = append(triTable[cubeCase], [3]int{loop[0], loop[i], loop[i+1]})
			}
		}
	}
}
