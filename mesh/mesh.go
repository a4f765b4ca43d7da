package mesh

import "github.com/maxsupermanhd/TileChunk/tilemap"

type Vertex struct {
	X, Y       float32
	U, V       float32
	R, G, B, A float32
}

// ChunkMesh is the geometry of one chunk: four vertices and six indices per
// occupied slot, in row-major slot order.
type ChunkMesh struct {
	Layer    uint16
	Coord    tilemap.ChunkCoord
	Vertices []Vertex
	Indices  []uint32
}

func (m *ChunkMesh) Quads() int {
	return len(m.Vertices) / 4
}

// corner order of every quad: (x0,y0) (x1,y0) (x1,y1) (x0,y1)
var quadIndices = [6]uint32{0, 1, 2, 2, 3, 0}

func (m *ChunkMesh) appendQuad(x0, y0, x1, y1 float32, r Rect, f tilemap.Flags, c tilemap.Color) {
	u0, v0, u1, v1 := r.U0, r.V0, r.U1, r.V1
	if f.Has(tilemap.FlipX) {
		u0, u1 = u1, u0
	}
	if f.Has(tilemap.FlipY) {
		v0, v1 = v1, v0
	}
	uv := [4][2]float32{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}}
	if f.Has(tilemap.FlipD) {
		uv[1], uv[3] = uv[3], uv[1]
	}
	pos := [4][2]float32{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
	base := uint32(len(m.Vertices))
	for i := range pos {
		m.Vertices = append(m.Vertices, Vertex{
			X: pos[i][0], Y: pos[i][1],
			U: uv[i][0], V: uv[i][1],
			R: c.R, G: c.G, B: c.B, A: c.A,
		})
	}
	for _, i := range quadIndices {
		m.Indices = append(m.Indices, base+i)
	}
}
