package tilemap

import "fmt"

// TilePos is a tile coordinate inside a layer.
type TilePos struct {
	X, Y int
}

func (p TilePos) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// ChunkCoord identifies a ChunkSize block of tiles.
type ChunkCoord struct {
	X, Y int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("[%d, %d]", c.X, c.Y)
}

// Less orders coords row-major (by Y, then X).
func (c ChunkCoord) Less(o ChunkCoord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// Size2 is a width/height pair of integers (chunks, tiles or pixels).
type Size2 struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size2) Area() int {
	return s.Width * s.Height
}

func (s Size2) valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Vec2 is a width/height pair in render units.
type Vec2 struct {
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

func (v Vec2) valid() bool {
	return v.Width > 0 && v.Height > 0
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

// ChunkOf returns the chunk containing pos and the row-major slot offset of
// pos inside that chunk.
func ChunkOf(pos TilePos, chunkSize Size2) (ChunkCoord, int) {
	cc := ChunkCoord{
		X: floorDiv(pos.X, chunkSize.Width),
		Y: floorDiv(pos.Y, chunkSize.Height),
	}
	lx := floorMod(pos.X, chunkSize.Width)
	ly := floorMod(pos.Y, chunkSize.Height)
	return cc, ly*chunkSize.Width + lx
}

// TileAt is the inverse of ChunkOf.
func TileAt(cc ChunkCoord, offset int, chunkSize Size2) TilePos {
	return TilePos{
		X: cc.X*chunkSize.Width + offset%chunkSize.Width,
		Y: cc.Y*chunkSize.Height + offset/chunkSize.Width,
	}
}
