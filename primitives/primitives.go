package primitives

import (
	"fmt"

	"github.com/maxsupermanhd/TileChunk/tilemap"
)

// ChunkLocation addresses one rendered chunk image.
type ChunkLocation struct {
	Map, Layer uint16
	X, Y       int
	Renderer   string
	Scale      int
}

func (l ChunkLocation) String() string {
	return fmt.Sprintf("{%d:%d:%s at %ds %dx %dy}", l.Map, l.Layer, l.Renderer, l.Scale, l.X, l.Y)
}

func (l ChunkLocation) Coord() tilemap.ChunkCoord {
	return tilemap.ChunkCoord{X: l.X, Y: l.Y}
}

// Key is used for caches keyed by string.
func (l ChunkLocation) Key() string {
	return fmt.Sprintf("%d/%d/%s/%d/%d/%d", l.Map, l.Layer, l.Renderer, l.Scale, l.X, l.Y)
}
