package mesh

import (
	"fmt"

	"github.com/maxsupermanhd/TileChunk/tilemap"
)

// Atlas maps texture indexes to normalized rectangles of a grid texture.
// Index i lives at column i%Cols, row i/Cols, row 0 at the top of the image.
type Atlas struct {
	Cols, Rows int
	Texture    tilemap.Size2
	Cell       tilemap.Size2
}

// Rect is a UV rectangle in [0,1].
type Rect struct {
	U0, V0, U1, V1 float32
}

func NewAtlas(texture, cell tilemap.Size2) Atlas {
	a := Atlas{Texture: texture, Cell: cell}
	if cell.Width > 0 && cell.Height > 0 {
		a.Cols = texture.Width / cell.Width
		a.Rows = texture.Height / cell.Height
	}
	return a
}

func AtlasFromSettings(s tilemap.LayerSettings) Atlas {
	return NewAtlas(s.TextureSize, s.TilePixels())
}

func (a Atlas) Capacity() int {
	return a.Cols * a.Rows
}

// UV returns the rectangle of index, failing instead of wrapping around
// when the atlas has no such cell.
func (a Atlas) UV(index uint32) (Rect, error) {
	if int64(index) >= int64(a.Capacity()) {
		return Rect{}, fmt.Errorf("%w: index %d, atlas %dx%d", tilemap.ErrInvalidTextureIndex, index, a.Cols, a.Rows)
	}
	col := int(index) % a.Cols
	row := int(index) / a.Cols
	tw := float32(a.Texture.Width)
	th := float32(a.Texture.Height)
	return Rect{
		U0: float32(col*a.Cell.Width) / tw,
		V0: float32(row*a.Cell.Height) / th,
		U1: float32((col+1)*a.Cell.Width) / tw,
		V1: float32((row+1)*a.Cell.Height) / th,
	}, nil
}
