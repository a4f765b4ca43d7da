package render

import (
	"image"

	"github.com/maxsupermanhd/TileChunk/mesh"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

// ChunkData is what a renderer gets to paint one chunk.
type ChunkData struct {
	Mesh     *mesh.ChunkMesh
	Settings tilemap.LayerSettings
	Atlas    image.Image // nil until the texture is ready
}

// Bounds returns the pixel rectangle covered by the chunk at native atlas
// resolution.
func (d ChunkData) Bounds() image.Rectangle {
	px := d.Settings.TilePixels()
	return image.Rect(0, 0, d.Settings.ChunkSize.Width*px.Width, d.Settings.ChunkSize.Height*px.Height)
}

type ChunkRenderer struct {
	Name       string
	Render     func(ChunkData) *image.RGBA
	NeedsAtlas bool
}
