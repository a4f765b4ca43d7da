package renderers

import (
	"image"
	"image/color"

	"github.com/maxsupermanhd/TileChunk/mesh"
	"github.com/maxsupermanhd/TileChunk/render"
)

// NewTexturedChunkRenderer paints chunks with their atlas texels. Without an
// atlas the chunk stays transparent.
func NewTexturedChunkRenderer() render.ChunkRenderer {
	return render.ChunkRenderer{
		Name: "tiles",
		Render: func(data render.ChunkData) *image.RGBA {
			img := image.NewRGBA(data.Bounds())
			if data.Atlas == nil {
				return img
			}
			render.Rasterize(img, data, func(u, v float32, tint mesh.Vertex) color.RGBA {
				return render.Tint(render.SampleNearest(data.Atlas, u, v), tint)
			})
			return img
		},
		NeedsAtlas: true,
	}
}
