package renderers

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/maxsupermanhd/TileChunk/mesh"
	"github.com/maxsupermanhd/TileChunk/render"
)

// NewOccupancyChunkRenderer marks every occupied slot with fill over a
// dark background, handy before the atlas has loaded.
func NewOccupancyChunkRenderer(fill color.RGBA) render.ChunkRenderer {
	return render.ChunkRenderer{
		Name: "occupancy",
		Render: func(data render.ChunkData) *image.RGBA {
			img := image.NewRGBA(data.Bounds())
			draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{0x10, 0x10, 0x10, 0xFF}}, image.Point{}, draw.Src)
			render.Rasterize(img, data, func(_, _ float32, _ mesh.Vertex) color.RGBA {
				return fill
			})
			return img
		},
	}
}
