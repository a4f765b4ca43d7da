package renderers

import (
	"image/color"

	"github.com/maxsupermanhd/TileChunk/render"
)

func ConstructRenderers() []render.ChunkRenderer {
	return []render.ChunkRenderer{
		NewTexturedChunkRenderer(),
		NewOccupancyChunkRenderer(color.RGBA{R: 0x3F, G: 0x76, B: 0xE4, A: 0xFF}),
	}
}

func FindRenderer(rends []render.ChunkRenderer, name string) *render.ChunkRenderer {
	for i := range rends {
		if rends[i].Name == name {
			return &rends[i]
		}
	}
	return nil
}
