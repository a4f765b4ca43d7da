package mesh

import (
	"sort"

	"github.com/maxsupermanhd/TileChunk/tilemap"
)

// Mesher turns the dirty chunks of a layer into meshes, clearing the dirty
// flag of every chunk it meshed.
type Mesher interface {
	RebuildDirty(l *tilemap.Layer) ([]ChunkMesh, error)
}

// BuildChunk meshes one chunk. Quads are placed at tile_pos * TileSize and
// are TileSize big.
func BuildChunk(layer uint16, settings tilemap.LayerSettings, atlas Atlas, c *tilemap.Chunk) (ChunkMesh, error) {
	m := ChunkMesh{
		Layer: layer,
		Coord: c.Coord(),
	}
	tw, th := settings.TileSize.Width, settings.TileSize.Height
	cs := settings.ChunkSize
	err := c.Each(func(offset int, t tilemap.Tile) error {
		r, err := atlas.UV(t.TextureIndex)
		if err != nil {
			return err
		}
		p := tilemap.TileAt(m.Coord, offset, cs)
		x0 := float32(p.X) * tw
		y0 := float32(p.Y) * th
		m.appendQuad(x0, y0, x0+tw, y0+th, r, t.Flags, t.Color.Tint())
		return nil
	})
	return m, err
}

// Builder meshes dirty chunks one after another on the calling goroutine.
type Builder struct{}

func (Builder) RebuildDirty(l *tilemap.Layer) ([]ChunkMesh, error) {
	ret := []ChunkMesh{}
	err := l.Rebuild(func(settings tilemap.LayerSettings, c *tilemap.Chunk) error {
		m, err := BuildChunk(l.ID(), settings, AtlasFromSettings(settings), c)
		if err != nil {
			return err
		}
		ret = append(ret, m)
		return nil
	})
	SortMeshes(ret)
	return ret, err
}

// DirtyChunks is the set of chunks the next rebuild of l will mesh.
func DirtyChunks(l *tilemap.Layer) map[tilemap.ChunkCoord]struct{} {
	ret := map[tilemap.ChunkCoord]struct{}{}
	for _, cc := range l.DirtyChunks() {
		ret[cc] = struct{}{}
	}
	return ret
}

func SortMeshes(m []ChunkMesh) {
	sort.Slice(m, func(i, j int) bool {
		return m[i].Coord.Less(m[j].Coord)
	})
}
