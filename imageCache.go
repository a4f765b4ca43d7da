package main

import (
	"github.com/dgraph-io/ristretto/v2"
	"github.com/maxsupermanhd/TileChunk/primitives"
	"github.com/maxsupermanhd/TileChunk/tilemap"
	"github.com/maxsupermanhd/lac"
)

const maxPreviewScale = 8

// previewEntry remembers which frame built the mesh the image was drawn
// from, a newer mesh makes the entry stale.
type previewEntry struct {
	frame uint64
	png   []byte
}

var previewCache *ristretto.Cache[string, previewEntry]

func initPreviewCache(c *lac.ConfSubtree) error {
	pc, err := ristretto.NewCache(&ristretto.Config[string, previewEntry]{
		NumCounters: int64(c.GetDSFloat64(10000, "num_counters")),
		MaxCost:     int64(c.GetDSFloat64(64<<20, "max_cost")),
		BufferItems: 64,
	})
	if err != nil {
		return err
	}
	previewCache = pc
	return nil
}

// previewCacheGet only returns images drawn from the mesh of frame.
func previewCacheGet(loc primitives.ChunkLocation, frame uint64) ([]byte, bool) {
	if previewCache == nil {
		return nil, false
	}
	e, ok := previewCache.Get(loc.Key())
	if !ok || e.frame != frame {
		return nil, false
	}
	return e.png, true
}

func previewCacheSet(loc primitives.ChunkLocation, frame uint64, png []byte) {
	if previewCache == nil {
		return
	}
	previewCache.Set(loc.Key(), previewEntry{frame: frame, png: png}, int64(len(png)))
	previewCache.Wait()
}

// previewCacheInvalidate drops every renderer and scale of the given chunks.
func previewCacheInvalidate(mapID, layer uint16, coords []tilemap.ChunkCoord) {
	if previewCache == nil {
		return
	}
	for _, cc := range coords {
		for _, r := range rends {
			for s := 1; s <= maxPreviewScale; s++ {
				previewCache.Del(primitives.ChunkLocation{
					Map:      mapID,
					Layer:    layer,
					X:        cc.X,
					Y:        cc.Y,
					Renderer: r.Name,
					Scale:    s,
				}.Key())
			}
		}
	}
}

func previewCacheClear() {
	if previewCache != nil {
		previewCache.Clear()
	}
}
