package main

import (
	"log"

	"github.com/maxsupermanhd/TileChunk/engine"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

// onFrame persists chunks rebuilt by f, drops their cached previews and
// tells websocket clients. It runs under the engine frame lock so it must
// not call back into frame methods.
func onFrame(f *engine.Frame) {
	if f.Changed() == 0 {
		return
	}
	persistFrame(persistStorage(), f)
	for _, b := range f.Batches {
		if len(b.Meshes) == 0 {
			continue
		}
		coords := make([]tilemap.ChunkCoord, 0, len(b.Meshes))
		for _, m := range b.Meshes {
			coords = append(coords, m.Coord)
		}
		previewCacheInvalidate(eng.Map().ID(), b.Layer, coords)
		layerEvents.Broadcast(chunksEvent(f.Number, b.Layer, coords))
	}
}

func advanceFrame() {
	if _, err := eng.AdvanceFrame(); err != nil {
		log.Printf("Frame: %v", err)
	}
}
