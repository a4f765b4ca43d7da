package main

import (
	"net/http"

	"github.com/davecgh/go-spew/spew"
)

var debugSpew = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	MaxDepth:                4,
}

// debugLayerHandler dumps layer settings, stats and dirty chunks.
func debugLayerHandler(w http.ResponseWriter, r *http.Request) {
	l, code, msg := varLayer(r)
	if l == nil {
		http.Error(w, msg, code)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	debugSpew.Fprintf(w, "Layer %d\n", l.ID())
	debugSpew.Fdump(w, l.Settings())
	debugSpew.Fdump(w, l.Stats())
	debugSpew.Fdump(w, l.DirtyChunks())
	for _, cc := range l.ChunkCoords() {
		c := l.Chunk(cc)
		if c == nil {
			continue
		}
		debugSpew.Fprintf(w, "chunk %s: %d tiles, dirty %v\n", cc, c.Occupied(), c.Dirty())
	}
}
