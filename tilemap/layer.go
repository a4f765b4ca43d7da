package tilemap

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/bits-and-blooms/bitset"
	"github.com/hashicorp/go-multierror"
)

// Layer is one tile plane. Chunks are allocated on the first write that
// touches them and live as long as the layer.
//
// Tile writes hold frameMu shared for their whole duration, rebuilds and
// settings changes hold it exclusively, so every write issued before a
// rebuild is visible to it. Writers to different chunks only contend on
// chunksMu while a chunk is being allocated.
type Layer struct {
	id       uint16
	frameMu  sync.RWMutex
	settings LayerSettings
	chunksMu sync.RWMutex
	chunks   map[ChunkCoord]*Chunk
}

func newLayer(id uint16, settings LayerSettings) *Layer {
	return &Layer{
		id:       id,
		settings: settings,
		chunks:   map[ChunkCoord]*Chunk{},
	}
}

func (l *Layer) ID() uint16 {
	return l.id
}

func (l *Layer) Settings() LayerSettings {
	l.frameMu.RLock()
	defer l.frameMu.RUnlock()
	return l.settings
}

func (l *Layer) checkWrite(pos TilePos, t Tile) error {
	if !l.settings.Contains(pos) {
		b := l.settings.Bounds()
		return fmt.Errorf("%w: %s outside %dx%d of layer %d", ErrOutOfBounds, pos, b.Width, b.Height, l.id)
	}
	if c := l.settings.AtlasCapacity(); int64(t.TextureIndex) >= int64(c) {
		return fmt.Errorf("%w: index %d, atlas holds %d tiles", ErrInvalidTextureIndex, t.TextureIndex, c)
	}
	return nil
}

func (l *Layer) getChunk(cc ChunkCoord) *Chunk {
	l.chunksMu.RLock()
	defer l.chunksMu.RUnlock()
	return l.chunks[cc]
}

func (l *Layer) getOrAllocChunk(cc ChunkCoord) *Chunk {
	if c := l.getChunk(cc); c != nil {
		return c
	}
	l.chunksMu.Lock()
	defer l.chunksMu.Unlock()
	c, ok := l.chunks[cc]
	if !ok {
		c = newChunk(cc, l.settings.ChunkSize)
		l.chunks[cc] = c
	}
	return c
}

// SetTile writes a tile and marks its chunk dirty. A failed write leaves the
// layer untouched.
func (l *Layer) SetTile(pos TilePos, t Tile) error {
	l.frameMu.RLock()
	defer l.frameMu.RUnlock()
	if err := l.checkWrite(pos, t); err != nil {
		return err
	}
	cc, off := ChunkOf(pos, l.settings.ChunkSize)
	l.getOrAllocChunk(cc).set(off, t)
	return nil
}

// GetTile returns false for positions outside the layer, in chunks that
// were never allocated, or in slots that were never written.
func (l *Layer) GetTile(pos TilePos) (Tile, bool) {
	l.frameMu.RLock()
	defer l.frameMu.RUnlock()
	if !l.settings.Contains(pos) {
		return Tile{}, false
	}
	cc, off := ChunkOf(pos, l.settings.ChunkSize)
	c := l.getChunk(cc)
	if c == nil {
		return Tile{}, false
	}
	return c.Tile(off)
}

// RemoveTile empties a slot. Removing from an unallocated chunk is a no-op.
func (l *Layer) RemoveTile(pos TilePos) error {
	l.frameMu.RLock()
	defer l.frameMu.RUnlock()
	if !l.settings.Contains(pos) {
		return fmt.Errorf("%w: %s on layer %d", ErrOutOfBounds, pos, l.id)
	}
	cc, off := ChunkOf(pos, l.settings.ChunkSize)
	if c := l.getChunk(cc); c != nil {
		c.clear(off)
	}
	return nil
}

// Fill writes t into every slot of the layer, allocating all chunks.
func (l *Layer) Fill(t Tile) error {
	l.frameMu.RLock()
	defer l.frameMu.RUnlock()
	if err := l.checkWrite(TilePos{}, t); err != nil {
		return err
	}
	for cy := 0; cy < l.settings.MapSize.Height; cy++ {
		for cx := 0; cx < l.settings.MapSize.Width; cx++ {
			c := l.getOrAllocChunk(ChunkCoord{X: cx, Y: cy})
			c.mu.Lock()
			for i := range c.tiles {
				c.tiles[i] = t
				c.occupied.Set(uint(i))
			}
			c.dirty = true
			c.mu.Unlock()
		}
	}
	return nil
}

// Chunk returns the allocated chunk at cc or nil.
func (l *Layer) Chunk(cc ChunkCoord) *Chunk {
	return l.getChunk(cc)
}

// ChunkCoords lists allocated chunks in row-major order.
func (l *Layer) ChunkCoords() []ChunkCoord {
	l.chunksMu.RLock()
	ret := make([]ChunkCoord, 0, len(l.chunks))
	for cc := range l.chunks {
		ret = append(ret, cc)
	}
	l.chunksMu.RUnlock()
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Less(ret[j])
	})
	return ret
}

// EachChunk walks allocated chunks in row-major order until fn returns
// false. Every call starts a fresh walk.
func (l *Layer) EachChunk(fn func(ChunkCoord, *Chunk) bool) {
	for _, cc := range l.ChunkCoords() {
		c := l.getChunk(cc)
		if c == nil {
			continue
		}
		if !fn(cc, c) {
			return
		}
	}
}

// ChunkCount returns the number of allocated chunks.
func (l *Layer) ChunkCount() int {
	l.chunksMu.RLock()
	defer l.chunksMu.RUnlock()
	return len(l.chunks)
}

func (l *Layer) dirtyLocked() []*Chunk {
	ret := []*Chunk{}
	l.EachChunk(func(_ ChunkCoord, c *Chunk) bool {
		if c.Dirty() {
			ret = append(ret, c)
		}
		return true
	})
	return ret
}

// DirtyChunks returns coords of chunks changed since their last rebuild.
func (l *Layer) DirtyChunks() []ChunkCoord {
	l.frameMu.RLock()
	defer l.frameMu.RUnlock()
	dirty := l.dirtyLocked()
	ret := make([]ChunkCoord, len(dirty))
	for i, c := range dirty {
		ret[i] = c.coord
	}
	return ret
}

// RebuildBatch holds the layer exclusively and hands every dirty chunk to
// build at once. Chunks whose coord is absent from the returned failures
// are marked clean, failed ones stay dirty for the next rebuild.
func (l *Layer) RebuildBatch(build func(settings LayerSettings, dirty []*Chunk) map[ChunkCoord]error) error {
	l.frameMu.Lock()
	defer l.frameMu.Unlock()
	dirty := l.dirtyLocked()
	if len(dirty) == 0 {
		return nil
	}
	failed := build(l.settings, dirty)
	var errs *multierror.Error
	for _, c := range dirty {
		if err := failed[c.coord]; err != nil {
			errs = multierror.Append(errs, fmt.Errorf("layer %d chunk %s: %w", l.id, c.coord, err))
			continue
		}
		c.markClean()
	}
	return errs.ErrorOrNil()
}

// Rebuild is RebuildBatch calling build for one chunk at a time.
func (l *Layer) Rebuild(build func(settings LayerSettings, c *Chunk) error) error {
	return l.RebuildBatch(func(settings LayerSettings, dirty []*Chunk) map[ChunkCoord]error {
		failed := map[ChunkCoord]error{}
		for _, c := range dirty {
			if err := build(settings, c); err != nil {
				failed[c.coord] = err
			}
		}
		return failed
	})
}

// Snapshot copies an allocated chunk, false if it does not exist.
func (l *Layer) Snapshot(cc ChunkCoord) (ChunkSnapshot, bool) {
	c := l.getChunk(cc)
	if c == nil {
		return ChunkSnapshot{}, false
	}
	return c.Snapshot(), true
}

// RestoreChunk replaces a chunk with stored contents and marks it dirty.
// Texture indexes are not checked here, stale ones are reported when the
// chunk is meshed.
func (l *Layer) RestoreChunk(s ChunkSnapshot) error {
	l.frameMu.RLock()
	defer l.frameMu.RUnlock()
	if s.Size != l.settings.ChunkSize || len(s.Tiles) != s.Size.Area() {
		return fmt.Errorf("%w: got %dx%d with %d tiles, layer %d uses %dx%d", ErrChunkSizeMismatch,
			s.Size.Width, s.Size.Height, len(s.Tiles), l.id, l.settings.ChunkSize.Width, l.settings.ChunkSize.Height)
	}
	if s.Coord.X < 0 || s.Coord.Y < 0 || s.Coord.X >= l.settings.MapSize.Width || s.Coord.Y >= l.settings.MapSize.Height {
		return fmt.Errorf("%w: chunk %s on layer %d", ErrOutOfBounds, s.Coord, l.id)
	}
	words := make([]uint64, len(s.Occupied))
	copy(words, s.Occupied)
	occ := bitset.From(words)
	n := uint(len(s.Tiles))
	if last, ok := occ.NextSet(n); ok {
		return fmt.Errorf("%w: occupied slot %d past %d", ErrChunkSizeMismatch, last, n)
	}
	tiles := make([]Tile, len(s.Tiles))
	copy(tiles, s.Tiles)
	c := l.getOrAllocChunk(s.Coord)
	c.mu.Lock()
	c.tiles = tiles
	c.occupied = occ
	c.dirty = true
	c.mu.Unlock()
	return nil
}

// PixelCenter returns the middle of the layer in render units.
func (l *Layer) PixelCenter() (float64, float64) {
	s := l.Settings()
	b := s.Bounds()
	return float64(b.Width) * float64(s.TileSize.Width) / 2, float64(b.Height) * float64(s.TileSize.Height) / 2
}

type LayerStats struct {
	Chunks      int
	DirtyChunks int
	Tiles       int
	Bytes       uint64
}

func (l *Layer) Stats() LayerStats {
	st := LayerStats{}
	l.EachChunk(func(_ ChunkCoord, c *Chunk) bool {
		st.Chunks++
		c.mu.Lock()
		if c.dirty {
			st.DirtyChunks++
		}
		st.Tiles += int(c.occupied.Count())
		st.Bytes += uint64(len(c.tiles))*uint64(unsafe.Sizeof(Tile{})) + uint64(len(c.occupied.Bytes()))*8
		c.mu.Unlock()
		return true
	})
	return st
}
