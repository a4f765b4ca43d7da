package tilemap

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Chunk is a dense block of tile slots. Slots that were never written (or
// were removed) are not occupied and produce no geometry.
type Chunk struct {
	mu       sync.Mutex
	coord    ChunkCoord
	size     Size2
	tiles    []Tile
	occupied *bitset.BitSet
	dirty    bool
}

func newChunk(coord ChunkCoord, size Size2) *Chunk {
	n := size.Area()
	return &Chunk{
		coord:    coord,
		size:     size,
		tiles:    make([]Tile, n),
		occupied: bitset.New(uint(n)),
	}
}

func (c *Chunk) Coord() ChunkCoord {
	return c.coord
}

func (c *Chunk) Size() Size2 {
	return c.size
}

// Tile returns the slot at the row-major local offset.
func (c *Chunk) Tile(offset int) (Tile, bool) {
	if offset < 0 || offset >= len(c.tiles) {
		return Tile{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.occupied.Test(uint(offset)) {
		return Tile{}, false
	}
	return c.tiles[offset], true
}

func (c *Chunk) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Occupied returns the number of written slots.
func (c *Chunk) Occupied() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.occupied.Count())
}

// Each calls fn for every occupied slot in row-major order and stops at the
// first error.
func (c *Chunk) Each(fn func(offset int, t Tile) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ok := c.occupied.NextSet(0); ok; i, ok = c.occupied.NextSet(i + 1) {
		if err := fn(int(i), c.tiles[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chunk) set(offset int, t Tile) {
	c.mu.Lock()
	c.tiles[offset] = t
	c.occupied.Set(uint(offset))
	c.dirty = true
	c.mu.Unlock()
}

func (c *Chunk) clear(offset int) {
	c.mu.Lock()
	if c.occupied.Test(uint(offset)) {
		c.tiles[offset] = Tile{}
		c.occupied.Clear(uint(offset))
		c.dirty = true
	}
	c.mu.Unlock()
}

func (c *Chunk) markClean() {
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
}

// ChunkSnapshot is a detached copy of a chunk, used for persistence.
type ChunkSnapshot struct {
	Coord    ChunkCoord
	Size     Size2
	Tiles    []Tile
	Occupied []uint64
}

// Snapshot copies the chunk contents.
func (c *Chunk) Snapshot() ChunkSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	tiles := make([]Tile, len(c.tiles))
	copy(tiles, c.tiles)
	words := c.occupied.Bytes()
	occ := make([]uint64, len(words))
	copy(occ, words)
	return ChunkSnapshot{
		Coord:    c.coord,
		Size:     c.size,
		Tiles:    tiles,
		Occupied: occ,
	}
}
