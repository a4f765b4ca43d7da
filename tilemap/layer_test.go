package tilemap

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func demoSettings() LayerSettings {
	return NewLayerSettings(Size2{1, 1}, Size2{64, 64}, Vec2{16, 16}, Size2{96, 16})
}

func demoLayer(t *testing.T) *Layer {
	t.Helper()
	m := NewMap(0)
	l, err := m.AddLayer(0, demoSettings())
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestDemoScenario(t *testing.T) {
	l := demoLayer(t)
	writes := []struct {
		pos TilePos
		idx uint32
	}{
		{TilePos{0, 0}, 2},
		{TilePos{0, 1}, 0},
		{TilePos{1, 0}, 1},
	}
	for _, w := range writes {
		if err := l.SetTile(w.pos, Tile{TextureIndex: w.idx}); err != nil {
			t.Fatalf("set %v: %v", w.pos, err)
		}
	}
	got, ok := l.GetTile(TilePos{0, 0})
	if !ok || got.TextureIndex != 2 {
		t.Fatalf("expected index 2 at (0,0), got %v %v", got, ok)
	}
	if _, ok := l.GetTile(TilePos{5, 5}); ok {
		t.Fatal("expected unwritten slot to be empty")
	}
	if n := l.ChunkCount(); n != 1 {
		t.Fatalf("expected 1 chunk, got %d", n)
	}
	if d := l.DirtyChunks(); len(d) != 1 || d[0] != (ChunkCoord{0, 0}) {
		t.Fatalf("unexpected dirty set %v", d)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	l := demoLayer(t)
	for y := 0; y < 64; y += 7 {
		for x := 0; x < 64; x += 5 {
			tile := Tile{TextureIndex: uint32((x + y) % 6), Flags: Flags(x % 8), Color: Color{0.5, 0.25, 1, 1}}
			if err := l.SetTile(TilePos{x, y}, tile); err != nil {
				t.Fatal(err)
			}
			got, ok := l.GetTile(TilePos{x, y})
			if !ok || got != tile {
				t.Fatalf("at (%d,%d) wrote %v read %v %v", x, y, tile, got, ok)
			}
		}
	}
}

func TestOutOfBoundsLeavesStoreUnchanged(t *testing.T) {
	l := demoLayer(t)
	for _, p := range []TilePos{{-1, 0}, {0, -1}, {64, 0}, {0, 64}, {1000, 1000}} {
		err := l.SetTile(p, Tile{TextureIndex: 1})
		if !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("%v: expected ErrOutOfBounds, got %v", p, err)
		}
		if _, ok := l.GetTile(p); ok {
			t.Fatalf("%v: expected no tile", p)
		}
	}
	if n := l.ChunkCount(); n != 0 {
		t.Fatalf("failed writes allocated %d chunks", n)
	}
	if err := l.RemoveTile(TilePos{64, 64}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds on remove, got %v", err)
	}
}

func TestInvalidTextureIndex(t *testing.T) {
	l := demoLayer(t)
	err := l.SetTile(TilePos{0, 0}, Tile{TextureIndex: 999})
	if !errors.Is(err, ErrInvalidTextureIndex) {
		t.Fatalf("expected ErrInvalidTextureIndex, got %v", err)
	}
	if err := l.SetTile(TilePos{0, 0}, Tile{TextureIndex: 6}); !errors.Is(err, ErrInvalidTextureIndex) {
		t.Fatalf("index 6 on 6 tile atlas: %v", err)
	}
	if err := l.SetTile(TilePos{0, 0}, Tile{TextureIndex: 5}); err != nil {
		t.Fatal(err)
	}
}

func TestChunkOfFloors(t *testing.T) {
	cs := Size2{16, 8}
	cases := []struct {
		pos TilePos
		cc  ChunkCoord
		off int
	}{
		{TilePos{0, 0}, ChunkCoord{0, 0}, 0},
		{TilePos{15, 7}, ChunkCoord{0, 0}, 7*16 + 15},
		{TilePos{16, 8}, ChunkCoord{1, 1}, 0},
		{TilePos{-1, -1}, ChunkCoord{-1, -1}, 7*16 + 15},
		{TilePos{-16, -9}, ChunkCoord{-1, -2}, 7 * 16},
	}
	for _, c := range cases {
		cc, off := ChunkOf(c.pos, cs)
		if cc != c.cc || off != c.off {
			t.Errorf("%v: got %v/%d want %v/%d", c.pos, cc, off, c.cc, c.off)
		}
		if back := TileAt(cc, off, cs); back != c.pos {
			t.Errorf("%v: TileAt returned %v", c.pos, back)
		}
	}
}

func TestRemoveAndFill(t *testing.T) {
	m := NewMap(0)
	l, err := m.AddLayer(3, NewLayerSettings(Size2{2, 2}, Size2{4, 4}, Vec2{8, 8}, Size2{32, 32}))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Fill(Tile{TextureIndex: 15}); err != nil {
		t.Fatal(err)
	}
	st := l.Stats()
	if st.Chunks != 4 || st.Tiles != 64 || st.DirtyChunks != 4 {
		t.Fatalf("unexpected stats after fill %+v", st)
	}
	if err := l.RemoveTile(TilePos{5, 5}); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.GetTile(TilePos{5, 5}); ok {
		t.Fatal("removed tile still present")
	}
	if st := l.Stats(); st.Tiles != 63 {
		t.Fatalf("expected 63 tiles, got %d", st.Tiles)
	}
	if err := l.Fill(Tile{TextureIndex: 16}); !errors.Is(err, ErrInvalidTextureIndex) {
		t.Fatalf("expected ErrInvalidTextureIndex, got %v", err)
	}
}

func TestRebuildClearsOnlySuccessful(t *testing.T) {
	m := NewMap(0)
	l, err := m.AddLayer(0, NewLayerSettings(Size2{2, 1}, Size2{2, 2}, Vec2{1, 1}, Size2{4, 4}))
	if err != nil {
		t.Fatal(err)
	}
	l.SetTile(TilePos{0, 0}, Tile{})
	l.SetTile(TilePos{2, 0}, Tile{})
	boom := errors.New("boom")
	err = l.Rebuild(func(_ LayerSettings, c *Chunk) error {
		if c.Coord().X == 1 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	d := l.DirtyChunks()
	if len(d) != 1 || d[0] != (ChunkCoord{1, 0}) {
		t.Fatalf("expected only failed chunk dirty, got %v", d)
	}
	if err := l.Rebuild(func(LayerSettings, *Chunk) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if d := l.DirtyChunks(); len(d) != 0 {
		t.Fatalf("expected clean layer, got %v", d)
	}
}

func TestSnapshotRestore(t *testing.T) {
	src := demoLayer(t)
	src.SetTile(TilePos{3, 4}, Tile{TextureIndex: 4, Flags: FlipX})
	snap, ok := src.Snapshot(ChunkCoord{0, 0})
	if !ok {
		t.Fatal("no snapshot")
	}
	dst := demoLayer(t)
	if err := dst.RestoreChunk(snap); err != nil {
		t.Fatal(err)
	}
	got, ok := dst.GetTile(TilePos{3, 4})
	if !ok || got.TextureIndex != 4 || !got.Flags.Has(FlipX) {
		t.Fatalf("restored tile mismatch %v %v", got, ok)
	}
	if _, ok := dst.GetTile(TilePos{0, 0}); ok {
		t.Fatal("restored unoccupied slot")
	}
	bad := snap
	bad.Size = Size2{32, 32}
	if err := dst.RestoreChunk(bad); !errors.Is(err, ErrChunkSizeMismatch) {
		t.Fatalf("expected ErrChunkSizeMismatch, got %v", err)
	}
	bad = snap
	bad.Coord = ChunkCoord{1, 0}
	if err := dst.RestoreChunk(bad); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestImportCSV(t *testing.T) {
	l := demoLayer(t)
	in := "2,1,,0\n-1,5\n9,x\n"
	n, err := l.ImportCSV(strings.NewReader(in), TilePos{10, 20})
	if n != 4 {
		t.Fatalf("expected 4 tiles written, got %d", n)
	}
	if !errors.Is(err, ErrInvalidTextureIndex) {
		t.Fatalf("expected ErrInvalidTextureIndex among errors, got %v", err)
	}
	if got, ok := l.GetTile(TilePos{13, 20}); !ok || got.TextureIndex != 0 {
		t.Fatalf("(13,20) = %v %v", got, ok)
	}
	if _, ok := l.GetTile(TilePos{12, 20}); ok {
		t.Fatal("empty cell was written")
	}
	if _, ok := l.GetTile(TilePos{10, 21}); ok {
		t.Fatal("negative cell was written")
	}
}

func TestPixelCenter(t *testing.T) {
	l := demoLayer(t)
	x, y := l.PixelCenter()
	if x != 512 || y != 512 {
		t.Fatalf("expected 512,512 got %v,%v", x, y)
	}
}

func TestConcurrentWritesThenRebuild(t *testing.T) {
	m := NewMap(0)
	l, err := m.AddLayer(0, NewLayerSettings(Size2{4, 4}, Size2{8, 8}, Vec2{1, 1}, Size2{4, 4}))
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 32*32; i++ {
				if i%8 != w {
					continue
				}
				if err := l.SetTile(TilePos{i % 32, i / 32}, Tile{TextureIndex: uint32(w % 16)}); err != nil {
					t.Error(err)
				}
			}
		}(w)
	}
	wg.Wait()
	meshed := 0
	if err := l.Rebuild(func(_ LayerSettings, c *Chunk) error {
		meshed += c.Occupied()
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if meshed != 32*32 {
		t.Fatalf("rebuild saw %d tiles", meshed)
	}
}
