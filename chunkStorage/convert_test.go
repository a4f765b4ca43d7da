package chunkStorage

import (
	"bytes"
	"compress/zlib"
	"encoding/gob"
	"errors"
	"reflect"
	"testing"

	"github.com/maxsupermanhd/TileChunk/tilemap"
)

func testSnapshot(t *testing.T) tilemap.ChunkSnapshot {
	t.Helper()
	l, err := tilemap.NewMap(0).AddLayer(3, tilemap.NewLayerSettings(
		tilemap.Size2{Width: 2, Height: 2},
		tilemap.Size2{Width: 4, Height: 4},
		tilemap.Vec2{Width: 16, Height: 16},
		tilemap.Size2{Width: 96, Height: 16}))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []tilemap.TilePos{{X: 4, Y: 4}, {X: 7, Y: 5}} {
		if err := l.SetTile(p, tilemap.Tile{TextureIndex: 5, Flags: tilemap.FlipX}); err != nil {
			t.Fatal(err)
		}
	}
	s, ok := l.Snapshot(tilemap.ChunkCoord{X: 1, Y: 1})
	if !ok {
		t.Fatal("chunk not allocated")
	}
	return s
}

func TestChunkCodec(t *testing.T) {
	s := testSnapshot(t)
	d, err := EncodeChunk(s)
	if err != nil {
		t.Fatal(err)
	}
	if d[0] != compressionGzip {
		t.Fatalf("unexpected tag %d", d[0])
	}
	got, err := DecodeChunk(d)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(*got, s) {
		t.Fatalf("decoded snapshot differs:\n%+v\n%+v", *got, s)
	}
}

func TestChunkCodecZlib(t *testing.T) {
	s := testSnapshot(t)
	var b bytes.Buffer
	b.WriteByte(compressionZlib)
	w := zlib.NewWriter(&b)
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		t.Fatal(err)
	}
	w.Close()
	got, err := DecodeChunk(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Coord != s.Coord || len(got.Tiles) != len(s.Tiles) {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestChunkCodecInvalid(t *testing.T) {
	if _, err := DecodeChunk([]byte{42, 1, 2}); !errors.Is(err, ErrUnknownCompression) {
		t.Fatalf("expected unknown compression, got %v", err)
	}
	if _, err := DecodeChunk(nil); err == nil {
		t.Fatal("expected error on empty data")
	}
}
