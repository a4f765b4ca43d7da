package dispatchers

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/maxsupermanhd/TileChunk/mesh"
	"github.com/maxsupermanhd/TileChunk/tilemap"
	"github.com/maxsupermanhd/lac"
)

func mesherConf(t *testing.T, js string) *lac.ConfSubtree {
	t.Helper()
	c, err := lac.FromBytesJSON([]byte(js))
	if err != nil {
		t.Fatal(err)
	}
	return c.SubTree("mesher")
}

func filledLayers(t *testing.T) (*tilemap.Layer, *tilemap.Layer) {
	t.Helper()
	s := tilemap.NewLayerSettings(
		tilemap.Size2{Width: 4, Height: 3},
		tilemap.Size2{Width: 8, Height: 8},
		tilemap.Vec2{Width: 16, Height: 16},
		tilemap.Size2{Width: 64, Height: 64})
	m := tilemap.NewMap(0)
	a, err := m.AddLayer(0, s)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.AddLayer(1, s)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 32*24; i += 3 {
		p := tilemap.TilePos{X: i % 32, Y: i / 32}
		tile := tilemap.Tile{TextureIndex: uint32(i % 16), Flags: tilemap.Flags(i % 4)}
		if err := a.SetTile(p, tile); err != nil {
			t.Fatal(err)
		}
		if err := b.SetTile(p, tile); err != nil {
			t.Fatal(err)
		}
	}
	return a, b
}

func TestPipelineMatchesSequential(t *testing.T) {
	a, b := filledLayers(t)
	want, err := mesh.Builder{}.RebuildDirty(a)
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipelineMesher(mesherConf(t, `{"mesher":{"threads":3,"queue_normal_len":2}}`), nil)
	defer p.Close()
	got, err := p.RebuildDirty(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 12 {
		t.Fatalf("expected 12 meshes, got %d", len(got))
	}
	for i := range got {
		got[i].Layer = want[i].Layer
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatal("pipeline meshes differ from sequential ones")
	}
	again, err := p.RebuildDirtyPriority(b)
	if err != nil || len(again) != 0 {
		t.Fatalf("second rebuild: %d meshes, %v", len(again), err)
	}
}

func TestPipelineReportsFailures(t *testing.T) {
	a, _ := filledLayers(t)
	snap, _ := a.Snapshot(tilemap.ChunkCoord{X: 1, Y: 1})
	for i := range snap.Tiles {
		snap.Tiles[i].TextureIndex = 1000
	}
	if err := a.RestoreChunk(snap); err != nil {
		t.Fatal(err)
	}
	p := NewPipelineMesher(nil, nil)
	defer p.Close()
	got, err := p.RebuildDirty(a)
	if !errors.Is(err, tilemap.ErrInvalidTextureIndex) {
		t.Fatalf("expected ErrInvalidTextureIndex, got %v", err)
	}
	if len(got) != 11 {
		t.Fatalf("expected 11 meshes, got %d", len(got))
	}
	d := a.DirtyChunks()
	if len(d) != 1 || d[0] != (tilemap.ChunkCoord{X: 1, Y: 1}) {
		t.Fatalf("unexpected dirty set %v", d)
	}
}

func TestShardStable(t *testing.T) {
	cc := tilemap.ChunkCoord{X: -3, Y: 7}
	s := shardOf(cc, 5)
	for i := 0; i < 10; i++ {
		if shardOf(cc, 5) != s {
			t.Fatal("shard changed")
		}
	}
	if s < 0 || s >= 5 {
		t.Fatalf("shard %d out of range", s)
	}
}

func TestPipelineConfigDefaults(t *testing.T) {
	cfg := mesherConf(t, `{"mesher":{"threads":-2}}`)
	p := NewPipelineMesher(cfg, nil)
	defer p.Close()
	if len(p.shards) != DefaultThreads {
		t.Fatalf("expected %d shards, got %d", DefaultThreads, len(p.shards))
	}
	if cap(p.shards[0].qpriority) != DefaultQueuePriorityLen {
		t.Fatalf("priority queue len %d", cap(p.shards[0].qpriority))
	}
	if v, ok := cfg.GetFloat64("queue_normal_len"); !ok || v != DefaultQueueNormalLen {
		t.Fatalf("default not stored in config: %v %v", v, ok)
	}
}

func TestPipelineRebuildAfterClose(t *testing.T) {
	a, _ := filledLayers(t)
	p := NewPipelineMesher(mesherConf(t, `{"mesher":{"threads":2}}`), nil)
	p.Close()
	done := make(chan error, 1)
	go func() {
		_, err := p.RebuildDirty(a)
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrMesherClosed) {
			t.Fatalf("expected ErrMesherClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("rebuild after close blocked")
	}
	if n := len(a.DirtyChunks()); n != 12 {
		t.Fatalf("expected 12 dirty chunks kept, got %d", n)
	}
	// the layer lock must be free again
	if err := a.SetTile(tilemap.TilePos{X: 1, Y: 1}, tilemap.Tile{TextureIndex: 3}); err != nil {
		t.Fatal(err)
	}
}
