package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/maxsupermanhd/TileChunk/chunkStorage"
	"github.com/maxsupermanhd/TileChunk/engine"
	"github.com/maxsupermanhd/TileChunk/primitives"
	"github.com/maxsupermanhd/TileChunk/render/renderers"
	"github.com/maxsupermanhd/TileChunk/tilemap"
	"github.com/maxsupermanhd/lac"
)

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg = lac.NewConf()
	es, err := engineSettings(cfg.SubTree("engine"))
	if err != nil {
		t.Fatal(err)
	}
	eng, err = engine.Initialize(es, nil)
	if err != nil {
		t.Fatal(err)
	}
	eng.OnFrame(onFrame)
	rends = renderers.ConstructRenderers()
	storages = nil
	if err := initPreviewCache(cfg.SubTree("preview")); err != nil {
		t.Fatal(err)
	}
	exitchan := make(chan struct{})
	t.Cleanup(func() {
		close(exitchan)
		previewCache.Close()
		previewCache = nil
		eng.Close()
		closeStorages()
		storages = nil
	})
	return createRouter(exitchan)
}

func doRequest(t *testing.T, h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTileAPIRoundTrip(t *testing.T) {
	h := setupTestServer(t)

	rec := doRequest(t, h, "PUT", "/api/v1/layers/0/tiles/1/0", `{"index":2,"flip_x":true}`)
	if rec.Code != 200 {
		t.Fatalf("set tile: %d %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, h, "GET", "/api/v1/layers/0/tiles/1/0", "")
	if rec.Code != 200 {
		t.Fatalf("get tile: %d %s", rec.Code, rec.Body.String())
	}
	var got apiTile
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Index != 2 || !got.FlipX || got.FlipY || got.Color != nil {
		t.Fatalf("unexpected tile %+v", got)
	}

	rec = doRequest(t, h, "DELETE", "/api/v1/layers/0/tiles/1/0", "")
	if rec.Code != 200 {
		t.Fatalf("remove tile: %d", rec.Code)
	}
	if rec = doRequest(t, h, "GET", "/api/v1/layers/0/tiles/1/0", ""); rec.Code != 404 {
		t.Fatalf("expected 404 after removal, got %d", rec.Code)
	}
}

func TestTileAPIErrors(t *testing.T) {
	h := setupTestServer(t)
	cases := []struct {
		name, method, url, body string
		code                    int
	}{
		{"out of bounds", "PUT", "/api/v1/layers/0/tiles/64/0", `{"index":1}`, 400},
		{"negative", "PUT", "/api/v1/layers/0/tiles/-1/0", `{"index":1}`, 400},
		{"invalid index", "PUT", "/api/v1/layers/0/tiles/0/0", `{"index":999}`, 400},
		{"unknown layer", "PUT", "/api/v1/layers/7/tiles/0/0", `{"index":1}`, 404},
		{"bad body", "PUT", "/api/v1/layers/0/tiles/0/0", `{`, 400},
		{"duplicate layer", "POST", "/api/v1/layers", `{"id":0,"settings":{"map_size":{"width":1,"height":1},"chunk_size":{"width":8,"height":8},"tile_size":{"width":16,"height":16},"texture_size":{"width":96,"height":16}}}`, 409},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if rec := doRequest(t, h, c.method, c.url, c.body); rec.Code != c.code {
				t.Fatalf("expected %d, got %d: %s", c.code, rec.Code, rec.Body.String())
			}
		})
	}
	l, _ := eng.Map().Layer(0)
	if l.ChunkCount() != 0 {
		t.Fatal("failed writes allocated chunks")
	}
}

func TestFrameAndPreview(t *testing.T) {
	h := setupTestServer(t)
	seedDemo(eng)

	if rec := doRequest(t, h, "GET", "/layers/0/chunks/0/0/1/occupancy.png", ""); rec.Code != 404 {
		t.Fatalf("expected 404 before first frame, got %d", rec.Code)
	}
	rec := doRequest(t, h, "POST", "/api/v1/frame", "")
	if rec.Code != 200 {
		t.Fatalf("frame: %d %s", rec.Code, rec.Body.String())
	}
	var fr struct {
		Frame   uint64 `json:"frame"`
		Changed int    `json:"changed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fr); err != nil {
		t.Fatal(err)
	}
	if fr.Frame != 1 || fr.Changed != 1 {
		t.Fatalf("unexpected frame %+v", fr)
	}
	rec = doRequest(t, h, "GET", "/api/v1/layers/0/dirty", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("dirty set not empty after frame: %s", rec.Body.String())
	}

	if rec := doRequest(t, h, "GET", "/layers/0/chunks/0/0/1/tiles.png", ""); rec.Code != 503 {
		t.Fatalf("expected 503 without texture, got %d", rec.Code)
	}
	rec = doRequest(t, h, "GET", "/layers/0/chunks/0/0/2/occupancy.png", "")
	if rec.Code != 200 {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body.String())
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64*16*2 {
		t.Fatalf("unexpected preview width %d", img.Bounds().Dx())
	}
	if _, _, b, _ := img.At(5, 5).RGBA(); b>>8 != 0xE4 {
		t.Fatalf("tile (0,0) not painted: %v", img.At(5, 5))
	}
}

func TestLayerListing(t *testing.T) {
	h := setupTestServer(t)
	l, _ := eng.Map().Layer(0)
	l.SetTile(tilemap.TilePos{X: 3, Y: 3}, tilemap.Tile{TextureIndex: 1})
	rec := doRequest(t, h, "GET", "/api/v1/layers", "")
	var layers []apiLayer
	if err := json.Unmarshal(rec.Body.Bytes(), &layers); err != nil {
		t.Fatal(err)
	}
	if len(layers) != 1 || layers[0].Stats.Tiles != 1 || layers[0].Texture == "" {
		t.Fatalf("unexpected layers %+v", layers)
	}
	rec = doRequest(t, h, "POST", "/api/v1/layers/0/import?x=10&y=10", "1,2\n,0\n")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"imported":3`) {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSetTileRebuildsLayer(t *testing.T) {
	h := setupTestServer(t)
	rec := doRequest(t, h, "PUT", "/api/v1/layers/0/tiles/1/0", `{"index":1}`)
	if rec.Code != 200 {
		t.Fatalf("set tile: %d %s", rec.Code, rec.Body.String())
	}
	if _, built, ok := eng.ChunkMesh(0, tilemap.ChunkCoord{}); !ok || built != 1 {
		t.Fatalf("chunk not meshed by the edit, built %d ok %v", built, ok)
	}
	rec = doRequest(t, h, "GET", "/api/v1/layers/0/dirty", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("dirty set not empty after edit: %s", rec.Body.String())
	}
}

func TestPreviewFollowsEdits(t *testing.T) {
	h := setupTestServer(t)
	seedDemo(eng)
	if rec := doRequest(t, h, "POST", "/api/v1/frame", ""); rec.Code != 200 {
		t.Fatalf("frame: %d", rec.Code)
	}
	const u = "/layers/0/chunks/0/0/1/occupancy.png"
	before := doRequest(t, h, "GET", u, "")
	if before.Code != 200 {
		t.Fatalf("preview: %d %s", before.Code, before.Body.String())
	}
	if rec := doRequest(t, h, "PUT", "/api/v1/layers/0/tiles/5/5", `{"index":1}`); rec.Code != 200 {
		t.Fatalf("set tile: %d", rec.Code)
	}
	after := doRequest(t, h, "GET", u, "")
	if after.Code != 200 {
		t.Fatalf("preview: %d", after.Code)
	}
	if bytes.Equal(before.Body.Bytes(), after.Body.Bytes()) {
		t.Fatal("preview not redrawn after edit")
	}

	// an entry tagged with an older frame is never served
	loc := primitives.ChunkLocation{Map: eng.Map().ID(), Layer: 0, Renderer: "occupancy", Scale: 1}
	previewCacheSet(loc, 1, []byte("stale"))
	if _, ok := previewCacheGet(loc, 2); ok {
		t.Fatal("stale entry returned")
	}
	rec := doRequest(t, h, "GET", u, "")
	if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Fatalf("stale bytes served: %v", err)
	}
}

func TestTextureByHandle(t *testing.T) {
	h := setupTestServer(t)
	if rec := doRequest(t, h, "GET", "/api/v1/textures/nope", ""); rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := doRequest(t, h, "GET", "/api/v1/textures/"+uuid.NewString(), ""); rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	th, ok := eng.TextureOf(0)
	if !ok {
		t.Fatal("layer 0 has no texture")
	}
	rec := doRequest(t, h, "GET", "/api/v1/textures/"+th.String(), "")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"name":"tiles.png"`) {
		t.Fatalf("texture: %d %s", rec.Code, rec.Body.String())
	}
}

func addStorageURL(name, dir string) string {
	v := url.Values{}
	v.Set("name", name)
	v.Set("type", "filesystem")
	v.Set("address", dir)
	return "/api/v1/storages?" + v.Encode()
}

func TestStoragesConcurrentAccess(t *testing.T) {
	h := setupTestServer(t)
	dir := t.TempDir()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				persistStorage()
				storagesSnapshot()
			}
		}
	}()
	const n = 5
	for i := 0; i < n; i++ {
		name := "fs" + strconv.Itoa(i)
		rec := doRequest(t, h, "PUT", addStorageURL(name, filepath.Join(dir, name)), "")
		if rec.Code != 200 {
			t.Fatalf("add storage: %d %s", rec.Code, rec.Body.String())
		}
	}
	close(stop)
	wg.Wait()
	if rec := doRequest(t, h, "PUT", addStorageURL("fs0", dir), ""); rec.Code != 400 {
		t.Fatalf("expected 400 for duplicate name, got %d", rec.Code)
	}
	var got []apiStorage
	rec := doRequest(t, h, "GET", "/api/v1/storages", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != n || !got[0].Online || got[0].KeepsHistory {
		t.Fatalf("unexpected storages %+v", got)
	}
	var saved []chunkStorage.Storage
	if err := cfg.GetToStruct(&saved, "storages"); err != nil || len(saved) != n {
		t.Fatalf("config has %d storages: %v", len(saved), err)
	}
}

func TestStoredLayers(t *testing.T) {
	h := setupTestServer(t)
	if rec := doRequest(t, h, "PUT", addStorageURL("fs", t.TempDir()), ""); rec.Code != 200 {
		t.Fatalf("add storage: %d %s", rec.Code, rec.Body.String())
	}
	s := persistStorage()
	if s == nil {
		t.Fatal("no persist storage")
	}
	restoreLayers(eng, s)
	rec := doRequest(t, h, "GET", "/api/v1/storages/layers", "")
	var layers []chunkStorage.SLayer
	if err := json.Unmarshal(rec.Body.Bytes(), &layers); err != nil {
		t.Fatal(err)
	}
	if len(layers) != 1 || layers[0].ID != 0 || layers[0].Texture != "tiles.png" {
		t.Fatalf("unexpected stored layers %+v", layers)
	}
}
