package renderers

import (
	"image"
	"image/color"
	"testing"

	"github.com/maxsupermanhd/TileChunk/mesh"
	"github.com/maxsupermanhd/TileChunk/render"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

var (
	red   = color.RGBA{0xFF, 0, 0, 0xFF}
	green = color.RGBA{0, 0xFF, 0, 0xFF}
)

// two 2x2 tiles side by side: red, green
func testAtlas() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				img.SetRGBA(x, y, red)
			} else {
				img.SetRGBA(x, y, green)
			}
		}
	}
	return img
}

func testChunk(t *testing.T, tiles map[tilemap.TilePos]tilemap.Tile) render.ChunkData {
	t.Helper()
	s := tilemap.NewLayerSettings(
		tilemap.Size2{Width: 1, Height: 1},
		tilemap.Size2{Width: 2, Height: 2},
		tilemap.Vec2{Width: 2, Height: 2},
		tilemap.Size2{Width: 4, Height: 2})
	l, err := tilemap.NewMap(0).AddLayer(0, s)
	if err != nil {
		t.Fatal(err)
	}
	for p, tile := range tiles {
		if err := l.SetTile(p, tile); err != nil {
			t.Fatal(err)
		}
	}
	meshes, err := mesh.Builder{}.RebuildDirty(l)
	if err != nil || len(meshes) != 1 {
		t.Fatalf("rebuild: %d meshes, %v", len(meshes), err)
	}
	return render.ChunkData{Mesh: &meshes[0], Settings: s, Atlas: testAtlas()}
}

func TestTexturedRenderer(t *testing.T) {
	data := testChunk(t, map[tilemap.TilePos]tilemap.Tile{
		{X: 0, Y: 0}: {TextureIndex: 1},
		{X: 1, Y: 1}: {TextureIndex: 0},
	})
	r := FindRenderer(ConstructRenderers(), "tiles")
	if r == nil {
		t.Fatal("tiles renderer missing")
	}
	img := r.Render(data)
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	checks := []struct {
		x, y int
		c    color.RGBA
	}{
		{0, 0, green}, {1, 1, green},
		{2, 2, red}, {3, 3, red},
		{2, 0, color.RGBA{}}, {0, 3, color.RGBA{}},
	}
	for _, c := range checks {
		if got := img.RGBAAt(c.x, c.y); got != c.c {
			t.Errorf("pixel %d,%d = %v, want %v", c.x, c.y, got, c.c)
		}
	}
}

func TestTexturedRendererTint(t *testing.T) {
	data := testChunk(t, map[tilemap.TilePos]tilemap.Tile{
		{X: 0, Y: 0}: {TextureIndex: 1, Color: tilemap.Color{R: 1, G: 0.5, B: 1, A: 1}},
	})
	img := NewTexturedChunkRenderer().Render(data)
	if got := img.RGBAAt(0, 0); got.G != 0x7F || got.A != 0xFF {
		t.Fatalf("tint not applied: %v", got)
	}
}

func TestOccupancyWithoutAtlas(t *testing.T) {
	data := testChunk(t, map[tilemap.TilePos]tilemap.Tile{
		{X: 1, Y: 0}: {TextureIndex: 0},
	})
	data.Atlas = nil
	fill := color.RGBA{1, 2, 3, 0xFF}
	img := NewOccupancyChunkRenderer(fill).Render(data)
	if got := img.RGBAAt(2, 1); got != fill {
		t.Fatalf("occupied pixel %v", got)
	}
	if got := img.RGBAAt(0, 0); got == fill {
		t.Fatal("empty slot painted")
	}
	if blank := NewTexturedChunkRenderer().Render(data); blank.RGBAAt(2, 1) != (color.RGBA{}) {
		t.Fatal("textured renderer painted without atlas")
	}
}
