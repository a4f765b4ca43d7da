package texturecache

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestImageReadySetsNearest(t *testing.T) {
	c := NewTextureCache(nil)
	h := c.Register("tiles.png")
	if h2 := c.Register("tiles.png"); h2 != h {
		t.Fatal("register is not idempotent")
	}
	tex, ok := c.Get(h)
	if !ok || tex.Ready || tex.Sampling != SamplingLinear {
		t.Fatalf("unexpected pending texture %+v", tex)
	}
	c.OnImageReady(ImageReady{Handle: h, Width: 96, Height: 16})
	tex, _ = c.Get(h)
	if !tex.Ready || tex.Sampling != SamplingNearest || tex.Width != 96 || tex.Height != 16 {
		t.Fatalf("unexpected ready texture %+v", tex)
	}
	if tex.Usage != UsageSampled|UsageCopySrc|UsageCopyDst {
		t.Fatalf("usage not set: %v", tex.Usage)
	}
}

func TestImageReadyUnknownHandle(t *testing.T) {
	c := NewTextureCache(nil)
	h := Handle(uuid.New())
	c.OnImageReady(ImageReady{Handle: h, Name: "late", Image: image.NewRGBA(image.Rect(0, 0, 4, 2))})
	tex, ok := c.Get(h)
	if !ok || !tex.Ready || tex.Width != 4 || tex.Height != 2 {
		t.Fatalf("unexpected texture %+v", tex)
	}
	if got, _ := c.Lookup("late"); got != h {
		t.Fatal("name not indexed")
	}
	if c.GetStats()["ready textures"].(int64) != 1 {
		t.Fatal("ready counter mismatch")
	}
}

func TestLoadAndNotify(t *testing.T) {
	root := t.TempDir()
	fp := filepath.Join(root, "atlas.png")
	img := image.NewNRGBA(image.Rect(0, 0, 96, 16))
	img.Set(17, 3, color.NRGBA{0xFF, 0, 0, 0xFF})
	f, err := os.Create(fp)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	c := NewTextureCache(nil)
	pending := c.Register("atlas.png")
	ev, err := c.LoadAndNotify("atlas.png", root)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Handle != pending || ev.Width != 96 || ev.Height != 16 {
		t.Fatalf("unexpected event %+v", ev)
	}
	tex, _ := c.Get(ev.Handle)
	if tex.Sampling != SamplingNearest || tex.Width != 96 {
		t.Fatalf("unexpected texture %+v", tex)
	}
	if r, _, _, _ := tex.Image.At(17, 3).RGBA(); r != 0xFFFF {
		t.Fatal("pixel lost in decode")
	}
	if _, err := c.LoadAndNotify("missing.png", root); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseHandle(t *testing.T) {
	c := NewTextureCache(nil)
	h := c.Register("tiles.png")
	got, err := ParseHandle(h.String())
	if err != nil || got != h {
		t.Fatalf("round trip failed: %v %v", got, err)
	}
	if _, err := ParseHandle("not a handle"); err == nil {
		t.Fatal("expected error")
	}
}
