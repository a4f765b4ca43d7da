package texturecache

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path"
	"path/filepath"
)

// LoadFile decodes the PNG at fp into an ImageReady event for h.
func LoadFile(h Handle, fp string) (ImageReady, error) {
	f, err := os.Open(fp)
	if err != nil {
		return ImageReady{}, err
	}
	defer f.Close()
	ii, err := png.Decode(f)
	if err != nil {
		return ImageReady{}, fmt.Errorf("decoding %s: %w", fp, err)
	}
	img := toRGBA(ii)
	return ImageReady{
		Handle: h,
		Name:   path.Base(fp),
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
		Image:  img,
	}, nil
}

// LoadAndNotify loads the texture registered as name from root and delivers
// it to the cache. The returned event carries the handle and dimensions.
func (c *TextureCache) LoadAndNotify(name, root string) (ImageReady, error) {
	h := c.Register(name)
	ev, err := LoadFile(h, filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		return ImageReady{Handle: h, Name: name}, err
	}
	ev.Name = name
	c.OnImageReady(ev)
	return ev, nil
}

func toRGBA(ii image.Image) *image.RGBA {
	if iirgba, ok := ii.(*image.RGBA); ok && iirgba.Rect.Min == (image.Point{}) {
		return iirgba
	}
	b := ii.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), ii, b.Min, draw.Src)
	return dst
}
