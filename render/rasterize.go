package render

import (
	"image"
	"image/color"

	"github.com/maxsupermanhd/TileChunk/mesh"
)

// Rasterize paints quads of d.Mesh into dst with nearest sampling. shade
// returns the texel for a quad corner-interpolated UV and vertex color.
func Rasterize(dst *image.RGBA, d ChunkData, shade func(u, v float32, tint mesh.Vertex) color.RGBA) {
	if d.Mesh == nil {
		return
	}
	px := d.Settings.TilePixels()
	sx := float32(px.Width) / d.Settings.TileSize.Width
	sy := float32(px.Height) / d.Settings.TileSize.Height
	cs := d.Settings.ChunkSize
	ox := float32(d.Mesh.Coord.X*cs.Width) * d.Settings.TileSize.Width
	oy := float32(d.Mesh.Coord.Y*cs.Height) * d.Settings.TileSize.Height
	vs := d.Mesh.Vertices
	for q := 0; q+3 < len(vs); q += 4 {
		c := vs[q : q+4]
		x0 := int((c[0].X - ox) * sx)
		y0 := int((c[0].Y - oy) * sy)
		x1 := int((c[2].X - ox) * sx)
		y1 := int((c[2].Y - oy) * sy)
		w := float32(x1 - x0)
		h := float32(y1 - y0)
		if w <= 0 || h <= 0 {
			continue
		}
		for y := y0; y < y1; y++ {
			t := (float32(y-y0) + 0.5) / h
			for x := x0; x < x1; x++ {
				if !(image.Point{X: x, Y: y}).In(dst.Rect) {
					continue
				}
				s := (float32(x-x0) + 0.5) / w
				u := (1-s)*(1-t)*c[0].U + s*(1-t)*c[1].U + s*t*c[2].U + (1-s)*t*c[3].U
				v := (1-s)*(1-t)*c[0].V + s*(1-t)*c[1].V + s*t*c[2].V + (1-s)*t*c[3].V
				over(dst, x, y, shade(u, v, c[0]))
			}
		}
	}
}

func over(dst *image.RGBA, x, y int, src color.RGBA) {
	if src.A == 0 {
		return
	}
	if src.A == 0xff {
		dst.SetRGBA(x, y, src)
		return
	}
	d := dst.RGBAAt(x, y)
	ia := uint32(0xff - src.A)
	dst.SetRGBA(x, y, color.RGBA{
		R: uint8(uint32(src.R) + uint32(d.R)*ia/0xff),
		G: uint8(uint32(src.G) + uint32(d.G)*ia/0xff),
		B: uint8(uint32(src.B) + uint32(d.B)*ia/0xff),
		A: uint8(uint32(src.A) + uint32(d.A)*ia/0xff),
	})
}

// SampleNearest reads the atlas texel under normalized (u, v).
func SampleNearest(atlas image.Image, u, v float32) color.RGBA {
	b := atlas.Bounds()
	x := b.Min.X + clamp(int(u*float32(b.Dx())), 0, b.Dx()-1)
	y := b.Min.Y + clamp(int(v*float32(b.Dy())), 0, b.Dy()-1)
	return color.RGBAModel.Convert(atlas.At(x, y)).(color.RGBA)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Tint multiplies a premultiplied color by a vertex color.
func Tint(c color.RGBA, t mesh.Vertex) color.RGBA {
	m := func(v uint8, f float32) uint8 {
		r := float32(v) * f
		if r > 255 {
			return 255
		}
		if r < 0 {
			return 0
		}
		return uint8(r)
	}
	return color.RGBA{
		R: m(c.R, t.R*t.A),
		G: m(c.G, t.G*t.A),
		B: m(c.B, t.B*t.A),
		A: m(c.A, t.A),
	}
}
