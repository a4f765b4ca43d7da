package main

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/maxsupermanhd/TileChunk/mesh"
	"github.com/maxsupermanhd/TileChunk/primitives"
	"github.com/maxsupermanhd/TileChunk/render"
	"github.com/maxsupermanhd/TileChunk/render/renderers"
	"github.com/maxsupermanhd/TileChunk/tilemap"
	"github.com/nfnt/resize"
)

func writePNG(w http.ResponseWriter, d []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(d)))
	w.Write(d)
}

func chunkImageHandler(w http.ResponseWriter, r *http.Request) {
	l, code, msg := varLayer(r)
	if l == nil {
		http.Error(w, msg, code)
		return
	}
	cx, err := varInt(r, "cx")
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	cy, err := varInt(r, "cy")
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	scale, err := varInt(r, "scale")
	if err != nil || scale < 1 || scale > maxPreviewScale {
		http.Error(w, "Scale must be between 1 and "+strconv.Itoa(maxPreviewScale), 400)
		return
	}
	loc := primitives.ChunkLocation{
		Map:      eng.Map().ID(),
		Layer:    l.ID(),
		X:        cx,
		Y:        cy,
		Renderer: mux.Vars(r)["renderer"],
		Scale:    scale,
	}
	m, built, ok := eng.ChunkMesh(l.ID(), loc.Coord())
	if !ok {
		http.Error(w, "Chunk "+loc.Coord().String()+" was not meshed yet", 404)
		return
	}
	if d, ok := previewCacheGet(loc, built); ok {
		writePNG(w, d)
		return
	}
	img, code, msg := renderChunk(l, &m, loc)
	if img == nil {
		http.Error(w, msg, code)
		return
	}
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	previewCacheSet(loc, built, b.Bytes())
	writePNG(w, b.Bytes())
}

func renderChunk(l *tilemap.Layer, m *mesh.ChunkMesh, loc primitives.ChunkLocation) (image.Image, int, string) {
	rend := renderers.FindRenderer(rends, loc.Renderer)
	if rend == nil {
		return nil, 404, "Renderer " + loc.Renderer + " not found"
	}
	data := render.ChunkData{
		Mesh:     m,
		Settings: l.Settings(),
	}
	if h, ok := eng.TextureOf(l.ID()); ok {
		if t, ok := eng.Textures().Get(h); ok && t.Ready {
			data.Atlas = t.Image
		}
	}
	if rend.NeedsAtlas && data.Atlas == nil {
		return nil, 503, "Texture of layer " + strconv.Itoa(int(l.ID())) + " is not ready"
	}
	img := rend.Render(data)
	if loc.Scale == 1 {
		return img, 200, ""
	}
	b := img.Bounds()
	return resize.Resize(uint(b.Dx()*loc.Scale), uint(b.Dy()*loc.Scale), img, resize.NearestNeighbor), 200, ""
}
