package main

import (
	"fmt"
	"log"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/maxsupermanhd/TileChunk/engine"
	"github.com/maxsupermanhd/TileChunk/mesh"
	texturecache "github.com/maxsupermanhd/TileChunk/textureCache"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

// quads fitting uint16 indices
const maxBatchQuads = math.MaxUint16 / 4

type layerView struct {
	texture  texturecache.Handle
	image    *ebiten.Image
	modTime  int64
	sampling texturecache.Sampling
	chunks   map[tilemap.ChunkCoord]mesh.ChunkMesh
}

type game struct {
	e       *engine.Engine
	layers  map[uint16]*layerView
	order   []uint16
	camX    float64
	camY    float64
	zoom    float64
	lastErr error
	frame   uint64
}

func newGame(e *engine.Engine) *game {
	g := &game{
		e:      e,
		layers: map[uint16]*layerView{},
		zoom:   1,
	}
	if ls := e.Map().Layers(); len(ls) > 0 {
		g.camX, g.camY = ls[0].PixelCenter()
	}
	return g
}

func (g *game) Update() error {
	const speed = 8
	if ebiten.IsKeyPressed(ebiten.KeyLeft) || ebiten.IsKeyPressed(ebiten.KeyA) {
		g.camX -= speed / g.zoom
	}
	if ebiten.IsKeyPressed(ebiten.KeyRight) || ebiten.IsKeyPressed(ebiten.KeyD) {
		g.camX += speed / g.zoom
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) || ebiten.IsKeyPressed(ebiten.KeyW) {
		g.camY -= speed / g.zoom
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) || ebiten.IsKeyPressed(ebiten.KeyS) {
		g.camY += speed / g.zoom
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		g.zoom = math.Min(8, math.Max(0.125, g.zoom*math.Pow(1.1, dy)))
	}

	f, err := g.e.AdvanceFrame()
	if err != nil && (g.lastErr == nil || err.Error() != g.lastErr.Error()) {
		log.Printf("Frame error: %v", err)
	}
	g.lastErr = err
	if f == nil {
		return nil
	}
	g.frame = f.Number
	for _, b := range f.Batches {
		g.applyBatch(b)
	}
	return nil
}

func (g *game) applyBatch(b engine.Batch) {
	v, ok := g.layers[b.Layer]
	if !ok {
		v = &layerView{chunks: map[tilemap.ChunkCoord]mesh.ChunkMesh{}}
		g.layers[b.Layer] = v
		g.order = append(g.order, b.Layer)
	}
	for _, m := range b.Meshes {
		v.chunks[m.Coord] = m
	}
	v.texture = b.Texture
	v.sampling = b.Sampling
	if !b.Ready {
		return
	}
	t, ok := g.e.Textures().Get(b.Texture)
	if !ok || t.Image == nil {
		return
	}
	if v.image == nil || v.modTime != t.ModTime.UnixNano() {
		v.image = ebiten.NewImageFromImage(t.Image)
		v.modTime = t.ModTime.UnixNano()
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	ox := float32(float64(sw)/2 - g.camX*g.zoom)
	oy := float32(float64(sh)/2 - g.camY*g.zoom)
	z := float32(g.zoom)
	quads := 0
	for _, id := range g.order {
		v := g.layers[id]
		if v.image == nil {
			continue
		}
		op := &ebiten.DrawTrianglesOptions{}
		if v.sampling == texturecache.SamplingNearest {
			op.Filter = ebiten.FilterNearest
		} else {
			op.Filter = ebiten.FilterLinear
		}
		tw := float32(v.image.Bounds().Dx())
		th := float32(v.image.Bounds().Dy())
		var verts []ebiten.Vertex
		var idx []uint16
		flush := func() {
			if len(idx) > 0 {
				screen.DrawTriangles(verts, idx, v.image, op)
			}
			verts = verts[:0]
			idx = idx[:0]
		}
		for _, m := range v.chunks {
			for q := 0; q < m.Quads(); q++ {
				if len(verts)/4 >= maxBatchQuads {
					flush()
				}
				base := uint16(len(verts))
				for _, mv := range m.Vertices[q*4 : q*4+4] {
					verts = append(verts, ebiten.Vertex{
						DstX:   ox + mv.X*z,
						DstY:   oy + mv.Y*z,
						SrcX:   mv.U * tw,
						SrcY:   mv.V * th,
						ColorR: mv.R,
						ColorG: mv.G,
						ColorB: mv.B,
						ColorA: mv.A,
					})
				}
				for _, i := range m.Indices[q*6 : q*6+6] {
					idx = append(idx, base+uint16(i-uint32(q*4)))
				}
				quads++
			}
		}
		flush()
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf("frame %d, %d quads, %.2fx zoom, %.0f fps", g.frame, quads, g.zoom, ebiten.ActualFPS()))
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
