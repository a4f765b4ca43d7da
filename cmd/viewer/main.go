package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/maxsupermanhd/TileChunk/engine"
	"github.com/maxsupermanhd/TileChunk/render/dispatchers"
	"github.com/maxsupermanhd/TileChunk/tilemap"
	"github.com/maxsupermanhd/lac"
)

var (
	atlasPath = flag.String("atlas", "assets/tiles.png", "Path to the tile atlas png")
	csvPath   = flag.String("csv", "", "Optional CSV grid imported into the layer")
	width     = flag.Int("width", 800, "Window width")
	height    = flag.Int("height", 600, "Window height")
	threads   = flag.Int("threads", 2, "Meshing threads")
)

func demoSettings(texture string) engine.Settings {
	return engine.Settings{
		Layers: []engine.LayerSpec{{
			ID: 0,
			Settings: tilemap.NewLayerSettings(
				tilemap.Size2{Width: 1, Height: 1},
				tilemap.Size2{Width: 64, Height: 64},
				tilemap.Vec2{Width: 16, Height: 16},
				tilemap.Size2{Width: 96, Height: 16}),
			Texture: texture,
		}},
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	logger := log.New(os.Stdout, "[engine] ", log.Ldate|log.Ltime|log.Lshortfile)
	e, err := engine.Initialize(demoSettings(filepath.Base(*atlasPath)), logger)
	if err != nil {
		log.Fatal(err)
	}
	defer e.Close()
	cfg := lac.NewConf()
	cfg.Set(float64(*threads), "mesher", "threads")
	e.SetMesher(dispatchers.NewPipelineMesher(cfg.SubTree("mesher"), logger))

	l, err := e.Map().Layer(0)
	if err != nil {
		log.Fatal(err)
	}
	for p, idx := range map[tilemap.TilePos]uint32{{X: 0, Y: 0}: 2, {X: 0, Y: 1}: 0, {X: 1, Y: 0}: 1} {
		if err := l.SetTile(p, tilemap.Tile{TextureIndex: idx}); err != nil {
			log.Fatal(err)
		}
	}
	if err := l.SetTile(tilemap.TilePos{X: 2, Y: 2}, tilemap.Tile{TextureIndex: 999}); err != nil {
		log.Printf("Expected rejection: %v", err)
	}
	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			log.Fatal(err)
		}
		n, err := l.ImportCSV(f, tilemap.TilePos{})
		f.Close()
		log.Printf("Imported %d tiles from %s", n, *csvPath)
		if err != nil {
			log.Printf("Import errors: %v", err)
		}
	}

	go func() {
		_, err := e.Textures().LoadAndNotify(filepath.Base(*atlasPath), filepath.Dir(*atlasPath))
		if err != nil {
			log.Printf("Failed to load atlas: %v", err)
		}
	}()

	ebiten.SetWindowSize(*width, *height)
	ebiten.SetWindowTitle("Bevy Tilemap Tests")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(newGame(e)); err != nil {
		log.Fatal(err)
	}
}
