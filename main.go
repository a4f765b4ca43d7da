/*
	TileChunk, chunked tilemap server
	Copyright (C) 2022 Maxim Zhuchkov

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.

	Contact me via mail: q3.max.2011@yandex.ru or Discord: MaX#6717
*/

package main

import (
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/maxsupermanhd/TileChunk/chunkStorage"
	"github.com/maxsupermanhd/TileChunk/engine"
	"github.com/maxsupermanhd/TileChunk/render"
	"github.com/maxsupermanhd/TileChunk/render/dispatchers"
	"github.com/maxsupermanhd/TileChunk/render/renderers"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

var (
	BuildTime  = "00000000.000000"
	CommitHash = "0000000"
	GoVersion  = "0.0"
	GitTag     = "0.0"
)

var (
	storages []chunkStorage.Storage
	eng      *engine.Engine
	rends    []render.ChunkRenderer
)

// seedDemo paints the three demo tiles into an empty first layer.
func seedDemo(e *engine.Engine) {
	layers := e.Map().Layers()
	if len(layers) == 0 || layers[0].ChunkCount() > 0 {
		return
	}
	l := layers[0]
	for _, t := range []struct {
		pos tilemap.TilePos
		idx uint32
	}{
		{tilemap.TilePos{X: 0, Y: 0}, 2},
		{tilemap.TilePos{X: 0, Y: 1}, 0},
		{tilemap.TilePos{X: 1, Y: 0}, 1},
	} {
		if err := l.SetTile(t.pos, tilemap.Tile{TextureIndex: t.idx}); err != nil {
			log.Printf("Failed to seed tile %s: %v", t.pos, err)
		}
	}
	log.Printf("Seeded demo tiles into layer %d", l.ID())
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	buildinfo, ok := debug.ReadBuildInfo()
	if ok {
		GoVersion = buildinfo.GoVersion
	}
	err := loadConfig()
	if err != nil {
		log.Fatal("Error loading config file: " + err.Error())
	}
	lj, newLogger := setupLogging(cfg.GetDSString("./logs/TileChunk.log", "logs_location"))
	defer lj.Close()
	log.Println()
	log.Println("TileChunk web server is starting up...")
	log.Printf("Built %s, Ver %s (%s)\n", BuildTime, GitTag, CommitHash)
	log.Println()

	es, err := engineSettings(cfg.SubTree("engine"))
	if err != nil {
		log.Fatal("Error reading engine settings: " + err.Error())
	}
	eng, err = engine.Initialize(es, newLogger("[engine] "))
	if err != nil {
		log.Fatal("Error initializing engine: " + err.Error())
	}
	eng.SetMesher(dispatchers.NewPipelineMesher(cfg.SubTree("mesher"), newLogger("[mesher] ")))
	eng.OnFrame(onFrame)
	defer eng.Close()
	rends = renderers.ConstructRenderers()

	err = initPreviewCache(cfg.SubTree("preview"))
	if err != nil {
		log.Fatal("Error creating preview cache: " + err.Error())
	}
	defer previewCache.Close()

	err = initStorages()
	if err != nil {
		log.Fatal("Error initializing storages: " + err.Error())
	}
	defer closeStorages()
	restoreLayers(eng, persistStorage())
	if cfg.GetDSBool(true, "demo_seed") {
		seedDemo(eng)
	}

	assetsRoot := cfg.GetDSString("./assets", "assets", "root")
	loadLayerTextures(eng, assetsRoot)

	exitchan := make(chan struct{})
	stopEvents := startBackgroundRoutine("event router", layerEvents.Run)
	stopAssets := func() {}
	if cfg.GetDSBool(true, "assets", "watch") {
		stopAssets = startBackgroundRoutine("asset watcher", watchAssets(eng, assetsRoot))
	}
	stopFrames := startTickerRoutine("frame", frameInterval(cfg.SubTree("frame")), advanceFrame)
	stopWeb := startBackgroundRoutine("web", func(c <-chan struct{}) {
		runWeb(c, exitchan)
	})

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Println("Shutting down")
	close(exitchan)
	stopWeb()
	stopFrames()
	stopAssets()
	stopEvents()
	advanceFrame()
}
