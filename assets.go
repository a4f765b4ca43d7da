package main

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/maxsupermanhd/TileChunk/engine"
)

// loadLayerTextures decodes the atlas of every layer from root and fires the
// image ready event. Missing files only get logged, layers keep working
// with a pending texture.
func loadLayerTextures(e *engine.Engine, root string) {
	for _, l := range e.Map().Layers() {
		h, ok := e.TextureOf(l.ID())
		if !ok {
			continue
		}
		t, ok := e.Textures().Get(h)
		if !ok || t.Name == "" {
			continue
		}
		loadTexture(e, t.Name, root)
	}
}

func loadTexture(e *engine.Engine, name, root string) {
	ev, err := e.Textures().LoadAndNotify(name, root)
	if err != nil {
		log.Printf("Failed to load texture %s from %s: %v", name, root, err)
		return
	}
	log.Printf("Texture %s ready (%dx%d)", name, ev.Width, ev.Height)
	layerEvents.Broadcast(layerEvent{Action: "textureReady", Layer: noLayer, Data: map[string]any{
		"handle": ev.Handle.String(),
		"name":   ev.Name,
		"width":  ev.Width,
		"height": ev.Height,
	}})
}

// watchAssets reloads textures whenever their file in root is written.
func watchAssets(e *engine.Engine, root string) func(<-chan struct{}) {
	return func(exitchan <-chan struct{}) {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			log.Println("Failed to create asset watcher:", err)
			<-exitchan
			return
		}
		defer watcher.Close()
		err = watcher.Add(root)
		if err != nil {
			log.Println("Failed to watch assets:", err)
			<-exitchan
			return
		}
		for {
			select {
			case <-exitchan:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				name := filepath.Base(event.Name)
				if !strings.HasSuffix(strings.ToLower(name), ".png") {
					continue
				}
				if _, ok := e.Textures().Lookup(name); !ok {
					continue
				}
				log.Println("Reloading texture", name)
				loadTexture(e, name, root)
				previewCacheClear()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Println("Asset watcher error:", err)
			}
		}
	}
}
