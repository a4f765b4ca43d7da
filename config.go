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
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/imdario/mergo"
	"github.com/joho/godotenv"
	"github.com/maxsupermanhd/TileChunk/chunkStorage"
	"github.com/maxsupermanhd/TileChunk/engine"
	"github.com/maxsupermanhd/TileChunk/tilemap"
	"github.com/maxsupermanhd/lac"
)

// cfg is replaced once by loadConfig before anything else starts.
var cfg = lac.NewConf()

func configPath() string {
	path := os.Getenv("TILECHUNK_CONFIG")
	if path == "" {
		path = "config.json"
	}
	return path
}

// loadConfig reads .env and the config file. A missing config file is not
// an error, every getter stores its default into the tree.
func loadConfig() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}
	c, err := lac.FromFileJSON(configPath())
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("Config %s not found, using defaults", configPath())
		cfg = lac.NewConf()
		return nil
	}
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

func saveConfig() error {
	return cfg.ToFileIndentJSON(configPath(), 0664)
}

// confTree turns v into the plain JSON values the config tree holds.
func confTree(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var ret any
	if err := json.Unmarshal(b, &ret); err != nil {
		return nil
	}
	return ret
}

func defaultLayerSpec() engine.LayerSpec {
	return engine.LayerSpec{
		ID: 0,
		Settings: tilemap.NewLayerSettings(
			tilemap.Size2{Width: 1, Height: 1},
			tilemap.Size2{Width: 64, Height: 64},
			tilemap.Vec2{Width: 16, Height: 16},
			tilemap.Size2{Width: 96, Height: 16}),
		Texture: "tiles.png",
	}
}

func defaultStorages() []chunkStorage.Storage {
	return []chunkStorage.Storage{{
		Name:    "default",
		Type:    "filesystem",
		Address: "./storage",
	}}
}

// engineSettings reads map_id and layers. Layer settings left out of the
// config are taken from the default layer.
func engineSettings(c *lac.ConfSubtree) (engine.Settings, error) {
	s := engine.Settings{MapID: uint16(c.GetDSFloat64(0, "map_id"))}
	err := c.GetToStruct(&s.Layers, "layers")
	if errors.Is(err, lac.ErrNoKey) {
		s.Layers = []engine.LayerSpec{defaultLayerSpec()}
		c.Set(confTree(s.Layers), "layers")
		return s, nil
	}
	if err != nil {
		return s, err
	}
	def := defaultLayerSpec().Settings
	for i := range s.Layers {
		if err := mergo.Merge(&s.Layers[i].Settings, def); err != nil {
			return s, err
		}
	}
	return s, nil
}

func frameInterval(c *lac.ConfSubtree) time.Duration {
	ms := c.GetDSFloat64(100, "interval_ms")
	if ms <= 0 {
		log.Printf("Frame interval %vms is not positive, using 100ms", ms)
		ms = 100
	}
	return time.Duration(ms * float64(time.Millisecond))
}
