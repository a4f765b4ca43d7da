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
	"context"
	"errors"
	"log"
	"sync"

	"github.com/maxsupermanhd/TileChunk/chunkStorage"
	"github.com/maxsupermanhd/TileChunk/chunkStorage/filesystemChunkStorage"
	"github.com/maxsupermanhd/TileChunk/chunkStorage/postgresChunkStorage"
	"github.com/maxsupermanhd/TileChunk/engine"
	"github.com/maxsupermanhd/TileChunk/tilemap"
	"github.com/maxsupermanhd/lac"
)

var (
	errStorageTypeNotImplemented = errors.New("storage type not implemented")
)

// storagesLock guards storages, web handlers add and reinit entries while
// frames persist.
var storagesLock sync.Mutex

func initStorages() error {
	log.Println("Initializing storages...")
	storagesLock.Lock()
	defer storagesLock.Unlock()
	storages = nil
	err := cfg.GetToStruct(&storages, "storages")
	if errors.Is(err, lac.ErrNoKey) {
		storages = defaultStorages()
		cfg.Set(confTree(storages), "storages")
	} else if err != nil {
		return err
	}
	if len(storages) == 0 {
		log.Println("No storages to initialize")
		return nil
	}
	for k, v := range storages {
		d, err := initStorage(storages[k].Type, storages[k].Address)
		if err != nil {
			log.Println("Failed to initialize storage: " + err.Error())
			continue
		}
		ver, err := d.GetStatus()
		if err != nil {
			log.Println("Error getting storage status: " + err.Error())
			continue
		}
		v.Driver = d
		storages[k] = v
		log.Println("Storage initialized: " + ver)
	}
	return nil
}

func initStorage(storageStype, address string) (driver chunkStorage.ChunkStorage, err error) {
	switch storageStype {
	case "postgres":
		driver, err = postgresChunkStorage.NewPostgresChunkStorage(context.Background(), address)
		if err != nil {
			return nil, err
		}
		return driver, nil
	case "filesystem":
		driver, err = filesystemChunkStorage.NewFilesystemChunkStorage(address)
		if err != nil {
			return nil, err
		}
		return driver, nil
	default:
		return nil, errStorageTypeNotImplemented
	}
}

// storagesSnapshot copies the storage list, drivers are shared.
func storagesSnapshot() []chunkStorage.Storage {
	storagesLock.Lock()
	defer storagesLock.Unlock()
	ret := make([]chunkStorage.Storage, len(storages))
	copy(ret, storages)
	return ret
}

func closeStorages() {
	storagesLock.Lock()
	chunkStorage.CloseStorages(storages)
	storagesLock.Unlock()
}

func findCapableStorage(storages []chunkStorage.Storage, pref string) chunkStorage.ChunkStorage {
	for _, s := range storages {
		if s.Name == pref && s.Driver != nil {
			return s.Driver
		}
	}
	for _, s := range storages {
		if s.Driver == nil {
			continue
		}
		a := s.Driver.GetAbilities()
		if a.CanCreateLayers && a.CanAddChunks {
			return s.Driver
		}
	}
	return nil
}

// persistStorage is where rebuilt chunks are written, nil when none is
// online.
func persistStorage() chunkStorage.ChunkStorage {
	pref := cfg.GetDSString("default", "persist", "storage")
	storagesLock.Lock()
	defer storagesLock.Unlock()
	return findCapableStorage(storages, pref)
}

// restoreLayers creates every configured layer in the storage and loads
// chunks it already has. A layer missing there is looked up on the other
// storages and copied over. Settings stored earlier win over the config so
// saved chunks stay valid.
func restoreLayers(e *engine.Engine, s chunkStorage.ChunkStorage) {
	if s == nil {
		log.Println("No storage to restore layers from")
		return
	}
	all := storagesSnapshot()
	mapID := e.Map().ID()
	for _, l := range e.Map().Layers() {
		texture := ""
		if h, ok := e.TextureOf(l.ID()); ok {
			if t, ok := e.Textures().Get(h); ok {
				texture = t.Name
			}
		}
		src := s
		sl, err := s.GetLayer(mapID, l.ID())
		if err != nil {
			log.Printf("Failed to get layer %d from storage: %v", l.ID(), err)
			continue
		}
		if sl == nil {
			sl, src, err = chunkStorage.GetLayerStorage(all, mapID, l.ID())
			if err != nil {
				log.Printf("Failed to look up layer %d on other storages: %v", l.ID(), err)
			}
			nl := chunkStorage.SLayer{Map: mapID, ID: l.ID(), Texture: texture, Settings: l.Settings()}
			if sl != nil {
				nl.Settings = sl.Settings
			}
			err = s.AddLayer(nl)
			if err != nil {
				log.Printf("Failed to add layer %d to storage: %v", l.ID(), err)
			}
			if sl == nil {
				continue
			}
			log.Printf("Layer %d found on another storage, copying", l.ID())
		}
		if sl.Settings != l.Settings() {
			if err := e.Map().UpdateLayerSettings(l.ID(), sl.Settings); err != nil {
				log.Printf("Stored settings of layer %d rejected: %v", l.ID(), err)
				continue
			}
			log.Printf("Layer %d uses stored settings", l.ID())
		}
		n, err := chunkStorage.LoadLayer(src, mapID, l)
		if err != nil {
			log.Printf("Errors loading layer %d: %v", l.ID(), err)
		}
		if src != s {
			if err := chunkStorage.SaveChunks(s, mapID, l, l.ChunkCoords()); err != nil {
				log.Printf("Failed to copy layer %d: %v", l.ID(), err)
			}
		}
		log.Printf("Layer %d: restored %d chunks", l.ID(), n)
	}
}

// persistFrame writes every chunk rebuilt by the frame.
func persistFrame(s chunkStorage.ChunkStorage, f *engine.Frame) {
	if s == nil {
		return
	}
	mapID := eng.Map().ID()
	for _, b := range f.Batches {
		if len(b.Meshes) == 0 {
			continue
		}
		l, err := eng.Map().Layer(b.Layer)
		if err != nil {
			continue
		}
		coords := make([]tilemap.ChunkCoord, 0, len(b.Meshes))
		for _, m := range b.Meshes {
			coords = append(coords, m.Coord)
		}
		if err := chunkStorage.SaveChunks(s, mapID, l, coords); err != nil {
			log.Printf("Failed to persist layer %d: %v", b.Layer, err)
		}
	}
}
