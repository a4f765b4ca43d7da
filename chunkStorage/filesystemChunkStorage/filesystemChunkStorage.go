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

package filesystemChunkStorage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/maxsupermanhd/TileChunk/chunkStorage"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

const (
	layerMetaName = "layer.json"
	chunkExt      = ".chunk"
)

// FilesystemChunkStorage keeps one directory per layer under
// Root/<map>/<layer> with a file per chunk. All file writes go through a
// single router goroutine.
type FilesystemChunkStorage struct {
	Root     string
	requests chan fileRequest
	wg       sync.WaitGroup
}

func NewFilesystemChunkStorage(root string) (*FilesystemChunkStorage, error) {
	if err := os.MkdirAll(root, 0764); err != nil {
		return nil, err
	}
	r := FilesystemChunkStorage{
		Root:     root,
		requests: make(chan fileRequest, 128),
	}
	r.wg.Add(1)
	go r.fileRouter()
	return &r, nil
}

func (s *FilesystemChunkStorage) Close() error {
	close(s.requests)
	s.wg.Wait()
	return nil
}

func (s *FilesystemChunkStorage) GetAbilities() chunkStorage.StorageAbilities {
	return chunkStorage.StorageAbilities{
		CanCreateLayers:      true,
		CanAddChunks:         true,
		CanPreserveOldChunks: false,
	}
}

func (s *FilesystemChunkStorage) GetStatus() (ver string, err error) {
	st, err := os.Stat(s.Root)
	if err != nil {
		return "", err
	}
	return "filesystem " + s.Root + " (" + st.Mode().String() + ")", nil
}

func (s *FilesystemChunkStorage) walkChunks(fn func(fp string, info fs.FileInfo)) error {
	return filepath.WalkDir(s.Root, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), chunkExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fn(fp, info)
		return nil
	})
}

func (s *FilesystemChunkStorage) GetChunksCount() (chunksCount uint64, derr error) {
	derr = s.walkChunks(func(_ string, _ fs.FileInfo) {
		chunksCount++
	})
	return
}

func (s *FilesystemChunkStorage) GetChunksSize() (chunksSize uint64, derr error) {
	derr = s.walkChunks(func(_ string, info fs.FileInfo) {
		chunksSize += uint64(info.Size())
	})
	return
}

func (s *FilesystemChunkStorage) layerDir(mapID, layer uint16) string {
	return path.Join(s.Root, strconv.Itoa(int(mapID)), strconv.Itoa(int(layer)))
}

func (s *FilesystemChunkStorage) chunkPath(mapID, layer uint16, cc tilemap.ChunkCoord) string {
	return path.Join(s.layerDir(mapID, layer), strconv.Itoa(cc.X)+"."+strconv.Itoa(cc.Y)+chunkExt)
}

func parseChunkName(name string) (tilemap.ChunkCoord, bool) {
	xs, ys, ok := strings.Cut(strings.TrimSuffix(name, chunkExt), ".")
	if !ok {
		return tilemap.ChunkCoord{}, false
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return tilemap.ChunkCoord{}, false
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return tilemap.ChunkCoord{}, false
	}
	return tilemap.ChunkCoord{X: x, Y: y}, true
}

func (s *FilesystemChunkStorage) ListLayers() ([]chunkStorage.SLayer, error) {
	layers := []chunkStorage.SLayer{}
	maps, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, err
	}
	for _, m := range maps {
		if !m.IsDir() {
			continue
		}
		ls, err := os.ReadDir(path.Join(s.Root, m.Name()))
		if err != nil {
			return layers, err
		}
		for _, l := range ls {
			if !l.IsDir() {
				continue
			}
			d, err := s.get(path.Join(s.Root, m.Name(), l.Name(), layerMetaName))
			if err != nil {
				return layers, err
			}
			if d == nil {
				continue
			}
			var sl chunkStorage.SLayer
			if err := json.Unmarshal(d, &sl); err != nil {
				log.Printf("Broken layer metadata in %s/%s: %v", m.Name(), l.Name(), err)
				continue
			}
			layers = append(layers, sl)
		}
	}
	sort.Slice(layers, func(i, j int) bool {
		if layers[i].Map != layers[j].Map {
			return layers[i].Map < layers[j].Map
		}
		return layers[i].ID < layers[j].ID
	})
	return layers, nil
}

func (s *FilesystemChunkStorage) GetLayer(mapID, layer uint16) (*chunkStorage.SLayer, error) {
	d, err := s.get(path.Join(s.layerDir(mapID, layer), layerMetaName))
	if err != nil || d == nil {
		return nil, err
	}
	var sl chunkStorage.SLayer
	return &sl, json.Unmarshal(d, &sl)
}

func (s *FilesystemChunkStorage) AddLayer(l chunkStorage.SLayer) error {
	existing, err := s.GetLayer(l.Map, l.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return chunkStorage.ErrAlreadyExists
	}
	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.ModifiedAt = now
	d, err := json.MarshalIndent(l, "", "\t")
	if err != nil {
		return err
	}
	return s.put(path.Join(s.layerDir(l.Map, l.ID), layerMetaName), d)
}

func (s *FilesystemChunkStorage) AddChunk(mapID, layer uint16, snap tilemap.ChunkSnapshot) error {
	l, err := s.GetLayer(mapID, layer)
	if err != nil {
		return err
	}
	if l == nil {
		return chunkStorage.ErrNoLayer
	}
	d, err := chunkStorage.EncodeChunk(snap)
	if err != nil {
		return err
	}
	return s.put(s.chunkPath(mapID, layer, snap.Coord), d)
}

func (s *FilesystemChunkStorage) GetChunk(mapID, layer uint16, cc tilemap.ChunkCoord) (*tilemap.ChunkSnapshot, error) {
	d, err := s.get(s.chunkPath(mapID, layer, cc))
	if err != nil || d == nil {
		return nil, err
	}
	return chunkStorage.DecodeChunk(d)
}

func (s *FilesystemChunkStorage) ListChunks(mapID, layer uint16) ([]tilemap.ChunkCoord, error) {
	ret := []tilemap.ChunkCoord{}
	e, err := os.ReadDir(s.layerDir(mapID, layer))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ret, nil
		}
		return nil, err
	}
	for _, f := range e {
		if f.IsDir() || !strings.HasSuffix(f.Name(), chunkExt) {
			continue
		}
		cc, ok := parseChunkName(f.Name())
		if !ok {
			log.Printf("Skipping weird chunk file %s", f.Name())
			continue
		}
		ret = append(ret, cc)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Less(ret[j])
	})
	return ret, nil
}
