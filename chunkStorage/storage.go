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

package chunkStorage

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrReadOnly      = errors.New("storage is read-only")
	ErrNoLayer       = errors.New("layer not found")
)

type SLayer struct {
	Map        uint16                `json:"map"`
	ID         uint16                `json:"id"`
	Texture    string                `json:"texture"`
	Settings   tilemap.LayerSettings `json:"settings"`
	CreatedAt  time.Time             `json:"created_at"`
	ModifiedAt time.Time             `json:"modified_at"`
}

type StorageAbilities struct {
	CanCreateLayers      bool
	CanAddChunks         bool
	CanPreserveOldChunks bool
}

// Everything returns nil if specified object
// is not found, error only in case of abnormal things.
type ChunkStorage interface {
	GetAbilities() StorageAbilities
	GetStatus() (string, error)
	GetChunksCount() (uint64, error)
	GetChunksSize() (uint64, error)

	ListLayers() ([]SLayer, error)
	GetLayer(mapID, layer uint16) (*SLayer, error)
	AddLayer(l SLayer) error

	AddChunk(mapID, layer uint16, s tilemap.ChunkSnapshot) error
	GetChunk(mapID, layer uint16, cc tilemap.ChunkCoord) (*tilemap.ChunkSnapshot, error)
	ListChunks(mapID, layer uint16) ([]tilemap.ChunkCoord, error)

	Close() error
}

type Storage struct {
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Address string       `json:"addr" mapstructure:"addr"`
	Driver  ChunkStorage `json:"-" mapstructure:"-"`
}

func CloseStorages(s []Storage) {
	for i := range s {
		if s[i].Driver != nil {
			err := s[i].Driver.Close()
			if err != nil {
				log.Printf("Error closing storage [%v] of type %v: %v", s[i].Name, s[i].Type, err)
			}
			s[i].Driver = nil
		}
	}
}

func ListLayers(storages []Storage) []SLayer {
	layers := []SLayer{}
	for _, s := range storages {
		if s.Driver != nil {
			l, err := s.Driver.ListLayers()
			if err != nil {
				log.Printf("Failed to list layers on storage %s: %s", s.Name, err.Error())
			}
			layers = append(layers, l...)
		}
	}
	return layers
}

func GetLayerStorage(storages []Storage, mapID, layer uint16) (*SLayer, ChunkStorage, error) {
	for _, s := range storages {
		if s.Driver != nil {
			l, err := s.Driver.GetLayer(mapID, layer)
			if err != nil {
				return nil, nil, err
			}
			if l != nil {
				return l, s.Driver, nil
			}
		}
	}
	return nil, nil, nil
}

// SaveChunks writes snapshots of the given chunks of l. Chunks that are no
// longer allocated are skipped.
func SaveChunks(s ChunkStorage, mapID uint16, l *tilemap.Layer, coords []tilemap.ChunkCoord) error {
	if !s.GetAbilities().CanAddChunks {
		return ErrReadOnly
	}
	var errs *multierror.Error
	for _, cc := range coords {
		snap, ok := l.Snapshot(cc)
		if !ok {
			continue
		}
		if err := s.AddChunk(mapID, l.ID(), snap); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("chunk %s: %w", cc, err))
		}
	}
	return errs.ErrorOrNil()
}

// LoadLayer restores every stored chunk of l, returns how many were loaded.
func LoadLayer(s ChunkStorage, mapID uint16, l *tilemap.Layer) (int, error) {
	coords, err := s.ListChunks(mapID, l.ID())
	if err != nil {
		return 0, err
	}
	var errs *multierror.Error
	n := 0
	for _, cc := range coords {
		snap, err := s.GetChunk(mapID, l.ID(), cc)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("chunk %s: %w", cc, err))
			continue
		}
		if snap == nil {
			continue
		}
		if err := l.RestoreChunk(*snap); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("chunk %s: %w", cc, err))
			continue
		}
		n++
	}
	return n, errs.ErrorOrNil()
}
