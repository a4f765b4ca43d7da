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

package postgresChunkStorage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/maxsupermanhd/TileChunk/chunkStorage"
)

func scanLayer(row pgx.Row) (*chunkStorage.SLayer, error) {
	l := chunkStorage.SLayer{}
	var mapID, id int32
	var settings []byte
	err := row.Scan(&mapID, &id, &l.Texture, &settings, &l.CreatedAt, &l.ModifiedAt)
	if err != nil {
		return nil, err
	}
	l.Map, l.ID = uint16(mapID), uint16(id)
	return &l, json.Unmarshal(settings, &l.Settings)
}

func (s *PostgresChunkStorage) ListLayers() ([]chunkStorage.SLayer, error) {
	layers := []chunkStorage.SLayer{}
	rows, derr := s.dbpool.Query(context.Background(),
		`SELECT map, id, texture, settings, created_at, modified_at FROM layers ORDER BY map, id`)
	if derr != nil {
		return layers, derr
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLayer(rows)
		if err != nil {
			return layers, err
		}
		layers = append(layers, *l)
	}
	return layers, rows.Err()
}

func (s *PostgresChunkStorage) GetLayer(mapID, layer uint16) (*chunkStorage.SLayer, error) {
	l, derr := scanLayer(s.dbpool.QueryRow(context.Background(),
		`SELECT map, id, texture, settings, created_at, modified_at FROM layers WHERE map = $1 AND id = $2`,
		int32(mapID), int32(layer)))
	if errors.Is(derr, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, derr
}

func (s *PostgresChunkStorage) AddLayer(l chunkStorage.SLayer) error {
	settings, err := json.Marshal(l.Settings)
	if err != nil {
		return err
	}
	_, derr := s.dbpool.Exec(context.Background(),
		`INSERT INTO layers (map, id, texture, settings) VALUES ($1, $2, $3, $4)`,
		int32(l.Map), int32(l.ID), l.Texture, string(settings))
	var pgErr *pgconn.PgError
	if errors.As(derr, &pgErr) && pgErr.Code == "23505" {
		return chunkStorage.ErrAlreadyExists
	}
	return derr
}
