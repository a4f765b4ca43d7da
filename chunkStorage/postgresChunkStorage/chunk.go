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
	"errors"
	"log"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/maxsupermanhd/TileChunk/chunkStorage"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

func (s *PostgresChunkStorage) GetChunk(mapID, layer uint16, cc tilemap.ChunkCoord) (*tilemap.ChunkSnapshot, error) {
	var d []byte
	derr := s.dbpool.QueryRow(context.Background(), `
		select data
		from chunks
		where map = $1 AND layer = $2 AND x = $3 AND y = $4
		order by created_at desc
		limit 1;`, int32(mapID), int32(layer), cc.X, cc.Y).Scan(&d)
	if derr != nil {
		if errors.Is(derr, pgx.ErrNoRows) {
			derr = nil
		} else {
			log.Print(derr.Error())
		}
		return nil, derr
	}
	return chunkStorage.DecodeChunk(d)
}

func (s *PostgresChunkStorage) ListChunks(mapID, layer uint16) ([]tilemap.ChunkCoord, error) {
	ret := []tilemap.ChunkCoord{}
	rows, derr := s.dbpool.Query(context.Background(), `
		select distinct x, y
		from chunks
		where map = $1 AND layer = $2
		order by y, x`, int32(mapID), int32(layer))
	if derr != nil {
		return ret, derr
	}
	defer rows.Close()
	for rows.Next() {
		var x, y int32
		if err := rows.Scan(&x, &y); err != nil {
			log.Print(err.Error())
			continue
		}
		ret = append(ret, tilemap.ChunkCoord{X: int(x), Y: int(y)})
	}
	return ret, rows.Err()
}

func (s *PostgresChunkStorage) AddChunk(mapID, layer uint16, snap tilemap.ChunkSnapshot) error {
	raw, err := chunkStorage.EncodeChunk(snap)
	if err != nil {
		return err
	}
	_, err = s.dbpool.Exec(context.Background(), `
		insert into chunks (map, layer, x, y, data)
		values ($1, $2, $3, $4, $5)`,
		int32(mapID), int32(layer), snap.Coord.X, snap.Coord.Y, raw)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return chunkStorage.ErrNoLayer
	}
	return err
}

func (s *PostgresChunkStorage) GetChunksCount() (chunksCount uint64, derr error) {
	derr = s.dbpool.QueryRow(context.Background(),
		`SELECT COUNT(id) from chunks;`).Scan(&chunksCount)
	return chunksCount, derr
}

func (s *PostgresChunkStorage) GetChunksSize() (chunksSize uint64, derr error) {
	derr = s.dbpool.QueryRow(context.Background(),
		`SELECT pg_total_relation_size('chunks');`).Scan(&chunksSize)
	return chunksSize, derr
}
