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

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/maxsupermanhd/TileChunk/chunkStorage"
)

type PostgresChunkStorage struct {
	dbpool *pgxpool.Pool
}

func NewPostgresChunkStorage(ctx context.Context, connection string) (*PostgresChunkStorage, error) {
	p, err := pgxpool.Connect(ctx, connection)
	if err != nil {
		return nil, err
	}
	s := &PostgresChunkStorage{dbpool: p}
	if err := s.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresChunkStorage) Close() error {
	s.dbpool.Close()
	return nil
}

func (s *PostgresChunkStorage) GetAbilities() chunkStorage.StorageAbilities {
	return chunkStorage.StorageAbilities{
		CanCreateLayers:      true,
		CanAddChunks:         true,
		CanPreserveOldChunks: true,
	}
}

func (s *PostgresChunkStorage) GetStatus() (ver string, err error) {
	err = s.dbpool.QueryRow(context.Background(), `SELECT version();`).Scan(&ver)
	return
}

// EnsureSchema creates tables when they are missing.
func (s *PostgresChunkStorage) EnsureSchema(ctx context.Context) error {
	_, err := s.dbpool.Exec(ctx, `
		create table if not exists layers (
			map int not null,
			id int not null,
			texture text not null default '',
			settings jsonb not null,
			created_at timestamptz not null default now(),
			modified_at timestamptz not null default now(),
			primary key (map, id)
		);
		create table if not exists chunks (
			id bigserial primary key,
			map int not null,
			layer int not null,
			x int not null,
			y int not null,
			data bytea not null,
			created_at timestamptz not null default now(),
			foreign key (map, layer) references layers (map, id) on delete cascade
		);
		create index if not exists chunks_location on chunks (map, layer, x, y, created_at desc);`)
	return err
}
