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
	"errors"
	"io/fs"
	"log"
	"os"
	"path"
)

type fileRequest struct {
	op     fileRouterCommand
	path   string
	data   []byte
	result chan fileResult
}

type fileResult struct {
	data []byte
	err  error
}

type fileRouterCommand int

const (
	fileRouterGet fileRouterCommand = iota
	fileRouterPut
)

// file router serializes access to files so a chunk
// is never read while half written
func (s *FilesystemChunkStorage) fileRouter() {
	log.Println("File router started for storage", s.Root)
	for r := range s.requests {
		var ret fileResult
		switch r.op {
		case fileRouterGet:
			ret.data, ret.err = os.ReadFile(r.path)
			if errors.Is(ret.err, fs.ErrNotExist) {
				ret.data, ret.err = nil, nil
			}
		case fileRouterPut:
			ret.err = writeFileAtomic(r.path, r.data)
		}
		r.result <- ret
	}
	s.wg.Done()
	log.Println("File router stopped for storage", s.Root)
}

func writeFileAtomic(fp string, data []byte) error {
	err := os.MkdirAll(path.Dir(fp), 0764)
	if err != nil {
		return err
	}
	tmp := fp + ".tmp"
	err = os.WriteFile(tmp, data, 0664)
	if err != nil {
		return err
	}
	return os.Rename(tmp, fp)
}

func (s *FilesystemChunkStorage) get(fp string) ([]byte, error) {
	ret := make(chan fileResult, 1)
	s.requests <- fileRequest{
		op:     fileRouterGet,
		path:   fp,
		result: ret,
	}
	r := <-ret
	return r.data, r.err
}

func (s *FilesystemChunkStorage) put(fp string, data []byte) error {
	ret := make(chan fileResult, 1)
	s.requests <- fileRequest{
		op:     fileRouterPut,
		path:   fp,
		data:   data,
		result: ret,
	}
	return (<-ret).err
}
