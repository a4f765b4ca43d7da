package chunkStorage

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/gob"
	"errors"
	"io"

	"github.com/maxsupermanhd/TileChunk/tilemap"
)

const (
	compressionNone byte = iota
	compressionGzip
	compressionZlib
)

var ErrUnknownCompression = errors.New("unknown compression")

// EncodeChunk serializes a snapshot as one compression tag byte followed by
// gzipped gob.
func EncodeChunk(s tilemap.ChunkSnapshot) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte(compressionGzip)
	w := gzip.NewWriter(&b)
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func DecodeChunk(d []byte) (*tilemap.ChunkSnapshot, error) {
	if len(d) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	var r io.Reader = bytes.NewReader(d[1:])
	var err error
	switch d[0] {
	default:
		return nil, ErrUnknownCompression
	case compressionNone:
	case compressionGzip:
		r, err = gzip.NewReader(r)
	case compressionZlib:
		r, err = zlib.NewReader(r)
	}
	if err != nil {
		return nil, err
	}
	ret := &tilemap.ChunkSnapshot{}
	if err := gob.NewDecoder(r).Decode(ret); err != nil {
		return nil, err
	}
	return ret, nil
}
