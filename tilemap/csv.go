package tilemap

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ImportCSV writes a grid of texture indexes with its first cell at origin.
// Rows advance along Y. Empty cells and negative values are left untouched.
// Every bad cell is reported, good cells are still written.
func (l *Layer) ImportCSV(r io.Reader, origin TilePos) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	written := 0
	var errs *multierror.Error
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, err
		}
		for col, cell := range rec {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("row %d col %d: %w", row, col, err))
				continue
			}
			if v < 0 {
				continue
			}
			if v > int64(^uint32(0)) {
				errs = multierror.Append(errs, fmt.Errorf("row %d col %d: %w: %d", row, col, ErrInvalidTextureIndex, v))
				continue
			}
			pos := TilePos{X: origin.X + col, Y: origin.Y + row}
			if err := l.SetTile(pos, Tile{TextureIndex: uint32(v)}); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("row %d col %d: %w", row, col, err))
				continue
			}
			written++
		}
	}
	return written, errs.ErrorOrNil()
}
