package tilemap

import "fmt"

// LayerSettings are fixed once a layer holds tiles.
type LayerSettings struct {
	MapSize     Size2 `json:"map_size" mapstructure:"map_size"`         // layer bound, in chunks
	ChunkSize   Size2 `json:"chunk_size" mapstructure:"chunk_size"`     // tiles per chunk
	TileSize    Vec2  `json:"tile_size" mapstructure:"tile_size"`       // render units per tile
	TextureSize Size2 `json:"texture_size" mapstructure:"texture_size"` // atlas pixels
	// Atlas pixels per tile. Zero means the same as TileSize.
	TilePixelSize Size2 `json:"tile_pixel_size,omitempty" mapstructure:"tile_pixel_size"`
}

func NewLayerSettings(mapSize, chunkSize Size2, tileSize Vec2, textureSize Size2) LayerSettings {
	return LayerSettings{
		MapSize:     mapSize,
		ChunkSize:   chunkSize,
		TileSize:    tileSize,
		TextureSize: textureSize,
	}
}

// TilePixels returns the atlas cell size in pixels.
func (s LayerSettings) TilePixels() Size2 {
	if s.TilePixelSize.valid() {
		return s.TilePixelSize
	}
	return Size2{Width: int(s.TileSize.Width), Height: int(s.TileSize.Height)}
}

// AtlasGrid returns how many whole tiles fit the atlas horizontally and
// vertically.
func (s LayerSettings) AtlasGrid() (cols, rows int) {
	px := s.TilePixels()
	if !px.valid() {
		return 0, 0
	}
	return s.TextureSize.Width / px.Width, s.TextureSize.Height / px.Height
}

func (s LayerSettings) AtlasCapacity() int {
	c, r := s.AtlasGrid()
	return c * r
}

// Bounds returns the layer extent in tiles.
func (s LayerSettings) Bounds() Size2 {
	return Size2{
		Width:  s.MapSize.Width * s.ChunkSize.Width,
		Height: s.MapSize.Height * s.ChunkSize.Height,
	}
}

func (s LayerSettings) Contains(pos TilePos) bool {
	b := s.Bounds()
	return pos.X >= 0 && pos.Y >= 0 && pos.X < b.Width && pos.Y < b.Height
}

func (s LayerSettings) Validate() error {
	switch {
	case !s.MapSize.valid():
		return fmt.Errorf("%w: map size %dx%d", ErrInvalidSettings, s.MapSize.Width, s.MapSize.Height)
	case !s.ChunkSize.valid():
		return fmt.Errorf("%w: chunk size %dx%d", ErrInvalidSettings, s.ChunkSize.Width, s.ChunkSize.Height)
	case !s.TileSize.valid():
		return fmt.Errorf("%w: tile size %vx%v", ErrInvalidSettings, s.TileSize.Width, s.TileSize.Height)
	case !s.TextureSize.valid():
		return fmt.Errorf("%w: texture size %dx%d", ErrInvalidSettings, s.TextureSize.Width, s.TextureSize.Height)
	case s.AtlasCapacity() == 0:
		px := s.TilePixels()
		return fmt.Errorf("%w: atlas %dx%d holds no %dx%d tile", ErrInvalidSettings,
			s.TextureSize.Width, s.TextureSize.Height, px.Width, px.Height)
	}
	return nil
}
