package tilemap

// Flags hold per-tile orientation bits.
type Flags uint8

const (
	FlipX Flags = 1 << iota // mirror horizontally
	FlipY                   // mirror vertically
	FlipD                   // swap the tile diagonal (transpose)
)

func (f Flags) Has(o Flags) bool {
	return f&o == o
}

// Color is a tint multiplied with the atlas texel. The zero value means
// no tint.
type Color struct {
	R, G, B, A float32
}

var White = Color{1, 1, 1, 1}

func (c Color) IsZero() bool {
	return c == Color{}
}

// Tint returns the color to apply, substituting white for the zero value.
func (c Color) Tint() Color {
	if c.IsZero() {
		return White
	}
	return c
}

// Tile is the content of one slot. The zero value is atlas index 0, no
// flags, no tint.
type Tile struct {
	TextureIndex uint32 `json:"index"`
	Flags        Flags  `json:"flags"`
	Color        Color  `json:"color"`
}
