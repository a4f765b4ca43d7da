package tilemap

import "errors"

var (
	ErrOutOfBounds            = errors.New("tile position out of map bounds")
	ErrDuplicateLayer         = errors.New("layer already exists")
	ErrUnknownLayer           = errors.New("layer not found")
	ErrInvalidTextureIndex    = errors.New("texture index exceeds atlas capacity")
	ErrLayerSettingsImmutable = errors.New("layer settings can not change after tiles exist")
	ErrInvalidSettings        = errors.New("invalid layer settings")
	ErrChunkSizeMismatch      = errors.New("chunk snapshot does not match layer chunk size")
)
