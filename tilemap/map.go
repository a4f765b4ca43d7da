package tilemap

import (
	"fmt"
	"sync"
)

// Map owns layers keyed by a small integer id. Layers are drawn in the
// order they were added.
type Map struct {
	mu     sync.RWMutex
	id     uint16
	order  []uint16
	layers map[uint16]*Layer
}

func NewMap(id uint16) *Map {
	return &Map{
		id:     id,
		layers: map[uint16]*Layer{},
	}
}

func (m *Map) ID() uint16 {
	return m.id
}

func (m *Map) AddLayer(id uint16, settings LayerSettings) (*Layer, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[id]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateLayer, id)
	}
	l := newLayer(id, settings)
	m.layers[id] = l
	m.order = append(m.order, id)
	return l, nil
}

func (m *Map) Layer(id uint16) (*Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLayer, id)
	}
	return l, nil
}

// Layers returns layers in draw order.
func (m *Map) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]*Layer, 0, len(m.order))
	for _, id := range m.order {
		ret = append(ret, m.layers[id])
	}
	return ret
}

// UpdateLayerSettings replaces settings of a layer that holds no chunks yet.
func (m *Map) UpdateLayerSettings(id uint16, settings LayerSettings) error {
	l, err := m.Layer(id)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	l.frameMu.Lock()
	defer l.frameMu.Unlock()
	if settings == l.settings {
		return nil
	}
	if l.ChunkCount() > 0 {
		return fmt.Errorf("%w: layer %d has %d chunks", ErrLayerSettingsImmutable, id, l.ChunkCount())
	}
	l.settings = settings
	return nil
}

func (m *Map) RemoveLayer(id uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLayer, id)
	}
	delete(m.layers, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close drops every layer together with its chunks.
func (m *Map) Close() {
	m.mu.Lock()
	m.layers = map[uint16]*Layer{}
	m.order = nil
	m.mu.Unlock()
}
