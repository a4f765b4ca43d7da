package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/maxsupermanhd/TileChunk/mesh"
	texturecache "github.com/maxsupermanhd/TileChunk/textureCache"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

var ErrNotInitialized = errors.New("engine not initialized")

// LayerSpec describes one layer created at startup. Texture is the name the
// atlas is registered under in the texture cache.
type LayerSpec struct {
	ID       uint16                `json:"id"`
	Settings tilemap.LayerSettings `json:"settings"`
	Texture  string                `json:"texture"`
}

type Settings struct {
	MapID  uint16      `json:"map_id"`
	Layers []LayerSpec `json:"layers"`
}

// Batch is what the renderer draws for one layer.
type Batch struct {
	Layer    uint16
	Texture  texturecache.Handle
	Sampling texturecache.Sampling
	Ready    bool
	Meshes   []mesh.ChunkMesh
}

type Frame struct {
	Number  uint64
	Batches []Batch
}

// Changed counts chunks rebuilt in this frame.
func (f *Frame) Changed() int {
	n := 0
	for _, b := range f.Batches {
		n += len(b.Meshes)
	}
	return n
}

// priorityMesher jumps queued work, used for interactive edits.
type priorityMesher interface {
	RebuildDirtyPriority(l *tilemap.Layer) ([]mesh.ChunkMesh, error)
}

type builtMesh struct {
	mesh  mesh.ChunkMesh
	frame uint64
}

type Engine struct {
	logger   *log.Logger
	m        *tilemap.Map
	textures *texturecache.TextureCache
	frameMu  sync.Mutex
	frame    uint64
	mesher   mesh.Mesher
	bindMu   sync.RWMutex
	bindings map[uint16]texturecache.Handle
	meshes   map[uint16]map[tilemap.ChunkCoord]builtMesh
	onFrame  func(*Frame)
}

// Initialize creates the map with every layer of s. Nothing is meshed until
// the first AdvanceFrame.
func Initialize(s Settings, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	e := &Engine{
		logger:   logger,
		m:        tilemap.NewMap(s.MapID),
		textures: texturecache.NewTextureCache(logger),
		mesher:   mesh.Builder{},
		bindings: map[uint16]texturecache.Handle{},
		meshes:   map[uint16]map[tilemap.ChunkCoord]builtMesh{},
	}
	for _, ls := range s.Layers {
		if _, err := e.AddLayer(ls); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// AddLayer creates a layer and binds it to its texture.
func (e *Engine) AddLayer(ls LayerSpec) (*tilemap.Layer, error) {
	l, err := e.m.AddLayer(ls.ID, ls.Settings)
	if err != nil {
		return nil, err
	}
	if ls.Texture != "" {
		e.BindTexture(ls.ID, e.textures.Register(ls.Texture))
	}
	e.logger.Printf("Layer %d added (%dx%d chunks of %dx%d, texture %q)", ls.ID,
		ls.Settings.MapSize.Width, ls.Settings.MapSize.Height,
		ls.Settings.ChunkSize.Width, ls.Settings.ChunkSize.Height, ls.Texture)
	return l, nil
}

func (e *Engine) Map() *tilemap.Map {
	return e.m
}

func (e *Engine) Textures() *texturecache.TextureCache {
	return e.textures
}

func (e *Engine) Logger() *log.Logger {
	return e.logger
}

// SetMesher swaps the mesher used by following frames.
func (e *Engine) SetMesher(m mesh.Mesher) {
	e.frameMu.Lock()
	e.mesher = m
	e.frameMu.Unlock()
}

// OnFrame installs a callback run after every frame, still under the frame
// lock.
func (e *Engine) OnFrame(fn func(*Frame)) {
	e.frameMu.Lock()
	e.onFrame = fn
	e.frameMu.Unlock()
}

func (e *Engine) BindTexture(layer uint16, h texturecache.Handle) {
	e.bindMu.Lock()
	e.bindings[layer] = h
	e.bindMu.Unlock()
}

func (e *Engine) TextureOf(layer uint16) (texturecache.Handle, bool) {
	e.bindMu.RLock()
	defer e.bindMu.RUnlock()
	h, ok := e.bindings[layer]
	return h, ok
}

func (e *Engine) OnImageReady(ev texturecache.ImageReady) {
	e.textures.OnImageReady(ev)
}

// AdvanceFrame rebuilds dirty chunks of every layer in draw order. A layer
// that fails does not stop the rest; its batch still carries the meshes
// that succeeded.
func (e *Engine) AdvanceFrame() (*Frame, error) {
	if e == nil || e.m == nil {
		return nil, ErrNotInitialized
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.runFrame(e.m.Layers(), false)
}

// RebuildLayer is a frame limited to one layer, meshed ahead of queued work
// when the mesher supports it.
func (e *Engine) RebuildLayer(id uint16) (*Frame, error) {
	if e == nil || e.m == nil {
		return nil, ErrNotInitialized
	}
	l, err := e.m.Layer(id)
	if err != nil {
		return nil, err
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.runFrame([]*tilemap.Layer{l}, true)
}

func (e *Engine) runFrame(layers []*tilemap.Layer, priority bool) (*Frame, error) {
	e.frame++
	f := &Frame{Number: e.frame}
	var errs *multierror.Error
	for _, l := range layers {
		var meshes []mesh.ChunkMesh
		var err error
		if pm, ok := e.mesher.(priorityMesher); ok && priority {
			meshes, err = pm.RebuildDirtyPriority(l)
		} else {
			meshes, err = e.mesher.RebuildDirty(l)
		}
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		b := Batch{
			Layer:  l.ID(),
			Meshes: meshes,
		}
		if h, ok := e.TextureOf(l.ID()); ok {
			b.Texture = h
			if t, ok := e.textures.Get(h); ok {
				b.Sampling = t.Sampling
				b.Ready = t.Ready
			}
		}
		e.storeMeshes(l.ID(), f.Number, meshes)
		f.Batches = append(f.Batches, b)
	}
	if e.onFrame != nil {
		e.onFrame(f)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return f, fmt.Errorf("frame %d: %w", f.Number, err)
	}
	return f, nil
}

func (e *Engine) storeMeshes(layer uint16, frame uint64, meshes []mesh.ChunkMesh) {
	if len(meshes) == 0 {
		return
	}
	e.bindMu.Lock()
	defer e.bindMu.Unlock()
	lm, ok := e.meshes[layer]
	if !ok {
		lm = map[tilemap.ChunkCoord]builtMesh{}
		e.meshes[layer] = lm
	}
	for _, m := range meshes {
		lm[m.Coord] = builtMesh{mesh: m, frame: frame}
	}
}

// ChunkMesh returns the last mesh built for a chunk and the frame that
// built it.
func (e *Engine) ChunkMesh(layer uint16, cc tilemap.ChunkCoord) (mesh.ChunkMesh, uint64, bool) {
	e.bindMu.RLock()
	defer e.bindMu.RUnlock()
	m, ok := e.meshes[layer][cc]
	return m.mesh, m.frame, ok
}

func (e *Engine) FrameNumber() uint64 {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.frame
}

// RemoveLayer drops the layer with its meshes and texture binding.
func (e *Engine) RemoveLayer(id uint16) error {
	if err := e.m.RemoveLayer(id); err != nil {
		return err
	}
	e.bindMu.Lock()
	delete(e.bindings, id)
	delete(e.meshes, id)
	e.bindMu.Unlock()
	return nil
}

func (e *Engine) Close() {
	e.frameMu.Lock()
	if c, ok := e.mesher.(interface{ Close() }); ok {
		c.Close()
	}
	e.m.Close()
	e.frameMu.Unlock()
}
