package texturecache

import (
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Handle identifies a texture asset for its whole lifetime.
type Handle uuid.UUID

func (h Handle) String() string {
	return uuid.UUID(h).String()
}

func ParseHandle(s string) (Handle, error) {
	u, err := uuid.Parse(s)
	return Handle(u), err
}

type Sampling int

const (
	SamplingLinear Sampling = iota
	SamplingNearest
)

func (s Sampling) String() string {
	switch s {
	case SamplingLinear:
		return "linear"
	case SamplingNearest:
		return "nearest"
	}
	return fmt.Sprintf("Sampling(%d)", int(s))
}

// Usage bits of a texture, mirroring what a GPU backend would be told.
type Usage uint8

const (
	UsageSampled Usage = 1 << iota
	UsageCopySrc
	UsageCopyDst
)

type Texture struct {
	Handle   Handle
	Name     string
	Width    int
	Height   int
	Sampling Sampling
	Usage    Usage
	Ready    bool
	ModTime  time.Time
	Image    image.Image
}

// ImageReady is fired by the asset loader once an image is decoded.
type ImageReady struct {
	Handle Handle
	Name   string
	Width  int
	Height int
	Image  image.Image
}

type TextureCache struct {
	logger        *log.Logger
	mu            sync.RWMutex
	textures      map[Handle]*Texture
	byName        map[string]Handle
	statTextures  atomic.Int64
	statReady     atomic.Int64
	statReadyEvts atomic.Int64
}

func NewTextureCache(logger *log.Logger) *TextureCache {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &TextureCache{
		logger:   logger,
		textures: map[Handle]*Texture{},
		byName:   map[string]Handle{},
	}
}

// Register returns the handle for name, creating a pending texture on first
// use.
func (c *TextureCache) Register(name string) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.byName[name]; ok {
		return h
	}
	h := Handle(uuid.New())
	c.insert(h, name)
	return h
}

func (c *TextureCache) insert(h Handle, name string) *Texture {
	t := &Texture{
		Handle:   h,
		Name:     name,
		Sampling: SamplingLinear,
	}
	c.textures[h] = t
	if name != "" {
		c.byName[name] = h
	}
	c.statTextures.Add(1)
	return t
}

func (c *TextureCache) Lookup(name string) (Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.byName[name]
	return h, ok
}

// OnImageReady switches the texture to nearest sampling so tile edges do not
// bleed into each other. Repeated events replace the image.
func (c *TextureCache) OnImageReady(ev ImageReady) {
	c.statReadyEvts.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.textures[ev.Handle]
	if !ok {
		c.logger.Printf("Image ready for unregistered texture %s (%q), registering", ev.Handle, ev.Name)
		t = c.insert(ev.Handle, ev.Name)
	}
	if !t.Ready {
		c.statReady.Add(1)
	}
	w, h := ev.Width, ev.Height
	if ev.Image != nil && (w == 0 || h == 0) {
		w, h = ev.Image.Bounds().Dx(), ev.Image.Bounds().Dy()
	}
	t.Width = w
	t.Height = h
	t.Image = ev.Image
	t.Sampling = SamplingNearest
	t.Usage = UsageSampled | UsageCopySrc | UsageCopyDst
	t.Ready = true
	t.ModTime = time.Now()
}

// Get returns a copy of the texture record.
func (c *TextureCache) Get(h Handle) (Texture, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.textures[h]
	if !ok {
		return Texture{}, false
	}
	return *t, true
}

func (c *TextureCache) GetStats() map[string]any {
	return map[string]any{
		"textures":           c.statTextures.Load(),
		"ready textures":     c.statReady.Load(),
		"image ready events": c.statReadyEvts.Load(),
	}
}
