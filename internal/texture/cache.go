package texture

import (
	"fmt"
	"sync"

	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/ibl"
	"ibl-prefilter/internal/imageio"
	"ibl-prefilter/internal/raster"
)

// Resolver resolves an environment entry to a decoded light source.
type Resolver interface {
	Resolve(e *Entry) (ibl.Source, error)
}

// LoadFunc decodes one image file.
type LoadFunc func(path string) (*raster.HDRImage, error)

// Cache is a concurrency-safe cache of decoded images. Several jobs over the
// same environment (one per rotation) share one decode. Cached images are
// read-only.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	load  LoadFunc
}

type cacheEntry struct {
	img *raster.HDRImage
	err error
}

// NewCache creates a cache that decodes with load, or imageio.Load when load
// is nil.
func NewCache(load LoadFunc) *Cache {
	if load == nil {
		load = imageio.Load
	}
	return &Cache{
		items: make(map[string]*cacheEntry),
		load:  load,
	}
}

// Image loads and caches one file. Failures are cached too.
func (c *Cache) Image(path string) (*raster.HDRImage, error) {
	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry.img, entry.err
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, err := c.load(path)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[path]; exists {
		return entry.img, entry.err
	}
	c.items[path] = &cacheEntry{img: img, err: err}
	return img, err
}

// Resolve decodes the panorama of e, or its six faces when it has none.
func (c *Cache) Resolve(e *Entry) (ibl.Source, error) {
	if e.Panorama != "" {
		img, err := c.Image(e.Panorama)
		if err != nil {
			return ibl.Source{}, err
		}
		return ibl.Source{Equirect: img}, nil
	}
	if !e.HasFaces() {
		return ibl.Source{}, fmt.Errorf("texture: %s: incomplete face set", e.Name)
	}
	var src ibl.Source
	for f := cubemap.Face(0); f < cubemap.FaceCount; f++ {
		img, err := c.Image(e.Faces[f])
		if err != nil {
			return ibl.Source{}, err
		}
		src.Faces[f] = img
	}
	return src, nil
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
