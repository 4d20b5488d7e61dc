package raster

import "sync"

// OpenFunc opens a source by path. The CLI supplies one that switches on
// file extension.
type OpenFunc func(path string) (Source, error)

// SourceCache provides thread-safe caching of opened sources to avoid
// redundant decoding when the same file contributes to several merges.
//
// Cached sources remain in memory until explicitly removed via Evict() or
// Clear(). Long-running processes merging many files should clear between
// batches to bound memory growth.
type SourceCache struct {
	mu      sync.RWMutex
	open    OpenFunc
	sources map[string]Source
}

// NewSourceCache creates an empty cache that opens misses with open.
func NewSourceCache(open OpenFunc) *SourceCache {
	return &SourceCache{
		open:    open,
		sources: make(map[string]Source),
	}
}

// Load retrieves a source from the cache or opens it on a miss. The source
// is cached using the exact path string provided; relative and absolute
// paths to the same file produce separate entries.
func (c *SourceCache) Load(path string) (Source, error) {
	c.mu.RLock()
	if src, ok := c.sources[path]; ok {
		c.mu.RUnlock()
		return src, nil
	}
	c.mu.RUnlock()

	src, err := c.open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sources[path] = src
	c.mu.Unlock()

	return src, nil
}

// Evict removes one source from the cache by its path.
func (c *SourceCache) Evict(path string) {
	c.mu.Lock()
	delete(c.sources, path)
	c.mu.Unlock()
}

// Clear removes all sources from the cache.
func (c *SourceCache) Clear() {
	c.mu.Lock()
	c.sources = make(map[string]Source)
	c.mu.Unlock()
}
