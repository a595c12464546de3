package loader

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// DefaultCacheSize is the number of libraries kept open by a Cache.
const DefaultCacheSize = 8

// Cache keeps recently used libraries open, keyed by absolute path.
// Evicted libraries are closed; symbols resolved from them start failing
// with ERR_404_LIBRARY_CLOSED.
type Cache struct {
	mu     sync.Mutex
	libs   *lru.Cache[string, *Library]
	opts   []Option
	logger *slog.Logger
}

// NewCache creates a cache holding at most size libraries. opts are passed
// to every Open.
func NewCache(size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	c := &Cache{
		opts:   opts,
		logger: slog.Default(),
	}
	probe := &Library{logger: slog.Default()}
	for _, opt := range opts {
		opt(probe)
	}
	c.logger = probe.logger

	libs, err := lru.NewWithEvict(size, func(path string, lib *Library) {
		c.logger.Debug("library evicted", slog.String("path", path))
		if err := lib.Close(); err != nil {
			c.logger.Warn("failed to close evicted library",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create library cache: %w", err)
	}
	c.libs = libs
	return c, nil
}

// Get returns the open library for path, opening it on a miss. A cached
// library that was closed elsewhere is reopened.
func (c *Cache) Get(path string) (*Library, error) {
	key, err := cacheKey(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if lib, ok := c.libs.Get(key); ok && !lib.Closed() {
		return lib, nil
	}

	lib, err := Open(key, c.opts...)
	if err != nil {
		return nil, err
	}
	c.libs.Add(key, lib)
	return lib, nil
}

// Remove closes and forgets the library for path.
func (c *Cache) Remove(path string) {
	key, err := cacheKey(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.libs.Remove(key)
}

// Len returns the number of cached libraries.
func (c *Cache) Len() int {
	return c.libs.Len()
}

// Purge closes every cached library.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.libs.Purge()
}

func cacheKey(path string) (string, error) {
	if path == "" {
		return "", bridgeerrors.LoadError(path, fmt.Errorf("empty library path"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", bridgeerrors.LoadError(path, err)
	}
	return abs, nil
}
