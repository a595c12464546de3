package driver

import (
	"io"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
	"github.com/Aman-CERP/ffibridge/internal/loader"
)

// DefaultRuntimeSymbol is the symbol called through the runtime loader.
const DefaultRuntimeSymbol = "dyloading_add"

// RuntimeOrigin is the origin written by the shipped runtime library.
const RuntimeOrigin = "External dyloading"

// RuntimePath loads a shared library by path on first use and calls an
// exported add function through the loader. Every call resolves the symbol
// again through the cache, so an evicted or reloaded library is reopened
// rather than called after close.
type RuntimePath struct {
	library   string
	symbol    string
	cache     *loader.Cache
	ownsCache bool
}

// NewRuntimePath creates the runtime path for library. symbol defaults to
// DefaultRuntimeSymbol. When cache is nil the path creates and owns one.
func NewRuntimePath(library, symbol string, cache *loader.Cache) (*RuntimePath, error) {
	if symbol == "" {
		symbol = DefaultRuntimeSymbol
	}
	p := &RuntimePath{
		library: library,
		symbol:  symbol,
		cache:   cache,
	}
	if cache == nil {
		c, err := loader.NewCache(loader.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = c
		p.ownsCache = true
	}
	return p, nil
}

func (p *RuntimePath) Name() string        { return PathRuntime }
func (p *RuntimePath) Description() string { return "dynamic loading library" }
func (p *RuntimePath) Symbol() string      { return p.symbol }

// Library returns the configured library path.
func (p *RuntimePath) Library() string {
	return p.library
}

// Check loads the library and resolves the symbol, validating its
// signature tag.
func (p *RuntimePath) Check() error {
	_, err := p.resolve()
	return err
}

// Add resolves the symbol and calls it.
func (p *RuntimePath) Add(a, b int32, buf *buffer.Buffer, diag io.Writer) (int32, error) {
	sym, err := p.resolve()
	if err != nil {
		return 0, err
	}
	label := buf.String()
	sum, err := loader.CallAdd(sym, a, b, buf)
	greet(diag, RuntimeOrigin, label, buf, err)
	return sum, err
}

// Close releases the cache when the path owns it.
func (p *RuntimePath) Close() error {
	if p.ownsCache {
		p.cache.Purge()
	}
	return nil
}

func (p *RuntimePath) resolve() (*loader.Symbol[loader.AddFunc], error) {
	lib, err := p.cache.Get(p.library)
	if err != nil {
		return nil, err
	}
	return loader.Resolve[loader.AddFunc](lib, p.symbol)
}
