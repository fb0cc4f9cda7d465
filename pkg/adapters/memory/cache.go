package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/ports"
)

// Cache implements ports.WaveformCache in memory.
// Safe for concurrent use.
type Cache struct {
	data  map[string]*domain.Waveform
	order []string
	limit int
	mu    sync.RWMutex
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLimit bounds the number of cached waveforms; the oldest entry is
// evicted first. Zero means unbounded.
func WithLimit(n int) CacheOption {
	return func(c *Cache) { c.limit = n }
}

// NewCache creates a new in-memory cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{data: make(map[string]*domain.Waveform)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached waveform.
func (c *Cache) Get(ctx context.Context, key string) (*domain.Waveform, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	// Copy on read so callers can't mutate the cache through the pointer.
	return clone(w), nil
}

// Set stores a copy of w.
func (c *Cache) Set(ctx context.Context, key string, w *domain.Waveform) error {
	copied := clone(w)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.data[key]; !exists {
		c.order = append(c.order, key)
	}
	c.data[key] = copied
	for c.limit > 0 && len(c.order) > c.limit {
		delete(c.data, c.order[0])
		c.order = c.order[1:]
	}
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		return nil
	}
	delete(c.data, key)
	c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == key })
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*domain.Waveform)
	c.order = nil
	return nil
}

// Len returns the number of cached waveforms.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func clone(w *domain.Waveform) *domain.Waveform {
	out := *w
	out.Channels = slices.Clone(w.Channels)
	out.Times = slices.Clone(w.Times)
	out.Values = maps.Clone(w.Values)
	for k, v := range out.Values {
		out.Values[k] = slices.Clone(v)
	}
	return &out
}
