package utils

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// CacheItem wraps a cached value with its expiry and the generation it was computed in.
type CacheItem struct {
	Data       any
	ExpiresAt  time.Time
	Generation uint64
}

// ReadCache is a bounded LRU of read results. Entries belong to a generation;
// Invalidate starts a new one, after which older entries are never served.
// A nil *ReadCache is valid and caches nothing.
type ReadCache struct {
	lruCache   *lru.Cache[string, CacheItem]
	ttl        time.Duration
	generation atomic.Uint64
	group      singleflight.Group
	now        func() time.Time
}

// NewReadCache returns nil when size is not positive.
func NewReadCache(size int, ttl time.Duration) (*ReadCache, error) {
	if size <= 0 {
		return nil, nil
	}
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &ReadCache{lruCache: l, ttl: ttl, now: time.Now}, nil
}

// Generation returns the current cache generation.
func (c *ReadCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	return c.generation.Load()
}

// Invalidate retires every entry cached so far.
func (c *ReadCache) Invalidate() {
	if c == nil {
		return
	}
	c.generation.Add(1)
}

// Get returns the entry for key if it is fresh and from the current generation.
func (c *ReadCache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil, false
	}
	if val.Generation != c.generation.Load() || (c.ttl > 0 && c.now().After(val.ExpiresAt)) {
		c.lruCache.Remove(key)
		return nil, false
	}
	return val.Data, true
}

// Set stores data under key, tagged with generation gen.
func (c *ReadCache) Set(key string, data any, gen uint64) {
	if c == nil {
		return
	}
	c.lruCache.Add(key, CacheItem{
		Data:       data,
		ExpiresAt:  c.now().Add(c.ttl),
		Generation: gen,
	})
}

// Fetch returns the cached value for key or computes it with load. Concurrent
// misses on the same key and generation share one load. A result is only
// stored if no invalidation happened while it was being computed.
func (c *ReadCache) Fetch(key string, load func() (any, error)) (any, error) {
	if c == nil {
		return load()
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	gen := c.generation.Load()
	v, err, _ := c.group.Do(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		if c.generation.Load() == gen {
			c.Set(key, v, gen)
		}
		return v, nil
	})
	return v, err
}

// Len returns the number of stored entries, stale ones included.
func (c *ReadCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lruCache.Len()
}
