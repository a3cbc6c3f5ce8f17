package evaluator

import (
	"sync/atomic"

	"github.com/golang/groupcache/singleflight"
	lru "github.com/hashicorp/golang-lru"

	"github.com/dshills/QuantaEval/internal/log"
	"github.com/dshills/QuantaEval/internal/sql/expression"
)

// DefaultCacheEntries is the evaluator cache size used when none is configured.
const DefaultCacheEntries = 256

// Cache shares compiled evaluators between callers binding the same typed
// expression against the same layout. Concurrent misses for one key bind
// once. Bind errors are never cached.
type Cache struct {
	binder *Binder
	lru    *lru.Cache
	group  singleflight.Group
	logger log.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports cache activity.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// NewCache creates a cache of up to size evaluators in front of binder.
func NewCache(binder *Binder, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheEntries
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{binder: binder, lru: l, logger: binder.logger}, nil
}

// Bind returns the cached evaluator for node and layout, binding on a miss.
func (c *Cache) Bind(node expression.Node, layout Layout) (Evaluator, error) {
	key := expression.Fingerprint(node) + "@" + layout.Fingerprint()

	if ev, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return ev.(Evaluator), nil
	}

	v, err := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have finished binding while we waited.
		if ev, ok := c.lru.Get(key); ok {
			return ev, nil
		}
		c.misses.Add(1)
		ev, err := c.binder.Bind(node, layout)
		if err != nil {
			return nil, err
		}
		if c.lru.Add(key, ev) {
			c.logger.Debug("evaluator cache eviction", log.Int("entries", c.lru.Len()))
		}
		return ev, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Evaluator), nil
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.lru.Len(),
	}
}

// Purge drops every cached evaluator.
func (c *Cache) Purge() {
	c.lru.Purge()
}
