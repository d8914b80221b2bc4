// internal/picklist/picklist.go
//
// Intake – picklist cache.
//
// Context
//   Every mounted form asks for the same two picklists (brand and preferred
//   state).  Cache sits in front of the CRM repository and keeps each
//   (object, field) result for a TTL, so a burst of page loads costs one
//   query.  Concurrent misses for the same key share a single backend call
//   through singleflight.  Errors are never cached.
//
//------------------------------------------------------------------------------

package picklist

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/intake/internal/cache"
	"github.com/yanizio/intake/internal/form"
	"github.com/yanizio/intake/internal/metrics"
)

// maxEntries bounds distinct (object, field) pairs kept in memory.
const maxEntries = 64

// Cache implements form.PicklistSource over another source.
type Cache struct {
	src form.PicklistSource
	lru *cache.LRU[string, []string]
	sfg singleflight.Group
}

// New wraps src.  ttl <= 0 keeps values until evicted by size.
func New(src form.PicklistSource, ttl time.Duration) *Cache {
	return &Cache{
		src: src,
		lru: cache.New[string, []string](maxEntries, ttl),
	}
}

// PicklistValues returns the cached values, loading them on a miss.  The
// returned slice is a copy.
func (c *Cache) PicklistValues(ctx context.Context, object, field string) ([]string, error) {
	key := object + "." + field
	if v, ok := c.lru.Get(key); ok {
		metrics.PicklistCacheHitsTotal.Inc()
		return append([]string(nil), v...), nil
	}

	v, err, _ := c.sfg.Do(key, func() (any, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		// The shared call must not die with the first caller's request.
		vals, err := c.src.PicklistValues(context.WithoutCancel(ctx), object, field)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, vals)
		return vals, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

// Invalidate drops one cached picklist.
func (c *Cache) Invalidate(object, field string) {
	c.lru.Remove(object + "." + field)
}
