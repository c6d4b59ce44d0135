package rates

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
)

// DefaultCacheTTL is how long fetched rates are reused.
const DefaultCacheTTL = time.Hour

// Cache wraps a Provider and keeps successful results per base currency for
// a TTL. Concurrent misses for the same base share one upstream call; a
// caller that gives up returns its context error without failing the others.
// Failures are not cached.
type Cache struct {
	provider Provider
	ttl      time.Duration
	now      func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	table     catalog.RateTable
	fetchedAt time.Time
}

// NewCache creates a cache in front of p. A non-positive ttl uses
// DefaultCacheTTL.
func NewCache(p Provider, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		provider: p,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
	}
}

func (c *Cache) Name() string { return c.provider.Name() + "+cache" }

// Rates returns the cached table for base or fetches a fresh one.
// The returned table is a copy.
func (c *Cache) Rates(ctx context.Context, base string) (catalog.RateTable, error) {
	base = catalog.NormalizeCode(base)

	if table, ok := c.lookup(base); ok {
		return table, nil
	}

	// The shared fetch must not inherit one caller's cancellation; the
	// provider's own timeout still bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(base, func() (interface{}, error) {
		if table, ok := c.lookup(base); ok {
			return table, nil
		}
		table, err := c.provider.Rates(fetchCtx, base)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[base] = cacheEntry{table: table.Clone(), fetchedAt: c.now()}
		c.mu.Unlock()
		return table, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(catalog.RateTable).Clone(), nil
	}
}

func (c *Cache) lookup(base string) (catalog.RateTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[base]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.table.Clone(), true
}

// Invalidate drops every cached table.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
