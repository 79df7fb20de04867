package scopeconfig

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value     string
	err       error
	fetchedAt time.Time
}

// CachingResolver wraps another resolver with a time-boxed call-site cache.
// The cache is an implementation detail, callers only see the Resolver
// contract.
type CachingResolver struct {
	next Resolver
	ttl  time.Duration
	now  func() time.Time

	mtx     sync.Mutex
	entries map[string]cacheEntry
}

// NewCachingResolver creates a caching resolver with the given ttl.
func NewCachingResolver(next Resolver, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]cacheEntry{},
	}
}

// Get implements Resolver.
func (c *CachingResolver) Get(ctx context.Context, key string, chain ScopeChain) (string, error) {
	ck := cacheKey(key, chain)

	c.mtx.Lock()
	entry, ok := c.entries[ck]
	c.mtx.Unlock()

	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.value, entry.err
	}

	v, err := c.next.Get(ctx, key, chain)

	c.mtx.Lock()
	c.entries[ck] = cacheEntry{value: v, err: err, fetchedAt: c.now()}
	c.mtx.Unlock()

	return v, err
}
