package profile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/perihelion-io/backstop/policy"
)

type cacheEntry struct {
	opts      policy.Options
	expiresAt time.Time
	found     bool // false marks a negative entry
}

// optionsCache is a thread-safe TTL cache of operation options.
type optionsCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	nowFn   func() time.Time
}

func newOptionsCache() *optionsCache {
	return &optionsCache{entries: make(map[string]cacheEntry)}
}

func (c *optionsCache) get(operation string) (opts policy.Options, foundInCache, isNegative bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[operation]
	if !ok || c.now().After(entry.expiresAt) {
		return policy.Options{}, false, false
	}
	return entry.opts, true, !entry.found
}

func (c *optionsCache) set(operation string, opts policy.Options, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[operation] = cacheEntry{opts: opts, expiresAt: c.now().Add(ttl), found: true}
}

func (c *optionsCache) setMissing(operation string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[operation] = cacheEntry{expiresAt: c.now().Add(ttl), found: false}
}

func (c *optionsCache) invalidate(operation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, operation)
}

func (c *optionsCache) now() time.Time {
	if c.nowFn != nil {
		return c.nowFn()
	}
	return time.Now()
}

// CachedProvider wraps a Provider with a TTL cache, including negative
// caching of missing profiles, so slow sources are not consulted on every
// client construction.
type CachedProvider struct {
	source      Provider
	cache       *optionsCache
	ttl         time.Duration
	negativeTTL time.Duration
}

// CachedProviderOption configures a CachedProvider.
type CachedProviderOption func(*CachedProvider)

// WithTTL sets the TTL for successful lookups. Default is 1 minute.
func WithTTL(ttl time.Duration) CachedProviderOption {
	return func(p *CachedProvider) { p.ttl = ttl }
}

// WithNegativeTTL sets the TTL for missing lookups. Default is 10 seconds.
func WithNegativeTTL(ttl time.Duration) CachedProviderOption {
	return func(p *CachedProvider) { p.negativeTTL = ttl }
}

func NewCachedProvider(source Provider, opts ...CachedProviderOption) *CachedProvider {
	p := &CachedProvider{
		source:      source,
		cache:       newOptionsCache(),
		ttl:         time.Minute,
		negativeTTL: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *CachedProvider) OperationOptions(ctx context.Context, operation string) (policy.Options, error) {
	opts, found, isNegative := p.cache.get(operation)
	if found {
		if isNegative {
			return policy.Options{}, ErrProfileNotFound
		}
		return opts, nil
	}

	opts, err := p.source.OperationOptions(ctx, operation)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			p.cache.setMissing(operation, p.negativeTTL)
		}
		return policy.Options{}, err
	}

	p.cache.set(operation, opts, p.ttl)
	return opts, nil
}

// Invalidate drops the cached entry for operation.
func (p *CachedProvider) Invalidate(operation string) {
	p.cache.invalidate(operation)
}
