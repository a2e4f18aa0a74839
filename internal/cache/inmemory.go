package cache

import (
	"context"
	"time"

	"github.com/flexprice/billing/internal/config"
	goCache "github.com/patrickmn/go-cache"
)

// DefaultExpiration is the default expiration time for cache entries
const DefaultExpiration = 30 * time.Minute

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 1 * time.Hour

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache.
// Entries live in this process only.
type InMemoryCache struct {
	cache *goCache.Cache
}

// NewInMemoryCache creates a cache whose default expiration follows the idempotency TTL
func NewInMemoryCache(cfg *config.Configuration) Cache {
	expiration := DefaultExpiration
	if cfg != nil && cfg.Idempotency.TTL > 0 {
		expiration = cfg.Idempotency.TTL
	}
	return &InMemoryCache{
		cache: goCache.New(expiration, DefaultCleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// Set adds a value to the cache with the specified expiration
func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	c.cache.Set(key, value, expirationOrDefault(expiration))
}

// Add stores value unless key is already present
func (c *InMemoryCache) Add(_ context.Context, key string, value interface{}, expiration time.Duration) bool {
	return c.cache.Add(key, value, expirationOrDefault(expiration)) == nil
}

// Delete removes a key from the cache
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

func expirationOrDefault(d time.Duration) time.Duration {
	if d == 0 {
		return goCache.DefaultExpiration
	}
	return d
}
