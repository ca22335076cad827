// Package memcache is an in-process ports.CacheService for single instances
// and for running without Valkey.
package memcache

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrCacheMiss is returned by Get when the key does not exist or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache implements ports.CacheService on top of patrickmn/go-cache.
type Cache struct {
	cache *gocache.Cache
}

// New creates a cache whose expired entries are purged every cleanupInterval.
func New(cleanupInterval time.Duration) *Cache {
	return &Cache{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

// Set stores a copy of value. A non-positive ttl keeps the entry until
// it is deleted.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttlSeconds int) error {
	ttl := gocache.NoExpiration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	c.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

// Len reports the number of stored entries, expired ones included until
// the next cleanup.
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}
