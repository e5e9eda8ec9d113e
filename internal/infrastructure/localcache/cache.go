// Package localcache provides an in-process ports.Cache for single-node
// deployments that run without Redis.
package localcache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache implements ports.Cache on top of ttlcache. Values are copied on the
// way in and out so callers cannot mutate cached bytes.
type Cache struct {
	c *ttlcache.Cache[string, []byte]
}

// New creates a cache holding at most capacity entries (0 means unbounded).
// Expired items are purged by a background goroutine until Close is called.
func New(capacity uint64) *Cache {
	opts := []ttlcache.Option[string, []byte]{
		ttlcache.WithTTL[string, []byte](ttlcache.NoTTL),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, []byte](capacity))
	}
	c := ttlcache.New(opts...)
	go c.Start()
	return &Cache{c: c}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := c.c.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return append([]byte{}, item.Value()...), true, nil
}

// Set stores value; a ttl of zero or less keeps it until deleted or evicted.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	c.c.Set(key, append([]byte{}, value...), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Delete(key)
	return nil
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	return c.c.Len()
}

// Close stops the expiry goroutine.
func (c *Cache) Close() error {
	c.c.Stop()
	return nil
}
