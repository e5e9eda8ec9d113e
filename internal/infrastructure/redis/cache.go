package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache implements ports.Cache using a Redis client. It is the shared
// layer that keeps settings coherent across server instances.
type RedisCache struct {
	r redis.Cmdable
	// optional key prefix to namespace entries
	prefix string
}

// NewRedisCache creates a new Redis-backed cache.
func NewRedisCache(r redis.Cmdable, prefix string) *RedisCache {
	return &RedisCache{r: r, prefix: prefix}
}

func (c *RedisCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get implements Cache.Get. A stored empty value is reported as a hit.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, c.namespaced(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.r.Set(ctx, c.namespaced(key), value, ttl).Err()
}

// Delete implements Cache.Delete.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.r.Del(ctx, c.namespaced(key)).Err()
}
