package redis

import (
	"context"
	"fmt"
	"time"

	config "github.com/avatarctic/settings-store/configs"
	"github.com/go-redis/redis/v8"
)

// NewRedisClient creates a Redis client for cfg. When cluster addresses are
// configured a cluster client is returned instead of a single-node one.
func NewRedisClient(cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if len(cfg.ClusterAddrs) > 0 {
		cluster, err := NewRedisClusterClient(cfg.ClusterAddrs, cfg.Password)
		if err != nil {
			return nil, err
		}
		return cluster, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisClusterClient creates a new Redis cluster client
func NewRedisClusterClient(addrs []string, password string) (*redis.ClusterClient, error) {
	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:    addrs,
		Password: password,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis cluster: %w", err)
	}

	return client, nil
}
