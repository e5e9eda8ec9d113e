package health

import (
	"context"

	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/avatarctic/settings-store/internal/infrastructure/boltstore"
	infraDB "github.com/avatarctic/settings-store/internal/infrastructure/db"
	"github.com/go-redis/redis/v8"
	bolt "go.etcd.io/bbolt"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.UniversalClient }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// boltHealthChecker opens a read transaction on the embedded store.
type boltHealthChecker struct{ db *boltstore.Database }

func (b *boltHealthChecker) Name() string { return "bolt" }
func (b *boltHealthChecker) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.DB.View(func(*bolt.Tx) error { return nil })
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.UniversalClient) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewBoltHealthChecker creates a health checker for the embedded store.
func NewBoltHealthChecker(db *boltstore.Database) ports.HealthChecker {
	return &boltHealthChecker{db: db}
}
