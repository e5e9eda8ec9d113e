// Package bootstrap wires the settings stack from configuration. It is shared
// by the HTTP server and the settingsctl command.
package bootstrap

import (
	"errors"
	"fmt"

	config "github.com/avatarctic/settings-store/configs"
	"github.com/avatarctic/settings-store/internal/application/services"
	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/avatarctic/settings-store/internal/infrastructure/boltstore"
	"github.com/avatarctic/settings-store/internal/infrastructure/db"
	"github.com/avatarctic/settings-store/internal/infrastructure/health"
	"github.com/avatarctic/settings-store/internal/infrastructure/localcache"
	"github.com/avatarctic/settings-store/internal/infrastructure/locale"
	"github.com/avatarctic/settings-store/internal/infrastructure/metrics"
	"github.com/avatarctic/settings-store/internal/infrastructure/redis"
	"github.com/avatarctic/settings-store/internal/infrastructure/repositories"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Options tune what Build sets up beyond the configuration.
type Options struct {
	// Registerer receives the settings counters; nil disables them.
	Registerer prometheus.Registerer
	// Migrate applies postgres migrations before the repositories are used.
	Migrate bool
}

// App is the wired settings stack.
type App struct {
	Settings       ports.SettingsServiceFactory
	Admin          ports.SettingsAdminService
	HealthCheckers []ports.HealthChecker

	closers []func() error
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

// Build opens the configured store and cache and assembles the services.
// On error everything opened so far is closed. logger must not be nil.
func Build(cfg *config.Config, logger *logrus.Logger, opts Options) (_ *App, err error) {
	app := &App{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	var (
		settingRepo  ports.SettingRepository
		categoryRepo ports.CategoryRepository
	)
	switch cfg.Settings.StoreDriver {
	case config.StoreDriverBolt:
		store, err := boltstore.Open(cfg.Settings.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store %s: %w", cfg.Settings.BoltPath, err)
		}
		app.closers = append(app.closers, store.Close)
		app.HealthCheckers = append(app.HealthCheckers, health.NewBoltHealthChecker(store))
		settingRepo = boltstore.NewSettingRepository(store, logger)
		categoryRepo = boltstore.NewCategoryRepository(store, logger)
		logger.WithFields(logrus.Fields{"path": cfg.Settings.BoltPath}).Info("Opened bolt settings store")
	default:
		database, err := db.NewDatabaseWithConfig(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.closers = append(app.closers, database.Close)
		app.HealthCheckers = append(app.HealthCheckers, health.NewDBHealthChecker(database))
		if opts.Migrate {
			if err := database.Migrate(cfg.Settings.MigrationsPath); err != nil {
				return nil, err
			}
		}
		settingRepo = repositories.NewSettingRepository(database, logger)
		categoryRepo = repositories.NewCategoryRepository(database, logger)
		logger.Info("Connected to database successfully")
	}

	var cache ports.Cache
	switch cfg.Settings.CacheDriver {
	case config.CacheDriverRedis:
		client, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		app.HealthCheckers = append(app.HealthCheckers, health.NewRedisHealthChecker(client))
		cache = redis.NewRedisCache(client, cfg.Settings.CachePrefix)
		logger.Info("Connected to Redis successfully")
	case config.CacheDriverMemory:
		local := localcache.New(uint64(max(cfg.Settings.LocalCapacity, 0)))
		app.closers = append(app.closers, local.Close)
		cache = local
		logger.Warn("Using in-process settings cache; invalidations do not reach other instances")
	default:
		logger.Warn("Settings cache disabled; every miss reads the store")
	}

	deps := services.SettingsDeps{
		Settings:   settingRepo,
		Categories: categoryRepo,
		Cache:      cache,
		CacheTTL:   cfg.Settings.CacheTTL,
		Locales:    locale.NewStaticProvider(cfg.Settings.Locales),
		Logger:     logger,
	}
	if opts.Registerer != nil {
		m, err := metrics.NewSettingsMetrics(opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register settings metrics: %w", err)
		}
		deps.Metrics = m
	}

	app.Settings = services.NewSettingsServiceFactory(deps)
	app.Admin = services.NewSettingsAdminService(settingRepo, categoryRepo, app.Settings, logger)
	return app, nil
}

// Close releases the store and cache in reverse opening order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
