package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"

	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
	CacheDriverNone   = "none"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Settings SettingsConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string

	// CORS origins; empty allows any
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	ClusterAddrs []string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// SettingsConfig selects the durable store and shared cache backing the settings service.
type SettingsConfig struct {
	StoreDriver    string // postgres or bolt
	BoltPath       string
	MigrationsPath string
	CacheDriver    string // redis, memory or none
	CachePrefix    string
	CacheTTL       time.Duration // 0 keeps entries until invalidated
	LocalCapacity  int
	Locales        []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", nil),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "settings_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			ClusterAddrs: getListEnv("REDIS_CLUSTER_ADDRS", nil),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Settings: SettingsConfig{
			StoreDriver:    getEnv("SETTINGS_STORE", StoreDriverPostgres),
			BoltPath:       getEnv("SETTINGS_BOLT_PATH", "settings.bbolt"),
			MigrationsPath: getEnv("SETTINGS_MIGRATIONS_PATH", "./migrations"),
			CacheDriver:    getEnv("SETTINGS_CACHE", CacheDriverRedis),
			CachePrefix:    getEnv("SETTINGS_CACHE_PREFIX", "appcache"),
			CacheTTL:       getDurationEnv("SETTINGS_CACHE_TTL", 0),
			LocalCapacity:  getIntEnv("SETTINGS_LOCAL_CACHE_CAPACITY", 10000),
			Locales:        getListEnv("SETTINGS_LOCALES", []string{"en"}),
		},
	}

	// Build database DSN
	cfg.Database.DSN = getEnv("DATABASE_URL", fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	))

	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown store and cache drivers.
func (c *SettingsConfig) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverBolt:
	default:
		return fmt.Errorf("unknown SETTINGS_STORE %q (want %s or %s)", c.StoreDriver, StoreDriverPostgres, StoreDriverBolt)
	}
	switch c.CacheDriver {
	case CacheDriverRedis, CacheDriverMemory, CacheDriverNone:
	default:
		return fmt.Errorf("unknown SETTINGS_CACHE %q (want %s, %s or %s)", c.CacheDriver, CacheDriverRedis, CacheDriverMemory, CacheDriverNone)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated variable, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
