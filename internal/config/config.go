package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBMaxRetries   int
	DBRetryBase    time.Duration
	PersistTimeout time.Duration

	CacheSize int
	CacheTTL  time.Duration

	FullTreeDefaultDepth int
	FullTreeDepthLimit   int

	RateLimitRPS   float64
	RateLimitBurst int

	EnforceOwnership bool

	CountSyncInterval time.Duration
	CountSyncBatch    int

	ShutdownTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MAX_RETRIES", 3)
	v.SetDefault("DB_RETRY_BASE", "50ms")
	v.SetDefault("PERSIST_TIMEOUT", "5s")
	v.SetDefault("CACHE_SIZE", 500)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("FULLTREE_DEFAULT_DEPTH", 5)
	v.SetDefault("FULLTREE_DEPTH_LIMIT", 64)
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("ENFORCE_OWNERSHIP", false)
	v.SetDefault("COUNT_SYNC_INTERVAL", "500ms")
	v.SetDefault("COUNT_SYNC_BATCH", 50)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

// Load reads .env, if present, and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, finding env vars from system")
	}
	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from v with defaults applied.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		GinMode:              v.GetString("GIN_MODE"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		DBMaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
		DBMaxRetries:         v.GetInt("DB_MAX_RETRIES"),
		DBRetryBase:          v.GetDuration("DB_RETRY_BASE"),
		PersistTimeout:       v.GetDuration("PERSIST_TIMEOUT"),
		CacheSize:            v.GetInt("CACHE_SIZE"),
		CacheTTL:             v.GetDuration("CACHE_TTL"),
		FullTreeDefaultDepth: v.GetInt("FULLTREE_DEFAULT_DEPTH"),
		FullTreeDepthLimit:   v.GetInt("FULLTREE_DEPTH_LIMIT"),
		RateLimitRPS:         v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:       v.GetInt("RATE_LIMIT_BURST"),
		EnforceOwnership:     v.GetBool("ENFORCE_OWNERSHIP"),
		CountSyncInterval:    v.GetDuration("COUNT_SYNC_INTERVAL"),
		CountSyncBatch:       v.GetInt("COUNT_SYNC_BATCH"),
		ShutdownTimeout:      v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("PORT must not be empty")
	case c.FullTreeDefaultDepth < 0:
		return errors.Errorf("FULLTREE_DEFAULT_DEPTH must not be negative, got %d", c.FullTreeDefaultDepth)
	case c.FullTreeDepthLimit < 1:
		return errors.Errorf("FULLTREE_DEPTH_LIMIT must be at least 1, got %d", c.FullTreeDepthLimit)
	case c.FullTreeDepthLimit < c.FullTreeDefaultDepth:
		return errors.Errorf("FULLTREE_DEPTH_LIMIT %d is below FULLTREE_DEFAULT_DEPTH %d", c.FullTreeDepthLimit, c.FullTreeDefaultDepth)
	case c.PersistTimeout <= 0:
		return errors.Errorf("PERSIST_TIMEOUT must be positive, got %s", c.PersistTimeout)
	case c.DBMaxRetries < 1:
		return errors.Errorf("DB_MAX_RETRIES must be at least 1, got %d", c.DBMaxRetries)
	case c.CacheSize < 0:
		return errors.Errorf("CACHE_SIZE must not be negative, got %d", c.CacheSize)
	case c.RateLimitRPS < 0:
		return errors.Errorf("RATE_LIMIT_RPS must not be negative, got %v", c.RateLimitRPS)
	case c.CountSyncInterval <= 0:
		return errors.Errorf("COUNT_SYNC_INTERVAL must be positive, got %s", c.CountSyncInterval)
	case c.CountSyncBatch < 1:
		return errors.Errorf("COUNT_SYNC_BATCH must be at least 1, got %d", c.CountSyncBatch)
	}
	return nil
}

// Memory reports whether the service runs without a database.
func (c *Config) Memory() bool {
	return c.DatabaseURL == ""
}
