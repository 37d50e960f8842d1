// Package app wires the dependencies shared by the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/aman-zulfiqar/raydium-monitor/internal/cache"
	"github.com/aman-zulfiqar/raydium-monitor/internal/config"
	"github.com/aman-zulfiqar/raydium-monitor/internal/flags"
	"github.com/aman-zulfiqar/raydium-monitor/internal/monitor"
	"github.com/aman-zulfiqar/raydium-monitor/internal/rpc"
	"github.com/aman-zulfiqar/raydium-monitor/internal/token"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Core holds the configuration and the backends a binary runs against.
// Cache, Switches and Store stay nil unless opened and enabled.
type Core struct {
	Config   *config.Config
	Logger   *logrus.Logger
	RPC      *rpc.Client
	Cache    *cache.RedisCache
	Switches *flags.Store
	Store    *cache.ClickHouseStore
}

// NewLogger builds the text logger used by every binary
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// ParseLevel falls back to info for unknown levels
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// LoadEnv loads the .env file at the project root, if any
func LoadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Debugf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// Bootstrap loads .env and the configuration, then builds the logger and the
// RPC client. It never touches Redis or ClickHouse.
func Bootstrap() (*Core, error) {
	logger := NewLogger("info")
	// .env must be loaded before anything reads os.Getenv
	LoadEnv(logger)

	cfg := config.Load()
	logger.SetLevel(ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Core{
		Config: cfg,
		Logger: logger,
		RPC: rpc.NewClient(rpc.ClientConfig{
			BaseURL:      cfg.RPCUrl,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			RateLimit:    cfg.RPCRateLimit,
			Logger:       logger,
		}),
	}, nil
}

// OpenCache connects to Redis when REDIS_ENABLED is set. The runtime
// switches share the connection.
func (c *Core) OpenCache(ctx context.Context) error {
	if !c.Config.RedisEnabled {
		c.Logger.Info("redis disabled")
		return nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     c.Config.RedisAddr,
		TokenTTL: c.Config.TokenCacheTTL,
		Logger:   c.Logger,
	})
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	switches, err := flags.NewStore(rc.Client(), c.Logger)
	if err != nil {
		_ = rc.Close()
		return fmt.Errorf("switches: %w", err)
	}
	c.Cache = rc
	c.Switches = switches
	c.Logger.WithField("addr", c.Config.RedisAddr).Info("connected to redis")
	return nil
}

// OpenStore connects to ClickHouse when CLICKHOUSE_ENABLED is set and creates
// the report tables
func (c *Core) OpenStore(ctx context.Context) error {
	if !c.Config.ClickHouseEnabled {
		return nil
	}
	store, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
		Addr:     c.Config.ClickHouseAddr,
		Database: c.Config.ClickHouseDatabase,
		Username: c.Config.ClickHouseUsername,
		Password: c.Config.ClickHousePassword,
		Logger:   c.Logger,
	})
	if err != nil {
		return fmt.Errorf("clickhouse: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("clickhouse schema: %w", err)
	}
	c.Store = store
	c.Logger.WithField("addr", c.Config.ClickHouseAddr).Info("connected to clickhouse")
	return nil
}

// NewResolver builds the token resolver. Redis backs it only when a token
// cache TTL is configured.
func (c *Core) NewResolver() (*token.Resolver, error) {
	cfg := token.ResolverConfig{Accounts: c.RPC, Logger: c.Logger}
	if c.Cache != nil && c.Config.TokenCacheTTL > 0 {
		cfg.Cache = c.Cache
	}
	return token.NewResolver(cfg)
}

// Fanout returns a fanout over the opened sinks
func (c *Core) Fanout() *monitor.Fanout {
	f := &monitor.Fanout{Logger: c.Logger}
	if c.Cache != nil {
		f.Cache = c.Cache
		f.Publisher = c.Cache
	}
	if c.Switches != nil {
		f.Switches = c.Switches
	}
	if c.Store != nil {
		f.Store = c.Store
	}
	return f
}

// Close releases the opened backends
func (c *Core) Close() {
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.WithError(err).Warn("redis close")
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.Logger.WithError(err).Warn("clickhouse close")
		}
	}
}
