package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/gagliardetto/solana-go"
)

type Config struct {
	// RPC settings
	RPCUrl       string
	WSUrl        string
	RPCRateLimit float64
	PollInterval time.Duration

	// Program being monitored
	ProgramID  string
	PoolMarker string

	// Redis settings
	RedisEnabled  bool
	RedisAddr     string
	TokenCacheTTL time.Duration

	// ClickHouse settings
	ClickHouseEnabled  bool
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Stream provider: "ws" or "rpc"
	StreamProvider string

	// API server
	APIAddr string
	APIKey  string
	DevMode bool

	LogLevel string
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl:       getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		WSUrl:        getEnv("SOLANA_WS_URL", "wss://api.mainnet-beta.solana.com"),
		RPCRateLimit: getFloatEnv("RPC_RATE_LIMIT", 5),
		PollInterval: getDurationEnv("POLL_INTERVAL", 10*time.Second),

		// Program
		ProgramID:  getEnv("RAYDIUM_PROGRAM_ID", constants.RaydiumAMMv4Program),
		PoolMarker: getEnv("POOL_MARKER", constants.PoolCreationMarker),

		// Redis
		RedisEnabled:  getBoolEnv("REDIS_ENABLED", true),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		TokenCacheTTL: getDurationEnv("TOKEN_CACHE_TTL", 0),

		// ClickHouse
		ClickHouseEnabled:  getBoolEnv("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", time.Second),

		// Stream
		StreamProvider: strings.ToLower(getEnv("STREAM_PROVIDER", "ws")),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if err := validateURL(c.RPCUrl, "http", "https"); err != nil {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL: %w", err))
	}
	if c.StreamProvider == "ws" {
		if err := validateURL(c.WSUrl, "ws", "wss"); err != nil {
			errs = append(errs, fmt.Errorf("SOLANA_WS_URL: %w", err))
		}
	}
	if c.StreamProvider != "ws" && c.StreamProvider != "rpc" {
		errs = append(errs, fmt.Errorf("STREAM_PROVIDER: unknown provider %q", c.StreamProvider))
	}
	if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
		errs = append(errs, fmt.Errorf("RAYDIUM_PROGRAM_ID: %w", err))
	}
	if strings.TrimSpace(c.PoolMarker) == "" {
		errs = append(errs, errors.New("POOL_MARKER: must not be empty"))
	}
	if c.RPCRateLimit < 0 {
		errs = append(errs, errors.New("RPC_RATE_LIMIT: must not be negative"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("MAX_RETRIES: must not be negative"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL: must be positive"))
	}
	if c.TokenCacheTTL < 0 {
		errs = append(errs, errors.New("TOKEN_CACHE_TTL: must not be negative"))
	}
	if c.TokenCacheTTL > 0 && !c.RedisEnabled {
		errs = append(errs, errors.New("TOKEN_CACHE_TTL: requires REDIS_ENABLED"))
	}

	return errors.Join(errs...)
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("expected %s url, got %q", strings.Join(schemes, "/"), raw)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
