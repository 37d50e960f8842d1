package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache keeps the recent report lists, the token metadata cache and
// publishes reports to live channels
type RedisCache struct {
	client   redis.UniversalClient
	tokenTTL time.Duration
	logger   *logrus.Logger
}

// RedisConfig holds configuration for the Redis cache
type RedisConfig struct {
	Addr string
	DB   int
	// TokenTTL is how long resolved token metadata is cached; zero disables it
	TokenTTL time.Duration
	Logger   *logrus.Logger
}

// NewRedisCache connects to Redis and pings it
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisCacheFromClient(client, cfg.TokenTTL, cfg.Logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client redis.UniversalClient, tokenTTL time.Duration, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, tokenTTL: tokenTTL, logger: logger}
}

// Client exposes the underlying connection for pub/sub consumers
func (r *RedisCache) Client() redis.UniversalClient {
	return r.client
}

func (r *RedisCache) pushRecent(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s entry: %w", key, err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, constants.MaxRecentReports-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push %s: %w", key, err)
	}
	return nil
}

// AddRecentPool prepends a pool report to the bounded recent list
func (r *RedisCache) AddRecentPool(ctx context.Context, pool *models.PoolReport) error {
	return r.pushRecent(ctx, constants.RedisKeyRecentPools, pool)
}

// AddRecentSwap prepends a swap report to the bounded recent list
func (r *RedisCache) AddRecentSwap(ctx context.Context, swap *models.SwapReport) error {
	return r.pushRecent(ctx, constants.RedisKeyRecentSwaps, swap)
}

func clampLimit(limit int64) int64 {
	if limit <= 0 || limit > constants.MaxRecentReports {
		return constants.MaxRecentReports
	}
	return limit
}

// GetRecentPools returns up to limit pool reports, newest first
func (r *RedisCache) GetRecentPools(ctx context.Context, limit int64) ([]*models.PoolReport, error) {
	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentPools, 0, clampLimit(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent pools: %w", err)
	}

	pools := make([]*models.PoolReport, 0, len(vals))
	for _, v := range vals {
		var p models.PoolReport
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			r.logger.WithError(err).Warn("skipping malformed cached pool")
			continue
		}
		pools = append(pools, &p)
	}
	return pools, nil
}

// GetRecentSwaps returns up to limit swap reports, newest first
func (r *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapReport, error) {
	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentSwaps, 0, clampLimit(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	swaps := make([]*models.SwapReport, 0, len(vals))
	for _, v := range vals {
		var s models.SwapReport
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			r.logger.WithError(err).Warn("skipping malformed cached swap")
			continue
		}
		swaps = append(swaps, &s)
	}
	return swaps, nil
}

// GetTokenInfo returns cached token metadata, or nil on a miss
func (r *RedisCache) GetTokenInfo(ctx context.Context, mint string) (*models.TokenInfo, error) {
	if r.tokenTTL <= 0 {
		return nil, nil
	}

	val, err := r.client.Get(ctx, constants.RedisKeyTokenPrefix+mint).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token %s: %w", mint, err)
	}

	var info models.TokenInfo
	if err := json.Unmarshal([]byte(val), &info); err != nil {
		return nil, fmt.Errorf("unmarshal token %s: %w", mint, err)
	}
	return &info, nil
}

// SetTokenInfo caches token metadata for the configured TTL
func (r *RedisCache) SetTokenInfo(ctx context.Context, info *models.TokenInfo) error {
	if r.tokenTTL <= 0 || info == nil {
		return nil
	}

	b, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal token %s: %w", info.Mint, err)
	}
	if err := r.client.Set(ctx, constants.RedisKeyTokenPrefix+info.Mint, b, r.tokenTTL).Err(); err != nil {
		return fmt.Errorf("set token %s: %w", info.Mint, err)
	}
	return nil
}

// PublishPool sends a pool report to the live channel and to one channel per mint
func (r *RedisCache) PublishPool(ctx context.Context, pool *models.PoolReport) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return err
	}

	channels := []string{
		constants.PubSubChannelPools,
		fmt.Sprintf(constants.PubSubChannelPoolByMint, pool.Coin.Mint),
		fmt.Sprintf(constants.PubSubChannelPoolByMint, pool.Pc.Mint),
	}

	pipe := r.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// PublishSwap sends a swap report to the live swaps channel
func (r *RedisCache) PublishSwap(ctx context.Context, swap *models.SwapReport) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, constants.PubSubChannelSwaps, data).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
