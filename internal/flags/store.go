// Package flags keeps runtime switches in Redis so operators can turn report
// sinks off without restarting the monitor.
package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	indexKey    = "switches:index"
	valuePrefix = "switches:"
)

var keyRe = regexp.MustCompile(`^[a-z0-9._-]{1,64}$`)

type Store struct {
	client redis.Cmdable
	logger *logrus.Logger
}

func NewStore(client redis.Cmdable, logger *logrus.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{client: client, logger: logger}, nil
}

func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Set stores the switch and indexes its key
func (s *Store) Set(ctx context.Context, key string, enabled bool) (*Switch, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	sw := &Switch{Key: key, Enabled: enabled, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(sw)
	if err != nil {
		return nil, fmt.Errorf("marshal switch: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, valuePrefix+key, b, 0)
	pipe.SAdd(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("set switch: %w", err)
	}
	return sw, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Switch, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, valuePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get switch: %w", err)
	}

	var sw Switch
	if err := json.Unmarshal(val, &sw); err != nil {
		return nil, fmt.Errorf("unmarshal switch: %w", err)
	}
	return &sw, nil
}

// List returns every indexed switch, skipping entries that vanished or do not parse
func (s *Store) List(ctx context.Context) ([]*Switch, error) {
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list switch index: %w", err)
	}

	out := make([]*Switch, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = valuePrefix + k
	}
	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget switches: %w", err)
	}

	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var sw Switch
		if err := json.Unmarshal([]byte(raw), &sw); err != nil {
			continue
		}
		out = append(out, &sw)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, valuePrefix+key)
	pipe.SRem(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete switch: %w", err)
	}
	return nil
}

// Enabled reports the stored value of key, or fallback when the switch is
// unset or Redis cannot be read
func (s *Store) Enabled(ctx context.Context, key string, fallback bool) bool {
	sw, err := s.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return fallback
	case err != nil:
		s.logger.WithError(err).WithField("key", key).Warn("switch lookup failed")
		return fallback
	}
	return sw.Enabled
}
