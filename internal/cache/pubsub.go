package cache

import (
	"context"
	"encoding/json"

	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PubSubManager consumes the live report channels
type PubSubManager struct {
	client redis.UniversalClient
	logger *logrus.Logger
}

func NewPubSubManager(client redis.UniversalClient, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// SubscribePools delivers pool reports published on channel until ctx is done
func (p *PubSubManager) SubscribePools(ctx context.Context, channel string, handler storage.PoolHandler) error {
	return p.consume(ctx, p.client.Subscribe(ctx, channel), channel, func(payload []byte) error {
		var pool models.PoolReport
		if err := json.Unmarshal(payload, &pool); err != nil {
			return err
		}
		handler(ctx, &pool)
		return nil
	})
}

// PSubscribePools is SubscribePools for a channel pattern such as pools:mint:*
func (p *PubSubManager) PSubscribePools(ctx context.Context, pattern string, handler storage.PoolHandler) error {
	return p.consume(ctx, p.client.PSubscribe(ctx, pattern), pattern, func(payload []byte) error {
		var pool models.PoolReport
		if err := json.Unmarshal(payload, &pool); err != nil {
			return err
		}
		handler(ctx, &pool)
		return nil
	})
}

// SubscribeSwaps delivers swap reports published on channel until ctx is done
func (p *PubSubManager) SubscribeSwaps(ctx context.Context, channel string, handler storage.SwapHandler) error {
	return p.consume(ctx, p.client.Subscribe(ctx, channel), channel, func(payload []byte) error {
		var swap models.SwapReport
		if err := json.Unmarshal(payload, &swap); err != nil {
			return err
		}
		handler(ctx, &swap)
		return nil
	})
}

func (p *PubSubManager) consume(ctx context.Context, pubsub *redis.PubSub, name string, decode func([]byte) error) error {
	defer pubsub.Close()

	// wait for the subscription confirmation so publish errors surface here
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	p.logger.WithField("channel", name).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := decode([]byte(msg.Payload)); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling message")
			}
		}
	}
}
