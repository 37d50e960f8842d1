package monitor

import (
	"context"

	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/storage"

	"github.com/sirupsen/logrus"
)

// Switches reports whether a runtime switch is on
type Switches interface {
	Enabled(ctx context.Context, key string, fallback bool) bool
}

// Fanout hands complete reports to every configured sink. Sinks are optional
// and a failing sink does not stop the others.
type Fanout struct {
	Cache     storage.ReportCache
	Publisher storage.ReportPublisher
	Store     storage.ReportStore
	// Switches turns individual sinks off at runtime (optional)
	Switches Switches
	Logger   *logrus.Logger
}

// logger never writes to f, so a zero Fanout is safe for concurrent use
func (f *Fanout) logger() *logrus.Logger {
	if f.Logger == nil {
		return logrus.StandardLogger()
	}
	return f.Logger
}

func (f *Fanout) on(ctx context.Context, key string) bool {
	if f.Switches == nil {
		return true
	}
	return f.Switches.Enabled(ctx, key, true)
}

// HandlePool matches storage.PoolHandler
func (f *Fanout) HandlePool(ctx context.Context, pool *models.PoolReport) {
	log := f.logger().WithField("signature", pool.Signature)

	if f.Cache != nil && f.on(ctx, constants.SwitchSinkCache) {
		if err := f.Cache.AddRecentPool(ctx, pool); err != nil {
			log.WithError(err).Warn("redis cache error")
		}
	}

	if f.Publisher != nil && f.on(ctx, constants.SwitchSinkPubSub) {
		if err := f.Publisher.PublishPool(ctx, pool); err != nil {
			log.WithError(err).Warn("pub/sub error")
		}
	}

	if f.Store != nil && f.on(ctx, constants.SwitchSinkStore) {
		if err := f.Store.InsertPool(ctx, pool); err != nil {
			log.WithError(err).Error("clickhouse error")
		}
	}
}

// HandleSwap matches storage.SwapHandler
func (f *Fanout) HandleSwap(ctx context.Context, swap *models.SwapReport) {
	log := f.logger().WithField("signature", swap.Signature)

	if f.Cache != nil && f.on(ctx, constants.SwitchSinkCache) {
		if err := f.Cache.AddRecentSwap(ctx, swap); err != nil {
			log.WithError(err).Warn("redis cache error")
		}
	}

	if f.Publisher != nil && f.on(ctx, constants.SwitchSinkPubSub) {
		if err := f.Publisher.PublishSwap(ctx, swap); err != nil {
			log.WithError(err).Warn("pub/sub error")
		}
	}

	if f.Store != nil && f.on(ctx, constants.SwitchSinkStore) {
		if err := f.Store.InsertSwap(ctx, swap); err != nil {
			log.WithError(err).Error("clickhouse error")
		}
	}
}
