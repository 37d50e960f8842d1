package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aman-zulfiqar/raydium-monitor/internal/app"
	"github.com/aman-zulfiqar/raydium-monitor/internal/cache"
	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// main prints the reports the monitor publishes on Redis
func main() {
	core, err := app.Bootstrap()
	if err != nil {
		logrus.WithError(err).Fatal("startup failed")
	}
	logger := core.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if err := core.OpenCache(ctx); err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	if core.Cache == nil {
		logger.Fatal("subscriber requires REDIS_ENABLED")
	}
	defer core.Close()

	pubsub := cache.NewPubSubManager(core.Cache.Client(), logger)
	solPools := fmt.Sprintf(constants.PubSubChannelPoolByMint, constants.NativeMint)

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).WithField("channel", name).Error("subscription ended")
			}
		}()
	}

	run(constants.PubSubChannelPools, func() error {
		return pubsub.SubscribePools(ctx, constants.PubSubChannelPools, func(_ context.Context, pool *models.PoolReport) {
			logger.WithFields(logrus.Fields{
				"pair": pool.Pair(),
				"pool": pool.Pool,
				"coin": pool.Coin.Amount,
				"pc":   pool.Pc.Amount,
				"tx":   pool.ExplorerURL,
			}).Info("new pool")
		})
	})

	run(constants.PubSubChannelSwaps, func() error {
		return pubsub.SubscribeSwaps(ctx, constants.PubSubChannelSwaps, func(_ context.Context, swap *models.SwapReport) {
			logger.WithFields(logrus.Fields{
				"direction": swap.Direction,
				"in":        swap.AmountIn,
				"expected":  swap.ExpectedAmount,
				"actual":    swap.ActualAmount,
				"slippage":  swap.SlippagePct,
				"tx":        swap.ExplorerURL,
			}).Info("swap")
		})
	})

	run(solPools, func() error {
		return pubsub.SubscribePools(ctx, solPools, func(_ context.Context, pool *models.PoolReport) {
			logger.WithField("pair", pool.Pair()).Info("new SOL pool")
		})
	})

	pattern := fmt.Sprintf(constants.PubSubChannelPoolByMint, "*")
	run(pattern, func() error {
		return pubsub.PSubscribePools(ctx, pattern, func(_ context.Context, pool *models.PoolReport) {
			logger.WithField("pair", pool.Pair()).Debug("pattern match")
		})
	})

	logger.Info("subscriber running, press Ctrl+C to stop")
	<-sigCh
	logger.Info("shutting down subscriber")
	cancel()
	wg.Wait()
}
