package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/raydium-monitor/internal/app"
	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/aman-zulfiqar/raydium-monitor/internal/monitor"
	"github.com/aman-zulfiqar/raydium-monitor/internal/storage"
	"github.com/aman-zulfiqar/raydium-monitor/internal/stream"
	"github.com/sirupsen/logrus"
)

// main watches the AMM program for pool creations and fans every report out
// to the configured sinks until interrupted
func main() {
	core, err := app.Bootstrap()
	if err != nil {
		logrus.WithError(err).Fatal("startup failed")
	}
	logger := core.Logger
	cfg := core.Config

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if err := core.OpenCache(ctx); err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	if err := core.OpenStore(ctx); err != nil {
		logger.WithError(err).Fatal("failed to connect to clickhouse")
	}
	defer core.Close()

	resolver, err := core.NewResolver()
	if err != nil {
		logger.WithError(err).Fatal("failed to create token resolver")
	}

	logs, txs, err := newStream(core)
	if err != nil {
		logger.WithError(err).Fatal("failed to create log stream")
	}

	driver, err := monitor.NewDriver(monitor.DriverConfig{
		Stream:       logs,
		Transactions: txs,
		Resolver:     resolver,
		ProgramID:    cfg.ProgramID,
		Marker:       cfg.PoolMarker,
		OnPool:       core.Fanout().HandlePool,
		Logger:       logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create driver")
	}

	logger.WithFields(logrus.Fields{
		"provider": cfg.StreamProvider,
		"redis":    core.Cache != nil,
		"store":    core.Store != nil,
	}).Info("monitor starting")

	if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("monitor stopped")
	}
	logger.Info("monitor stopped")
}

// newStream picks the log stream. The poller already fetches every
// transaction for its logs, so it also serves the driver's fetches.
func newStream(core *app.Core) (storage.LogStream, monitor.TransactionFetcher, error) {
	cfg := core.Config
	if cfg.StreamProvider == "rpc" {
		poller := stream.NewRPCPoller(stream.RPCPollerConfig{
			RPCClient:    core.RPC,
			ProgramID:    cfg.ProgramID,
			PollInterval: cfg.PollInterval,
			FetchDelay:   constants.DelayBetweenTxFetch,
			Logger:       core.Logger,
		})
		return poller, poller, nil
	}
	ws, err := stream.NewLogStream(stream.LogStreamConfig{
		Endpoint:  cfg.WSUrl,
		ProgramID: cfg.ProgramID,
		Logger:    core.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return ws, core.RPC, nil
}
