package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/raydium-monitor/internal/app"
	"github.com/aman-zulfiqar/raydium-monitor/internal/monitor"
	"github.com/aman-zulfiqar/raydium-monitor/internal/server"
	"github.com/sirupsen/logrus"
)

// main is the entry point for the API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	core, err := app.Bootstrap()
	if err != nil {
		logrus.WithError(err).Fatal("startup failed")
	}
	logger := core.Logger
	cfg := core.Config

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Redis serves the recent lists; the API still answers on-demand
	// analysis without it
	if err := core.OpenCache(ctx); err != nil {
		logger.WithError(err).Warn("redis unavailable, recent endpoints disabled")
	}
	if err := core.OpenStore(ctx); err != nil {
		logger.WithError(err).Warn("clickhouse unavailable")
	}
	defer core.Close()

	resolver, err := core.NewResolver()
	if err != nil {
		logger.WithError(err).Fatal("failed to create token resolver")
	}

	// The driver runs without a stream here and only serves ProcessPoolCreation
	pools, err := monitor.NewDriver(monitor.DriverConfig{
		Transactions: core.RPC,
		Resolver:     resolver,
		ProgramID:    cfg.ProgramID,
		Marker:       cfg.PoolMarker,
		Logger:       logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create pool processor")
	}

	swaps, err := monitor.NewAnalyzer(monitor.AnalyzerConfig{
		Transactions: core.RPC,
		Resolver:     resolver,
		ProgramID:    cfg.ProgramID,
		Logger:       logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create swap analyzer")
	}

	h := &server.Handlers{
		Pools:    pools,
		Swaps:    swaps,
		Tokens:   resolver,
		DevMode:  cfg.DevMode,
		Logger:   logger,
		Analysis: cfg.HTTPTimeout,
	}
	if core.Cache != nil {
		h.Cache = core.Cache
		h.Switches = core.Switches
	}
	if core.Store != nil {
		h.Store = core.Store
	}
	if core.Cache != nil || core.Store != nil {
		// on-demand swap reports feed the recent list, swaps:live and the store
		h.OnSwap = core.Fanout().HandleSwap
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("wait closed")
	}
}
