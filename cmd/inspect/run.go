package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aman-zulfiqar/raydium-monitor/internal/app"
	"github.com/aman-zulfiqar/raydium-monitor/internal/decoder"
	"github.com/aman-zulfiqar/raydium-monitor/internal/monitor"
	"github.com/aman-zulfiqar/raydium-monitor/internal/token"
	"github.com/spf13/cobra"
)

var errSwapNotRecognized = errors.New("swap not recognized")

// session is what the network subcommands run against
type session struct {
	core     *app.Core
	resolver *token.Resolver
}

func newSession(cmd *cobra.Command) (*session, context.Context, context.CancelFunc, error) {
	core, err := app.Bootstrap()
	if err != nil {
		return nil, nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		core.Logger.SetLevel(app.ParseLevel(level))
	}
	// stdout carries the JSON report
	core.Logger.SetOutput(os.Stderr)

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = core.Config.HTTPTimeout
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	release := func() {
		core.Close()
		cancel()
		stop()
	}

	// the backends are optional here; an unreachable one only loses delivery
	if err := core.OpenCache(ctx); err != nil {
		core.Logger.WithError(err).Warn("redis unavailable")
	}
	if err := core.OpenStore(ctx); err != nil {
		core.Logger.WithError(err).Warn("clickhouse unavailable")
	}

	resolver, err := core.NewResolver()
	if err != nil {
		release()
		return nil, nil, nil, err
	}

	return &session{core: core, resolver: resolver}, ctx, release, nil
}

func runPool(cmd *cobra.Command, args []string) error {
	s, ctx, cancel, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	driver, err := monitor.NewDriver(monitor.DriverConfig{
		Transactions: s.core.RPC,
		Resolver:     s.resolver,
		ProgramID:    s.core.Config.ProgramID,
		Marker:       s.core.Config.PoolMarker,
		Logger:       s.core.Logger,
	})
	if err != nil {
		return err
	}

	report, err := driver.ProcessPoolCreation(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	return printJSON(cmd, report)
}

func runSwap(cmd *cobra.Command, args []string) error {
	s, ctx, cancel, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	analyzer, err := monitor.NewAnalyzer(monitor.AnalyzerConfig{
		Transactions: s.core.RPC,
		Resolver:     s.resolver,
		ProgramID:    s.core.Config.ProgramID,
		Logger:       s.core.Logger,
	})
	if err != nil {
		return err
	}

	report, err := analyzer.AnalyzeSwap(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	if report == nil {
		return errSwapNotRecognized
	}
	if s.core.Cache != nil || s.core.Store != nil {
		s.core.Fanout().HandleSwap(ctx, report)
	}
	return printJSON(cmd, report)
}

func runToken(cmd *cobra.Command, args []string) error {
	s, ctx, cancel, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	info, err := s.resolver.Resolve(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	return printJSON(cmd, info)
}

func runDecodePool(cmd *cobra.Command, args []string) error {
	payload, err := decoder.DecodePoolInit(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	return printJSON(cmd, payload)
}

func runDecodeSwap(cmd *cobra.Command, args []string) error {
	payload, err := decoder.DecodeSwap(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	return printJSON(cmd, payload)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
