// Package monitor wires the log stream, extractor, decoder, resolver and
// calculator into the pool creation and swap analysis pipelines.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/aman-zulfiqar/raydium-monitor/internal/decoder"
	"github.com/aman-zulfiqar/raydium-monitor/internal/extractor"
	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/rpc"
	"github.com/aman-zulfiqar/raydium-monitor/internal/storage"
	"github.com/aman-zulfiqar/raydium-monitor/internal/swap"

	"github.com/sirupsen/logrus"
)

// TransactionFetcher loads a confirmed transaction by signature
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*rpc.TransactionResult, error)
}

// TokenResolver resolves mints and token accounts
type TokenResolver interface {
	Resolve(ctx context.Context, mint string) (*models.TokenInfo, error)
	MintOf(ctx context.Context, tokenAccount string) (string, bool, error)
}

// Driver consumes program log notifications and reports new pools
type Driver struct {
	stream       storage.LogStream
	transactions TransactionFetcher
	resolver     TokenResolver
	programID    string
	marker       string
	onPool       storage.PoolHandler
	now          func() time.Time
	logger       *logrus.Logger
}

// DriverConfig holds the driver's collaborators
type DriverConfig struct {
	Stream       storage.LogStream
	Transactions TransactionFetcher
	Resolver     TokenResolver
	ProgramID    string
	Marker       string
	// OnPool receives every complete pool report
	OnPool storage.PoolHandler
	Logger *logrus.Logger
}

func NewDriver(cfg DriverConfig) (*Driver, error) {
	if cfg.Transactions == nil || cfg.Resolver == nil {
		return nil, fmt.Errorf("driver requires a transaction fetcher and a token resolver")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ProgramID == "" {
		cfg.ProgramID = constants.RaydiumAMMv4Program
	}
	if cfg.Marker == "" {
		cfg.Marker = constants.PoolCreationMarker
	}

	return &Driver{
		stream:       cfg.Stream,
		transactions: cfg.Transactions,
		resolver:     cfg.Resolver,
		programID:    cfg.ProgramID,
		marker:       cfg.Marker,
		onPool:       cfg.OnPool,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       cfg.Logger,
	}, nil
}

// Run subscribes and processes notifications one at a time until the stream
// fails or ctx is cancelled. Per-event failures are logged and skipped.
func (d *Driver) Run(ctx context.Context) error {
	if d.stream == nil {
		return fmt.Errorf("driver has no log stream")
	}

	if err := d.stream.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer d.stream.Close()

	d.logger.WithFields(logrus.Fields{
		"program": d.programID,
		"marker":  d.marker,
	}).Info("monitoring pool creation")

	for {
		n, err := d.stream.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("log stream: %w", err)
		}

		if n.Failed || !n.Mentions(d.marker) {
			continue
		}

		d.logger.WithFields(logrus.Fields{
			"signature": n.Signature,
			"slot":      n.Slot,
		}).Info("processing pool creation")

		report, err := d.ProcessPoolCreation(ctx, n.Signature)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			entry := d.logger.WithError(err).WithField("signature", n.Signature)
			var se *StageError
			if errors.As(err, &se) {
				entry = entry.WithField("stage", se.Stage)
			}
			entry.Warn("skipping pool creation event")
			continue
		}

		if report.Slot == 0 {
			report.Slot = n.Slot
		}

		d.logger.WithFields(logrus.Fields{
			"signature":   report.Signature,
			"pool":        report.Pool,
			"pair":        report.Pair(),
			"coin_amount": report.Coin.Amount,
			"pc_amount":   report.Pc.Amount,
			"url":         report.ExplorerURL,
		}).Info("new pool created")

		if d.onPool != nil {
			d.onPool(ctx, report)
		}
	}
}

// ProcessPoolCreation builds the report for one initialize2 transaction
func (d *Driver) ProcessPoolCreation(ctx context.Context, signature string) (*models.PoolReport, error) {
	tx, err := d.transactions.GetTransaction(ctx, signature)
	if err != nil {
		return nil, stageErr(StageFetch, signature, err)
	}

	ex, _, err := extractor.Locate(tx, d.programID)
	if err != nil {
		return nil, stageErr(StageLocate, signature, err)
	}

	if !ex.HasPayload() {
		return nil, stageErr(StageDecode, signature, fmt.Errorf("%w: %w", decoder.ErrMalformedPayload, ErrMissingPayload))
	}
	payload, err := decoder.DecodePoolInit(ex.Payload())
	if err != nil {
		return nil, stageErr(StageDecode, signature, err)
	}

	if len(ex.Accounts) < constants.PoolInitMinAccounts {
		return nil, stageErr(StageLocate, signature,
			fmt.Errorf("%w: initialize2 has %d accounts", ErrAccountLayout, len(ex.Accounts)))
	}

	coinMint := ex.Accounts[constants.PoolInitCoinMintIndex]
	pcMint := ex.Accounts[constants.PoolInitPcMintIndex]

	coin, err := d.resolver.Resolve(ctx, coinMint)
	if err != nil {
		return nil, stageErr(StageResolve, signature, fmt.Errorf("coin %s: %w", coinMint, err))
	}
	pc, err := d.resolver.Resolve(ctx, pcMint)
	if err != nil {
		return nil, stageErr(StageResolve, signature, fmt.Errorf("pc %s: %w", pcMint, err))
	}

	return &models.PoolReport{
		Signature:   signature,
		Slot:        tx.Slot,
		Pool:        ex.Accounts[constants.PoolInitAMMIndex],
		Coin:        leg(coin, payload.InitCoinAmount),
		Pc:          leg(pc, payload.InitPcAmount),
		Nonce:       payload.Nonce,
		OpenTime:    time.Unix(int64(payload.OpenTime), 0).UTC(),
		ExplorerURL: fmt.Sprintf(constants.SolscanTxURL, signature),
		DetectedAt:  d.now(),
	}, nil
}

func leg(info *models.TokenInfo, raw uint64) models.TokenLeg {
	return models.TokenLeg{
		Mint:      info.Mint,
		Name:      info.Name,
		Symbol:    info.Symbol,
		Decimals:  info.Decimals,
		Amount:    swap.Normalize(raw, info.Decimals),
		RawAmount: raw,
	}
}
