package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/aman-zulfiqar/raydium-monitor/internal/decoder"
	"github.com/aman-zulfiqar/raydium-monitor/internal/extractor"
	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/swap"

	"github.com/sirupsen/logrus"
)

// Analyzer reports the economics of a single swapBaseIn transaction
type Analyzer struct {
	transactions TransactionFetcher
	resolver     TokenResolver
	programID    string
	now          func() time.Time
	logger       *logrus.Logger
}

// AnalyzerConfig holds the analyzer's collaborators
type AnalyzerConfig struct {
	Transactions TransactionFetcher
	Resolver     TokenResolver
	ProgramID    string
	Logger       *logrus.Logger
}

func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	if cfg.Transactions == nil || cfg.Resolver == nil {
		return nil, fmt.Errorf("analyzer requires a transaction fetcher and a token resolver")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ProgramID == "" {
		cfg.ProgramID = constants.RaydiumAMMv4Program
	}

	return &Analyzer{
		transactions: cfg.Transactions,
		resolver:     cfg.Resolver,
		programID:    cfg.ProgramID,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       cfg.Logger,
	}, nil
}

// swapAccounts are the user-side accounts of a swapBaseIn
type swapAccounts struct {
	source      string
	destination string
	owner       string
}

// userAccounts picks the user accounts; the 17-account layout shifts each by one
func userAccounts(accounts []string) (swapAccounts, error) {
	offset := 0
	switch {
	case len(accounts) >= constants.SwapFullAccountCount:
	case len(accounts) == constants.SwapShortAccountCount:
		offset = -1
	default:
		return swapAccounts{}, fmt.Errorf("%w: swap has %d accounts", ErrAccountLayout, len(accounts))
	}

	return swapAccounts{
		source:      accounts[constants.SwapUserSourceIndex+offset],
		destination: accounts[constants.SwapUserDestinationIndex+offset],
		owner:       accounts[constants.SwapUserOwnerIndex+offset],
	}, nil
}

// AnalyzeSwap returns the swap report for signature, or nil, nil when the
// swap direction cannot be classified
func (a *Analyzer) AnalyzeSwap(ctx context.Context, signature string) (*models.SwapReport, error) {
	tx, err := a.transactions.GetTransaction(ctx, signature)
	if err != nil {
		return nil, stageErr(StageFetch, signature, err)
	}

	ex, inner, err := extractor.Locate(tx, a.programID)
	if err != nil {
		return nil, stageErr(StageLocate, signature, err)
	}

	if !ex.HasPayload() {
		return nil, stageErr(StageDecode, signature, fmt.Errorf("%w: %w", decoder.ErrMalformedPayload, ErrMissingPayload))
	}
	payload, err := decoder.DecodeSwap(ex.Payload())
	if err != nil {
		return nil, stageErr(StageDecode, signature, err)
	}

	accts, err := userAccounts(ex.Accounts)
	if err != nil {
		return nil, stageErr(StageLocate, signature, err)
	}

	source, err := a.resolveHolding(ctx, accts.source)
	if err != nil {
		return nil, stageErr(StageResolve, signature, fmt.Errorf("source %s: %w", accts.source, err))
	}
	destination, err := a.resolveHolding(ctx, accts.destination)
	if err != nil {
		return nil, stageErr(StageResolve, signature, fmt.Errorf("destination %s: %w", accts.destination, err))
	}

	report, err := swap.Calculate(swap.Input{
		Signature:   signature,
		Slot:        tx.Slot,
		Owner:       accts.owner,
		Swap:        payload,
		Inner:       inner,
		Source:      source,
		Destination: destination,
	})
	if err != nil {
		return nil, stageErr(StageCalculate, signature, err)
	}
	if report == nil {
		a.logger.WithField("signature", signature).Debug("swap direction not recognized")
		return nil, nil
	}

	report.DetectedAt = a.now()

	a.logger.WithFields(logrus.Fields{
		"signature": signature,
		"direction": report.Direction,
		"owner":     report.Owner,
		"amount_in": fmt.Sprintf("%.4f %s", report.AmountIn, report.SourceSymbol),
		"expected":  fmt.Sprintf("%.4f %s", report.ExpectedAmount, report.DestinationSymbol),
		"actual":    fmt.Sprintf("%.4f %s", report.ActualAmount, report.DestinationSymbol),
		"slippage":  fmt.Sprintf("%.2f%%", report.SlippagePct),
	}).Info("analyzed swap")

	return report, nil
}

// resolveHolding maps a token account to its mint's info; nil means the
// account no longer holds tokens
func (a *Analyzer) resolveHolding(ctx context.Context, tokenAccount string) (*models.TokenInfo, error) {
	mint, ok, err := a.resolver.MintOf(ctx, tokenAccount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return a.resolver.Resolve(ctx, mint)
}
