package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/rpc"

	"github.com/sirupsen/logrus"
)

// SignatureSource is the subset of the RPC client the poller needs
type SignatureSource interface {
	GetSignaturesForAddress(ctx context.Context, address string, opts rpc.SignaturesOpts) ([]rpc.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*rpc.TransactionResult, error)
}

// RPCPoller implements storage.LogStream by polling getSignaturesForAddress
// and reading each new transaction's log messages
type RPCPoller struct {
	client       SignatureSource
	program      string
	pollInterval time.Duration
	fetchDelay   time.Duration
	batchSize    int
	logger       *logrus.Logger

	mu            sync.RWMutex
	lastSignature string
	running       bool
	cancel        context.CancelFunc
	done          chan struct{}

	out chan *models.LogNotification

	// transactions fetched while polling, handed out once by GetTransaction
	txMu    sync.Mutex
	fetched map[string]*rpc.TransactionResult
	order   []string
}

// RPCPollerConfig holds configuration for the RPC poller
type RPCPollerConfig struct {
	RPCClient    SignatureSource
	ProgramID    string
	PollInterval time.Duration
	// FetchDelay spaces getTransaction calls within one batch
	FetchDelay time.Duration
	BatchSize  int
	Logger     *logrus.Logger
}

// NewRPCPoller creates a new RPC poller
func NewRPCPoller(cfg RPCPollerConfig) *RPCPoller {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ProgramID == "" {
		cfg.ProgramID = constants.RaydiumAMMv4Program
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.FetchDelay < 0 {
		cfg.FetchDelay = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = constants.SignatureBatchSize
	}

	return &RPCPoller{
		client:       cfg.RPCClient,
		program:      cfg.ProgramID,
		pollInterval: cfg.PollInterval,
		fetchDelay:   cfg.FetchDelay,
		batchSize:    cfg.BatchSize,
		logger:       cfg.Logger,
		out:          make(chan *models.LogNotification, constants.StreamBufferSize),
		fetched:      make(map[string]*rpc.TransactionResult),
	}
}

// GetTransaction returns a transaction the poller already fetched for its logs,
// at most once per signature, and falls back to the RPC client otherwise
func (r *RPCPoller) GetTransaction(ctx context.Context, signature string) (*rpc.TransactionResult, error) {
	r.txMu.Lock()
	tx, ok := r.fetched[signature]
	delete(r.fetched, signature)
	r.txMu.Unlock()

	if ok {
		return tx, nil
	}
	return r.client.GetTransaction(ctx, signature)
}

// remember keeps tx for GetTransaction. The order list is bounded by the
// stream buffer plus one batch; consumed signatures age out of it.
func (r *RPCPoller) remember(signature string, tx *rpc.TransactionResult) {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.fetched[signature] = tx
	r.order = append(r.order, signature)

	limit := constants.StreamBufferSize + r.batchSize
	for len(r.order) > limit {
		delete(r.fetched, r.order[0])
		r.order = r.order[1:]
	}
}

// Subscribe starts the polling loop
func (r *RPCPoller) Subscribe(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadySubscribed
	}
	if r.client == nil {
		return fmt.Errorf("rpc poller: client is nil")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})

	r.logger.WithFields(logrus.Fields{
		"interval": r.pollInterval,
		"program":  r.program,
	}).Info("starting RPC polling")

	go r.loop(loopCtx, r.done)
	return nil
}

// Recv blocks until the next notification or until ctx is done. Poll
// failures are logged and retried on the next tick.
func (r *RPCPoller) Recv(ctx context.Context) (*models.LogNotification, error) {
	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()

	if !running {
		return nil, ErrNotSubscribed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case n := <-r.out:
		return n, nil
	}
}

// Close stops the poller
func (r *RPCPoller) Close() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (r *RPCPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		if err := r.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.WithError(err).Error("poll error")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll fetches new signatures and emits their logs oldest first
func (r *RPCPoller) poll(ctx context.Context) error {
	opts := rpc.SignaturesOpts{
		Limit:      pointer.ToInt(r.batchSize),
		Commitment: rpc.CommitmentConfirmed,
	}

	r.mu.RLock()
	lastSig := r.lastSignature
	r.mu.RUnlock()

	if lastSig != "" {
		opts.Until = lastSig
		r.logger.WithField("after", short(lastSig)).Debug("fetching new signatures")
	}

	sigs, err := r.client.GetSignaturesForAddress(ctx, r.program, opts)
	if err != nil {
		return fmt.Errorf("failed to get signatures: %w", err)
	}

	if len(sigs) == 0 {
		r.logger.Debug("no new transactions")
		return nil
	}

	r.logger.WithField("count", len(sigs)).Info("found new signatures")

	r.mu.Lock()
	r.lastSignature = sigs[0].Signature
	r.mu.Unlock()

	fetched := 0
	for i := len(sigs) - 1; i >= 0; i-- {
		sig := sigs[i]

		if fetched > 0 && r.fetchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.fetchDelay):
			}
		}
		fetched++

		tx, err := r.client.GetTransaction(ctx, sig.Signature)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.WithError(err).WithField("signature", short(sig.Signature)).Warn("failed to fetch transaction logs")
			continue
		}

		n := &models.LogNotification{
			Signature: sig.Signature,
			Slot:      sig.Slot,
			Failed:    sig.Err != nil || tx.Failed(),
		}
		if tx.Meta != nil {
			n.Logs = tx.Meta.LogMessages
		}
		if !n.Failed {
			r.remember(sig.Signature, tx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case r.out <- n:
		}
	}

	return nil
}

func short(sig string) string {
	if len(sig) > 8 {
		return sig[:8]
	}
	return sig
}
