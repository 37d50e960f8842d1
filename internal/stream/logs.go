package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotSubscribed      = errors.New("log stream not subscribed")
	ErrAlreadySubscribed  = errors.New("log stream already subscribed")
	ErrSubscriptionClosed = errors.New("log subscription closed")
)

// LogStream implements storage.LogStream over a logsSubscribe websocket
// subscription filtered to transactions mentioning one program
type LogStream struct {
	endpoint   string
	programID  solana.PublicKey
	commitment solrpc.CommitmentType
	logger     *logrus.Logger

	mu     sync.Mutex
	client *ws.Client
	sub    *ws.LogSubscription
}

// LogStreamConfig holds configuration for the websocket log stream
type LogStreamConfig struct {
	Endpoint   string
	ProgramID  string
	Commitment solrpc.CommitmentType
	Logger     *logrus.Logger
}

// NewLogStream creates a log stream; call Subscribe before Recv
func NewLogStream(cfg LogStreamConfig) (*LogStream, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Commitment == "" {
		cfg.Commitment = solrpc.CommitmentConfirmed
	}

	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id %q: %w", cfg.ProgramID, err)
	}

	return &LogStream{
		endpoint:   cfg.Endpoint,
		programID:  programID,
		commitment: cfg.Commitment,
		logger:     cfg.Logger,
	}, nil
}

// Subscribe connects and opens the logsSubscribe mentions subscription
func (s *LogStream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return ErrAlreadySubscribed
	}

	client, err := ws.Connect(ctx, s.endpoint)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	sub, err := client.LogsSubscribeMentions(s.programID, s.commitment)
	if err != nil {
		client.Close()
		return fmt.Errorf("logs subscribe: %w", err)
	}

	s.client = client
	s.sub = sub

	s.logger.WithFields(logrus.Fields{
		"program":    s.programID.String(),
		"commitment": s.commitment,
	}).Info("subscribed to program logs")

	return nil
}

// Recv blocks for the next notification
func (s *LogStream) Recv(ctx context.Context) (*models.LogNotification, error) {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()

	if sub == nil {
		return nil, ErrNotSubscribed
	}

	res, err := sub.Recv(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionClosed, err)
	}
	if res == nil {
		return nil, ErrSubscriptionClosed
	}

	return &models.LogNotification{
		Signature: res.Value.Signature.String(),
		Slot:      res.Context.Slot,
		Logs:      res.Value.Logs,
		Failed:    res.Value.Err != nil,
	}, nil
}

// Close unsubscribes and closes the websocket
func (s *LogStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	return nil
}
