package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
)

// ReportCache defines the interface for caching recent reports
type ReportCache interface {
	// AddRecentPool adds a pool report to the recent pools list
	AddRecentPool(ctx context.Context, pool *models.PoolReport) error

	// AddRecentSwap adds a swap report to the recent swaps list
	AddRecentSwap(ctx context.Context, swap *models.SwapReport) error

	// GetRecentPools retrieves the most recent pool reports
	GetRecentPools(ctx context.Context, limit int64) ([]*models.PoolReport, error)

	// GetRecentSwaps retrieves the most recent swap reports
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapReport, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// ReportPublisher fans reports out to live subscribers
type ReportPublisher interface {
	PublishPool(ctx context.Context, pool *models.PoolReport) error
	PublishSwap(ctx context.Context, swap *models.SwapReport) error
}

// ReportStore defines the interface for persistent report storage
type ReportStore interface {
	InsertPool(ctx context.Context, pool *models.PoolReport) error
	InsertSwap(ctx context.Context, swap *models.SwapReport) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// PoolHandler is a function that processes pool reports
type PoolHandler func(context.Context, *models.PoolReport)

// SwapHandler is a function that processes swap reports
type SwapHandler func(context.Context, *models.SwapReport)

// LogStream delivers log notifications for one program in arrival order
type LogStream interface {
	// Subscribe opens the underlying subscription
	Subscribe(ctx context.Context) error

	// Recv blocks for the next notification. An error means the stream is
	// no longer usable.
	Recv(ctx context.Context) (*models.LogNotification, error)

	io.Closer
}
