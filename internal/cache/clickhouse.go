package cache

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/raydium-monitor/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

const createPoolsTable = `
	CREATE TABLE IF NOT EXISTS pools (
		signature      String,
		slot           UInt64,
		pool           String,
		coin_mint      String,
		coin_symbol    String,
		coin_decimals  UInt8,
		coin_amount    Float64,
		pc_mint        String,
		pc_symbol      String,
		pc_decimals    UInt8,
		pc_amount      Float64,
		nonce          UInt8,
		open_time      DateTime,
		detected_at    DateTime64(3)
	) ENGINE = ReplacingMergeTree
	ORDER BY signature
`

const createSwapsTable = `
	CREATE TABLE IF NOT EXISTS raydium_swaps (
		signature          String,
		slot               UInt64,
		direction          LowCardinality(String),
		owner              String,
		source_mint        String,
		source_symbol      String,
		destination_mint   String,
		destination_symbol String,
		amount_in          Float64,
		expected_amount    Float64,
		actual_amount      Float64,
		slippage_pct       Float64,
		detected_at        DateTime64(3)
	) ENGINE = ReplacingMergeTree
	ORDER BY signature
`

// ClickHouseStore persists reports for historical queries
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// ClickHouseConfig holds connection settings
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

// EnsureSchema creates the report tables when missing
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	for _, ddl := range []string{createPoolsTable, createSwapsTable} {
		if err := c.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (c *ClickHouseStore) InsertPool(ctx context.Context, pool *models.PoolReport) error {
	query := `
		INSERT INTO pools (
			signature, slot, pool,
			coin_mint, coin_symbol, coin_decimals, coin_amount,
			pc_mint, pc_symbol, pc_decimals, pc_amount,
			nonce, open_time, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		pool.Signature,
		pool.Slot,
		pool.Pool,
		pool.Coin.Mint,
		pool.Coin.Symbol,
		pool.Coin.Decimals,
		pool.Coin.Amount,
		pool.Pc.Mint,
		pool.Pc.Symbol,
		pool.Pc.Decimals,
		pool.Pc.Amount,
		pool.Nonce,
		pool.OpenTime,
		pool.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pool: %w", err)
	}

	return nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapReport) error {
	query := `
		INSERT INTO raydium_swaps (
			signature, slot, direction, owner,
			source_mint, source_symbol, destination_mint, destination_symbol,
			amount_in, expected_amount, actual_amount, slippage_pct, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		swap.Signature,
		swap.Slot,
		string(swap.Direction),
		swap.Owner,
		swap.SourceMint,
		swap.SourceSymbol,
		swap.DestinationMint,
		swap.DestinationSymbol,
		swap.AmountIn,
		swap.ExpectedAmount,
		swap.ActualAmount,
		swap.SlippagePct,
		swap.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}

	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
