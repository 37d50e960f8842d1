// Package token resolves SPL mints to their Metaplex metadata and decimals.
package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

var (
	ErrMetadataNotFound = errors.New("token metadata not found")
	ErrMintDecode       = errors.New("mint decode error")
	ErrInvalidAddress   = errors.New("invalid address")
)

// AccountFetcher returns the raw data of an account. Implementations return
// an error wrapping rpc.ErrAccountNotFound for accounts that do not exist.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, address string) ([]byte, error)
}

// Cache stores resolved token info between events. Get returns nil, nil on a miss.
type Cache interface {
	GetTokenInfo(ctx context.Context, mint string) (*models.TokenInfo, error)
	SetTokenInfo(ctx context.Context, info *models.TokenInfo) error
}

// Resolver looks up token metadata and decimals
type Resolver struct {
	accounts AccountFetcher
	cache    Cache
	logger   *logrus.Logger
}

// ResolverConfig holds configuration for the resolver
type ResolverConfig struct {
	Accounts AccountFetcher
	// Cache is optional; without it every call hits the RPC node
	Cache  Cache
	Logger *logrus.Logger
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Accounts == nil {
		return nil, fmt.Errorf("account fetcher is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Resolver{accounts: cfg.Accounts, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// Resolve returns the metadata and decimals of mint. The metadata account is
// read first, then the mint account.
func (r *Resolver) Resolve(ctx context.Context, mint string) (*models.TokenInfo, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("%w: mint %q: %v", ErrInvalidAddress, mint, err)
	}

	if info := r.cached(ctx, mint); info != nil {
		return info, nil
	}

	metadataAddr, err := MetadataAddress(mintKey)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"mint":     mint,
		"metadata": metadataAddr.String(),
	}).Debug("fetching token metadata")

	mdData, err := r.accounts.GetAccountInfo(ctx, metadataAddr.String())
	if err != nil {
		if errors.Is(err, rpc.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, mint)
		}
		return nil, fmt.Errorf("fetch metadata for %s: %w", mint, err)
	}
	md, err := DecodeMetadata(mdData)
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", mint, err)
	}

	mintData, err := r.accounts.GetAccountInfo(ctx, mint)
	if err != nil {
		if errors.Is(err, rpc.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: mint account %s missing", ErrMintDecode, mint)
		}
		return nil, fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	decimals, err := DecodeMintDecimals(mintData)
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", mint, err)
	}

	info := &models.TokenInfo{
		Mint:            mint,
		Name:            md.Name,
		Symbol:          md.Symbol,
		URI:             md.URI,
		UpdateAuthority: md.UpdateAuthority.String(),
		Decimals:        decimals,
	}
	r.store(ctx, info)

	return info, nil
}

// MintOf returns the mint of an SPL token account. The boolean is false when
// the account does not exist or is not a token account; only transport
// failures are returned as errors.
func (r *Resolver) MintOf(ctx context.Context, tokenAccount string) (string, bool, error) {
	if _, err := solana.PublicKeyFromBase58(tokenAccount); err != nil {
		return "", false, fmt.Errorf("%w: token account %q: %v", ErrInvalidAddress, tokenAccount, err)
	}

	data, err := r.accounts.GetAccountInfo(ctx, tokenAccount)
	if err != nil {
		if errors.Is(err, rpc.ErrAccountNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fetch token account %s: %w", tokenAccount, err)
	}

	mint, err := DecodeTokenAccountMint(data)
	if err != nil {
		r.logger.WithError(err).WithField("account", tokenAccount).Debug("not a token account")
		return "", false, nil
	}
	return mint.String(), true, nil
}

func (r *Resolver) cached(ctx context.Context, mint string) *models.TokenInfo {
	if r.cache == nil {
		return nil
	}
	info, err := r.cache.GetTokenInfo(ctx, mint)
	if err != nil {
		r.logger.WithError(err).WithField("mint", mint).Warn("token cache read failed")
		return nil
	}
	return info
}

func (r *Resolver) store(ctx context.Context, info *models.TokenInfo) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetTokenInfo(ctx, info); err != nil {
		r.logger.WithError(err).WithField("mint", info.Mint).Warn("token cache write failed")
	}
}
