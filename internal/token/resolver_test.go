package token

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/rpc"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	mu    sync.Mutex
	data  map[string][]byte
	fail  map[string]error
	calls []string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{data: map[string][]byte{}, fail: map[string]error{}}
}

func (f *fakeAccounts) GetAccountInfo(_ context.Context, address string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, address)
	if err, ok := f.fail[address]; ok {
		return nil, err
	}
	d, ok := f.data[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rpc.ErrAccountNotFound, address)
	}
	return d, nil
}

type memCache struct {
	items map[string]*models.TokenInfo
}

func (m *memCache) GetTokenInfo(_ context.Context, mint string) (*models.TokenInfo, error) {
	return m.items[mint], nil
}

func (m *memCache) SetTokenInfo(_ context.Context, info *models.TokenInfo) error {
	m.items[info.Mint] = info
	return nil
}

func pad(s string, n int) string {
	return s + strings.Repeat("\x00", n-len(s))
}

func metadataBytes(t *testing.T, mint solana.PublicKey, name, symbol string) []byte {
	t.Helper()
	md := Metadata{
		Key:                  metadataKeyV1,
		UpdateAuthority:      solana.NewWallet().PublicKey(),
		Mint:                 mint,
		Name:                 pad(name, 32),
		Symbol:               pad(symbol, 10),
		URI:                  pad("https://example.com/"+symbol+".json", 200),
		SellerFeeBasisPoints: 0,
	}
	var buf bytes.Buffer
	require.NoError(t, bin.NewBorshEncoder(&buf).Encode(md))
	// creators/collection options follow in real accounts
	buf.Write([]byte{0, 1, 0, 0})
	return buf.Bytes()
}

func mintBytes(t *testing.T, decimals uint8) []byte {
	t.Helper()
	m := token.Mint{Supply: 1_000_000, Decimals: decimals, IsInitialized: true}
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(m))
	require.Len(t, buf.Bytes(), token.MINT_SIZE)
	return buf.Bytes()
}

func tokenAccountBytes(t *testing.T, mint solana.PublicKey) []byte {
	t.Helper()
	acct := token.Account{Mint: mint, Owner: solana.NewWallet().PublicKey(), Amount: 5, State: token.Initialized}
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(acct))
	return buf.Bytes()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seedMint(t *testing.T, f *fakeAccounts, name, symbol string, decimals uint8) solana.PublicKey {
	t.Helper()
	mint := solana.NewWallet().PublicKey()
	mdAddr, err := MetadataAddress(mint)
	require.NoError(t, err)
	f.data[mdAddr.String()] = metadataBytes(t, mint, name, symbol)
	f.data[mint.String()] = mintBytes(t, decimals)
	return mint
}

func TestTrimPadding(t *testing.T) {
	assert.Equal(t, "RAY", TrimPadding("RAY\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"))
	assert.Equal(t, "RAY", TrimPadding("RAY"))
	assert.Equal(t, "", TrimPadding("\x00\x00"))
}

func TestMetadataAddress_Deterministic(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R")

	a, err := MetadataAddress(mint)
	require.NoError(t, err)
	b, err := MetadataAddress(mint)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := MetadataAddress(solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"))
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestDecodeMetadata(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	md, err := DecodeMetadata(metadataBytes(t, mint, "Raydium", "RAY"))
	require.NoError(t, err)
	assert.Equal(t, "Raydium", md.Name)
	assert.Equal(t, "RAY", md.Symbol)
	assert.Equal(t, mint, md.Mint)
	assert.Equal(t, "https://example.com/RAY.json", md.URI)
}

func TestDecodeMetadata_Malformed(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	good := metadataBytes(t, mint, "Raydium", "RAY")

	_, err := DecodeMetadata(good[:40])
	assert.ErrorIs(t, err, ErrMetadataNotFound)

	wrongKey := append([]byte{}, good...)
	wrongKey[0] = 1
	_, err = DecodeMetadata(wrongKey)
	assert.ErrorIs(t, err, ErrMetadataNotFound)
}

func TestDecodeMintDecimals(t *testing.T) {
	d, err := DecodeMintDecimals(mintBytes(t, 6))
	require.NoError(t, err)
	assert.Equal(t, uint8(6), d)

	_, err = DecodeMintDecimals(make([]byte, 10))
	assert.ErrorIs(t, err, ErrMintDecode)

	_, err = DecodeMintDecimals(make([]byte, token.MINT_SIZE))
	assert.ErrorIs(t, err, ErrMintDecode, "zeroed account is not initialized")
}

func TestResolver_Resolve(t *testing.T) {
	accounts := newFakeAccounts()
	mint := seedMint(t, accounts, "Raydium", "RAY", 6)

	r, err := NewResolver(ResolverConfig{Accounts: accounts, Logger: quietLogger()})
	require.NoError(t, err)

	info, err := r.Resolve(context.Background(), mint.String())
	require.NoError(t, err)
	assert.Equal(t, "Raydium", info.Name)
	assert.Equal(t, "RAY", info.Symbol)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.Equal(t, mint.String(), info.Mint)

	mdAddr, _ := MetadataAddress(mint)
	assert.Equal(t, []string{mdAddr.String(), mint.String()}, accounts.calls, "metadata is read before the mint")
}

func TestResolver_MetadataMissing(t *testing.T) {
	accounts := newFakeAccounts()
	mint := solana.NewWallet().PublicKey()
	accounts.data[mint.String()] = mintBytes(t, 9)

	r, err := NewResolver(ResolverConfig{Accounts: accounts, Logger: quietLogger()})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), mint.String())
	assert.ErrorIs(t, err, ErrMetadataNotFound)
}

func TestResolver_MintMissingOrMalformed(t *testing.T) {
	accounts := newFakeAccounts()
	mint := seedMint(t, accounts, "Token", "TKN", 9)
	delete(accounts.data, mint.String())

	r, err := NewResolver(ResolverConfig{Accounts: accounts, Logger: quietLogger()})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), mint.String())
	assert.ErrorIs(t, err, ErrMintDecode)

	accounts.data[mint.String()] = []byte{1, 2, 3}
	_, err = r.Resolve(context.Background(), mint.String())
	assert.ErrorIs(t, err, ErrMintDecode)
}

func TestResolver_TransportErrorPropagates(t *testing.T) {
	accounts := newFakeAccounts()
	mint := solana.NewWallet().PublicKey()
	mdAddr, _ := MetadataAddress(mint)
	boom := errors.New("connection reset")
	accounts.fail[mdAddr.String()] = boom

	r, err := NewResolver(ResolverConfig{Accounts: accounts, Logger: quietLogger()})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), mint.String())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrMetadataNotFound)
}

func TestResolver_InvalidMint(t *testing.T) {
	r, err := NewResolver(ResolverConfig{Accounts: newFakeAccounts(), Logger: quietLogger()})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "not-a-key")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestResolver_UsesCache(t *testing.T) {
	accounts := newFakeAccounts()
	mint := seedMint(t, accounts, "Bonk", "BONK", 5)
	cache := &memCache{items: map[string]*models.TokenInfo{}}

	r, err := NewResolver(ResolverConfig{Accounts: accounts, Cache: cache, Logger: quietLogger()})
	require.NoError(t, err)

	first, err := r.Resolve(context.Background(), mint.String())
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), mint.String())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, accounts.calls, 2, "second resolve is served from cache")
}

func TestResolver_MintOf(t *testing.T) {
	accounts := newFakeAccounts()
	mint := solana.NewWallet().PublicKey()
	holding := solana.NewWallet().PublicKey()
	notToken := solana.NewWallet().PublicKey()
	accounts.data[holding.String()] = tokenAccountBytes(t, mint)
	accounts.data[notToken.String()] = []byte{1, 2, 3}

	r, err := NewResolver(ResolverConfig{Accounts: accounts, Logger: quietLogger()})
	require.NoError(t, err)

	got, ok, err := r.MintOf(context.Background(), holding.String())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, mint.String(), got)

	_, ok, err = r.MintOf(context.Background(), notToken.String())
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = r.MintOf(context.Background(), solana.NewWallet().PublicKey().String())
	require.NoError(t, err)
	assert.False(t, ok, "closed accounts are not resolved")
}

func TestNewResolver_RequiresFetcher(t *testing.T) {
	_, err := NewResolver(ResolverConfig{})
	assert.Error(t, err)
}
