// Package decoder turns base58 Raydium AMM v4 instruction payloads into typed records.
package decoder

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/mr-tron/base58"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownDiscriminator wraps ErrMalformedPayload
	ErrUnknownDiscriminator = fmt.Errorf("%w: unknown discriminator", ErrMalformedPayload)
)

// Instruction discriminators of the AMM v4 program
const (
	DiscriminatorInitialize2 uint8 = 1
	DiscriminatorSwapBaseIn  uint8 = 9
)

// Encoded sizes
const (
	PoolInitSize = 26
	SwapSize     = 17
)

// PoolInit is the initialize2 payload
type PoolInit struct {
	Discriminator  uint8  `json:"discriminator"`
	Nonce          uint8  `json:"nonce"`
	OpenTime       uint64 `json:"open_time"`
	InitPcAmount   uint64 `json:"init_pc_amount"`
	InitCoinAmount uint64 `json:"init_coin_amount"`
}

// Swap is the swapBaseIn payload
type Swap struct {
	Discriminator    uint8  `json:"discriminator"`
	AmountIn         uint64 `json:"amount_in"`
	MinimumAmountOut uint64 `json:"minimum_amount_out"`
}

type shape struct {
	name          string
	size          int
	discriminator uint8
}

var (
	poolInitShape = shape{name: "pool init", size: PoolInitSize, discriminator: DiscriminatorInitialize2}
	swapShape     = shape{name: "swap", size: SwapSize, discriminator: DiscriminatorSwapBaseIn}
)

// DecodePoolInit decodes a base58 initialize2 payload
func DecodePoolInit(b58 string) (*PoolInit, error) {
	var out PoolInit
	if err := decode(b58, poolInitShape, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeSwap decodes a base58 swapBaseIn payload
func DecodeSwap(b58 string) (*Swap, error) {
	var out Swap
	if err := decode(b58, swapShape, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decode(b58 string, s shape, out interface{}) error {
	raw, err := base58.Decode(b58)
	if err != nil {
		return fmt.Errorf("%w: %s: base58: %v", ErrMalformedPayload, s.name, err)
	}
	if len(raw) < s.size {
		return fmt.Errorf("%w: %s: need %d bytes, got %d", ErrMalformedPayload, s.name, s.size, len(raw))
	}
	if raw[0] != s.discriminator {
		return fmt.Errorf("%w: %s: got %d, want %d", ErrUnknownDiscriminator, s.name, raw[0], s.discriminator)
	}

	dec := bin.NewBorshDecoder(raw)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, s.name, err)
	}
	if rem := dec.Remaining(); rem != 0 {
		return fmt.Errorf("%w: %s: %d trailing bytes", ErrMalformedPayload, s.name, rem)
	}
	return nil
}

// EncodePoolInit is the inverse of DecodePoolInit
func EncodePoolInit(p PoolInit) (string, error) {
	return encode(&p)
}

// EncodeSwap is the inverse of DecodeSwap
func EncodeSwap(s Swap) (string, error) {
	return encode(&s)
}

func encode(v interface{}) (string, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return base58.Encode(buf.Bytes()), nil
}
