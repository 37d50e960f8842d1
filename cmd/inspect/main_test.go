package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/aman-zulfiqar/raydium-monitor/internal/decoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDecodePool(t *testing.T) {
	payload, err := decoder.EncodePoolInit(decoder.PoolInit{
		Discriminator:  decoder.DiscriminatorInitialize2,
		Nonce:          254,
		OpenTime:       1700000000,
		InitPcAmount:   5_000_000_000,
		InitCoinAmount: 1_000_000,
	})
	require.NoError(t, err)

	out, err := execute(t, "decode", "pool", payload)
	require.NoError(t, err)

	var got decoder.PoolInit
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.EqualValues(t, 254, got.Nonce)
	assert.EqualValues(t, 1700000000, got.OpenTime)
	assert.EqualValues(t, 5_000_000_000, got.InitPcAmount)
}

func TestDecodeSwap(t *testing.T) {
	payload, err := decoder.EncodeSwap(decoder.Swap{
		Discriminator:    decoder.DiscriminatorSwapBaseIn,
		AmountIn:         42,
		MinimumAmountOut: 40,
	})
	require.NoError(t, err)

	out, err := execute(t, "decode", "swap", payload)
	require.NoError(t, err)
	assert.Contains(t, out, `"amount_in": 42`)
	assert.Contains(t, out, `"minimum_amount_out": 40`)
}

func TestDecode_Errors(t *testing.T) {
	_, err := execute(t, "decode", "swap", "0OIl")
	assert.ErrorIs(t, err, decoder.ErrMalformedPayload)

	_, err = execute(t, "decode", "pool")
	assert.Error(t, err, "payload argument is required")
}
