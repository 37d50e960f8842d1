// Package swap derives the economics of a Raydium swapBaseIn from its decoded
// payload, its settlement inner instruction and the decimals of both mints.
package swap

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/aman-zulfiqar/raydium-monitor/internal/decoder"
	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/rpc"
	"github.com/shopspring/decimal"
)

var (
	// ErrZeroExpected guards the slippage division
	ErrZeroExpected = errors.New("expected amount is zero")
	// ErrSettlementMissing means the inner group is too short to hold a settlement leg
	ErrSettlementMissing = errors.New("settlement inner instruction missing")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Normalize converts a raw integer amount into token units
func Normalize(raw uint64, decimals uint8) float64 {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
	return d.InexactFloat64()
}

// NormalizeString is Normalize for amounts rendered as decimal strings
func NormalizeString(raw string, decimals uint8) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q is not a raw integer amount", ErrInvalidAmount, raw)
	}
	return d.Shift(-int32(decimals)).InexactFloat64(), nil
}

// CalculateSlippage returns the deviation of actual from expected in percent
func CalculateSlippage(actual, expected float64) (float64, error) {
	if expected == 0 {
		return 0, ErrZeroExpected
	}
	return (actual - expected) / expected * 100, nil
}

// ActualAmount reads the settled amount from the second instruction of the
// inner group. A nil group settles nothing. The position is a convention of
// the AMM's CPI order (transfer in, then transfer out) and is not verified.
func ActualAmount(inner *rpc.InnerInstructions, decimals uint8) (float64, error) {
	if inner == nil {
		return 0, nil
	}
	idx := constants.SettlementInnerIndex
	if len(inner.Instructions) <= idx {
		return 0, fmt.Errorf("%w: group %d has %d instructions", ErrSettlementMissing, inner.Index, len(inner.Instructions))
	}

	ix := inner.Instructions[idx]
	if ix.Kind != rpc.InstructionParsed {
		return 0, nil
	}
	amount, ok := ix.Parsed.Amount()
	if !ok {
		return 0, nil
	}
	return Normalize(amount, decimals), nil
}

// Input is everything Calculate needs. Source and Destination are nil when
// the corresponding user token account did not resolve to a mint.
type Input struct {
	Signature   string
	Slot        uint64
	Owner       string
	Swap        *decoder.Swap
	Inner       *rpc.InnerInstructions
	Source      *models.TokenInfo
	Destination *models.TokenInfo
}

// Direction classifies the swap: both legs resolved is a sell, only the
// destination is a buy. ok is false when the swap is not recognized.
func Direction(source, destination *models.TokenInfo) (models.SwapDirection, bool) {
	switch {
	case source != nil && destination != nil:
		return models.SwapSell, true
	case source == nil && destination != nil:
		return models.SwapBuy, true
	default:
		return "", false
	}
}

// Calculate builds the swap report. It returns nil, nil when the swap
// direction cannot be classified.
func Calculate(in Input) (*models.SwapReport, error) {
	if in.Swap == nil {
		return nil, fmt.Errorf("swap payload is nil")
	}

	direction, ok := Direction(in.Source, in.Destination)
	if !ok {
		return nil, nil
	}

	dst := in.Destination
	report := &models.SwapReport{
		Signature:         in.Signature,
		Slot:              in.Slot,
		Direction:         direction,
		Owner:             in.Owner,
		DestinationMint:   dst.Mint,
		DestinationName:   dst.Name,
		DestinationSymbol: dst.Symbol,
		ExpectedAmount:    Normalize(in.Swap.MinimumAmountOut, dst.Decimals),
		ExplorerURL:       fmt.Sprintf(constants.SolscanTxURL, in.Signature),
	}

	switch direction {
	case models.SwapSell:
		report.SourceMint = in.Source.Mint
		report.SourceName = in.Source.Name
		report.SourceSymbol = in.Source.Symbol
		report.AmountIn = Normalize(in.Swap.AmountIn, in.Source.Decimals)
	case models.SwapBuy:
		// the spent token account is a temporary wSOL account closed in the same tx
		report.SourceMint = constants.NativeMint
		report.SourceSymbol = "SOL"
		report.AmountIn = Normalize(in.Swap.AmountIn, constants.NativeDecimals)
	}

	actual, err := ActualAmount(in.Inner, dst.Decimals)
	if err != nil {
		return nil, err
	}
	report.ActualAmount = actual

	slippage, err := CalculateSlippage(report.ActualAmount, report.ExpectedAmount)
	if err != nil {
		return nil, fmt.Errorf("slippage for %s: %w", in.Signature, err)
	}
	report.SlippagePct = slippage

	return report, nil
}
