package models

import "time"

type SwapDirection string

const (
	SwapBuy  SwapDirection = "buy"
	SwapSell SwapDirection = "sell"
)

// SwapReport is the economics of one swapBaseIn
type SwapReport struct {
	Signature         string        `json:"signature"`
	Slot              uint64        `json:"slot"`
	Direction         SwapDirection `json:"direction"`
	Owner             string        `json:"owner"`
	SourceMint        string        `json:"source_mint,omitempty"`
	SourceName        string        `json:"source_name,omitempty"`
	SourceSymbol      string        `json:"source_symbol"`
	DestinationMint   string        `json:"destination_mint"`
	DestinationName   string        `json:"destination_name,omitempty"`
	DestinationSymbol string        `json:"destination_symbol"`
	AmountIn          float64       `json:"amount_in"`
	ExpectedAmount    float64       `json:"expected_amount"`
	ActualAmount      float64       `json:"actual_amount"`
	SlippagePct       float64       `json:"slippage_pct"`
	ExplorerURL       string        `json:"explorer_url"`
	DetectedAt        time.Time     `json:"detected_at"`
}
