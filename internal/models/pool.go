package models

import "time"

// TokenLeg is one side of a newly created pool
type TokenLeg struct {
	Mint     string  `json:"mint"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Decimals uint8   `json:"decimals"`
	Amount   float64 `json:"amount"`
	// RawAmount is the undivided on-chain amount
	RawAmount uint64 `json:"raw_amount"`
}

// PoolReport describes a pool created by initialize2
type PoolReport struct {
	Signature   string    `json:"signature"`
	Slot        uint64    `json:"slot"`
	Pool        string    `json:"pool"`
	Coin        TokenLeg  `json:"coin"`
	Pc          TokenLeg  `json:"pc"`
	Nonce       uint8     `json:"nonce"`
	OpenTime    time.Time `json:"open_time"`
	ExplorerURL string    `json:"explorer_url"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Pair renders the pool as COIN/PC
func (p *PoolReport) Pair() string {
	return legLabel(p.Coin) + "/" + legLabel(p.Pc)
}

func legLabel(l TokenLeg) string {
	if l.Symbol != "" {
		return l.Symbol
	}
	return l.Mint
}
