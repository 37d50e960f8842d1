package models

// TokenInfo is the display metadata and decimals of one mint
type TokenInfo struct {
	Mint            string `json:"mint"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	URI             string `json:"uri,omitempty"`
	UpdateAuthority string `json:"update_authority,omitempty"`
	Decimals        uint8  `json:"decimals"`
}

// Label prefers the symbol, then the name, then the mint address
func (t *TokenInfo) Label() string {
	switch {
	case t == nil:
		return ""
	case t.Symbol != "":
		return t.Symbol
	case t.Name != "":
		return t.Name
	default:
		return t.Mint
	}
}
