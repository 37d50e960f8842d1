package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// SignatureInfo represents a transaction signature from getSignaturesForAddress
type SignatureInfo struct {
	Signature string      `json:"signature"`
	Slot      uint64      `json:"slot"`
	Err       interface{} `json:"err"`
	BlockTime *int64      `json:"blockTime"`
}

// SignaturesResponse is the response from getSignaturesForAddress
type SignaturesResponse struct {
	Result []SignatureInfo `json:"result"`
	Error  *RPCError       `json:"error"`
}

// TokenAmount represents token balance information
type TokenAmount struct {
	Amount         string  `json:"amount"`
	Decimals       uint8   `json:"decimals"`
	UIAmountString string  `json:"uiAmountString"`
	UIAmount       float64 `json:"uiAmount"`
}

// TokenBalance represents a token balance entry
type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

// InnerInstructions is the CPI group emitted by the top-level instruction at Index
type InnerInstructions struct {
	Index        uint8         `json:"index"`
	Instructions []Instruction `json:"instructions"`
}

// TransactionMeta contains metadata about a transaction
type TransactionMeta struct {
	Err               interface{}         `json:"err"`
	Fee               uint64              `json:"fee"`
	PreBalances       []uint64            `json:"preBalances"`
	PostBalances      []uint64            `json:"postBalances"`
	PreTokenBalances  []TokenBalance      `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance      `json:"postTokenBalances"`
	InnerInstructions []InnerInstructions `json:"innerInstructions"`
	LogMessages       []string            `json:"logMessages"`
}

// AccountKey is an account reference. Raw messages list bare strings, parsed
// messages list objects; both decode into this type.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
	Source   string `json:"source,omitempty"`
}

func (k *AccountKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &k.Pubkey)
	}
	type plain AccountKey
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*k = AccountKey(p)
	return nil
}

// MessageKind tells how the upstream node encoded the message
type MessageKind int

const (
	MessageRaw MessageKind = iota
	MessageParsed
)

func (k MessageKind) String() string {
	switch k {
	case MessageRaw:
		return "raw"
	case MessageParsed:
		return "parsed"
	default:
		return "unknown"
	}
}

// TransactionMessage contains the transaction message
type TransactionMessage struct {
	Kind            MessageKind
	AccountKeys     []AccountKey
	RecentBlockhash string
	Instructions    []Instruction
}

func (m *TransactionMessage) UnmarshalJSON(data []byte) error {
	var probe struct {
		AccountKeys     []json.RawMessage `json:"accountKeys"`
		RecentBlockhash string            `json:"recentBlockhash"`
		Instructions    []Instruction     `json:"instructions"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	m.Kind = MessageRaw
	m.RecentBlockhash = probe.RecentBlockhash
	m.Instructions = probe.Instructions
	m.AccountKeys = make([]AccountKey, 0, len(probe.AccountKeys))
	for i, raw := range probe.AccountKeys {
		var key AccountKey
		if err := key.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("account key %d: %w", i, err)
		}
		if t := bytes.TrimSpace(raw); len(t) > 0 && t[0] == '{' {
			m.Kind = MessageParsed
		}
		m.AccountKeys = append(m.AccountKeys, key)
	}
	return nil
}

// Keys returns the account key table as plain base58 strings
func (m *TransactionMessage) Keys() []string {
	out := make([]string, len(m.AccountKeys))
	for i, k := range m.AccountKeys {
		out[i] = k.Pubkey
	}
	return out
}

// Transaction represents a JSON encoded transaction
type Transaction struct {
	Signatures []string           `json:"signatures"`
	Message    TransactionMessage `json:"message"`
}

// EncodedTransaction holds either a JSON transaction or a binary encoded one
// ("[data, encoding]"), which this client never requests but may still receive.
type EncodedTransaction struct {
	JSON   *Transaction
	Binary []string
}

func (e *EncodedTransaction) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &e.Binary)
	}
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return err
	}
	e.JSON = &tx
	return nil
}

// TransactionResult contains the full transaction data
type TransactionResult struct {
	Slot        uint64             `json:"slot"`
	BlockTime   *int64             `json:"blockTime"`
	Meta        *TransactionMeta   `json:"meta"`
	Transaction EncodedTransaction `json:"transaction"`
	Version     json.RawMessage    `json:"version"`
}

// Failed reports whether the transaction executed with an error
func (t *TransactionResult) Failed() bool {
	return t.Meta != nil && t.Meta.Err != nil
}

// InnerGroups indexes the inner instruction groups by the position of their
// parent instruction
func (t *TransactionResult) InnerGroups() map[uint8]*InnerInstructions {
	out := make(map[uint8]*InnerInstructions)
	if t.Meta == nil {
		return out
	}
	for i := range t.Meta.InnerInstructions {
		group := &t.Meta.InnerInstructions[i]
		if _, dup := out[group.Index]; !dup {
			out[group.Index] = group
		}
	}
	return out
}

// TransactionResponse is the response from getTransaction
type TransactionResponse struct {
	Result *TransactionResult `json:"result"`
	Error  *RPCError          `json:"error"`
}

// AccountInfo is the value of a getAccountInfo response
type AccountInfo struct {
	Data       []string `json:"data"`
	Owner      string   `json:"owner"`
	Lamports   uint64   `json:"lamports"`
	Executable bool     `json:"executable"`
}

// AccountInfoResponse is the response from getAccountInfo
type AccountInfoResponse struct {
	Result *struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value *AccountInfo `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// parseAmount reads an integer amount that RPC nodes render as a JSON string
func parseAmount(raw json.RawMessage) (uint64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
