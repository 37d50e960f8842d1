package rpc

import (
	"encoding/json"
	"fmt"
)

// InstructionKind identifies which of the UI instruction encodings a node used
type InstructionKind int

const (
	InstructionUnknown InstructionKind = iota
	// InstructionCompiled carries account indices into the key table and base58 data
	InstructionCompiled
	// InstructionParsed was fully decoded by the node into program specific fields
	InstructionParsed
	// InstructionPartiallyDecoded has an explicit program id, account list and base58 data
	InstructionPartiallyDecoded
)

func (k InstructionKind) String() string {
	switch k {
	case InstructionCompiled:
		return "compiled"
	case InstructionParsed:
		return "parsed"
	case InstructionPartiallyDecoded:
		return "partially_decoded"
	default:
		return "unknown"
	}
}

type CompiledInstruction struct {
	ProgramIDIndex uint16   `json:"programIdIndex"`
	Accounts       []uint16 `json:"accounts"`
	Data           string   `json:"data"`
	StackHeight    *uint32  `json:"stackHeight,omitempty"`
}

type ParsedInstruction struct {
	Program     string          `json:"program"`
	ProgramID   string          `json:"programId"`
	Parsed      json.RawMessage `json:"parsed"`
	StackHeight *uint32         `json:"stackHeight,omitempty"`
}

// Amount returns parsed.info.amount, or parsed.info.tokenAmount.amount for
// transferChecked style instructions
func (p *ParsedInstruction) Amount() (uint64, bool) {
	var body struct {
		Type string `json:"type"`
		Info struct {
			Amount      json.RawMessage `json:"amount"`
			TokenAmount *struct {
				Amount json.RawMessage `json:"amount"`
			} `json:"tokenAmount"`
		} `json:"info"`
	}
	// memo and similar programs render "parsed" as a plain string
	if err := json.Unmarshal(p.Parsed, &body); err != nil {
		return 0, false
	}
	if v, ok := parseAmount(body.Info.Amount); ok {
		return v, true
	}
	if body.Info.TokenAmount != nil {
		return parseAmount(body.Info.TokenAmount.Amount)
	}
	return 0, false
}

// Type returns parsed.type (e.g. "transfer") when present
func (p *ParsedInstruction) Type() string {
	var body struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(p.Parsed, &body); err != nil {
		return ""
	}
	return body.Type
}

type PartiallyDecodedInstruction struct {
	ProgramID   string   `json:"programId"`
	Accounts    []string `json:"accounts"`
	Data        string   `json:"data"`
	StackHeight *uint32  `json:"stackHeight,omitempty"`
}

// Instruction is a tagged union over the three UI instruction encodings.
// Exactly one of the variant pointers is set unless Kind is InstructionUnknown.
type Instruction struct {
	Kind             InstructionKind
	Compiled         *CompiledInstruction
	Parsed           *ParsedInstruction
	PartiallyDecoded *PartiallyDecodedInstruction
	Raw              json.RawMessage
}

func (ix *Instruction) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("instruction: %w", err)
	}
	ix.Raw = append(ix.Raw[:0], data...)

	_, hasIndex := probe["programIdIndex"]
	_, hasParsed := probe["parsed"]
	_, hasProgramID := probe["programId"]
	_, hasData := probe["data"]

	switch {
	case hasIndex:
		var c CompiledInstruction
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("compiled instruction: %w", err)
		}
		ix.Kind, ix.Compiled = InstructionCompiled, &c
	case hasParsed:
		var p ParsedInstruction
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parsed instruction: %w", err)
		}
		ix.Kind, ix.Parsed = InstructionParsed, &p
	case hasProgramID && hasData:
		var d PartiallyDecodedInstruction
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("partially decoded instruction: %w", err)
		}
		ix.Kind, ix.PartiallyDecoded = InstructionPartiallyDecoded, &d
	default:
		ix.Kind = InstructionUnknown
	}
	return nil
}

func (ix Instruction) MarshalJSON() ([]byte, error) {
	switch ix.Kind {
	case InstructionCompiled:
		return json.Marshal(ix.Compiled)
	case InstructionParsed:
		return json.Marshal(ix.Parsed)
	case InstructionPartiallyDecoded:
		return json.Marshal(ix.PartiallyDecoded)
	}
	if len(ix.Raw) > 0 {
		return ix.Raw, nil
	}
	return []byte("null"), nil
}

// ProgramID returns the program the instruction is addressed to, resolving
// compiled instructions through keys. Empty when it cannot be determined.
func (ix *Instruction) ProgramID(keys []string) string {
	switch ix.Kind {
	case InstructionCompiled:
		if int(ix.Compiled.ProgramIDIndex) < len(keys) {
			return keys[ix.Compiled.ProgramIDIndex]
		}
	case InstructionParsed:
		return ix.Parsed.ProgramID
	case InstructionPartiallyDecoded:
		return ix.PartiallyDecoded.ProgramID
	}
	return ""
}
