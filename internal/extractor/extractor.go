// Package extractor locates a program's instruction inside a transaction
// regardless of how the RPC node encoded it.
package extractor

import (
	"errors"
	"fmt"

	"github.com/AlekSi/pointer"
	"github.com/aman-zulfiqar/raydium-monitor/internal/rpc"
)

var (
	// ErrProgramIDNotFound is returned for raw messages that never reference the program
	ErrProgramIDNotFound = errors.New("program id not found in account keys")
	// ErrUnsupportedTransactionFormat is returned for encodings the extractor cannot read
	ErrUnsupportedTransactionFormat = errors.New("unsupported transaction format")
	// ErrNoMatchingInstruction is returned when no instruction targets the program
	ErrNoMatchingInstruction = errors.New("no matching instruction")
)

// Extracted is the normalized view of the located instruction
type Extracted struct {
	// Index of the instruction in the message, -1 for raw (degraded) extraction
	Index    int
	Kind     rpc.InstructionKind
	Accounts []string
	// Data is the base58 payload, nil when the encoding carries none
	Data *string
	// Amount is set when a fully parsed instruction already exposed an amount
	Amount *uint64
}

// HasPayload reports whether a binary payload is available for decoding
func (e *Extracted) HasPayload() bool {
	return e.Data != nil
}

// Payload returns the base58 payload or an empty string
func (e *Extracted) Payload() string {
	return pointer.GetString(e.Data)
}

// Locate returns the first instruction of tx addressed to programID together
// with the inner instruction group it emitted, if any. Later matching
// instructions in the same transaction are ignored.
func Locate(tx *rpc.TransactionResult, programID string) (*Extracted, *rpc.InnerInstructions, error) {
	if tx == nil {
		return nil, nil, fmt.Errorf("%w: empty transaction", ErrUnsupportedTransactionFormat)
	}
	if tx.Transaction.JSON == nil {
		return nil, nil, fmt.Errorf("%w: binary encoded transaction", ErrUnsupportedTransactionFormat)
	}

	msg := &tx.Transaction.JSON.Message
	switch msg.Kind {
	case rpc.MessageRaw:
		return locateRaw(msg, programID)
	case rpc.MessageParsed:
		return locateParsed(msg, tx.InnerGroups(), programID)
	default:
		return nil, nil, fmt.Errorf("%w: message kind %s", ErrUnsupportedTransactionFormat, msg.Kind)
	}
}

// locateRaw is the degraded mode: only the key table is trusted
func locateRaw(msg *rpc.TransactionMessage, programID string) (*Extracted, *rpc.InnerInstructions, error) {
	keys := msg.Keys()
	for _, k := range keys {
		if k == programID {
			return &Extracted{Index: -1, Accounts: keys}, nil, nil
		}
	}
	return nil, nil, ErrProgramIDNotFound
}

func locateParsed(msg *rpc.TransactionMessage, groups map[uint8]*rpc.InnerInstructions, programID string) (*Extracted, *rpc.InnerInstructions, error) {
	keys := msg.Keys()

	for i := range msg.Instructions {
		found, err := match(&msg.Instructions[i], keys, programID)
		if err != nil {
			return nil, nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		if found == nil {
			continue
		}
		found.Index = i

		if i > 255 {
			return found, nil, nil
		}
		return found, groups[uint8(i)], nil
	}

	return nil, nil, ErrNoMatchingInstruction
}

// match applies the per-encoding rule to one instruction. A nil result with a
// nil error means the instruction is not the one we want.
func match(ix *rpc.Instruction, keys []string, programID string) (*Extracted, error) {
	switch ix.Kind {
	case rpc.InstructionParsed:
		amount, ok := ix.Parsed.Amount()
		if !ok {
			return nil, nil
		}
		return &Extracted{Kind: ix.Kind, Amount: pointer.ToUint64(amount)}, nil

	case rpc.InstructionCompiled:
		c := ix.Compiled
		if owner := ix.ProgramID(keys); owner != "" && owner != programID {
			return nil, nil
		}
		accounts, err := resolveAccounts(c.Accounts, keys)
		if err != nil {
			return nil, err
		}
		return &Extracted{Kind: ix.Kind, Accounts: accounts, Data: pointer.ToString(c.Data)}, nil

	case rpc.InstructionPartiallyDecoded:
		d := ix.PartiallyDecoded
		if d.ProgramID != programID {
			return nil, nil
		}
		accounts := make([]string, len(d.Accounts))
		copy(accounts, d.Accounts)
		return &Extracted{Kind: ix.Kind, Accounts: accounts, Data: pointer.ToString(d.Data)}, nil

	default:
		return nil, fmt.Errorf("%w: unrecognized instruction encoding", ErrUnsupportedTransactionFormat)
	}
}

func resolveAccounts(indices []uint16, keys []string) ([]string, error) {
	out := make([]string, len(indices))
	for i, idx := range indices {
		if int(idx) >= len(keys) {
			return nil, fmt.Errorf("%w: account index %d out of range (%d keys)", ErrUnsupportedTransactionFormat, idx, len(keys))
		}
		out[i] = keys[idx]
	}
	return out, nil
}
