// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidOperation defines operation parameters which can not produce a runestone.
var ErrInvalidOperation = errors.New("invalid rune operation")

// Operation describes rune protocol operation which is encoded into runestone.
type Operation interface {
	Runestone() (*Runestone, error)
}

// EtchOperation describes etching of a new rune.
type EtchOperation struct {
	// Name is rune name, spacers (• or .) are allowed between letters.
	Name         string
	Symbol       *rune
	Divisibility byte
	Premine      *big.Int
	// MintAmount and MintCap enable open minting terms when both set.
	MintAmount  *big.Int
	MintCap     *big.Int
	HeightStart *uint64
	HeightEnd   *uint64
	OffsetStart *uint64
	OffsetEnd   *uint64
	Turbo       bool
	Pointer     *uint32
}

// Runestone returns etching runestone.
func (op EtchOperation) Runestone() (*Runestone, error) {
	r, spacers, err := NewRuneFromStringWithSpacer(op.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}

	if op.Divisibility > MaxDivisibility {
		return nil, fmt.Errorf("%w: divisibility %d exceeds %d", ErrInvalidOperation, op.Divisibility, MaxDivisibility)
	}

	divisibility := op.Divisibility
	etching := &Etching{
		Divisibility: &divisibility,
		Rune:         r,
		Symbol:       op.Symbol,
		Turbo:        op.Turbo,
	}
	if spacers != 0 {
		etching.Spacers = &spacers
	}

	if op.Premine != nil && op.Premine.Sign() != 0 {
		etching.Premine = new(big.Int).Set(op.Premine)
	}

	if (op.MintAmount == nil) != (op.MintCap == nil) {
		return nil, fmt.Errorf("%w: mint amount and cap must be set together", ErrInvalidOperation)
	}

	if op.MintAmount != nil {
		etching.Terms = &Terms{
			Amount:      new(big.Int).Set(op.MintAmount),
			Cap:         new(big.Int).Set(op.MintCap),
			HeightStart: op.HeightStart,
			HeightEnd:   op.HeightEnd,
			OffsetStart: op.OffsetStart,
			OffsetEnd:   op.OffsetEnd,
		}
	}

	if err = etching.verify(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}

	return &Runestone{Etching: etching, Pointer: op.Pointer}, nil
}

// MintOperation describes mint of an existing rune.
type MintOperation struct {
	RuneID RuneID
	// Output receives minted units.
	Output uint32
	// Amount, if set, is additionally assigned to Output by an edict.
	Amount *big.Int
}

// Runestone returns mint runestone.
func (op MintOperation) Runestone() (*Runestone, error) {
	if !op.RuneID.IsValid() || op.RuneID.Block == 0 {
		return nil, fmt.Errorf("%w: invalid rune id %s", ErrInvalidOperation, op.RuneID)
	}

	mint, pointer := op.RuneID, op.Output
	runestone := &Runestone{Mint: &mint, Pointer: &pointer}
	if op.Amount != nil && op.Amount.Sign() > 0 {
		runestone.Edicts = []Edict{{RuneID: op.RuneID, Amount: new(big.Int).Set(op.Amount), Output: op.Output}}
	}

	return runestone, nil
}

// TransferOperation describes transfer of runes by edicts.
type TransferOperation struct {
	Edicts []Edict
	// Pointer receives unallocated runes, first non OP_RETURN output by default.
	Pointer *uint32
}

// Runestone returns transfer runestone.
func (op TransferOperation) Runestone() (*Runestone, error) {
	if len(op.Edicts) == 0 {
		return nil, fmt.Errorf("%w: no edicts", ErrInvalidOperation)
	}

	edicts := make([]Edict, 0, len(op.Edicts))
	for idx, edict := range op.Edicts {
		if !edict.RuneID.IsValid() || edict.Amount == nil || edict.Amount.Sign() < 0 {
			return nil, fmt.Errorf("%w: edict[%d] is malformed", ErrInvalidOperation, idx)
		}

		edicts = append(edicts, Edict{RuneID: edict.RuneID, Amount: new(big.Int).Set(edict.Amount), Output: edict.Output})
	}

	return &Runestone{Edicts: edicts, Pointer: op.Pointer}, nil
}

// Encoder produces runestone payloads for rune operations.
type Encoder struct{}

// EncodeOperation returns LEB128 runestone payload of the operation.
// The payload is placed verbatim into the OP_RETURN output after ProtocolTag.
func (Encoder) EncodeOperation(op Operation) ([]byte, error) {
	runestone, err := op.Runestone()
	if err != nil {
		return nil, err
	}

	return runestone.Serialize()
}
