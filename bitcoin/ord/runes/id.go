// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// RuneID defines the id of the rune: height of the etching block and index of the etching transaction.
type RuneID struct {
	Block uint64
	TxID  uint32
}

// NewRuneIDFromString returns RuneID parsed from "block:tx" string.
func NewRuneIDFromString(s string) (RuneID, error) {
	blockStr, txStr, ok := strings.Cut(s, ":")
	if !ok {
		return RuneID{}, fmt.Errorf("invalid rune id format: %s", s)
	}

	block, err := strconv.ParseUint(blockStr, 10, 64)
	if err != nil {
		return RuneID{}, fmt.Errorf("invalid rune id block: %w", err)
	}

	txID, err := strconv.ParseUint(txStr, 10, 32)
	if err != nil {
		return RuneID{}, fmt.Errorf("invalid rune id tx: %w", err)
	}

	id := RuneID{Block: block, TxID: uint32(txID)}
	if !id.IsValid() {
		return RuneID{}, fmt.Errorf("invalid rune id: %s", s)
	}

	return id, nil
}

// IsValid returns false for ids pointing to a transaction in the zero block.
func (id RuneID) IsValid() bool {
	return id.Block != 0 || id.TxID == 0
}

// Delta returns id relative to the previous one for edicts delta encoding.
func (id RuneID) Delta(prev RuneID) RuneID {
	if id.Block == prev.Block {
		return RuneID{Block: 0, TxID: id.TxID - prev.TxID}
	}

	return RuneID{Block: id.Block - prev.Block, TxID: id.TxID}
}

// Next produces next RuneID from delta encoding.
func (id RuneID) Next(delta RuneID) RuneID {
	if delta.Block == 0 {
		return RuneID{Block: id.Block, TxID: id.TxID + delta.TxID}
	}

	return RuneID{Block: id.Block + delta.Block, TxID: delta.TxID}
}

// Less returns true if id goes before other one in block order.
func (id RuneID) Less(other RuneID) bool {
	if id.Block != other.Block {
		return id.Block < other.Block
	}

	return id.TxID < other.TxID
}

// String returns RuneID as string.
func (id RuneID) String() string {
	return fmt.Sprintf("%d:%d", id.Block, id.TxID)
}

// ToIntSeq returns RuneID as integer sequence.
func (id RuneID) ToIntSeq() []*big.Int {
	return []*big.Int{new(big.Int).SetUint64(id.Block), new(big.Int).SetUint64(uint64(id.TxID))}
}
