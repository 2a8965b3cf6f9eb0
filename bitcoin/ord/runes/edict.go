// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"math/big"
	"slices"

	"github.com/BoostyLabs/runesmith/internal/sequencereader"
)

// Edict defines transfer values of the rune protocol.
type Edict struct {
	RuneID RuneID
	Amount *big.Int
	Output uint32
}

// ParseEdicts parses delta encoded Edicts from the rest of the integer sequence.
func ParseEdicts(sr *sequencereader.SequenceReader[*big.Int]) ([]Edict, error) {
	if sr.Len()%4 != 0 {
		return nil, ErrCenotaph
	}

	var (
		prev   RuneID
		edicts = make([]Edict, 0, sr.Len()/4)
	)
	for sr.HasNext() {
		values, _ := sr.NextN(4) // length is checked above.
		if !values[0].IsUint64() || !values[1].IsUint64() || values[1].Uint64() > 0xffffffff ||
			!values[3].IsUint64() || values[3].Uint64() > 0xffffffff {
			return nil, ErrCenotaph
		}

		id := prev.Next(RuneID{Block: values[0].Uint64(), TxID: uint32(values[1].Uint64())})
		edicts = append(edicts, Edict{
			RuneID: id,
			Amount: values[2],
			Output: uint32(values[3].Uint64()),
		})
		prev = id
	}

	return edicts, nil
}

// EdictsToIntSeq converts Edicts into delta encoded integer sequence.
// Edicts are sorted by rune id first; the input slice is not modified.
func EdictsToIntSeq(edicts []Edict) []*big.Int {
	sorted := slices.Clone(edicts)
	slices.SortStableFunc(sorted, func(a, b Edict) int {
		switch {
		case a.RuneID.Less(b.RuneID):
			return -1
		case b.RuneID.Less(a.RuneID):
			return 1
		}

		return 0
	})

	var (
		prev     RuneID
		sequence = make([]*big.Int, 0, len(sorted)*4)
	)
	for _, edict := range sorted {
		sequence = append(sequence, edict.RuneID.Delta(prev).ToIntSeq()...)
		sequence = append(sequence, new(big.Int).Set(edict.Amount), new(big.Int).SetUint64(uint64(edict.Output)))
		prev = edict.RuneID
	}

	return sequence
}
