// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
)

func TestEncoder(t *testing.T) {
	var encoder runes.Encoder

	t.Run("etch", func(t *testing.T) {
		payload, err := encoder.EncodeOperation(runes.EtchOperation{Name: "A", Divisibility: 1})
		require.NoError(t, err)
		require.Equal(t, "010102010400", hex.EncodeToString(payload))
	})

	t.Run("etch with terms and spacers", func(t *testing.T) {
		symbol, start, end, pointer := '$', uint64(100), uint64(200), uint32(1)
		op := runes.EtchOperation{
			Name:         "HELLO•RUNESMITH",
			Symbol:       &symbol,
			Divisibility: 2,
			Premine:      big.NewInt(1000),
			MintAmount:   big.NewInt(100),
			MintCap:      big.NewInt(10),
			HeightStart:  &start,
			HeightEnd:    &end,
			Turbo:        true,
			Pointer:      &pointer,
		}

		payload, err := encoder.EncodeOperation(op)
		require.NoError(t, err)

		runestone, err := runes.Decipher(payload)
		require.NoError(t, err)
		require.NoError(t, runestone.Verify(2))
		require.Equal(t, "HELLORUNESMITH", runestone.Etching.Rune.String())
		require.EqualValues(t, 0b10000, *runestone.Etching.Spacers)
		require.Equal(t, symbol, *runestone.Etching.Symbol)
		require.EqualValues(t, 2, *runestone.Etching.Divisibility)
		require.Equal(t, big.NewInt(1000), runestone.Etching.Premine)
		require.Equal(t, big.NewInt(100), runestone.Etching.Terms.Amount)
		require.Equal(t, big.NewInt(10), runestone.Etching.Terms.Cap)
		require.Equal(t, start, *runestone.Etching.Terms.HeightStart)
		require.Equal(t, end, *runestone.Etching.Terms.HeightEnd)
		require.Nil(t, runestone.Etching.Terms.OffsetStart)
		require.True(t, runestone.Etching.Turbo)
		require.Equal(t, pointer, *runestone.Pointer)

		supply, ok := runestone.Etching.Supply()
		require.True(t, ok)
		require.Equal(t, big.NewInt(2000), supply)
	})

	t.Run("etch errors", func(t *testing.T) {
		tests := []struct {
			name string
			op   runes.EtchOperation
		}{
			{"invalid name", runes.EtchOperation{Name: "hello"}},
			{"reserved name", runes.EtchOperation{Name: "AAAAAAAAAAAAAAAAAAAAAAAAAAAA"}},
			{"divisibility", runes.EtchOperation{Name: "ABC", Divisibility: 39}},
			{"cap without amount", runes.EtchOperation{Name: "ABC", MintCap: big.NewInt(1)}},
		}
		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				_, err := encoder.EncodeOperation(test.op)
				require.ErrorIs(t, err, runes.ErrInvalidOperation)
			})
		}
	})

	t.Run("mint", func(t *testing.T) {
		payload, err := encoder.EncodeOperation(runes.MintOperation{RuneID: runes.RuneID{Block: 2584240, TxID: 130}, Output: 1})
		require.NoError(t, err)
		require.Equal(t, "14b0dd9d011482011601", hex.EncodeToString(payload))
	})

	t.Run("mint with edict", func(t *testing.T) {
		id := runes.RuneID{Block: 2585189, TxID: 204}
		payload, err := encoder.EncodeOperation(runes.MintOperation{RuneID: id, Output: 0, Amount: big.NewInt(1879)})
		require.NoError(t, err)

		runestone, err := runes.Decipher(payload)
		require.NoError(t, err)
		require.Equal(t, id, *runestone.Mint)
		require.EqualValues(t, 0, *runestone.Pointer)
		require.Equal(t, []runes.Edict{{RuneID: id, Amount: big.NewInt(1879), Output: 0}}, runestone.Edicts)
	})

	t.Run("mint errors", func(t *testing.T) {
		_, err := encoder.EncodeOperation(runes.MintOperation{})
		require.ErrorIs(t, err, runes.ErrInvalidOperation)
	})

	t.Run("transfer", func(t *testing.T) {
		edicts := []runes.Edict{{RuneID: runes.RuneID{Block: 2585359, TxID: 84}, Amount: big.NewInt(1879), Output: 1}}
		payload, err := encoder.EncodeOperation(runes.TransferOperation{Edicts: edicts})
		require.NoError(t, err)
		require.Equal(t, "008fe69d0154d70e01", hex.EncodeToString(payload))

		_, err = encoder.EncodeOperation(runes.TransferOperation{})
		require.ErrorIs(t, err, runes.ErrInvalidOperation)
	})
}
