// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes_test

import (
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/internal/numbers"
)

func TestRunestone(t *testing.T) {
	pointer := func(value uint32) *uint32 { return &value }
	mustRune := func(value int64) *runes.Rune {
		r, err := runes.NewRuneFromNumber(big.NewInt(value))
		require.NoError(t, err)
		return r
	}
	divisibility10, divisibility4 := byte(10), byte(4)
	spacers0, spacers256 := uint32(0), uint32(256)
	symbolM, symbolDollar := rune(77), rune(36)

	vectors := []struct {
		name      string
		script    string
		runestone *runes.Runestone
		canonical bool
	}{
		{
			name:   "edict only",
			script: "6a5d09008fe69d0154d70e01",
			runestone: &runes.Runestone{
				Edicts: []runes.Edict{{RuneID: runes.RuneID{Block: 2585359, TxID: 84}, Amount: big.NewInt(1879), Output: 1}},
			},
			canonical: true,
		},
		{
			name:      "mint only",
			script:    "6a5d0814e5e49d0114cc01",
			runestone: &runes.Runestone{Mint: &runes.RuneID{Block: 2585189, TxID: 204}},
			canonical: true,
		},
		{
			name:      "mint with pointer",
			script:    "6a5d0a14b0dd9d011482011601",
			runestone: &runes.Runestone{Mint: &runes.RuneID{Block: 2584240, TxID: 130}, Pointer: pointer(1)},
			canonical: true,
		},
		{
			name:      "pointer only",
			script:    "6a5d02160e",
			runestone: &runes.Runestone{Pointer: pointer(14)},
			canonical: true,
		},
		{
			name:   "etching only",
			script: "6a5d15010a0201030004dedfd1e58fd617054d0680b19164",
			runestone: &runes.Runestone{
				Etching: &runes.Etching{
					Divisibility: &divisibility10,
					Premine:      big.NewInt(210000000),
					Rune:         mustRune(104114246938590),
					Spacers:      &spacers0,
					Symbol:       &symbolM,
				},
			},
			canonical: true,
		},
		{
			name:   "etching with pointer",
			script: "6a5d1a020104fae2a3e9ac8cb9d814010403800205240680c2d72f1601",
			runestone: &runes.Runestone{
				Etching: &runes.Etching{
					Divisibility: &divisibility4,
					Premine:      big.NewInt(100000000),
					Rune:         mustRune(1490942589659574650),
					Spacers:      &spacers256,
					Symbol:       &symbolDollar,
				},
				Pointer: pointer(1),
			},
		},
	}

	t.Run("parse script", func(t *testing.T) {
		for _, vector := range vectors {
			t.Run(vector.name, func(t *testing.T) {
				script, err := hex.DecodeString(vector.script)
				require.NoError(t, err)
				require.True(t, runes.IsPossibleRunestone(script))

				parsed, err := runes.ParseRunestone(script)
				require.NoError(t, err)
				require.Equal(t, vector.runestone, parsed)
			})
		}
	})

	t.Run("into script", func(t *testing.T) {
		for _, vector := range vectors {
			t.Run(vector.name, func(t *testing.T) {
				script, err := vector.runestone.IntoScript()
				require.NoError(t, err)
				if vector.canonical {
					require.Equal(t, vector.script, hex.EncodeToString(script))
				}

				parsed, err := runes.ParseRunestone(script)
				require.NoError(t, err)
				require.Equal(t, vector.runestone, parsed)
			})
		}
	})

	t.Run("etching with terms and turbo round trip", func(t *testing.T) {
		height, offset := uint64(900000), uint64(100)
		runestone := &runes.Runestone{
			Etching: &runes.Etching{
				Rune: mustRune(104114246938590),
				Terms: &runes.Terms{
					Amount:      big.NewInt(1000),
					Cap:         big.NewInt(21000),
					HeightStart: &height,
					OffsetEnd:   &offset,
				},
				Turbo: true,
			},
			Pointer: pointer(1),
		}

		payload, err := runestone.Serialize()
		require.NoError(t, err)

		parsed, err := runes.Decipher(payload)
		require.NoError(t, err)
		require.Equal(t, runestone, parsed)
	})

	t.Run("cenotaphs", func(t *testing.T) {
		tests := []struct {
			name    string
			payload string
		}{
			{"unrecognized even tag", "1801"},
			{"unrecognized flag", "0208"},
			{"mint without tx", "1401"},
			{"invalid mint id", "14001401"},
			{"truncated field", "16"},
			{"truncated edict", "008fe69d0154d70e0115"},
			{"pointer overflow", "168080808010"},
			{"truncated varint", "80"},
		}
		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				payload, err := hex.DecodeString(test.payload)
				require.NoError(t, err)

				_, err = runes.Decipher(payload)
				require.ErrorIs(t, err, runes.ErrCenotaph)
			})
		}
	})

	t.Run("unrecognized odd tag is ignored", func(t *testing.T) {
		parsed, err := runes.Decipher([]byte{0x19, 0x01, 0x16, 0x02})
		require.NoError(t, err)
		require.Equal(t, &runes.Runestone{Pointer: pointer(2)}, parsed)
	})

	t.Run("malformed odd field is ignored", func(t *testing.T) {
		parsed, err := runes.Decipher([]byte{0x02, 0x01, 0x01, 0x27})
		require.NoError(t, err)
		require.NotNil(t, parsed.Etching)
		require.Nil(t, parsed.Etching.Divisibility)
	})

	t.Run("etching fields without flag are dropped", func(t *testing.T) {
		parsed, err := runes.Decipher([]byte{0x01, 0x02})
		require.NoError(t, err)
		require.Nil(t, parsed.Etching)
	})

	t.Run("ParseScript", func(t *testing.T) {
		_, err := runes.ParseScript([]byte{0x6a, 0x01, 0x00})
		require.ErrorIs(t, err, runes.ErrNotRunestone)

		_, err = runes.ParseScript(nil)
		require.ErrorIs(t, err, runes.ErrNotRunestone)

		_, err = runes.ParseScript([]byte{0x6a, 0x5d, 0x51})
		require.ErrorIs(t, err, runes.ErrCenotaph)

		payload, err := runes.ParseScript([]byte{0x6a, 0x5d, 0x01, 0x16, 0x01, 0x02})
		require.NoError(t, err)
		require.Equal(t, []byte{0x16, 0x02}, payload)
	})

	t.Run("Verify", func(t *testing.T) {
		edicts := func(output uint32) []runes.Edict {
			return []runes.Edict{{RuneID: runes.RuneID{Block: 1, TxID: 1}, Amount: big.NewInt(1), Output: output}}
		}
		tests := []struct {
			name      string
			runestone *runes.Runestone
			reason    runes.CenotaphReason
		}{
			{"pointer in range", &runes.Runestone{Pointer: pointer(1)}, ""},
			{"pointer out of range", &runes.Runestone{Pointer: pointer(2)}, runes.PointerCenotaph},
			{"edict to all outputs", &runes.Runestone{Edicts: edicts(2)}, ""},
			{"edict out of range", &runes.Runestone{Edicts: edicts(3)}, runes.EdictsCenotaph},
			{"invalid mint", &runes.Runestone{Mint: &runes.RuneID{TxID: 1}}, runes.MintCenotaph},
			{
				"supply overflow",
				&runes.Runestone{Etching: &runes.Etching{
					Premine: numbers.MaxUInt128Value,
					Terms:   &runes.Terms{Amount: big.NewInt(1), Cap: big.NewInt(1)},
				}},
				runes.EtchingCenotaph,
			},
		}
		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				err := test.runestone.Verify(2)
				if test.reason == "" {
					require.NoError(t, err)
					return
				}

				require.ErrorIs(t, err, runes.ErrCenotaph)
				var cenotaph *runes.CenotaphError
				require.True(t, errors.As(err, &cenotaph))
				require.Equal(t, test.reason, cenotaph.Reason)
			})
		}
	})
}
