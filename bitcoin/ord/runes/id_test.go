// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
)

func TestRuneID(t *testing.T) {
	t.Run("NewRuneIDFromString", func(t *testing.T) {
		tests := []struct {
			str      string
			expected runes.RuneID
			isErr    bool
		}{
			{"840000:3", runes.RuneID{Block: 840000, TxID: 3}, false},
			{"2585189:204", runes.RuneID{Block: 2585189, TxID: 204}, false},
			{"0:0", runes.RuneID{}, false},
			{"0:1", runes.RuneID{}, true},
			{"840000", runes.RuneID{}, true},
			{"a:1", runes.RuneID{}, true},
			{"1:4294967296", runes.RuneID{}, true},
		}
		for _, test := range tests {
			id, err := runes.NewRuneIDFromString(test.str)
			if test.isErr {
				require.Error(t, err, test.str)
				continue
			}

			require.NoError(t, err)
			require.Equal(t, test.expected, id)
			require.Equal(t, test.str, id.String())
		}
	})

	t.Run("delta", func(t *testing.T) {
		tests := []struct {
			prev, id, delta runes.RuneID
		}{
			{runes.RuneID{}, runes.RuneID{Block: 10, TxID: 5}, runes.RuneID{Block: 10, TxID: 5}},
			{runes.RuneID{Block: 10, TxID: 5}, runes.RuneID{Block: 10, TxID: 8}, runes.RuneID{Block: 0, TxID: 3}},
			{runes.RuneID{Block: 10, TxID: 5}, runes.RuneID{Block: 12, TxID: 1}, runes.RuneID{Block: 2, TxID: 1}},
		}
		for _, test := range tests {
			require.Equal(t, test.delta, test.id.Delta(test.prev))
			require.Equal(t, test.id, test.prev.Next(test.delta))
		}
	})
}
