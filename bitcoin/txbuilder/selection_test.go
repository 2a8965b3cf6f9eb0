// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/txbuilder"
)

func TestSelection(t *testing.T) {
	t.Run("SelectUTXO", func(t *testing.T) {
		coins := []bitcoin.Coin{ // sorted by amount coins.
			{Amount: 150000},
			{Amount: 75000},
			{Amount: 25000},
			{Amount: 10000},
			{Amount: 5000},
			{Amount: 546},
		}

		tests := []struct {
			minAmount     uint64
			totalAmount   uint64
			requiredCoins int
			coins         []bitcoin.Coin
			err           error
		}{
			{150000, 150000, 1, []bitcoin.Coin{coins[0]}, nil},
			{149000, 150000, 1, []bitcoin.Coin{coins[0]}, nil},
			{75000, 75000, 1, []bitcoin.Coin{coins[1]}, nil},
			{74000, 75000, 1, []bitcoin.Coin{coins[1]}, nil},
			{150000, 150546, 2, []bitcoin.Coin{coins[0], coins[5]}, nil},
			{10020, 25546, 2, []bitcoin.Coin{coins[2], coins[5]}, nil},
			{11000, 30546, 3, []bitcoin.Coin{coins[2], coins[5], coins[4]}, nil},
			{255000, 0, 2, nil, bitcoin.ErrInsufficientFunds},
			{255000, 260000, 4, []bitcoin.Coin{coins[0], coins[1], coins[2], coins[3]}, nil},
			{255000, 260546, 5, []bitcoin.Coin{coins[0], coins[1], coins[2], coins[3], coins[5]}, nil},
			{200000, 0, 1, nil, bitcoin.ErrInsufficientFunds},
			{200000, 0, 8, nil, txbuilder.ErrInvalidCoinsAmount},
			{1, 0, 0, nil, txbuilder.ErrInvalidCoinsAmount},
		}
		for _, test := range tests {
			selected, totalAmount, err := txbuilder.SelectUTXO(coins, test.minAmount, test.requiredCoins)
			if test.err != nil {
				require.ErrorIs(t, err, test.err, test.minAmount)
				continue
			}

			require.NoError(t, err, test.minAmount)
			require.Equal(t, test.coins, selected, test.minAmount)
			require.Equal(t, test.totalAmount, totalAmount, test.minAmount)
		}
	})

	t.Run("SelectCoins", func(t *testing.T) {
		f := newFixture(t)
		outputs := []txbuilder.OutputIntent{f.data, f.payment}
		policy := txbuilder.FeePolicy{SatoshiPerKVByte: 1000, ChangeAddress: f.p2wpkh.Address()}

		t.Run("closest single coin", func(t *testing.T) {
			// 546 + fee of 11 + 68 + 14 + 43 + 31 vB.
			selected, err := txbuilder.SelectCoins(
				nil, []bitcoin.Coin{coin(1, 700), coin(2, 10000), coin(3, 5000)},
				f.p2wpkh, outputs, policy, f.params,
			)
			require.NoError(t, err)
			require.Equal(t, []bitcoin.Coin{coin(3, 5000)}, selected)
		})

		t.Run("several coins", func(t *testing.T) {
			selected, err := txbuilder.SelectCoins(
				nil, []bitcoin.Coin{coin(1, 600), coin(2, 600)},
				f.p2wpkh, outputs, policy, f.params,
			)
			require.NoError(t, err)
			require.Len(t, selected, 2)
		})

		t.Run("insufficient", func(t *testing.T) {
			_, err := txbuilder.SelectCoins(
				nil, []bitcoin.Coin{coin(1, 300), coin(2, 200)},
				f.p2wpkh, outputs, policy, f.params,
			)
			require.ErrorIs(t, err, bitcoin.ErrInsufficientFunds)

			var insufficient *txbuilder.InsufficientError
			require.ErrorAs(t, err, &insufficient)
			require.EqualValues(t, 546+11+2*68+14+43+31, insufficient.Need)
			require.EqualValues(t, 500, insufficient.Have)
		})

		t.Run("preselected inputs", func(t *testing.T) {
			runeCoin := inputs(f.p2tr, coin(9, 546))

			// 546 rune coin covers the output, fee of 11 + 58 + 68 + 14 + 43 + 31 vB is left.
			selected, err := txbuilder.SelectCoins(
				runeCoin, []bitcoin.Coin{coin(1, 224), coin(2, 225), coin(3, 5000)},
				f.p2wpkh, outputs, policy, f.params,
			)
			require.NoError(t, err)
			require.Equal(t, []bitcoin.Coin{coin(2, 225)}, selected)

			selected, err = txbuilder.SelectCoins(
				inputs(f.p2tr, coin(9, 5000)), []bitcoin.Coin{coin(3, 5000)},
				f.p2wpkh, outputs, policy, f.params,
			)
			require.NoError(t, err)
			require.Empty(t, selected)
		})

		t.Run("no coins", func(t *testing.T) {
			_, err := txbuilder.SelectCoins(nil, nil, f.p2wpkh, outputs, policy, f.params)
			require.ErrorIs(t, err, bitcoin.ErrInsufficientFunds)
		})
	})
}
