// Copyright (C) 2022 Creditor Corp. Group.
// See LICENSE for copying information.

package numbers_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/runesmith/internal/numbers"
)

func TestNumbers(t *testing.T) {
	t.Run("IsGreater&IsLess", func(t *testing.T) {
		require.True(t, numbers.IsGreater(big.NewInt(100), big.NewInt(-100)))
		require.False(t, numbers.IsGreater(big.NewInt(-100), big.NewInt(100)))
		require.True(t, numbers.IsLess(big.NewInt(-100), big.NewInt(100)))
		require.False(t, numbers.IsLess(big.NewInt(100), big.NewInt(100)))
	})

	t.Run("MaxUint128Value", func(t *testing.T) {
		for i := 0; i < 128; i++ {
			require.EqualValues(t, 1, numbers.MaxUInt128Value.Bit(i))
		}
		require.EqualValues(t, 0, numbers.MaxUInt128Value.Bit(128))
	})

	t.Run("IsUint128", func(t *testing.T) {
		require.True(t, numbers.IsUint128(big.NewInt(0)))
		require.True(t, numbers.IsUint128(numbers.MaxUInt128Value))
		require.False(t, numbers.IsUint128(nil))
		require.False(t, numbers.IsUint128(big.NewInt(-1)))
		require.False(t, numbers.IsUint128(new(big.Int).Add(numbers.MaxUInt128Value, numbers.OneBigInt)))
	})

	t.Run("SumUint64", func(t *testing.T) {
		sum, ok := numbers.SumUint64(1, 2, 3)
		require.True(t, ok)
		require.EqualValues(t, 6, sum)

		_, ok = numbers.SumUint64(math.MaxUint64, 1)
		require.False(t, ok)
	})

	t.Run("CeilDiv", func(t *testing.T) {
		tests := []struct{ a, b, res uint64 }{
			{0, 4, 0},
			{1, 4, 1},
			{4, 4, 1},
			{5, 4, 2},
			{1999, 1000, 2},
		}
		for _, test := range tests {
			require.Equal(t, test.res, numbers.CeilDiv(test.a, test.b))
		}
	})
}
