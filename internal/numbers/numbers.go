// Copyright (C) 2022 Creditor Corp. Group.
// See LICENSE for copying information.

package numbers

import (
	"math/big"
)

// OneBigInt defies 1 as *big.Int type.
var OneBigInt = big.NewInt(1)

// MaxUInt128Value defines maximum value of uint128 type.
var MaxUInt128Value = new(big.Int).Sub(new(big.Int).Lsh(OneBigInt, 128), OneBigInt)

// IsGreater returns true is a > b.
func IsGreater(a, b *big.Int) bool {
	return a.Cmp(b) > 0
}

// IsLess returns true is a < b.
func IsLess(a, b *big.Int) bool {
	return a.Cmp(b) < 0
}

// IsUint128 returns true if the number is not nil and fits into uint128 range.
func IsUint128(num *big.Int) bool {
	return num != nil && num.Sign() >= 0 && !IsGreater(num, MaxUInt128Value)
}

// SumUint64 adds values and reports false on overflow.
func SumUint64(values ...uint64) (uint64, bool) {
	var total uint64
	for _, v := range values {
		next := total + v
		if next < total {
			return 0, false
		}

		total = next
	}

	return total, true
}

// CeilDiv returns a / b rounded up. b must be positive.
func CeilDiv(a, b uint64) uint64 {
	quo := a / b
	if a%b != 0 {
		quo++
	}

	return quo
}
