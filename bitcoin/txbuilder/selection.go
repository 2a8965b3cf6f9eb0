// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"cmp"
	"errors"
	"slices"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
)

// ErrInvalidCoinsAmount defines that there are less coins than required for selection.
var ErrInvalidCoinsAmount = errors.New("invalid coins amount")

// SelectCoins selects coins locked by the descriptor to cover outputs and fee.
// Preselected inputs are always spent and their value counts towards the target.
// The fee estimate accounts for the change output when FeePolicy.ChangeAddress is set.
// Returns selected coins sorted by amount desc, empty if preselected inputs suffice.
func SelectCoins(preselected []Input, coins []bitcoin.Coin, desc descriptor.WitnessDescriptor, outputs []OutputIntent, policy FeePolicy, params *chaincfg.Params) ([]bitcoin.Coin, error) {
	pkScripts, transferAmount, err := outputScripts(outputs, params)
	if err != nil {
		return nil, err
	}

	if policy.ChangeAddress != "" {
		changeScript, err := ValueOutput{Address: policy.ChangeAddress}.PkScript(params)
		if err != nil {
			return nil, err
		}

		pkScripts = append(pkScripts, changeScript)
	}

	var (
		preselectedAmount uint64
		descriptors       = make([]descriptor.WitnessDescriptor, 0, len(preselected))
	)
	for _, input := range preselected {
		preselectedAmount += input.Coin.Amount
		descriptors = append(descriptors, input.Descriptor)
	}

	// need returns amount to cover by n selected coins.
	need := func(n int) uint64 {
		shape := Shape{Inputs: slices.Concat(descriptors, slices.Repeat([]descriptor.WitnessDescriptor{desc}, n)), Outputs: pkScripts}
		total := transferAmount + EstimateFee(shape, policy.SatoshiPerKVByte)

		return total - min(total, preselectedAmount)
	}

	if len(preselected) != 0 && need(0) == 0 {
		return []bitcoin.Coin{}, nil
	}

	sorted := slices.Clone(coins)
	slices.SortStableFunc(sorted, func(a, b bitcoin.Coin) int { return cmp.Compare(b.Amount, a.Amount) })

	for i := 1; i <= len(sorted); i++ {
		selected, _, err := SelectUTXO(sorted, need(i), i)
		if err != nil {
			if errors.Is(err, bitcoin.ErrInsufficientFunds) {
				continue
			}

			return nil, err
		}

		return selected, nil
	}

	return nil, NewInsufficientError(need(max(len(sorted), 1))+preselectedAmount, bitcoin.TotalAmount(coins)+preselectedAmount)
}

// SelectUTXO is a partly greedy selection algorithm for coins with 'requiredCoins' parameter.
// Coins must be sorted by amount desc. Returns list of selected coins with total amount.
func SelectUTXO(coins []bitcoin.Coin, minAmount uint64, requiredCoins int) (selected []bitcoin.Coin, totalAmount uint64, _ error) {
	if requiredCoins < 1 || len(coins) < requiredCoins {
		return nil, 0, ErrInvalidCoinsAmount
	}

	selected = make([]bitcoin.Coin, 0, requiredCoins)
	var (
		startIdx = 0
		usedIdxs = make([]int, 0, requiredCoins)
	)

	// find the closest by amount coin that is greater than minAmount or take the biggest possible.
	for idx, coin := range coins {
		if minAmount > coin.Amount {
			break
		}

		startIdx = idx
	}

	usedIdxs = append(usedIdxs, startIdx)
	totalAmount += coins[startIdx].Amount
	selected = append(selected, coins[startIdx])
	requiredCoins--

	// pick bigger amount if total amount do not cover minAmount, otherwise - the smallest to pass requiredCoins.
	for ; requiredCoins > 0; requiredCoins-- {
		idx := selectUnused(startIdx, len(coins), usedIdxs, totalAmount >= minAmount)
		if idx == -1 {
			return nil, 0, ErrInvalidCoinsAmount
		}

		usedIdxs = append(usedIdxs, idx)
		totalAmount += coins[idx].Amount
		selected = append(selected, coins[idx])
	}

	if minAmount > totalAmount {
		return nil, 0, NewInsufficientError(minAmount, totalAmount)
	}

	return selected, totalAmount, nil
}

// selectUnused returns first unused idx depending on search direction.
func selectUnused(start, end int, usedIdxs []int, reversed bool) int {
	if reversed {
		for idx := end - 1; idx >= start; idx-- {
			if !slices.Contains(usedIdxs, idx) {
				return idx
			}
		}
	} else {
		for idx := start; idx < end; idx++ {
			if !slices.Contains(usedIdxs, idx) {
				return idx
			}
		}
	}

	return -1
}
