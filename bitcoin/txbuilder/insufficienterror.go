// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"

	"github.com/BoostyLabs/runesmith/bitcoin"
)

// InsufficientError is the error type to describe insufficient balance errors with details.
type InsufficientError struct {
	Need uint64
	Have uint64
}

// NewInsufficientError is a constructor for InsufficientError.
func NewInsufficientError(need, have uint64) *InsufficientError {
	return &InsufficientError{Need: need, Have: have}
}

// Error returns error description.
func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d sat, have %d sat", e.Need, e.Have)
}

// Is implements comparator method for [errors] package.
func (e *InsufficientError) Is(target error) bool {
	return target == bitcoin.ErrInsufficientFunds
}

// DustOutputError describes value output below the dust threshold.
type DustOutputError struct {
	Index  int
	Amount uint64
}

// Error returns error description.
func (e *DustOutputError) Error() string {
	return fmt.Sprintf("output #%d value %d sat is below dust threshold %d sat", e.Index, e.Amount, bitcoin.DustThreshold)
}

// Is implements comparator method for [errors] package.
func (e *DustOutputError) Is(target error) bool {
	return target == bitcoin.ErrDustOutput
}
