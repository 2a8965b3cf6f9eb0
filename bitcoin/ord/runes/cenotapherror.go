// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"errors"
	"fmt"
)

// ErrCenotaph defines runestone which violates the protocol rules.
var ErrCenotaph = errors.New("cenotaph")

// CenotaphReason defines which part of the runestone is malformed.
type CenotaphReason string

const (
	// PointerCenotaph describes invalid pointer values.
	PointerCenotaph CenotaphReason = "pointer"
	// EtchingCenotaph describes invalid etching values.
	EtchingCenotaph CenotaphReason = "etching"
	// MintCenotaph describes invalid mint values.
	MintCenotaph CenotaphReason = "mint"
	// EdictsCenotaph describes invalid edict values.
	EdictsCenotaph CenotaphReason = "edicts"
	// FieldsCenotaph describes unrecognized or malformed fields and flags.
	FieldsCenotaph CenotaphReason = "fields"
)

// CenotaphError provides wide description of the cenotaph.
type CenotaphError struct {
	Reason  CenotaphReason
	Message string
}

// newCenotaphError is a constructor for CenotaphError.
func newCenotaphError(reason CenotaphReason, format string, args ...any) *CenotaphError {
	return &CenotaphError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Error returns error description.
func (e *CenotaphError) Error() string {
	return fmt.Sprintf("cenotaph (%s): %s", e.Reason, e.Message)
}

// Is implements comparator method for [errors] package.
func (e *CenotaphError) Is(target error) bool {
	return target == ErrCenotaph
}
