// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"errors"
)

var (
	// ErrNetwork defines transport failure while talking to a remote endpoint.
	ErrNetwork = errors.New("network error")

	// ErrTimeout defines that awaited condition was not reached in time.
	ErrTimeout = errors.New("timeout")

	// ErrInsufficientFunds defines that inputs do not cover outputs and fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDustOutput defines that an output value is below the dust threshold.
	ErrDustOutput = errors.New("dust output")

	// ErrUnsupportedDescriptor defines that a descriptor or signing scheme can not be handled.
	ErrUnsupportedDescriptor = errors.New("unsupported descriptor")

	// ErrSignatureVerificationFailed defines that produced signature does not match the input digest.
	ErrSignatureVerificationFailed = errors.New("signature verification failed")

	// ErrIncompleteSignatures defines that some inputs lack verified signatures.
	ErrIncompleteSignatures = errors.New("incomplete signatures")

	// ErrBroadcastExhausted defines that every broadcast endpoint rejected the transaction.
	ErrBroadcastExhausted = errors.New("broadcast endpoints exhausted")

	// ErrCoinReserved defines that a coin is already used by another in-flight transaction.
	ErrCoinReserved = errors.New("coin is reserved")
)
