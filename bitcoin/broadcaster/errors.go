// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package broadcaster

import (
	"fmt"
	"strings"

	"github.com/BoostyLabs/runesmith/bitcoin"
)

// EndpointError describes failed submission to a single endpoint.
type EndpointError struct {
	Endpoint string
	// Status is HTTP status code, zero if no response was received.
	Status  int
	Message string
	Err     error
}

// Error returns error description.
func (e *EndpointError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("endpoint %s: %s", e.Endpoint, e.Message)
	}

	return fmt.Sprintf("endpoint %s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// Unwrap returns underlying transport error.
func (e *EndpointError) Unwrap() error {
	return e.Err
}

// BroadcastExhaustedError describes that every endpoint rejected the transaction.
type BroadcastExhaustedError struct {
	Attempts []*EndpointError
}

// Error returns error description.
func (e *BroadcastExhaustedError) Error() string {
	messages := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		messages = append(messages, attempt.Error())
	}

	return fmt.Sprintf("%s after %d attempts: %s", bitcoin.ErrBroadcastExhausted, len(e.Attempts), strings.Join(messages, "; "))
}

// Is implements comparator method for [errors] package.
func (e *BroadcastExhaustedError) Is(target error) bool {
	return target == bitcoin.ErrBroadcastExhausted
}
