// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package sequencereader

import (
	"errors"
)

// ErrSequenceEnded defines that there are no more items in the sequence.
var ErrSequenceEnded = errors.New("the sequence is ended")

// SequenceReader defines the simplest forward-only reader for sequences.
type SequenceReader[T any] struct {
	items []T
	pos   int
}

// New is a constructor for SequenceReader.
func New[T any](seq []T) *SequenceReader[T] {
	return &SequenceReader[T]{items: seq}
}

// HasNext returns true is sequence is not ended.
func (sr *SequenceReader[T]) HasNext() bool {
	return sr.pos < len(sr.items)
}

// Next returns next element of the sequence.
func (sr *SequenceReader[T]) Next() (T, error) {
	if !sr.HasNext() {
		var zero T
		return zero, ErrSequenceEnded
	}

	sr.pos++

	return sr.items[sr.pos-1], nil
}

// NextN returns next n elements of the sequence, or error if less are left.
// The reader position is not moved on error.
func (sr *SequenceReader[T]) NextN(n int) ([]T, error) {
	if n < 0 || sr.Len() < n {
		return nil, ErrSequenceEnded
	}

	chunk := sr.items[sr.pos : sr.pos+n]
	sr.pos += n

	return chunk, nil
}

// Len returns how many items are left.
func (sr *SequenceReader[T]) Len() int {
	return len(sr.items) - sr.pos
}
