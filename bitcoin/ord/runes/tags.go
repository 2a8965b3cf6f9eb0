// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"math/big"
)

// Tag defines field tag of the runestone message.
type Tag uint64

const (
	// TagBody defines that all next integers are edicts.
	TagBody Tag = 0
	// TagDivisibility defines Divisibility tag.
	TagDivisibility Tag = 1
	// TagFlags defines Flags tag.
	TagFlags Tag = 2
	// TagSpacers defines Spacers tag.
	TagSpacers Tag = 3
	// TagRune defines Rune tag.
	TagRune Tag = 4
	// TagSymbol defines Symbol tag.
	TagSymbol Tag = 5
	// TagPremine defines Premine tag.
	TagPremine Tag = 6
	// TagCap defines Cap tag.
	TagCap Tag = 8
	// TagAmount defines Amount tag.
	TagAmount Tag = 10
	// TagHeightStart defines HeightStart tag.
	TagHeightStart Tag = 12
	// TagHeightEnd defines HeightEnd tag.
	TagHeightEnd Tag = 14
	// TagOffsetStart defines OffsetStart tag.
	TagOffsetStart Tag = 16
	// TagOffsetEnd defines OffsetEnd tag.
	TagOffsetEnd Tag = 18
	// TagMint defines Mint tag.
	TagMint Tag = 20
	// TagPointer defines Pointer tag.
	TagPointer Tag = 22
	// TagCenotaph defines Cenotaph tag.
	TagCenotaph Tag = 126
	// TagNop defines Nop tag.
	TagNop Tag = 127
)

// BigInt returns Tag as big.Int.
func (t Tag) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(t))
}

// IsEven returns true for tags which must be recognized by the decoder.
func (t Tag) IsEven() bool {
	return t%2 == 0
}

// Flag defines bit position in the Flags field.
type Flag uint

const (
	// FlagEtching defines that the transaction contains an etching.
	FlagEtching Flag = 0
	// FlagTerms defines that the transaction's etching has open mint terms.
	FlagTerms Flag = 1
	// FlagTurbo defines that the transaction's etching has set turbo mode.
	FlagTurbo Flag = 2
	// FlagCenotaph defines unrecognized flag which produces cenotaph.
	FlagCenotaph Flag = 127
)

// Set sets the flag into the value, returns mutated value.
func (f Flag) Set(value *big.Int) *big.Int {
	return value.SetBit(value, int(f), 1)
}

// Take reports if the flag is set and clears it in the value.
func (f Flag) Take(value *big.Int) bool {
	if value.Bit(int(f)) == 0 {
		return false
	}

	value.SetBit(value, int(f), 0)

	return true
}
