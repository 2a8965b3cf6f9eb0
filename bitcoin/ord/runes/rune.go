// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"errors"
	"math/big"
	"slices"
	"strings"

	"github.com/BoostyLabs/runesmith/internal/numbers"
)

// DefaultSpacer defines default spacer for Rune name.
const DefaultSpacer = '•'

// AlternativeSpacer defines ASCII spacer accepted in rune names.
const AlternativeSpacer = '.'

// MaxSpacers defines max value for spacers.
const MaxSpacers uint32 = 0b00000111_11111111_11111111_11111111

// base26 defines 26 as *big.Int.
var base26 = big.NewInt(26)

// FirstReservedRuneNameInt defines the first reserved rune name AAAAAAAAAAAAAAAAAAAAAAAAAAA as number.
var FirstReservedRuneNameInt, _ = new(big.Int).SetString("6402364363415443603228541259936211926", 10)

var (
	// ErrInvalidRuneName defines malformed rune name.
	ErrInvalidRuneName = errors.New("invalid rune name")
	// ErrReservedRuneName defines rune name from the reserved range.
	ErrReservedRuneName = errors.New("reserved rune name")
)

// Rune defines rune names and encodes as modified base-26 integers.
type Rune struct {
	value *big.Int
}

// NewRuneFromString creates new Rune from string name.
// NOTE: Valid symbols are A-Z only.
func NewRuneFromString(name string) (*Rune, error) {
	if name == "" {
		return nil, ErrInvalidRuneName
	}

	value := big.NewInt(0)
	for i, c := range name {
		if c < 'A' || c > 'Z' {
			return nil, ErrInvalidRuneName
		}
		if i > 0 {
			value.Add(value, numbers.OneBigInt)
		}

		value.Mul(value, base26)
		value.Add(value, big.NewInt(int64(c-'A')))
	}

	if !numbers.IsUint128(value) {
		return nil, ErrInvalidRuneName
	}
	if !numbers.IsLess(value, FirstReservedRuneNameInt) {
		return nil, ErrReservedRuneName
	}

	return &Rune{value: value}, nil
}

// NewRuneFromStringWithSpacer creates new Rune from spaced name and returns spacers bit field.
// Both DefaultSpacer and AlternativeSpacer are accepted; spacers must separate letters.
func NewRuneFromStringWithSpacer(spacedName string) (*Rune, uint32, error) {
	var (
		name    strings.Builder
		spacers uint32
		letters int
		spaced  bool
	)
	for _, char := range spacedName {
		if char == DefaultSpacer || char == AlternativeSpacer {
			if letters == 0 || spaced {
				return nil, 0, ErrInvalidRuneName
			}

			spacers |= 1 << (letters - 1)
			spaced = true

			continue
		}

		name.WriteRune(char)
		letters++
		spaced = false
	}

	if spaced || spacers > MaxSpacers {
		return nil, 0, ErrInvalidRuneName
	}

	r, err := NewRuneFromString(name.String())
	if err != nil {
		return nil, 0, err
	}

	return r, spacers, nil
}

// NewRuneFromNumber creates new Rune from number.
func NewRuneFromNumber(number *big.Int) (*Rune, error) {
	if !numbers.IsUint128(number) {
		return nil, ErrInvalidRuneName
	}

	return &Rune{value: new(big.Int).Set(number)}, nil
}

// Value returns Rune name as number.
func (r *Rune) Value() *big.Int {
	return new(big.Int).Set(r.value)
}

// String returns Rune name as string.
func (r *Rune) String() string {
	value := new(big.Int).Add(r.value, numbers.OneBigInt)

	var symbols []byte
	for value.Sign() > 0 {
		value.Sub(value, numbers.OneBigInt)
		idx := new(big.Int).Mod(value, base26)
		symbols = append(symbols, byte('A'+idx.Int64()))
		value.Div(value, base26)
	}

	slices.Reverse(symbols)

	return string(symbols)
}

// StringWithSpacers returns Rune name with DefaultSpacer inserted by spacers bit field.
func (r *Rune) StringWithSpacers(spacers uint32) string {
	name := r.String()

	var spaced strings.Builder
	for idx, char := range name {
		spaced.WriteRune(char)
		if idx < len(name)-1 && spacers&(1<<idx) != 0 {
			spaced.WriteRune(DefaultSpacer)
		}
	}

	return spaced.String()
}

// Commitment returns rune name commitment for the etching inscription:
// little-endian value bytes with trailing zeros omitted.
func (r *Rune) Commitment() []byte {
	commitment := r.value.Bytes()
	slices.Reverse(commitment)

	return commitment
}

const (
	// StartNameLength defines minimum rune name length before the unlock schedule starts.
	StartNameLength = 13
	// UnlockNamePeriod defines number of blocks after which one more letter is unlocked.
	UnlockNamePeriod uint64 = 17500
)

// ProtocolStartHeight returns the first block where runes are active for the network.
// Networks other than mainnet and testnet3 (testnet4, signet, regtest) activate at genesis.
func ProtocolStartHeight(network string) uint64 {
	switch strings.ToLower(network) {
	case "mainnet", "main", "bitcoin":
		return 840000
	case "testnet3", "testnet":
		return 2520000
	default:
		return 0
	}
}

// RuneReserve returns allocated rune name in case it was omitted in etching.
func RuneReserve(runeID RuneID) *Rune {
	reserved := new(big.Int).Lsh(new(big.Int).SetUint64(runeID.Block), 32)
	reserved.Or(reserved, new(big.Int).SetUint64(uint64(runeID.TxID)))

	return &Rune{value: reserved.Add(reserved, FirstReservedRuneNameInt)}
}

// MinNameLength returns unlocked rune name length at currentBlock for protocol started at protocolStart.
func MinNameLength(protocolStart, currentBlock uint64) int {
	if currentBlock < protocolStart {
		return StartNameLength
	}

	unlocked := (currentBlock - protocolStart) / UnlockNamePeriod
	if unlocked >= StartNameLength-1 {
		return 0
	}

	return StartNameLength - 1 - int(unlocked)
}

// ErrRuneNameLocked defines rune name which is not unlocked yet at the etching height.
var ErrRuneNameLocked = errors.New("rune name is locked")

// steps returns value of the first name with length+1 letters: A, AA, AAA...
func steps(length int) *big.Int {
	value, power := new(big.Int), big.NewInt(1)
	for i := 0; i < length; i++ {
		power.Mul(power, base26)
		value.Add(value, power)
	}

	return value
}

// MinimumAtHeight returns the smallest rune value allowed to be etched in the block at height.
// Names unlock gradually during every UnlockNamePeriod blocks down to one letter names.
func MinimumAtHeight(protocolStart, height uint64) *big.Int {
	offset := height + 1
	if offset < protocolStart {
		return steps(StartNameLength - 1)
	}

	progress := offset - protocolStart
	if progress >= UnlockNamePeriod*(StartNameLength-1) {
		return new(big.Int)
	}

	length := StartNameLength - 1 - int(progress/UnlockNamePeriod)
	start, end := steps(length), steps(length-1)

	// start - (start - end) * remainder / period.
	delta := new(big.Int).Sub(start, end)
	delta.Mul(delta, new(big.Int).SetUint64(progress%UnlockNamePeriod))
	delta.Div(delta, new(big.Int).SetUint64(UnlockNamePeriod))

	return start.Sub(start, delta)
}

// IsUnlocked reports whether the rune may be etched in the block at height.
func (r *Rune) IsUnlocked(protocolStart, height uint64) bool {
	return r.value.Cmp(MinimumAtHeight(protocolStart, height)) >= 0
}
