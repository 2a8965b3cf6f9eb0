// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"errors"
	"math/big"
	"unicode/utf8"

	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/runesmith/bitcoin/utils"
	"github.com/BoostyLabs/runesmith/internal/numbers"
)

// MaxDivisibility defines maximum divisibility for runes.
const MaxDivisibility byte = 38

// ProtocolTag defines opcodes which follow OP_RETURN in the runestone output.
var ProtocolTag = []byte{txscript.OP_13}

// ErrNotRunestone defines script which is not a runestone output.
var ErrNotRunestone = errors.New("script is not a runestone")

// Runestone abstractly defines runestone fields.
type Runestone struct {
	Edicts  []Edict
	Etching *Etching
	Mint    *RuneID
	Pointer *uint32
}

// ParseRunestone parses Runestone from output script.
func ParseRunestone(script []byte) (*Runestone, error) {
	payload, err := ParseScript(script)
	if err != nil {
		return nil, err
	}

	return Decipher(payload)
}

// ParseScript validates runestone output script and returns concatenated data pushes.
func ParseScript(script []byte) ([]byte, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
		return nil, ErrNotRunestone
	}

	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_13 {
		return nil, ErrNotRunestone
	}

	var payload []byte
	for tokenizer.Next() {
		if tokenizer.Opcode() > txscript.OP_PUSHDATA4 {
			return nil, newCenotaphError(FieldsCenotaph, "non push opcode 0x%02x in payload", tokenizer.Opcode())
		}

		payload = append(payload, tokenizer.Data()...)
	}

	if err := tokenizer.Err(); err != nil {
		return nil, newCenotaphError(FieldsCenotaph, "malformed push: %v", err)
	}

	return payload, nil
}

// IsPossibleRunestone returns true if the script starts with rune protocol bytes sequence.
func IsPossibleRunestone(script []byte) bool {
	return len(script) >= 2 && script[0] == txscript.OP_RETURN && script[1] == txscript.OP_13
}

// Decipher parses Runestone from payload bytes.
func Decipher(payload []byte) (*Runestone, error) {
	sequence, err := PayloadIntoIntSequence(payload)
	if err != nil {
		return nil, err
	}

	message, err := ParseMessage(sequence)
	if err != nil {
		return nil, err
	}

	runestone := &Runestone{Edicts: message.Edicts}
	if err = runestone.parseFields(message); err != nil {
		return nil, err
	}

	return runestone, nil
}

// parseFields fills runestone from message fields, any unrecognized even field produces cenotaph.
func (runestone *Runestone) parseFields(message *Message) error {
	var (
		anyValue = func([]*big.Int) bool { return true }
		u32      = func(values []*big.Int) bool { return isUint(values[0], 32) }
		u64      = func(values []*big.Int) bool { return isUint(values[0], 64) }
		u128     = func(values []*big.Int) bool { return numbers.IsUint128(values[0]) }
		etching  = new(Etching)
		terms    = new(Terms)
		flags    = new(big.Int)
	)

	if values, ok := message.take(TagFlags, 1, anyValue); ok {
		flags.Set(values[0])
	}

	isEtching := FlagEtching.Take(flags)
	hasTerms := FlagTerms.Take(flags)
	isTurbo := FlagTurbo.Take(flags)
	if flags.Sign() != 0 {
		return newCenotaphError(FieldsCenotaph, "unrecognized flags %s", flags.Text(2))
	}

	if values, ok := message.take(TagDivisibility, 1, func(values []*big.Int) bool {
		return isUint(values[0], 8) && values[0].Uint64() <= uint64(MaxDivisibility)
	}); ok {
		divisibility := byte(values[0].Uint64())
		etching.Divisibility = &divisibility
	}

	if values, ok := message.take(TagPremine, 1, u128); ok {
		etching.Premine = values[0]
	}

	if values, ok := message.take(TagRune, 1, u128); ok {
		etching.Rune = &Rune{value: values[0]}
	}

	if values, ok := message.take(TagSpacers, 1, func(values []*big.Int) bool {
		return isUint(values[0], 32) && values[0].Uint64() <= uint64(MaxSpacers)
	}); ok {
		spacers := uint32(values[0].Uint64())
		etching.Spacers = &spacers
	}

	if values, ok := message.take(TagSymbol, 1, func(values []*big.Int) bool {
		return isUint(values[0], 32) && utf8.ValidRune(rune(values[0].Uint64()))
	}); ok {
		symbol := rune(values[0].Uint64())
		etching.Symbol = &symbol
	}

	if values, ok := message.take(TagAmount, 1, u128); ok {
		terms.Amount = values[0]
	}

	if values, ok := message.take(TagCap, 1, u128); ok {
		terms.Cap = values[0]
	}

	for tag, dest := range map[Tag]**uint64{
		TagHeightStart: &terms.HeightStart,
		TagHeightEnd:   &terms.HeightEnd,
		TagOffsetStart: &terms.OffsetStart,
		TagOffsetEnd:   &terms.OffsetEnd,
	} {
		if values, ok := message.take(tag, 1, u64); ok {
			value := values[0].Uint64()
			*dest = &value
		}
	}

	if values, ok := message.take(TagMint, 2, func(values []*big.Int) bool {
		return isUint(values[0], 64) && isUint(values[1], 32) &&
			RuneID{Block: values[0].Uint64(), TxID: uint32(values[1].Uint64())}.IsValid()
	}); ok {
		runestone.Mint = &RuneID{Block: values[0].Uint64(), TxID: uint32(values[1].Uint64())}
	}

	if values, ok := message.take(TagPointer, 1, u32); ok {
		pointer := uint32(values[0].Uint64())
		runestone.Pointer = &pointer
	}

	for tag := range message.Fields {
		if tag.IsEven() {
			return newCenotaphError(FieldsCenotaph, "unrecognized or malformed even tag %d", tag)
		}
	}

	for idx, edict := range runestone.Edicts {
		if !edict.RuneID.IsValid() {
			return newCenotaphError(EdictsCenotaph, "edict[%d] has invalid rune id %s", idx, edict.RuneID)
		}
	}

	if isEtching {
		if hasTerms {
			etching.Terms = terms
		}

		etching.Turbo = isTurbo
		runestone.Etching = etching
	}

	return nil
}

// isUint returns true if value fits unsigned integer of bits size.
func isUint(value *big.Int, bits int) bool {
	return value.Sign() >= 0 && value.BitLen() <= bits
}

// Serialize returns Runestone as LEB128 payload.
func (runestone *Runestone) Serialize() ([]byte, error) {
	message := &Message{
		Edicts: runestone.Edicts,
		Fields: make(map[Tag][]*big.Int),
	}
	set := func(tag Tag, value *big.Int) {
		message.Fields[tag] = append(message.Fields[tag], new(big.Int).Set(value))
	}
	setUint := func(tag Tag, value *uint64) {
		if value != nil {
			set(tag, new(big.Int).SetUint64(*value))
		}
	}

	if etching := runestone.Etching; etching != nil {
		flags := FlagEtching.Set(new(big.Int))
		if etching.Divisibility != nil {
			set(TagDivisibility, big.NewInt(int64(*etching.Divisibility)))
		}
		if etching.Premine != nil {
			set(TagPremine, etching.Premine)
		}
		if etching.Rune != nil {
			set(TagRune, etching.Rune.Value())
		}
		if etching.Spacers != nil {
			set(TagSpacers, big.NewInt(int64(*etching.Spacers)))
		}
		if etching.Symbol != nil {
			set(TagSymbol, big.NewInt(int64(*etching.Symbol)))
		}
		if terms := etching.Terms; terms != nil {
			FlagTerms.Set(flags)
			if terms.Cap != nil {
				set(TagCap, terms.Cap)
			}
			if terms.Amount != nil {
				set(TagAmount, terms.Amount)
			}
			setUint(TagHeightStart, terms.HeightStart)
			setUint(TagHeightEnd, terms.HeightEnd)
			setUint(TagOffsetStart, terms.OffsetStart)
			setUint(TagOffsetEnd, terms.OffsetEnd)
		}
		if etching.Turbo {
			FlagTurbo.Set(flags)
		}

		set(TagFlags, flags)
	}

	if runestone.Mint != nil {
		message.Fields[TagMint] = runestone.Mint.ToIntSeq()
	}

	if runestone.Pointer != nil {
		set(TagPointer, big.NewInt(int64(*runestone.Pointer)))
	}

	return IntSequenceIntoPayload(message.ToIntSeq())
}

// IntoScript returns Runestone as OP_RETURN output script.
func (runestone *Runestone) IntoScript() ([]byte, error) {
	payload, err := runestone.Serialize()
	if err != nil {
		return nil, err
	}

	return utils.NewUnspendableScript(ProtocolTag, payload)
}

// Verify verifies that Runestone does not violate rune protocol rules
// for transaction with outputsNumber outputs.
func (runestone *Runestone) Verify(outputsNumber int) error {
	if runestone.Pointer != nil && int(*runestone.Pointer) >= outputsNumber {
		return newCenotaphError(PointerCenotaph, "the pointer(%d) is out of output idxs range [0;%d)", *runestone.Pointer, outputsNumber)
	}

	if runestone.Mint != nil && !runestone.Mint.IsValid() {
		return newCenotaphError(MintCenotaph, "invalid mint(%s)", runestone.Mint)
	}

	for idx, edict := range runestone.Edicts {
		switch {
		case !edict.RuneID.IsValid():
			return newCenotaphError(EdictsCenotaph, "the edict[%d] has invalid rune id %s", idx, edict.RuneID)
		case int(edict.Output) > outputsNumber:
			return newCenotaphError(EdictsCenotaph, "the edict[%d] output %d is out of idxs range [0;%d]", idx, edict.Output, outputsNumber)
		case edict.Amount == nil || !numbers.IsUint128(edict.Amount):
			return newCenotaphError(EdictsCenotaph, "the edict[%d] amount is not u128", idx)
		}
	}

	if runestone.Etching != nil {
		return runestone.Etching.verify()
	}

	return nil
}

// verify checks etching values bounds and that total supply fits u128.
func (etching *Etching) verify() error {
	switch {
	case etching.Divisibility != nil && *etching.Divisibility > MaxDivisibility:
		return newCenotaphError(EtchingCenotaph, "divisibility %d exceeds %d", *etching.Divisibility, MaxDivisibility)
	case etching.Spacers != nil && *etching.Spacers > MaxSpacers:
		return newCenotaphError(EtchingCenotaph, "spacers %d exceed %d", *etching.Spacers, MaxSpacers)
	case etching.Rune != nil && etching.Rune.Value().Cmp(FirstReservedRuneNameInt) >= 0:
		return newCenotaphError(EtchingCenotaph, "rune %s is reserved", etching.Rune)
	}

	supply, ok := etching.Supply()
	if !ok || !numbers.IsUint128(supply) {
		return newCenotaphError(EtchingCenotaph, "total supply overflows u128")
	}

	return nil
}

// Supply returns premine plus cap * amount, false if any value is not u128.
func (etching *Etching) Supply() (*big.Int, bool) {
	supply := new(big.Int)
	if etching.Premine != nil {
		if !numbers.IsUint128(etching.Premine) {
			return nil, false
		}

		supply.Set(etching.Premine)
	}

	if terms := etching.Terms; terms != nil && terms.Cap != nil && terms.Amount != nil {
		if !numbers.IsUint128(terms.Cap) || !numbers.IsUint128(terms.Amount) {
			return nil, false
		}

		supply.Add(supply, new(big.Int).Mul(terms.Cap, terms.Amount))
	}

	return supply, true
}
