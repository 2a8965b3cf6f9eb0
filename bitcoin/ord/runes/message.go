// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"bytes"
	"math/big"
	"slices"

	"github.com/aviate-labs/leb128"

	"github.com/BoostyLabs/runesmith/internal/sequencereader"
)

// Message defines untyped runestone representation: tagged fields followed by edicts.
type Message struct {
	Fields map[Tag][]*big.Int
	Edicts []Edict
}

// ParseMessage parses Message from integer sequence.
func ParseMessage(sequence []*big.Int) (*Message, error) {
	var (
		sr      = sequencereader.New(sequence)
		message = &Message{Fields: make(map[Tag][]*big.Int)}
	)
	for sr.HasNext() {
		tagValue, _ := sr.Next() // loop condition guarantees the value.
		if !tagValue.IsUint64() {
			return nil, ErrCenotaph
		}

		tag := Tag(tagValue.Uint64())
		if tag == TagBody {
			edicts, err := ParseEdicts(sr)
			if err != nil {
				return nil, err
			}

			message.Edicts = edicts

			break
		}

		value, err := sr.Next()
		if err != nil {
			return nil, ErrCenotaph
		}

		message.Fields[tag] = append(message.Fields[tag], value)
	}

	return message, nil
}

// ToIntSeq returns Message as integer sequence ordered by tag.
func (message *Message) ToIntSeq() []*big.Int {
	tags := make([]Tag, 0, len(message.Fields))
	for tag := range message.Fields {
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	sequence := make([]*big.Int, 0, len(message.Fields)*2+len(message.Edicts)*4+1)
	for _, tag := range tags {
		for _, value := range message.Fields[tag] {
			sequence = append(sequence, tag.BigInt(), value)
		}
	}

	if len(message.Edicts) != 0 {
		sequence = append(sequence, TagBody.BigInt())
		sequence = append(sequence, EdictsToIntSeq(message.Edicts)...)
	}

	return sequence
}

// take removes first n values of the field if they are present and accepted by valid.
// Values left in the message are reported by the caller: even tags produce cenotaph, odd are ignored.
func (message *Message) take(tag Tag, n int, valid func([]*big.Int) bool) ([]*big.Int, bool) {
	values := message.Fields[tag]
	if len(values) < n || !valid(values[:n]) {
		return nil, false
	}

	if len(values) == n {
		delete(message.Fields, tag)
	} else {
		message.Fields[tag] = values[n:]
	}

	return values[:n], true
}

// PayloadIntoIntSequence decodes LEB128 payload into integer sequence.
func PayloadIntoIntSequence(payload []byte) ([]*big.Int, error) {
	var (
		sequence []*big.Int
		reader   = bytes.NewReader(payload)
	)
	for reader.Len() > 0 {
		num, err := leb128.DecodeUnsigned(reader)
		if err != nil {
			return nil, ErrCenotaph
		}

		sequence = append(sequence, num)
	}

	return sequence, nil
}

// IntSequenceIntoPayload encodes integer sequence into LEB128 payload.
func IntSequenceIntoPayload(sequence []*big.Int) ([]byte, error) {
	var payload []byte
	for _, num := range sequence {
		encoded, err := leb128.EncodeUnsigned(num)
		if err != nil {
			return nil, err
		}

		payload = append(payload, encoded...)
	}

	return payload, nil
}
