// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package inscriptions

import (
	"bytes"
	"errors"
	"math/big"
	"slices"

	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/internal/numbers"
)

// ErrMalformedInscription defines that inscription is malformed and failed to parse.
var ErrMalformedInscription = errors.New("inscription is malformed")

// ErrNoEnvelope defines script without inscription envelope.
var ErrNoEnvelope = errors.New("script has no inscription envelope")

// ordTag defines ord tag for inscription to disambiguate inscriptions from other uses of envelopes.
var ordTag = []byte("ord")

// maxBodyDataPushLen defines maximum size of the data push for bitcoin scripts.
const maxBodyDataPushLen int = 520

// maxScriptDataPushes defines maximum number of the data push of maxBodyDataPushLen size for bitcoin scripts.
const maxScriptDataPushes int = 19

// DefaultContentType defines content type of the etching inscription when nothing is provided.
const DefaultContentType = "text/plain;charset=utf-8"

// Inscription describes inscription envelope, which inscribes sats with arbitrary content.
// Etching reveal scripts carry the rune commitment in the same envelope.
type Inscription struct {
	Body            []byte
	ContentEncoding string
	ContentType     string
	Metadata        []byte
	Metaprotocol    []byte
	Pointer         *big.Int
	Rune            *runes.Rune
}

// NewEtchingInscription returns inscription which commits to the rune name.
func NewEtchingInscription(r *runes.Rune, contentType string, body []byte) *Inscription {
	if contentType == "" {
		contentType = DefaultContentType
	}

	return &Inscription{
		Body:        body,
		ContentType: contentType,
		Rune:        r,
	}
}

// IntoScript returns Inscription as an envelope script.
func (i *Inscription) IntoScript() ([]byte, error) {
	scriptBuilder := txscript.NewScriptBuilder()

	// inscription protocol start.
	scriptBuilder.AddOp(txscript.OP_FALSE)
	scriptBuilder.AddOp(txscript.OP_IF)
	scriptBuilder.AddData(ordTag)

	if len(i.ContentType) != 0 {
		scriptBuilder.AddOps(TagContentType.IntoDataPush())
		scriptBuilder.AddFullData([]byte(i.ContentType))
	}

	if i.Pointer != nil {
		scriptBuilder.AddOps(TagPointer.IntoDataPush())
		scriptBuilder.AddFullData(littleEndian(i.Pointer))
	}

	for _, chunk := range chunks(i.Metadata, maxBodyDataPushLen) {
		scriptBuilder.AddOps(TagMetadata.IntoDataPush())
		scriptBuilder.AddFullData(chunk)
	}

	if len(i.Metaprotocol) != 0 {
		scriptBuilder.AddOps(TagMetaprotocol.IntoDataPush())
		scriptBuilder.AddFullData(i.Metaprotocol)
	}

	if len(i.ContentEncoding) != 0 {
		scriptBuilder.AddOps(TagContentEncoding.IntoDataPush())
		scriptBuilder.AddFullData([]byte(i.ContentEncoding))
	}

	if i.Rune != nil {
		scriptBuilder.AddOps(TagRune.IntoDataPush())
		scriptBuilder.AddFullData(i.Rune.Commitment())
	}

	if len(i.Body) == 0 {
		scriptBuilder.AddOp(txscript.OP_ENDIF)

		return scriptBuilder.Script()
	}

	scriptBuilder.AddOp(txscript.OP_0)
	script, err := scriptBuilder.Script()
	if err != nil {
		return nil, err
	}

	// body is split into separate builders to avoid the builder script size limit.
	for _, group := range i.PrepareBody() {
		bodyScriptBuilder := txscript.NewScriptBuilder()
		for _, chunk := range group {
			bodyScriptBuilder.AddFullData(chunk)
		}

		bodyPartScript, err := bodyScriptBuilder.Script()
		if err != nil {
			return nil, err
		}

		script = append(script, bodyPartScript...)
	}

	// inscription protocol end.
	return append(script, txscript.OP_ENDIF), nil
}

// IntoScriptForWitness returns Inscription as a tapscript leaf: <xonly pubKey> OP_CHECKSIG <envelope>.
func (i *Inscription) IntoScriptForWitness(serializedPubKey []byte) ([]byte, error) {
	if len(serializedPubKey) != 32 {
		return nil, errors.New("x-only public key must be 32 bytes")
	}

	scriptBuilder := txscript.NewScriptBuilder()
	scriptBuilder.AddData(serializedPubKey)
	scriptBuilder.AddOp(txscript.OP_CHECKSIG)

	script, err := scriptBuilder.Script()
	if err != nil {
		return nil, err
	}

	envelope, err := i.IntoScript()
	if err != nil {
		return nil, err
	}

	return append(script, envelope...), nil
}

// PrepareBody returns Inscription body split into data pushes of maxBodyDataPushLen,
// grouped by maxScriptDataPushes.
func (i *Inscription) PrepareBody() [][][]byte {
	var groups [][][]byte
	for group := range slices.Chunk(chunks(i.Body, maxBodyDataPushLen), maxScriptDataPushes) {
		groups = append(groups, group)
	}

	return groups
}

// ParseScript parses the first inscription envelope found in the tapscript.
func ParseScript(script []byte) (*Inscription, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)

	// OP_FALSE OP_IF OP_PUSH "ord".
	var window [2]byte
	for {
		if !tokenizer.Next() {
			return nil, ErrNoEnvelope
		}

		if window == [2]byte{txscript.OP_FALSE, txscript.OP_IF} && bytes.Equal(tokenizer.Data(), ordTag) {
			break
		}

		window[0], window[1] = window[1], tokenizer.Opcode()
	}

	var (
		inscription = new(Inscription)
		fields      = make(map[Tag][][]byte)
	)
	for tokenizer.Next() {
		switch {
		case tokenizer.Opcode() == txscript.OP_ENDIF:
			return inscription, inscription.fill(fields)
		case tokenizer.Opcode() == txscript.OP_0:
			for tokenizer.Next() && tokenizer.Opcode() != txscript.OP_ENDIF {
				if tokenizer.Opcode() > txscript.OP_PUSHDATA4 {
					return nil, ErrMalformedInscription
				}

				inscription.Body = append(inscription.Body, tokenizer.Data()...)
			}

			if tokenizer.Opcode() != txscript.OP_ENDIF {
				return nil, ErrMalformedInscription
			}

			return inscription, inscription.fill(fields)
		case len(tokenizer.Data()) != 1:
			return nil, ErrMalformedInscription
		}

		tag := Tag(tokenizer.Data()[0])
		if !tokenizer.Next() || tokenizer.Opcode() > txscript.OP_PUSHDATA4 {
			return nil, ErrMalformedInscription
		}

		fields[tag] = append(fields[tag], slices.Clone(tokenizer.Data()))
	}

	return nil, ErrMalformedInscription
}

// fill fills Inscription fields from parsed tag values.
func (i *Inscription) fill(fields map[Tag][][]byte) error {
	for tag, values := range fields {
		switch tag {
		case TagContentType:
			i.ContentType = string(values[0])
		case TagContentEncoding:
			i.ContentEncoding = string(values[0])
		case TagMetaprotocol:
			i.Metaprotocol = values[0]
		case TagMetadata:
			i.Metadata = bytes.Join(values, nil)
		case TagPointer:
			i.Pointer = fromLittleEndian(values[0])
		case TagRune:
			value := fromLittleEndian(values[0])
			if !numbers.IsUint128(value) {
				return ErrMalformedInscription
			}

			r, err := runes.NewRuneFromNumber(value)
			if err != nil {
				return err
			}

			i.Rune = r
		default:
			if tag.IsEven() {
				return ErrMalformedInscription
			}
		}
	}

	return nil
}

// chunks splits data into parts of at most size bytes.
func chunks(data []byte, size int) [][]byte {
	var parts [][]byte
	for chunk := range slices.Chunk(data, size) {
		parts = append(parts, chunk)
	}

	return parts
}

// littleEndian returns value as little-endian bytes with trailing zeros omitted.
func littleEndian(value *big.Int) []byte {
	data := value.Bytes()
	slices.Reverse(data)

	return data
}

// fromLittleEndian returns value from little-endian bytes.
func fromLittleEndian(data []byte) *big.Int {
	reversed := slices.Clone(data)
	slices.Reverse(reversed)

	return new(big.Int).SetBytes(reversed)
}
