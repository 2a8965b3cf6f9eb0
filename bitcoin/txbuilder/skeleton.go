// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
)

// MaxExportInputs is the number of inputs addressable by single byte helping key indexes.
const MaxExportInputs = 256

// ErrTooManyInputs defines skeleton whose input indexes do not fit PSBT helping keys.
var ErrTooManyInputs = errors.New("too many inputs to export")

// Skeleton is an assembled unsigned transaction with the spending data of every input.
// It must not be mutated after assembly; signatures are accumulated separately.
type Skeleton struct {
	Packet  *psbt.Packet
	Inputs  []Input
	Outputs []OutputIntent
	FeeRate uint64
	Fee     uint64
	Change  uint64
	// ChangeIndex is the change output index, -1 if there is no change output.
	ChangeIndex int
	// ChangeFolded reports that sub dust change was donated to the fee.
	ChangeFolded bool
}

// Tx returns unsigned transaction.
func (s *Skeleton) Tx() *wire.MsgTx {
	return s.Packet.UnsignedTx
}

// PrevOutputFetcher returns fetcher of the spent outputs required for segwit digests.
func (s *Skeleton) PrevOutputFetcher() txscript.PrevOutputFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for idx, txIn := range s.Packet.UnsignedTx.TxIn {
		fetcher.AddPrevOut(txIn.PreviousOutPoint, s.Packet.Inputs[idx].WitnessUtxo)
	}

	return fetcher
}

// SigHashes returns precomputed signature hashes midstate of the transaction.
func (s *Skeleton) SigHashes() *txscript.TxSigHashes {
	return txscript.NewTxSigHashes(s.Packet.UnsignedTx, s.PrevOutputFetcher())
}

// TotalInput returns sum of the input coins values.
func (s *Skeleton) TotalInput() uint64 {
	var total uint64
	for _, input := range s.Inputs {
		total += input.Coin.Amount
	}

	return total
}

// TotalOutput returns sum of the outputs values including change.
func (s *Skeleton) TotalOutput() uint64 {
	var total uint64
	for _, txOut := range s.Packet.UnsignedTx.TxOut {
		total += uint64(txOut.Value)
	}

	return total
}

// ExportPSBT returns serialized PSBT for external signing. Global unknowns carry
// input indexes by helping key: taproot inputs and payment inputs.
func (s *Skeleton) ExportPSBT() ([]byte, error) {
	if len(s.Inputs) > MaxExportInputs {
		return nil, fmt.Errorf("%w: %d inputs, at most %d", ErrTooManyInputs, len(s.Inputs), MaxExportInputs)
	}

	packet := *s.Packet
	indexes := make(map[InputsHelpingKey][]byte, 2)
	for idx, input := range s.Inputs {
		key := PaymentInputsHelpingKey
		if input.Descriptor.Kind() != descriptor.P2WPKH {
			key = TaprootInputsHelpingKey
		}

		indexes[key] = append(indexes[key], byte(idx))
	}

	packet.Unknowns = nil
	for _, key := range []InputsHelpingKey{TaprootInputsHelpingKey, PaymentInputsHelpingKey} {
		if len(indexes[key]) != 0 {
			packet.Unknowns = append(packet.Unknowns, &psbt.Unknown{Key: key.Bytes(), Value: indexes[key]})
		}
	}

	w := bytes.NewBuffer(nil)
	if err := packet.Serialize(w); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
