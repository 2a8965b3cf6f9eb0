// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package finalizer assembles witnesses from verified signatures and extracts broadcastable transactions.
package finalizer

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/bitcoin/signer"
	"github.com/BoostyLabs/runesmith/bitcoin/txbuilder"
)

// Transaction is a finalized signed transaction ready for broadcasting.
type Transaction struct {
	Tx   *wire.MsgTx
	Raw  []byte
	Hex  string
	TxID string
}

// Finalize places signatures into input witnesses, extracts the signed transaction
// and executes every input script. The skeleton is not mutated.
//
//	P2WPKH witness:      <signature||sighash> <compressed pubKey>
//	P2TR key path:       <signature>
//	P2TR script path:    <signature> <script> <control block>
func Finalize(skeleton *txbuilder.Skeleton, records []*signer.SignatureRecord) (*Transaction, error) {
	byInput := make(map[int]*signer.SignatureRecord, len(records))
	for _, record := range records {
		if record != nil {
			byInput[record.InputIndex] = record
		}
	}

	packet, err := clonePacket(skeleton.Packet)
	if err != nil {
		return nil, err
	}

	for idx, input := range skeleton.Inputs {
		record, ok := byInput[idx]
		if !ok {
			return nil, fmt.Errorf("%w: input #%d is not signed", bitcoin.ErrIncompleteSignatures, idx)
		}

		if !signer.Verify(skeleton, idx, record) {
			return nil, fmt.Errorf("%w: input #%d", bitcoin.ErrSignatureVerificationFailed, idx)
		}

		if err = attachSignature(&packet.Inputs[idx], input.Descriptor, record); err != nil {
			return nil, fmt.Errorf("input #%d: %w", idx, err)
		}
	}

	if err = psbt.MaybeFinalizeAll(packet); err != nil {
		return nil, fmt.Errorf("could not finalize psbt: %w", err)
	}

	tx, err := psbt.Extract(packet)
	if err != nil {
		return nil, fmt.Errorf("could not extract transaction: %w", err)
	}

	if err = Execute(tx, skeleton.PrevOutputFetcher()); err != nil {
		return nil, err
	}

	raw := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
	if err = tx.Serialize(raw); err != nil {
		return nil, err
	}

	return &Transaction{
		Tx:   tx,
		Raw:  raw.Bytes(),
		Hex:  hex.EncodeToString(raw.Bytes()),
		TxID: tx.TxHash().String(),
	}, nil
}

// Execute runs the script engine over every input of the signed transaction.
func Execute(tx *wire.MsgTx, fetcher txscript.PrevOutputFetcher) error {
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for idx, txIn := range tx.TxIn {
		prevOut := fetcher.FetchPrevOutput(txIn.PreviousOutPoint)
		if prevOut == nil {
			return fmt.Errorf("%w: previous output of input #%d is unknown", bitcoin.ErrIncompleteSignatures, idx)
		}

		vm, err := txscript.NewEngine(prevOut.PkScript, tx, idx, txscript.StandardVerifyFlags, nil, sigHashes, prevOut.Value, fetcher)
		if err != nil {
			return fmt.Errorf("%w: input #%d: %w", bitcoin.ErrSignatureVerificationFailed, idx, err)
		}

		if err = vm.Execute(); err != nil {
			return fmt.Errorf("%w: input #%d: %w", bitcoin.ErrSignatureVerificationFailed, idx, err)
		}
	}

	return nil
}

// attachSignature fills psbt input signature field matching the descriptor spending path.
func attachSignature(input *psbt.PInput, desc descriptor.WitnessDescriptor, record *signer.SignatureRecord) error {
	switch desc := desc.(type) {
	case *descriptor.KeyPath:
		if desc.Kind() == descriptor.P2TR {
			input.TaprootKeySpendSig = record.Signature
			return nil
		}

		input.PartialSigs = []*psbt.PartialSig{{
			PubKey:    record.PublicKey.SerializeCompressed(),
			Signature: record.WitnessSignature(),
		}}
	case *descriptor.ScriptPath:
		leafHash := desc.TapLeaf().TapHash()
		input.TaprootScriptSpendSig = []*psbt.TaprootScriptSpendSig{{
			XOnlyPubKey: schnorr.SerializePubKey(record.PublicKey),
			LeafHash:    leafHash[:],
			Signature:   record.Signature,
			SigHash:     record.SigHash,
		}}
	default:
		return fmt.Errorf("%w: %T", bitcoin.ErrUnsupportedDescriptor, desc)
	}

	return nil
}

// clonePacket returns deep copy of the packet.
func clonePacket(packet *psbt.Packet) (*psbt.Packet, error) {
	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return nil, err
	}

	return psbt.NewFromRawBytes(&buf, false)
}
