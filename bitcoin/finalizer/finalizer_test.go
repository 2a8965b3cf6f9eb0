// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package finalizer_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/bitcoin/finalizer"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/inscriptions"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/bitcoin/signer"
	"github.com/BoostyLabs/runesmith/bitcoin/txbuilder"
)

func TestFinalize(t *testing.T) {
	params := &chaincfg.TestNet3Params
	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x33}, 32))
	s := signer.NewSigner(signer.NewKeySigner(key))

	p2wpkh, err := descriptor.NewKeyPath(key.PubKey(), descriptor.P2WPKH, params)
	require.NoError(t, err)
	p2tr, err := descriptor.NewKeyPath(key.PubKey(), descriptor.P2TR, params)
	require.NoError(t, err)

	name, err := runes.NewRuneFromString("FINALIZERRUNE")
	require.NoError(t, err)
	script, err := inscriptions.NewEtchingInscription(name, "", []byte("etch")).IntoScriptForWitness(schnorr.SerializePubKey(key.PubKey()))
	require.NoError(t, err)
	commitment, err := descriptor.NewCommitment(key.PubKey(), script, params)
	require.NoError(t, err)
	scriptPath, err := commitment.Resolve(commitment.PkScript())
	require.NoError(t, err)

	payload, err := runes.Encoder{}.EncodeOperation(runes.MintOperation{RuneID: runes.RuneID{Block: 2584240, TxID: 130}, Output: 1})
	require.NoError(t, err)

	outputs := []txbuilder.OutputIntent{
		txbuilder.DataOutput{Tag: runes.ProtocolTag, Payload: payload},
		txbuilder.ValueOutput{Address: p2tr.Address(), Amount: bitcoin.DustThreshold},
	}
	assemble := func(t *testing.T) *txbuilder.Skeleton {
		skeleton, err := txbuilder.NewAssembler(params).Assemble(
			[]txbuilder.Input{
				{Coin: bitcoin.Coin{TxHash: strings.Repeat("0a", 32), Index: 3, Amount: 15000}, Descriptor: p2wpkh},
				{Coin: bitcoin.Coin{TxHash: strings.Repeat("0b", 32), Index: 0, Amount: 7000}, Descriptor: p2tr},
				{Coin: bitcoin.Coin{TxHash: strings.Repeat("0c", 32), Index: 1, Amount: 9000}, Descriptor: scriptPath},
			},
			outputs,
			txbuilder.FeePolicy{SatoshiPerKVByte: 3000, ChangeAddress: p2wpkh.Address()},
		)
		require.NoError(t, err)

		return skeleton
	}

	t.Run("round trip", func(t *testing.T) {
		skeleton := assemble(t)
		records, err := s.SignAll(context.Background(), skeleton)
		require.NoError(t, err)

		tx, err := finalizer.Finalize(skeleton, records)
		require.NoError(t, err)
		require.Equal(t, skeleton.Tx().TxHash().String(), tx.TxID)

		parsed := wire.NewMsgTx(0)
		require.NoError(t, parsed.Deserialize(bytes.NewReader(tx.Raw)))
		require.Equal(t, tx.TxID, parsed.TxHash().String())

		require.Len(t, parsed.TxIn, len(skeleton.Inputs))
		for idx, txIn := range parsed.TxIn {
			outPoint, err := skeleton.Inputs[idx].Coin.OutPoint()
			require.NoError(t, err)
			require.Equal(t, *outPoint, txIn.PreviousOutPoint)
			require.Empty(t, txIn.SignatureScript)
		}

		require.Len(t, parsed.TxIn[0].Witness, 2)
		require.Equal(t, key.PubKey().SerializeCompressed(), parsed.TxIn[0].Witness[1])
		require.Len(t, parsed.TxIn[1].Witness, 1)
		require.Len(t, parsed.TxIn[1].Witness[0], schnorr.SignatureSize)
		require.Len(t, parsed.TxIn[2].Witness, 3)
		require.Equal(t, script, []byte(parsed.TxIn[2].Witness[1]))
		require.Equal(t, scriptPath.ControlBlock, []byte(parsed.TxIn[2].Witness[2]))

		require.Len(t, parsed.TxOut, len(outputs)+1)
		expectedData, err := txbuilder.DataOutput{Tag: runes.ProtocolTag, Payload: payload}.PkScript(params)
		require.NoError(t, err)
		require.Equal(t, expectedData, parsed.TxOut[0].PkScript)
		require.Zero(t, parsed.TxOut[0].Value)

		runestone, err := runes.ParseRunestone(parsed.TxOut[0].PkScript)
		require.NoError(t, err)
		require.Equal(t, runes.RuneID{Block: 2584240, TxID: 130}, *runestone.Mint)

		for idx, output := range outputs {
			require.EqualValues(t, output.Value(), parsed.TxOut[idx].Value)
		}
		require.EqualValues(t, skeleton.Change, parsed.TxOut[2].Value)
		require.Equal(t, skeleton.TotalInput(), skeleton.TotalOutput()+skeleton.Fee)

		require.NoError(t, finalizer.Execute(parsed, skeleton.PrevOutputFetcher()))
	})

	t.Run("deterministic and skeleton is untouched", func(t *testing.T) {
		skeleton := assemble(t)
		records, err := s.SignAll(context.Background(), skeleton)
		require.NoError(t, err)

		first, err := finalizer.Finalize(skeleton, records)
		require.NoError(t, err)
		second, err := finalizer.Finalize(skeleton, []*signer.SignatureRecord{records[2], records[0], records[1]})
		require.NoError(t, err)
		require.Equal(t, first.Hex, second.Hex)

		for _, input := range skeleton.Packet.Inputs {
			require.Empty(t, input.FinalScriptWitness)
			require.Empty(t, input.PartialSigs)
		}
		for _, txIn := range skeleton.Tx().TxIn {
			require.Empty(t, txIn.Witness)
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		skeleton := assemble(t)
		records, err := s.SignAll(context.Background(), skeleton)
		require.NoError(t, err)

		_, err = finalizer.Finalize(skeleton, records[:2])
		require.ErrorIs(t, err, bitcoin.ErrIncompleteSignatures)

		_, err = finalizer.Finalize(skeleton, nil)
		require.ErrorIs(t, err, bitcoin.ErrIncompleteSignatures)
	})

	t.Run("unverified signature blocks finalization", func(t *testing.T) {
		skeleton := assemble(t)
		records, err := s.SignAll(context.Background(), skeleton)
		require.NoError(t, err)

		records[1].Signature = bytes.Clone(records[1].Signature)
		records[1].Signature[0] ^= 0xff
		_, err = finalizer.Finalize(skeleton, records)
		require.ErrorIs(t, err, bitcoin.ErrSignatureVerificationFailed)
	})

	t.Run("script engine rejects foreign witness", func(t *testing.T) {
		skeleton := assemble(t)
		records, err := s.SignAll(context.Background(), skeleton)
		require.NoError(t, err)

		tx, err := finalizer.Finalize(skeleton, records)
		require.NoError(t, err)

		tx.Tx.TxIn[0].Witness[0] = tx.Tx.TxIn[0].Witness[0][:len(tx.Tx.TxIn[0].Witness[0])-1]
		tx.Tx.TxIn[0].Witness[0] = append(tx.Tx.TxIn[0].Witness[0], byte(txscript.SigHashNone))
		require.ErrorIs(t, finalizer.Execute(tx.Tx, skeleton.PrevOutputFetcher()), bitcoin.ErrSignatureVerificationFailed)
	})
}
