// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package descriptor_test

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
)

func TestKeyPath(t *testing.T) {
	params := &chaincfg.TestNet3Params
	privateKey, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x03}, 32))

	t.Run("kinds", func(t *testing.T) {
		p2wpkh, err := descriptor.NewKeyPath(privateKey.PubKey(), descriptor.P2WPKH, params)
		require.NoError(t, err)
		require.Equal(t, descriptor.P2WPKH, p2wpkh.Kind())
		require.True(t, txscript.IsPayToWitnessPubKeyHash(p2wpkh.PkScript()))

		p2tr, err := descriptor.NewKeyPath(privateKey.PubKey(), descriptor.P2TR, params)
		require.NoError(t, err)
		require.Equal(t, descriptor.P2TR, p2tr.Kind())
		require.True(t, txscript.IsPayToTaproot(p2tr.PkScript()))

		var input psbt.PInput
		p2tr.PrepareInput(&input)
		require.Equal(t, schnorr.SerializePubKey(privateKey.PubKey()), input.TaprootInternalKey)

		_, err = descriptor.NewKeyPath(privateKey.PubKey(), descriptor.P2TRScript, params)
		require.ErrorIs(t, err, bitcoin.ErrUnsupportedDescriptor)
		require.ErrorIs(t, err, descriptor.ErrKeyPath)
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := descriptor.NewKeyPath(privateKey.PubKey(), descriptor.P2TR, params)
		require.NoError(t, err)
		second, err := descriptor.NewKeyPath(privateKey.PubKey(), descriptor.P2TR, params)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("KeyPathFromAddress", func(t *testing.T) {
		for _, kind := range []descriptor.Kind{descriptor.P2WPKH, descriptor.P2TR} {
			keyPath, err := descriptor.NewKeyPath(privateKey.PubKey(), kind, params)
			require.NoError(t, err)

			detected, err := descriptor.KeyPathFromAddress(privateKey.PubKey(), keyPath.Address(), params)
			require.NoError(t, err)
			require.Equal(t, kind, detected.Kind())
		}

		p2pkh, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(privateKey.PubKey().SerializeCompressed()), params)
		require.NoError(t, err)
		_, err = descriptor.KeyPathFromAddress(privateKey.PubKey(), p2pkh.EncodeAddress(), params)
		require.ErrorIs(t, err, bitcoin.ErrUnsupportedDescriptor)

		otherKey, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x04}, 32))
		other, err := descriptor.NewKeyPath(otherKey.PubKey(), descriptor.P2TR, params)
		require.NoError(t, err)
		_, err = descriptor.KeyPathFromAddress(privateKey.PubKey(), other.Address(), params)
		require.ErrorIs(t, err, descriptor.ErrKeyPath)
	})
}

func TestCommitment(t *testing.T) {
	params := &chaincfg.TestNet3Params
	privateKey, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x05}, 32))
	script, err := txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(privateKey.PubKey())).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(t, err)

	commitment, err := descriptor.NewCommitment(privateKey.PubKey(), script, params)
	require.NoError(t, err)
	require.True(t, txscript.IsPayToTaproot(commitment.PkScript()))

	t.Run("address is deterministic", func(t *testing.T) {
		again, err := descriptor.NewCommitment(privateKey.PubKey(), script, params)
		require.NoError(t, err)
		require.Equal(t, commitment.Address(), again.Address())
	})

	t.Run("resolve", func(t *testing.T) {
		scriptPath, err := commitment.Resolve(commitment.PkScript())
		require.NoError(t, err)
		require.Equal(t, descriptor.P2TRScript, scriptPath.Kind())
		require.Equal(t, script, scriptPath.Script)
		require.Equal(t, txscript.BaseLeafVersion, scriptPath.LeafVersion)

		controlBlock, err := txscript.ParseControlBlock(scriptPath.ControlBlock)
		require.NoError(t, err)
		require.NoError(t, txscript.VerifyTaprootLeafCommitment(controlBlock, commitment.PkScript()[2:], script))

		var input psbt.PInput
		scriptPath.PrepareInput(&input)
		require.Len(t, input.TaprootLeafScript, 1)
		require.Equal(t, scriptPath.ControlBlock, input.TaprootLeafScript[0].ControlBlock)
		require.Equal(t, 1+1+64+1+len(script)+1+len(scriptPath.ControlBlock), scriptPath.WitnessSize())
	})

	t.Run("resolve from funding transaction", func(t *testing.T) {
		fundingTx := wire.NewMsgTx(2)
		fundingTx.AddTxOut(wire.NewTxOut(1000, []byte{txscript.OP_TRUE}))
		fundingTx.AddTxOut(wire.NewTxOut(10000, commitment.PkScript()))

		_, err := commitment.ResolveTx(fundingTx, 1)
		require.NoError(t, err)

		_, err = commitment.ResolveTx(fundingTx, 0)
		require.ErrorIs(t, err, descriptor.ErrCommitmentMismatch)

		_, err = commitment.ResolveTx(fundingTx, 2)
		require.ErrorIs(t, err, descriptor.ErrCommitmentMismatch)
	})
}
