// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// NewTaprootAddressFromScripts generates taproot address with tree built from provided leaf scripts.
func NewTaprootAddressFromScripts(chainParams *chaincfg.Params, internalKey *btcec.PublicKey, leafScripts ...[]byte) (*btcutil.AddressTaproot, error) {
	tapScriptTree, err := NewTapScriptTreeFromRawScripts(leafScripts...)
	if err != nil {
		return nil, err
	}

	tapScriptRootHash := tapScriptTree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, tapScriptRootHash[:])

	return btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), chainParams)
}

// NewTaprootKeyPathAddress generates BIP86 taproot address without script tree.
func NewTaprootKeyPathAddress(chainParams *chaincfg.Params, internalKey *btcec.PublicKey) (*btcutil.AddressTaproot, error) {
	outputKey := txscript.ComputeTaprootKeyNoScript(internalKey)

	return btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), chainParams)
}

// NewWitnessPubKeyHashAddress generates P2WPKH address of the compressed public key.
func NewWitnessPubKeyHashAddress(chainParams *chaincfg.Params, publicKey *btcec.PublicKey) (*btcutil.AddressWitnessPubKeyHash, error) {
	return btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(publicKey.SerializeCompressed()), chainParams)
}

// AddressToPkScript decodes address for the network and returns its output script.
func AddressToPkScript(address string, chainParams *chaincfg.Params) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(address, chainParams)
	if err != nil {
		return nil, err
	}

	if !decoded.IsForNet(chainParams) {
		return nil, btcutil.ErrUnknownAddressType
	}

	return txscript.PayToAddrScript(decoded)
}
