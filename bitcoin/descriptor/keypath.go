// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package descriptor

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/utils"
)

// ErrKeyPath defines errors class for key path descriptor construction.
var ErrKeyPath = errors.New("key path descriptor")

// KeyPath describes coin spent by a single signature of the key.
type KeyPath struct {
	PublicKey *btcec.PublicKey

	kind     Kind
	address  btcutil.Address
	pkScript []byte
}

// NewKeyPath is a constructor for KeyPath.
func NewKeyPath(publicKey *btcec.PublicKey, kind Kind, params *chaincfg.Params) (_ *KeyPath, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrKeyPath, err)
		}
	}()

	keyPath := &KeyPath{PublicKey: publicKey, kind: kind}
	switch kind {
	case P2WPKH:
		keyPath.address, err = utils.NewWitnessPubKeyHashAddress(params, publicKey)
	case P2TR:
		keyPath.address, err = utils.NewTaprootKeyPathAddress(params, publicKey)
	default:
		return nil, fmt.Errorf("%w: key path kind %q", bitcoin.ErrUnsupportedDescriptor, kind)
	}
	if err != nil {
		return nil, err
	}

	keyPath.pkScript, err = txscript.PayToAddrScript(keyPath.address)
	if err != nil {
		return nil, err
	}

	return keyPath, nil
}

// KeyPathFromAddress detects spending kind by the address controlled by the key.
func KeyPathFromAddress(publicKey *btcec.PublicKey, address string, params *chaincfg.Params) (*KeyPath, error) {
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, errors.Join(ErrKeyPath, err)
	}

	var kind Kind
	switch decoded.(type) {
	case *btcutil.AddressTaproot:
		kind = P2TR
	case *btcutil.AddressWitnessPubKeyHash:
		kind = P2WPKH
	default:
		return nil, errors.Join(ErrKeyPath, fmt.Errorf("%w: address type %T", bitcoin.ErrUnsupportedDescriptor, decoded))
	}

	keyPath, err := NewKeyPath(publicKey, kind, params)
	if err != nil {
		return nil, err
	}

	if keyPath.Address() != decoded.EncodeAddress() {
		return nil, errors.Join(ErrKeyPath, fmt.Errorf("address %s is not controlled by the key", address))
	}

	return keyPath, nil
}

// Kind returns spending path.
func (k *KeyPath) Kind() Kind { return k.kind }

// PkScript returns output script the coin is locked with.
func (k *KeyPath) PkScript() []byte { return k.pkScript }

// Address returns encoded address of the descriptor.
func (k *KeyPath) Address() string { return k.address.EncodeAddress() }

// PrepareInput updates input with required data based on address type.
func (k *KeyPath) PrepareInput(input *psbt.PInput) {
	if k.kind == P2TR {
		input.TaprootInternalKey = schnorr.SerializePubKey(k.PublicKey)
	}
}

func (k *KeyPath) sealed() {}
