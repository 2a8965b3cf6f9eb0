// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
)

// Scheme defines signature algorithm with key modification applied before signing.
type Scheme int

const (
	// SchemeECDSA defines DER encoded ECDSA signature over the raw key.
	SchemeECDSA Scheme = iota
	// SchemeSchnorr defines BIP340 signature over the raw key, used for tapscript spends.
	SchemeSchnorr
	// SchemeSchnorrTweaked defines BIP340 signature over the BIP341 tweaked key, used for key path spends.
	SchemeSchnorrTweaked
)

// String returns scheme name.
func (s Scheme) String() string {
	switch s {
	case SchemeECDSA:
		return "ecdsa"
	case SchemeSchnorr:
		return "schnorr"
	case SchemeSchnorrTweaked:
		return "schnorr-tweaked"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// ErrUnknownScheme defines unknown signature scheme.
var ErrUnknownScheme = errors.New("unknown signature scheme")

// SignRequest describes digest to sign.
type SignRequest struct {
	Scheme Scheme
	Digest []byte
	// ScriptRoot is the taproot merkle root used by SchemeSchnorrTweaked, empty for BIP86 keys.
	ScriptRoot []byte
}

// SigningCapability produces signatures with the key it holds.
type SigningCapability interface {
	// CanSign reports whether the scheme is supported.
	CanSign(scheme Scheme) bool
	// PublicKey returns the untweaked public key.
	PublicKey() *btcec.PublicKey
	// Sign returns serialized signature without sighash type suffix.
	Sign(request SignRequest) ([]byte, error)
}

// KeySigner is a SigningCapability over a private key held in memory.
type KeySigner struct {
	privateKey *btcec.PrivateKey
}

// NewKeySigner is a constructor for KeySigner.
func NewKeySigner(privateKey *btcec.PrivateKey) *KeySigner {
	return &KeySigner{privateKey: privateKey}
}

// CanSign reports whether the scheme is supported.
func (s *KeySigner) CanSign(scheme Scheme) bool {
	switch scheme {
	case SchemeECDSA, SchemeSchnorr, SchemeSchnorrTweaked:
		return true
	default:
		return false
	}
}

// PublicKey returns the untweaked public key.
func (s *KeySigner) PublicKey() *btcec.PublicKey {
	return s.privateKey.PubKey()
}

// Sign returns serialized signature of the digest.
func (s *KeySigner) Sign(request SignRequest) ([]byte, error) {
	switch request.Scheme {
	case SchemeECDSA:
		return ecdsa.Sign(s.privateKey, request.Digest).Serialize(), nil
	case SchemeSchnorr:
		return signSchnorr(s.privateKey, request.Digest)
	case SchemeSchnorrTweaked:
		return signSchnorr(txscript.TweakTaprootPrivKey(*s.privateKey, request.ScriptRoot), request.Digest)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, request.Scheme)
	}
}

func signSchnorr(privateKey *btcec.PrivateKey, digest []byte) ([]byte, error) {
	signature, err := schnorr.Sign(privateKey, digest)
	if err != nil {
		return nil, err
	}

	return signature.Serialize(), nil
}
