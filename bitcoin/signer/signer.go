// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"golang.org/x/sync/errgroup"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/bitcoin/txbuilder"
)

// ErrInvalidInputIndex defines input index out of the skeleton inputs range.
var ErrInvalidInputIndex = errors.New("invalid input index")

// SignatureRecord is the signature of a single input.
type SignatureRecord struct {
	InputIndex int
	PublicKey  *btcec.PublicKey
	// Signature is serialized without sighash type suffix.
	Signature []byte
	SigHash   txscript.SigHashType
	Scheme    Scheme
}

// WitnessSignature returns signature with sighash type suffix as placed into the witness.
// SIGHASH_DEFAULT adds no suffix.
func (r *SignatureRecord) WitnessSignature() []byte {
	if r.Scheme != SchemeECDSA && r.SigHash == txscript.SigHashDefault {
		return r.Signature
	}

	return append(append(make([]byte, 0, len(r.Signature)+1), r.Signature...), byte(r.SigHash))
}

// Signer provides transaction signing related logic.
type Signer struct {
	capability SigningCapability
}

// NewSigner is a constructor for Signer.
func NewSigner(capability SigningCapability) *Signer {
	return &Signer{
		capability: capability,
	}
}

// Sign signs skeleton input. The scheme is selected by the input descriptor:
// ECDSA for P2WPKH, tweaked Schnorr for P2TR key path and Schnorr for script path.
func (signer *Signer) Sign(skeleton *txbuilder.Skeleton, inputIndex int) (*SignatureRecord, error) {
	if inputIndex < 0 || inputIndex >= len(skeleton.Inputs) {
		return nil, ErrInvalidInputIndex
	}

	desc := skeleton.Inputs[inputIndex].Descriptor
	scheme, err := schemeOf(desc)
	if err != nil {
		return nil, err
	}

	if !signer.capability.CanSign(scheme) {
		return nil, fmt.Errorf("%w: signer does not support %s for %s input #%d", bitcoin.ErrUnsupportedDescriptor, scheme, desc.Kind(), inputIndex)
	}

	sigHash := skeleton.Packet.Inputs[inputIndex].SighashType
	digest, err := Digest(skeleton, inputIndex, sigHash)
	if err != nil {
		return nil, err
	}

	signature, err := signer.capability.Sign(SignRequest{Scheme: scheme, Digest: digest})
	if err != nil {
		return nil, fmt.Errorf("could not sign input #%d: %w", inputIndex, err)
	}

	return &SignatureRecord{
		InputIndex: inputIndex,
		PublicKey:  signer.capability.PublicKey(),
		Signature:  signature,
		SigHash:    sigHash,
		Scheme:     scheme,
	}, nil
}

// SignAll signs every skeleton input concurrently and verifies each record.
// Records are returned in input order.
func (signer *Signer) SignAll(ctx context.Context, skeleton *txbuilder.Skeleton) ([]*SignatureRecord, error) {
	records := make([]*SignatureRecord, len(skeleton.Inputs))
	group, ctx := errgroup.WithContext(ctx)
	for idx := range skeleton.Inputs {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			record, err := signer.Sign(skeleton, idx)
			if err != nil {
				return err
			}

			if !Verify(skeleton, idx, record) {
				return fmt.Errorf("%w: input #%d", bitcoin.ErrSignatureVerificationFailed, idx)
			}

			records[idx] = record

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

// Verify recomputes the input digest and checks the record signature against
// the declared public key with the scheme required by the input descriptor.
func Verify(skeleton *txbuilder.Skeleton, inputIndex int, record *SignatureRecord) bool {
	if record == nil || record.PublicKey == nil || record.InputIndex != inputIndex ||
		inputIndex < 0 || inputIndex >= len(skeleton.Inputs) {
		return false
	}

	desc := skeleton.Inputs[inputIndex].Descriptor
	scheme, err := schemeOf(desc)
	if err != nil || scheme != record.Scheme || !ownsKey(desc, record.PublicKey) {
		return false
	}

	digest, err := Digest(skeleton, inputIndex, record.SigHash)
	if err != nil {
		return false
	}

	switch scheme {
	case SchemeECDSA:
		signature, err := ecdsa.ParseDERSignature(record.Signature)
		if err != nil {
			return false
		}

		return signature.Verify(digest, record.PublicKey)
	case SchemeSchnorr:
		return verifySchnorr(record.Signature, digest, record.PublicKey)
	case SchemeSchnorrTweaked:
		return verifySchnorr(record.Signature, digest, txscript.ComputeTaprootKeyNoScript(record.PublicKey))
	default:
		return false
	}
}

// Digest returns signable digest of the skeleton input: BIP143 for P2WPKH,
// BIP341 for P2TR key path and BIP342 for script path.
func Digest(skeleton *txbuilder.Skeleton, inputIndex int, sigHash txscript.SigHashType) ([]byte, error) {
	if inputIndex < 0 || inputIndex >= len(skeleton.Inputs) {
		return nil, ErrInvalidInputIndex
	}

	var (
		tx        = skeleton.Tx()
		fetcher   = skeleton.PrevOutputFetcher()
		sigHashes = txscript.NewTxSigHashes(tx, fetcher)
		input     = skeleton.Inputs[inputIndex]
	)
	switch desc := input.Descriptor.(type) {
	case *descriptor.KeyPath:
		if desc.Kind() == descriptor.P2TR {
			return txscript.CalcTaprootSignatureHash(sigHashes, sigHash, tx, inputIndex, fetcher)
		}

		return txscript.CalcWitnessSigHash(desc.PkScript(), sigHashes, sigHash, tx, inputIndex, int64(input.Coin.Amount))
	case *descriptor.ScriptPath:
		return txscript.CalcTapscriptSignaturehash(sigHashes, sigHash, tx, inputIndex, fetcher, desc.TapLeaf())
	default:
		return nil, fmt.Errorf("%w: %T", bitcoin.ErrUnsupportedDescriptor, desc)
	}
}

// schemeOf returns signature scheme required by the descriptor.
func schemeOf(desc descriptor.WitnessDescriptor) (Scheme, error) {
	switch desc := desc.(type) {
	case *descriptor.KeyPath:
		if desc.Kind() == descriptor.P2TR {
			return SchemeSchnorrTweaked, nil
		}

		return SchemeECDSA, nil
	case *descriptor.ScriptPath:
		return SchemeSchnorr, nil
	default:
		return 0, fmt.Errorf("%w: %T", bitcoin.ErrUnsupportedDescriptor, desc)
	}
}

// ownsKey reports whether the public key is the one the descriptor is locked to.
func ownsKey(desc descriptor.WitnessDescriptor, publicKey *btcec.PublicKey) bool {
	switch desc := desc.(type) {
	case *descriptor.KeyPath:
		return desc.PublicKey.IsEqual(publicKey)
	case *descriptor.ScriptPath:
		// tapscript leaves produced by the etch flow are locked with the internal key.
		return desc.InternalKey.IsEqual(publicKey)
	default:
		return false
	}
}

func verifySchnorr(rawSignature, digest []byte, publicKey *btcec.PublicKey) bool {
	signature, err := schnorr.ParseSignature(rawSignature)
	if err != nil {
		return false
	}

	return signature.Verify(digest, publicKey)
}
