// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package descriptor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/runesmith/bitcoin/utils"
)

// ErrCommitmentMismatch defines funding output which is not locked to the commitment.
var ErrCommitmentMismatch = errors.New("funding output does not match the script commitment")

// Commitment is the first phase of the script path spend: the taproot output
// committing to a single tapscript leaf. Funds must be sent to Address before
// the spend can be resolved.
type Commitment struct {
	internalKey *btcec.PublicKey
	script      []byte
	tree        *txscript.IndexedTapScriptTree
	address     *btcutil.AddressTaproot
	pkScript    []byte
}

// NewCommitment is a constructor for Commitment.
func NewCommitment(internalKey *btcec.PublicKey, script []byte, params *chaincfg.Params) (*Commitment, error) {
	tree, err := utils.NewTapScriptTreeFromRawScripts(script)
	if err != nil {
		return nil, err
	}

	address, err := utils.NewTaprootAddressFromScripts(params, internalKey, script)
	if err != nil {
		return nil, err
	}

	pkScript, err := txscript.PayToAddrScript(address)
	if err != nil {
		return nil, err
	}

	return &Commitment{
		internalKey: internalKey,
		script:      bytes.Clone(script),
		tree:        tree,
		address:     address,
		pkScript:    pkScript,
	}, nil
}

// Address returns commitment address which funds must be sent to.
func (c *Commitment) Address() string { return c.address.EncodeAddress() }

// PkScript returns commitment output script.
func (c *Commitment) PkScript() []byte { return c.pkScript }

// Script returns committed tapscript.
func (c *Commitment) Script() []byte { return c.script }

// Resolve is the second phase: verifies that the funding output is locked to
// the commitment and derives the control block needed to reveal the script.
func (c *Commitment) Resolve(fundingPkScript []byte) (*ScriptPath, error) {
	if !bytes.Equal(fundingPkScript, c.pkScript) {
		return nil, ErrCommitmentMismatch
	}

	controlBlock := c.tree.LeafMerkleProofs[0].ToControlBlock(c.internalKey)
	controlBlockBytes, err := controlBlock.ToBytes()
	if err != nil {
		return nil, err
	}

	return &ScriptPath{
		InternalKey:  c.internalKey,
		Script:       c.script,
		ControlBlock: controlBlockBytes,
		LeafVersion:  txscript.BaseLeafVersion,
		pkScript:     c.pkScript,
	}, nil
}

// ResolveTx resolves the commitment against output vout of the funding transaction.
func (c *Commitment) ResolveTx(fundingTx *wire.MsgTx, vout uint32) (*ScriptPath, error) {
	if int(vout) >= len(fundingTx.TxOut) {
		return nil, fmt.Errorf("%w: output %d is missing in %s", ErrCommitmentMismatch, vout, fundingTx.TxHash())
	}

	return c.Resolve(fundingTx.TxOut[vout].PkScript)
}

// ScriptPath describes coin spent by revealing committed script and its control block.
type ScriptPath struct {
	InternalKey  *btcec.PublicKey
	Script       []byte
	ControlBlock []byte
	LeafVersion  txscript.TapscriptLeafVersion

	pkScript []byte
}

// Kind returns spending path.
func (s *ScriptPath) Kind() Kind { return P2TRScript }

// PkScript returns output script the coin is locked with.
func (s *ScriptPath) PkScript() []byte { return s.pkScript }

// TapLeaf returns revealed tapscript leaf.
func (s *ScriptPath) TapLeaf() txscript.TapLeaf {
	return txscript.NewTapLeaf(s.LeafVersion, s.Script)
}

// WitnessSize returns serialized witness size: signature, script and control block with length prefixes.
func (s *ScriptPath) WitnessSize() int {
	return wire.VarIntSerializeSize(3) +
		wire.VarIntSerializeSize(schnorr.SignatureSize) + schnorr.SignatureSize +
		wire.VarIntSerializeSize(uint64(len(s.Script))) + len(s.Script) +
		wire.VarIntSerializeSize(uint64(len(s.ControlBlock))) + len(s.ControlBlock)
}

// PrepareInput fills psbt input with tap leaf data.
func (s *ScriptPath) PrepareInput(input *psbt.PInput) {
	input.TaprootInternalKey = schnorr.SerializePubKey(s.InternalKey)
	input.TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
		ControlBlock: s.ControlBlock,
		Script:       s.Script,
		LeafVersion:  s.LeafVersion,
	}}

	leafHash := s.TapLeaf().TapHash()
	input.TaprootMerkleRoot = leafHash[:]
}

func (s *ScriptPath) sealed() {}
