// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/internal/numbers"
)

// txVersion defines transaction version for this builder.
const txVersion int32 = 2

var (
	// ErrNoInputs defines assembly without inputs.
	ErrNoInputs = errors.New("no inputs provided")
	// ErrNoOutputs defines assembly without outputs.
	ErrNoOutputs = errors.New("no outputs provided")
	// ErrMultipleDataOutputs defines more than one data carrying output requested.
	ErrMultipleDataOutputs = errors.New("only one data output is allowed")
	// ErrChangeAddressRequired defines non dust change without change address.
	ErrChangeAddressRequired = errors.New("change address is required")
)

// Input binds coin to the descriptor of its spending condition.
type Input struct {
	Coin       bitcoin.Coin
	Descriptor descriptor.WitnessDescriptor
}

// FeePolicy describes fee rate and change destination.
type FeePolicy struct {
	// SatoshiPerKVByte is fee rate in satoshi per kilo virtual byte, clamped to MinSatoshiPerKVByte.
	SatoshiPerKVByte uint64
	// ChangeAddress receives change. Required when non dust change arises.
	ChangeAddress string
}

// Assembler builds unsigned transaction skeletons.
type Assembler struct {
	networkParams *chaincfg.Params
}

// NewAssembler is a constructor for Assembler.
func NewAssembler(networkParams *chaincfg.Params) *Assembler {
	return &Assembler{networkParams: networkParams}
}

// Assemble builds transaction skeleton spending inputs into outputs in the given order.
// Change, if any, is appended as the last output. Fails with InsufficientError or
// DustOutputError before anything is signed.
//
//	Tx struct
//	inputs:  caller inputs, in order.
//	outputs: caller outputs, in order; change output last, optional.
func (a *Assembler) Assemble(inputs []Input, outputs []OutputIntent, policy FeePolicy) (*Skeleton, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}

	pkScripts, totalOutput, err := outputScripts(outputs, a.networkParams)
	if err != nil {
		return nil, err
	}

	totalInput, descriptors := uint64(0), make([]descriptor.WitnessDescriptor, len(inputs))
	for idx, input := range inputs {
		if input.Descriptor == nil {
			return nil, fmt.Errorf("%w: input #%d has no descriptor", bitcoin.ErrUnsupportedDescriptor, idx)
		}

		var ok bool
		if totalInput, ok = numbers.SumUint64(totalInput, input.Coin.Amount); !ok {
			return nil, errors.New("input amounts overflow")
		}

		descriptors[idx] = input.Descriptor
	}

	var (
		feeRate     = ClampFeeRate(policy.SatoshiPerKVByte)
		feeNoChange = EstimateFee(Shape{Inputs: descriptors, Outputs: pkScripts}, feeRate)
		skeleton    = &Skeleton{
			Inputs:      inputs,
			Outputs:     outputs,
			FeeRate:     feeRate,
			ChangeIndex: -1,
		}
	)

	change, folded, err := ComputeChange(totalInput, totalOutput, feeNoChange)
	if err != nil {
		return nil, err
	}

	switch {
	case change == 0:
		skeleton.ChangeFolded = folded
	case policy.ChangeAddress == "":
		return nil, fmt.Errorf("%w: %d sat left unallocated", ErrChangeAddressRequired, change)
	default:
		changeScript, err := ValueOutput{Address: policy.ChangeAddress}.PkScript(a.networkParams)
		if err != nil {
			return nil, fmt.Errorf("invalid change address: %w", err)
		}

		feeWithChange := EstimateFee(Shape{Inputs: descriptors, Outputs: append(pkScripts, changeScript)}, feeRate)
		change, folded, err = ComputeChange(totalInput, totalOutput, feeWithChange)
		switch {
		case err != nil || change == 0:
			// change output does not pay for itself, remainder is donated to the fee.
			skeleton.ChangeFolded = true
		default:
			skeleton.Change = change
			skeleton.ChangeIndex = len(pkScripts)
			pkScripts = append(pkScripts, changeScript)
			skeleton.ChangeFolded = folded
		}
	}

	skeleton.Fee = totalInput - totalOutput - skeleton.Change

	tx := wire.NewMsgTx(txVersion)
	for _, input := range inputs {
		outPoint, err := input.Coin.OutPoint()
		if err != nil {
			return nil, err
		}

		tx.AddTxIn(wire.NewTxIn(outPoint, nil, nil))
	}

	for idx, pkScript := range pkScripts {
		value := skeleton.Change
		if idx < len(outputs) {
			value = outputs[idx].Value()
		}

		tx.AddTxOut(wire.NewTxOut(int64(value), pkScript))
	}

	skeleton.Packet, err = psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, err
	}

	for idx, input := range inputs {
		pInput := &skeleton.Packet.Inputs[idx]
		pInput.WitnessUtxo = wire.NewTxOut(int64(input.Coin.Amount), input.Descriptor.PkScript())
		pInput.SighashType = SigHashType(input.Descriptor)
		input.Descriptor.PrepareInput(pInput)
	}

	return skeleton, nil
}

// SigHashType returns signature hash type used for the descriptor spend.
func SigHashType(desc descriptor.WitnessDescriptor) txscript.SigHashType {
	if desc.Kind() == descriptor.P2WPKH {
		return txscript.SigHashAll
	}

	return txscript.SigHashDefault
}

// outputScripts validates outputs and returns their scripts with the total value.
func outputScripts(outputs []OutputIntent, params *chaincfg.Params) ([][]byte, uint64, error) {
	var (
		total       uint64
		dataOutputs int
		pkScripts   = make([][]byte, 0, len(outputs)+1)
	)
	for idx, output := range outputs {
		switch output := output.(type) {
		case DataOutput:
			dataOutputs++
			if dataOutputs > 1 {
				return nil, 0, ErrMultipleDataOutputs
			}
		case ValueOutput:
			if output.Amount < bitcoin.DustThreshold {
				return nil, 0, &DustOutputError{Index: idx, Amount: output.Amount}
			}
		default:
			return nil, 0, fmt.Errorf("unknown output intent %T", output)
		}

		pkScript, err := output.PkScript(params)
		if err != nil {
			return nil, 0, fmt.Errorf("output #%d: %w", idx, err)
		}

		var ok bool
		if total, ok = numbers.SumUint64(total, output.Value()); !ok {
			return nil, 0, errors.New("output amounts overflow")
		}

		pkScripts = append(pkScripts, pkScript)
	}

	return pkScripts, total, nil
}
