// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/internal/numbers"
)

const (
	// MinSatoshiPerKVByte defines minimum relay fee rate in satoshi per kilo virtual byte.
	MinSatoshiPerKVByte uint64 = 1000

	// headerSizeVBytes defines tx header size with segwit marker in vBytes (10.5 rounded up).
	headerSizeVBytes uint64 = 11
	// p2wpkhInputSizeVBytes defines P2WPKH input size in vBytes.
	p2wpkhInputSizeVBytes uint64 = 68
	// p2trKeyPathInputSizeVBytes defines P2TR key path input size in vBytes (57.5 rounded up).
	p2trKeyPathInputSizeVBytes uint64 = 58
	// baseInputSizeVBytes defines non witness part of any segwit input: outpoint, empty script sig, sequence.
	baseInputSizeVBytes uint64 = 41
)

// Shape describes transaction parts affecting its virtual size.
type Shape struct {
	Inputs  []descriptor.WitnessDescriptor
	Outputs [][]byte // output scripts.
}

// VSize returns estimated transaction size in vBytes.
func (s Shape) VSize() uint64 {
	size := headerSizeVBytes
	for _, input := range s.Inputs {
		size += InputVSize(input)
	}

	for _, pkScript := range s.Outputs {
		size += OutputVSize(pkScript)
	}

	return size
}

// InputVSize returns estimated input size in vBytes depending on the spending path.
func InputVSize(input descriptor.WitnessDescriptor) uint64 {
	switch input := input.(type) {
	case *descriptor.KeyPath:
		if input.Kind() == descriptor.P2TR {
			return p2trKeyPathInputSizeVBytes
		}

		return p2wpkhInputSizeVBytes
	case *descriptor.ScriptPath:
		return baseInputSizeVBytes + numbers.CeilDiv(uint64(input.WitnessSize()), 4)
	default:
		return p2wpkhInputSizeVBytes
	}
}

// OutputVSize returns output size in vBytes: value, script length and script.
func OutputVSize(pkScript []byte) uint64 {
	return 8 + uint64(wire.VarIntSerializeSize(uint64(len(pkScript)))) + uint64(len(pkScript))
}

// ClampFeeRate returns fee rate not lower than MinSatoshiPerKVByte.
func ClampFeeRate(satoshiPerKVByte uint64) uint64 {
	return max(satoshiPerKVByte, MinSatoshiPerKVByte)
}

// EstimateFee returns fee in satoshi for the shape: ceil(vsize * rate / 1000), never zero.
func EstimateFee(shape Shape, satoshiPerKVByte uint64) uint64 {
	// vB * ( sat / kvB ) / 1000 = sat.
	fee := numbers.CeilDiv(shape.VSize()*ClampFeeRate(satoshiPerKVByte), 1000)

	return max(fee, 1)
}

// ComputeChange returns totalInput - totalOutput - fee. Change below the dust
// threshold is folded into the fee: returned change is 0 and folded is true.
func ComputeChange(totalInput, totalOutput, fee uint64) (change uint64, folded bool, err error) {
	need, ok := numbers.SumUint64(totalOutput, fee)
	if !ok || totalInput < need {
		return 0, false, NewInsufficientError(need, totalInput)
	}

	change = totalInput - need
	if change < bitcoin.DustThreshold {
		return 0, change != 0, nil
	}

	return change, false, nil
}
