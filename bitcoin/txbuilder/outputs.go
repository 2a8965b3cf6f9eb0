// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/BoostyLabs/runesmith/bitcoin/utils"
)

// OutputIntent is a closed set of requested outputs: ValueOutput or DataOutput.
type OutputIntent interface {
	// Value returns output value in satoshi.
	Value() uint64
	// PkScript returns output script for the network.
	PkScript(params *chaincfg.Params) ([]byte, error)

	sealed()
}

// ValueOutput describes payment of Amount to Address.
type ValueOutput struct {
	Address string
	Amount  uint64
}

// Value returns output value in satoshi.
func (o ValueOutput) Value() uint64 { return o.Amount }

// PkScript returns address output script.
func (o ValueOutput) PkScript(params *chaincfg.Params) ([]byte, error) {
	return utils.AddressToPkScript(o.Address, params)
}

func (ValueOutput) sealed() {}

// DataOutput describes provably unspendable output with zero value:
// OP_RETURN, Tag opcodes, Payload data pushes.
type DataOutput struct {
	Tag     []byte
	Payload []byte
}

// Value returns zero, data outputs never carry value.
func (o DataOutput) Value() uint64 { return 0 }

// PkScript returns OP_RETURN output script.
func (o DataOutput) PkScript(*chaincfg.Params) ([]byte, error) {
	return utils.NewUnspendableScript(o.Tag, o.Payload)
}

func (DataOutput) sealed() {}
