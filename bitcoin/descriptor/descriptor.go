// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package descriptor describes spending conditions of coins controlled by a single key.
package descriptor

import (
	"github.com/btcsuite/btcd/btcutil/psbt"
)

// Kind defines spending path of the descriptor.
type Kind string

const (
	// P2WPKH defines segwit v0 key hash spend.
	P2WPKH Kind = "P2WPKH"
	// P2TR defines taproot key path spend (BIP86, no script tree).
	P2TR Kind = "P2TR"
	// P2TRScript defines taproot script path spend of a committed tapscript.
	P2TRScript Kind = "P2TR-script"
)

// WitnessDescriptor is a closed set of spending conditions: *KeyPath or *ScriptPath.
type WitnessDescriptor interface {
	// Kind returns spending path.
	Kind() Kind
	// PkScript returns output script the coin is locked with.
	PkScript() []byte
	// PrepareInput fills psbt input with data required to sign the spend.
	PrepareInput(input *psbt.PInput)

	sealed()
}
