// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"errors"
	"slices"

	"github.com/btcsuite/btcd/txscript"
)

// MaxDataPushLen defines maximum size of the single data push for standard scripts.
const MaxDataPushLen = txscript.MaxScriptElementSize

// NewUnspendableScript builds provably unspendable script: OP_RETURN, tag opcodes,
// then payload split into data pushes of at most MaxDataPushLen bytes.
// Pushes are never converted into small integer opcodes, payload bytes appear verbatim.
// INFO: Def: https://en.bitcoin.it/wiki/OP_RETURN.
func NewUnspendableScript(tag []byte, payload []byte) ([]byte, error) {
	scriptBuilder := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).AddOps(tag)
	for chunk := range slices.Chunk(payload, MaxDataPushLen) {
		scriptBuilder.AddFullData(chunk)
	}

	return scriptBuilder.Script()
}

// NewTapScriptTreeFromRawScripts builds tapScript tree from provided raw leaf scripts.
func NewTapScriptTreeFromRawScripts(leafScripts ...[]byte) (*txscript.IndexedTapScriptTree, error) {
	if len(leafScripts) == 0 {
		return nil, errors.New("no leaf scripts provided")
	}

	var tapLeafs = make([]txscript.TapLeaf, len(leafScripts))
	for i, leafScript := range leafScripts {
		tapLeafs[i] = txscript.NewBaseTapLeaf(leafScript)
	}

	return txscript.AssembleTaprootScriptTree(tapLeafs...), nil
}
