// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/bitcoin/txbuilder"
)

// fixture holds keys and descriptors shared by the package tests.
type fixture struct {
	params  *chaincfg.Params
	key     *btcec.PrivateKey
	p2wpkh  *descriptor.KeyPath
	p2tr    *descriptor.KeyPath
	data    txbuilder.DataOutput
	payment txbuilder.ValueOutput
}

func newFixture(t *testing.T) *fixture {
	params := &chaincfg.TestNet3Params
	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x07}, 32))

	p2wpkh, err := descriptor.NewKeyPath(key.PubKey(), descriptor.P2WPKH, params)
	require.NoError(t, err)
	p2tr, err := descriptor.NewKeyPath(key.PubKey(), descriptor.P2TR, params)
	require.NoError(t, err)

	return &fixture{
		params:  params,
		key:     key,
		p2wpkh:  p2wpkh,
		p2tr:    p2tr,
		data:    txbuilder.DataOutput{Tag: []byte{txscript.OP_13}, Payload: []byte{0x16, 0x01}},
		payment: txbuilder.ValueOutput{Address: p2tr.Address(), Amount: bitcoin.DustThreshold},
	}
}

// coin returns coin with unique tx hash.
func coin(idx int, amount uint64) bitcoin.Coin {
	return bitcoin.Coin{
		TxHash: strings.Repeat(fmt.Sprintf("%02x", idx%256), 32),
		Index:  uint32(idx),
		Amount: amount,
	}
}

// inputs binds coins to the descriptor.
func inputs(desc descriptor.WitnessDescriptor, coins ...bitcoin.Coin) []txbuilder.Input {
	result := make([]txbuilder.Input, len(coins))
	for idx, c := range coins {
		result[idx] = txbuilder.Input{Coin: c, Descriptor: desc}
	}

	return result
}
