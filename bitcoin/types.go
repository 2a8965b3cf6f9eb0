// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// DustThreshold defines the smallest economical output value in satoshi.
// Outputs with lower value are rejected by standard relay policy.
const DustThreshold uint64 = 546

// Coin describes unspent transaction output controlled by the signing key.
type Coin struct {
	TxHash string     // funding transaction id in display (reversed) order.
	Index  uint32     // output index in transaction outputs.
	Amount uint64     // in Satoshi.
	Status CoinStatus // confirmation state at the moment of observation.
}

// CoinStatus describes confirmation state of the transaction holding the coin.
type CoinStatus struct {
	Confirmed   bool
	BlockHeight uint64
	BlockHash   string
	BlockTime   int64
}

// Key returns coin identity in txid:vout form.
func (c Coin) Key() string {
	return fmt.Sprintf("%s:%d", c.TxHash, c.Index)
}

// OutPoint returns coin as transaction input reference.
func (c Coin) OutPoint() (*wire.OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(c.TxHash)
	if err != nil {
		return nil, fmt.Errorf("invalid coin tx hash %q: %w", c.TxHash, err)
	}

	return wire.NewOutPoint(hash, c.Index), nil
}

// Confirmations returns number of confirmations of the coin on provided chain tip.
func (c Coin) Confirmations(tipHeight uint64) uint64 {
	if !c.Status.Confirmed || c.Status.BlockHeight == 0 || c.Status.BlockHeight > tipHeight {
		return 0
	}

	return tipHeight - c.Status.BlockHeight + 1
}

// TotalAmount returns sum of coins amounts.
func TotalAmount(coins []Coin) uint64 {
	var total uint64
	for _, coin := range coins {
		total += coin.Amount
	}

	return total
}
