// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package reservation provides single owner ledger of coins used by in-flight transactions.
package reservation

import (
	"errors"
	"fmt"
	"time"

	"github.com/BoostyLabs/runesmith/bitcoin"
)

// ErrNotOwner defines operation on a coin reserved by another owner.
var ErrNotOwner = errors.New("coin is reserved by another owner")

// State defines coin state in the ledger.
type State uint8

const (
	// StateReserved defines coin selected into an in-flight transaction.
	StateReserved State = iota + 1
	// StateConsumed defines coin spent by a transaction whose broadcast was attempted.
	StateConsumed
)

// Entry is a ledger record of a coin.
type Entry struct {
	Owner string
	State State
	// TxID is the spending transaction of a consumed coin.
	TxID string
	At   time.Time
}

// Ledger tracks coins selected into transactions. A coin is reserved by exactly one
// owner and can not be reserved again once consumed, unless it is reinstated after
// its spending transaction turned out to be unknown to the network.
type Ledger interface {
	// Reserve reserves every coin for the owner or none of them.
	Reserve(owner string, coins []bitcoin.Coin) error
	// Release returns owner reserved coins back to available ones.
	Release(owner string, coins []bitcoin.Coin) error
	// Consume marks coins as spent by the transaction txID.
	Consume(owner, txID string, coins []bitcoin.Coin) error
	// Available returns coins which are neither reserved nor consumed.
	Available(coins []bitcoin.Coin) ([]bitcoin.Coin, error)
	// Spent returns consumed coins grouped by their spending transaction.
	Spent(coins []bitcoin.Coin) (map[string][]bitcoin.Coin, error)
	// Reinstate makes coins consumed by txID available again.
	Reinstate(txID string, coins []bitcoin.Coin) error
}

// bucket is a key value view of the ledger inside a single transaction.
type bucket interface {
	get(key string) (Entry, bool, error)
	put(key string, entry Entry) error
	delete(key string) error
}

func reserve(b bucket, owner string, coins []bitcoin.Coin, now time.Time) error {
	for _, coin := range coins {
		entry, ok, err := b.get(coin.Key())
		if err != nil {
			return err
		}

		if ok && (entry.State == StateConsumed || entry.Owner != owner) {
			return fmt.Errorf("%w: %s", bitcoin.ErrCoinReserved, coin.Key())
		}
	}

	for _, coin := range coins {
		if err := b.put(coin.Key(), Entry{Owner: owner, State: StateReserved, At: now}); err != nil {
			return err
		}
	}

	return nil
}

func release(b bucket, owner string, coins []bitcoin.Coin) error {
	for _, coin := range coins {
		entry, ok, err := b.get(coin.Key())
		if err != nil {
			return err
		}

		switch {
		case !ok, entry.State == StateConsumed:
			continue
		case entry.Owner != owner:
			return fmt.Errorf("%w: %s", ErrNotOwner, coin.Key())
		}

		if err = b.delete(coin.Key()); err != nil {
			return err
		}
	}

	return nil
}

func consume(b bucket, owner, txID string, coins []bitcoin.Coin, now time.Time) error {
	for _, coin := range coins {
		entry, ok, err := b.get(coin.Key())
		if err != nil {
			return err
		}

		if ok && entry.Owner != owner {
			return fmt.Errorf("%w: %s", ErrNotOwner, coin.Key())
		}
	}

	for _, coin := range coins {
		if err := b.put(coin.Key(), Entry{Owner: owner, State: StateConsumed, TxID: txID, At: now}); err != nil {
			return err
		}
	}

	return nil
}

func available(b bucket, coins []bitcoin.Coin) ([]bitcoin.Coin, error) {
	result := make([]bitcoin.Coin, 0, len(coins))
	for _, coin := range coins {
		_, ok, err := b.get(coin.Key())
		if err != nil {
			return nil, err
		}

		if !ok {
			result = append(result, coin)
		}
	}

	return result, nil
}

func spent(b bucket, coins []bitcoin.Coin) (map[string][]bitcoin.Coin, error) {
	result := make(map[string][]bitcoin.Coin)
	for _, coin := range coins {
		entry, ok, err := b.get(coin.Key())
		if err != nil {
			return nil, err
		}

		// entries written without spending transaction stay consumed.
		if ok && entry.State == StateConsumed && entry.TxID != "" {
			result[entry.TxID] = append(result[entry.TxID], coin)
		}
	}

	return result, nil
}

func reinstate(b bucket, txID string, coins []bitcoin.Coin) error {
	for _, coin := range coins {
		entry, ok, err := b.get(coin.Key())
		if err != nil {
			return err
		}

		if !ok || entry.State != StateConsumed || entry.TxID != txID {
			continue
		}

		if err = b.delete(coin.Key()); err != nil {
			return err
		}
	}

	return nil
}
