// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package reservation

import (
	"maps"
	"sync"
	"time"

	"github.com/BoostyLabs/runesmith/bitcoin"
)

// Memory is an in-process Ledger.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
}

var _ Ledger = (*Memory)(nil)

// NewMemory is a constructor for Memory.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// Reserve reserves every coin for the owner or none of them.
func (m *Memory) Reserve(owner string, coins []bitcoin.Coin) error {
	return m.update(func(b bucket) error { return reserve(b, owner, coins, time.Now()) })
}

// Release returns owner reserved coins back to available ones.
func (m *Memory) Release(owner string, coins []bitcoin.Coin) error {
	return m.update(func(b bucket) error { return release(b, owner, coins) })
}

// Consume marks coins as spent by the transaction txID.
func (m *Memory) Consume(owner, txID string, coins []bitcoin.Coin) error {
	return m.update(func(b bucket) error { return consume(b, owner, txID, coins, time.Now()) })
}

// Available returns coins which are neither reserved nor consumed.
func (m *Memory) Available(coins []bitcoin.Coin) ([]bitcoin.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return available(memoryBucket(m.entries), coins)
}

// Spent returns consumed coins grouped by their spending transaction.
func (m *Memory) Spent(coins []bitcoin.Coin) (map[string][]bitcoin.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return spent(memoryBucket(m.entries), coins)
}

// Reinstate makes coins consumed by txID available again.
func (m *Memory) Reinstate(txID string, coins []bitcoin.Coin) error {
	return m.update(func(b bucket) error { return reinstate(b, txID, coins) })
}

// update applies fn to a copy of entries, the copy replaces entries only if fn succeeds.
func (m *Memory) update(fn func(b bucket) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := maps.Clone(m.entries)
	if err := fn(memoryBucket(entries)); err != nil {
		return err
	}

	m.entries = entries

	return nil
}

type memoryBucket map[string]Entry

func (b memoryBucket) get(key string) (Entry, bool, error) {
	entry, ok := b[key]
	return entry, ok, nil
}

func (b memoryBucket) put(key string, entry Entry) error {
	b[key] = entry
	return nil
}

func (b memoryBucket) delete(key string) error {
	delete(b, key)
	return nil
}
