// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package reservation

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/BoostyLabs/runesmith/bitcoin"
)

var bucketCoins = []byte("coins")

// Bolt is a Ledger persisted in bbolt database, it survives process restarts.
type Bolt struct {
	db *bbolt.DB
}

var _ Ledger = (*Bolt)(nil)

// OpenBolt opens or creates the ledger database at dbPath.
// The parent directory is created if it does not exist.
func OpenBolt(dbPath string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("reservation: create directory: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("reservation: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCoins)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reservation: create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the underlying database.
func (l *Bolt) Close() error { return l.db.Close() }

// Reserve reserves every coin for the owner or none of them.
func (l *Bolt) Reserve(owner string, coins []bitcoin.Coin) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		return reserve(boltBucket{tx.Bucket(bucketCoins)}, owner, coins, time.Now())
	})
}

// Release returns owner reserved coins back to available ones.
func (l *Bolt) Release(owner string, coins []bitcoin.Coin) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		return release(boltBucket{tx.Bucket(bucketCoins)}, owner, coins)
	})
}

// Consume marks coins as spent by the transaction txID.
func (l *Bolt) Consume(owner, txID string, coins []bitcoin.Coin) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		return consume(boltBucket{tx.Bucket(bucketCoins)}, owner, txID, coins, time.Now())
	})
}

// Available returns coins which are neither reserved nor consumed.
func (l *Bolt) Available(coins []bitcoin.Coin) (result []bitcoin.Coin, err error) {
	err = l.db.View(func(tx *bbolt.Tx) error {
		result, err = available(boltBucket{tx.Bucket(bucketCoins)}, coins)
		return err
	})

	return result, err
}

// Spent returns consumed coins grouped by their spending transaction.
func (l *Bolt) Spent(coins []bitcoin.Coin) (result map[string][]bitcoin.Coin, err error) {
	err = l.db.View(func(tx *bbolt.Tx) error {
		result, err = spent(boltBucket{tx.Bucket(bucketCoins)}, coins)
		return err
	})

	return result, err
}

// Reinstate makes coins consumed by txID available again.
func (l *Bolt) Reinstate(txID string, coins []bitcoin.Coin) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		return reinstate(boltBucket{tx.Bucket(bucketCoins)}, txID, coins)
	})
}

// Entry returns ledger record of the coin.
func (l *Bolt) Entry(coin bitcoin.Coin) (entry Entry, ok bool, err error) {
	err = l.db.View(func(tx *bbolt.Tx) error {
		entry, ok, err = boltBucket{tx.Bucket(bucketCoins)}.get(coin.Key())
		return err
	})

	return entry, ok, err
}

type boltBucket struct {
	b *bbolt.Bucket
}

func (b boltBucket) get(key string) (Entry, bool, error) {
	data := b.b.Get([]byte(key))
	if data == nil {
		return Entry{}, false, nil
	}

	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return Entry{}, false, fmt.Errorf("reservation: decode entry %s: %w", key, err)
	}

	return entry, true, nil
}

func (b boltBucket) put(key string, entry Entry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("reservation: encode entry %s: %w", key, err)
	}

	return b.b.Put([]byte(key), buf.Bytes())
}

func (b boltBucket) delete(key string) error {
	return b.b.Delete([]byte(key))
}
