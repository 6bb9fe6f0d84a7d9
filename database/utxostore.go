// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"fmt"

	bolt "github.com/coreos/bbolt"

	"github.com/baby636-sketch/Membercoin/common/hash"
	s "github.com/baby636-sketch/Membercoin/core/serialization"
	"github.com/baby636-sketch/Membercoin/core/types"
)

var (
	utxoBucket   = []byte("utxo")
	metaBucket   = []byte("meta")
	bestBlockKey = []byte("best-block")
)

// BoltUtxoStore is the disk snapshot of the coin set: the bottom layer
// of the three-tier UtxoViewpoint cache described in §4.5, backed by a
// single bbolt file with one bucket per OutPoint→Coin mapping and a
// sentinel meta bucket holding the best-block hash.
type BoltUtxoStore struct {
	db *bolt.DB
}

// OpenUtxoStore opens (creating if necessary) the bbolt-backed UTXO
// snapshot at path.
func OpenUtxoStore(path string) (*BoltUtxoStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("database: open utxo store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(utxoBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltUtxoStore{db: db}, nil
}

func (b *BoltUtxoStore) Close() error { return b.db.Close() }

// encodeOutPoint is the §6 UTXO key encoding: tx-hash (32B) followed by
// the output index as a compact-size varint.
func encodeOutPoint(op types.OutPoint) []byte {
	var buf bytes.Buffer
	buf.Write(op.Hash.Bytes())
	s.WriteVarInt(&buf, uint64(op.Index))
	return buf.Bytes()
}

// encodeCoin is the §6 UTXO value encoding: a compressed
// (height<<1 | coinbase-bit) varint followed by the output's value and
// script.
func encodeCoin(c *types.Coin) ([]byte, error) {
	var buf bytes.Buffer
	code := uint64(c.Height)<<1 | boolToUint64(c.Coinbase)
	if err := s.WriteVarInt(&buf, code); err != nil {
		return nil, err
	}
	if err := s.WriteElements(&buf, c.Output.Value); err != nil {
		return nil, err
	}
	if err := s.WriteVarBytes(&buf, c.Output.PkScript); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCoin(b []byte) (*types.Coin, error) {
	r := bytes.NewReader(b)
	code, err := s.ReadVarIntCount(r)
	if err != nil {
		return nil, err
	}
	var value int64
	if err := s.ReadElements(r, &value); err != nil {
		return nil, err
	}
	pkScript, err := s.ReadVarBytes(r, 10*1024*1024, "pubkey script")
	if err != nil {
		return nil, err
	}
	return &types.Coin{
		Output:   types.TxOut{Value: value, PkScript: pkScript},
		Height:   uint32(code >> 1),
		Coinbase: code&1 != 0,
	}, nil
}

func boolToUint64(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// GetCoin returns the coin stored for op, or ErrNotFound if the snapshot
// has no entry for it (either never created, or already spent and
// pruned by a prior batch write).
func (b *BoltUtxoStore) GetCoin(op types.OutPoint) (*types.Coin, error) {
	var coin *types.Coin
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(utxoBucket).Get(encodeOutPoint(op))
		if v == nil {
			return ErrNotFound
		}
		c, err := decodeCoin(v)
		if err != nil {
			return err
		}
		coin = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coin, nil
}

// BatchWrite atomically applies every put and delete, then updates the
// best-block sentinel, mirroring the cache's flush-on-connect path: the
// UTXO set on disk must never be observed in a state that mixes one
// block's coin changes with another's best-block pointer.
func (b *BoltUtxoStore) BatchWrite(puts map[types.OutPoint]*types.Coin, deletes []types.OutPoint, bestBlock hash.Hash) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(utxoBucket)
		for op, coin := range puts {
			enc, err := encodeCoin(coin)
			if err != nil {
				return err
			}
			if err := bucket.Put(encodeOutPoint(op), enc); err != nil {
				return err
			}
		}
		for _, op := range deletes {
			if err := bucket.Delete(encodeOutPoint(op)); err != nil {
				return err
			}
		}
		return tx.Bucket(metaBucket).Put(bestBlockKey, bestBlock.Bytes())
	})
}

// BestBlock returns the hash of the block the snapshot is consistent as
// of, or the zero hash if nothing has been written yet.
func (b *BoltUtxoStore) BestBlock() (hash.Hash, error) {
	var h hash.Hash
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(bestBlockKey)
		if v == nil {
			return nil
		}
		return h.SetBytes(v)
	})
	return h, err
}
