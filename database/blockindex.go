// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/baby636-sketch/Membercoin/common/hash"
	s "github.com/baby636-sketch/Membercoin/core/serialization"
)

// BadgerBlockIndexStore persists HeaderRecords keyed by block hash, so
// the in-memory block index (core/blockchain's blockIndex) can be
// rebuilt on restart without rescanning every blk?????.dat file.
type BadgerBlockIndexStore struct {
	db *badger.DB
}

// OpenBlockIndexStore opens (creating if necessary) the badger-backed
// header-metadata store at dir.
func OpenBlockIndexStore(dir string) (*BadgerBlockIndexStore, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("database: open block index store: %w", err)
	}
	return &BadgerBlockIndexStore{db: db}, nil
}

func (b *BadgerBlockIndexStore) Close() error { return b.db.Close() }

// PutHeader persists rec, overwriting any prior record for the same
// hash.
func (b *BadgerBlockIndexStore) PutHeader(rec *HeaderRecord) error {
	enc, err := encodeHeaderRecord(rec)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rec.Hash.Bytes(), enc)
	})
}

// GetHeader returns the record for blockHash, or ErrNotFound if none
// has been written.
func (b *BadgerBlockIndexStore) GetHeader(blockHash hash.Hash) (*HeaderRecord, error) {
	var rec *HeaderRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockHash.Bytes())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, err := decodeHeaderRecord(val)
			if err != nil {
				return err
			}
			rec = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ForEachHeader walks every persisted header record in an unspecified
// order, invoking fn for each; the iteration stops on the first error fn
// returns.
func (b *BadgerBlockIndexStore) ForEachHeader(fn func(*HeaderRecord) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				rec, err := decodeHeaderRecord(val)
				if err != nil {
					return err
				}
				return fn(rec)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func encodeHeaderRecord(rec *HeaderRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(rec.Hash.Bytes())
	buf.Write(rec.ParentHash.Bytes())

	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(rec.Height))
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint32(scratch[:], uint32(rec.Version))
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint32(scratch[:], rec.Bits)
	buf.Write(scratch[:])

	var scratch8 [8]byte
	binary.LittleEndian.PutUint64(scratch8[:], uint64(rec.Timestamp))
	buf.Write(scratch8[:])

	buf.Write(rec.MerkleRoot.Bytes())
	buf.WriteByte(rec.Status)

	if err := s.WriteVarBytes(&buf, rec.ChainWork); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeHeaderRecord(b []byte) (*HeaderRecord, error) {
	r := bytes.NewReader(b)
	rec := &HeaderRecord{}

	hashBuf := make([]byte, 32)
	if _, err := r.Read(hashBuf); err != nil {
		return nil, err
	}
	if err := rec.Hash.SetBytes(hashBuf); err != nil {
		return nil, err
	}
	if _, err := r.Read(hashBuf); err != nil {
		return nil, err
	}
	if err := rec.ParentHash.SetBytes(hashBuf); err != nil {
		return nil, err
	}

	var scratch [4]byte
	if _, err := r.Read(scratch[:]); err != nil {
		return nil, err
	}
	rec.Height = int32(binary.LittleEndian.Uint32(scratch[:]))
	if _, err := r.Read(scratch[:]); err != nil {
		return nil, err
	}
	rec.Version = int32(binary.LittleEndian.Uint32(scratch[:]))
	if _, err := r.Read(scratch[:]); err != nil {
		return nil, err
	}
	rec.Bits = binary.LittleEndian.Uint32(scratch[:])

	var scratch8 [8]byte
	if _, err := r.Read(scratch8[:]); err != nil {
		return nil, err
	}
	rec.Timestamp = int64(binary.LittleEndian.Uint64(scratch8[:]))

	merkleBuf := make([]byte, 32)
	if _, err := r.Read(merkleBuf); err != nil {
		return nil, err
	}
	if err := rec.MerkleRoot.SetBytes(merkleBuf); err != nil {
		return nil, err
	}

	status, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	rec.Status = status

	chainWork, err := s.ReadVarBytes(r, 64, "chain work")
	if err != nil {
		return nil, err
	}
	rec.ChainWork = chainWork

	return rec, nil
}
