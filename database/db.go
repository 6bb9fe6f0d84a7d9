// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package database implements the two persistent stores the validation
// engine consumes: a UtxoStore holding the disk snapshot of the coin set,
// keyed by outpoint, and a BlockIndexStore holding header and status
// metadata for every known block. Raw block and undo bytes live in the
// flat-file BlockStore alongside them.
package database

import (
	"errors"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
)

// ErrNotFound is returned by lookups that find no value for a key. It is
// not logged as an error by callers: a missing coin or header is an
// expected outcome, not a store failure.
var ErrNotFound = errors.New("database: not found")

// UtxoStore is the key-value I/O interface the coin-view cache flushes
// its dirty entries through. Keys are OutPoints; a batch is applied
// atomically.
type UtxoStore interface {
	GetCoin(op types.OutPoint) (*types.Coin, error)
	BatchWrite(puts map[types.OutPoint]*types.Coin, deletes []types.OutPoint, bestBlock hash.Hash) error
	BestBlock() (hash.Hash, error)
	Close() error
}

// BlockIndexStore persists block-header metadata (header fields, status
// flags, cumulative work; no block-file coordinates) so the block index can be
// rebuilt without a full block-file rescan on restart.
type BlockIndexStore interface {
	PutHeader(rec *HeaderRecord) error
	GetHeader(blockHash hash.Hash) (*HeaderRecord, error)
	ForEachHeader(fn func(*HeaderRecord) error) error
	Close() error
}

// HeaderRecord is the persisted form of a core/blockchain blockNode: just
// enough to reconstruct the index and status bits without re-parsing the
// block body.
type HeaderRecord struct {
	Hash       hash.Hash
	ParentHash hash.Hash
	Height     int32
	Version    int32
	Bits       uint32
	Timestamp  int64
	MerkleRoot hash.Hash
	Status     uint8
	ChainWork  []byte // big.Int bytes, big-endian
}

// BlockStore is the append-only flat-file store for full block bytes and
// their undo records (the blk?????.dat/rev?????.dat pair).
type BlockStore interface {
	WriteBlock(b *types.Block) (fileNum uint32, offset uint32, err error)
	ReadBlock(fileNum, offset uint32) (*types.Block, error)
	WriteUndo(rec *UndoRecord, fileNum uint32) (offset uint32, err error)
	ReadUndo(fileNum, offset uint32) (*UndoRecord, error)
	Close() error
}

// UndoRecord holds the coins a block's inputs spent, in input order, so
// disconnectBlock can restore them to the UTXO set.
type UndoRecord struct {
	SpentCoins [][]*types.Coin // per-transaction, per-input
}
