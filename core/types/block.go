// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"io"

	"github.com/baby636-sketch/Membercoin/common/hash"
	s "github.com/baby636-sketch/Membercoin/core/serialization"
)

// HeaderSize is the fixed serialized size of a BlockHeader: version (4) +
// prev hash (32) + merkle root (32) + time (4) + bits (4) + nonce (4).
const HeaderSize = 4 + hash.HashSize + hash.HashSize + 4 + 4 + 4

// BlockHeader holds the 80 bytes that are hashed to produce both the
// BLAKE3 block identity and the internal double-SHA256 mid-hash.
type BlockHeader struct {
	Version    int32
	PrevBlock  hash.Hash
	MerkleRoot hash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// Serialize writes the canonical 80-byte header encoding to w.
func (h *BlockHeader) Serialize(w *bytes.Buffer) error {
	return s.WriteElements(w, h.Version, &h.PrevBlock, &h.MerkleRoot,
		h.Timestamp, h.Bits, h.Nonce)
}

// Bytes returns the canonical 80-byte header encoding.
func (h *BlockHeader) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderSize)
	_ = h.Serialize(&buf)
	return buf.Bytes()
}

// BlockHash returns the BLAKE3 hash of the 80-byte header: the
// network-visible block identifier and the value the proof-of-work check
// is evaluated against.
func (h *BlockHeader) BlockHash() hash.Hash {
	return hash.Blake3Hash(h.Bytes())
}

// MidHash returns the internal double-SHA256 hash of the 80-byte header.
// It is never used as a block-index key or wire identifier, and
// signature hashing (CalcSignatureHash) does not use it either.
func (h *BlockHeader) MidHash() hash.Hash {
	return hash.DoubleSHA256(h.Bytes())
}

// DeserializeBlockHeader decodes the fixed 80-byte header encoding from r.
func DeserializeBlockHeader(r io.Reader) (*BlockHeader, error) {
	h := &BlockHeader{}
	err := s.ReadElements(r, &h.Version, &h.PrevBlock, &h.MerkleRoot,
		&h.Timestamp, &h.Bits, &h.Nonce)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Block is a BlockHeader plus its ordered transactions, the first of
// which must be the coinbase.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// ComputeMerkleRoot recomputes the Merkle root over the block's
// transaction ids, using the Satoshi duplicate-last-node convention for
// odd-sized layers.
func (b *Block) ComputeMerkleRoot() (hash.Hash, error) {
	leaves := make([]hash.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		h, err := tx.TxHash()
		if err != nil {
			return hash.Hash{}, err
		}
		leaves[i] = h
	}
	return hash.MerkleRoot(leaves), nil
}

// SerializeSize returns the number of bytes it would take to serialize
// the block.
func (b *Block) SerializeSize() int {
	n := HeaderSize
	n += s.VarIntSerializeSize(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		n += tx.SerializeSize()
	}
	return n
}

// Serialize writes the canonical encoding of the block (header, then
// compact-size transaction count, then each transaction) to w.
func (b *Block) Serialize(w *bytes.Buffer) error {
	if err := b.Header.Serialize(w); err != nil {
		return err
	}
	if err := s.WriteVarInt(w, uint64(len(b.Transactions))); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the canonical encoding of the block.
func (b *Block) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(b.SerializeSize())
	if err := b.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// maxBlockTxCount bounds the transaction count read from the wire; it is
// set well above any block that could pass the excessive-size check so a
// corrupt count cannot force a huge allocation before that check runs.
const maxBlockTxCount = 1 << 24

// DeserializeBlock decodes a block from its canonical encoding.
func DeserializeBlock(r io.Reader) (*Block, error) {
	header, err := DeserializeBlockHeader(r)
	if err != nil {
		return nil, err
	}
	txCount, err := s.ReadVarIntCount(r)
	if err != nil {
		return nil, err
	}
	if txCount > maxBlockTxCount {
		return nil, &s.MalformedErr{Reason: "block transaction count exceeds sane bound"}
	}
	txs := make([]*Transaction, txCount)
	for i := range txs {
		tx, err := DeserializeTransaction(r)
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	return &Block{Header: *header, Transactions: txs}, nil
}
