// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"fmt"

	"github.com/baby636-sketch/Membercoin/common/hash"
)

// MaxPrevOutIndex is the largest value an outpoint index can hold. It is
// also the index of the coinbase's null outpoint (see IsNull).
const MaxPrevOutIndex uint32 = 0xffffffff

// OutPoint identifies a single output of a single transaction: the
// 32-byte hash of the transaction that created it and the zero-based
// index of the output within that transaction.
type OutPoint struct {
	Hash  hash.Hash
	Index uint32
}

// NewOutPoint returns a new outpoint for the given transaction hash and
// output index.
func NewOutPoint(h *hash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *h, Index: index}
}

// IsNull reports whether the outpoint is the coinbase sentinel: an
// all-zero hash with index 0xffffffff.
func (o OutPoint) IsNull() bool {
	return o.Index == MaxPrevOutIndex && o.Hash.IsZero()
}

// String returns the canonical "hash:index" representation of an
// outpoint.
func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash.String(), o.Index)
}
