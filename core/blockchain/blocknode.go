// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/pow"
	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/database"
)

// medianTimeBlocks is the number of preceding blocks used to calculate
// the median time used to validate block timestamps.
const medianTimeBlocks = 11

// blockStatus is a bit field representing a block's validation state.
// It is never serialized bit-for-bit across versions beyond the
// HeaderRecord encoding, so additions are safe.
type blockStatus uint8

const (
	statusDataStored     blockStatus = 1 << 0
	statusValid          blockStatus = 1 << 1
	statusFailed         blockStatus = 1 << 2
	statusFailedAncestor blockStatus = 1 << 3
)

func (s blockStatus) haveData() bool     { return s&statusDataStored != 0 }
func (s blockStatus) knownValid() bool   { return s&statusValid != 0 }
func (s blockStatus) knownInvalid() bool { return s&(statusFailed|statusFailedAncestor) != 0 }

// blockNode represents a block within the header DAG the block index
// tracks, carrying just enough of the header to select the best chain
// and reconstruct it without touching the block files.
type blockNode struct {
	parent *blockNode
	hash   hash.Hash

	workSum *big.Int

	height    int32
	version   int32
	bits      uint32
	timestamp int64
	merkleRoot hash.Hash

	status blockStatus

	// skip is a pointer used by the skip-list ancestor-walk algorithm
	// (Decred/bitcoind's CBlockIndex::pskip): it points at an earlier
	// ancestor chosen so that walking skip pointers from any node to the
	// genesis block takes O(log height) steps rather than O(height).
	skip *blockNode
}

// newBlockNode returns a new node for header, with workSum computed as
// parent.workSum plus this header's own proof-of-work contribution.
func newBlockNode(header *types.BlockHeader, parent *blockNode) *blockNode {
	node := &blockNode{
		hash:       header.BlockHash(),
		workSum:    pow.CalcWork(header.Bits),
		version:    header.Version,
		bits:       header.Bits,
		timestamp:  int64(header.Timestamp),
		merkleRoot: header.MerkleRoot,
	}
	if parent != nil {
		node.parent = parent
		node.height = parent.height + 1
		node.workSum = new(big.Int).Add(parent.workSum, node.workSum)
		node.skip = parent.ancestor(skipHeight(node.height))
	}
	return node
}

// newBlockNodeFromRecord reconstructs a blockNode's own fields from a
// persisted HeaderRecord, leaving parent and skip unset. It is used only
// when rebuilding the index from a BlockIndexStore on restart, where
// every record for the resumed chain must already be loaded before
// parent/skip pointers can be linked (see Chain.rebuildIndex); workSum
// comes straight from the record's stored ChainWork rather than being
// recomputed by walking ancestors, since the store carries it directly.
func newBlockNodeFromRecord(rec *database.HeaderRecord) *blockNode {
	return &blockNode{
		hash:       rec.Hash,
		workSum:    new(big.Int).SetBytes(rec.ChainWork),
		height:     rec.Height,
		version:    rec.Version,
		bits:       rec.Bits,
		timestamp:  rec.Timestamp,
		merkleRoot: rec.MerkleRoot,
		status:     blockStatus(rec.Status),
	}
}

// skipHeight computes the height the skip-list algorithm should point at
// for a node at height h, following the same invariant-preserving
// recurrence bitcoind's GetSkipHeight uses.
func skipHeight(h int32) int32 {
	if h < 2 {
		return 0
	}
	if h&1 != 0 {
		return invertLowestOne(invertLowestOne(h-1)) + 1
	}
	return invertLowestOne(h)
}

func invertLowestOne(h int32) int32 {
	return h & (h - 1)
}

// Header reconstructs the BlockHeader the node represents. Version,
// merkle root, timestamp and bits are retained verbatim and the previous
// hash comes from the parent; nonce is not carried by the index and is
// zeroed.
func (node *blockNode) Header() types.BlockHeader {
	var prevHash hash.Hash
	if node.parent != nil {
		prevHash = node.parent.hash
	}
	return types.BlockHeader{
		Version:    node.version,
		PrevBlock:  prevHash,
		MerkleRoot: node.merkleRoot,
		Timestamp:  uint32(node.timestamp),
		Bits:       node.bits,
	}
}

// calcPastMedianTime returns the median timestamp of the node and up to
// medianTimeBlocks-1 of its ancestors.
func (node *blockNode) calcPastMedianTime() int64 {
	timestamps := make([]int64, 0, medianTimeBlocks)
	iter := node
	for i := 0; i < medianTimeBlocks && iter != nil; i++ {
		timestamps = append(timestamps, iter.timestamp)
		iter = iter.parent
	}
	sortInt64s(timestamps)
	return timestamps[len(timestamps)/2]
}

func sortInt64s(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ancestor returns the ancestor at the given height, walking skip
// pointers so the cost is O(log(node.height - height)) rather than
// O(node.height - height).
func (node *blockNode) ancestor(height int32) *blockNode {
	if height < 0 || height > node.height {
		return nil
	}

	n := node
	for n != nil && n.height != height {
		if n.skip != nil && n.skip.height >= height {
			n = n.skip
		} else {
			n = n.parent
		}
	}
	if n == nil || n.height != height {
		return nil
	}
	return n
}

// relativeAncestor returns the ancestor distance blocks before node.
func (node *blockNode) relativeAncestor(distance int32) *blockNode {
	return node.ancestor(node.height - distance)
}

// findFork returns the highest common ancestor of node and other,
// following skip pointers on whichever side is currently higher.
func findFork(node, other *blockNode) *blockNode {
	if node == nil || other == nil {
		return nil
	}
	for node.height > other.height {
		node = node.ancestor(other.height)
		if node == nil {
			return nil
		}
	}
	for other.height > node.height {
		other = other.ancestor(node.height)
		if other == nil {
			return nil
		}
	}
	for node != other {
		if node.skip != nil && other.skip != nil && node.skip != other.skip &&
			node.skip.height == other.skip.height {
			node, other = node.skip, other.skip
			continue
		}
		node, other = node.parent, other.parent
		if node == nil || other == nil {
			return nil
		}
	}
	return node
}
