// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/baby636-sketch/Membercoin/common/hash"
)

// BlockLocator is a vector of hashes at exponentially increasing
// distances back from a starting block, per §4.6's get_locator
// operation. The algorithm for building one is to add hashes in
// reverse order until the genesis block is reached, stepping back one
// block at a time until the locator holds more than ten entries, then
// doubling the step each iteration so the list stays logarithmic in
// height rather than growing linearly with it.
//
// For example, given:
// 	genesis -> 1 -> 2 -> ... -> 15 -> 16 -> 17 -> 18
//
// the locator for block 18 would be the hashes of blocks:
// [18 17 16 15 14 13 12 11 10 9 8 7 5 1 genesis]
type BlockLocator []hash.Hash

// LatestBlockLocator returns a block locator for the chain's current
// tip. Safe for concurrent access.
func (c *Chain) LatestBlockLocator() BlockLocator {
	c.mu.Lock()
	tip := c.tip
	c.mu.Unlock()
	return c.index.getLocator(tip)
}

// GetLocator returns a block locator for blockHash, or nil if the hash
// is not known to the index. Safe for concurrent access.
func (c *Chain) GetLocator(blockHash hash.Hash) BlockLocator {
	node := c.index.lookupNode(blockHash)
	if node == nil {
		return nil
	}
	return c.index.getLocator(node)
}

// getLocator builds a BlockLocator starting at node and walking parent
// pointers (via the skip-list ancestor walk) back to genesis: the step
// is 1 until the locator holds more than ten entries (so the first
// twelve entries are consecutive heights), then it doubles after every
// subsequent entry. Returns nil if node is nil.
func (bi *blockIndex) getLocator(node *blockNode) BlockLocator {
	if node == nil {
		return nil
	}

	locator := make(BlockLocator, 0, 12)
	step := int32(1)
	for node != nil {
		locator = append(locator, node.hash)

		if node.height == 0 {
			break
		}

		height := node.height - step
		if height < 0 {
			height = 0
		}
		node = node.ancestor(height)

		if len(locator) > 10 {
			step *= 2
		}
	}
	return locator
}
