// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/blockchain"
	"github.com/baby636-sketch/Membercoin/core/types"
)

// GetCoin returns the confirmed, unspent output named by op, or nil if it
// doesn't exist or has already been spent. It does not consult the
// mempool: an output only a pending transaction creates is not yet a
// queryable coin.
func (n *Node) GetCoin(op types.OutPoint) (*types.Coin, error) {
	return n.chain.Coins().GetCoin(op)
}

// GetTip returns the current best validated chain tip.
func (n *Node) GetTip() *blockchain.BlockIndexEntry {
	return n.chain.TipEntry()
}

// GetHeader returns the index entry for blockHash, or nil if unknown.
func (n *Node) GetHeader(blockHash hash.Hash) *blockchain.BlockIndexEntry {
	return n.chain.HeaderEntry(blockHash)
}
