// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"

	"github.com/baby636-sketch/Membercoin/common/hash"
)

// blockIndex tracks every known header by hash, along with the set of
// candidate tips (headers with no child yet added to the index) so
// the chain with the greatest cumulative work can always be identified
// without rescanning the whole index.
type blockIndex struct {
	mu sync.RWMutex

	index map[hash.Hash]*blockNode
	tips  map[hash.Hash]*blockNode

	best *blockNode
}

func newBlockIndex() *blockIndex {
	return &blockIndex{
		index: make(map[hash.Hash]*blockNode),
		tips:  make(map[hash.Hash]*blockNode),
	}
}

// addNode inserts node into the index, updates the candidate-tip set
// (removing its parent, since it now has a child in the index), and advances
// best if node's cumulative work exceeds the current best's.
func (bi *blockIndex) addNode(node *blockNode) {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	bi.index[node.hash] = node
	bi.tips[node.hash] = node
	if node.parent != nil {
		delete(bi.tips, node.parent.hash)
	}

	if bi.best == nil || bestBlockLess(bi.best, node) {
		bi.best = node
	}
}

// bestBlockLess reports whether candidate has strictly more cumulative
// work than incumbent, breaking ties by the lexicographically smaller
// hash — an arbitrary but deterministic tiebreaker every node in the
// network applies identically.
func bestBlockLess(incumbent, candidate *blockNode) bool {
	cmp := candidate.workSum.Cmp(incumbent.workSum)
	if cmp != 0 {
		return cmp > 0
	}
	return candidate.hash.String() < incumbent.hash.String()
}

// lookupNode returns the node for blockHash, or nil if unknown.
func (bi *blockIndex) lookupNode(blockHash hash.Hash) *blockNode {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	return bi.index[blockHash]
}

// bestTip returns the current best-work node, which may not be
// statusValid if every valid tip has been superseded by an
// in-flight-but-unvalidated candidate with more claimed work.
func (bi *blockIndex) bestTip() *blockNode {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	return bi.best
}

// bestValidTip returns the highest-work node that is statusValid,
// ignoring any candidate tips still pending or failed validation.
func (bi *blockIndex) bestValidTip() *blockNode {
	bi.mu.RLock()
	defer bi.mu.RUnlock()

	var best *blockNode
	for _, n := range bi.index {
		if !n.status.knownValid() {
			continue
		}
		if best == nil || bestBlockLess(best, n) {
			best = n
		}
	}
	return best
}

// setStatusFlags ORs flags into node's status under the index lock, so
// concurrent validators never race on the byte.
func (bi *blockIndex) setStatusFlags(node *blockNode, flags blockStatus) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	node.status |= flags
}

// markFailed marks node statusFailed and every descendant currently in
// the index statusFailedAncestor, per §7's "descendants marked
// failed-parent" rule.
func (bi *blockIndex) markFailed(node *blockNode) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	node.status |= statusFailed
	delete(bi.tips, node.hash)

	for _, n := range bi.index {
		if isDescendant(n, node) {
			n.status |= statusFailedAncestor
		}
	}
}

func isDescendant(node, ancestor *blockNode) bool {
	for n := node; n != nil; n = n.parent {
		if n == ancestor {
			return node != ancestor
		}
	}
	return false
}

// candidateTips returns a snapshot of the current candidate-tip nodes,
// the starting set for the C9 parallel validation orchestrator's
// race-to-connect.
func (bi *blockIndex) candidateTips() []*blockNode {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	tips := make([]*blockNode, 0, len(bi.tips))
	for _, n := range bi.tips {
		tips = append(tips, n)
	}
	return tips
}
