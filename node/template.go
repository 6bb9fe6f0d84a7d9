// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"sort"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/services/mempool"
)

// TemplateParams selects what GetBlockTemplate builds the candidate
// around: who the subsidy pays out to, and a ceiling on the candidate's
// serialized size (defaulting to the chain's own MaxBlockSize).
type TemplateParams struct {
	PayToScript  []byte
	MaxBlockSize uint64
}

// Template is a not-yet-mined candidate block, assembled from the current
// tip and the highest fee-rate transactions the mempool currently holds.
// A miner fills in ExtraNonce/Timestamp/Nonce search space and resubmits
// the serialized result through SubmitBlock.
type Template struct {
	Header       types.BlockHeader
	Transactions []*types.Transaction
	Height       int32
	Fees         int64
}

// headerAndCoinbaseBudget reserves room in MaxBlockSize for the 80-byte
// header and the coinbase transaction itself, which is never counted
// against the fee-paying transactions competing for space.
const headerAndCoinbaseBudget = 1024

// GetBlockTemplate assembles a candidate block extending the current tip:
// a fresh coinbase paying the height's subsidy plus collected fees, and as
// many of the mempool's highest fee-rate transactions as fit under the
// size ceiling, ordered so that every in-pool ancestor of a selected
// transaction appears earlier in the block than it does.
func (n *Node) GetBlockTemplate(p TemplateParams) (*Template, error) {
	maxSize := p.MaxBlockSize
	if maxSize == 0 {
		maxSize = n.params.MaxBlockSize
	}
	budget := maxSize - headerAndCoinbaseBudget

	byHash := make(map[hash.Hash]*mempool.TxDesc)
	for _, td := range n.pool.Snapshot() {
		byHash[td.Hash] = td
	}

	ordered := make([]*mempool.TxDesc, 0, len(byHash))
	for _, td := range byHash {
		ordered = append(ordered, td)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].FeeRate > ordered[j].FeeRate })

	included := make(map[hash.Hash]bool, len(ordered))
	var chosen []*mempool.TxDesc
	var fees int64
	var size uint64

	var include func(td *mempool.TxDesc) bool
	include = func(td *mempool.TxDesc) bool {
		if included[td.Hash] {
			return true
		}
		for _, in := range td.Tx.TxIn {
			ancestor, isInPool := byHash[in.PreviousOutPoint.Hash]
			if !isInPool {
				continue
			}
			if !include(ancestor) {
				return false
			}
		}
		if size+uint64(td.Size) > budget {
			return false
		}
		included[td.Hash] = true
		chosen = append(chosen, td)
		fees += td.Fee
		size += uint64(td.Size)
		return true
	}

	for _, td := range ordered {
		include(td)
	}

	tip := n.chain.TipEntry()
	height := tip.Height + 1
	subsidy := n.chain.CalcSubsidy(height) + fees

	// The height is pushed in the minimal script-number encoding the
	// chain's coinbase-height check requires.
	var heightNum []byte
	for v := height; v > 0; v >>= 8 {
		heightNum = append(heightNum, byte(v))
	}
	if len(heightNum) > 0 && heightNum[len(heightNum)-1]&0x80 != 0 {
		heightNum = append(heightNum, 0x00)
	}
	coinbase := types.NewTransaction()
	coinbase.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: hash.ZeroHash, Index: types.MaxPrevOutIndex},
		append([]byte{byte(len(heightNum))}, heightNum...)))
	coinbase.AddTxOut(types.NewTxOut(subsidy, p.PayToScript))

	txs := make([]*types.Transaction, 0, len(chosen)+1)
	txs = append(txs, coinbase)
	for _, td := range chosen {
		txs = append(txs, td.Tx)
	}

	block := &types.Block{Transactions: txs}
	root, err := block.ComputeMerkleRoot()
	if err != nil {
		return nil, err
	}

	header := types.BlockHeader{
		Version:    1,
		PrevBlock:  tip.Hash,
		MerkleRoot: root,
		Timestamp:  uint32(tip.Timestamp) + 1,
		Bits:       n.chain.NextRequiredDifficulty(tip.Timestamp + 1),
	}

	return &Template{Header: header, Transactions: txs, Height: height, Fees: fees}, nil
}
