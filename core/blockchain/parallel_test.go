// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/params"
)

func TestResolveParallelism(t *testing.T) {
	assert.Equal(t, 4, resolveParallelism(4))
	assert.Equal(t, runtime.NumCPU(), resolveParallelism(0))

	want := runtime.NumCPU() - 1
	if want < 1 {
		want = 1
	}
	assert.Equal(t, want, resolveParallelism(-1))

	assert.Equal(t, 1, resolveParallelism(-1000000))
}

// twoTiedBlocksAtHeight1 builds two distinct, equal-work blocks that
// both extend genesis directly, simulating two miners finding a block
// at the same height at the same time.
func twoTiedBlocksAtHeight1(t *testing.T, p *params.Params) (*types.Block, *types.Block) {
	t.Helper()
	cbA := coinbaseTx(t, 1, 50*1e8)
	cbA.TxOut[0].PkScript = spendablePkScript()
	blockA := mineBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cbA}, p.GenesisBlock.Header.Timestamp+600, easyBits)

	cbB := coinbaseTx(t, 1, 50*1e8)
	cbB.TxOut[0].PkScript = append(spendablePkScript(), 0x61) // differ from A so the hashes differ
	blockB := mineBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cbB}, p.GenesisBlock.Header.Timestamp+601, easyBits)

	return blockA, blockB
}

func TestProcessBlocksConcurrentlyCommitsExactlyOneOfTiedCandidates(t *testing.T) {
	p := testChainParams()
	coins := NewCoinsCache(newMemUtxoStore())
	chain := NewChain(p, coins, newMemBlockStore())

	blockA, blockB := twoTiedBlocksAtHeight1(t, p)

	require.NoError(t, chain.ProcessBlocksConcurrently(context.Background(), []*types.Block{blockA, blockB}, 4))
	assert.Equal(t, int32(1), chain.Tip().height)

	cbAHash, err := blockA.Transactions[0].TxHash()
	require.NoError(t, err)
	cbBHash, err := blockB.Transactions[0].TxHash()
	require.NoError(t, err)

	coinA, err := coins.GetCoin(types.OutPoint{Hash: cbAHash, Index: 0})
	require.NoError(t, err)
	coinB, err := coins.GetCoin(types.OutPoint{Hash: cbBHash, Index: 0})
	require.NoError(t, err)

	present := 0
	if coinA != nil {
		present++
	}
	if coinB != nil {
		present++
	}
	assert.Equal(t, 1, present, "exactly one of the two equal-work candidates must have its coinbase committed")

	tipHash := chain.Tip().hash
	assert.True(t, tipHash == blockA.Header.BlockHash() || tipHash == blockB.Header.BlockHash())
}

func TestProcessBlocksConcurrentlyUnderPvTestDelayStillCommitsExactlyOne(t *testing.T) {
	p := testChainParams()
	coins := NewCoinsCache(newMemUtxoStore())
	chain := NewChain(p, coins, newMemBlockStore())
	chain.SetPvTestDelay(2 * time.Millisecond)

	blockA, blockB := twoTiedBlocksAtHeight1(t, p)

	require.NoError(t, chain.ProcessBlocksConcurrently(context.Background(), []*types.Block{blockA, blockB}, 4))
	assert.Equal(t, int32(1), chain.Tip().height)
}

func TestProcessBlocksConcurrentlySkipsDuplicateBlocks(t *testing.T) {
	p := testChainParams()
	coins := NewCoinsCache(newMemUtxoStore())
	chain := NewChain(p, coins, newMemBlockStore())

	cb := coinbaseTx(t, 1, 50*1e8)
	cb.TxOut[0].PkScript = spendablePkScript()
	block1 := mineBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cb}, p.GenesisBlock.Header.Timestamp+600, easyBits)

	require.NoError(t, chain.ProcessBlock(block1))
	require.NoError(t, chain.ProcessBlocksConcurrently(context.Background(), []*types.Block{block1}, 2))
	assert.Equal(t, int32(1), chain.Tip().height)
}
