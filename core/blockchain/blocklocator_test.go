// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
)

func TestLatestBlockLocatorStartsAtTipAndEndsAtGenesis(t *testing.T) {
	p := testChainParams()
	chain := NewChain(p, NewCoinsCache(newMemUtxoStore()), newMemBlockStore())

	parent := &p.GenesisBlock.Header
	ts := parent.Timestamp
	var tip *types.Block
	for i := int32(1); i <= 20; i++ {
		cb := coinbaseTx(t, i, 50*1e8)
		cb.TxOut[0].PkScript = spendablePkScript()
		ts += 600
		block := mineBlock(t, parent, []*types.Transaction{cb}, ts, easyBits)
		require.NoError(t, chain.ProcessBlock(block))
		parent = &block.Header
		tip = block
	}

	locator := chain.LatestBlockLocator()
	require.NotEmpty(t, locator)
	assert.True(t, locator[0].IsEqual(ptr(tip.Header.BlockHash())))
	assert.True(t, locator[len(locator)-1].IsEqual(ptr(hash.Hash(p.GenesisHash))))

	// The step stays 1 until the locator holds more than ten entries, so
	// the first twelve entries are heights 20..9: index 11 is height 9,
	// and the step only widens after it.
	require.Greater(t, len(locator), 11)
	h9 := chain.index.lookupNode(locator[11])
	require.NotNil(t, h9)
	assert.Equal(t, int32(9), h9.height)
}

func TestGetLocatorReturnsNilForUnknownHash(t *testing.T) {
	p := testChainParams()
	chain := NewChain(p, NewCoinsCache(newMemUtxoStore()), newMemBlockStore())

	var unknown hash.Hash
	unknown[0] = 0xff
	assert.Nil(t, chain.GetLocator(unknown))
}

func TestGetLocatorForGenesisIsSingleEntry(t *testing.T) {
	p := testChainParams()
	chain := NewChain(p, NewCoinsCache(newMemUtxoStore()), newMemBlockStore())

	locator := chain.GetLocator(p.GenesisHash)
	require.Len(t, locator, 1)
	assert.True(t, locator[0].IsEqual(ptr(hash.Hash(p.GenesisHash))))
}

func ptr(h hash.Hash) *hash.Hash { return &h }
