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
	"github.com/baby636-sketch/Membercoin/database"
)

func TestNewChainFromStoreWithNilStoreStartsAtGenesis(t *testing.T) {
	p := testChainParams()
	chain, err := NewChainFromStore(p, NewCoinsCache(newMemUtxoStore()), newMemBlockStore(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(0), chain.TipHeight())
	tipHash := chain.TipHash()
	genesisHash := hash.Hash(p.GenesisHash)
	assert.True(t, tipHash.IsEqual(&genesisHash))
}

func TestNewChainFromStorePersistsGenesisOnFirstRun(t *testing.T) {
	p := testChainParams()
	indexStore, err := database.OpenBlockIndexStore(t.TempDir())
	require.NoError(t, err)
	defer indexStore.Close()

	_, err = NewChainFromStore(p, NewCoinsCache(newMemUtxoStore()), newMemBlockStore(), indexStore)
	require.NoError(t, err)

	rec, err := indexStore.GetHeader(p.GenesisHash)
	require.NoError(t, err)
	assert.Equal(t, int32(0), rec.Height)
}

func TestNewChainFromStoreResumesTipAfterRestart(t *testing.T) {
	p := testChainParams()
	utxoStore := newMemUtxoStore()
	indexStore, err := database.OpenBlockIndexStore(t.TempDir())
	require.NoError(t, err)
	defer indexStore.Close()

	coins := NewCoinsCache(utxoStore)
	chain, err := NewChainFromStore(p, coins, newMemBlockStore(), indexStore)
	require.NoError(t, err)

	cb1 := coinbaseTx(t, 1, 50*1e8)
	cb1.TxOut[0].PkScript = spendablePkScript()
	block1 := mineBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cb1}, p.GenesisBlock.Header.Timestamp+600, easyBits)
	require.NoError(t, chain.ProcessBlock(block1))

	cb2 := coinbaseTx(t, 2, 50*1e8)
	cb2.TxOut[0].PkScript = spendablePkScript()
	block2 := mineBlock(t, &block1.Header, []*types.Transaction{cb2}, block1.Header.Timestamp+600, easyBits)
	require.NoError(t, chain.ProcessBlock(block2))

	wantHash := chain.TipHash()
	wantHeight := chain.TipHeight()
	wantWork := chain.Tip().workSum

	// Simulate a restart: a fresh CoinsCache layer over the same
	// underlying utxo store (as a real process restart would get from
	// reopening the same bbolt file) and a fresh Chain rebuilt from the
	// same persisted header store, with no in-memory state carried over.
	resumedCoins := NewCoinsCache(utxoStore)
	resumed, err := NewChainFromStore(p, resumedCoins, newMemBlockStore(), indexStore)
	require.NoError(t, err)

	gotHash := resumed.TipHash()
	assert.True(t, gotHash.IsEqual(&wantHash))
	assert.Equal(t, wantHeight, resumed.TipHeight())
	assert.Equal(t, 0, wantWork.Cmp(resumed.Tip().workSum))

	// The resumed chain can keep extending the tip it rebuilt.
	cb3 := coinbaseTx(t, 3, 50*1e8)
	cb3.TxOut[0].PkScript = spendablePkScript()
	block3 := mineBlock(t, &block2.Header, []*types.Transaction{cb3}, block2.Header.Timestamp+600, easyBits)
	require.NoError(t, resumed.ProcessBlock(block3))
	assert.Equal(t, int32(3), resumed.TipHeight())
}
