// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/database"
	"github.com/baby636-sketch/Membercoin/params"
)

// memUtxoStore is an in-memory stand-in for database.UtxoStore, good
// enough to exercise CoinsCache's flush path without a real disk store.
type memUtxoStore struct {
	mu    sync.Mutex
	coins map[types.OutPoint]*types.Coin
	best  hash.Hash
}

func newMemUtxoStore() *memUtxoStore {
	return &memUtxoStore{coins: make(map[types.OutPoint]*types.Coin)}
}

func (s *memUtxoStore) GetCoin(op types.OutPoint) (*types.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coins[op]
	if !ok {
		return nil, database.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *memUtxoStore) BatchWrite(puts map[types.OutPoint]*types.Coin, deletes []types.OutPoint, bestBlock hash.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for op, c := range puts {
		s.coins[op] = c.Clone()
	}
	for _, op := range deletes {
		delete(s.coins, op)
	}
	s.best = bestBlock
	return nil
}

func (s *memUtxoStore) BestBlock() (hash.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best, nil
}

func (s *memUtxoStore) Close() error { return nil }

// memBlockStore is an in-memory stand-in for database.BlockStore.
type memBlockStore struct {
	mu     sync.Mutex
	blocks map[uint32]*types.Block
	undo   map[uint32]*database.UndoRecord
	next   uint32
}

func newMemBlockStore() *memBlockStore {
	return &memBlockStore{blocks: make(map[uint32]*types.Block), undo: make(map[uint32]*database.UndoRecord)}
}

func (s *memBlockStore) WriteBlock(b *types.Block) (fileNum, offset uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset = s.next
	s.next++
	s.blocks[offset] = b
	return 0, offset, nil
}

func (s *memBlockStore) ReadBlock(fileNum, offset uint32) (*types.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[offset]
	if !ok {
		return nil, database.ErrNotFound
	}
	return b, nil
}

func (s *memBlockStore) WriteUndo(rec *database.UndoRecord, fileNum uint32) (offset uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset = s.next
	s.next++
	s.undo[offset] = rec
	return offset, nil
}

func (s *memBlockStore) ReadUndo(fileNum, offset uint32) (*database.UndoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.undo[offset]
	if !ok {
		return nil, database.ErrNotFound
	}
	return rec, nil
}

func (s *memBlockStore) Close() error { return nil }

// testChainParams returns consensus parameters with an easy, fixed
// difficulty and a retarget window far larger than any test chain, so
// every block after genesis carries the same bits without needing a
// real retarget computation.
func testChainParams() *params.Params {
	genesisTx := &types.Transaction{
		Version: 1,
		TxIn: []*types.TxIn{
			types.NewTxIn(&types.OutPoint{Hash: hash.ZeroHash, Index: types.MaxPrevOutIndex}, []byte{0x02, 0x00, 0x00}),
		},
		TxOut: []*types.TxOut{
			types.NewTxOut(0, []byte{0x6a}),
		},
	}
	genesisBlock := &types.Block{
		Header: types.BlockHeader{
			Version:   1,
			PrevBlock: hash.ZeroHash,
			Timestamp: 1296688602,
			Bits:      easyBits,
		},
		Transactions: []*types.Transaction{genesisTx},
	}
	root, err := genesisBlock.ComputeMerkleRoot()
	if err != nil {
		panic(err)
	}
	genesisBlock.Header.MerkleRoot = root
	genesisHash := genesisBlock.Header.BlockHash()

	p := params.MainNetParams
	p.GenesisBlock = genesisBlock
	p.GenesisHash = genesisHash
	p.PowLimitBits = easyBits
	p.TargetTimespan = 14 * 24 * time.Hour
	p.TargetTimePerBlock = 10 * time.Minute
	p.CoinbaseMaturity = 0
	p.MaxBlockSize = 32 * 1024 * 1024
	return &p
}

// spendablePkScript is a trivially-true script (push 1, then a run of
// no-ops) so blocks built in these tests never need real signatures.
func spendablePkScript() []byte {
	script := []byte{0x51}
	for i := 0; i < 40; i++ {
		script = append(script, 0x61)
	}
	return script
}

func mineBlock(t *testing.T, parent *types.BlockHeader, txs []*types.Transaction, ts uint32, bits uint32) *types.Block {
	t.Helper()
	block := &types.Block{
		Header: types.BlockHeader{
			Version:   1,
			PrevBlock: parent.BlockHash(),
			Timestamp: ts,
			Bits:      bits,
		},
		Transactions: txs,
	}
	root, err := block.ComputeMerkleRoot()
	require.NoError(t, err)
	block.Header.MerkleRoot = root
	mineHeader(t, &block.Header, bits)
	return block
}

func TestProcessBlockConnectsDirectExtension(t *testing.T) {
	p := testChainParams()
	coins := NewCoinsCache(newMemUtxoStore())
	chain := NewChain(p, coins, newMemBlockStore())

	cb := coinbaseTx(t, 1, 50*1e8)
	cb.TxOut[0].PkScript = spendablePkScript()
	block1 := mineBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cb}, p.GenesisBlock.Header.Timestamp+600, easyBits)

	require.NoError(t, chain.ProcessBlock(block1))
	assert.Equal(t, int32(1), chain.Tip().height)

	txHash, err := cb.TxHash()
	require.NoError(t, err)
	coin, err := coins.GetCoin(types.OutPoint{Hash: txHash, Index: 0})
	require.NoError(t, err)
	require.NotNil(t, coin)
	assert.Equal(t, int64(50*1e8), coin.Output.Value)
	assert.True(t, coin.Coinbase)
}

func TestProcessBlockSpendAndDisconnectRoundTrips(t *testing.T) {
	p := testChainParams()
	coins := NewCoinsCache(newMemUtxoStore())
	chain := NewChain(p, coins, newMemBlockStore())

	cb1 := coinbaseTx(t, 1, 50*1e8)
	cb1.TxOut[0].PkScript = spendablePkScript()
	block1 := mineBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cb1}, p.GenesisBlock.Header.Timestamp+600, easyBits)
	require.NoError(t, chain.ProcessBlock(block1))

	cb1Hash, err := cb1.TxHash()
	require.NoError(t, err)

	cb2 := coinbaseTx(t, 2, 49*1e8)
	cb2.TxOut[0].PkScript = spendablePkScript()

	spend := types.NewTransaction()
	spend.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: cb1Hash, Index: 0}, nil))
	spend.AddTxOut(types.NewTxOut(49_90000000, spendablePkScript()))

	block2 := mineBlock(t, &block1.Header, []*types.Transaction{cb2, spend}, block1.Header.Timestamp+600, easyBits)
	require.NoError(t, chain.ProcessBlock(block2))
	assert.Equal(t, int32(2), chain.Tip().height)

	spentCoin, err := coins.GetCoin(types.OutPoint{Hash: cb1Hash, Index: 0})
	require.NoError(t, err)
	assert.Nil(t, spentCoin, "block1's coinbase output must be spent after block2 connects")

	spendHash, err := spend.TxHash()
	require.NoError(t, err)
	newCoin, err := coins.GetCoin(types.OutPoint{Hash: spendHash, Index: 0})
	require.NoError(t, err)
	require.NotNil(t, newCoin)
	assert.Equal(t, int64(49_90000000), newCoin.Output.Value)

	node2 := chain.Tip()
	require.NoError(t, chain.disconnectBlock(node2, block2))

	restored, err := coins.GetCoin(types.OutPoint{Hash: cb1Hash, Index: 0})
	require.NoError(t, err)
	require.NotNil(t, restored, "disconnecting block2 must restore the coin it spent")
	assert.Equal(t, int64(50*1e8), restored.Output.Value)

	gone, err := coins.GetCoin(types.OutPoint{Hash: spendHash, Index: 0})
	require.NoError(t, err)
	assert.Nil(t, gone, "disconnecting block2 must remove the coins it created")
}

func TestProcessBlockRejectsWrongCoinbaseHeight(t *testing.T) {
	p := testChainParams()
	coins := NewCoinsCache(newMemUtxoStore())
	chain := NewChain(p, coins, newMemBlockStore())

	cb := coinbaseTx(t, 2, 50*1e8) // wrong: parent is genesis, expected height 1
	cb.TxOut[0].PkScript = spendablePkScript()
	block1 := mineBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cb}, p.GenesisBlock.Header.Timestamp+600, easyBits)

	err := chain.ProcessBlock(block1)
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrBadCoinbaseHeight, ruleErr.ErrorCode)
}

// TestProcessBlockConnectsChainedSameBlockTransactions builds a block
// whose third transaction spends an output created by its second
// transaction, both in the same block and neither a coinbase. This is
// the case that trips a connect path reading spent coins from the
// committed cache instead of the per-block overlay: the created output
// exists only in the overlay until the block fully connects, so looking
// it up anywhere outside the overlay must not be able to find it.
func TestProcessBlockConnectsChainedSameBlockTransactions(t *testing.T) {
	p := testChainParams()
	coins := NewCoinsCache(newMemUtxoStore())
	chain := NewChain(p, coins, newMemBlockStore())

	cb1 := coinbaseTx(t, 1, 50*1e8)
	cb1.TxOut[0].PkScript = spendablePkScript()
	block1 := mineBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cb1}, p.GenesisBlock.Header.Timestamp+600, easyBits)
	require.NoError(t, chain.ProcessBlock(block1))

	cb1Hash, err := cb1.TxHash()
	require.NoError(t, err)

	cb2 := coinbaseTx(t, 2, 50*1e8)
	cb2.TxOut[0].PkScript = spendablePkScript()

	// txA spends block1's coinbase output and creates a fresh output that
	// exists nowhere but this block's overlay.
	txA := types.NewTransaction()
	txA.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: cb1Hash, Index: 0}, nil))
	txA.AddTxOut(types.NewTxOut(49_90000000, spendablePkScript()))
	txAHash, err := txA.TxHash()
	require.NoError(t, err)

	// txB spends txA's output, created earlier in this very block, never
	// having touched the committed coins cache.
	txB := types.NewTransaction()
	txB.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: txAHash, Index: 0}, nil))
	txB.AddTxOut(types.NewTxOut(49_80000000, spendablePkScript()))

	block2 := mineBlock(t, &block1.Header, []*types.Transaction{cb2, txA, txB}, block1.Header.Timestamp+600, easyBits)
	require.NoError(t, chain.ProcessBlock(block2))
	assert.Equal(t, int32(2), chain.Tip().height)

	txBHash, err := txB.TxHash()
	require.NoError(t, err)
	coin, err := coins.GetCoin(types.OutPoint{Hash: txBHash, Index: 0})
	require.NoError(t, err)
	require.NotNil(t, coin)
	assert.Equal(t, int64(49_80000000), coin.Output.Value)
}

func TestProcessBlockRejectsOverspendingCoinbase(t *testing.T) {
	p := testChainParams()
	coins := NewCoinsCache(newMemUtxoStore())
	chain := NewChain(p, coins, newMemBlockStore())

	cb := coinbaseTx(t, 1, 51*1e8) // pays more than the subsidy, no fees available
	cb.TxOut[0].PkScript = spendablePkScript()
	block1 := mineBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cb}, p.GenesisBlock.Header.Timestamp+600, easyBits)

	err := chain.ProcessBlock(block1)
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrBadCoinbaseValue, ruleErr.ErrorCode)
}
