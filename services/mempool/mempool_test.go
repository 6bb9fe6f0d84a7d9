// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/blockchain"
	"github.com/baby636-sketch/Membercoin/core/pow"
	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/database"
	"github.com/baby636-sketch/Membercoin/engine/txscript"
	"github.com/baby636-sketch/Membercoin/params"
)

// The in-memory store and chain-building helpers below mirror the ones
// core/blockchain's own tests use to exercise Chain without a real disk
// store; this package needs its own copies since those are unexported.

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

const testEasyBits uint32 = 0x200000ff

func mineTestHeader(t *testing.T, header *types.BlockHeader, bits uint32) {
	t.Helper()
	header.Bits = bits
	for nonce := uint32(0); nonce < 5_000_000; nonce++ {
		header.Nonce = nonce
		h := header.BlockHash()
		if pow.CheckProofOfWork(&h, bits) {
			return
		}
	}
	t.Fatalf("failed to mine a header satisfying bits %x within the search budget", bits)
}

// spendablePkScript is a trivially-true script (push 1, then a run of
// no-ops) so test transactions never need real signatures.
func spendablePkScript() []byte {
	script := []byte{0x51}
	for i := 0; i < 40; i++ {
		script = append(script, 0x61)
	}
	return script
}

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
			Bits:      testEasyBits,
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
	p.PowLimitBits = testEasyBits
	p.TargetTimespan = 14 * 24 * time.Hour
	p.TargetTimePerBlock = 10 * time.Minute
	p.CoinbaseMaturity = 0
	p.MaxBlockSize = 32 * 1024 * 1024
	p.MinRelayTxFeePerKB = 1000
	return &p
}

func testCoinbaseTx(t *testing.T, height int32, value int64) *types.Transaction {
	t.Helper()
	// Push the height in the minimal script-number encoding the chain's
	// coinbase-height check requires.
	var num []byte
	for v := height; v > 0; v >>= 8 {
		num = append(num, byte(v))
	}
	if len(num) > 0 && num[len(num)-1]&0x80 != 0 {
		num = append(num, 0x00)
	}
	tx := types.NewTransaction()
	tx.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: hash.ZeroHash, Index: types.MaxPrevOutIndex}, append([]byte{byte(len(num))}, num...)))
	tx.AddTxOut(types.NewTxOut(value, spendablePkScript()))
	return tx
}

func mineTestBlock(t *testing.T, parent *types.BlockHeader, txs []*types.Transaction, ts uint32, bits uint32) *types.Block {
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
	mineTestHeader(t, &block.Header, bits)
	return block
}

// newTestChainWithCoinbase mines a single block spending a freshly minted
// coinbase with spendablePkScript, returning the chain and that
// transaction's hash so tests can build spends off it immediately
// (CoinbaseMaturity is zero in testChainParams).
func newTestChainWithCoinbase(t *testing.T, value int64) (*blockchain.Chain, hash.Hash) {
	t.Helper()
	p := testChainParams()
	coins := blockchain.NewCoinsCache(newMemUtxoStore())
	chain := blockchain.NewChain(p, coins, newMemBlockStore())

	cb := testCoinbaseTx(t, 1, value)
	block1 := mineTestBlock(t, &p.GenesisBlock.Header, []*types.Transaction{cb}, p.GenesisBlock.Header.Timestamp+600, testEasyBits)
	require.NoError(t, chain.ProcessBlock(block1))

	cbHash, err := cb.TxHash()
	require.NoError(t, err)
	return chain, cbHash
}

func spendingTx(prev hash.Hash, idx uint32, value int64) *types.Transaction {
	tx := types.NewTransaction()
	tx.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: prev, Index: idx}, nil))
	tx.AddTxOut(types.NewTxOut(value, spendablePkScript()))
	return tx
}

type stoppedClock time.Time

func (c stoppedClock) Now() time.Time { return time.Time(c) }

func newTestPool(t *testing.T, chain *blockchain.Chain) *TxPool {
	t.Helper()
	policy := DefaultPolicy()
	policy.AdmissionWorkers = 2
	mp := New(Config{Chain: chain, Policy: policy})
	t.Cleanup(mp.Close)
	return mp
}

func TestProcessTransactionAcceptsSpendOfConfirmedCoin(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)

	tx := spendingTx(cbHash, 0, 49*1e8)
	td, err := mp.ProcessTransaction(tx, false)
	require.NoError(t, err)
	require.NotNil(t, td)
	assert.Equal(t, int64(1*1e8), td.Fee)
	assert.Equal(t, 1, mp.Count())
}

func TestProcessTransactionRejectsPerTxSigOpCap(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	chain.Params().MaxSigOpsPerTx = 1
	mp := newTestPool(t, chain)

	tx := spendingTx(cbHash, 0, 49*1e8)
	tx.TxOut[0].PkScript = []byte{txscript.OP_CHECKSIG, txscript.OP_CHECKSIG}

	_, err := mp.ProcessTransaction(tx, false)
	require.Error(t, err)
	assert.Equal(t, RejectNonstandard, RejectCodeOf(err))
}

func TestProcessTransactionRejectsDuplicate(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)

	tx := spendingTx(cbHash, 0, 49*1e8)
	_, err := mp.ProcessTransaction(tx, false)
	require.NoError(t, err)

	_, err = mp.ProcessTransaction(tx, false)
	require.Error(t, err)
	assert.Equal(t, RejectDuplicate, RejectCodeOf(err))
}

func TestProcessTransactionRejectsInsufficientFee(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)

	tx := spendingTx(cbHash, 0, 50*1e8) // zero fee
	_, err := mp.ProcessTransaction(tx, false)
	require.Error(t, err)
	assert.Equal(t, RejectInsufficientFee, RejectCodeOf(err))
}

func TestProcessTransactionRejectsOverspend(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)

	tx := spendingTx(cbHash, 0, 51*1e8)
	_, err := mp.ProcessTransaction(tx, false)
	require.Error(t, err)
	assert.Equal(t, RejectInvalid, RejectCodeOf(err))
}

func TestProcessTransactionRejectsUnknownInputWithoutOrphanFlag(t *testing.T) {
	chain, _ := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)

	tx := spendingTx(hash.Hash{0xaa}, 0, 1000)
	_, err := mp.ProcessTransaction(tx, false)
	require.Error(t, err)
	assert.Equal(t, RejectOrphan, RejectCodeOf(err))
}

func TestProcessTransactionHoldsAndPromotesOrphan(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)

	parent := spendingTx(cbHash, 0, 49*1e8)
	parentHash, err := parent.TxHash()
	require.NoError(t, err)

	child := spendingTx(parentHash, 0, 48*1e8)

	// The child arrives first, referencing a parent the pool has never
	// seen: it is held as an orphan, not rejected.
	td, err := mp.ProcessTransaction(child, true)
	require.NoError(t, err)
	assert.Nil(t, td)

	_, err = mp.ProcessTransaction(parent, false)
	require.NoError(t, err)

	childHash, err := child.TxHash()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := mp.Get(childHash)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestProcessTransactionRejectsRespendRegardlessOfRate(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)

	incumbent := spendingTx(cbHash, 0, 49*1e8)
	_, err := mp.ProcessTransaction(incumbent, false)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		contender := spendingTx(cbHash, 0, int64(48-i)*1e8)
		_, err = mp.ProcessTransaction(contender, false)
		require.Error(t, err)
		assert.Equal(t, RejectDuplicate, RejectCodeOf(err))
	}
}

type recordingDoubleSpendNotifier struct {
	mu    sync.Mutex
	calls []hash.Hash
}

func (n *recordingDoubleSpendNotifier) NotifyDoubleSpend(_ types.OutPoint, _, newcomer hash.Hash) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, newcomer)
}

func (n *recordingDoubleSpendNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func TestProcessTransactionRateLimitsDoubleSpendNotifications(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	notifier := &recordingDoubleSpendNotifier{}
	mp := newTestPool(t, chain)
	mp.cfg.DoubleSpendNotifier = notifier
	mp.cfg.Policy.RespendsPerMinute = 2
	mp.respends = newRespendLimiter(2)

	incumbent := spendingTx(cbHash, 0, 49*1e8)
	_, err := mp.ProcessTransaction(incumbent, false)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		contender := spendingTx(cbHash, 0, int64(48-i)*1e8)
		_, err = mp.ProcessTransaction(contender, false)
		require.Error(t, err)
		assert.Equal(t, RejectDuplicate, RejectCodeOf(err))
	}

	assert.Equal(t, 2, notifier.count())
}

func TestRemoveTransactionCascadesToDescendants(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)

	parent := spendingTx(cbHash, 0, 49*1e8)
	parentHash, err := parent.TxHash()
	require.NoError(t, err)
	_, err = mp.ProcessTransaction(parent, false)
	require.NoError(t, err)

	child := spendingTx(parentHash, 0, 48*1e8)
	childHash, err := child.TxHash()
	require.NoError(t, err)
	_, err = mp.ProcessTransaction(child, false)
	require.NoError(t, err)

	removed := mp.RemoveTransaction(parentHash, true)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, mp.Count())

	_, ok := mp.Get(childHash)
	assert.False(t, ok)
}

func TestProcessTransactionRejectsAncestorLimitBreach(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)
	mp.cfg.Policy.MaxAncestors = 2

	prev := cbHash
	value := int64(49 * 1e8)
	for i := 0; i < 2; i++ {
		tx := spendingTx(prev, 0, value)
		h, err := tx.TxHash()
		require.NoError(t, err)
		_, err = mp.ProcessTransaction(tx, false)
		require.NoError(t, err)
		prev = h
		value -= 1e8
	}

	tooDeep := spendingTx(prev, 0, value)
	_, err := mp.ProcessTransaction(tooDeep, false)
	require.Error(t, err)
	assert.Equal(t, RejectNonstandard, RejectCodeOf(err))
}

func TestEvictIfOverBudgetDropsTransactionWhenOverBudget(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)

	cheap := spendingTx(cbHash, 0, 49_900*1e5)
	cheapHash, err := cheap.TxHash()
	require.NoError(t, err)
	_, err = mp.ProcessTransaction(cheap, false)
	require.NoError(t, err)

	mp.mtx.Lock()
	mp.dynamicBytes = mp.cfg.Policy.MaxMempoolBytes + 1
	mp.mtx.Unlock()

	mp.evictIfOverBudget()

	_, ok := mp.Get(cheapHash)
	assert.False(t, ok)
	assert.Equal(t, 0, mp.Count())
}

func TestExpireTransactionsCascadesToDescendants(t *testing.T) {
	chain, cbHash := newTestChainWithCoinbase(t, 50*1e8)
	mp := newTestPool(t, chain)
	mp.cfg.Policy.MempoolExpiry = time.Hour
	start := stoppedClock(time.Unix(1_700_000_000, 0))
	mp.cfg.Clock = start

	parent := spendingTx(cbHash, 0, 49*1e8)
	parentHash, err := parent.TxHash()
	require.NoError(t, err)
	_, err = mp.ProcessTransaction(parent, false)
	require.NoError(t, err)

	child := spendingTx(parentHash, 0, 48*1e8)
	childHash, err := child.TxHash()
	require.NoError(t, err)
	_, err = mp.ProcessTransaction(child, false)
	require.NoError(t, err)

	mp.cfg.Clock = stoppedClock(time.Time(start).Add(30 * time.Minute))
	mp.expireTransactions()
	assert.Equal(t, 2, mp.Count())

	mp.cfg.Clock = stoppedClock(time.Time(start).Add(2 * time.Hour))
	mp.expireTransactions()
	assert.Equal(t, 0, mp.Count())

	_, ok := mp.Get(childHash)
	assert.False(t, ok)
}
