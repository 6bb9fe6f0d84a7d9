// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/interest"
	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/database"
	"github.com/baby636-sketch/Membercoin/engine/txscript"
	"github.com/baby636-sketch/Membercoin/params"
)

// errValidationCancelled is returned by the connect-block checks when a
// stop flag set by the C9 orchestrator (see parallel.go) is observed
// between transactions, inputs, or script-verification batches. It is
// never a RuleError: the candidate isn't invalid, it simply lost the
// race to a competing candidate of equal or greater work.
var errValidationCancelled = fmt.Errorf("blockchain: validation cancelled: candidate superseded")

// cancelled reports whether stop has been signalled. A nil stop is the
// single-candidate case (ProcessBlock outside the orchestrator), which
// is never cancellable.
func cancelled(stop *atomic.Bool) bool {
	return stop != nil && stop.Load()
}

// Chain drives block and header validation over a blockIndex and a
// CoinsCache, implementing §4.7's connect/disconnect/reorg state machine.
type Chain struct {
	mu sync.Mutex // cs_main: coarse lock held across connect/disconnect/reorg

	params   *params.Params
	index    *blockIndex
	coins    *CoinsCache
	blocks   database.BlockStore
	clock    WallClock
	tip      *blockNode
	sigCache *txscript.SigCache

	// undoByHash holds the undo record for every currently-connected
	// block still within reorg range, keyed by block hash. It is the
	// authoritative source disconnectBlock restores from; WriteUndo also
	// persists each record to the flat undo files for crash recovery,
	// but re-reading that file back requires a file-location index this
	// package does not yet build (see loadBlock).
	undoByHash map[hash.Hash]*database.UndoRecord

	// blocksByHash holds the full body of every block known to the index
	// but not yet pruned, keyed by hash. WriteBlock persists the same
	// bytes to the flat block files for crash recovery, but loadBlock
	// serves from this map rather than re-reading them back, since
	// HeaderRecord carries no file-location coordinates (§4.6's block
	// index holds "weak references by hash", not storage offsets).
	blocksByHash map[hash.Hash]*types.Block

	// indexStore, when non-nil, receives a PutHeader call for every
	// status mutation the index undergoes (accepted, connected, marked
	// failed), so a restarted node can rebuild the header DAG via
	// NewChainFromStore instead of starting from genesis. Block bodies
	// and undo records are never persisted here: this stores only the
	// same fields a HeaderRecord carries.
	indexStore database.BlockIndexStore

	// pvtestDelay, when non-zero, is slept after every script batch
	// verifyScripts runs. It exists only so tests of the C9 orchestrator
	// can widen the window in which competing candidates race, making an
	// otherwise rare interleaving reliably reproducible. It is read
	// concurrently by every racing candidate's goroutine, so it is an
	// atomic rather than a plain field guarded by c.mu.
	pvtestDelay atomic.Int64 // nanoseconds
}

// SetPvTestDelay enables the parallel-validation orchestrator's pvtest
// mode: every script-verification batch sleeps for d afterward, slowing
// validation enough for tests to observe and assert on in-flight races
// between competing candidates. A zero delay disables it; this is the
// default.
func (c *Chain) SetPvTestDelay(d time.Duration) {
	c.pvtestDelay.Store(int64(d))
}

// NewChain returns a Chain rooted at genesis, backed by coins and blocks.
func NewChain(p *params.Params, coins *CoinsCache, blocks database.BlockStore) *Chain {
	c := &Chain{
		params:       p,
		index:        newBlockIndex(),
		coins:        coins,
		blocks:       blocks,
		clock:        systemClock{},
		sigCache:     txscript.NewSigCache(100000),
		undoByHash:   make(map[hash.Hash]*database.UndoRecord),
		blocksByHash: make(map[hash.Hash]*types.Block),
	}
	genesisHeader := &p.GenesisBlock.Header
	genesisNode := newBlockNode(genesisHeader, nil)
	genesisNode.status = statusDataStored | statusValid
	c.index.addNode(genesisNode)
	c.tip = genesisNode
	c.blocksByHash[genesisNode.hash] = p.GenesisBlock
	return c
}

// NewChainFromStore returns a Chain backed by coins and blocks, either
// rooted at genesis (if indexStore is nil or holds no records yet) or
// rebuilt from indexStore's persisted headers so a restarted node
// resumes validation without rescanning every block file, per §4.6/§4.7's
// restart-consistency requirement. Every status mutation the returned
// Chain performs afterward is mirrored back to indexStore.
//
// Only the header DAG and its status flags are rebuilt this way: full
// block bodies and undo records stay in blocksByHash/undoByHash, which
// are never populated by this constructor, since HeaderRecord carries no
// file-location coordinates to read them back from the flat block/undo
// files (see the Chain.blocksByHash field comment). A resumed chain can
// therefore validate new blocks and extend its tip, but cannot reorg
// past a block whose body fell out of memory across the restart; it
// would need to fail with loadBlock's "not held in memory" error in that
// case rather than silently misbehave.
func NewChainFromStore(p *params.Params, coins *CoinsCache, blocks database.BlockStore, indexStore database.BlockIndexStore) (*Chain, error) {
	c := NewChain(p, coins, blocks)
	c.indexStore = indexStore
	if indexStore == nil {
		return c, nil
	}

	var records []*database.HeaderRecord
	if err := indexStore.ForEachHeader(func(rec *database.HeaderRecord) error {
		records = append(records, rec)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("blockchain: rebuild index: %w", err)
	}
	if len(records) == 0 {
		// First run against a fresh store: persist genesis now so the
		// next restart has something to rebuild from.
		if err := c.persistHeader(c.tip); err != nil {
			return nil, fmt.Errorf("blockchain: rebuild index: %w", err)
		}
		return c, nil
	}

	if err := c.rebuildIndex(records, p); err != nil {
		return nil, err
	}
	return c, nil
}

// rebuildIndex replaces c.index with one constructed from records,
// linking parent/skip pointers in ascending-height order (so each node's
// parent is already present by the time it needs to be linked), and sets
// c.tip to the coins cache's recorded BestBlock if that hash is present
// in the rebuilt index, falling back to the highest-work valid node.
func (c *Chain) rebuildIndex(records []*database.HeaderRecord, p *params.Params) error {
	sort.Slice(records, func(i, j int) bool { return records[i].Height < records[j].Height })

	nodes := make(map[hash.Hash]*blockNode, len(records))
	for _, rec := range records {
		nodes[rec.Hash] = newBlockNodeFromRecord(rec)
	}

	index := newBlockIndex()
	for _, rec := range records {
		node := nodes[rec.Hash]
		if parent, ok := nodes[rec.ParentHash]; ok {
			node.parent = parent
			node.skip = parent.ancestor(skipHeight(node.height))
		}
		index.addNode(node)
	}
	c.index = index

	bestHash, err := c.coins.BestBlock()
	if err != nil {
		return fmt.Errorf("blockchain: rebuild index: read best block: %w", err)
	}
	if tip := index.lookupNode(bestHash); tip != nil {
		c.tip = tip
	} else if tip := index.bestValidTip(); tip != nil {
		c.tip = tip
	}

	if genesis := index.lookupNode(p.GenesisBlock.Header.BlockHash()); genesis != nil {
		c.blocksByHash[genesis.hash] = p.GenesisBlock
	}
	return nil
}

// persistHeader writes node's current fields and status to c.indexStore,
// a no-op if no store is configured.
func (c *Chain) persistHeader(node *blockNode) error {
	if c.indexStore == nil {
		return nil
	}
	var parentHash hash.Hash
	if node.parent != nil {
		parentHash = node.parent.hash
	}
	return c.indexStore.PutHeader(&database.HeaderRecord{
		Hash:       node.hash,
		ParentHash: parentHash,
		Height:     node.height,
		Version:    node.version,
		Bits:       node.bits,
		Timestamp:  node.timestamp,
		MerkleRoot: node.merkleRoot,
		Status:     uint8(node.status),
		ChainWork:  node.workSum.Bytes(),
	})
}

// Tip returns the current best validated chain tip.
func (c *Chain) Tip() *blockNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip
}

// BlockIndexEntry is the exported view of a blockNode, for callers outside
// the package (the node package's get_tip/get_header) that have no
// business holding an unexported *blockNode.
type BlockIndexEntry struct {
	Hash      hash.Hash
	Height    int32
	Version   int32
	Bits      uint32
	Timestamp int64
	WorkSum   *big.Int
	Valid     bool
}

func entryFromNode(node *blockNode) *BlockIndexEntry {
	if node == nil {
		return nil
	}
	return &BlockIndexEntry{
		Hash:      node.hash,
		Height:    node.height,
		Version:   node.version,
		Bits:      node.bits,
		Timestamp: node.timestamp,
		WorkSum:   node.workSum,
		Valid:     node.status.knownValid(),
	}
}

// TipEntry returns the exported view of the current best validated tip.
func (c *Chain) TipEntry() *BlockIndexEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return entryFromNode(c.tip)
}

// HeaderEntry returns the exported view of the index entry for blockHash,
// or nil if no such block is known to the index.
func (c *Chain) HeaderEntry(blockHash hash.Hash) *BlockIndexEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return entryFromNode(c.index.lookupNode(blockHash))
}

// TipHash returns the hash of the current best validated chain tip.
func (c *Chain) TipHash() hash.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip.hash
}

// TipHeight returns the height of the current best validated chain tip.
func (c *Chain) TipHeight() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip.height
}

// Params returns the consensus parameters the chain was constructed with,
// for callers outside the package (mempool admission, block templates) that
// need to size their own policy checks consistently with consensus.
func (c *Chain) Params() *params.Params {
	return c.params
}

// Coins returns the chain's coins cache, the confirmed UTXO view every
// admission or mining decision outside of connect-block validation itself
// must read through.
func (c *Chain) Coins() *CoinsCache {
	return c.coins
}

// SigCache returns the chain's signature verification cache, so mempool
// admission's own script verification reuses the same cache connect-block
// validation warms.
func (c *Chain) SigCache() *txscript.SigCache {
	return c.sigCache
}

// ProcessBlock validates block against the header DAG and, if it extends
// or exceeds the active tip's cumulative work, connects it (performing a
// reorg if it forks off the current chain). Multiple blocks racing to
// extend the same tip are better handled through ProcessBlocksConcurrently
// (parallel.go), a parallel validation orchestrator, instead of
// validating them one at a time against this single entry point.
func (c *Chain) ProcessBlock(block *types.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, err := c.acceptBlockHeader(block)
	if err != nil {
		pkgLog.Debug("block rejected", "hash", block.Header.BlockHash(), "err", err)
		return err
	}
	if node == nil {
		return ruleError(ErrDuplicateBlock, "block already processed")
	}

	if err := c.connectBestChain(node, block); err != nil {
		pkgLog.Debug("block rejected", "hash", node.hash, "height", node.height, "err", err)
		return err
	}
	pkgLog.Debug("block accepted", "hash", node.hash, "height", node.height, "tip", c.tip.hash)
	return nil
}

// acceptBlockHeader runs every check ProcessBlock performs before
// deciding how to connect a block: header sanity, contextual checks,
// block-level sanity, and the coinbase height encoding, then indexes
// the node and persists the block body. It returns a nil node (and nil
// error) if blockHash names a block already known to the index, so
// callers accepting a batch can skip duplicates without failing the
// whole batch. Must be called with c.mu held.
func (c *Chain) acceptBlockHeader(block *types.Block) (*blockNode, error) {
	header := &block.Header
	blockHash := header.BlockHash()
	if c.index.lookupNode(blockHash) != nil {
		return nil, nil
	}

	parent := c.index.lookupNode(header.PrevBlock)
	if parent == nil {
		return nil, ruleError(ErrMissingParent, "block's parent is not known")
	}

	if err := checkBlockHeaderSanity(header, c.clock); err != nil {
		c.index.markFailed(newBlockNode(header, parent))
		return nil, err
	}
	if err := contextualCheckHeader(header, parent, c.params); err != nil {
		return nil, err
	}
	if err := checkBlockSanity(block, c.params); err != nil {
		return nil, err
	}
	if err := checkCoinbaseHeight(block.Transactions[0], parent.height+1); err != nil {
		return nil, err
	}

	node := newBlockNode(header, parent)
	node.status = statusDataStored
	c.index.addNode(node)
	c.blocksByHash[node.hash] = block

	if _, _, err := c.blocks.WriteBlock(block); err != nil {
		return nil, fmt.Errorf("blockchain: fatal: write block: %w", err)
	}
	if err := c.persistHeader(node); err != nil {
		return nil, fmt.Errorf("blockchain: fatal: persist header: %w", err)
	}

	return node, nil
}

// connectBestChain is the reorg driver: if node extends the current tip
// directly, connect it in place; otherwise, if node's chain now carries
// more cumulative work than the active tip, disconnect back to the fork
// point and connect forward along node's branch.
func (c *Chain) connectBestChain(node *blockNode, block *types.Block) error {
	if node.parent == c.tip {
		if err := c.connectBlock(node, block); err != nil {
			c.index.markFailed(node)
			if perr := c.persistHeader(node); perr != nil {
				pkgLog.Error("persist header after failed connect", "hash", node.hash, "err", perr)
			}
			return err
		}
		c.tip = node
		return nil
	}

	if !bestBlockLess(c.tip, node) {
		// Side chain with insufficient work: accepted into the index
		// as a candidate, but not connected.
		node.status |= statusValid
		if err := c.persistHeader(node); err != nil {
			return fmt.Errorf("blockchain: fatal: persist header: %w", err)
		}
		return nil
	}

	return c.reorganize(node, block)
}

// reorganize disconnects blocks back to the fork point with node's
// branch and connects forward along it, loading each intervening block
// from the block store as needed.
func (c *Chain) reorganize(node *blockNode, newTipBlock *types.Block) error {
	fork := findFork(c.tip, node)
	if fork == nil {
		return AssertError("reorganize: no common ancestor between current tip and new node")
	}
	pkgLog.Info("reorganizing chain", "old", c.tip.hash, "new", node.hash, "fork", fork.hash)

	var detach []*blockNode
	for n := c.tip; n != fork; n = n.parent {
		detach = append(detach, n)
	}

	var attach []*blockNode
	for n := node; n != fork; n = n.parent {
		attach = append([]*blockNode{n}, attach...)
	}

	for _, n := range detach {
		block, err := c.loadBlock(n)
		if err != nil {
			return fmt.Errorf("blockchain: fatal: load block to disconnect: %w", err)
		}
		if err := c.disconnectBlock(n, block); err != nil {
			return fmt.Errorf("blockchain: fatal: disconnect block: %w", err)
		}
		if err := c.persistHeader(n); err != nil {
			return fmt.Errorf("blockchain: fatal: persist header: %w", err)
		}
		c.tip = n.parent
	}

	for _, n := range attach {
		var block *types.Block
		var err error
		if n == node {
			block = newTipBlock
		} else {
			block, err = c.loadBlock(n)
			if err != nil {
				return fmt.Errorf("blockchain: fatal: load block to attach: %w", err)
			}
		}

		if err := c.connectBlock(n, block); err != nil {
			c.index.markFailed(n)
			if perr := c.persistHeader(n); perr != nil {
				pkgLog.Error("persist header after failed connect", "hash", n.hash, "err", perr)
			}
			// Leave the chain at whatever prefix of attach already
			// committed; the best-valid-tip scan finds the
			// highest-work survivor.
			best := c.index.bestValidTip()
			if best != nil {
				c.tip = best
			}
			return err
		}
		c.tip = n
	}

	return nil
}

// loadBlock fetches the full block body for an index entry already known
// to have been written to the block store. It serves from the in-memory
// blocksByHash rather than the flat file store; see the Chain.blocksByHash
// field comment for why.
func (c *Chain) loadBlock(n *blockNode) (*types.Block, error) {
	block, ok := c.blocksByHash[n.hash]
	if !ok {
		return nil, fmt.Errorf("blockchain: fatal: block %v is not held in memory and cannot be reorganized past", n.hash)
	}
	return block, nil
}

// connectBlock is §4.7's connect-block for the single-candidate path: it
// builds and validates an overlay via buildConnectOverlay, then commits
// it and persists the resulting undo record directly. The C9 parallel
// orchestrator (parallel.go) instead calls buildConnectOverlay itself
// for each racing candidate and defers the commit decision until a
// winner is chosen.
func (c *Chain) connectBlock(node *blockNode, block *types.Block) error {
	view, undo, err := c.buildConnectOverlay(node, block, nil)
	if err != nil {
		return err
	}
	return c.commitConnectOverlay(node, view, undo)
}

// commitConnectOverlay commits view, records and persists undo, and
// flushes the coins cache to node's hash. Called under c.mu by both the
// single-candidate path and the winning candidate of a parallel race.
func (c *Chain) commitConnectOverlay(node *blockNode, view *UtxoViewpoint, undo *database.UndoRecord) error {
	view.Commit()
	node.status |= statusValid
	c.undoByHash[node.hash] = undo
	if _, err := c.blocks.WriteUndo(undo, 0); err != nil {
		return fmt.Errorf("blockchain: fatal: write undo record: %w", err)
	}
	if err := c.persistHeader(node); err != nil {
		return fmt.Errorf("blockchain: fatal: persist header: %w", err)
	}

	if err := c.coins.Flush(node.hash); err != nil {
		return fmt.Errorf("blockchain: fatal: flush coins cache: %w", err)
	}

	return nil
}

// buildConnectOverlay runs §4.7's connect-block checks — spending every
// input, applying interest to input values and the coinbase sum, and
// verifying scripts — against a fresh overlay on c.coins, without
// committing it. This lets the C9 orchestrator run several candidates'
// checks concurrently against independent overlays of the same
// underlying cache and decide which one to commit only once all have
// finished or been cancelled. If stop is non-nil and set at any
// per-transaction or per-input boundary, it returns errValidationCancelled.
func (c *Chain) buildConnectOverlay(node *blockNode, block *types.Block, stop *atomic.Bool) (*UtxoViewpoint, *database.UndoRecord, error) {
	view := NewUtxoViewpoint(c.coins)

	totalSigOps := 0
	totalSigChecks := 0
	var totalFees int64

	undo := &database.UndoRecord{SpentCoins: make([][]*types.Coin, len(block.Transactions))}

	for i, tx := range block.Transactions {
		if cancelled(stop) {
			return nil, nil, errValidationCancelled
		}

		isCoinbase := tx.IsCoinBase()

		sigOps := transactionSigOpCount(tx)
		totalSigOps += sigOps
		if totalSigOps > params.MaxSigOpsForBlockSize(uint64(block.SerializeSize())) {
			return nil, nil, ruleError(ErrTooManySigOps, "block exceeds sigop budget")
		}

		var fee int64
		if !isCoinbase {
			var err error
			fee, err = c.spendInputs(view, tx, node.height, undo, i, stop)
			if err != nil {
				return nil, nil, err
			}

			checks, err := c.verifyScripts(view, tx, node.height, stop)
			if err != nil {
				return nil, nil, err
			}
			if checks > c.params.MaxSigChecksPerTx {
				return nil, nil, ruleError(ErrTxTooManySigChecks,
					fmt.Sprintf("transaction exceeds per-transaction sigcheck limit: got %d, max %d",
						checks, c.params.MaxSigChecksPerTx))
			}
			totalSigChecks += checks
			if totalSigChecks > params.MaxSigChecksForBlockSize(uint64(block.SerializeSize())) {
				return nil, nil, ruleError(ErrTooManySigChecks, "block exceeds sigcheck budget")
			}
		}

		lastFees := totalFees
		totalFees += fee
		if totalFees < lastFees {
			return nil, nil, ruleError(ErrBadFees, "total fees overflow accumulator")
		}

		if err := c.createOutputs(view, tx, node.height, isCoinbase); err != nil {
			return nil, nil, err
		}
	}

	coinbaseOut := block.Transactions[0].TotalOut()
	subsidy := calcBlockSubsidy(node.height, c.params)
	if coinbaseOut > subsidy+totalFees {
		return nil, nil, ruleError(ErrBadCoinbaseValue,
			fmt.Sprintf("coinbase pays %d, expected at most %d", coinbaseOut, subsidy+totalFees))
	}

	return view, undo, nil
}

// spendInputs spends every non-coinbase input tx references, checking
// coinbase maturity and recording the pre-spend coins into undo at
// txIndex. It returns the transaction's fee, computed from
// interest-adjusted input values minus raw output values. stop is
// polled before each input, per the orchestrator's cancellation-point
// contract (see buildConnectOverlay).
func (c *Chain) spendInputs(view *UtxoViewpoint, tx *types.Transaction, height int32, undo *database.UndoRecord, txIndex int, stop *atomic.Bool) (int64, error) {
	spent := make([]*types.Coin, 0, len(tx.TxIn))
	var totalIn int64

	for _, in := range tx.TxIn {
		if cancelled(stop) {
			return 0, errValidationCancelled
		}

		coin, err := view.GetCoin(in.PreviousOutPoint)
		if err != nil {
			return 0, fmt.Errorf("blockchain: fatal: coin lookup: %w", err)
		}
		if coin == nil {
			return 0, ruleError(ErrMissingTxOut,
				fmt.Sprintf("output %v is missing or already spent", in.PreviousOutPoint))
		}
		if coin.Coinbase {
			age := int64(height) - int64(coin.Height)
			if age < int64(c.params.CoinbaseMaturity) {
				return 0, ruleError(ErrImmatureSpend,
					fmt.Sprintf("tried to spend coinbase output %v at depth %d before maturity of %d",
						in.PreviousOutPoint, age, c.params.CoinbaseMaturity))
			}
		}

		adjusted := interest.ValueWithInterest(coin.Output.Value, int64(coin.Height), int64(height))
		totalIn += adjusted

		spentCoin, err := view.SpendCoin(in.PreviousOutPoint)
		if err != nil || spentCoin == nil {
			return 0, ruleError(ErrSpentTxOut, fmt.Sprintf("output %v already spent within block", in.PreviousOutPoint))
		}
		spent = append(spent, spentCoin)
	}
	undo.SpentCoins[txIndex] = spent

	totalOut := tx.TotalOut()
	if totalIn < totalOut {
		return 0, ruleError(ErrBadFees,
			fmt.Sprintf("transaction spends %d but inputs (with interest) are only worth %d", totalOut, totalIn))
	}
	return totalIn - totalOut, nil
}

// createOutputs adds every non-unspendable output of tx to view at
// height, marking it coinbase if isCoinbase.
func (c *Chain) createOutputs(view *UtxoViewpoint, tx *types.Transaction, height int32, isCoinbase bool) error {
	txHash, err := tx.TxHash()
	if err != nil {
		return fmt.Errorf("blockchain: fatal: hash transaction: %w", err)
	}
	for idx, out := range tx.TxOut {
		if out.IsUnspendable() {
			continue
		}
		op := types.OutPoint{Hash: txHash, Index: uint32(idx)}
		coin := types.NewCoin(*out, uint32(height), isCoinbase)
		if err := view.AddCoin(op, coin); err != nil {
			return fmt.Errorf("blockchain: fatal: add coin: %w", err)
		}
	}
	return nil
}

// verifyScripts runs the script VM over every input of tx, using the
// interest-adjusted coin value as the FORKID sighash amount, and returns
// the total sigchecks performed. stop is polled before each input's
// script batch, per the orchestrator's cancellation-point contract.
func (c *Chain) verifyScripts(view *UtxoViewpoint, tx *types.Transaction, height int32, stop *atomic.Bool) (int, error) {
	total := 0
	for i, in := range tx.TxIn {
		if cancelled(stop) {
			return total, errValidationCancelled
		}

		coin, err := view.GetCoin(in.PreviousOutPoint)
		if err != nil {
			return total, fmt.Errorf("blockchain: fatal: coin lookup for script verify: %w", err)
		}
		if coin == nil {
			return total, ruleError(ErrMissingTxOut, "input coin vanished before script verification")
		}
		amount := interest.ValueWithInterest(coin.Output.Value, int64(coin.Height), int64(height))

		engine, err := txscript.NewEngine(coin.Output.PkScript, tx, i, 0, amount, c.sigCache)
		if err != nil {
			return total, ruleError(ErrScriptValidation, err.Error())
		}
		ok, checks, err := engine.Execute()
		total += checks
		if err != nil || !ok {
			return total, ruleError(ErrScriptValidation,
				fmt.Sprintf("script verification failed for input %d: %v", i, err))
		}

		if d := c.pvtestDelay.Load(); d > 0 {
			time.Sleep(time.Duration(d))
		}
	}
	return total, nil
}

// disconnectBlock is §4.7's disconnect-block: it removes the coins block
// created and restores the coins it spent, using the undo record stashed
// when the block was connected.
func (c *Chain) disconnectBlock(node *blockNode, block *types.Block) error {
	undo, ok := c.undoByHash[node.hash]
	if !ok {
		return AssertError("disconnectBlock: no undo record for node being disconnected")
	}

	view := NewUtxoViewpoint(c.coins)

	for i := len(block.Transactions) - 1; i >= 0; i-- {
		tx := block.Transactions[i]
		txHash, err := tx.TxHash()
		if err != nil {
			return err
		}
		for idx, out := range tx.TxOut {
			if out.IsUnspendable() {
				continue
			}
			op := types.OutPoint{Hash: txHash, Index: uint32(idx)}
			if _, err := view.SpendCoin(op); err != nil {
				return err
			}
		}

		if tx.IsCoinBase() {
			continue
		}
		spent := undo.SpentCoins[i]
		for j := len(tx.TxIn) - 1; j >= 0; j-- {
			coin := spent[j]
			coin.Spent = false
			if err := view.AddCoin(tx.TxIn[j].PreviousOutPoint, coin); err != nil {
				return err
			}
		}
	}

	view.Commit()
	node.status &^= statusValid
	delete(c.undoByHash, node.hash)

	return c.coins.Flush(node.parent.hash)
}

// calcBlockSubsidy returns the coinbase subsidy at height, halving every
// SubsidyReductionInterval blocks.
func calcBlockSubsidy(height int32, p *params.Params) int64 {
	halvings := int64(height) / p.SubsidyReductionInterval
	if halvings >= 64 {
		return 0
	}
	return p.BaseSubsidy >> uint(halvings)
}

// CalcSubsidy exposes calcBlockSubsidy to callers outside the package (a
// block template builder) that need the coinbase value for a not-yet-mined
// height without duplicating the halving schedule.
func (c *Chain) CalcSubsidy(height int32) int64 {
	return calcBlockSubsidy(height, c.params)
}

// NextRequiredDifficulty exposes calcNextRequiredDifficulty to a block
// template builder, which must propose the same bits contextualCheckHeader
// will require once the candidate block is submitted back for validation.
func (c *Chain) NextRequiredDifficulty(newBlockTime int64) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return calcNextRequiredDifficulty(c.tip, newBlockTime, c.params)
}
