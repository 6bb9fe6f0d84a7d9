// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool implements concurrent transaction admission: an intake
// queue drained by a pool of admission workers, a deferred queue for
// orphans retried once their parent arrives, and a single serializing
// commit step, backing the pool of not-yet-mined transactions a miner draws
// a block template from.
package mempool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/blockchain"
	"github.com/baby636-sketch/Membercoin/core/types"
)

// errPoolClosed is returned by ProcessTransaction once Close has been
// called; no further admission requests are accepted.
var errPoolClosed = errors.New("mempool: closed")

// intakeQueueDepth sizes txInQ/txDeferQ: deep enough to absorb a burst of
// relayed transactions without callers blocking on a momentarily saturated
// pool.
const intakeQueueDepth = 1024

// TxDesc describes a transaction resident in the pool, along with the
// bookkeeping admission accumulated about it: its fee and size, its
// ancestor and descendant summaries, and when it was added.
type TxDesc struct {
	Tx      *types.Transaction
	Hash    hash.Hash
	Added   time.Time
	Height  int32 // the chain height the tx was validated against, plus one
	Fee     int64
	FeeRate int64 // satoshis per 1000 bytes
	Size    int

	Ancestors   ancestorStats
	Descendants ancestorStats
}

// admissionResult is what an admission worker hands back to the caller
// blocked in ProcessTransaction.
type admissionResult struct {
	td  *TxDesc
	err error
}

// admissionRequest is one unit of work handed to an admission worker,
// either fresh off the intake queue or retried off the deferred queue after
// its parent was committed.
type admissionRequest struct {
	tx          *types.Transaction
	hash        hash.Hash
	allowOrphan bool
	result      chan admissionResult
}

// commitRequest is the single serializing step's unit of work: everything
// the commit goroutine needs to integrate an already-validated transaction
// without re-deriving it.
type commitRequest struct {
	tx     *types.Transaction
	hash   hash.Hash
	height int32
	fee    int64
	size   int
	spent  []spentInput
	done   chan struct{}
}

// spentInput names one input a transaction consumed, and whether it spent
// another mempool transaction's output (an in-pool ancestor) rather than a
// confirmed coin.
type spentInput struct {
	outpoint   types.OutPoint
	ancestor   hash.Hash
	isAncestor bool
}

// TxPool is the admission and holding pool for not-yet-mined transactions.
// It is safe for concurrent use.
type TxPool struct {
	cfg Config

	mtx  sync.Mutex
	cond *sync.Cond // broadcast on every successful commit

	pool      map[hash.Hash]*TxDesc
	outpoints map[types.OutPoint]hash.Hash

	orphans  *orphanPool
	respends *respendLimiter

	lastUpdated  atomic.Int64 // unix seconds
	dynamicBytes int64

	listeners []func(*TxDesc)

	txInQ     chan *admissionRequest
	txDeferQ  chan *admissionRequest
	txCommitQ chan *commitRequest

	wg        sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once
}

// New returns a running TxPool: its admission workers, commit loop, and
// expiry sweep are all already started.
func New(cfg Config) *TxPool {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	mp := &TxPool{
		cfg:       cfg,
		pool:      make(map[hash.Hash]*TxDesc),
		outpoints: make(map[types.OutPoint]hash.Hash),
		orphans:   newOrphanPool(),
		respends:  newRespendLimiter(cfg.Policy.RespendsPerMinute),
		txInQ:     make(chan *admissionRequest, intakeQueueDepth),
		txDeferQ:  make(chan *admissionRequest, intakeQueueDepth),
		txCommitQ: make(chan *commitRequest, intakeQueueDepth),
		quit:      make(chan struct{}),
	}
	mp.cond = sync.NewCond(&mp.mtx)

	workers := resolveAdmissionWorkers(cfg.Policy.AdmissionWorkers)
	for i := 0; i < workers; i++ {
		mp.wg.Add(1)
		go mp.admissionWorker()
	}
	mp.wg.Add(1)
	go mp.commitLoop()
	mp.wg.Add(1)
	go mp.expiryLoop()

	return mp
}

// systemClock is the default clock New falls back to when cfg.Clock is nil.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Close stops every admission worker, the commit loop, and the expiry
// sweep, and makes every further ProcessTransaction call fail immediately.
func (mp *TxPool) Close() {
	mp.closeOnce.Do(func() {
		close(mp.quit)
	})
	mp.wg.Wait()
}

// Subscribe registers fn to be called, outside the pool's lock, after every
// transaction the pool admits — whether it arrived directly or was
// promoted out of the orphan pool by the acceptance of its parent.
func (mp *TxPool) Subscribe(fn func(*TxDesc)) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	mp.listeners = append(mp.listeners, fn)
}

// Get returns the descriptor for h if it is currently resident in the
// pool.
func (mp *TxPool) Get(h hash.Hash) (*TxDesc, bool) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	td, ok := mp.pool[h]
	if !ok {
		return nil, false
	}
	cp := *td
	return &cp, true
}

// Count returns the number of transactions currently resident in the
// pool, not counting orphans.
func (mp *TxPool) Count() int {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	return len(mp.pool)
}

// LastUpdated reports when the pool last committed a transaction.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(mp.lastUpdated.Load(), 0)
}

// Snapshot returns a copy of every resident transaction descriptor, for a
// block template builder that needs to pick a fee-ordered subset without
// holding the pool's lock for the duration of that selection.
func (mp *TxPool) Snapshot() []*TxDesc {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	out := make([]*TxDesc, 0, len(mp.pool))
	for _, td := range mp.pool {
		cp := *td
		out = append(out, &cp)
	}
	return out
}

func (mp *TxPool) notify(td *TxDesc) {
	mp.mtx.Lock()
	listeners := make([]func(*TxDesc), len(mp.listeners))
	copy(listeners, mp.listeners)
	mp.mtx.Unlock()

	for _, fn := range listeners {
		fn(td)
	}
}

// ProcessTransaction is the main entry point for admitting a free-standing
// transaction: it enqueues tx onto the intake queue, blocks until an
// admission worker has run the full admission pipeline on it, and returns the
// resulting descriptor. allowOrphan controls whether a transaction with
// unresolved inputs is held in the orphan pool (true) or rejected outright
// (false — e.g. a transaction arriving in a context where the caller
// cannot later resolve the orphan).
func (mp *TxPool) ProcessTransaction(tx *types.Transaction, allowOrphan bool) (*TxDesc, error) {
	h, err := tx.TxHash()
	if err != nil {
		return nil, fmt.Errorf("mempool: hash transaction: %w", err)
	}

	req := &admissionRequest{
		tx:          tx,
		hash:        h,
		allowOrphan: allowOrphan,
		result:      make(chan admissionResult, 1),
	}

	select {
	case mp.txInQ <- req:
	case <-mp.quit:
		return nil, errPoolClosed
	}

	select {
	case res := <-req.result:
		return res.td, res.err
	case <-mp.quit:
		return nil, errPoolClosed
	}
}

// admissionWorker drains txInQ and txDeferQ, running the full admission
// pipeline on every request. Intake is preferred over deferred retries: a
// worker only looks at txDeferQ once txInQ has nothing ready.
func (mp *TxPool) admissionWorker() {
	defer mp.wg.Done()
	for {
		select {
		case <-mp.quit:
			return
		case req := <-mp.txInQ:
			mp.handleAdmission(req)
			continue
		default:
		}

		select {
		case <-mp.quit:
			return
		case req := <-mp.txInQ:
			mp.handleAdmission(req)
		case req := <-mp.txDeferQ:
			mp.handleAdmission(req)
		}
	}
}

// handleAdmission runs maybeAccept and, on success, hands the transaction
// to the commit queue before replying to the waiting caller (if any —
// deferred orphan-promotion retries have no caller waiting).
func (mp *TxPool) handleAdmission(req *admissionRequest) {
	td, err := mp.maybeAccept(req.tx, req.hash, req.allowOrphan)
	switch {
	case err != nil:
		pkgLog.Debug("transaction rejected", "hash", req.hash, "err", err)
	case td != nil:
		pkgLog.Debug("transaction accepted", "hash", req.hash, "fee", td.Fee, "size", td.Size)
	default:
		pkgLog.Debug("transaction held as orphan", "hash", req.hash)
	}
	if req.result != nil {
		req.result <- admissionResult{td: td, err: err}
	}
}

// maybeAccept runs the six-step admission pipeline against tx. It
// returns the committed descriptor on success. A transaction with
// unresolved inputs is held in the orphan pool (if allowOrphan) and
// returns (nil, nil) rather than an error: missing parents are not a
// rejection.
func (mp *TxPool) maybeAccept(tx *types.Transaction, h hash.Hash, allowOrphan bool) (*TxDesc, error) {
	mp.mtx.Lock()
	alreadyKnown := mp.haveTransactionLocked(h)
	mp.mtx.Unlock()
	if alreadyKnown {
		return nil, txRuleError(RejectDuplicate, fmt.Sprintf("already have transaction %v", h))
	}

	// Step 1: basic checks.
	if tx.IsCoinBase() {
		return nil, txRuleError(RejectInvalid, fmt.Sprintf("transaction %v is an individual coinbase", h))
	}
	if err := tx.CheckBasicSanity(); err != nil {
		return nil, txRuleError(RejectInvalid, err.Error())
	}
	if sigOps := txSigOpCount(tx); sigOps > mp.cfg.Chain.Params().MaxSigOpsPerTx {
		return nil, txRuleError(RejectNonstandard,
			fmt.Sprintf("transaction %v has %d sigops, more than the limit of %d", h, sigOps, mp.cfg.Chain.Params().MaxSigOpsPerTx))
	}

	chain := mp.cfg.Chain
	nextHeight := chain.TipHeight() + 1
	minRelayFeePerKB := mp.cfg.minRelayTxFeePerKB()

	serializedSize := tx.SerializeSize()
	minFee := calcMinRequiredFee(serializedSize, minRelayFeePerKB)
	if err := checkTransactionStandard(tx, minRelayFeePerKB, mp.cfg.Policy.MaxOpReturnSize); err != nil {
		return nil, err
	}

	mp.mtx.Lock()
	poolConflict := mp.checkPoolDoubleSpendLocked(tx, h)
	mp.mtx.Unlock()

	// Step 2: UTXO lookup (confirmed set, then in-pool outputs).
	coins, spent, missing, err := mp.fetchInputCoins(tx)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		if !allowOrphan {
			return nil, txRuleError(RejectOrphan,
				fmt.Sprintf("transaction %v references outputs of unknown transaction %v", h, missing[0]))
		}
		if serializedSize > mp.cfg.Policy.MaxOrphanTxSize {
			return nil, txRuleError(RejectNonstandard,
				fmt.Sprintf("orphan transaction size of %d exceeds max of %d", serializedSize, mp.cfg.Policy.MaxOrphanTxSize))
		}
		mp.mtx.Lock()
		mp.orphans.add(tx, h, mp.cfg.Clock.Now(), mp.cfg.Policy.MaxOrphanTxs)
		mp.mtx.Unlock()
		return nil, nil
	}

	// Step 3: script verification, interest-adjusted against the current
	// tip, the same amount convention connect-block validation uses.
	totalIn, sigChecks, err := mp.verifyInputsAndFee(tx, coins, int64(nextHeight))
	if err != nil {
		return nil, err
	}
	if sigChecks > chain.Params().MaxSigChecksPerTx {
		return nil, txRuleError(RejectNonstandard,
			fmt.Sprintf("transaction %v has %d sigchecks, more than the limit of %d", h, sigChecks, chain.Params().MaxSigChecksPerTx))
	}
	fee := totalIn - tx.TotalOut()
	if fee < 0 {
		return nil, txRuleError(RejectInvalid, fmt.Sprintf("transaction %v spends more than its inputs are worth", h))
	}
	if fee < minFee {
		return nil, txRuleError(RejectInsufficientFee,
			fmt.Sprintf("transaction %v has fee %d, which is under the required amount of %d", h, fee, minFee))
	}

	// Step 4: ancestor/descendant policy.
	mp.mtx.Lock()
	ancestors, err := mp.ancestorStatsLocked(tx, fee, serializedSize)
	mp.mtx.Unlock()
	if err != nil {
		return nil, err
	}

	// Step 5: double-spend detection / respend-relay policy. A newcomer
	// contesting an outpoint the pool already holds is always rejected;
	// the rate limit only bounds how often the conflict is relayed to the
	// configured DoubleSpendNotifier.
	if poolConflict != nil {
		mp.reportRespend(tx, poolConflict, mp.cfg.Clock.Now())
		return nil, txRuleError(RejectDuplicate,
			fmt.Sprintf("transaction %v respends an output already held by %v", h, poolConflict.Hash))
	}

	// Step 6: commit, via the serializing commit queue.
	done := make(chan struct{})
	commit := &commitRequest{
		tx:     tx,
		hash:   h,
		height: nextHeight,
		fee:    fee,
		size:   serializedSize,
		spent:  spent,
		done:   done,
	}
	select {
	case mp.txCommitQ <- commit:
	case <-mp.quit:
		return nil, errPoolClosed
	}
	select {
	case <-done:
	case <-mp.quit:
		return nil, errPoolClosed
	}

	td := mp.descriptorFor(h)
	td.Ancestors = ancestors
	return td, nil
}

// toChainRuleError wraps an error raised while constructing a script engine
// as a blockchain.RuleError with ErrScriptValidation (an existing RuleError
// passes through). A script that fails during execution is reported as a
// TxRuleError with RejectInvalid instead.
func toChainRuleError(err error) blockchain.RuleError {
	if rerr, ok := err.(blockchain.RuleError); ok {
		return rerr
	}
	return blockchain.RuleError{ErrorCode: blockchain.ErrScriptValidation, Description: err.Error()}
}

// descriptorFor returns the pool's own copy of h's descriptor, taken under
// lock; it must only be called once the commit for h has completed.
func (mp *TxPool) descriptorFor(h hash.Hash) *TxDesc {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	td := *mp.pool[h]
	return &td
}
