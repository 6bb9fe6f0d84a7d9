// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"time"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/interest"
	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/engine/txscript"
)

// haveTransactionLocked reports whether h is already resident in the pool
// or the orphan pool. Callers hold mp.mtx.
func (mp *TxPool) haveTransactionLocked(h hash.Hash) bool {
	if _, ok := mp.pool[h]; ok {
		return true
	}
	return mp.orphans.has(h)
}

// fetchInputCoins resolves every input of tx against the confirmed UTXO
// set and, failing that, the outputs of transactions already resident in
// the pool. It returns the resolved coins in tx.TxIn order, the spentInput
// bookkeeping commit will need, and the previous-output hashes that could
// not be resolved at all.
func (mp *TxPool) fetchInputCoins(tx *types.Transaction) (coins []*types.Coin, spent []spentInput, missing []hash.Hash, err error) {
	coins = make([]*types.Coin, len(tx.TxIn))
	spent = make([]spentInput, len(tx.TxIn))

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	seenMissing := make(map[hash.Hash]bool)
	for i, in := range tx.TxIn {
		op := in.PreviousOutPoint

		// op.Hash is itself the txid of whatever transaction created this
		// output, so an in-pool ancestor is found directly by that hash —
		// no separate index is needed.
		if ancestor, ok := mp.pool[op.Hash]; ok {
			if int(op.Index) >= len(ancestor.Tx.TxOut) {
				return nil, nil, nil, fmt.Errorf("mempool: inconsistent outpoint index for %v", op)
			}
			out := ancestor.Tx.TxOut[op.Index]
			coins[i] = types.NewCoin(*out, uint32(ancestor.Height), false)
			spent[i] = spentInput{outpoint: op, ancestor: op.Hash, isAncestor: true}
			continue
		}

		coin, cerr := mp.cfg.Chain.Coins().GetCoin(op)
		if cerr != nil {
			return nil, nil, nil, fmt.Errorf("mempool: coin lookup: %w", cerr)
		}
		if coin == nil {
			if !seenMissing[op.Hash] {
				seenMissing[op.Hash] = true
				missing = append(missing, op.Hash)
			}
			continue
		}
		coins[i] = coin
		spent[i] = spentInput{outpoint: op}
	}

	if len(missing) > 0 {
		return nil, nil, missing, nil
	}
	return coins, spent, nil, nil
}

// verifyInputsAndFee runs script verification over every input of tx at
// valuationHeight, using the same interest-adjusted amount convention
// connect-block validation uses, and returns the total interest-adjusted
// input value together with the total sigchecks every input's script
// actually performed.
func (mp *TxPool) verifyInputsAndFee(tx *types.Transaction, coins []*types.Coin, valuationHeight int64) (int64, int, error) {
	var totalIn int64
	var totalSigChecks int
	sigCache := mp.cfg.Chain.SigCache()

	for i, coin := range coins {
		amount := interest.ValueWithInterest(coin.Output.Value, int64(coin.Height), valuationHeight)
		totalIn += amount

		engine, err := txscript.NewEngine(coin.Output.PkScript, tx, i, 0, amount, sigCache)
		if err != nil {
			return 0, 0, chainRuleError(toChainRuleError(err))
		}
		ok, sigChecks, err := engine.Execute()
		if err != nil || !ok {
			return 0, 0, txRuleError(RejectInvalid, fmt.Sprintf("script verification failed for input %d: %v", i, err))
		}
		totalSigChecks += sigChecks
	}
	return totalIn, totalSigChecks, nil
}

// txSigOpCount sums the static sigop count of tx's input and output
// scripts, the same accounting blockchain.transactionSigOpCount applies
// at connect-block time, so the mempool's per-transaction cap agrees with
// the one consensus validation enforces.
func txSigOpCount(tx *types.Transaction) int {
	count := 0
	for _, out := range tx.TxOut {
		count += txscript.GetSigOpCount(out.PkScript)
	}
	for _, in := range tx.TxIn {
		count += txscript.GetSigOpCount(in.SignatureScript)
	}
	return count
}

// checkPoolDoubleSpendLocked reports the in-pool transaction, if any, that
// already spends one of tx's inputs. Callers hold mp.mtx.
func (mp *TxPool) checkPoolDoubleSpendLocked(tx *types.Transaction, h hash.Hash) *TxDesc {
	for _, in := range tx.TxIn {
		if incumbentHash, ok := mp.outpoints[in.PreviousOutPoint]; ok && incumbentHash != h {
			return mp.pool[incumbentHash]
		}
	}
	return nil
}

// reportRespend applies the respend-relay policy: a newcomer contesting an
// outpoint an incumbent already holds is always rejected, but the
// DoubleSpendNotifier is only invoked at a bounded rate per outpoint, so a
// peer hammering the same contested output doesn't flood the configured
// collaborator with duplicate notifications.
func (mp *TxPool) reportRespend(tx *types.Transaction, incumbent *TxDesc, now time.Time) {
	if mp.cfg.DoubleSpendNotifier == nil {
		return
	}
	newcomerHash, err := tx.TxHash()
	if err != nil {
		return
	}

	mp.mtx.Lock()
	var contested types.OutPoint
	shouldNotify := false
	for _, in := range tx.TxIn {
		if mp.outpoints[in.PreviousOutPoint] != incumbent.Hash {
			continue
		}
		contested = in.PreviousOutPoint
		shouldNotify = mp.respends.allow(contested, now)
		break
	}
	mp.mtx.Unlock()

	if shouldNotify {
		mp.cfg.DoubleSpendNotifier.NotifyDoubleSpend(contested, incumbent.Hash, newcomerHash)
	}
}

// ancestorStatsLocked sums the ancestor package tx would belong to if
// admitted — every in-pool transaction one of its inputs spends, and
// transitively their own ancestors — and enforces the configured ancestor limits.
// Callers hold mp.mtx.
func (mp *TxPool) ancestorStatsLocked(tx *types.Transaction, fee int64, size int) (ancestorStats, error) {
	stats := ancestorStats{count: 1, bytes: int64(size), fees: fee}

	visited := make(map[hash.Hash]bool)
	var walk func(h hash.Hash) error
	walk = func(h hash.Hash) error {
		if visited[h] {
			return nil
		}
		visited[h] = true
		td, ok := mp.pool[h]
		if !ok {
			return nil
		}
		stats.count++
		stats.bytes += int64(td.Size)
		stats.fees += td.Fee
		if stats.count > mp.cfg.Policy.MaxAncestors {
			return txRuleError(RejectNonstandard,
				fmt.Sprintf("transaction would have %d ancestors, more than the limit of %d", stats.count, mp.cfg.Policy.MaxAncestors))
		}
		if stats.bytes > mp.cfg.Policy.MaxAncestorBytes {
			return txRuleError(RejectNonstandard,
				fmt.Sprintf("transaction's ancestor package is %d bytes, more than the limit of %d", stats.bytes, mp.cfg.Policy.MaxAncestorBytes))
		}
		if td.Descendants.count+1 > mp.cfg.Policy.MaxDescendants {
			return txRuleError(RejectNonstandard,
				fmt.Sprintf("ancestor %v already has %d descendants, at the limit of %d", h, td.Descendants.count, mp.cfg.Policy.MaxDescendants))
		}
		if td.Descendants.bytes+int64(size) > mp.cfg.Policy.MaxDescendantBytes {
			return txRuleError(RejectNonstandard,
				fmt.Sprintf("ancestor %v's descendant package would exceed the limit of %d bytes", h, mp.cfg.Policy.MaxDescendantBytes))
		}
		for _, in := range td.Tx.TxIn {
			if err := walk(in.PreviousOutPoint.Hash); err != nil {
				return err
			}
		}
		return nil
	}

	for _, in := range tx.TxIn {
		if err := walk(in.PreviousOutPoint.Hash); err != nil {
			return ancestorStats{}, err
		}
	}
	return stats, nil
}
