// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sort"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
)

// commitLoop is the single serializing step: every admitted
// transaction passes through here, one at a time, so the pool's maps and
// accounting never need a lock broader than a single commit.
func (mp *TxPool) commitLoop() {
	defer mp.wg.Done()
	for {
		select {
		case <-mp.quit:
			return
		case req := <-mp.txCommitQ:
			mp.commit(req)
			close(req.done)
			mp.promoteOrphans(req.hash)
			mp.evictIfOverBudget()
		}
	}
}

// commit integrates an already-validated transaction into the pool: it is
// the only place pool/outpoints/dynamicBytes are mutated on the admission
// path, keeping every admission-path mutation behind this one call site.
func (mp *TxPool) commit(req *commitRequest) {
	mp.mtx.Lock()

	td := &TxDesc{
		Tx:      req.tx,
		Hash:    req.hash,
		Added:   mp.cfg.Clock.Now(),
		Height:  req.height,
		Fee:     req.fee,
		FeeRate: feeRate(req.fee, req.size),
		Size:    req.size,
	}
	mp.pool[req.hash] = td

	for _, s := range req.spent {
		mp.outpoints[s.outpoint] = req.hash
	}

	mp.bumpAncestorDescendantStatsLocked(req, td)

	mp.dynamicBytes += int64(req.size)
	mp.lastUpdated.Store(mp.cfg.Clock.Now().Unix())
	mp.cond.Broadcast()

	mp.mtx.Unlock()

	mp.notify(td)
}

// bumpAncestorDescendantStatsLocked walks every in-pool ancestor td spends
// from, transitively, and adds td to each one's descendant summary. It is
// the commit-side half of the ancestor/descendant bookkeeping: the
// admission-side half, checking those same limits before a transaction is
// let in, lives in ancestorStatsLocked. Callers hold mp.mtx.
func (mp *TxPool) bumpAncestorDescendantStatsLocked(req *commitRequest, td *TxDesc) {
	visited := make(map[hash.Hash]bool)
	var walk func(h hash.Hash)
	walk = func(h hash.Hash) {
		if visited[h] {
			return
		}
		visited[h] = true
		ancestor, ok := mp.pool[h]
		if !ok {
			return
		}
		ancestor.Descendants.count++
		ancestor.Descendants.bytes += int64(td.Size)
		ancestor.Descendants.fees += td.Fee
		for _, in := range ancestor.Tx.TxIn {
			walk(in.PreviousOutPoint.Hash)
		}
	}
	for _, s := range req.spent {
		if s.isAncestor {
			walk(s.ancestor)
		}
	}
}

// dropAncestorDescendantStatsLocked is removeLocked's half of the
// ancestor/descendant bookkeeping: it undoes what
// bumpAncestorDescendantStatsLocked applied when td was committed.
// Callers hold mp.mtx.
func (mp *TxPool) dropAncestorDescendantStatsLocked(td *TxDesc) {
	visited := make(map[hash.Hash]bool)
	var walk func(h hash.Hash)
	walk = func(h hash.Hash) {
		if visited[h] {
			return
		}
		visited[h] = true
		ancestor, ok := mp.pool[h]
		if !ok {
			return
		}
		ancestor.Descendants.count--
		ancestor.Descendants.bytes -= int64(td.Size)
		ancestor.Descendants.fees -= td.Fee
		for _, in := range ancestor.Tx.TxIn {
			walk(in.PreviousOutPoint.Hash)
		}
	}
	for _, in := range td.Tx.TxIn {
		walk(in.PreviousOutPoint.Hash)
	}
}

// feeRate returns fee scaled to satoshis per 1000 bytes, the unit both the
// min-relay-fee check and eviction ordering use.
func feeRate(fee int64, size int) int64 {
	if size == 0 {
		return 0
	}
	return fee * 1000 / int64(size)
}

// promoteOrphans walks every orphan directly dependent on parentHash and
// retries it through the normal admission pipeline via the deferred queue,
// implementing commit's wake signal for orphan resolution.
func (mp *TxPool) promoteOrphans(parentHash hash.Hash) {
	mp.mtx.Lock()
	candidates := mp.orphans.byPrev(parentHash)
	for _, o := range candidates {
		mp.orphans.remove(o.hash)
	}
	mp.mtx.Unlock()

	for _, o := range candidates {
		req := &admissionRequest{
			tx:          o.tx,
			hash:        o.hash,
			allowOrphan: true,
		}
		select {
		case mp.txDeferQ <- req:
		case <-mp.quit:
			return
		}
	}
}

// RemoveTransaction removes h and, if removeDescendants is set, every
// transaction in the pool that (directly or transitively) spends one of
// its outputs. It reports how many transactions were removed in total.
func (mp *TxPool) RemoveTransaction(h hash.Hash, removeDescendants bool) int {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	return mp.removeLocked(h, removeDescendants)
}

func (mp *TxPool) removeLocked(h hash.Hash, removeDescendants bool) int {
	td, ok := mp.pool[h]
	if !ok {
		return 0
	}

	mp.dropAncestorDescendantStatsLocked(td)

	removed := 1
	if removeDescendants {
		for idx := range td.Tx.TxOut {
			op := types.OutPoint{Hash: h, Index: uint32(idx)}
			if spenderHash, ok := mp.outpoints[op]; ok {
				removed += mp.removeLocked(spenderHash, true)
			}
		}
	}

	for _, in := range td.Tx.TxIn {
		if spender, ok := mp.outpoints[in.PreviousOutPoint]; ok && spender == h {
			delete(mp.outpoints, in.PreviousOutPoint)
		}
	}
	mp.dynamicBytes -= int64(td.Size)
	delete(mp.pool, h)
	return removed
}

// evictIfOverBudget removes the lowest-fee-rate packages from the pool
// until dynamicBytes is back under the configured budget. A "package"
// here is approximated by a single
// transaction and its removal's direct knock-on (removeLocked already
// cascades to descendants, so evicting a low-fee-rate root also clears
// whatever depends on it).
func (mp *TxPool) evictIfOverBudget() {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if mp.dynamicBytes <= mp.cfg.Policy.MaxMempoolBytes {
		return
	}

	type candidate struct {
		hash hash.Hash
		rate int64
	}
	candidates := make([]candidate, 0, len(mp.pool))
	for h, td := range mp.pool {
		candidates = append(candidates, candidate{hash: h, rate: td.FeeRate})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].rate < candidates[j].rate })

	for _, c := range candidates {
		if mp.dynamicBytes <= mp.cfg.Policy.MaxMempoolBytes {
			return
		}
		if _, ok := mp.pool[c.hash]; !ok {
			continue // already removed as a descendant of an earlier eviction
		}
		pkgLog.Info("evicting transaction over mempool byte budget", "hash", c.hash, "feeRate", c.rate)
		mp.removeLocked(c.hash, true)
	}
}
