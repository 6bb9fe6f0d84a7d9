// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
)

// orphanTx is a transaction held in the orphan pool because one or more of
// its inputs could not be resolved against the confirmed set or the main
// pool at the time it was seen, together with when it arrived so the expiry
// sweep can apply orphanpoolexpiry.
type orphanTx struct {
	tx    *types.Transaction
	hash  hash.Hash
	added time.Time
}

// orphanPool is TxPool's separate, bounded, TTL'd holding area for
// transactions whose parents are not yet known.
//
// This type's own fields MUST only be touched with TxPool.mtx held; it has
// no lock of its own.
type orphanPool struct {
	orphans       map[hash.Hash]*orphanTx
	orphansByPrev map[hash.Hash]map[hash.Hash]*orphanTx
}

func newOrphanPool() *orphanPool {
	return &orphanPool{
		orphans:       make(map[hash.Hash]*orphanTx),
		orphansByPrev: make(map[hash.Hash]map[hash.Hash]*orphanTx),
	}
}

func (op *orphanPool) has(h hash.Hash) bool {
	_, ok := op.orphans[h]
	return ok
}

// add indexes tx under every previous outpoint it references, evicting the
// oldest orphan first if the pool is already at capacity.
func (op *orphanPool) add(tx *types.Transaction, h hash.Hash, now time.Time, maxOrphans int) {
	if maxOrphans <= 0 {
		return
	}
	if len(op.orphans) >= maxOrphans {
		op.evictOldest()
	}

	o := &orphanTx{tx: tx, hash: h, added: now}
	op.orphans[h] = o
	for _, in := range tx.TxIn {
		prev := in.PreviousOutPoint.Hash
		if op.orphansByPrev[prev] == nil {
			op.orphansByPrev[prev] = make(map[hash.Hash]*orphanTx)
		}
		op.orphansByPrev[prev][h] = o
	}
}

func (op *orphanPool) evictOldest() {
	var oldestHash hash.Hash
	var oldestTime time.Time
	first := true
	for h, o := range op.orphans {
		if first || o.added.Before(oldestTime) {
			oldestHash, oldestTime = h, o.added
			first = false
		}
	}
	if !first {
		op.remove(oldestHash)
	}
}

func (op *orphanPool) remove(h hash.Hash) {
	o, ok := op.orphans[h]
	if !ok {
		return
	}
	for _, in := range o.tx.TxIn {
		prev := in.PreviousOutPoint.Hash
		if siblings, ok := op.orphansByPrev[prev]; ok {
			delete(siblings, h)
			if len(siblings) == 0 {
				delete(op.orphansByPrev, prev)
			}
		}
	}
	delete(op.orphans, h)
}

// byPrev returns the orphans that spend an output of transaction prevHash,
// for promoteOrphans to retry once that transaction is accepted.
func (op *orphanPool) byPrev(prevHash hash.Hash) []*orphanTx {
	siblings := op.orphansByPrev[prevHash]
	if len(siblings) == 0 {
		return nil
	}
	out := make([]*orphanTx, 0, len(siblings))
	for _, o := range siblings {
		out = append(out, o)
	}
	return out
}

// expire removes every orphan older than ttl, relative to now.
func (op *orphanPool) expire(now time.Time, ttl time.Duration) int {
	var expired []hash.Hash
	for h, o := range op.orphans {
		if now.Sub(o.added) > ttl {
			expired = append(expired, h)
		}
	}
	for _, h := range expired {
		op.remove(h)
	}
	return len(expired)
}
