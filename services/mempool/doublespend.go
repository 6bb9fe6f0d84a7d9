// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"math"
	"time"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
)

// DoubleSpendNotifier is told about the respend conflicts the pool detects
// (rate-limited per contested outpoint by Policy.RespendsPerMinute), so an
// external collaborator (a block explorer, a wallet's fraud
// alarm) can act on it and publish a double-spend proof of its own. This
// chain has no ZeroMQ binding in its dependency set, so the notification
// transport itself is the caller's concern, not the pool's.
type DoubleSpendNotifier interface {
	NotifyDoubleSpend(conflict types.OutPoint, incumbent, newcomer hash.Hash)
}

// respendLimiter bounds how often a single outpoint may be contested,
// using an exponentially decaying counter scoped per outpoint rather than
// pool-wide.
type respendLimiter struct {
	perMinute float64
	seen      map[types.OutPoint]*respendCounter
}

type respendCounter struct {
	total    float64
	lastUnix int64
}

func newRespendLimiter(perMinute float64) *respendLimiter {
	return &respendLimiter{perMinute: perMinute, seen: make(map[types.OutPoint]*respendCounter)}
}

// allow decays op's counter toward zero over a one-minute half-life window,
// adds one contest, and reports whether the outpoint is still under the
// configured rate. Callers hold TxPool.mtx, so no locking of its own is
// needed.
func (r *respendLimiter) allow(op types.OutPoint, now time.Time) bool {
	if r.perMinute <= 0 {
		return true
	}
	nowUnix := now.Unix()
	c, ok := r.seen[op]
	if !ok {
		c = &respendCounter{lastUnix: nowUnix}
		r.seen[op] = c
	}
	elapsed := float64(nowUnix - c.lastUnix)
	if elapsed > 0 {
		c.total *= decayFactor(elapsed)
		c.lastUnix = nowUnix
	}
	if c.total >= r.perMinute {
		return false
	}
	c.total++
	return true
}

// decayFactor returns the exponential decay applied over elapsed seconds
// for a counter with a one-minute half-life.
func decayFactor(elapsedSeconds float64) float64 {
	const halfLifeSeconds = 60.0
	return math.Pow(0.5, elapsedSeconds/halfLifeSeconds)
}
