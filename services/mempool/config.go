// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"runtime"
	"time"

	"github.com/baby636-sketch/Membercoin/core/blockchain"
)

// Policy houses the configuration parameters that control which otherwise
// rule-valid transactions the pool will actually admit and relay.
type Policy struct {
	// MinRelayTxFeePerKB is the minimum fee rate, in satoshis per 1000
	// serialized bytes, a transaction must pay to be admitted. Zero means
	// fall back to the chain's own params.MinRelayTxFeePerKB.
	MinRelayTxFeePerKB int64

	// MaxOrphanTxs bounds the number of transactions the orphan pool may
	// hold at once.
	MaxOrphanTxs int

	// MaxOrphanTxSize bounds the serialized size of any single orphan,
	// to stop a handful of large orphans from exhausting the pool's
	// memory budget on their own.
	MaxOrphanTxSize int

	// OrphanExpiry is how long an orphan may sit waiting for its missing
	// parent before the expiry sweep discards it.
	OrphanExpiry time.Duration

	// MempoolExpiry is how long a transaction may sit in the main pool
	// before the expiry sweep discards it and its descendants.
	MempoolExpiry time.Duration

	// MaxMempoolBytes is the dynamic memory budget, in bytes, the eviction
	// sweep enforces (operators typically configure this in MB; convert
	// before assigning it here).
	MaxMempoolBytes int64

	// MaxAncestors/MaxAncestorBytes/MaxDescendants/MaxDescendantBytes
	// bound the size of the connected package a single transaction may
	// belong to, counting itself.
	MaxAncestors       int
	MaxAncestorBytes   int64
	MaxDescendants     int
	MaxDescendantBytes int64

	// MaxOpReturnSize bounds the payload of a relayed OP_RETURN output.
	MaxOpReturnSize int

	// RespendsPerMinute bounds how many times, per minute, a conflict over
	// the same outpoint is reported to the DoubleSpendNotifier. A newcomer
	// contesting an outpoint already held by a mempool transaction is
	// rejected whatever this rate.
	RespendsPerMinute float64

	// AdmissionWorkers is the number of goroutines draining the intake
	// queue. Zero means the default of max(NumCPU/2, 1).
	AdmissionWorkers int
}

// DefaultPolicy returns policy defaults modeled on the reference client's
// own mempool.h constants, scaled to this chain's units.
func DefaultPolicy() Policy {
	return Policy{
		MaxOrphanTxs:       100,
		MaxOrphanTxSize:    100000,
		OrphanExpiry:       time.Hour,
		MempoolExpiry:      336 * time.Hour,
		MaxMempoolBytes:    300 * 1024 * 1024,
		MaxAncestors:       50,
		MaxAncestorBytes:   101 * 1000,
		MaxDescendants:     50,
		MaxDescendantBytes: 101 * 1000,
		MaxOpReturnSize:    223,
		RespendsPerMinute:  10,
	}
}

// resolveAdmissionWorkers applies the default of max(cores/2, 1) admission
// workers whenever configured is left at zero.
func resolveAdmissionWorkers(configured int) int {
	if configured > 0 {
		return configured
	}
	if n := runtime.NumCPU() / 2; n > 0 {
		return n
	}
	return 1
}

// Config bundles everything a TxPool needs from the rest of the node: the
// chain to validate against, the policy to enforce, and the clock to time
// expiry against.
type Config struct {
	Chain  *blockchain.Chain
	Policy Policy
	Clock  blockchain.WallClock

	// DoubleSpendNotifier, if non-nil, is told about the respend conflicts
	// the pool detects, at most Policy.RespendsPerMinute times a minute
	// per contested outpoint.
	DoubleSpendNotifier DoubleSpendNotifier
}

func (c *Config) minRelayTxFeePerKB() int64 {
	if c.Policy.MinRelayTxFeePerKB > 0 {
		return c.Policy.MinRelayTxFeePerKB
	}
	return c.Chain.Params().MinRelayTxFeePerKB
}
