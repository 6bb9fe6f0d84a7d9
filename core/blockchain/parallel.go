// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/baby636-sketch/Membercoin/core/types"
)

// resolveParallelism turns the par knob (§5's "P parallel-validation
// threads, default auto from cores, may be negative meaning 'leave N
// cores free'") into a worker count of at least 1.
func resolveParallelism(par int) int {
	switch {
	case par > 0:
		return par
	case par == 0:
		if n := runtime.NumCPU(); n > 0 {
			return n
		}
		return 1
	default:
		if n := runtime.NumCPU() + par; n > 0 {
			return n
		}
		return 1
	}
}

// candidateAttempt tracks one racing candidate's in-flight validation
// state: the stop flag a winner (or a failed sibling) can set to make
// this attempt bail out early, and the outcome once it finishes.
type candidateAttempt struct {
	node  *blockNode
	block *types.Block
	stop  atomic.Bool

	err error
}

// ProcessBlocksConcurrently implements §4.9's parallel validation
// orchestrator: given a batch of blocks arriving together, it accepts
// every header first, then races up to par goroutines to validate
// whichever subset ties for the greatest cumulative work and extends
// the current tip directly, each against its own UtxoViewpoint overlay
// of the shared coins cache. The first to finish successfully wins a
// single commit lock and commits its overlay; every other racing
// attempt is signalled to stop and discards its work. Blocks that don't
// extend the tip, or lose the equal-work tier, are not raced: once the
// race is over they are handed one at a time to connectBestChain, the
// same path ProcessBlock uses. Raced candidates that lost stay in the
// index unconnected.
func (c *Chain) ProcessBlocksConcurrently(ctx context.Context, blocks []*types.Block, par int) error {
	c.mu.Lock()
	tipAtStart := c.tip

	attempts := make([]*candidateAttempt, 0, len(blocks))
	for _, block := range blocks {
		node, err := c.acceptBlockHeader(block)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		if node == nil {
			continue // already known; skip rather than fail the whole batch
		}
		attempts = append(attempts, &candidateAttempt{node: node, block: block})
	}
	c.mu.Unlock()

	if len(attempts) == 0 {
		return nil
	}

	racing := equalWorkTipExtenders(attempts, tipAtStart)
	if len(racing) == 0 {
		// None of the accepted headers both tie for the best work and
		// extend the current tip directly; fall back to the ordinary
		// one-at-a-time path, which also covers reorgs.
		c.mu.Lock()
		defer c.mu.Unlock()
		for _, a := range attempts {
			if err := c.connectBestChain(a.node, a.block); err != nil {
				c.index.markFailed(a.node)
				if perr := c.persistHeader(a.node); perr != nil {
					pkgLog.Error("persist header after failed connect", "hash", a.node.hash, "err", perr)
				}
				return err
			}
		}
		return nil
	}

	winner, commitErr := c.raceCandidates(ctx, racing, par)
	if commitErr != nil {
		return commitErr
	}

	// Any accepted block outside the raced tier (lower work, or not a
	// direct extension of tipAtStart) is connected afterward through the
	// ordinary path, now that the race's winner (if any) has updated c.tip.
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range attempts {
		if a == winner || isRacedAttempt(racing, a) {
			continue
		}
		if err := c.connectBestChain(a.node, a.block); err != nil {
			c.index.markFailed(a.node)
			if perr := c.persistHeader(a.node); perr != nil {
				pkgLog.Error("persist header after failed connect", "hash", a.node.hash, "err", perr)
			}
			return err
		}
	}
	return nil
}

func isRacedAttempt(racing []*candidateAttempt, a *candidateAttempt) bool {
	for _, r := range racing {
		if r == a {
			return true
		}
	}
	return false
}

// equalWorkTipExtenders returns the subset of attempts whose node both
// carries the greatest cumulative work among attempts and extends tip
// directly — the set of candidates §4.9 describes as "competing
// candidate tips of equal work".
func equalWorkTipExtenders(attempts []*candidateAttempt, tip *blockNode) []*candidateAttempt {
	var extenders []*candidateAttempt
	for _, a := range attempts {
		if a.node.parent == tip {
			extenders = append(extenders, a)
		}
	}
	if len(extenders) == 0 {
		return nil
	}

	best := extenders[0].node.workSum
	for _, a := range extenders[1:] {
		if a.node.workSum.Cmp(best) > 0 {
			best = a.node.workSum
		}
	}

	var racing []*candidateAttempt
	for _, a := range extenders {
		if a.node.workSum.Cmp(best) == 0 {
			racing = append(racing, a)
		}
	}
	return racing
}

// raceCandidates validates every attempt in racing concurrently, capped
// at resolveParallelism(par) goroutines via errgroup's limiter, and
// commits whichever finishes validation successfully first. It returns
// the winning attempt (nil if every candidate failed or was cancelled)
// and any fatal commit error. g's own errors are never returned: a
// candidate losing the race or failing validation does not fail the
// batch while some candidate wins. If none wins, the first candidate
// that failed for a reason other than cancellation is marked failed and
// its validation error is returned.
func (c *Chain) raceCandidates(ctx context.Context, racing []*candidateAttempt, par int) (*candidateAttempt, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveParallelism(par))

	var commitMu sync.Mutex
	var winner *candidateAttempt
	var commitErr error

	for _, a := range racing {
		a := a
		g.Go(func() error {
			if cancelled(&a.stop) || gctx.Err() != nil {
				a.err = errValidationCancelled
				return nil
			}

			view, undo, err := c.buildConnectOverlay(a.node, a.block, &a.stop)
			if err != nil {
				a.err = err
				return nil
			}

			commitMu.Lock()
			defer commitMu.Unlock()
			if winner != nil {
				// A sibling already won the commit lock; this overlay
				// is simply discarded by going out of scope.
				return nil
			}
			winner = a
			for _, other := range racing {
				if other != a {
					other.stop.Store(true)
				}
			}

			c.mu.Lock()
			commitErr = c.commitConnectOverlay(a.node, view, undo)
			if commitErr == nil {
				c.tip = a.node
			}
			c.mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if commitErr != nil {
		return winner, commitErr
	}
	if winner == nil {
		for _, a := range racing {
			if a.err != nil && a.err != errValidationCancelled {
				c.mu.Lock()
				c.index.markFailed(a.node)
				perr := c.persistHeader(a.node)
				c.mu.Unlock()
				if perr != nil {
					pkgLog.Error("persist header after failed connect", "hash", a.node.hash, "err", perr)
				}
				return nil, a.err
			}
		}
	}
	return winner, nil
}
