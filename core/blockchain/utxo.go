// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/database"
	"github.com/baby636-sketch/Membercoin/core/types"
)

// cacheFlags tracks why a CoinsCache entry needs special handling on
// flush, mirroring bitcoind's CCoinsCacheEntry DIRTY/FRESH bits.
type cacheFlags uint8

const (
	// flagDirty marks an entry that differs from what is on disk and
	// must be written out on the next flush.
	flagDirty cacheFlags = 1 << 0

	// flagFresh marks an entry that has no corresponding entry on disk
	// at all (a freshly created, never-flushed coin): if it is spent
	// before ever being flushed, it can simply be dropped from the cache
	// rather than written and then immediately deleted.
	flagFresh cacheFlags = 1 << 1
)

type cacheEntry struct {
	coin  *types.Coin
	flags cacheFlags
}

// CoinsCache is the in-memory layer of the UTXO view: a read-through,
// write-back cache over the UtxoStore disk snapshot. It is the middle
// tier of the three-layer view described in §4.5 (disk snapshot → cache
// → per-validation overlay).
type CoinsCache struct {
	mu    sync.RWMutex
	store database.UtxoStore

	entries    map[types.OutPoint]*cacheEntry
	dirtyBytes int
}

// NewCoinsCache returns a cache backed by store.
func NewCoinsCache(store database.UtxoStore) *CoinsCache {
	return &CoinsCache{
		store:   store,
		entries: make(map[types.OutPoint]*cacheEntry),
	}
}

// entrySize approximates the in-memory footprint of a cached coin, used
// to decide when dirtyBytes has crossed the flush threshold.
func entrySize(c *types.Coin) int {
	return 64 + len(c.Output.PkScript)
}

// BestBlock returns the hash of the block the underlying disk snapshot is
// consistent as of, so a resuming Chain can tell which of the persisted
// block-index entries its coin set actually reflects.
func (c *CoinsCache) BestBlock() (hash.Hash, error) {
	return c.store.BestBlock()
}

// fetch returns the cache entry for op, reading through to the disk
// store (and caching the result, clean) on a cache miss.
func (c *CoinsCache) fetch(op types.OutPoint) (*cacheEntry, error) {
	if e, ok := c.entries[op]; ok {
		return e, nil
	}
	coin, err := c.store.GetCoin(op)
	if err != nil {
		if err == database.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	e := &cacheEntry{coin: coin}
	c.entries[op] = e
	return e, nil
}

// GetCoin returns the coin for op, or nil if it is unknown or has been
// spent.
func (c *CoinsCache) GetCoin(op types.OutPoint) (*types.Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.fetch(op)
	if err != nil || e == nil || e.coin.Spent {
		return nil, err
	}
	return e.coin, nil
}

// AddCoin inserts a freshly created coin for op. possiblyOverwrite
// should be true only for coinbase outputs, where an identical outpoint
// from an earlier, now-fully-spent and pruned coinbase is permitted to
// exist in the cache already (BIP30 duplicate-coinbase handling is
// enforced above this layer, not here).
func (c *CoinsCache) AddCoin(op types.OutPoint, coin *types.Coin, possiblyOverwrite bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.entries[op]
	fresh := flagFresh
	if ok && existing.coin != nil && !existing.coin.Spent && !possiblyOverwrite {
		return
	}
	if ok && existing.flags&flagFresh == 0 {
		// An entry already exists on disk for this outpoint (e.g. it
		// was fetched as spent); the new coin is not "fresh" in the
		// DIRTY/FRESH sense since disk already has a record to
		// overwrite rather than to newly create.
		fresh = 0
	}

	c.entries[op] = &cacheEntry{coin: coin, flags: flagDirty | fresh}
	c.dirtyBytes += entrySize(coin)
}

// SpendCoin marks op's coin spent and removes it from the view,
// returning the coin as it stood immediately before the spend (the
// value disconnectBlock's undo record needs). It returns nil if the
// coin was already unknown or already spent.
func (c *CoinsCache) SpendCoin(op types.OutPoint) (*types.Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.fetch(op)
	if err != nil || e == nil || e.coin.Spent {
		return nil, err
	}

	spent := e.coin.Clone()
	if e.flags&flagFresh != 0 {
		// Never flushed to disk: just forget it.
		delete(c.entries, op)
	} else {
		e.coin = e.coin.Clone()
		e.coin.Spent = true
		e.flags |= flagDirty
	}
	return spent, nil
}

// DirtyBytes returns the approximate size of entries pending flush, the
// signal §5's "scheduled when dirty bytes exceed a threshold" flush
// policy is evaluated against.
func (c *CoinsCache) DirtyBytes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirtyBytes
}

// Flush writes every dirty entry to the backing store in a single
// atomic batch, advances the store's best-block pointer to bestBlock,
// and clears the dirty/fresh flags on success.
func (c *CoinsCache) Flush(bestBlock hash.Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	puts := make(map[types.OutPoint]*types.Coin)
	var deletes []types.OutPoint
	for op, e := range c.entries {
		if e.flags&flagDirty == 0 {
			continue
		}
		if e.coin.Spent {
			deletes = append(deletes, op)
		} else {
			puts[op] = e.coin
		}
	}

	if err := c.store.BatchWrite(puts, deletes, bestBlock); err != nil {
		return err
	}

	for op, e := range c.entries {
		if e.coin.Spent {
			delete(c.entries, op)
			continue
		}
		e.flags = 0
	}
	c.dirtyBytes = 0
	return nil
}

// overlayEntry records, for an outpoint the UtxoViewpoint has touched,
// the coin it held before the first mutation and whether a spend was
// staged for it. Commit and Discard do not read it.
type overlayEntry struct {
	prev    *types.Coin // nil if the outpoint had no entry before
	hadPrev bool
	spend   bool // true if this overlay entry represents a spend
}

// UtxoViewpoint is the top, per-validation-attempt layer of the UTXO
// view: a transactional overlay on top of a CoinsCache that a single
// connect-block or mempool-admission attempt mutates freely, and either
// Commits into the cache or Discards without ever touching it, per
// §4.5/§5's "transactional overlay (speculative application/rollback)".
type UtxoViewpoint struct {
	cache   *CoinsCache
	overlay map[types.OutPoint]*types.Coin
	log     map[types.OutPoint]*overlayEntry
}

// NewUtxoViewpoint returns a view overlaying cache.
func NewUtxoViewpoint(cache *CoinsCache) *UtxoViewpoint {
	return &UtxoViewpoint{
		cache:   cache,
		overlay: make(map[types.OutPoint]*types.Coin),
		log:     make(map[types.OutPoint]*overlayEntry),
	}
}

// GetCoin returns the coin for op as seen by this view: the overlay's
// pending mutation if any, otherwise the underlying cache's value.
func (v *UtxoViewpoint) GetCoin(op types.OutPoint) (*types.Coin, error) {
	if c, ok := v.overlay[op]; ok {
		if c == nil || c.Spent {
			return nil, nil
		}
		return c, nil
	}
	return v.cache.GetCoin(op)
}

// recordPrev saves the pre-mutation state of op in the view's log the
// first time it is touched in this view.
func (v *UtxoViewpoint) recordPrev(op types.OutPoint) error {
	if _, seen := v.log[op]; seen {
		return nil
	}
	prev, err := v.GetCoin(op)
	if err != nil {
		return err
	}
	v.log[op] = &overlayEntry{prev: prev, hadPrev: prev != nil}
	return nil
}

// AddCoin stages a new coin for op in the overlay.
func (v *UtxoViewpoint) AddCoin(op types.OutPoint, coin *types.Coin) error {
	if err := v.recordPrev(op); err != nil {
		return err
	}
	v.overlay[op] = coin
	return nil
}

// SpendCoin stages op as spent in the overlay and returns the coin it
// spent (for undo-record construction), or nil if op was already
// unavailable.
func (v *UtxoViewpoint) SpendCoin(op types.OutPoint) (*types.Coin, error) {
	coin, err := v.GetCoin(op)
	if err != nil || coin == nil {
		return nil, err
	}
	if err := v.recordPrev(op); err != nil {
		return nil, err
	}
	spent := coin.Clone()
	spentMarker := coin.Clone()
	spentMarker.Spent = true
	v.overlay[op] = spentMarker
	v.log[op].spend = true
	return spent, nil
}

// Commit applies every staged mutation to the underlying cache. Once
// committed, the view's own bookkeeping is cleared; it may continue to
// be used to stage a further batch of mutations against the now-updated
// cache.
func (v *UtxoViewpoint) Commit() {
	for op, coin := range v.overlay {
		if coin == nil || coin.Spent {
			v.cache.SpendCoin(op)
			continue
		}
		v.cache.AddCoin(op, coin, true)
	}
	v.overlay = make(map[types.OutPoint]*types.Coin)
	v.log = make(map[types.OutPoint]*overlayEntry)
}

// Discard drops every staged mutation without touching the underlying
// cache, the rollback half of §4.5's speculative-application contract.
func (v *UtxoViewpoint) Discard() {
	v.overlay = make(map[types.OutPoint]*types.Coin)
	v.log = make(map[types.OutPoint]*overlayEntry)
}
