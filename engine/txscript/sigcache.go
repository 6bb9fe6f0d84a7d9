// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"sync"

	"github.com/baby636-sketch/Membercoin/common/hash"
)

// SigCache caches the result of signature verifications keyed by
// (sighash, signature, pubkey), letting a transaction's inputs be
// re-verified (e.g. on mempool re-acceptance after a reorg) without
// repeating the elliptic-curve math.
type SigCache struct {
	mu      sync.RWMutex
	entries map[sigCacheKey]struct{}
	maxSize int
}

type sigCacheKey struct {
	sigHash hash.Hash
	sig     string
	pubKey  string
}

// NewSigCache returns a SigCache that holds at most maxEntries verified
// signatures, evicting arbitrarily once full.
func NewSigCache(maxEntries int) *SigCache {
	return &SigCache{
		entries: make(map[sigCacheKey]struct{}, maxEntries),
		maxSize: maxEntries,
	}
}

func (c *SigCache) has(sigHash hash.Hash, sig, pubKey []byte) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[sigCacheKey{sigHash, string(sig), string(pubKey)}]
	return ok
}

func (c *SigCache) add(sigHash hash.Hash, sig, pubKey []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[sigCacheKey{sigHash, string(sig), string(pubKey)}] = struct{}{}
}
