// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "time"

// expirySweepInterval is how often expiryLoop walks the pool and the
// orphan pool looking for entries past their TTL.
const expirySweepInterval = 10 * time.Minute

// expiryLoop periodically sweeps the pool and the orphan pool: anything
// older than its configured TTL, and anything that depends on it, is
// dropped.
func (mp *TxPool) expiryLoop() {
	defer mp.wg.Done()

	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-mp.quit:
			return
		case <-ticker.C:
			mp.expireOrphans()
			mp.expireTransactions()
		}
	}
}

func (mp *TxPool) expireOrphans() {
	if mp.cfg.Policy.OrphanExpiry <= 0 {
		return
	}
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	mp.orphans.expire(mp.cfg.Clock.Now(), mp.cfg.Policy.OrphanExpiry)
}

func (mp *TxPool) expireTransactions() {
	if mp.cfg.Policy.MempoolExpiry <= 0 {
		return
	}
	now := mp.cfg.Clock.Now()

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for h, td := range mp.pool {
		if _, ok := mp.pool[h]; !ok {
			continue // removed earlier in this sweep as a descendant
		}
		if now.Sub(td.Added) > mp.cfg.Policy.MempoolExpiry {
			mp.removeLocked(h, true)
		}
	}
}
