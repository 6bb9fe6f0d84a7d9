// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
)

func orphanTxSpending(prev hash.Hash, idx uint32) (*types.Transaction, hash.Hash) {
	tx := types.NewTransaction()
	tx.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: prev, Index: idx}, nil))
	tx.AddTxOut(types.NewTxOut(5000, []byte{0x51}))
	h, err := tx.TxHash()
	if err != nil {
		panic(err)
	}
	return tx, h
}

func TestOrphanPoolAddAndByPrev(t *testing.T) {
	op := newOrphanPool()
	parent := hash.Hash{0x01}
	tx, h := orphanTxSpending(parent, 0)

	op.add(tx, h, time.Unix(0, 0), 10)
	assert.True(t, op.has(h))

	deps := op.byPrev(parent)
	require.Len(t, deps, 1)
	assert.Equal(t, h, deps[0].hash)
}

func TestOrphanPoolEvictsOldestWhenFull(t *testing.T) {
	op := newOrphanPool()
	parent := hash.Hash{0x02}

	first, firstHash := orphanTxSpending(parent, 0)
	op.add(first, firstHash, time.Unix(100, 0), 1)
	assert.True(t, op.has(firstHash))

	second, secondHash := orphanTxSpending(parent, 1)
	op.add(second, secondHash, time.Unix(200, 0), 1)

	assert.False(t, op.has(firstHash))
	assert.True(t, op.has(secondHash))
}

func TestOrphanPoolRemoveClearsIndex(t *testing.T) {
	op := newOrphanPool()
	parent := hash.Hash{0x03}
	tx, h := orphanTxSpending(parent, 0)

	op.add(tx, h, time.Unix(0, 0), 10)
	op.remove(h)

	assert.False(t, op.has(h))
	assert.Empty(t, op.byPrev(parent))
}

func TestOrphanPoolExpireRemovesStaleEntries(t *testing.T) {
	op := newOrphanPool()
	parent := hash.Hash{0x04}
	tx, h := orphanTxSpending(parent, 0)

	added := time.Unix(1000, 0)
	op.add(tx, h, added, 10)

	removed := op.expire(added.Add(30*time.Minute), time.Hour)
	assert.Equal(t, 0, removed)
	assert.True(t, op.has(h))

	removed = op.expire(added.Add(2*time.Hour), time.Hour)
	assert.Equal(t, 1, removed)
	assert.False(t, op.has(h))
}
