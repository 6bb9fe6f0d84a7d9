// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"github.com/ethereum/go-ethereum/event"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/blockchain"
	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/services/mempool"
)

// TipChange is sent on tipFeed every time SubmitBlock moves the active
// tip, including reorgs (Old and New differ from a common ancestor rather
// than being parent/child).
type TipChange struct {
	Old *blockchain.BlockIndexEntry
	New *blockchain.BlockIndexEntry
}

// TxAccepted is sent on txFeed every time a transaction is newly admitted
// to the mempool.
type TxAccepted struct {
	Hash hash.Hash
	Tx   *types.Transaction
	Fee  int64
}

// DoubleSpendProof is sent on dsFeed whenever the mempool rejects a
// transaction for respending an outpoint an incumbent already holds, so an
// outer wallet/explorer layer can raise a fraud alarm.
type DoubleSpendProof struct {
	Outpoint  types.OutPoint
	Incumbent hash.Hash
	Newcomer  hash.Hash
}

// SubscribeDoubleSpendProof registers ch to receive every DoubleSpendProof
// this node's mempool reports.
func (n *Node) SubscribeDoubleSpendProof(ch chan<- DoubleSpendProof) event.Subscription {
	return n.dsFeed.Subscribe(ch)
}

// NotifyDoubleSpend implements mempool.DoubleSpendNotifier, publishing
// every rate-limited conflict notification the pool reports onto dsFeed.
func (n *Node) NotifyDoubleSpend(conflict types.OutPoint, incumbent, newcomer hash.Hash) {
	n.dsFeed.Send(DoubleSpendProof{Outpoint: conflict, Incumbent: incumbent, Newcomer: newcomer})
}

// SubscribeTipChange registers ch to receive every TipChange this node
// publishes. The returned Subscription's Unsubscribe stops delivery.
func (n *Node) SubscribeTipChange(ch chan<- TipChange) event.Subscription {
	return n.tipFeed.Subscribe(ch)
}

// SubscribeTxAccepted registers ch to receive every TxAccepted this node's
// mempool publishes.
func (n *Node) SubscribeTxAccepted(ch chan<- TxAccepted) event.Subscription {
	return n.txFeed.Subscribe(ch)
}

// bridgeMempoolEvents wires the pool's internal Subscribe callback
// mechanism to this node's own txFeed, so external subscribers never need
// to know the mempool package exists.
func (n *Node) bridgeMempoolEvents() {
	n.pool.Subscribe(func(td *mempool.TxDesc) {
		n.txFeed.Send(TxAccepted{Hash: td.Hash, Tx: td.Tx, Fee: td.Fee})
	})
}
