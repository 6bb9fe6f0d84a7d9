// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"bytes"
	"fmt"

	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/services/mempool"
)

// SubmitBlock decodes raw and runs it through the chain's validation and
// connect pipeline, reporting the resulting tip change on its own
// subscription channel rather than returning it here, since a single
// submission can move the tip through a multi-block reorg.
func (n *Node) SubmitBlock(raw []byte) error {
	block, err := types.DeserializeBlock(bytes.NewReader(raw))
	if err != nil {
		return Rejection{Kind: RejectionMalformed, Detail: fmt.Sprintf("decode block: %v", err), BanScore: 100}
	}

	before := n.chain.TipEntry()
	if err := n.chain.ProcessBlock(block); err != nil {
		return classifyBlockError(err)
	}
	after := n.chain.TipEntry()

	if before == nil || after == nil || before.Hash != after.Hash {
		n.tipFeed.Send(TipChange{Old: before, New: after})
	}
	return nil
}

// SubmitTransaction decodes raw and runs it through mempool admission.
// allowOrphan should be true for transactions relayed by a peer (which may
// legitimately race ahead of their parent) and false for anything
// originating locally (RPC, wallet), which should name a known input.
func (n *Node) SubmitTransaction(raw []byte, allowOrphan bool) error {
	tx, err := types.DeserializeTransaction(bytes.NewReader(raw))
	if err != nil {
		return Rejection{Kind: RejectionMalformed, Detail: fmt.Sprintf("decode transaction: %v", err), BanScore: 100}
	}

	_, err = n.pool.ProcessTransaction(tx, allowOrphan)
	if err == nil {
		return nil
	}

	kind := RejectionPolicy
	if mempool.RejectCodeOf(err) == mempool.RejectInvalid {
		kind = RejectionConsensus
	}
	score := 0
	if kind == RejectionConsensus {
		score = 100
	}
	return Rejection{Kind: kind, Detail: err.Error(), BanScore: score}
}
