// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import "github.com/baby636-sketch/Membercoin/core/blockchain"

// ShutdownSignal is watched by Node.WaitForShutdown; it is satisfied by a
// context.Context, an os/signal channel wrapper, or anything else the
// caller wants to use to request a graceful stop.
type ShutdownSignal interface {
	Done() <-chan struct{}
}

// RejectionKind classifies why submit_block or submit_transaction refused
// an item, into the three buckets the error handling taxonomy calls out:
// malformed input, a policy rejection a peer isn't banned over, and a
// consensus rejection a peer is.
type RejectionKind int

const (
	// RejectionMalformed is a decoding failure: truncated or oversize
	// bytes that never became a well-formed block/transaction.
	RejectionMalformed RejectionKind = iota
	// RejectionPolicy is a non-consensus admission refusal (mempool
	// policy, orphan, insufficient fee).
	RejectionPolicy
	// RejectionConsensus is a rule violation: bad PoW, bad merkle root,
	// invalid script, double-spend in block, bad coinbase sum.
	RejectionConsensus
)

func (k RejectionKind) String() string {
	switch k {
	case RejectionPolicy:
		return "policy"
	case RejectionConsensus:
		return "consensus"
	default:
		return "malformed"
	}
}

// Rejection is the boundary value submit_block/submit_transaction return
// in place of a raw error, carrying enough for the network layer to decide
// whether to ban the peer that sent the offending bytes.
type Rejection struct {
	Kind     RejectionKind
	Detail   string
	BanScore int
}

func (r Rejection) Error() string { return r.Detail }

// classifyBlockError turns a Chain.ProcessBlock error into a Rejection,
// banning the sending peer outright for any consensus violation and not at
// all for a merely-unconnectable (orphan) or duplicate block.
func classifyBlockError(err error) Rejection {
	rerr, ok := err.(blockchain.RuleError)
	if !ok {
		return Rejection{Kind: RejectionMalformed, Detail: err.Error(), BanScore: 100}
	}
	switch rerr.ErrorCode {
	case blockchain.ErrDuplicateBlock, blockchain.ErrMissingParent:
		return Rejection{Kind: RejectionPolicy, Detail: rerr.Error()}
	default:
		return Rejection{Kind: RejectionConsensus, Detail: rerr.Error(), BanScore: 100}
	}
}
