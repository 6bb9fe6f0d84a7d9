// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/pow"
	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/engine/txscript"
	"github.com/baby636-sketch/Membercoin/params"
)

// maxTimeOffset bounds how far into the future, relative to the wall
// clock, a block's timestamp may claim to be.
const maxTimeOffset = 2 * time.Hour

// WallClock supplies the current time to the validation engine; tests
// substitute a fixed or scripted implementation instead of wall time.
type WallClock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// checkBlockHeaderSanity performs the context-free checks of §4.7's
// check_block_header: a bits field that is neither negative nor
// overflowing, proof of work, and not-too-far-in-the-future.
func checkBlockHeaderSanity(header *types.BlockHeader, clock WallClock) error {
	if pow.IsNegativeOrOverflow(header.Bits) {
		return ruleError(ErrHighHash, "block target difficulty is negative or overflows")
	}
	blockHash := header.BlockHash()
	if !pow.CheckProofOfWork(&blockHash, header.Bits) {
		return ruleError(ErrHighHash,
			fmt.Sprintf("block hash %v is higher than expected max of target %x", blockHash, header.Bits))
	}

	maxTimestamp := uint32(clock.Now().Add(maxTimeOffset).Unix())
	if header.Timestamp > maxTimestamp {
		return ruleError(ErrTimeTooNew,
			fmt.Sprintf("block timestamp of %v is too far in the future", header.Timestamp))
	}

	return nil
}

// contextualCheckHeader performs §4.7's contextual_check_header: the
// timestamp must exceed the median of the previous 11 blocks and bits
// must match the difficulty this chain's retarget rule computes for the
// new header's position. parent is the new header's parent node; it must
// already be in the index.
func contextualCheckHeader(header *types.BlockHeader, parent *blockNode, p *params.Params) error {
	if parent == nil {
		return ruleError(ErrMissingParent, "header's parent is not known")
	}

	medianTime := parent.calcPastMedianTime()
	if int64(header.Timestamp) <= medianTime {
		return ruleError(ErrTimeTooOld,
			fmt.Sprintf("block timestamp of %v is not after median time of %v", header.Timestamp, medianTime))
	}

	expectedBits := calcNextRequiredDifficulty(parent, int64(header.Timestamp), p)
	if header.Bits != expectedBits {
		return ruleError(ErrUnexpectedDifficulty,
			fmt.Sprintf("block difficulty of %x is not the expected value of %x", header.Bits, expectedBits))
	}

	return nil
}

// calcNextRequiredDifficulty implements a simple, fixed-window retarget:
// every SubsidyReductionInterval-independent TargetTimespan worth of
// blocks (TargetTimespan/TargetTimePerBlock of them), the target is
// rescaled by the ratio of actual to expected elapsed time, clamped by
// RetargetAdjustmentFactor in either direction. Between retarget
// boundaries, the parent's own bits carry forward unchanged.
func calcNextRequiredDifficulty(parent *blockNode, newBlockTime int64, p *params.Params) uint32 {
	blocksPerRetarget := int32(p.TargetTimespan / p.TargetTimePerBlock)
	if blocksPerRetarget < 1 {
		blocksPerRetarget = 1
	}

	nextHeight := parent.height + 1
	if nextHeight%blocksPerRetarget != 0 {
		return parent.bits
	}

	firstNode := parent.relativeAncestor(blocksPerRetarget - 1)
	if firstNode == nil {
		return parent.bits
	}

	actualTimespan := parent.timestamp - firstNode.timestamp
	adjustedTimespan := actualTimespan
	minTimespan := int64(p.TargetTimespan) / int64(time.Second) / p.RetargetAdjustmentFactor
	maxTimespan := int64(p.TargetTimespan) / int64(time.Second) * p.RetargetAdjustmentFactor
	if adjustedTimespan < minTimespan {
		adjustedTimespan = minTimespan
	} else if adjustedTimespan > maxTimespan {
		adjustedTimespan = maxTimespan
	}

	oldTarget := pow.CompactToBig(parent.bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	newTarget.Div(newTarget, big.NewInt(int64(p.TargetTimespan)/int64(time.Second)))

	powLimit := pow.CompactToBig(p.PowLimitBits)
	if newTarget.Cmp(powLimit) > 0 {
		newTarget.Set(powLimit)
	}
	return pow.BigToCompact(newTarget)
}

// checkBlockSanity performs §4.7's check_block: structural checks on the
// full block body that do not require chain context.
func checkBlockSanity(block *types.Block, p *params.Params) error {
	header := &block.Header
	if err := CheckTransactionBasicSanity(block.Transactions); err != nil {
		return err
	}

	numTx := len(block.Transactions)
	if numTx == 0 {
		return ruleError(ErrNoTransactions, "block has no transactions")
	}

	if !block.Transactions[0].IsCoinBase() {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in block is not a coinbase")
	}
	for i, tx := range block.Transactions[1:] {
		if tx.IsCoinBase() {
			return ruleError(ErrMultipleCoinbases,
				fmt.Sprintf("block contains second coinbase at index %d", i+1))
		}
	}

	root, err := block.ComputeMerkleRoot()
	if err != nil {
		return ruleError(ErrBadMerkleRoot, err.Error())
	}
	if !root.IsEqual(&header.MerkleRoot) {
		return ruleError(ErrBadMerkleRoot,
			fmt.Sprintf("block merkle root is invalid: header has %v, computed %v", header.MerkleRoot, root))
	}

	seen := make(map[hash.Hash]struct{}, numTx)
	totalSigOps := 0
	for _, tx := range block.Transactions {
		txHash, err := tx.TxHash()
		if err != nil {
			return ruleError(ErrScriptValidation, err.Error())
		}
		if _, dup := seen[txHash]; dup {
			return ruleError(ErrDuplicateTx, fmt.Sprintf("block contains duplicate transaction %v", txHash))
		}
		seen[txHash] = struct{}{}

		txSigOps := transactionSigOpCount(tx)
		if txSigOps > p.MaxSigOpsPerTx {
			return ruleError(ErrTxTooManySigOps,
				fmt.Sprintf("transaction %v exceeds per-transaction sigop limit: got %d, max %d",
					txHash, txSigOps, p.MaxSigOpsPerTx))
		}
		totalSigOps += txSigOps
	}

	blockSize := uint64(block.SerializeSize())
	if blockSize > p.MaxBlockSize {
		return ruleError(ErrBlockTooBig,
			fmt.Sprintf("serialized block is too big: got %d, max %d", blockSize, p.MaxBlockSize))
	}
	maxSigOps := params.MaxSigOpsForBlockSize(blockSize)
	if totalSigOps > maxSigOps {
		return ruleError(ErrTooManySigOps,
			fmt.Sprintf("block contains too many signature operations: got %d, max %d", totalSigOps, maxSigOps))
	}

	return nil
}

// transactionSigOpCount sums the static sigop count of a transaction's
// output scripts plus, for a non-coinbase, its input signature scripts.
// A P2SH redeem script pushed inside a signature script is not parsed,
// so its sigops are not counted here.
func transactionSigOpCount(tx *types.Transaction) int {
	count := 0
	for _, out := range tx.TxOut {
		count += txscript.GetSigOpCount(out.PkScript)
	}
	if tx.IsCoinBase() {
		return count
	}
	for _, in := range tx.TxIn {
		count += txscript.GetSigOpCount(in.SignatureScript)
	}
	return count
}

// CheckTransactionBasicSanity applies each transaction's own
// CheckBasicSanity, the context-free structural checks of §3.
func CheckTransactionBasicSanity(txs []*types.Transaction) error {
	for i, tx := range txs {
		if err := tx.CheckBasicSanity(); err != nil {
			return ruleError(ErrScriptValidation, fmt.Sprintf("transaction %d: %v", i, err))
		}
	}
	return nil
}

// checkCoinbaseHeight verifies the BIP34 rule: a coinbase's signature
// script must begin by pushing the expected block height as a minimally
// encoded script number.
func checkCoinbaseHeight(coinbase *types.Transaction, wantHeight int32) error {
	sig := coinbase.TxIn[0].SignatureScript
	encoded := serializeScriptNum(int64(wantHeight))
	if len(sig) < 1+len(encoded) {
		return ruleError(ErrBadCoinbaseHeight, "coinbase signature script too short to encode height")
	}
	if int(sig[0]) != len(encoded) {
		return ruleError(ErrBadCoinbaseHeight, "coinbase signature script does not begin with a height push")
	}
	for i, b := range encoded {
		if sig[1+i] != b {
			return ruleError(ErrBadCoinbaseHeight,
				fmt.Sprintf("coinbase height mismatch: script encodes a different value than expected height %d", wantHeight))
		}
	}
	return nil
}

// serializeScriptNum encodes n the way a script pushes a number: as the
// minimal little-endian two's-complement byte representation, with a
// high bit pushed into an extra byte when the top bit of the last byte
// would otherwise be mistaken for the sign.
func serializeScriptNum(n int64) []byte {
	if n == 0 {
		return nil
	}
	negative := n < 0
	absVal := n
	if negative {
		absVal = -n
	}

	var result []byte
	for absVal > 0 {
		result = append(result, byte(absVal&0xff))
		absVal >>= 8
	}
	if result[len(result)-1]&0x80 != 0 {
		if negative {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if negative {
		result[len(result)-1] |= 0x80
	}
	return result
}
