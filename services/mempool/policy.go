// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/baby636-sketch/Membercoin/core/types"
)

// maxStandardTxSize bounds the serialized size of a transaction admission
// will consider standard.
const maxStandardTxSize = 100000

// calcMinRequiredFee returns the minimum fee, in satoshis, a transaction of
// serializedSize bytes must pay at the given per-kB rate.
func calcMinRequiredFee(serializedSize int, feePerKB int64) int64 {
	fee := int64(serializedSize) * feePerKB / 1000
	if fee == 0 && feePerKB > 0 {
		fee = feePerKB
	}
	return fee
}

// isDust reports whether out is dust at the given relay fee rate: its value
// is less than three times the fee, at that rate, for relaying the output
// together with a typical input that later spends it.
func isDust(out *types.TxOut, minRelayTxFeePerKB int64) bool {
	if out.IsUnspendable() {
		return false
	}
	// 148 bytes: the worst-case size of a single P2PKH spending input
	// (outpoint + sequence + a compact DER signature + pubkey push),
	// plus the output's own serialized size.
	totalSize := out.SerializeSize() + 148
	return out.Value*1000/(3*int64(totalSize)) < minRelayTxFeePerKB
}

// checkTransactionStandard applies the per-output policy checks: size
// ceiling, dust, and OP_RETURN payload size. It does not duplicate anything
// CheckBasicSanity already enforces.
func checkTransactionStandard(tx *types.Transaction, minRelayTxFeePerKB int64, maxOpReturnSize int) error {
	size := tx.SerializeSize()
	if size > maxStandardTxSize {
		return txRuleError(RejectNonstandard,
			fmt.Sprintf("transaction size of %d is larger than max allowed size of %d", size, maxStandardTxSize))
	}

	for i, out := range tx.TxOut {
		if out.IsUnspendable() {
			if len(out.PkScript)-1 > maxOpReturnSize {
				return txRuleError(RejectNonstandard,
					fmt.Sprintf("transaction output %d: OP_RETURN payload of %d bytes exceeds max of %d",
						i, len(out.PkScript)-1, maxOpReturnSize))
			}
			continue
		}
		if isDust(out, minRelayTxFeePerKB) {
			return txRuleError(RejectDust,
				fmt.Sprintf("transaction output %d: payment of %d is dust", i, out.Value))
		}
	}
	return nil
}

// ancestorStats summarizes the connected package above (ancestors) or
// below (descendants) a pool entry. Descendant summaries are adjusted as
// transactions enter and leave the pool; an ancestor summary is computed
// by ancestorStatsLocked's walk over in-pool parents at admission.
type ancestorStats struct {
	count int
	bytes int64
	fees  int64
}
