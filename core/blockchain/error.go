// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// ErrorCode identifies a kind of consensus rule violation.
type ErrorCode int

const (
	// ErrDuplicateBlock indicates a block with the same hash has already
	// been processed.
	ErrDuplicateBlock ErrorCode = iota

	// ErrMissingParent indicates the block's parent is not known; it is
	// an orphan.
	ErrMissingParent

	// ErrBlockTooBig indicates the block exceeds the maximum allowed
	// serialized size.
	ErrBlockTooBig

	// ErrBadMerkleRoot indicates the computed merkle root does not match
	// the root carried in the header.
	ErrBadMerkleRoot

	// ErrNoTransactions indicates the block has no transactions.
	ErrNoTransactions

	// ErrFirstTxNotCoinbase indicates the first transaction is not a
	// coinbase.
	ErrFirstTxNotCoinbase

	// ErrMultipleCoinbases indicates more than one coinbase transaction
	// is present.
	ErrMultipleCoinbases

	// ErrDuplicateTx indicates two transactions in the block share a
	// txid.
	ErrDuplicateTx

	// ErrTooManySigOps indicates the block exceeds its sigop budget.
	ErrTooManySigOps

	// ErrTooManySigChecks indicates the block exceeds its sigcheck
	// budget.
	ErrTooManySigChecks

	// ErrInvalidTime indicates the block's timestamp has sub-second
	// precision or is otherwise malformed.
	ErrInvalidTime

	// ErrTimeTooOld indicates the block's timestamp is not after the
	// median time of the preceding 11 blocks.
	ErrTimeTooOld

	// ErrTimeTooNew indicates the block's timestamp is too far in the
	// future relative to the wall clock.
	ErrTimeTooNew

	// ErrUnexpectedDifficulty indicates the block's bits field does not
	// match the value the retarget algorithm computed.
	ErrUnexpectedDifficulty

	// ErrHighHash indicates the block's hash exceeds the target implied
	// by its bits field: the proof-of-work check failed.
	ErrHighHash

	// ErrBadCoinbaseHeight indicates the coinbase script does not encode
	// the expected block height.
	ErrBadCoinbaseHeight

	// ErrImmatureSpend indicates a transaction attempted to spend a
	// coinbase output before it reached COINBASE_MATURITY confirmations.
	ErrImmatureSpend

	// ErrMissingTxOut indicates a transaction spends an outpoint that is
	// not in the UTXO set.
	ErrMissingTxOut

	// ErrSpentTxOut indicates a transaction attempted to spend an output
	// that has already been spent within the view.
	ErrSpentTxOut

	// ErrDoubleSpend indicates two transactions in the same block spend
	// the same outpoint.
	ErrDoubleSpend

	// ErrBadFees indicates the block's total output value, including
	// interest accrual, exceeds its total input value plus subsidy.
	ErrBadFees

	// ErrBadCoinbaseValue indicates the coinbase pays out more than the
	// subsidy plus collected fees.
	ErrBadCoinbaseValue

	// ErrScriptValidation indicates a script failed to execute or did
	// not leave a true value on the stack.
	ErrScriptValidation

	// ErrPrevBlockNotBest indicates an attempt to connect a block whose
	// parent is not the current tip.
	ErrPrevBlockNotBest

	// ErrTxTooManySigOps indicates a single transaction exceeds
	// params.MaxSigOpsPerTx, independent of the block-wide budget.
	ErrTxTooManySigOps

	// ErrTxTooManySigChecks indicates a single transaction exceeds
	// params.MaxSigChecksPerTx, independent of the block-wide budget.
	ErrTxTooManySigChecks
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:        "ErrDuplicateBlock",
	ErrMissingParent:         "ErrMissingParent",
	ErrBlockTooBig:           "ErrBlockTooBig",
	ErrBadMerkleRoot:         "ErrBadMerkleRoot",
	ErrNoTransactions:        "ErrNoTransactions",
	ErrFirstTxNotCoinbase:    "ErrFirstTxNotCoinbase",
	ErrMultipleCoinbases:     "ErrMultipleCoinbases",
	ErrDuplicateTx:           "ErrDuplicateTx",
	ErrTooManySigOps:         "ErrTooManySigOps",
	ErrTooManySigChecks:      "ErrTooManySigChecks",
	ErrInvalidTime:           "ErrInvalidTime",
	ErrTimeTooOld:            "ErrTimeTooOld",
	ErrTimeTooNew:            "ErrTimeTooNew",
	ErrUnexpectedDifficulty:  "ErrUnexpectedDifficulty",
	ErrHighHash:              "ErrHighHash",
	ErrBadCoinbaseHeight:     "ErrBadCoinbaseHeight",
	ErrImmatureSpend:         "ErrImmatureSpend",
	ErrMissingTxOut:          "ErrMissingTxOut",
	ErrSpentTxOut:            "ErrSpentTxOut",
	ErrDoubleSpend:           "ErrDoubleSpend",
	ErrBadFees:               "ErrBadFees",
	ErrBadCoinbaseValue:      "ErrBadCoinbaseValue",
	ErrScriptValidation:      "ErrScriptValidation",
	ErrPrevBlockNotBest:      "ErrPrevBlockNotBest",
	ErrTxTooManySigOps:       "ErrTxTooManySigOps",
	ErrTxTooManySigChecks:    "ErrTxTooManySigChecks",
}

func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// RuleError identifies a consensus rule violation encountered while
// validating a block or transaction. A block that fails with a RuleError
// is permanently marked failed; its descendants are marked
// failed-ancestor.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

func (e RuleError) Error() string { return e.Description }

func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// AssertError indicates an internal consistency failure that should never
// happen given a correct caller; it is not a consensus rejection.
type AssertError string

func (e AssertError) Error() string { return "assertion failed: " + string(e) }
