// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import "errors"

// Structural sanity errors for CheckBasicSanity. These are distinct from
// the contextual RuleError values raised by core/blockchain, which need
// the chain state to evaluate.
var (
	errNoTxInputs           = errors.New("transaction has no inputs")
	errNoTxOutputs          = errors.New("transaction has no outputs")
	errTxTooSmall           = errors.New("serialized transaction is too small")
	errInvalidOutputValue   = errors.New("transaction output value out of range")
	errTotalOutputOverflow  = errors.New("total value of all transaction outputs overflows")
	errDuplicateTxInputs    = errors.New("transaction contains duplicate inputs")
	errBadTxInput           = errors.New("transaction input refers to the null outpoint")
	errBadCoinbaseScriptLen = errors.New("coinbase signature script length out of range")
)
