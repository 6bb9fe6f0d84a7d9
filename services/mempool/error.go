// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/baby636-sketch/Membercoin/core/blockchain"

// RejectCode classifies why admission refused a transaction, mirroring the
// handful of reasons a relay peer needs to distinguish (duplicate vs.
// insufficient fee vs. consensus-invalid) without pulling in a wire message
// package this pool has no other reason to depend on.
type RejectCode int

const (
	RejectInvalid RejectCode = iota
	RejectDuplicate
	RejectNonstandard
	RejectDust
	RejectInsufficientFee
	RejectOrphan
)

func (c RejectCode) String() string {
	switch c {
	case RejectDuplicate:
		return "duplicate"
	case RejectNonstandard:
		return "nonstandard"
	case RejectDust:
		return "dust"
	case RejectInsufficientFee:
		return "insufficient fee"
	case RejectOrphan:
		return "orphan"
	default:
		return "invalid"
	}
}

// RuleError identifies a rejection of a transaction during admission. The
// caller can access Err to recover the specific underlying cause, which is
// either a TxRuleError (policy) or a blockchain.RuleError (consensus).
type RuleError struct {
	Err error
}

func (e RuleError) Error() string {
	if e.Err == nil {
		return "<nil>"
	}
	return e.Err.Error()
}

// TxRuleError identifies a policy-level (not consensus) rejection.
type TxRuleError struct {
	RejectCode  RejectCode
	Description string
}

func (e TxRuleError) Error() string { return e.Description }

func txRuleError(c RejectCode, desc string) RuleError {
	return RuleError{Err: TxRuleError{RejectCode: c, Description: desc}}
}

func chainRuleError(chainErr blockchain.RuleError) RuleError {
	return RuleError{Err: chainErr}
}

// RejectCodeOf extracts a RejectCode from err, defaulting to RejectInvalid
// for anything it doesn't recognize.
func RejectCodeOf(err error) RejectCode {
	if rerr, ok := err.(RuleError); ok {
		err = rerr.Err
	}
	switch e := err.(type) {
	case blockchain.RuleError:
		if e.ErrorCode == blockchain.ErrDuplicateBlock {
			return RejectDuplicate
		}
		return RejectInvalid
	case TxRuleError:
		return e.RejectCode
	default:
		return RejectInvalid
	}
}
