// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "math/big"

// lockTimeThreshold is the boundary between a lock-time interpreted as a
// block height (below) and one interpreted as a Unix timestamp (above
// or equal), mirrored from the field it checks on the transaction.
const lockTimeThreshold = 500000000

// sequenceLockTimeDisabled marks a relative lock-time as not applying to
// a given input; the high bit of TxIn.Sequence.
const sequenceLockTimeDisabled = 1 << 31

// sequenceLockTimeIsSeconds marks a relative lock-time as expressed in
// units of 512 seconds rather than blocks.
const sequenceLockTimeIsSeconds = 1 << 22

// sequenceLockTimeMask masks the relative lock-time value out of a
// sequence number, once the disable and units bits are accounted for.
const sequenceLockTimeMask = 0x0000ffff

// execCheckLockTimeVerify implements OP_CHECKLOCKTIMEVERIFY: peek the
// top stack value and require that it be of the same kind (height or
// timestamp) as, and no later than, the transaction's own lock-time, and
// that the spending input did not opt out via a final sequence number.
func (e *Engine) execCheckLockTimeVerify(st *stack) error {
	top, err := st.PeekByteArray(0)
	if err != nil {
		return err
	}
	if len(top) > 5 {
		return scriptError("OP_CHECKLOCKTIMEVERIFY operand exceeds 5 bytes")
	}
	lockTime := scriptNumFromBytes(top)
	if lockTime.Sign() < 0 {
		return scriptError("OP_CHECKLOCKTIMEVERIFY negative operand")
	}

	txLockTime := big.NewInt(int64(e.tx.LockTime))
	sameKind := (lockTime.Int64() < lockTimeThreshold) == (txLockTime.Int64() < lockTimeThreshold)
	if !sameKind {
		return scriptError("OP_CHECKLOCKTIMEVERIFY operand kind mismatch")
	}
	if lockTime.Cmp(txLockTime) > 0 {
		return scriptError("OP_CHECKLOCKTIMEVERIFY operand exceeds transaction lock-time")
	}
	if e.tx.TxIn[e.txIdx].Sequence == 0xffffffff {
		return scriptError("OP_CHECKLOCKTIMEVERIFY on a final input")
	}
	return nil
}

// execCheckSequenceVerify implements OP_CHECKSEQUENCEVERIFY: peek the
// top stack value and require that the spending input's relative
// lock-time (same units: blocks or 512-second intervals) be at least as
// large.
func (e *Engine) execCheckSequenceVerify(st *stack) error {
	top, err := st.PeekByteArray(0)
	if err != nil {
		return err
	}
	if len(top) > 5 {
		return scriptError("OP_CHECKSEQUENCEVERIFY operand exceeds 5 bytes")
	}
	operand := scriptNumFromBytes(top)
	if operand.Sign() < 0 {
		return scriptError("OP_CHECKSEQUENCEVERIFY negative operand")
	}
	operandSeq := uint32(operand.Int64())

	if operandSeq&sequenceLockTimeDisabled != 0 {
		return nil
	}

	txSeq := e.tx.TxIn[e.txIdx].Sequence
	if e.tx.Version < 2 {
		return scriptError("OP_CHECKSEQUENCEVERIFY requires transaction version 2 or later")
	}
	if txSeq&sequenceLockTimeDisabled != 0 {
		return scriptError("OP_CHECKSEQUENCEVERIFY on an input with relative lock-time disabled")
	}
	if (operandSeq&sequenceLockTimeIsSeconds) != (txSeq & sequenceLockTimeIsSeconds) {
		return scriptError("OP_CHECKSEQUENCEVERIFY operand unit mismatch")
	}
	if operandSeq&sequenceLockTimeMask > txSeq&sequenceLockTimeMask {
		return scriptError("OP_CHECKSEQUENCEVERIFY operand exceeds input relative lock-time")
	}
	return nil
}
