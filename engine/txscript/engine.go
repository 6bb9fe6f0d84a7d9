// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha1"
	"crypto/sha256"
	"math/big"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
	"golang.org/x/crypto/ripemd160"
)

// maxOpsPerScript is the maximum number of non-push opcodes a script may
// execute, per §4.4.
const maxOpsPerScript = 201

// maxScriptSize is the maximum length, in bytes, of a script subject to
// execution (sigScript, pkScript, or a P2SH redeem script).
const maxScriptSize = 10000

// maxStackDepth bounds the combined size of the primary and alternate
// stacks.
const maxStackDepth = 1000

// ScriptFlags enable or disable optional verification rules.
type ScriptFlags uint32

const (
	// ScriptVerifyCleanStack requires the stack to contain exactly one
	// element (the success boolean) at the end of execution.
	ScriptVerifyCleanStack ScriptFlags = 1 << iota
)

// Engine executes the sigScript/pkScript pair (and, for P2SH outputs,
// the redeem script) for a single transaction input and reports whether
// it authorizes the spend, together with the sigcheck count accumulated
// by the CHECKSIG-family opcodes it executed.
type Engine struct {
	tx       *types.Transaction
	txIdx    int
	amount   int64
	flags    ScriptFlags
	sigCache *SigCache

	sigScript []byte
	pkScript  []byte

	// currentScript is the script currently executing (sigScript,
	// pkScript, or the P2SH redeem script), used as the sighash
	// sub-script by CHECKSIG-family opcodes.
	currentScript []byte

	sigChecks int
}

// NewEngine constructs an Engine to verify input txIdx of tx against
// pkScript, where amount is the interest-adjusted value of the coin
// being spent (used by the FORKID sighash).
func NewEngine(pkScript []byte, tx *types.Transaction, txIdx int, flags ScriptFlags, amount int64, sigCache *SigCache) (*Engine, error) {
	if txIdx < 0 || txIdx >= len(tx.TxIn) {
		return nil, scriptError("input index out of range")
	}
	if len(pkScript) > maxScriptSize {
		return nil, scriptError("pkScript exceeds maximum size")
	}
	sigScript := tx.TxIn[txIdx].SignatureScript
	if len(sigScript) > maxScriptSize {
		return nil, scriptError("sigScript exceeds maximum size")
	}
	return &Engine{
		tx:        tx,
		txIdx:     txIdx,
		amount:    amount,
		flags:     flags,
		sigCache:  sigCache,
		sigScript: sigScript,
		pkScript:  pkScript,
	}, nil
}

// Execute runs the sigScript, the pkScript, and (for P2SH outputs) the
// redeem script, per §4.4's return contract: it never panics on
// malformed or failing scripts, instead returning ok=false and an error
// tag.
func (e *Engine) Execute() (ok bool, sigChecks int, err error) {
	mainStack := &stack{}
	if err := e.run(e.sigScript, mainStack); err != nil {
		return false, e.sigChecks, err
	}

	isP2SH := IsPayToScriptHash(e.pkScript)
	var p2shStack *stack
	if isP2SH {
		p2shStack = mainStack.clone()
	}

	if err := e.run(e.pkScript, mainStack); err != nil {
		return false, e.sigChecks, err
	}

	success, err := finalStackState(mainStack)
	if err != nil || !success {
		return false, e.sigChecks, err
	}

	if !isP2SH {
		if e.flags&ScriptVerifyCleanStack != 0 && mainStack.Depth() != 1 {
			return false, e.sigChecks, scriptError("stack not clean at end of execution")
		}
		return true, e.sigChecks, nil
	}

	if p2shStack.Depth() == 0 {
		return false, e.sigChecks, scriptError("p2sh output has no redeem script on the stack")
	}
	redeemScript, err := p2shStack.PopByteArray()
	if err != nil {
		return false, e.sigChecks, err
	}
	if err := e.run(redeemScript, p2shStack); err != nil {
		return false, e.sigChecks, err
	}
	success, err = finalStackState(p2shStack)
	if err != nil || !success {
		return false, e.sigChecks, err
	}
	if e.flags&ScriptVerifyCleanStack != 0 && p2shStack.Depth() != 1 {
		return false, e.sigChecks, scriptError("p2sh stack not clean at end of execution")
	}
	return true, e.sigChecks, nil
}

func finalStackState(s *stack) (bool, error) {
	if s.Depth() < 1 {
		return false, scriptError("script finished with an empty stack")
	}
	top, err := s.PeekByteArray(0)
	if err != nil {
		return false, err
	}
	return asBool(top), nil
}

func (s *stack) clone() *stack {
	cp := make([][]byte, len(s.elements))
	for i, e := range s.elements {
		b := make([]byte, len(e))
		copy(b, e)
		cp[i] = b
	}
	return &stack{elements: cp}
}

// run executes a single script (sigScript, pkScript, or redeem script)
// against the given stack, updating e.sigChecks as CHECKSIG-family
// opcodes execute, whether or not their signature checks pass.
func (e *Engine) run(script []byte, mainStack *stack) error {
	if len(script) > maxScriptSize {
		return scriptError("script exceeds maximum size")
	}
	ops, err := parseScript(script)
	if err != nil {
		return err
	}
	e.currentScript = script

	altStack := &stack{}
	var condStack []bool // true = executing, used for IF/ELSE branches
	nonPushOps := 0

	executing := func() bool {
		for _, c := range condStack {
			if !c {
				return false
			}
		}
		return true
	}

	for _, op := range ops {
		if op.alwaysIllegal() {
			return scriptError("opcode is always illegal")
		}

		if !op.isConditional() && !executing() {
			continue
		}

		if op.opcode > OP_16 || op.opcode == OP_RESERVED {
			nonPushOps++
			if nonPushOps > maxOpsPerScript {
				return scriptError("script exceeds maximum operation count")
			}
		}

		if mainStack.Depth()+altStack.Depth() > maxStackDepth {
			return scriptError("stack size exceeds maximum")
		}

		switch {
		case op.data != nil || op.opcode == OP_0:
			if !executing() {
				continue
			}
			if op.opcode == OP_0 {
				if err := mainStack.PushByteArray(nil); err != nil {
					return err
				}
			} else {
				if err := mainStack.PushByteArray(op.data); err != nil {
					return err
				}
			}
		case IsSmallInt(op.opcode) && op.opcode != OP_0:
			if err := mainStack.PushInt(big.NewInt(int64(AsSmallInt(op.opcode)))); err != nil {
				return err
			}
		case op.opcode == OP_1NEGATE:
			if err := mainStack.PushInt(big.NewInt(-1)); err != nil {
				return err
			}
		default:
			if err := e.execOpcode(op.opcode, mainStack, altStack, &condStack); err != nil {
				return err
			}
		}
	}

	if len(condStack) != 0 {
		return scriptError("unbalanced conditional at end of script")
	}
	return nil
}

// execOpcode dispatches every opcode other than data pushes and small
// integers, which run handles inline.
func (e *Engine) execOpcode(op byte, st, alt *stack, condStack *[]bool) error {
	switch op {
	case OP_NOP, OP_CODESEPARATOR, OP_RESERVED:
		return nil

	case OP_IF, OP_NOTIF:
		cond := false
		if executingNow(*condStack) {
			v, err := st.PopBool()
			if err != nil {
				return err
			}
			cond = v
			if op == OP_NOTIF {
				cond = !cond
			}
		}
		*condStack = append(*condStack, cond)
		return nil

	case OP_ELSE:
		if len(*condStack) == 0 {
			return scriptError("OP_ELSE without matching OP_IF")
		}
		top := len(*condStack) - 1
		(*condStack)[top] = !(*condStack)[top]
		return nil

	case OP_ENDIF:
		if len(*condStack) == 0 {
			return scriptError("OP_ENDIF without matching OP_IF")
		}
		*condStack = (*condStack)[:len(*condStack)-1]
		return nil

	case OP_VERIFY:
		v, err := st.PopBool()
		if err != nil {
			return err
		}
		if !v {
			return scriptError("OP_VERIFY failed")
		}
		return nil

	case OP_RETURN:
		return scriptError("OP_RETURN executed")

	case OP_TOALTSTACK:
		v, err := st.PopByteArray()
		if err != nil {
			return err
		}
		return alt.PushByteArray(v)

	case OP_FROMALTSTACK:
		v, err := alt.PopByteArray()
		if err != nil {
			return err
		}
		return st.PushByteArray(v)

	case OP_2DROP:
		if _, err := st.PopByteArray(); err != nil {
			return err
		}
		_, err := st.PopByteArray()
		return err

	case OP_2DUP:
		return st.DupN(2)
	case OP_3DUP:
		return st.DupN(3)
	case OP_DUP:
		return st.DupN(1)
	case OP_IFDUP:
		v, err := st.PeekByteArray(0)
		if err != nil {
			return err
		}
		if asBool(v) {
			return st.DupN(1)
		}
		return nil
	case OP_DEPTH:
		return st.PushInt(big.NewInt(int64(st.Depth())))
	case OP_DROP:
		_, err := st.PopByteArray()
		return err
	case OP_NIP:
		return st.NipN(1)
	case OP_OVER:
		return st.OverN(1)
	case OP_PICK, OP_ROLL:
		n, err := st.PopInt()
		if err != nil {
			return err
		}
		return st.PickRoll(int(n.Int64()), op == OP_ROLL)
	case OP_ROT:
		return st.RotN(1)
	case OP_SWAP:
		return st.SwapN(1)
	case OP_TUCK:
		return st.Tuck()

	case OP_SIZE:
		v, err := st.PeekByteArray(0)
		if err != nil {
			return err
		}
		return st.PushInt(big.NewInt(int64(len(v))))

	case OP_EQUAL, OP_EQUALVERIFY:
		a, err := st.PopByteArray()
		if err != nil {
			return err
		}
		b, err := st.PopByteArray()
		if err != nil {
			return err
		}
		eq := bytesEqual(a, b)
		if op == OP_EQUALVERIFY {
			if !eq {
				return scriptError("OP_EQUALVERIFY failed")
			}
			return nil
		}
		st.PushBool(eq)
		return nil

	case OP_1ADD, OP_1SUB, OP_NEGATE, OP_ABS, OP_NOT, OP_0NOTEQUAL:
		return e.execUnaryNumeric(op, st)

	case OP_ADD, OP_SUB, OP_BOOLAND, OP_BOOLOR, OP_NUMEQUAL, OP_NUMEQUALVERIFY,
		OP_NUMNOTEQUAL, OP_LESSTHAN, OP_GREATERTHAN, OP_LESSTHANOREQUAL,
		OP_GREATERTHANOREQUAL, OP_MIN, OP_MAX:
		return e.execBinaryNumeric(op, st)

	case OP_WITHIN:
		max, err := st.PopInt()
		if err != nil {
			return err
		}
		min, err := st.PopInt()
		if err != nil {
			return err
		}
		x, err := st.PopInt()
		if err != nil {
			return err
		}
		st.PushBool(x.Cmp(min) >= 0 && x.Cmp(max) < 0)
		return nil

	case OP_RIPEMD160:
		v, err := st.PopByteArray()
		if err != nil {
			return err
		}
		sum := ripemd160.New()
		sum.Write(v)
		return st.PushByteArray(sum.Sum(nil))

	case OP_SHA1:
		v, err := st.PopByteArray()
		if err != nil {
			return err
		}
		sum := sha1.Sum(v)
		return st.PushByteArray(sum[:])

	case OP_SHA256:
		v, err := st.PopByteArray()
		if err != nil {
			return err
		}
		sum := sha256.Sum256(v)
		return st.PushByteArray(sum[:])

	case OP_HASH160:
		v, err := st.PopByteArray()
		if err != nil {
			return err
		}
		return st.PushByteArray(hash160(v))

	case OP_HASH256:
		v, err := st.PopByteArray()
		if err != nil {
			return err
		}
		h := hash.DoubleSHA256(v)
		return st.PushByteArray(h.Bytes())

	case OP_CHECKSIG, OP_CHECKSIGVERIFY:
		return e.execCheckSig(op, st)

	case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
		return e.execCheckMultiSig(op, st)

	case OP_CHECKDATASIG, OP_CHECKDATASIGVERIFY:
		return e.execCheckDataSig(op, st)

	case OP_CHECKLOCKTIMEVERIFY:
		return e.execCheckLockTimeVerify(st)

	case OP_CHECKSEQUENCEVERIFY:
		return e.execCheckSequenceVerify(st)

	default:
		return scriptError("unrecognized opcode")
	}
}

func executingNow(condStack []bool) bool {
	for _, c := range condStack {
		if !c {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hash160(b []byte) []byte {
	sha := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(sha[:])
	return r.Sum(nil)
}

func (e *Engine) execUnaryNumeric(op byte, st *stack) error {
	n, err := st.PopInt()
	if err != nil {
		return err
	}
	switch op {
	case OP_1ADD:
		return st.PushInt(new(big.Int).Add(n, big.NewInt(1)))
	case OP_1SUB:
		return st.PushInt(new(big.Int).Sub(n, big.NewInt(1)))
	case OP_NEGATE:
		return st.PushInt(new(big.Int).Neg(n))
	case OP_ABS:
		return st.PushInt(new(big.Int).Abs(n))
	case OP_NOT:
		st.PushBool(n.Sign() == 0)
		return nil
	case OP_0NOTEQUAL:
		st.PushBool(n.Sign() != 0)
		return nil
	}
	return scriptError("unreachable unary numeric opcode")
}

func (e *Engine) execBinaryNumeric(op byte, st *stack) error {
	b, err := st.PopInt()
	if err != nil {
		return err
	}
	a, err := st.PopInt()
	if err != nil {
		return err
	}
	switch op {
	case OP_ADD:
		return st.PushInt(new(big.Int).Add(a, b))
	case OP_SUB:
		return st.PushInt(new(big.Int).Sub(a, b))
	case OP_BOOLAND:
		st.PushBool(a.Sign() != 0 && b.Sign() != 0)
		return nil
	case OP_BOOLOR:
		st.PushBool(a.Sign() != 0 || b.Sign() != 0)
		return nil
	case OP_NUMEQUAL:
		st.PushBool(a.Cmp(b) == 0)
		return nil
	case OP_NUMEQUALVERIFY:
		if a.Cmp(b) != 0 {
			return scriptError("OP_NUMEQUALVERIFY failed")
		}
		return nil
	case OP_NUMNOTEQUAL:
		st.PushBool(a.Cmp(b) != 0)
		return nil
	case OP_LESSTHAN:
		st.PushBool(a.Cmp(b) < 0)
		return nil
	case OP_GREATERTHAN:
		st.PushBool(a.Cmp(b) > 0)
		return nil
	case OP_LESSTHANOREQUAL:
		st.PushBool(a.Cmp(b) <= 0)
		return nil
	case OP_GREATERTHANOREQUAL:
		st.PushBool(a.Cmp(b) >= 0)
		return nil
	case OP_MIN:
		if a.Cmp(b) < 0 {
			return st.PushInt(a)
		}
		return st.PushInt(b)
	case OP_MAX:
		if a.Cmp(b) > 0 {
			return st.PushInt(a)
		}
		return st.PushInt(b)
	}
	return scriptError("unreachable binary numeric opcode")
}
