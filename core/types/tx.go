// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"io"

	"github.com/baby636-sketch/Membercoin/common"
	"github.com/baby636-sketch/Membercoin/common/hash"
	s "github.com/baby636-sketch/Membercoin/core/serialization"
)

const (
	// MaxTxInSequenceNum is the sequence number meaning "final": the
	// input does not impose a relative lock-time.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// minTxPayload is the minimum serialized size CheckBasicSanity
	// accepts for a transaction. It is larger than the smallest
	// encodable transaction: version (4) + input count (1) + a minimal
	// input (41) + output count (1) + a minimal output (9) + lock-time
	// (4) is 60 bytes.
	minTxPayload = 100

	// defaultTxInOutAlloc is a sizing hint for input/output slices.
	defaultTxInOutAlloc = 8
)

// TxIn is a single input of a transaction: a reference to the previous
// output it redeems, the unlocking script, and the sequence number.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// NewTxIn returns a new transaction input with the provided previous
// outpoint and signature script, with the sequence number set to final.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// SerializeSize returns the number of bytes it would take to serialize
// the transaction input.
func (t *TxIn) SerializeSize() int {
	// Outpoint hash + outpoint index + serialized varint size for the
	// length of signature script + signature script bytes + sequence.
	return hashSize + 4 + s.VarIntSerializeSize(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript) + 4
}

// TxOut is a single output of a transaction: a value in satoshis and the
// script that must be satisfied to spend it.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// NewTxOut returns a new transaction output with the provided value and
// locking script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{Value: value, PkScript: pkScript}
}

// SerializeSize returns the number of bytes it would take to serialize
// the transaction output.
func (t *TxOut) SerializeSize() int {
	return 8 + s.VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// IsUnspendable reports whether the output's script is a provably
// unspendable OP_RETURN data carrier.
func (t *TxOut) IsUnspendable() bool {
	return len(t.PkScript) > 0 && t.PkScript[0] == OP_RETURN
}

const hashSize = 32

// OP_RETURN is the opcode that marks an output provably unspendable. It
// is duplicated here (rather than imported from engine/txscript) to avoid
// a package cycle, since txscript itself depends on core/types.
const OP_RETURN = 0x6a

// Transaction is the canonical, decoded form of a Membercoin transaction.
type Transaction struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewTransaction returns a new transaction with version 1 and no
// inputs, outputs, or lock-time set.
func NewTransaction() *Transaction {
	return &Transaction{
		Version: 1,
		TxIn:    make([]*TxIn, 0, defaultTxInOutAlloc),
		TxOut:   make([]*TxOut, 0, defaultTxInOutAlloc),
	}
}

// AddTxIn adds a transaction input to the message.
func (t *Transaction) AddTxIn(ti *TxIn) {
	t.TxIn = append(t.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (t *Transaction) AddTxOut(to *TxOut) {
	t.TxOut = append(t.TxOut, to)
}

// IsCoinBase determines whether the transaction is a coinbase: exactly
// one input whose previous outpoint is null.
func (t *Transaction) IsCoinBase() bool {
	return len(t.TxIn) == 1 && t.TxIn[0].PreviousOutPoint.IsNull()
}

// TotalOut returns the sum of all output values. It does not check for
// overflow or the MAX_MONEY bound; CheckBasicSanity performs that
// consensus check.
func (t *Transaction) TotalOut() int64 {
	var total int64
	for _, out := range t.TxOut {
		total += out.Value
	}
	return total
}

// SerializeSize returns the number of bytes it would take to serialize
// the transaction.
func (t *Transaction) SerializeSize() int {
	n := 8 // version + lock time
	n += s.VarIntSerializeSize(uint64(len(t.TxIn)))
	for _, ti := range t.TxIn {
		n += ti.SerializeSize()
	}
	n += s.VarIntSerializeSize(uint64(len(t.TxOut)))
	for _, to := range t.TxOut {
		n += to.SerializeSize()
	}
	return n
}

// CheckBasicSanity enforces the structural invariants of §3: at least
// one input, at least one output, minimum serialized size, total output
// value within MAX_MONEY, and no duplicate outpoints among the inputs.
func (t *Transaction) CheckBasicSanity() error {
	if len(t.TxIn) == 0 {
		return errNoTxInputs
	}
	if len(t.TxOut) == 0 {
		return errNoTxOutputs
	}
	if t.SerializeSize() < minTxPayload {
		return errTxTooSmall

	}

	var total int64
	for _, out := range t.TxOut {
		if out.Value < 0 || out.Value > common.MaxMoney {
			return errInvalidOutputValue
		}
		total += out.Value
		if total < 0 || total > common.MaxMoney {
			return errTotalOutputOverflow
		}
	}

	seen := make(map[OutPoint]struct{}, len(t.TxIn))
	isCoinBase := t.IsCoinBase()
	for _, in := range t.TxIn {
		if _, dup := seen[in.PreviousOutPoint]; dup {
			return errDuplicateTxInputs
		}
		seen[in.PreviousOutPoint] = struct{}{}

		if !isCoinBase && in.PreviousOutPoint.IsNull() {
			return errBadTxInput
		}
	}

	if isCoinBase {
		slen := len(t.TxIn[0].SignatureScript)
		if slen < 2 || slen > 100 {
			return errBadCoinbaseScriptLen
		}
	} else {
		for _, in := range t.TxIn {
			if in.PreviousOutPoint.IsNull() {
				return errBadTxInput
			}
		}
	}
	return nil
}

// TxHash computes the transaction id: double-SHA256 over the canonical
// serialization.
func (t *Transaction) TxHash() (hash.Hash, error) {
	var buf bytes.Buffer
	if err := t.Serialize(&buf); err != nil {
		return hash.Hash{}, err
	}
	return hash.DoubleSHA256(buf.Bytes()), nil
}

// Serialize writes the canonical encoding of the transaction to w:
// version (4B LE) + compact-size input count + inputs + compact-size
// output count + outputs + lock-time (4B LE).
func (t *Transaction) Serialize(w *bytes.Buffer) error {
	if err := s.WriteElements(w, t.Version); err != nil {
		return err
	}
	if err := s.WriteVarInt(w, uint64(len(t.TxIn))); err != nil {
		return err
	}
	for _, ti := range t.TxIn {
		if err := s.WriteElements(w, &ti.PreviousOutPoint.Hash, ti.PreviousOutPoint.Index); err != nil {
			return err
		}
		if err := s.WriteVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}
		if err := s.WriteElements(w, ti.Sequence); err != nil {
			return err
		}
	}
	if err := s.WriteVarInt(w, uint64(len(t.TxOut))); err != nil {
		return err
	}
	for _, to := range t.TxOut {
		if err := s.WriteElements(w, to.Value); err != nil {
			return err
		}
		if err := s.WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}
	return s.WriteElements(w, t.LockTime)
}

// maxScriptSize bounds any single script read from the wire; it is well
// above any script that could pass the VM's own opcode-count limits, and
// exists purely to stop a corrupt length prefix from driving a huge
// allocation during decode.
const maxScriptSize = 10 * 1024 * 1024

// DeserializeTransaction decodes a transaction from its canonical
// encoding. Decoding is the exact inverse of Serialize: decode(encode(tx))
// == tx for every well-formed tx.
func DeserializeTransaction(r io.Reader) (*Transaction, error) {
	t := &Transaction{}
	if err := s.ReadElements(r, &t.Version); err != nil {
		return nil, err
	}

	inCount, err := s.ReadVarIntCount(r)
	if err != nil {
		return nil, err
	}
	t.TxIn = make([]*TxIn, inCount)
	for i := range t.TxIn {
		ti := &TxIn{}
		if err := s.ReadElements(r, &ti.PreviousOutPoint.Hash, &ti.PreviousOutPoint.Index); err != nil {
			return nil, err
		}
		ti.SignatureScript, err = s.ReadVarBytes(r, maxScriptSize, "signature script")
		if err != nil {
			return nil, err
		}
		if err := s.ReadElements(r, &ti.Sequence); err != nil {
			return nil, err
		}
		t.TxIn[i] = ti
	}

	outCount, err := s.ReadVarIntCount(r)
	if err != nil {
		return nil, err
	}
	t.TxOut = make([]*TxOut, outCount)
	for i := range t.TxOut {
		to := &TxOut{}
		if err := s.ReadElements(r, &to.Value); err != nil {
			return nil, err
		}
		to.PkScript, err = s.ReadVarBytes(r, maxScriptSize, "pubkey script")
		if err != nil {
			return nil, err
		}
		t.TxOut[i] = to
	}

	if err := s.ReadElements(r, &t.LockTime); err != nil {
		return nil, err
	}
	return t, nil
}

// Copy returns a deep copy of the transaction so callers may mutate it
// (e.g. for sighash computation) without affecting the original.
func (t *Transaction) Copy() *Transaction {
	n := &Transaction{
		Version:  t.Version,
		LockTime: t.LockTime,
		TxIn:     make([]*TxIn, len(t.TxIn)),
		TxOut:    make([]*TxOut, len(t.TxOut)),
	}
	for i, in := range t.TxIn {
		sig := make([]byte, len(in.SignatureScript))
		copy(sig, in.SignatureScript)
		n.TxIn[i] = &TxIn{
			PreviousOutPoint: in.PreviousOutPoint,
			SignatureScript:  sig,
			Sequence:         in.Sequence,
		}
	}
	for i, out := range t.TxOut {
		pk := make([]byte, len(out.PkScript))
		copy(pk, out.PkScript)
		n.TxOut[i] = &TxOut{Value: out.Value, PkScript: pk}
	}
	return n
}
