// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/serialization"
	"github.com/baby636-sketch/Membercoin/core/types"
)

// SigHashType enumerates the base signature hash types and the
// ANYONECANPAY/FORKID modifier bits §4.4 requires CHECKSIG to honor.
type SigHashType uint32

const (
	SigHashAll    SigHashType = 0x01
	SigHashNone   SigHashType = 0x02
	SigHashSingle SigHashType = 0x03

	SigHashAnyOneCanPay SigHashType = 0x80
	SigHashForkID       SigHashType = 0x40

	sigHashMask = 0x1f
)

func (t SigHashType) base() SigHashType  { return t & sigHashMask }
func (t SigHashType) anyOneCanPay() bool { return t&SigHashAnyOneCanPay != 0 }
func (t SigHashType) forkID() bool       { return t&SigHashForkID != 0 }

// CalcSignatureHash computes the sighash digest for input idx of tx
// spending a coin whose subScript is the script being satisfied
// (scriptPubKey, or the redeem script under P2SH) and whose
// interest-adjusted value is amount. Only the FORKID-tagged, amount
// committing preimage is implemented: the chain does not support
// non-FORKID signatures, so any other hashType still commits to the
// amount the way BIP143 does.
func CalcSignatureHash(subScript []byte, hashType SigHashType, tx *types.Transaction, idx int, amount int64) (hash.Hash, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return hash.Hash{}, scriptError("sighash index out of range")
	}

	hashPrevouts, err := hashPrevOuts(tx, hashType)
	if err != nil {
		return hash.Hash{}, err
	}
	hashSequence, err := hashSequenceNums(tx, hashType)
	if err != nil {
		return hash.Hash{}, err
	}
	hashOutputs, err := hashOutputsFor(tx, hashType, idx)
	if err != nil {
		return hash.Hash{}, err
	}

	var buf bytes.Buffer
	var u32 [4]byte

	binary.LittleEndian.PutUint32(u32[:], uint32(tx.Version))
	buf.Write(u32[:])

	buf.Write(hashPrevouts.Bytes())
	buf.Write(hashSequence.Bytes())

	in := tx.TxIn[idx]
	buf.Write(in.PreviousOutPoint.Hash.Bytes())
	binary.LittleEndian.PutUint32(u32[:], in.PreviousOutPoint.Index)
	buf.Write(u32[:])

	if err := serialization.WriteVarBytes(&buf, subScript); err != nil {
		return hash.Hash{}, err
	}

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(amount))
	buf.Write(u64[:])

	binary.LittleEndian.PutUint32(u32[:], in.Sequence)
	buf.Write(u32[:])

	buf.Write(hashOutputs.Bytes())

	binary.LittleEndian.PutUint32(u32[:], tx.LockTime)
	buf.Write(u32[:])

	binary.LittleEndian.PutUint32(u32[:], uint32(hashType))
	buf.Write(u32[:])

	return hash.DoubleSHA256(buf.Bytes()), nil
}

func hashPrevOuts(tx *types.Transaction, hashType SigHashType) (hash.Hash, error) {
	if hashType.anyOneCanPay() {
		return hash.ZeroHash, nil
	}
	var buf bytes.Buffer
	var u32 [4]byte
	for _, in := range tx.TxIn {
		buf.Write(in.PreviousOutPoint.Hash.Bytes())
		binary.LittleEndian.PutUint32(u32[:], in.PreviousOutPoint.Index)
		buf.Write(u32[:])
	}
	return hash.DoubleSHA256(buf.Bytes()), nil
}

func hashSequenceNums(tx *types.Transaction, hashType SigHashType) (hash.Hash, error) {
	if hashType.anyOneCanPay() || hashType.base() == SigHashSingle || hashType.base() == SigHashNone {
		return hash.ZeroHash, nil
	}
	var buf bytes.Buffer
	var u32 [4]byte
	for _, in := range tx.TxIn {
		binary.LittleEndian.PutUint32(u32[:], in.Sequence)
		buf.Write(u32[:])
	}
	return hash.DoubleSHA256(buf.Bytes()), nil
}

func hashOutputsFor(tx *types.Transaction, hashType SigHashType, idx int) (hash.Hash, error) {
	base := hashType.base()
	switch {
	case base != SigHashSingle && base != SigHashNone:
		var buf bytes.Buffer
		for _, out := range tx.TxOut {
			if err := writeOutput(&buf, out); err != nil {
				return hash.Hash{}, err
			}
		}
		return hash.DoubleSHA256(buf.Bytes()), nil
	case base == SigHashSingle && idx < len(tx.TxOut):
		var buf bytes.Buffer
		if err := writeOutput(&buf, tx.TxOut[idx]); err != nil {
			return hash.Hash{}, err
		}
		return hash.DoubleSHA256(buf.Bytes()), nil
	default:
		return hash.ZeroHash, nil
	}
}

func writeOutput(buf *bytes.Buffer, out *types.TxOut) error {
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(out.Value))
	buf.Write(u64[:])
	return serialization.WriteVarBytes(buf, out.PkScript)
}
