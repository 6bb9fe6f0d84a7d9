// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// schnorrSigLen is the fixed serialized length of a raw (r,s) Schnorr
// signature with no recovery byte, per BIP340/BCH-Schnorr convention.
// A raw signature of exactly this length is verified as Schnorr; any
// other length is parsed as a DER-encoded ECDSA signature. This mirrors
// how every btcd-lineage implementation of the BCH Schnorr upgrade
// disambiguates the two signature schemes sharing one opcode, since a
// valid DER encoding can never be exactly 64 bytes.
const schnorrSigLen = 64

// verifyRaw checks sig (without any trailing hashtype byte) against
// digest and pubKey, dispatching to Schnorr or ECDSA verification by
// signature length.
func verifyRaw(sig, digest []byte, pubKey *secp256k1.PublicKey) bool {
	if len(sig) == schnorrSigLen {
		schnorrSig, err := schnorr.ParseSignature(sig)
		if err != nil {
			return false
		}
		return schnorrSig.Verify(digest, pubKey)
	}
	ecdsaSig, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return ecdsaSig.Verify(digest, pubKey)
}

// execCheckSig implements OP_CHECKSIG/OP_CHECKSIGVERIFY: pop a pubkey and
// a signature, verify the signature against the sighash the signature's
// trailing hashtype byte selects, and push the boolean result (or, for
// the VERIFY form, fail the script outright on a bad signature). Every
// attempted verification — successful or not — counts toward the
// sigcheck budget, per §4.4.
func (e *Engine) execCheckSig(op byte, st *stack) error {
	pkBytes, err := st.PopByteArray()
	if err != nil {
		return err
	}
	sigBytes, err := st.PopByteArray()
	if err != nil {
		return err
	}

	ok := e.verifySignature(sigBytes, pkBytes, e.currentScript)
	e.sigChecks++

	if op == OP_CHECKSIGVERIFY {
		if !ok {
			return scriptError("OP_CHECKSIGVERIFY failed")
		}
		return nil
	}
	st.PushBool(ok)
	return nil
}

// verifySignature checks a signature (ECDSA/DER or, for a 64-byte raw
// signature, Schnorr — see verifyRaw) with a trailing sighash-type byte,
// over the sighash computed from subScript.
func (e *Engine) verifySignature(rawSig, rawPubKey, subScript []byte) bool {
	if len(rawSig) == 0 || len(rawPubKey) == 0 {
		return false
	}

	hashType := SigHashType(rawSig[len(rawSig)-1])
	sig := rawSig[:len(rawSig)-1]

	pubKey, err := secp256k1.ParsePubKey(rawPubKey)
	if err != nil {
		return false
	}

	sigHash, err := CalcSignatureHash(subScript, hashType, e.tx, e.txIdx, e.amount)
	if err != nil {
		return false
	}

	if e.sigCache != nil && e.sigCache.has(sigHash, sig, rawPubKey) {
		return true
	}

	if !verifyRaw(sig, sigHash.Bytes(), pubKey) {
		return false
	}
	if e.sigCache != nil {
		e.sigCache.add(sigHash, sig, rawPubKey)
	}
	return true
}

// execCheckMultiSig implements OP_CHECKMULTISIG/OP_CHECKMULTISIGVERIFY:
// pop n pubkeys, m required signatures, and m signatures, and require
// that the signatures match m distinct pubkeys from the list in order.
// Each pubkey supplied counts toward the sigcheck budget, per §4.4,
// regardless of whether a matching signature is found for it.
func (e *Engine) execCheckMultiSig(op byte, st *stack) error {
	nBig, err := st.PopInt()
	if err != nil {
		return err
	}
	n := int(nBig.Int64())
	if n < 0 || n > 20 {
		return scriptError("OP_CHECKMULTISIG pubkey count out of range")
	}

	pubKeys := make([][]byte, n)
	for i := n - 1; i >= 0; i-- {
		pk, err := st.PopByteArray()
		if err != nil {
			return err
		}
		pubKeys[i] = pk
	}

	mBig, err := st.PopInt()
	if err != nil {
		return err
	}
	m := int(mBig.Int64())
	if m < 0 || m > n {
		return scriptError("OP_CHECKMULTISIG signature count out of range")
	}

	sigs := make([][]byte, m)
	for i := m - 1; i >= 0; i-- {
		sig, err := st.PopByteArray()
		if err != nil {
			return err
		}
		sigs[i] = sig
	}

	// The multisig script format carries one extra, unused stack item
	// for historical off-by-one compatibility with the reference opcode.
	if _, err := st.PopByteArray(); err != nil {
		return err
	}

	e.sigChecks += n

	success := true
	pkIdx := 0
	for _, sig := range sigs {
		matched := false
		for pkIdx < len(pubKeys) {
			pk := pubKeys[pkIdx]
			pkIdx++
			if e.verifySignature(sig, pk, e.currentScript) {
				matched = true
				break
			}
		}
		if !matched {
			success = false
			break
		}
	}

	if op == OP_CHECKMULTISIGVERIFY {
		if !success {
			return scriptError("OP_CHECKMULTISIGVERIFY failed")
		}
		return nil
	}
	st.PushBool(success)
	return nil
}

// execCheckDataSig implements OP_CHECKDATASIG/OP_CHECKDATASIGVERIFY:
// verify a signature over the double-SHA256 of an explicit message, with
// no dependence on the spending transaction's sighash. Used by
// oracle-style covenants that sign arbitrary data rather than a
// transaction.
func (e *Engine) execCheckDataSig(op byte, st *stack) error {
	pkBytes, err := st.PopByteArray()
	if err != nil {
		return err
	}
	msg, err := st.PopByteArray()
	if err != nil {
		return err
	}
	sigBytes, err := st.PopByteArray()
	if err != nil {
		return err
	}

	e.sigChecks++

	pubKey, err := secp256k1.ParsePubKey(pkBytes)
	if err != nil {
		if op == OP_CHECKDATASIGVERIFY {
			return scriptError("OP_CHECKDATASIGVERIFY failed: bad pubkey")
		}
		st.PushBool(false)
		return nil
	}

	digest := hash.DoubleSHA256(msg)
	ok := verifyRaw(sigBytes, digest.Bytes(), pubKey)

	if op == OP_CHECKDATASIGVERIFY {
		if !ok {
			return scriptError("OP_CHECKDATASIGVERIFY failed")
		}
		return nil
	}
	st.PushBool(ok)
	return nil
}
