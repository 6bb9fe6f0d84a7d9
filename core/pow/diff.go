// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pow implements the compact-target encoding, cumulative-work
// accounting, and the BLAKE3-based proof-of-work acceptance check.
package pow

import (
	"math/big"

	"github.com/baby636-sketch/Membercoin/common/hash"
)

var (
	// bigOne is 1 represented as a big.Int, kept to avoid the overhead
	// of creating it repeatedly.
	bigOne = big.NewInt(1)

	// oneLsh256 is 1 shifted left 256 bits: 2^256.
	oneLsh256 = new(big.Int).Lsh(bigOne, 256)
)

// HashToBig converts a block hash into a big.Int for target comparison.
// A Hash is constructed in the order produced by BLAKE3/double-SHA256; the
// comparison below treats it as a little-endian number, so the bytes are
// reversed before handing them to big.Int, which wants big-endian.
func HashToBig(h *hash.Hash) *big.Int {
	buf := *h
	blen := len(buf)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}
	return new(big.Int).SetBytes(buf[:])
}

// CompactToBig converts a compact representation of a whole number to a
// big.Int. The representation is base-256 scientific notation: the high
// byte is the exponent (number of bytes), the low 23 bits of the
// remaining three bytes are the mantissa, and bit 23 is a sign bit.
//
//	N = (-1^sign) * mantissa * 256^(exponent-3)
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}
	return bn
}

// BigToCompact converts a whole number to the compact (base-256 scientific
// notation) representation used for the header's `bits` field. The
// compact form only has 23 bits of mantissa precision, so very large
// numbers are rounded to their most significant digits.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent)<<24 | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// IsNegativeOrOverflow reports whether the compact-encoded target is
// malformed: either the sign bit is set or the exponent/mantissa would
// overflow a 256-bit unsigned target. Both must be rejected as invalid
// proof-of-work per the spec.
func IsNegativeOrOverflow(compact uint32) bool {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	if isNegative && mantissa != 0 {
		return true
	}
	if mantissa != 0 && (exponent > 34 ||
		(mantissa > 0xff && exponent > 33) ||
		(mantissa > 0xffff && exponent > 32)) {
		return true
	}
	return false
}

// Target decodes the compact `bits` field into the big.Int target a valid
// header must hash below. The caller must check IsNegativeOrOverflow
// first; Target does not itself reject malformed encodings.
func Target(bits uint32) *big.Int {
	return CompactToBig(bits)
}

// CalcWork computes the amount of work represented by a given target:
// floor(2^256 / (target+1)). A target of zero (which should never occur
// for a validated header) yields zero work.
func CalcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Add(target, bigOne)
	return new(big.Int).Div(oneLsh256, denominator)
}

// CheckProofOfWork reports whether h, interpreted as a 256-bit number,
// does not exceed the target encoded by bits. Callers must reject bits
// for which IsNegativeOrOverflow is true before calling this function.
func CheckProofOfWork(h *hash.Hash, bits uint32) bool {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return false
	}
	hashNum := HashToBig(h)
	return hashNum.Cmp(target) <= 0
}
