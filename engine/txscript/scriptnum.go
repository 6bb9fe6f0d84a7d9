// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "math/big"

// scriptNumFromBytes decodes a script number: little-endian magnitude
// with the most significant bit of the last byte as the sign.
func scriptNumFromBytes(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}

	isNegative := b[len(b)-1]&0x80 != 0
	abs := make([]byte, len(b))
	copy(abs, b)
	abs[len(abs)-1] &= 0x7f

	// Reverse into big-endian for big.Int.SetBytes.
	for i, j := 0, len(abs)-1; i < j; i, j = i+1, j-1 {
		abs[i], abs[j] = abs[j], abs[i]
	}

	n := new(big.Int).SetBytes(abs)
	if isNegative {
		n.Neg(n)
	}
	return n
}

// scriptNumBytes encodes a big.Int into the script number format: a
// little-endian, minimally sized magnitude with the sign folded into the
// high bit of the final byte.
func scriptNumBytes(n *big.Int) []byte {
	if n.Sign() == 0 {
		return nil
	}

	isNegative := n.Sign() < 0
	abs := new(big.Int).Abs(n)
	b := abs.Bytes() // big-endian

	// Reverse into little-endian.
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}

	if len(b) == 0 || b[len(b)-1]&0x80 != 0 {
		b = append(b, 0)
	}
	if isNegative {
		b[len(b)-1] |= 0x80
	}
	return b
}
