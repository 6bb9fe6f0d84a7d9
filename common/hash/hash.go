// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package hash implements the two hashes used by the protocol: the
// internal double-SHA256 "mid-hash" and the BLAKE3 outer hash used as the
// network-visible block identifier and proof-of-work value.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// HashSize is the number of bytes in a Hash.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a
// hash string that has too many characters.
var ErrHashStrSize = fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is a 32-byte array used to represent the double-SHA256 mid-hash or
// the BLAKE3 block hash. It satisfies the fmt.Stringer interface.
type Hash [HashSize]byte

// ZeroHash is the zero value for a Hash, and is used to identify the
// previous output of coinbase inputs.
var ZeroHash = Hash{}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash, matching the convention used for block/transaction IDs throughout
// the Bitcoin family.
func (h Hash) String() string {
	var reversed Hash
	for i, b := range h[:] {
		reversed[HashSize-1-i] = b
	}
	return hex.EncodeToString(reversed[:])
}

// Bytes returns a copy of the raw bytes of the hash, in the order they were
// constructed (not byte-reversed).
func (h Hash) Bytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// SetBytes sets the bytes which represent the hash. An error is returned
// if the number of bytes passed in is not HashSize.
func (h *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v", nhlen, HashSize)
	}
	copy(h[:], newHash)
	return nil
}

// IsEqual returns true if target is the same as the hash.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// NewHash returns a new Hash from a byte slice. An error is returned if
// the number of bytes passed in is not HashSize.
func NewHash(newHash []byte) (*Hash, error) {
	var h Hash
	if err := h.SetBytes(newHash); err != nil {
		return nil, err
	}
	return &h, nil
}

// NewHashFromStr creates a Hash from a hash string, un-reversing the
// byte-reversal applied by String.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	if err := Decode(ret, hash); err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the byte-reversed hex string encoding of a Hash into dst.
func Decode(dst *Hash, src string) error {
	if len(src) > MaxHashStringSize {
		return ErrHashStrSize
	}

	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		srcBytes = make([]byte, 1+len(src))
		srcBytes[0] = '0'
		copy(srcBytes[1:], src)
	}

	var reversed Hash
	_, err := hex.Decode(reversed[HashSize-hex.DecodedLen(len(srcBytes)):], srcBytes)
	if err != nil {
		return err
	}

	for i, b := range reversed[:HashSize/2] {
		dst[i], dst[HashSize-1-i] = reversed[HashSize-1-i], b
	}
	return nil
}

// DoubleSHA256 computes SHA256(SHA256(b)), the chain's internal "mid-hash"
// used for txids, merkle nodes, and the header's mid-hash.
func DoubleSHA256(b []byte) Hash {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return Hash(second)
}

// Blake3Hash computes BLAKE3(b) with the default 32-byte output. It is the
// outer hash applied to the 80-byte header to produce the network-visible
// block identifier and proof-of-work value.
func Blake3Hash(b []byte) Hash {
	sum := blake3.Sum256(b)
	return Hash(sum)
}

// MerkleRoot computes the binary Merkle root over a list of leaf hashes
// using the Satoshi convention: on an odd-sized layer, the last node is
// duplicated before hashing pairs up one level.
func MerkleRoot(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return ZeroHash
	}
	layer := make([]Hash, len(leaves))
	copy(layer, leaves)

	for len(layer) > 1 {
		if len(layer)%2 != 0 {
			layer = append(layer, layer[len(layer)-1])
		}
		next := make([]Hash, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			var buf [2 * HashSize]byte
			copy(buf[:HashSize], layer[i][:])
			copy(buf[HashSize:], layer[i+1][:])
			next[i/2] = DoubleSHA256(buf[:])
		}
		layer = next
	}
	return layer[0]
}
