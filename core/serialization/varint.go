// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package serialization implements the canonical little-endian,
// compact-size-prefixed wire codec used for hashing, storage, and
// transport of headers, transactions, and scripts.
package serialization

import (
	"encoding/binary"
	"errors"
	"io"
)

// MalformedErr is returned for any input that cannot be decoded as a
// well-formed wire value: truncated input, an oversized compact-size
// count, or a script whose declared length exceeds the remaining buffer.
type MalformedErr struct {
	Reason string
}

func (e *MalformedErr) Error() string {
	return "malformed encoding: " + e.Reason
}

func malformed(reason string) error {
	return &MalformedErr{Reason: reason}
}

// maxCompactCount (1<<32) is the smallest count rejected for a
// compact-size-prefixed collection, so the largest accepted is 2^32-1.
// The wire format itself can encode up to 2^64-1, but the spec bounds
// collection counts below 2^32 to keep a
// corrupt length from causing a client to attempt an enormous allocation.
const maxCompactCount = 1 << 32

var errVarIntOverflow = errors.New("compact size integer exceeds maximum allowed count")

// ReadVarInt reads a compact-size variable-length integer from r.
//
// Encoding: values < 0xfd are encoded as a single byte; 0xfd is followed
// by a uint16; 0xfe by a uint32; 0xff by a uint64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var b [9]byte
	if _, err := io.ReadFull(r, b[:1]); err != nil {
		return 0, malformed("truncated varint")
	}

	switch b[0] {
	case 0xff:
		if _, err := io.ReadFull(r, b[1:9]); err != nil {
			return 0, malformed("truncated varint")
		}
		return binary.LittleEndian.Uint64(b[1:9]), nil
	case 0xfe:
		if _, err := io.ReadFull(r, b[1:5]); err != nil {
			return 0, malformed("truncated varint")
		}
		return uint64(binary.LittleEndian.Uint32(b[1:5])), nil
	case 0xfd:
		if _, err := io.ReadFull(r, b[1:3]); err != nil {
			return 0, malformed("truncated varint")
		}
		return uint64(binary.LittleEndian.Uint16(b[1:3])), nil
	default:
		return uint64(b[0]), nil
	}
}

// ReadVarIntCount reads a compact-size integer and checks it against
// maxCompactCount, for use wherever the value is about to be used as a
// collection length.
func ReadVarIntCount(r io.Reader) (uint64, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return 0, err
	}
	if n >= maxCompactCount {
		return 0, errVarIntOverflow
	}
	return n, nil
}

// WriteVarInt writes val to w using the minimal compact-size encoding.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{byte(val)})
		return err
	}
	if val <= 0xffff {
		var b [3]byte
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:], uint16(val))
		_, err := w.Write(b[:])
		return err
	}
	if val <= 0xffffffff {
		var b [5]byte
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:], uint32(val))
		_, err := w.Write(b[:])
		return err
	}
	var b [9]byte
	b[0] = 0xff
	binary.LittleEndian.PutUint64(b[1:], val)
	_, err := w.Write(b[:])
	return err
}

// VarIntSerializeSize returns the number of bytes it would take to encode
// val as a compact-size integer.
func VarIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	if val <= 0xffff {
		return 3
	}
	if val <= 0xffffffff {
		return 5
	}
	return 9
}

// ReadVarBytes reads a compact-size-prefixed byte vector from r,
// rejecting declared lengths beyond maxAllowed.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarIntCount(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, malformed(fieldName + " exceeds max allowed size")
	}
	buf := make([]byte, count)
	if count == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, malformed(fieldName + " truncated")
	}
	return buf, nil
}

// WriteVarBytes writes a compact-size-prefixed byte vector to w.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
