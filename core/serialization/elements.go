// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package serialization

import (
	"encoding/binary"
	"io"
)

// hashLike is satisfied by any fixed-size byte array pointer the element
// codec knows how to read/write raw, without a length prefix (the 32-byte
// Hash type from common/hash).
type hashLike interface {
	SetBytes([]byte) error
}

type hashBytesLike interface {
	Bytes() []byte
}

// WriteElements writes each of elements to w using little-endian byte
// order, dispatching on the concrete type of each argument. It mirrors
// the teacher's readElement/writeElement fast-path dispatch.
func WriteElements(w io.Writer, elements ...interface{}) error {
	for _, e := range elements {
		if err := writeElement(w, e); err != nil {
			return err
		}
	}
	return nil
}

func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case int32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(e))
		_, err := w.Write(b[:])
		return err
	case uint32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], e)
		_, err := w.Write(b[:])
		return err
	case int64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(e))
		_, err := w.Write(b[:])
		return err
	case uint64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], e)
		_, err := w.Write(b[:])
		return err
	case hashBytesLike:
		_, err := w.Write(e.Bytes())
		return err
	default:
		panic("serialization: writeElement called with unsupported type")
	}
}

// ReadElements reads each of elements from r, mirroring WriteElements.
// Every element must be a pointer to a supported type.
func ReadElements(r io.Reader, elements ...interface{}) error {
	for _, e := range elements {
		if err := readElement(r, e); err != nil {
			return err
		}
	}
	return nil
}

func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *int32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return malformed("truncated int32")
		}
		*e = int32(binary.LittleEndian.Uint32(b[:]))
		return nil
	case *uint32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return malformed("truncated uint32")
		}
		*e = binary.LittleEndian.Uint32(b[:])
		return nil
	case *int64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return malformed("truncated int64")
		}
		*e = int64(binary.LittleEndian.Uint64(b[:]))
		return nil
	case *uint64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return malformed("truncated uint64")
		}
		*e = binary.LittleEndian.Uint64(b[:])
		return nil
	case hashLike:
		var b [32]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return malformed("truncated hash")
		}
		return e.SetBytes(b[:])
	default:
		panic("serialization: readElement called with unsupported type")
	}
}
