// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "math/big"

// maxScriptElementSize is the maximum allowed size, in bytes, of an
// element on either stack.
const maxScriptElementSize = 520

// stack represents the primary or alternate execution stack: a LIFO of
// raw byte-vector elements with the helpers the opcode table needs to
// treat them as booleans or numbers.
type stack struct {
	elements [][]byte
}

func (s *stack) Depth() int {
	return len(s.elements)
}

func (s *stack) PushByteArray(b []byte) error {
	if len(b) > maxScriptElementSize {
		return scriptError("pushed element exceeds maximum size")
	}
	s.elements = append(s.elements, b)
	return nil
}

func (s *stack) PushBool(v bool) {
	if v {
		s.elements = append(s.elements, []byte{1})
	} else {
		s.elements = append(s.elements, []byte{})
	}
}

func (s *stack) PushInt(n *big.Int) error {
	return s.PushByteArray(scriptNumBytes(n))
}

func (s *stack) PopByteArray() ([]byte, error) {
	if len(s.elements) == 0 {
		return nil, scriptError("pop on empty stack")
	}
	v := s.elements[len(s.elements)-1]
	s.elements = s.elements[:len(s.elements)-1]
	return v, nil
}

func (s *stack) PeekByteArray(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(s.elements) {
		return nil, scriptError("stack index out of range")
	}
	return s.elements[len(s.elements)-1-idx], nil
}

func (s *stack) PopBool() (bool, error) {
	b, err := s.PopByteArray()
	if err != nil {
		return false, err
	}
	return asBool(b), nil
}

func (s *stack) PopInt() (*big.Int, error) {
	b, err := s.PopByteArray()
	if err != nil {
		return nil, err
	}
	if len(b) > 4 {
		return nil, scriptError("numeric stack element exceeds 4 bytes")
	}
	return scriptNumFromBytes(b), nil
}

func (s *stack) NipN(n int) error {
	idx := len(s.elements) - 1 - n
	if idx < 0 || idx >= len(s.elements) {
		return scriptError("nip index out of range")
	}
	s.elements = append(s.elements[:idx], s.elements[idx+1:]...)
	return nil
}

func (s *stack) Tuck() error {
	v2, err := s.PopByteArray()
	if err != nil {
		return err
	}
	v1, err := s.PopByteArray()
	if err != nil {
		return err
	}
	s.elements = append(s.elements, v2, v1, v2)
	return nil
}

func (s *stack) DupN(n int) error {
	if n < 1 || n > len(s.elements) {
		return scriptError("dup count out of range")
	}
	start := len(s.elements) - n
	dup := make([][]byte, n)
	copy(dup, s.elements[start:])
	s.elements = append(s.elements, dup...)
	return nil
}

func (s *stack) RotN(n int) error {
	entry := 3 * n
	if entry > len(s.elements) {
		return scriptError("rot count out of range")
	}
	for i := n; i > 0; i-- {
		idx := len(s.elements) - 3*i
		v := s.elements[idx]
		s.elements = append(s.elements[:idx], s.elements[idx+1:]...)
		s.elements = append(s.elements, v)
	}
	return nil
}

func (s *stack) SwapN(n int) error {
	if 2*n > len(s.elements) {
		return scriptError("swap count out of range")
	}
	for i := 0; i < n; i++ {
		a := len(s.elements) - n - i - 1
		b := len(s.elements) - i - 1
		s.elements[a], s.elements[b] = s.elements[b], s.elements[a]
	}
	return nil
}

func (s *stack) OverN(n int) error {
	idx := len(s.elements) - 2*n
	if idx < 0 {
		return scriptError("over count out of range")
	}
	cp := make([][]byte, n)
	copy(cp, s.elements[idx:idx+n])
	s.elements = append(s.elements, cp...)
	return nil
}

func (s *stack) PickRoll(n int, isRoll bool) error {
	idx := len(s.elements) - n - 1
	if idx < 0 {
		return scriptError("pick/roll index out of range")
	}
	v := s.elements[idx]
	if isRoll {
		s.elements = append(s.elements[:idx], s.elements[idx+1:]...)
	}
	s.elements = append(s.elements, v)
	return nil
}

// asBool applies Bitcoin's CastToBool rule: an empty vector or a vector
// of all-zero bytes (with the sole exception of a negative-zero sign
// byte) is false; everything else is true.
func asBool(b []byte) bool {
	for i, v := range b {
		if v != 0 {
			if i == len(b)-1 && v == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}
