// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// Error is the interpreter's failure tag. Script execution never aborts
// the host: every failure surfaces as a returned Error, not a panic,
// matching §4.4's "return contract".
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func scriptError(msg string) error {
	return &Error{msg: msg}
}
