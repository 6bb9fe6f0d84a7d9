// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// IsPayToScriptHash reports whether script follows the standard P2SH
// template: OP_HASH160 <20-byte hash> OP_EQUAL.
func IsPayToScriptHash(script []byte) bool {
	return len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == 0x14 &&
		script[22] == OP_EQUAL
}

// PayToScriptHashScript builds the standard P2SH locking script for the
// given 20-byte redeem-script hash.
func PayToScriptHashScript(scriptHash []byte) []byte {
	b := make([]byte, 0, 23)
	b = append(b, OP_HASH160, 0x14)
	b = append(b, scriptHash...)
	b = append(b, OP_EQUAL)
	return b
}
