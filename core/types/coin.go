// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

// Coin is the unit of account stored in the UTXO set: a single output
// together with the contextual information needed to validate spending
// it (the height it was created at, whether it came from a coinbase, and
// whether it has already been spent within the current view).
type Coin struct {
	Output   TxOut
	Height   uint32
	Coinbase bool
	Spent    bool
}

// NewCoin returns a new, unspent Coin for the given output.
func NewCoin(out TxOut, height uint32, coinbase bool) *Coin {
	return &Coin{Output: out, Height: height, Coinbase: coinbase}
}

// IsSpendable reports whether the coin is unspent.
func (c *Coin) IsSpendable() bool {
	return c != nil && !c.Spent
}

// Clone returns a deep-enough copy of the coin (the script byte slice is
// copied so mutations by one viewpoint do not leak into another).
func (c *Coin) Clone() *Coin {
	pk := make([]byte, len(c.Output.PkScript))
	copy(pk, c.Output.PkScript)
	return &Coin{
		Output:   TxOut{Value: c.Output.Value, PkScript: pk},
		Height:   c.Height,
		Coinbase: c.Coinbase,
		Spent:    c.Spent,
	}
}
