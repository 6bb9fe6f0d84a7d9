// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package interest implements the chain's demurrage rule: every UTXO's
// spendable value grows with the number of blocks between its creation
// height and the height it is being valued at, following a precomputed,
// fixed-point compounding rate table. This is the single largest
// consensus deviation from a conventional UTXO chain and every site that
// reads an output's value for validation or fee math must route through
// ValueWithInterest with the coin's height and the tip/under-validation
// height.
package interest

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"
)

// BlocksPerDay is the approximate number of blocks mined per day and the
// step size the rate table compounds over.
const BlocksPerDay = 1108

// MaxTableIndex is the largest index the rate table carries: one year's
// worth of blocks. Interest stops compounding beyond this many blocks of
// age, per §4.3.
const MaxTableIndex = 365 * BlocksPerDay

// rateTableSeed is R[0]: 2^62, the fixed-point "one" the table
// compounds from and the divisor ValueWithInterest uses to recover a
// CAmount from the u256 product.
var rateTableSeed = new(big.Int).Lsh(big.NewInt(1), 62)

// expectedTableHash is the Murmur3(seed=1989) hash of initRateTable()'s
// exact textual stream, per the concrete scenario in spec §8 and
// original_source/src/init.cpp's startup assertion
// (assert(rateDataHash==-753007581)): original_source's
// primitives/transaction.cpp's initRateTable() writes "%d %x\n" for
// every i in [1,MaxTableIndex] (index, then R[i] in hex), followed by
// "rate: %d %d\n" for every i in [0,MaxTableIndex) (index, then the
// 100-coin interest payout at that period) — VerifyHash below
// reproduces that framing exactly.
const expectedTableHash int32 = -753007581

// murmurSeed is the fixed seed used to verify the rate table at startup.
const murmurSeed = 1989

// Table is the precomputed per-block compounding rate table and the
// value_with_interest function evaluated against it. Construction is
// expensive (MaxTableIndex+1 big.Int additions and shifts) so a Table is
// built once and shared; MustVerify is called once at node startup and
// aborts the process if the reproducibility check fails — building the
// table itself never panics, so that a hash-format mismatch cannot take
// down every package that merely calls ValueWithInterest.
type Table struct {
	once sync.Once
	rate []*big.Int
}

// global is the process-wide table, built lazily on first use and shared
// by every caller — mirroring the teacher's SubsidyCache pattern of a
// single cached, struct-scoped table rather than recomputing per call.
var global = &Table{}

// Default returns the shared rate table, building it on first use.
func Default() *Table {
	global.once.Do(global.build)
	return global
}

func (t *Table) build() {
	t.rate = make([]*big.Int, MaxTableIndex+1)
	t.rate[0] = new(big.Int).Set(rateTableSeed)
	for i := 1; i <= MaxTableIndex; i++ {
		prev := t.rate[i-1]
		increment := new(big.Int).Rsh(prev, 22)
		t.rate[i] = new(big.Int).Add(prev, increment)
	}
}

// coin and hundredCoins mirror amount.h's COIN and initRateTable()'s
// COIN*100 argument to getRateForAmount.
const coin = 100000000
const hundredCoins = coin * 100

// VerifyHash returns the Murmur3(seed=1989) hash of the table's textual
// form, reproducing initRateTable()'s exact stream byte-for-byte: every
// R[i] for i in [1,MaxTableIndex] as "<i> <hex(R[i])>\n", then the
// 100-coin interest payout at every period in [0,MaxTableIndex) as
// "rate: <i> <payout>\n" — together with whether it matches the
// documented value from the concrete scenario in §8. A mismatch means
// the recurrence, the seed value, or this textual serialization has
// drifted from the original.
func (t *Table) VerifyHash() (got int32, ok bool) {
	var sb strings.Builder
	for i := 1; i <= MaxTableIndex; i++ {
		fmt.Fprintf(&sb, "%d %x\n", i, t.rate[i])
	}
	for i := 0; i < MaxTableIndex; i++ {
		fmt.Fprintf(&sb, "rate: %d %d\n", i, rateForAmount(t.rate, i, hundredCoins))
	}

	sum := murmur3.Sum32WithSeed([]byte(sb.String()), murmurSeed)
	got = int32(sum)
	return got, got == expectedTableHash
}

// rateForAmount mirrors getRateForAmount: the absolute interest payout
// (not the resulting balance) a deposit of amount earns after periods
// blocks, computed via the same amount*R[periods]/R[0] - amount product
// the original evaluates in 256-bit arithmetic to avoid overflowing a
// uint64, then truncated back to 64 bits the same way GetLow64() does.
func rateForAmount(rate []*big.Int, periods int, amount int64) int64 {
	product := new(big.Int).Mul(big.NewInt(amount), rate[periods])
	result := new(big.Int).Div(product, rate[0])
	result.Sub(result, big.NewInt(amount))
	return result.Int64()
}

// MustVerify builds the shared table (if not already built) and aborts
// the process if it cannot reproduce the documented rate-table hash.
// Call this once during node construction, before any consensus code
// relies on ValueWithInterest; a node that cannot reproduce the
// documented table must not run at all.
func MustVerify() {
	t := Default()
	if got, ok := t.VerifyHash(); !ok {
		panic(fmt.Sprintf("interest: rate table reproducibility check failed: got %d, want %d",
			got, expectedTableHash))
	}
}

// rateAt returns R[n], clamping n into [0, MaxTableIndex].
func (t *Table) rateAt(n int64) *big.Int {
	if n < 0 {
		n = 0
	}
	if n > MaxTableIndex {
		n = MaxTableIndex
	}
	return t.rate[n]
}

// ValueWithInterest computes the principal-plus-accrued-interest value
// of a coin of the given value, created at createdHeight, valued at
// valuationHeight.
//
// If createdHeight < 0, valuationHeight < 0, or valuationHeight is
// before createdHeight, the value is returned unchanged (§4.3). Otherwise
// let n = min(MaxTableIndex, valuationHeight - createdHeight); the result
// is value + (value*R[n])/R[0] - value, computed exactly in u256 for the
// multiplication.
func (t *Table) ValueWithInterest(value int64, createdHeight, valuationHeight int64) int64 {
	if createdHeight < 0 || valuationHeight < 0 || valuationHeight < createdHeight {
		return value
	}

	n := valuationHeight - createdHeight
	rn := t.rateAt(n)

	principal := big.NewInt(value)
	product := new(big.Int).Mul(principal, rn)
	withInterest := new(big.Int).Div(product, rateTableSeed)

	return withInterest.Int64()
}

// ValueWithInterest is a package-level convenience that evaluates
// against the shared, verified table.
func ValueWithInterest(value int64, createdHeight, valuationHeight int64) int64 {
	return Default().ValueWithInterest(value, createdHeight, valuationHeight)
}

// RateAt exposes R[n] (clamped into range) for tests and for callers
// that need the raw compounding factor rather than an applied value.
func (t *Table) RateAt(n int64) *big.Int {
	return new(big.Int).Set(t.rateAt(n))
}
