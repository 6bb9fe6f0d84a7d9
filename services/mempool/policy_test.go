// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baby636-sketch/Membercoin/core/types"
)

func TestCalcMinRequiredFee(t *testing.T) {
	assert.Equal(t, int64(0), calcMinRequiredFee(500, 0))
	assert.Equal(t, int64(500), calcMinRequiredFee(1000, 500))
	assert.Equal(t, int64(250), calcMinRequiredFee(500, 500))
	assert.Equal(t, int64(500), calcMinRequiredFee(1, 500))
}

func TestIsDust(t *testing.T) {
	out := types.NewTxOut(100, []byte{0x51})
	assert.True(t, isDust(out, 100000))

	out = types.NewTxOut(1000000, []byte{0x51})
	assert.False(t, isDust(out, 1000))

	unspendable := types.NewTxOut(0, []byte{0x6a})
	assert.False(t, isDust(unspendable, 1000000000))
}

func TestCheckTransactionStandardRejectsOversizedOpReturn(t *testing.T) {
	tx := types.NewTransaction()
	tx.AddTxIn(types.NewTxIn(&types.OutPoint{Index: 0}, nil))
	payload := make([]byte, 300)
	pkScript := append([]byte{0x6a}, payload...)
	tx.AddTxOut(types.NewTxOut(0, pkScript))

	err := checkTransactionStandard(tx, 1000, 223)
	require.Error(t, err)
	assert.Equal(t, RejectNonstandard, RejectCodeOf(err))
}

func TestCheckTransactionStandardRejectsDust(t *testing.T) {
	tx := types.NewTransaction()
	tx.AddTxIn(types.NewTxIn(&types.OutPoint{Index: 0}, nil))
	tx.AddTxOut(types.NewTxOut(1, []byte{0x51}))

	err := checkTransactionStandard(tx, 100000, 223)
	require.Error(t, err)
	assert.Equal(t, RejectDust, RejectCodeOf(err))
}

func TestCheckTransactionStandardAcceptsOrdinaryPayment(t *testing.T) {
	tx := types.NewTransaction()
	tx.AddTxIn(types.NewTxIn(&types.OutPoint{Index: 0}, nil))
	tx.AddTxOut(types.NewTxOut(100000, []byte{0x51}))

	assert.NoError(t, checkTransactionStandard(tx, 1000, 223))
}
