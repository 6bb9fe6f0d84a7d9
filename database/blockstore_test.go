// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
)

func sampleBlock() *types.Block {
	tx := types.NewTransaction()
	prevOut := types.OutPoint{}
	tx.AddTxIn(types.NewTxIn(&prevOut, []byte{0x51}))
	tx.AddTxOut(types.NewTxOut(5000000000, []byte{0x51}))

	return &types.Block{
		Header: types.BlockHeader{
			Version:   1,
			PrevBlock: hash.ZeroHash,
			Timestamp: 1700000000,
			Bits:      0x1d00ffff,
			Nonce:     7,
		},
		Transactions: []*types.Transaction{tx},
	}
}

func TestFlatFileBlockStoreRoundTrip(t *testing.T) {
	store, err := OpenBlockStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	b := sampleBlock()
	root, err := b.ComputeMerkleRoot()
	require.NoError(t, err)
	b.Header.MerkleRoot = root

	fileNum, offset, err := store.WriteBlock(b)
	require.NoError(t, err)

	got, err := store.ReadBlock(fileNum, offset)
	require.NoError(t, err)
	require.Equal(t, b.Header.Bits, got.Header.Bits)
	require.Equal(t, b.Header.Nonce, got.Header.Nonce)
	require.Len(t, got.Transactions, 1)
}

func TestFlatFileUndoRoundTrip(t *testing.T) {
	store, err := OpenBlockStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	rec := &UndoRecord{
		SpentCoins: [][]*types.Coin{
			{types.NewCoin(types.TxOut{Value: 2500, PkScript: []byte{0x76}}, 10, false)},
		},
	}
	offset, err := store.WriteUndo(rec, 0)
	require.NoError(t, err)

	got, err := store.ReadUndo(0, offset)
	require.NoError(t, err)
	require.Len(t, got.SpentCoins, 1)
	require.Equal(t, int64(2500), got.SpentCoins[0][0].Output.Value)
}
