// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
)

func TestBoltUtxoStoreRoundTrip(t *testing.T) {
	store, err := OpenUtxoStore(filepath.Join(t.TempDir(), "utxo.db"))
	require.NoError(t, err)
	defer store.Close()

	op := types.OutPoint{Hash: hash.DoubleSHA256([]byte("tx1")), Index: 1}
	coin := types.NewCoin(types.TxOut{Value: 5000, PkScript: []byte{0x76, 0xa9}}, 100, false)

	_, err = store.GetCoin(op)
	require.ErrorIs(t, err, ErrNotFound)

	best := hash.DoubleSHA256([]byte("block1"))
	err = store.BatchWrite(map[types.OutPoint]*types.Coin{op: coin}, nil, best)
	require.NoError(t, err)

	got, err := store.GetCoin(op)
	require.NoError(t, err)
	require.Equal(t, coin.Output.Value, got.Output.Value)
	require.Equal(t, coin.Output.PkScript, got.Output.PkScript)
	require.Equal(t, coin.Height, got.Height)
	require.Equal(t, coin.Coinbase, got.Coinbase)

	gotBest, err := store.BestBlock()
	require.NoError(t, err)
	require.True(t, best.IsEqual(&gotBest))
}

func TestBoltUtxoStoreBatchDelete(t *testing.T) {
	store, err := OpenUtxoStore(filepath.Join(t.TempDir(), "utxo.db"))
	require.NoError(t, err)
	defer store.Close()

	op := types.OutPoint{Hash: hash.DoubleSHA256([]byte("tx2")), Index: 0}
	coin := types.NewCoin(types.TxOut{Value: 1000}, 1, true)

	require.NoError(t, store.BatchWrite(map[types.OutPoint]*types.Coin{op: coin}, nil, hash.ZeroHash))
	_, err = store.GetCoin(op)
	require.NoError(t, err)

	require.NoError(t, store.BatchWrite(nil, []types.OutPoint{op}, hash.ZeroHash))
	_, err = store.GetCoin(op)
	require.ErrorIs(t, err, ErrNotFound)
}
