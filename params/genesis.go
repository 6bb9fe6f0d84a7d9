// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/types"
)

// genesisCoinbaseTx is the coinbase of the main network's genesis block.
// It is never spendable: it carries no real subsidy claim and exists
// only to give the genesis block a non-empty merkle tree.
var genesisCoinbaseTx = &types.Transaction{
	Version: 1,
	TxIn: []*types.TxIn{
		{
			PreviousOutPoint: types.OutPoint{Hash: hash.ZeroHash, Index: 0xffffffff},
			SignatureScript:  []byte{0x04, 0xff, 0xff, 0x00, 0x1d},
			Sequence:         types.MaxTxInSequenceNum,
		},
	},
	TxOut: []*types.TxOut{
		{
			Value:    0,
			PkScript: []byte{0x6a}, // OP_RETURN: the genesis subsidy is provably unspendable.
		},
	},
	LockTime: 0,
}

// genesisMerkleRoot hashes the lone genesis coinbase.
func genesisMerkleRoot() hash.Hash {
	block := &types.Block{
		Header:       types.BlockHeader{},
		Transactions: []*types.Transaction{genesisCoinbaseTx},
	}
	root, err := block.ComputeMerkleRoot()
	if err != nil {
		panic("params: failed to compute genesis merkle root: " + err.Error())
	}
	return root
}

// mainNetGenesisBlock is the first block of the main network chain. Like
// every genesis block, its proof of work is never checked: it is valid
// by definition, and its bits field only seeds the first retarget window.
var mainNetGenesisBlock = types.Block{
	Header: types.BlockHeader{
		Version:    1,
		PrevBlock:  hash.ZeroHash,
		MerkleRoot: genesisMerkleRoot(),
		Timestamp:  1296688602,
		Bits:       0x1d00ffff,
		Nonce:      2,
	},
	Transactions: []*types.Transaction{genesisCoinbaseTx},
}

var mainNetGenesisHash = mainNetGenesisBlock.Header.BlockHash()
