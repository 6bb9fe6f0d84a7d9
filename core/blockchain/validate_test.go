// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baby636-sketch/Membercoin/common/hash"
	"github.com/baby636-sketch/Membercoin/core/pow"
	"github.com/baby636-sketch/Membercoin/core/types"
	"github.com/baby636-sketch/Membercoin/engine/txscript"
	"github.com/baby636-sketch/Membercoin/params"
)

// easyBits is a very permissive compact target (exponent 32, mantissa
// 0xff, about 2^240): on the order of 1 in 2^16 random hashes satisfy it,
// cheap to find by brute force in a test.
const easyBits uint32 = 0x200000ff

// mineHeader searches nonces starting from 0 until header's hash
// satisfies bits, mutating header.Nonce in place.
func mineHeader(t *testing.T, header *types.BlockHeader, bits uint32) {
	t.Helper()
	header.Bits = bits
	for nonce := uint32(0); nonce < 5_000_000; nonce++ {
		header.Nonce = nonce
		h := header.BlockHash()
		if pow.CheckProofOfWork(&h, bits) {
			return
		}
	}
	t.Fatalf("failed to mine a header satisfying bits %x within the search budget", bits)
}

type fixedClock time.Time

func (f fixedClock) Now() time.Time { return time.Time(f) }

func TestCheckBlockHeaderSanityAcceptsMinedHeader(t *testing.T) {
	header := &types.BlockHeader{
		Version:    1,
		PrevBlock:  hash.ZeroHash,
		MerkleRoot: hash.ZeroHash,
		Timestamp:  1296688602,
	}
	mineHeader(t, header, easyBits)

	err := checkBlockHeaderSanity(header, fixedClock(time.Unix(2000000000, 0)))
	assert.NoError(t, err)
}

func TestCheckBlockHeaderSanityRejectsOverflowBits(t *testing.T) {
	header := &types.BlockHeader{Bits: 0x21010000}
	err := checkBlockHeaderSanity(header, fixedClock(time.Unix(2000000000, 0)))
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrHighHash, ruleErr.ErrorCode)
}

func TestCheckBlockHeaderSanityRejectsTooFarFuture(t *testing.T) {
	header := &types.BlockHeader{
		Version:    1,
		PrevBlock:  hash.ZeroHash,
		MerkleRoot: hash.ZeroHash,
		Timestamp:  uint32(time.Unix(2000000000, 0).Add(3 * time.Hour).Unix()),
	}
	mineHeader(t, header, easyBits)

	err := checkBlockHeaderSanity(header, fixedClock(time.Unix(2000000000, 0)))
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrTimeTooNew, ruleErr.ErrorCode)
}

func TestContextualCheckHeaderRejectsStaleTimestamp(t *testing.T) {
	genesisHeader := &types.BlockHeader{Timestamp: 1000000, Bits: easyBits}
	parent := newBlockNode(genesisHeader, nil)

	header := &types.BlockHeader{Timestamp: 999999, Bits: easyBits}
	err := contextualCheckHeader(header, parent, &params.MainNetParams)
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrTimeTooOld, ruleErr.ErrorCode)
}

func TestContextualCheckHeaderRejectsWrongDifficulty(t *testing.T) {
	genesisHeader := &types.BlockHeader{Timestamp: 1000000, Bits: easyBits}
	parent := newBlockNode(genesisHeader, nil)

	header := &types.BlockHeader{Timestamp: 1000600, Bits: easyBits - 1}
	err := contextualCheckHeader(header, parent, &params.MainNetParams)
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrUnexpectedDifficulty, ruleErr.ErrorCode)
}

func TestCalcNextRequiredDifficultyCarriesForwardBetweenRetargets(t *testing.T) {
	p := params.MainNetParams
	genesisHeader := &types.BlockHeader{Timestamp: 1000000, Bits: easyBits}
	parent := newBlockNode(genesisHeader, nil)

	got := calcNextRequiredDifficulty(parent, 1000600, &p)
	assert.Equal(t, easyBits, got, "bits must carry forward off a retarget boundary")
}

func TestCalcNextRequiredDifficultyRetargetsAtBoundary(t *testing.T) {
	p := params.MainNetParams
	p.TargetTimespan = 10 * time.Minute
	p.TargetTimePerBlock = time.Minute

	var node *blockNode
	startBits := params.MainNetParams.PowLimitBits
	header := &types.BlockHeader{Timestamp: 1000000, Bits: startBits}
	node = newBlockNode(header, nil)

	// Chain 10 blocks at 1 second apart (far faster than the 1-minute
	// target), landing exactly on the retarget boundary (height 10 with
	// blocksPerRetarget = 10/1 = 10).
	ts := int64(1000000)
	for i := 0; i < 9; i++ {
		ts++
		h := &types.BlockHeader{Timestamp: uint32(ts), Bits: startBits}
		node = newBlockNode(h, node)
	}

	got := calcNextRequiredDifficulty(node, ts+1, &p)
	// Actual timespan (9 seconds) is far below target (600s), clamped to
	// target/RetargetAdjustmentFactor, so the new target must shrink
	// (difficulty increases): the resulting bits must differ from the
	// carried-forward value on a chain this far ahead of schedule.
	assert.NotEqual(t, startBits, got)
}

func TestCheckBlockSanityRejectsMissingCoinbase(t *testing.T) {
	tx := types.NewTransaction()
	tx.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: hash.Hash{1}, Index: 0}, []byte{0x51}))
	padding := make([]byte, 60)
	for i := range padding {
		padding[i] = 0x61
	}
	tx.AddTxOut(types.NewTxOut(1, append([]byte{0x51}, padding...)))

	block := &types.Block{
		Header:       types.BlockHeader{},
		Transactions: []*types.Transaction{tx},
	}
	root, err := block.ComputeMerkleRoot()
	require.NoError(t, err)
	block.Header.MerkleRoot = root

	err = checkBlockSanity(block, &params.MainNetParams)
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrFirstTxNotCoinbase, ruleErr.ErrorCode)
}

func TestCheckBlockSanityRejectsBadMerkleRoot(t *testing.T) {
	block := &types.Block{
		Header:       types.BlockHeader{MerkleRoot: hash.Hash{9}},
		Transactions: []*types.Transaction{coinbaseTx(t, 1, 50*1e8)},
	}

	err := checkBlockSanity(block, &params.MainNetParams)
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrBadMerkleRoot, ruleErr.ErrorCode)
}

func TestCheckBlockSanityRejectsPerTxSigOpCap(t *testing.T) {
	p := params.MainNetParams
	p.MaxSigOpsPerTx = 1

	cb := coinbaseTx(t, 1, 50*1e8)

	padding := make([]byte, 60)
	for i := range padding {
		padding[i] = 0x61
	}
	pkScript := append([]byte{txscript.OP_CHECKSIG, txscript.OP_CHECKSIG}, padding...)

	spend := types.NewTransaction()
	spend.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: hash.Hash{1}, Index: 0}, []byte{0x51}))
	spend.AddTxOut(types.NewTxOut(1, pkScript))

	block := &types.Block{Transactions: []*types.Transaction{cb, spend}}
	root, err := block.ComputeMerkleRoot()
	require.NoError(t, err)
	block.Header.MerkleRoot = root

	err = checkBlockSanity(block, &p)
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrTxTooManySigOps, ruleErr.ErrorCode)
}

func TestCheckCoinbaseHeightAcceptsMatchingHeight(t *testing.T) {
	cb := coinbaseTx(t, 42, 50*1e8)
	assert.NoError(t, checkCoinbaseHeight(cb, 42))
}

func TestCheckCoinbaseHeightRejectsMismatch(t *testing.T) {
	cb := coinbaseTx(t, 42, 50*1e8)
	err := checkCoinbaseHeight(cb, 43)
	var ruleErr RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, ErrBadCoinbaseHeight, ruleErr.ErrorCode)
}

func TestSerializeScriptNumRoundTripsSmallValues(t *testing.T) {
	cases := []int64{0, 1, 17, 127, 128, 255, 256, -1, -128, -255}
	for _, n := range cases {
		encoded := serializeScriptNum(n)
		got := decodeScriptNumForTest(encoded)
		assert.Equal(t, n, got, "serializeScriptNum(%d) did not decode back to itself", n)
	}
}

// decodeScriptNumForTest inverts serializeScriptNum's minimal
// little-endian two's-complement encoding, for round-trip assertions
// only; production code never needs to decode a pushed height back out.
func decodeScriptNumForTest(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	negative := b[len(b)-1]&0x80 != 0
	var result int64
	for i, by := range b {
		if i == len(b)-1 {
			by &^= 0x80
		}
		result |= int64(by) << (8 * uint(i))
	}
	if negative {
		result = -result
	}
	return result
}

// coinbaseTx builds a minimal, well-formed coinbase paying value at
// height, satisfying CheckBasicSanity's minimum-payload and
// signature-script-length bounds.
func coinbaseTx(t *testing.T, height int32, value int64) *types.Transaction {
	t.Helper()
	tx := types.NewTransaction()
	sig := serializeScriptNum(int64(height))
	sigScript := append([]byte{byte(len(sig))}, sig...)
	tx.AddTxIn(types.NewTxIn(&types.OutPoint{Hash: hash.ZeroHash, Index: types.MaxPrevOutIndex}, sigScript))
	padding := make([]byte, 80)
	for i := range padding {
		padding[i] = 0x61
	}
	pkScript := append([]byte{0x51}, padding...)
	tx.AddTxOut(types.NewTxOut(value, pkScript))
	return tx
}
