// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package params carries the chain-wide consensus parameters the core
// needs to validate blocks and transactions. It intentionally excludes
// anything assembled from CLI flags or config files (RPC ports, data
// directories, peer addresses): those remain the caller's concern.
package params

import (
	"time"

	"github.com/baby636-sketch/Membercoin/core/types"
)

// Params holds the consensus-relevant parameters for one network
// (mainnet, testnet, simnet, ...).
type Params struct {
	// Name is a human-readable network identifier, used only in logs.
	Name string

	// GenesisBlock is the first block of the chain.
	GenesisBlock *types.Block

	// GenesisHash is the precomputed BLAKE3 hash of GenesisBlock's header.
	GenesisHash [32]byte

	// PowLimitBits is the compact-target encoding of the easiest allowed
	// difficulty.
	PowLimitBits uint32

	// TargetTimespan is the desired amount of time it should take to
	// retarget difficulty.
	TargetTimespan time.Duration

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// RetargetAdjustmentFactor is the multiplicative factor used when
	// clamping a difficulty retarget.
	RetargetAdjustmentFactor int64

	// SubsidyReductionInterval is the number of blocks between each
	// halving of the block subsidy.
	SubsidyReductionInterval int64

	// BaseSubsidy is the initial coinbase subsidy paid at height 0, in
	// satoshis, before any halving is applied.
	BaseSubsidy int64

	// CoinbaseMaturity is the number of blocks that must pass before a
	// coinbase output may be spent. This chain uses 20, not the more
	// common 100 — a deliberate, load-bearing deviation, not a bug.
	CoinbaseMaturity uint16

	// MaxBlockSize is the excessive-block-size threshold in bytes.
	MaxBlockSize uint64

	// MaxSigOpsPerTx bounds the sigops a single transaction may spend.
	MaxSigOpsPerTx int

	// MaxSigChecksPerTx bounds the sigchecks a single transaction may spend.
	MaxSigChecksPerTx int

	// CanonicalTxOrderActivationHeight is the height at which block
	// transactions (other than the coinbase) must be ordered by
	// ascending txid rather than the order the miner chose.
	CanonicalTxOrderActivationHeight uint32

	// MinRelayTxFeePerKB is the minimum fee rate, in satoshis per 1000 bytes,
	// a transaction must pay to be relayed/admitted to the mempool.
	MinRelayTxFeePerKB int64
}

// MaxSigOpsPerMB is the number of sigops permitted per megabyte of block
// size (rounded up), per §4.4.
const MaxSigOpsPerMB = 20000

// MaxSigChecksPerMBDivisor divides the block size to get the maximum
// sigchecks permitted for a block of that size, per §4.4.
const MaxSigChecksPerMBDivisor = 141

// MaxTxSigOpsCount is the absolute per-transaction sigop ceiling.
const MaxTxSigOpsCount = 20000

// MaxTxSigChecksCount is the absolute per-transaction sigcheck ceiling.
const MaxTxSigChecksCount = 3000

// MaxOpReturnRelaySize is the default maximum payload size, in bytes,
// permitted in a relayed OP_RETURN output.
const MaxOpReturnRelaySize = 223

// MainNetParams are the parameters for the Membercoin main network.
var MainNetParams = Params{
	Name:                     "mainnet",
	GenesisBlock:             &mainNetGenesisBlock,
	GenesisHash:              mainNetGenesisHash,
	PowLimitBits:             0x1d00ffff,
	TargetTimespan:           time.Hour * 24 * 14,
	TargetTimePerBlock:       time.Minute * 10,
	RetargetAdjustmentFactor: 4,
	SubsidyReductionInterval: 210000,
	BaseSubsidy:              50 * 1e8,
	CoinbaseMaturity:         20,
	MaxBlockSize:             32 * 1024 * 1024,
	MaxSigOpsPerTx:           MaxTxSigOpsCount,
	MaxSigChecksPerTx:        MaxTxSigChecksCount,
	MinRelayTxFeePerKB:       1000,
}

// MaxSigOpsForBlockSize returns the sigop budget for a block of the
// given serialized size, rounding up to the next whole megabyte.
func MaxSigOpsForBlockSize(blockSize uint64) int {
	megabytes := (blockSize + (1024*1024 - 1)) / (1024 * 1024)
	if megabytes < 1 {
		megabytes = 1
	}
	return int(megabytes) * MaxSigOpsPerMB
}

// MaxSigChecksForBlockSize returns the sigcheck budget for a block of
// the given serialized size.
func MaxSigChecksForBlockSize(blockSize uint64) int {
	return int(blockSize / MaxSigChecksPerMBDivisor)
}
