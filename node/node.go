// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node wires every subsystem of the chain core together behind a
// single owned struct and exposes the plain Go interfaces an outer
// network, RPC, or wallet layer consumes: submit_block, submit_transaction,
// get_block_template, get_coin, get_tip, get_header, and the tip-change/
// tx-accepted subscription channels.
package node

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/baby636-sketch/Membercoin/core/blockchain"
	"github.com/baby636-sketch/Membercoin/core/interest"
	"github.com/baby636-sketch/Membercoin/database"
	"github.com/baby636-sketch/Membercoin/params"
	"github.com/baby636-sketch/Membercoin/services/mempool"
)

// Node is a server container wiring the chain, the mempool, and the event
// feeds an outer layer subscribes to — the owned-struct replacement for
// the process-wide mutable singletons earlier full-node designs relied on.
type Node struct {
	lock sync.RWMutex

	params *params.Params
	chain  *blockchain.Chain
	pool   *mempool.TxPool

	tipFeed event.Feed
	txFeed  event.Feed
	dsFeed  event.Feed

	logWriter *logWriter

	quit      chan struct{}
	closeOnce sync.Once
}

// Config bundles everything NewNode needs to construct a running Node.
type Config struct {
	Params        *params.Params
	Coins         database.UtxoStore
	Blocks        database.BlockStore
	IndexStore    database.BlockIndexStore // optional; nil means genesis-only, no resume
	MempoolPolicy mempool.Policy
	Clock         blockchain.WallClock
	Log           LogConfig
}

// NewNode constructs and starts every subsystem: the startup rate-table
// assertion, the chain (seeded at genesis or resumed from the store), and
// the mempool's admission workers, taking a params/database pair and
// handing back a running Node.
func NewNode(cfg Config) (*Node, error) {
	interest.MustVerify()

	lw, err := initLogging(cfg.Log)
	if err != nil {
		return nil, err
	}

	coins := blockchain.NewCoinsCache(cfg.Coins)
	chain, err := blockchain.NewChainFromStore(cfg.Params, coins, cfg.Blocks, cfg.IndexStore)
	if err != nil {
		return nil, err
	}

	n := &Node{
		params:    cfg.Params,
		chain:     chain,
		logWriter: lw,
		quit:      make(chan struct{}),
	}

	n.pool = mempool.New(mempool.Config{
		Chain:               chain,
		Policy:              cfg.MempoolPolicy,
		Clock:               cfg.Clock,
		DoubleSpendNotifier: n,
	})
	n.bridgeMempoolEvents()

	log.Info("node started", "network", cfg.Params.Name, "tip", chain.TipHash())
	return n, nil
}

// Chain returns the underlying validation engine, for components (a miner,
// a block explorer) that need lower-level access than the plain-interface
// surface above offers.
func (n *Node) Chain() *blockchain.Chain { return n.chain }

// Pool returns the underlying mempool.
func (n *Node) Pool() *mempool.TxPool { return n.pool }

// Stop shuts down the mempool's background goroutines and closes the log
// writer. It does not close the UTXO, block-index or block stores. Safe
// to call more than once.
func (n *Node) Stop() error {
	n.closeOnce.Do(func() {
		log.Info("stopping node")
		close(n.quit)
		n.pool.Close()
		if n.logWriter != nil {
			n.logWriter.Close()
		}
	})
	return nil
}

// WaitForShutdown blocks until sig fires, then stops the node.
func (n *Node) WaitForShutdown(sig ShutdownSignal) error {
	<-sig.Done()
	return n.Stop()
}
