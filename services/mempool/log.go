// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/ethereum/go-ethereum/log"

var pkgLog log.Logger = log.Root()

// UseLogger lets the calling program (normally the node package) install
// its own configured logger for this package's admission trace output.
func UseLogger(l log.Logger) {
	pkgLog = l
}
