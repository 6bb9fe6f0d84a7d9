// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/ethereum/go-ethereum/log"

// pkgLog is the package-level logger every file in this package writes
// through. It defaults to a disabled logger so importers that never call
// UseLogger don't pay for or see any output.
var pkgLog log.Logger = log.Root()

// UseLogger lets the calling program (normally the node package) install
// its own configured logger for this package's trace/debug output,
// mirroring the teacher's per-package UseLogger convention.
func UseLogger(l log.Logger) {
	pkgLog = l
}
