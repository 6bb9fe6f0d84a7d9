// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jrick/logrotate/rotator"
	"github.com/mattn/go-colorable"

	"github.com/baby636-sketch/Membercoin/core/blockchain"
	"github.com/baby636-sketch/Membercoin/services/mempool"
)

// logWriter fans every log line out to both a rotating on-disk file and
// (when attached to a real terminal) a color-aware stderr stream.
type logWriter struct {
	fileRotator *rotator.Rotator
	colorWriter io.Writer
}

func newLogWriter() *logWriter {
	lw := &logWriter{}
	if isatty := os.Getenv("TERM") != "dumb"; isatty {
		lw.colorWriter = colorable.NewColorableStderr()
	}
	return lw
}

func (lw *logWriter) Write(p []byte) (int, error) {
	if lw.fileRotator != nil {
		lw.fileRotator.Write(p)
	}
	if lw.colorWriter != nil {
		return lw.colorWriter.Write(p)
	}
	return os.Stderr.Write(p)
}

func (lw *logWriter) Close() {
	if lw.fileRotator != nil {
		lw.fileRotator.Close()
	}
}

// LogConfig selects where this node's structured log output goes: an
// optional rotating log file, plus stderr (colorized on a real terminal).
type LogConfig struct {
	// LogFile, if non-empty, is rotated via jrick/logrotate once it
	// exceeds 10MB; MaxRollFiles old files are kept (3 if unset).
	LogFile      string
	MaxRollFiles int
}

// initLogging wires the node's own logger and every subsystem package's
// UseLogger hook to a single glog-style root handler, mirroring the
// teacher's root log.go wiring.
func initLogging(cfg LogConfig) (*logWriter, error) {
	lw := newLogWriter()
	if cfg.LogFile != "" {
		maxRolls := cfg.MaxRollFiles
		if maxRolls <= 0 {
			maxRolls = 3
		}
		r, err := rotator.New(cfg.LogFile, 10*1024, false, maxRolls)
		if err != nil {
			return nil, err
		}
		lw.fileRotator = r
	}

	handler := log.NewGlogHandler(log.StreamHandler(lw, log.TerminalFormat(lw.colorWriter != nil)))
	handler.Verbosity(log.LvlInfo)
	log.Root().SetHandler(handler)

	blockchain.UseLogger(log.New("module", "blockchain"))
	mempool.UseLogger(log.New("module", "mempool"))

	return lw, nil
}
