// Copyright (c) 2024 The Membercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/baby636-sketch/Membercoin/core/types"
)

func TestRespendLimiterAllowsUpToConfiguredRate(t *testing.T) {
	r := newRespendLimiter(3)
	op := types.OutPoint{Index: 1}
	now := time.Unix(0, 0)

	assert.True(t, r.allow(op, now))
	assert.True(t, r.allow(op, now))
	assert.True(t, r.allow(op, now))
	assert.False(t, r.allow(op, now))
}

func TestRespendLimiterDecaysOverTime(t *testing.T) {
	r := newRespendLimiter(1)
	op := types.OutPoint{Index: 2}
	now := time.Unix(0, 0)

	assert.True(t, r.allow(op, now))
	assert.False(t, r.allow(op, now))

	later := now.Add(time.Minute)
	assert.True(t, r.allow(op, later))
}

func TestRespendLimiterDisabledWhenRateIsZero(t *testing.T) {
	r := newRespendLimiter(0)
	op := types.OutPoint{Index: 3}
	now := time.Unix(0, 0)

	for i := 0; i < 100; i++ {
		assert.True(t, r.allow(op, now))
	}
}

func TestDecayFactorHalvesOverOneMinute(t *testing.T) {
	got := decayFactor(60)
	assert.InDelta(t, 0.5, got, 0.0001)
}
