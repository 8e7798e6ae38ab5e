// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/peer/ratelimit"
)

func TestLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)

	err := ratelimit.Limit(context.Background(), limiter)
	assert.Nil(t, err, "first request")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = ratelimit.Limit(ctx, limiter)
	assert.Equal(t, context.Canceled, err, "wrong error")
}

func TestLimitN(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Millisecond), 5)

	err := ratelimit.LimitN(context.Background(), limiter, 3, 10)
	assert.Nil(t, err, "within burst")

	err = ratelimit.LimitN(context.Background(), limiter, 0, 10)
	assert.Equal(t, fault.ErrInvalidCount, err, "zero count")

	err = ratelimit.LimitN(context.Background(), limiter, 11, 10)
	assert.Equal(t, fault.ErrInvalidCount, err, "count above maximum")

	err = ratelimit.LimitN(context.Background(), limiter, 6, 10)
	assert.Equal(t, fault.ErrRateLimiting, err, "count above burst")
}

func TestRegistry(t *testing.T) {
	reg := ratelimit.NewRegistry(rate.Limit(10), 2, time.Minute)

	a := reg.Get("peer-a")
	assert.Same(t, a, reg.Get("peer-a"), "same key gave a new limiter")
	assert.Equal(t, 2, a.Burst(), "burst")

	b := reg.Get("peer-b")
	assert.NotSame(t, a, b, "different keys share a limiter")
	assert.Equal(t, 2, reg.Count(), "count")
}

func TestRegistryExpiry(t *testing.T) {
	reg := ratelimit.NewRegistry(rate.Limit(10), 2, 10*time.Millisecond)

	a := reg.Get("peer-a")
	time.Sleep(30 * time.Millisecond)
	assert.NotSame(t, a, reg.Get("peer-a"), "expired limiter was reused")
}
