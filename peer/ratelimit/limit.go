// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/chainstore/fault"
)

// Limit - wait for a single request, gives up if the context ends
// first
func Limit(ctx context.Context, limiter *rate.Limiter) error {
	r := limiter.Reserve()
	if !r.OK() {
		return fault.ErrRateLimiting
	}
	return wait(ctx, r)
}

// LimitN - wait for a request covering count items
func LimitN(ctx context.Context, limiter *rate.Limiter, count int, maximumCount int) error {
	// invalid count gets limited as a single request
	if count <= 0 || count > maximumCount {
		r := limiter.Reserve()
		if !r.OK() {
			return fault.ErrRateLimiting
		}
		if err := wait(ctx, r); nil != err {
			return err
		}
		return fault.ErrInvalidCount
	}

	r := limiter.ReserveN(time.Now(), count)
	if !r.OK() {
		return fault.ErrRateLimiting
	}
	return wait(ctx, r)
}

func wait(ctx context.Context, r *rate.Reservation) error {
	delay := r.Delay()
	if 0 == delay {
		return nil
	}
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
