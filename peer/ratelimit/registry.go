// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ratelimit

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Registry - one limiter per key, a limiter idle for longer than the
// expiry is dropped and the key starts again with a full burst
type Registry struct {
	sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
}

// NewRegistry - limiters allowing limit events per second with the
// given burst
func NewRegistry(limit rate.Limit, burst int, expiry time.Duration) *Registry {
	return &Registry{
		limiters: cache.New(expiry, 2*expiry),
		limit:    limit,
		burst:    burst,
	}
}

// Get - the limiter for key, created on first use
func (reg *Registry) Get(key string) *rate.Limiter {
	reg.Lock()
	defer reg.Unlock()

	if l, found := reg.limiters.Get(key); found {
		limiter := l.(*rate.Limiter)

		// touch to extend the expiry
		reg.limiters.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(reg.limit, reg.burst)
	reg.limiters.SetDefault(key, limiter)
	return limiter
}

// Count - number of live limiters
func (reg *Registry) Count() int {
	return reg.limiters.ItemCount()
}
