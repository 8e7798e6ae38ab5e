// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"runtime"
	"time"

	"github.com/bitmark-inc/logger"
)

const (
	statsDelay = 60 * time.Second
	mega       = 1048576
)

// memory usage to the log, until shutdown
type memoryStats struct{}

func (memoryStats) Run(args interface{}, shutdown <-chan struct{}) {
	log := logger.New("memory")

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-time.After(statsDelay):
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		a := m.Alloc / mega
		t := m.TotalAlloc / mega
		s := m.Sys / mega
		log.Infof("allocated: %d M  cumulative: %d M  OS virtual: %d M  gc cycles: %d", a, t, s, m.NumGC)
	}
}
