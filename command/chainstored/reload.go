// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitmark-inc/chainstore/configuration"
	"github.com/bitmark-inc/logger"
)

// the part of the chain that can change while running
type orphanLimiter interface {
	SetOrphanLimits(capacity int, threshold int)
}

// re-reads the configuration file whenever it changes and applies the
// orphan pool limits
type configReloader struct {
	log       *logger.L
	fileName  string
	variables map[string]string
	watcher   *configuration.Watcher
	limiter   orphanLimiter
}

func (r *configReloader) Run(args interface{}, shutdown <-chan struct{}) {
	r.log.Info("starting…")

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case <-r.watcher.Change():
			if err := r.reload(); nil != err {
				r.log.Errorf("reload: %q  error: %s", r.fileName, err)
			}

		case <-r.watcher.Remove():
			r.log.Warnf("configuration file: %q removed, limits stay as they are", r.fileName)
		}
	}

	r.watcher.Stop()
	r.log.Info("shutting down…")
}

func (r *configReloader) reload() error {
	options, err := getConfiguration(r.fileName, r.variables)
	if nil != err {
		return err
	}
	r.limiter.SetOrphanLimits(options.Block.OrphanStorageCapacity, options.Block.OrphanCleanOutThreshold)
	return nil
}
