// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"time"

	"github.com/bitmark-inc/chainstore/metrics"
	"github.com/bitmark-inc/logger"
)

// periodically shrinks the orphan pool
type orphanCleaner struct {
	bc       *BlockchainDatabase
	interval time.Duration
}

func (c *orphanCleaner) Run(args interface{}, shutdown <-chan struct{}) {
	log := logger.New("orphan-cleaner")

	log.Info("starting…")

loop:
	for {
		log.Debug("waiting…")
		select {
		case <-shutdown:
			log.Info("shutting down…")
			break loop

		case <-time.After(c.interval):
			err := c.bc.CleanupOrphans()
			if nil != err {
				log.Errorf("orphan cleanup: %s", err)
			}
		}
	}
}

// CleanupOrphans - trim the orphan pool to its configured capacity
func (bc *BlockchainDatabase) CleanupOrphans() error {
	bc.Lock()
	defer bc.Unlock()
	return bc.cleanupOrphans()
}

func (bc *BlockchainDatabase) cleanupOrphans() error {
	metadata, err := bc.FetchChainMetadata()
	if nil != err {
		return err
	}
	horizon := metadata.HorizonBlockHeight(metadata.HeightOfLongestChain)

	err = bc.DeleteOldestOrphans(horizon, bc.config.OrphanStorageCapacity)
	if nil != err {
		return err
	}

	n, err := bc.OrphanCount()
	if nil != err {
		return err
	}
	bc.log.Debugf("orphan pool: %d  horizon height: %d", n, horizon)
	metrics.OrphanPoolSize.Set(float64(n))
	return nil
}
