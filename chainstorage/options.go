// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"github.com/bitmark-inc/chainstore/storage"
)

// defaults
const (
	defaultMapSize         = 1024 * 1024 * 1024
	defaultGrowBy          = 256 * 1024 * 1024
	defaultHeaderCacheSize = 1000

	// number of attempts Write makes before giving up on a transaction
	// that keeps exceeding the map size
	maxWriteAttempts = 5
)

// ConsensusConstants - the side chain parameters the store needs
type ConsensusConstants struct {
	EpochLength          uint64 `gluamapper:"epoch_length" json:"epochLength"`
	ValidityPeriodEpochs uint64 `gluamapper:"validity_period_epochs" json:"validityPeriodEpochs"`
	ShuffleInterval      uint64 `gluamapper:"shuffle_interval" json:"shuffleInterval"`
}

// EpochOf - the epoch containing a height
func (c ConsensusConstants) EpochOf(height uint64) uint64 {
	if 0 == c.EpochLength {
		return 0
	}
	return height / c.EpochLength
}

// Options - how a LevelDBDatabase is opened
type Options struct {
	Storage         storage.Options
	HeaderCacheSize int

	// bad blocks more than this far below the tip are forgotten when a
	// new bad block is recorded; zero keeps them all
	CleanBadBlocksBeforeRelHeight uint64

	Constants ConsensusConstants
}

// DefaultOptions - options for a new node
func DefaultOptions() Options {
	return Options{
		Storage: storage.Options{
			MapSize: defaultMapSize,
			GrowBy:  defaultGrowBy,
		},
		HeaderCacheSize: defaultHeaderCacheSize,
		Constants: ConsensusConstants{
			EpochLength:          10,
			ValidityPeriodEpochs: 100,
			ShuffleInterval:      100,
		},
	}
}
