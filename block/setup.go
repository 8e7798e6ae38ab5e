// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/background"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/metrics"
	"github.com/bitmark-inc/logger"
)

// defaults
const (
	defaultOrphanStorageCapacity = 720
	defaultPruningInterval       = 50
	defaultCleanupInterval       = time.Minute
)

// Config - orphan pool and pruning limits
type Config struct {
	// orphans kept once the pool is cleaned
	OrphanStorageCapacity int `gluamapper:"orphan_storage_capacity" json:"orphanStorageCapacity"`

	// clean the pool after adding a block once it holds more than
	// this many orphans, zero leaves it to the background cleaner
	OrphanCleanOutThreshold int `gluamapper:"orphan_clean_out_threshold" json:"orphanCleanOutThreshold"`

	// blocks of full outputs kept below the tip, zero is archival
	PruningHorizon uint64 `gluamapper:"pruning_horizon" json:"pruningHorizon"`

	// prune only once the horizon has moved this many blocks
	PruningInterval uint64 `gluamapper:"pruning_interval" json:"pruningInterval"`

	// how often the background cleaner runs, zero disables it
	CleanupInterval time.Duration `gluamapper:"cleanup_interval" json:"cleanupInterval"`
}

// DefaultConfig - limits for a new node
func DefaultConfig() Config {
	return Config{
		OrphanStorageCapacity: defaultOrphanStorageCapacity,
		PruningInterval:       defaultPruningInterval,
		CleanupInterval:       defaultCleanupInterval,
	}
}

// BlockchainDatabase - chain state above the storage backend: adding
// blocks, orphans, reorgs and pruning
//
// fetch methods of the backend are available directly
type BlockchainDatabase struct {
	chainstorage.Backend

	sync.RWMutex

	log       *logger.L
	validator Validator
	config    Config

	addBlockDisabled int32

	background *background.T
}

// New - wrap a backend, storing the genesis block if the backend is
// empty or checking it if not
//
// a nil validator accepts every block
func New(backend chainstorage.Backend, genesis *blockrecord.Block, validator Validator, config Config) (*BlockchainDatabase, error) {
	log := logger.New("block")
	if nil == log {
		return nil, fault.ErrInvalidLoggerChannel
	}

	if nil == validator {
		validator = acceptAll{}
	}

	bc := &BlockchainDatabase{
		Backend:   backend,
		log:       log,
		validator: validator,
		config:    config,
	}

	err := bc.initialise(genesis)
	if nil != err {
		return nil, err
	}

	if config.CleanupInterval > 0 {
		processes := background.Processes{
			&orphanCleaner{
				bc:       bc,
				interval: config.CleanupInterval,
			},
		}
		bc.background = background.Start(processes, nil)
	}

	return bc, nil
}

// Stop - stop the background cleaner, the backend stays open
func (bc *BlockchainDatabase) Stop() {
	bc.background.Stop()
	bc.background = nil
}

// Config - the limits in force
func (bc *BlockchainDatabase) Config() Config {
	bc.RLock()
	defer bc.RUnlock()
	return bc.config
}

// SetOrphanLimits - change the orphan pool limits of a running node
func (bc *BlockchainDatabase) SetOrphanLimits(capacity int, threshold int) {
	bc.Lock()
	defer bc.Unlock()

	bc.log.Infof("orphan limits  capacity: %d  clean out threshold: %d", capacity, threshold)
	bc.config.OrphanStorageCapacity = capacity
	bc.config.OrphanCleanOutThreshold = threshold
}

func (bc *BlockchainDatabase) initialise(genesis *blockrecord.Block) error {
	log := bc.log

	empty, err := bc.IsEmpty()
	if nil != err {
		return err
	}

	if empty {
		if nil == genesis {
			return fault.ErrNoGenesisBlock
		}
		log.Infof("empty store, inserting genesis: %s", genesis.Hash())
		err := bc.insertGenesis(genesis)
		if nil != err {
			return err
		}
	} else if nil != genesis {
		stored, err := bc.FetchChainHeaderByHeight(0)
		if nil != err {
			return err
		}
		if stored.Hash() != genesis.Hash() {
			log.Criticalf("genesis mismatch  stored: %s  expected: %s", stored.Hash(), genesis.Hash())
			return errors.Wrapf(fault.ErrNoGenesisBlock, "stored: %s", stored.Hash())
		}
	}

	metadata, err := bc.FetchChainMetadata()
	if nil != err {
		return err
	}
	if metadata.PruningHorizon != bc.config.PruningHorizon {
		log.Infof("pruning horizon: %d  was: %d", bc.config.PruningHorizon, metadata.PruningHorizon)
		err := bc.Write(chainstorage.NewDbTransaction().SetPruningHorizonConfig(bc.config.PruningHorizon))
		if nil != err {
			return err
		}
	}

	log.Infof("tip height: %d  best block: %s", metadata.HeightOfLongestChain, metadata.BestBlock)
	metrics.TipHeight.Set(float64(metadata.HeightOfLongestChain))
	return nil
}

// genesis has unit difficulty and no parent
func (bc *BlockchainDatabase) insertGenesis(genesis *blockrecord.Block) error {
	header := genesis.Header
	if 0 != header.Height {
		return errors.Wrapf(fault.ErrNoGenesisBlock, "height: %d", header.Height)
	}

	accumulated := &blockrecord.HeaderAccumulatedData{
		Hash:                       header.Hash(),
		TotalKernelOffset:          header.TotalKernelOffset,
		AchievedDifficulty:         1,
		TargetDifficulty:           1,
		TotalAccumulatedDifficulty: big.NewInt(1),
	}
	chainBlock, err := blockrecord.NewChainBlock(genesis, accumulated)
	if nil != err {
		return err
	}

	txn := chainstorage.NewDbTransaction().
		InsertTipBlockBody(chainBlock).
		SetBestBlock(0, chainBlock.Hash(), accumulated.TotalAccumulatedDifficulty, blockdigest.Digest{}, header.Timestamp)
	return bc.Write(txn)
}

// DisableAddBlock - refuse new blocks, e.g. while syncing
func (bc *BlockchainDatabase) DisableAddBlock() {
	atomic.StoreInt32(&bc.addBlockDisabled, 1)
}

// EnableAddBlock - accept new blocks again
func (bc *BlockchainDatabase) EnableAddBlock() {
	atomic.StoreInt32(&bc.addBlockDisabled, 0)
}

// IsAddBlockDisabled - true between DisableAddBlock and EnableAddBlock
func (bc *BlockchainDatabase) IsAddBlockDisabled() bool {
	return 0 != atomic.LoadInt32(&bc.addBlockDisabled)
}
