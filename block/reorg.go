// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"time"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
)

func (bc *BlockchainDatabase) now() uint64 {
	return uint64(time.Now().Unix())
}

// RewindToHeight - remove main chain blocks above height, moving them
// into the orphan pool; headers above the tip are dropped
func (bc *BlockchainDatabase) RewindToHeight(height uint64) ([]*blockrecord.ChainBlock, error) {
	bc.Lock()
	defer bc.Unlock()
	return bc.rewindToHeight(height)
}

// returns the removed blocks highest first
func (bc *BlockchainDatabase) rewindToHeight(height uint64) ([]*blockrecord.ChainBlock, error) {
	log := bc.log

	metadata, err := bc.FetchChainMetadata()
	if nil != err {
		return nil, err
	}
	last, err := bc.FetchLastHeader()
	if nil != err {
		return nil, err
	}
	if height > last.Height {
		return nil, errors.Wrapf(fault.ErrInvalidArguments, "rewind to: %d  last header: %d", height, last.Height)
	}

	txn := chainstorage.NewDbTransaction()
	removed := []*blockrecord.ChainBlock{}

	for h := last.Height; h > height; h -= 1 {
		if h > metadata.HeightOfLongestChain {
			txn.DeleteHeader(h)
			continue
		}
		if h <= metadata.PrunedHeight {
			return nil, errors.Wrapf(fault.ErrBlockPruned, "rewind to: %d  pruned height: %d", height, metadata.PrunedHeight)
		}
		block, err := bc.fetchChainBlockAt(h)
		if nil != err {
			return nil, err
		}
		txn.DeleteTipBlock(block.Hash(), h)
		removed = append(removed, block)
	}

	if height < metadata.HeightOfLongestChain {
		fork, err := bc.FetchChainHeaderByHeight(height)
		if nil != err {
			return nil, err
		}
		txn.SetBestBlock(height, fork.Hash(), fork.Accumulated.TotalAccumulatedDifficulty, metadata.BestBlock, fork.Header.Timestamp)
	}

	for _, block := range removed {
		exists, err := bc.Contains(chainstorage.OrphanBlockKey(block.Hash()))
		if nil != err {
			return nil, err
		}
		if !exists {
			txn.InsertChainOrphanBlock(block)
		}
	}

	if txn.IsEmpty() {
		return removed, nil
	}

	log.Debugf("rewind to height: %d  blocks: %d  headers: %d", height, len(removed), last.Height-metadata.HeightOfLongestChain)
	err = bc.Write(txn)
	if nil != err {
		return nil, err
	}
	return removed, nil
}

// make the block the new tip, the block leaves the orphan pool
func (bc *BlockchainDatabase) insertBestBlock(block *blockrecord.ChainBlock, expectedPrev *blockrecord.ChainHeader) error {
	txn := chainstorage.NewDbTransaction().
		DeleteOrphan(block.Hash()).
		InsertTipBlockBody(block).
		SetBestBlock(
			block.Height(),
			block.Hash(),
			block.Accumulated.TotalAccumulatedDifficulty,
			expectedPrev.Hash(),
			block.Block.Header.Timestamp,
		)
	return bc.Write(txn)
}

// rewind to the fork and apply chain; if any block of chain is
// invalid it is recorded as bad and the previous chain is restored
//
// returns the blocks removed from the main chain, highest first
func (bc *BlockchainDatabase) reorganiseChain(forkHeight uint64, chain []*blockrecord.ChainBlock) ([]*blockrecord.ChainBlock, error) {
	log := bc.log

	removed, err := bc.rewindToHeight(forkHeight)
	if nil != err {
		return nil, err
	}

	for i, block := range chain {
		hash := block.Hash()

		err := bc.validator.ValidateBody(bc.Backend, block)
		if nil == err {
			parent, parentErr := bc.FetchTipHeader()
			if nil != parentErr {
				return nil, parentErr
			}
			err = bc.insertBestBlock(block, parent)
			if nil == err {
				continue
			}
			if !fault.IsErrInvalid(err) {
				return nil, err
			}
		}

		err = asValidationError(err, hash)
		log.Warnf("block: %s  height: %d rejected during reorg: %s", hash, block.Height(), err)

		// the block and everything built on it go
		txn := chainstorage.NewDbTransaction()
		for _, invalid := range chain[i:] {
			txn.DeleteOrphan(invalid.Hash())
		}
		txn.InsertBadBlock(hash, block.Height())
		writeErr := bc.Write(txn)
		if nil != writeErr {
			return nil, writeErr
		}

		if 0 != len(removed) {
			restoreErr := bc.restoreChain(forkHeight, removed)
			if nil != restoreErr {
				log.Criticalf("restore after failed reorg: %s", restoreErr)
				return nil, restoreErr
			}
			// the valid part of chain is back in the pool
			if i > 0 {
				tipErr := bc.Write(chainstorage.NewDbTransaction().InsertOrphanChainTip(chain[i-1].Hash()))
				if nil != tipErr {
					return nil, tipErr
				}
			}
		}
		return nil, err
	}

	return removed, nil
}

// put back the blocks a failed reorg removed
func (bc *BlockchainDatabase) restoreChain(forkHeight uint64, removed []*blockrecord.ChainBlock) error {
	_, err := bc.rewindToHeight(forkHeight)
	if nil != err {
		return err
	}
	for i := len(removed) - 1; i >= 0; i -= 1 {
		parent, err := bc.FetchTipHeader()
		if nil != err {
			return err
		}
		err = bc.insertBestBlock(removed[i], parent)
		if nil != err {
			return err
		}
	}
	bc.log.Infof("restored: %d blocks above fork height: %d", len(removed), forkHeight)
	return nil
}
