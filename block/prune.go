// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/metrics"
)

// PruneToHeight - discard spent outputs of blocks up to height and
// record the sums at the new horizon
func (bc *BlockchainDatabase) PruneToHeight(height uint64) error {
	bc.Lock()
	defer bc.Unlock()
	return bc.pruneToHeight(height)
}

func (bc *BlockchainDatabase) pruneToHeight(height uint64) error {
	log := bc.log

	metadata, err := bc.FetchChainMetadata()
	if nil != err {
		return err
	}
	if height > metadata.HeightOfLongestChain {
		return errors.Wrapf(fault.ErrInvalidArguments, "prune to: %d  above tip: %d", height, metadata.HeightOfLongestChain)
	}
	if height < metadata.PrunedHeight {
		return errors.Wrapf(fault.ErrInvalidArguments, "prune to: %d  below pruned height: %d", height, metadata.PrunedHeight)
	}
	if height == metadata.PrunedHeight {
		log.Debugf("already pruned to: %d", height)
		return nil
	}

	txn := chainstorage.NewDbTransaction()
	for h := metadata.PrunedHeight + 1; h <= height; h += 1 {
		chainHeader, err := bc.FetchChainHeaderByHeight(h)
		if nil != err {
			return err
		}
		data, found, err := bc.FetchBlockAccumulatedDataByHeight(h)
		if nil != err {
			return err
		}
		if !found {
			return errors.Wrapf(fault.ErrAccumulatedDataNotFound, "height: %d", h)
		}
		// positions this block spent
		if nil != data.Deleted && !data.Deleted.IsEmpty() {
			txn.PruneOutputsAtMmrPositions(data.Deleted.ToArray())
		}
		txn.DeleteAllInputsInBlock(chainHeader.Hash())
	}

	horizonData, err := bc.horizonDataAt(height)
	if nil != err {
		return err
	}
	txn.SetHorizonData(horizonData).SetPrunedHeight(height)

	log.Infof("prune from: %d to: %d", metadata.PrunedHeight, height)
	err = bc.Write(txn)
	if nil != err {
		return err
	}
	metrics.PrunedHeight.Set(float64(height))
	return nil
}

// kernel excess sum of every block up to height and the commitment
// sum of their outputs not spent by any of those blocks
func (bc *BlockchainDatabase) horizonDataAt(height uint64) (*blockrecord.HorizonData, error) {
	result := &blockrecord.HorizonData{}
	hashes := make([]blockdigest.Digest, 0, height+1)
	spent := roaring.New()

	for h := uint64(0); h <= height; h += 1 {
		chainHeader, err := bc.FetchChainHeaderByHeight(h)
		if nil != err {
			return nil, err
		}
		data, found, err := bc.FetchBlockAccumulatedDataByHeight(h)
		if nil != err {
			return nil, err
		}
		if !found {
			return nil, errors.Wrapf(fault.ErrAccumulatedDataNotFound, "height: %d", h)
		}
		result.KernelSum = chainstorage.AddCommitments(result.KernelSum, data.KernelSum)
		if nil != data.Deleted {
			spent.Or(data.Deleted)
		}
		hashes = append(hashes, chainHeader.Hash())
	}

	for _, hash := range hashes {
		outputs, _, err := bc.FetchUtxosInBlock(hash, spent)
		if nil != err {
			return nil, err
		}
		for _, output := range outputs {
			if !output.IsPruned() {
				result.UtxoSum = chainstorage.AddCommitments(result.UtxoSum, output.Output.Commitment)
			}
		}
	}
	return result, nil
}

// prune once the horizon has moved a whole interval past the last
// pruned height
func (bc *BlockchainDatabase) pruneIfNeeded() error {
	horizon := bc.config.PruningHorizon
	if 0 == horizon {
		return nil
	}
	metadata, err := bc.FetchChainMetadata()
	if nil != err {
		return err
	}
	if metadata.HeightOfLongestChain <= horizon {
		return nil
	}
	target := metadata.HeightOfLongestChain - horizon
	if target < metadata.PrunedHeight+bc.config.PruningInterval {
		return nil
	}
	return bc.pruneToHeight(target)
}
