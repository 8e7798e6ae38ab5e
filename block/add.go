// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/metrics"
)

// AddResultKind - what adding a block did to the chain
type AddResultKind int

// result kinds
const (
	Ok AddResultKind = iota
	AlreadyExists
	Orphan
	ChainReorg
)

// String - for logging and metrics
func (kind AddResultKind) String() string {
	switch kind {
	case Ok:
		return "Ok"
	case AlreadyExists:
		return "AlreadyExists"
	case Orphan:
		return "Orphan"
	case ChainReorg:
		return "ChainReorg"
	default:
		return "Unknown"
	}
}

// AddResult - classification of an added block
//
// Added is in ascending height order, Removed in descending order
type AddResult struct {
	Kind    AddResultKind
	Added   []*blockrecord.ChainBlock
	Removed []*blockrecord.ChainBlock
}

// WasChainModified - the tip moved
func (result *AddResult) WasChainModified() bool {
	return Ok == result.Kind || ChainReorg == result.Kind
}

// AddBlock - add a block to the main chain, the orphan pool, or both
// after a reorg
func (bc *BlockchainDatabase) AddBlock(block *blockrecord.Block) (*AddResult, error) {
	if bc.IsAddBlockDisabled() {
		return nil, fault.ErrAddBlockDisabled
	}

	bc.Lock()
	defer bc.Unlock()

	log := bc.log
	hash := block.Hash()
	log.Debugf("add block: %s  height: %d", hash, block.Header.Height)

	exists, err := bc.Contains(chainstorage.BlockHashKey(hash))
	if nil != err {
		return nil, err
	}
	if exists {
		log.Debugf("block: %s already in main chain", hash)
		return &AddResult{Kind: AlreadyExists}, nil
	}

	bad, err := bc.BadBlockExists(hash)
	if nil != err {
		return nil, err
	}
	if bad {
		return nil, errors.Wrapf(fault.ErrBadBlockFound, "block: %s", hash)
	}

	orphan, err := bc.Contains(chainstorage.OrphanBlockKey(hash))
	if nil != err {
		return nil, err
	}
	if orphan {
		log.Debugf("block: %s already in orphan pool", hash)
		return &AddResult{Kind: Orphan}, nil
	}

	err = bc.validator.ValidateOrphan(block)
	if nil != err {
		log.Warnf("block: %s failed orphan validation: %s", hash, err)
		return nil, asValidationError(err, hash)
	}

	err = bc.insertOrphanAndFindNewTips(block)
	if nil != err {
		return nil, err
	}

	result, err := bc.swapToHighestPowChain()
	if nil != err {
		return nil, err
	}

	switch result.Kind {
	case Ok, ChainReorg:
		tip := result.Added[len(result.Added)-1]
		metrics.TipHeight.Set(float64(tip.Height()))
		if ChainReorg == result.Kind {
			metrics.Reorgs.WithLabelValues(strconv.Itoa(len(result.Removed))).Inc()
		}
		if n, err := bc.UtxoCount(); nil == err {
			metrics.UtxoSetSize.Set(float64(n))
		}
		log.Infof("block: %s  result: %s  added: %d  removed: %d  tip height: %d",
			hash, result.Kind, len(result.Added), len(result.Removed), tip.Height())

		err := bc.pruneIfNeeded()
		if nil != err {
			return nil, err
		}

	case Orphan:
		metrics.OrphanedBlocks.Inc()
		log.Infof("block: %s  height: %d  stored as orphan", hash, block.Header.Height)
	}

	threshold := bc.config.OrphanCleanOutThreshold
	if threshold > 0 {
		n, err := bc.OrphanCount()
		if nil != err {
			return nil, err
		}
		if n > threshold {
			log.Debugf("orphan pool: %d exceeds threshold: %d", n, threshold)
			err := bc.cleanupOrphans()
			if nil != err {
				return nil, err
			}
		}
	}

	return result, nil
}

// header of a block with accumulated data, from the main chain or the
// orphan pool
func (bc *BlockchainDatabase) chainHeaderOf(hash blockdigest.Digest) (*blockrecord.ChainHeader, bool, error) {
	value, err := bc.Fetch(chainstorage.BlockHashKey(hash))
	if nil != err {
		return nil, false, err
	}
	if nil != value {
		accumulated, found, err := bc.FetchHeaderAccumulatedData(hash)
		if nil != err || !found {
			return nil, false, err
		}
		chainHeader, err := blockrecord.NewChainHeader(value.Header, accumulated)
		if nil != err {
			return nil, false, err
		}
		return chainHeader, true, nil
	}

	chainBlock, found, err := bc.FetchOrphanChainBlock(hash)
	if nil != err || !found {
		return nil, false, err
	}
	return chainBlock.ToChainHeader(), true, nil
}

// store the block as an orphan, with accumulated data if its parent
// has some, and extend the accumulated data to any orphans that were
// waiting for it; chains that end here become tips
func (bc *BlockchainDatabase) insertOrphanAndFindNewTips(block *blockrecord.Block) error {
	log := bc.log
	hash := block.Hash()
	prevHash := block.Header.PrevHash

	txn := chainstorage.NewDbTransaction()

	parent, found, err := bc.chainHeaderOf(prevHash)
	if nil != err {
		return err
	}
	if !found {
		log.Debugf("block: %s  parent: %s unknown", hash, prevHash)
		return bc.Write(txn.InsertOrphanBlock(block))
	}

	accumulated, err := bc.accumulatedDataFor(block.Header, parent)
	if nil != err {
		log.Warnf("block: %s failed header validation: %s", hash, err)
		if fault.IsErrValidation(err) {
			writeErr := bc.Write(chainstorage.NewDbTransaction().InsertBadBlock(hash, block.Header.Height))
			if nil != writeErr {
				return writeErr
			}
		}
		return err
	}
	chainBlock, err := blockrecord.NewChainBlock(block, accumulated)
	if nil != err {
		return err
	}
	txn.InsertChainOrphanBlock(chainBlock)

	_, parentIsTip, err := bc.FetchOrphanChainTip(prevHash)
	if nil != err {
		return err
	}
	if parentIsTip {
		txn.DeleteOrphanChainTip(prevHash)
	}

	queue := []*blockrecord.ChainHeader{chainBlock.ToChainHeader()}
	for 0 != len(queue) {
		current := queue[0]
		queue = queue[1:]

		children, err := bc.FetchOrphanChildrenOf(current.Hash())
		if nil != err {
			return err
		}

		extended := 0
	children:
		for _, child := range children {
			childHash := child.Hash()

			existing, found, err := bc.FetchOrphanChainBlock(childHash)
			if nil != err {
				return err
			}
			if found {
				queue = append(queue, existing.ToChainHeader())
				extended += 1
				continue children
			}

			childAccumulated, err := bc.accumulatedDataFor(child.Header, current)
			if nil != err {
				log.Warnf("orphan: %s failed header validation: %s", childHash, err)
				txn.DeleteOrphan(childHash)
				if fault.IsErrValidation(err) {
					txn.InsertBadBlock(childHash, child.Header.Height)
				}
				continue children
			}
			childHeader, err := blockrecord.NewChainHeader(child.Header, childAccumulated)
			if nil != err {
				return err
			}
			txn.SetAccumulatedDataForOrphan(childHeader)
			queue = append(queue, childHeader)
			extended += 1
		}

		if 0 == extended {
			tip, err := bc.isOrphanChainTip(current.Hash())
			if nil != err {
				return err
			}
			if !tip {
				log.Debugf("new orphan chain tip: %s  height: %d", current.Hash(), current.Height())
				txn.InsertOrphanChainTip(current.Hash())
			}
		}
	}

	return bc.Write(txn)
}

func (bc *BlockchainDatabase) isOrphanChainTip(hash blockdigest.Digest) (bool, error) {
	_, found, err := bc.FetchOrphanChainTip(hash)
	return found, err
}

// switch to the orphan chain tip with the most accumulated difficulty
// if it beats the current tip
func (bc *BlockchainDatabase) swapToHighestPowChain() (*AddResult, error) {
	log := bc.log

	tips, err := bc.FetchAllOrphanChainTips()
	if nil != err {
		return nil, err
	}
	current, err := bc.FetchTipHeader()
	if nil != err {
		return nil, err
	}

	var best *blockrecord.ChainHeader
	for _, tip := range tips {
		if nil == best || tip.Accumulated.TotalAccumulatedDifficulty.Cmp(best.Accumulated.TotalAccumulatedDifficulty) > 0 {
			best = tip
		}
	}
	if nil == best || best.Accumulated.TotalAccumulatedDifficulty.Cmp(current.Accumulated.TotalAccumulatedDifficulty) <= 0 {
		return &AddResult{Kind: Orphan}, nil
	}

	chain, err := bc.orphanChainTo(best.Hash())
	if nil != err {
		return nil, err
	}
	forkHeight := chain[0].Height() - 1
	log.Debugf("stronger chain: %s  height: %d  fork height: %d  blocks: %d",
		best.Hash(), best.Height(), forkHeight, len(chain))

	removed, err := bc.reorganiseChain(forkHeight, chain)
	if nil != err {
		return nil, err
	}

	if 0 == len(removed) {
		return &AddResult{Kind: Ok, Added: chain}, nil
	}

	// the chain that lost is now an orphan chain ending at the old tip
	txn := chainstorage.NewDbTransaction().
		InsertOrphanChainTip(current.Hash()).
		InsertReorg(blockrecord.NewReorg(current, best, len(chain), len(removed), bc.now()))
	err = bc.Write(txn)
	if nil != err {
		return nil, err
	}
	log.Warnf("reorg from: %s  height: %d  to: %s  height: %d  added: %d  removed: %d",
		current.Hash(), current.Height(), best.Hash(), best.Height(), len(chain), len(removed))

	return &AddResult{Kind: ChainReorg, Added: chain, Removed: removed}, nil
}

// orphan blocks from the main chain up to and including hash
func (bc *BlockchainDatabase) orphanChainTo(hash blockdigest.Digest) ([]*blockrecord.ChainBlock, error) {
	chain := []*blockrecord.ChainBlock{}
	for {
		block, found, err := bc.FetchOrphanChainBlock(hash)
		if nil != err {
			return nil, err
		}
		if !found {
			return nil, errors.Wrapf(fault.ErrOrphanNotFound, "orphan chain block: %s", hash)
		}
		chain = append(chain, block)

		prevHash := block.Block.Header.PrevHash
		_, onMainChain, err := bc.FetchBlockAccumulatedData(prevHash)
		if nil != err {
			return nil, err
		}
		if onMainChain {
			break
		}
		hash = prevHash
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
