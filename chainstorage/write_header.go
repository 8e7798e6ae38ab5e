// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/compositekey"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
)

func (op *insertChainHeader) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	header := op.header.Header
	hash := op.header.Hash()
	height := header.Height

	current, found, err := db.fetchHeaderAt(w, height)
	if nil != err {
		return err
	}
	if found {
		if current.Hash() != hash {
			return errors.Wrapf(fault.ErrDifferentHeaderAtHeight, "height: %d  stored: %s  new: %s", height, current.Hash(), hash)
		}
		return errors.Wrapf(fault.ErrHeaderExists, "height: %d  hash: %s", height, hash)
	}

	last, found, err := db.fetchLastHeaderIn(w)
	if nil != err {
		return err
	}
	if found {
		if 0 == height || last.Height != height-1 {
			return errors.Wrapf(fault.ErrHeaderOutOfOrder, "last height: %d  new height: %d", last.Height, height)
		}
		if last.Hash() != header.PrevHash {
			return errors.Wrapf(fault.ErrBrokenChainLinkage, "height: %d  last hash: %s  previous hash: %s", height, last.Hash(), header.PrevHash)
		}
	} else if 0 != height {
		return errors.Wrapf(fault.ErrHeaderOutOfOrder, "first header must have height 0, not: %d", height)
	}

	heightKey := beUint64(height)
	err = db.tables.HeaderAccumulatedData.Insert(w, heightKey, op.header.Accumulated.Pack())
	if nil != err {
		return err
	}
	err = db.tables.BlockHashes.Insert(w, hash[:], heightKey)
	if nil != err {
		return err
	}
	err = db.tables.Headers.Insert(w, heightKey, header.Pack())
	if nil != err {
		return err
	}
	err = db.tables.KernelMmrSizeIndex.Insert(w, beUint64(header.KernelMmrSize), heightKey)
	if nil != err {
		return err
	}
	return db.tables.OutputMmrSizeIndex.Insert(w, beUint64(header.OutputMmrSize), heightHash{height: height, hash: hash}.pack())
}

func (op *deleteHeader) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	height := op.height

	found, err := db.tables.BlockAccumulatedData.Has(w, beUint64(height))
	if nil != err {
		return err
	}
	if found {
		return errors.Wrapf(fault.ErrHeaderHasBlockData, "height: %d", height)
	}

	header, found, err := db.fetchLastHeaderIn(w)
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrHeaderNotFound, "no last header deleting height: %d", height)
	}
	if header.Height != height {
		return errors.Wrapf(fault.ErrHeaderNotLast, "height: %d  last height: %d", height, header.Height)
	}

	hash := header.Hash()

	kernels, err := db.tables.Kernels.FetchWithPrefix(w, hash[:])
	if nil != err {
		return err
	}
	if 0 != len(kernels) {
		return errors.Wrapf(fault.ErrHeaderHasRows, "height: %d has: %d kernels", height, len(kernels))
	}
	outputs, err := db.tables.Utxos.FetchWithPrefix(w, hash[:])
	if nil != err {
		return err
	}
	if 0 != len(outputs) {
		return errors.Wrapf(fault.ErrHeaderHasRows, "height: %d has: %d outputs", height, len(outputs))
	}

	heightKey := beUint64(height)
	err = db.tables.BlockHashes.Delete(w, hash[:])
	if nil != err {
		return err
	}
	err = db.tables.Headers.Delete(w, heightKey)
	if nil != err {
		return err
	}
	err = db.tables.HeaderAccumulatedData.Delete(w, heightKey)
	if nil != err {
		return err
	}
	err = db.tables.KernelMmrSizeIndex.Delete(w, beUint64(header.KernelMmrSize))
	if nil != err {
		return err
	}
	return db.tables.OutputMmrSizeIndex.Delete(w, beUint64(header.OutputMmrSize))
}

func (op *setBestBlock) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	if op.height > 0 {
		previous, err := fetchBestBlock(db.tables, w)
		if nil != err {
			return err
		}
		if previous != op.expectedPrevBestBlock {
			return errors.Wrapf(fault.ErrBestBlockMismatch, "expected: %s  actual: %s", op.expectedPrevBestBlock, previous)
		}
	}

	found, err := db.tables.BlockHashes.Has(w, op.hash[:])
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrBestBlockUnknown, "hash: %s", op.hash)
	}

	setMetadataUint64(db.tables, w, ChainHeightKey, op.height)
	setMetadata(db.tables, w, BestBlockKey, op.hash[:])
	work := []byte{}
	if nil != op.accumulatedDifficulty {
		work = op.accumulatedDifficulty.Bytes()
	}
	setMetadata(db.tables, w, AccumulatedWorkKey, work)
	setMetadataUint64(db.tables, w, BestBlockTimestampKey, op.timestamp)
	return nil
}

func (op *setPruningHorizonConfig) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	setMetadataUint64(db.tables, w, PruningHorizonKey, op.horizon)
	return nil
}

func (op *setPrunedHeight) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	setMetadataUint64(db.tables, w, PrunedHeightKey, op.height)
	return nil
}

func (op *setHorizonData) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	setMetadata(db.tables, w, HorizonDataKey, op.data.Pack())
	return nil
}

func (op *insertMoneroSeedHeight) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	value, found, err := db.tables.MoneroSeedHeight.Get(w, op.seed)
	if nil != err {
		return err
	}
	if found {
		current, err := fromBeUint64(value)
		if nil != err {
			return err
		}
		if op.height >= current {
			return nil
		}
	}
	db.tables.MoneroSeedHeight.Replace(w, op.seed, beUint64(op.height))
	return nil
}

func (op *insertBadBlock) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	db.tables.BadBlocks.Replace(w, op.hash[:], beUint64(op.height))

	if 0 == db.options.CleanBadBlocksBeforeRelHeight {
		return nil
	}
	tip, _, err := getMetadataUint64(db.tables, w, ChainHeightKey, 0)
	if nil != err {
		return err
	}
	if tip <= db.options.CleanBadBlocksBeforeRelHeight {
		return nil
	}
	before := tip - db.options.CleanBadBlocksBeforeRelHeight

	n, err := db.tables.BadBlocks.DeleteWhere(w, func(key []byte, value []byte) bool {
		height, err := fromBeUint64(value)
		return nil == err && height < before
	})
	if nil != err {
		return err
	}
	db.log.Debugf("cleaned: %d stale bad blocks", n)
	return nil
}

func (op *insertReorg) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	db.tables.Reorgs.Replace(w, beUint64(op.reorg.Timestamp), op.reorg.Pack())
	return nil
}

func (op *clearAllReorgs) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	n, err := db.tables.Reorgs.Clear(w)
	if nil != err {
		return err
	}
	db.log.Debugf("cleared: %d reorgs", n)
	return nil
}

func (op *insertOrphanBlock) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	return db.insertOrphan(w, op.block)
}

func (op *setAccumulatedDataForOrphan) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	return db.setOrphanAccumulatedData(w, op.header.Accumulated)
}

func (op *insertChainOrphanBlock) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	err := db.insertOrphan(w, op.block.Block)
	if nil != err {
		return err
	}
	return db.setOrphanAccumulatedData(w, op.block.Accumulated)
}

func (op *insertOrphanChainTip) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	return db.tables.OrphanChainTips.Insert(w, op.hash[:], op.hash[:])
}

func (op *deleteOrphanChainTip) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	return db.tables.OrphanChainTips.Delete(w, op.hash[:])
}

func (op *deleteOrphan) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	hash := op.hash
	orphan, found, err := db.fetchOrphanIn(w, hash)
	if nil != err {
		return err
	}
	if !found {
		db.log.Debugf("delete orphan: %s not found", hash)
		return nil
	}

	parent := orphan.Header.PrevHash
	key, err := compositekey.ParentChildKey(parent[:], hash[:])
	if nil != err {
		return err
	}
	_, err = db.tables.OrphanParentMapIndex.DeleteIfExists(w, key)
	if nil != err {
		return err
	}

	// the parent takes over as tip if it is itself an orphan
	removed, err := db.tables.OrphanChainTips.DeleteIfExists(w, hash[:])
	if nil != err {
		return err
	}
	if removed {
		parentIsOrphan, err := db.tables.Orphans.Has(w, parent[:])
		if nil != err {
			return err
		}
		if parentIsOrphan {
			db.tables.OrphanChainTips.Replace(w, parent[:], parent[:])
		}
	}

	_, err = db.tables.OrphanHeaderAccumulatedData.DeleteIfExists(w, hash[:])
	if nil != err {
		return err
	}
	return db.tables.Orphans.Delete(w, hash[:])
}
