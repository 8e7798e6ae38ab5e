// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/compositekey"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
)

// store an orphan and link it under its parent, an orphan already
// present is left alone
func (db *LevelDBDatabase) insertOrphan(w *storage.WriteTxn, block *blockrecord.Block) error {
	hash := block.Hash()
	key, err := compositekey.ParentChildKey(block.Header.PrevHash[:], hash[:])
	if nil != err {
		return err
	}
	db.tables.OrphanParentMapIndex.Replace(w, key, hash[:])

	found, err := db.tables.Orphans.Has(w, hash[:])
	if nil != err || found {
		return err
	}
	return db.tables.Orphans.Insert(w, hash[:], block.Pack())
}

func (db *LevelDBDatabase) setOrphanAccumulatedData(w *storage.WriteTxn, accumulated *blockrecord.HeaderAccumulatedData) error {
	found, err := db.tables.Orphans.Has(w, accumulated.Hash[:])
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrOrphanNotFound, "set accumulated data: %s", accumulated.Hash)
	}
	return db.tables.OrphanHeaderAccumulatedData.Insert(w, accumulated.Hash[:], accumulated.Pack())
}

func (db *LevelDBDatabase) fetchOrphanIn(r storage.Reader, hash blockdigest.Digest) (*blockrecord.Block, bool, error) {
	value, found, err := db.tables.Orphans.Get(r, hash[:])
	if nil != err || !found {
		return nil, false, err
	}
	block, err := blockrecord.BlockFromBytes(value)
	if nil != err {
		return nil, false, err
	}
	return block, true, nil
}

func (db *LevelDBDatabase) fetchOrphanAccumulatedDataIn(r storage.Reader, hash blockdigest.Digest) (*blockrecord.HeaderAccumulatedData, bool, error) {
	value, found, err := db.tables.OrphanHeaderAccumulatedData.Get(r, hash[:])
	if nil != err || !found {
		return nil, false, err
	}
	data, err := blockrecord.HeaderAccumulatedDataFromBytes(value)
	if nil != err {
		return nil, false, err
	}
	return data, true, nil
}

// an orphan that has accumulated data; data without its block is an
// inconsistency
func (db *LevelDBDatabase) fetchOrphanChainHeaderIn(r storage.Reader, hash blockdigest.Digest) (*blockrecord.ChainHeader, bool, error) {
	accumulated, found, err := db.fetchOrphanAccumulatedDataIn(r, hash)
	if nil != err || !found {
		return nil, false, err
	}
	block, found, err := db.fetchOrphanIn(r, hash)
	if nil != err {
		return nil, false, err
	}
	if !found {
		db.log.Criticalf("orphan: %s has accumulated data but no block", hash)
		return nil, false, errors.Wrapf(fault.ErrDataInconsistency, "orphan: %s", hash)
	}
	chainHeader, err := blockrecord.NewChainHeader(block.Header, accumulated)
	if nil != err {
		return nil, false, err
	}
	return chainHeader, true, nil
}

// FetchOrphanChainTip - an orphan chain tip with accumulated data
func (db *LevelDBDatabase) FetchOrphanChainTip(hash blockdigest.Digest) (*blockrecord.ChainHeader, bool, error) {
	var chainHeader *blockrecord.ChainHeader
	var found bool
	err := db.read(func(r storage.Reader) error {
		isTip, err := db.tables.OrphanChainTips.Has(r, hash[:])
		if nil != err || !isTip {
			return err
		}
		chainHeader, found, err = db.fetchOrphanChainHeaderIn(r, hash)
		return err
	})
	return chainHeader, found, err
}

// FetchAllOrphanChainTips - every orphan chain tip
func (db *LevelDBDatabase) FetchAllOrphanChainTips() ([]*blockrecord.ChainHeader, error) {
	tips := []*blockrecord.ChainHeader{}
	err := db.read(func(r storage.Reader) error {
		return db.tables.OrphanChainTips.Map(r, func(key []byte, value []byte) error {
			hash, err := digestFrom(value)
			if nil != err {
				return err
			}
			chainHeader, found, err := db.fetchOrphanChainHeaderIn(r, hash)
			if nil != err {
				return err
			}
			if !found {
				return errors.Wrapf(fault.ErrDataInconsistency, "orphan tip: %s has no accumulated data", hash)
			}
			tips = append(tips, chainHeader)
			return nil
		})
	})
	if nil != err {
		return nil, err
	}
	return tips, nil
}

// FetchOrphanChildrenOf - orphans whose parent is hash
func (db *LevelDBDatabase) FetchOrphanChildrenOf(hash blockdigest.Digest) ([]*blockrecord.Block, error) {
	children := []*blockrecord.Block{}
	err := db.read(func(r storage.Reader) error {
		elements, err := db.tables.OrphanParentMapIndex.FetchWithPrefix(r, hash[:])
		if nil != err {
			return err
		}
		for _, e := range elements {
			child, err := digestFrom(e.Value)
			if nil != err {
				return err
			}
			block, found, err := db.fetchOrphanIn(r, child)
			if nil != err {
				return err
			}
			if !found {
				return errors.Wrapf(fault.ErrDataInconsistency, "parent map names missing orphan: %s", child)
			}
			children = append(children, block)
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	return children, nil
}

// FetchOrphanChainBlock - an orphan with accumulated data, false if
// either is missing
func (db *LevelDBDatabase) FetchOrphanChainBlock(hash blockdigest.Digest) (*blockrecord.ChainBlock, bool, error) {
	var chainBlock *blockrecord.ChainBlock
	err := db.read(func(r storage.Reader) error {
		block, found, err := db.fetchOrphanIn(r, hash)
		if nil != err || !found {
			return err
		}
		accumulated, found, err := db.fetchOrphanAccumulatedDataIn(r, hash)
		if nil != err || !found {
			return err
		}
		chainBlock, err = blockrecord.NewChainBlock(block, accumulated)
		return err
	})
	if nil != err {
		return nil, false, err
	}
	return chainBlock, nil != chainBlock, nil
}

// DeleteOldestOrphans - shrink the pool to capacity, lowest heights
// first; orphans at or below the horizon go regardless
func (db *LevelDBDatabase) DeleteOldestOrphans(horizonHeight uint64, capacity int) error {
	type candidate struct {
		height uint64
		hash   blockdigest.Digest
	}

	var candidates []candidate
	overLimit := 0
	err := db.read(func(r storage.Reader) error {
		count, err := db.tables.Orphans.Len(r)
		if nil != err || count <= capacity {
			return err
		}
		overLimit = count - capacity
		return db.tables.Orphans.Map(r, func(key []byte, value []byte) error {
			block, err := blockrecord.BlockFromBytes(value)
			if nil != err {
				return err
			}
			candidates = append(candidates, candidate{
				height: block.Header.Height,
				hash:   block.Hash(),
			})
			return nil
		})
	})
	if nil != err || 0 == len(candidates) {
		return err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].height < candidates[j].height
	})

	txn := NewDbTransaction()
scanning:
	for i, c := range candidates {
		if c.height > horizonHeight && i >= overLimit {
			break scanning
		}
		txn.DeleteOrphan(c.hash)
	}

	db.log.Debugf("delete oldest orphans: %d of: %d", txn.Len(), len(candidates))
	return db.Write(txn)
}

// OrphanCount - number of orphans in the pool
func (db *LevelDBDatabase) OrphanCount() (int, error) {
	return db.count(db.tables.Orphans)
}
