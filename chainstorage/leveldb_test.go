// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
)

func TestWriteRetriesAfterResize(t *testing.T) {
	options := testOptions()
	options.Storage = storage.Options{MapSize: 512, GrowBy: 1024 * 1024}
	db := openTestStore(t, options)
	b := newChainBuilder(t, db)

	b.add(nil)
	b.add(nil)

	stats, err := db.GetStats()
	assert.Nil(t, err, "stats")
	assert.Equal(t, 2, stats.Tables["headers"], "blocks not written")
}

func TestWriteGivesUp(t *testing.T) {
	options := testOptions()
	options.Storage = storage.Options{MapSize: 512, GrowBy: 1}
	db := openTestStore(t, options)
	b := newChainBuilder(t, db)

	block := b.makeBlock(b.body(nil, nil))
	err := db.Write(chainstorage.NewDbTransaction().InsertTipBlockBody(block))
	assert.Equal(t, fault.ErrTransactionTooLarge, err, "oversize write accepted")

	empty, err := db.IsEmpty()
	assert.Nil(t, err, "is empty")
	assert.True(t, empty, "partial write visible")
}

func TestWriteWithoutGrowth(t *testing.T) {
	options := testOptions()
	options.Storage = storage.Options{MapSize: 512}
	db := openTestStore(t, options)
	b := newChainBuilder(t, db)

	block := b.makeBlock(b.body(nil, nil))
	err := db.Write(chainstorage.NewDbTransaction().InsertTipBlockBody(block))
	assert.True(t, errors.Is(err, fault.ErrResizeFailed), "resize without growth: %v", err)
}

func TestStatsAndReorgs(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)
	genesis := b.add(nil)
	block := b.add(nil)

	reorgs := []*blockrecord.Reorg{
		blockrecord.NewReorg(genesis.ToChainHeader(), block.ToChainHeader(), 1, 0, 20),
		blockrecord.NewReorg(block.ToChainHeader(), genesis.ToChainHeader(), 0, 1, 10),
	}
	require.Nil(t, db.Write(chainstorage.NewDbTransaction().InsertReorg(reorgs[0]).InsertReorg(reorgs[1])), "reorgs")

	stored, err := db.FetchAllReorgs()
	assert.Nil(t, err, "fetch reorgs")
	require.Equal(t, 2, len(stored), "wrong reorg count")
	assert.Equal(t, uint64(10), stored[0].Timestamp, "reorgs not in timestamp order")

	require.Nil(t, db.Write(chainstorage.NewDbTransaction().ClearAllReorgs()), "clear")
	stored, err = db.FetchAllReorgs()
	assert.Nil(t, err, "fetch reorgs")
	assert.Equal(t, 0, len(stored), "reorgs left")

	sizes, err := db.FetchTotalSizeStats()
	assert.Nil(t, err, "sizes")
	for _, size := range sizes {
		if "headers" == size.Name {
			assert.Equal(t, uint64(2), size.Entries, "wrong header entries")
			assert.Equal(t, uint64(16), size.KeyBytes, "wrong header key bytes")
		}
	}

	require.Nil(t, db.Write(chainstorage.NewDbTransaction().InsertBadBlock(genesis.Hash(), 0)), "bad block")
	bad, err := db.BadBlockExists(genesis.Hash())
	assert.Nil(t, err, "bad block")
	assert.True(t, bad, "bad block not recorded")
	bad, err = db.BadBlockExists(block.Hash())
	assert.Nil(t, err, "good block")
	assert.False(t, bad, "good block recorded as bad")
}

func TestHorizonAndPruningMetadata(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)
	b.add(nil)

	data, err := db.FetchHorizonData()
	assert.Nil(t, err, "horizon data")
	assert.Equal(t, &blockrecord.HorizonData{}, data, "default horizon data")

	horizon := &blockrecord.HorizonData{}
	horizon.KernelSum[0] = 9
	txn := chainstorage.NewDbTransaction().
		SetPruningHorizonConfig(50).
		SetPrunedHeight(3).
		SetHorizonData(horizon)
	require.Nil(t, db.Write(txn), "metadata")

	metadata, err := db.FetchChainMetadata()
	assert.Nil(t, err, "metadata")
	assert.Equal(t, uint64(50), metadata.PruningHorizon, "wrong horizon")
	assert.Equal(t, uint64(3), metadata.PrunedHeight, "wrong pruned height")
	assert.False(t, metadata.IsArchivalNode(), "pruned node is archival")

	data, err = db.FetchHorizonData()
	assert.Nil(t, err, "horizon data")
	assert.Equal(t, horizon.KernelSum, data.KernelSum, "wrong horizon data")
}

func TestBadBlockCleanup(t *testing.T) {
	options := testOptions()
	options.CleanBadBlocksBeforeRelHeight = 2
	db := openTestStore(t, options)
	b := newChainBuilder(t, db)
	for i := 0; i < 6; i += 1 {
		b.add(nil)
	}

	old := b.tip.Block.Header.PrevHash
	require.Nil(t, db.Write(chainstorage.NewDbTransaction().InsertBadBlock(old, 1)), "old bad block")
	require.Nil(t, db.Write(chainstorage.NewDbTransaction().InsertBadBlock(b.tip.Hash(), 5)), "new bad block")

	bad, err := db.BadBlockExists(old)
	assert.Nil(t, err, "old bad block")
	assert.False(t, bad, "bad block far below tip kept")
	bad, err = db.BadBlockExists(b.tip.Hash())
	assert.Nil(t, err, "new bad block")
	assert.True(t, bad, "new bad block dropped")
}
