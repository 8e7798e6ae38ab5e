// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/block"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
)

// rejects the body of one chosen block
type rejectBody struct {
	hash blockdigest.Digest
}

func (v *rejectBody) ValidateOrphan(*blockrecord.Block) error { return nil }

func (v *rejectBody) ValidateHeader(*blockrecord.Header, *blockrecord.ChainHeader) (uint64, uint64, error) {
	return 1, 1, nil
}

func (v *rejectBody) ValidateBody(_ chainstorage.Backend, b *blockrecord.ChainBlock) error {
	if b.Hash() == v.hash {
		return fault.ErrInvalidBlock
	}
	return nil
}

// rejects every header at one height
type rejectHeight struct {
	height uint64
}

func (v *rejectHeight) ValidateOrphan(*blockrecord.Block) error { return nil }

func (v *rejectHeight) ValidateHeader(header *blockrecord.Header, _ *blockrecord.ChainHeader) (uint64, uint64, error) {
	if header.Height == v.height {
		return 0, 0, fault.ErrInvalidBlock
	}
	return 1, 1, nil
}

func (v *rejectHeight) ValidateBody(chainstorage.Backend, *blockrecord.ChainBlock) error { return nil }

func TestAddBlockToTip(t *testing.T) {
	n := newNode(t, "a", 1, nil, testConfig())

	b := n.template()
	result, err := n.bc.AddBlock(b)
	require.Nil(t, err, "add")
	assert.Equal(t, block.Ok, result.Kind, "kind")
	assert.True(t, result.WasChainModified(), "chain not modified")
	require.Equal(t, 1, len(result.Added), "added")
	assert.Equal(t, b.Hash(), result.Added[0].Hash(), "added hash")
	assert.Equal(t, 0, len(result.Removed), "removed")
	assert.Equal(t, b.Hash(), n.tipHash(), "tip")

	orphans, err := n.bc.OrphanCount()
	require.Nil(t, err, "orphan count")
	assert.Equal(t, 0, orphans, "block left in orphan pool")

	result, err = n.bc.AddBlock(b)
	require.Nil(t, err, "add again")
	assert.Equal(t, block.AlreadyExists, result.Kind, "kind of duplicate")
	assert.False(t, result.WasChainModified(), "duplicate modified chain")
}

func TestAddBlockAccumulatesDifficulty(t *testing.T) {
	n := newNode(t, "a", 1, nil, testConfig())
	n.mineN(3)

	tip, err := n.bc.FetchTipHeader()
	require.Nil(t, err, "tip")
	assert.Equal(t, int64(4), tip.Accumulated.TotalAccumulatedDifficulty.Int64(), "total difficulty")

	metadata, err := n.bc.FetchChainMetadata()
	require.Nil(t, err, "metadata")
	assert.Equal(t, uint64(3), metadata.HeightOfLongestChain, "height")
	assert.Equal(t, int64(4), metadata.AccumulatedDifficulty.Int64(), "metadata difficulty")
}

func TestAddBlockOrphanThenParent(t *testing.T) {
	source := newNode(t, "source", 2, nil, testConfig())
	blocks := source.mineN(3)

	n := newNode(t, "a", 1, nil, testConfig())

	// children first
	for _, b := range []*blockrecord.Block{blocks[2], blocks[1]} {
		result, err := n.bc.AddBlock(b)
		require.Nil(t, err, "add orphan: %d", b.Header.Height)
		assert.Equal(t, block.Orphan, result.Kind, "orphan: %d", b.Header.Height)
		assert.False(t, result.WasChainModified(), "orphan: %d modified chain", b.Header.Height)
	}

	result, err := n.bc.AddBlock(blocks[2])
	require.Nil(t, err, "add orphan again")
	assert.Equal(t, block.Orphan, result.Kind, "orphan again")

	orphans, err := n.bc.OrphanCount()
	require.Nil(t, err, "orphan count")
	assert.Equal(t, 2, orphans, "orphans")

	result, err = n.bc.AddBlock(blocks[0])
	require.Nil(t, err, "add parent")
	assert.Equal(t, block.Ok, result.Kind, "kind")
	require.Equal(t, 3, len(result.Added), "added")
	for i, b := range blocks {
		assert.Equal(t, b.Hash(), result.Added[i].Hash(), "added: %d", i)
	}
	assert.Equal(t, blocks[2].Hash(), n.tipHash(), "tip")

	orphans, err = n.bc.OrphanCount()
	require.Nil(t, err, "orphan count")
	assert.Equal(t, 0, orphans, "orphans after connect")
}

func TestAddBlockWeakerForkStaysOrphan(t *testing.T) {
	fork := newNode(t, "fork", 2, nil, testConfig())
	forkBlocks := fork.mineN(2)

	n := newNode(t, "a", 1, nil, testConfig())
	n.mineN(3)

	for _, b := range forkBlocks {
		result, err := n.bc.AddBlock(b)
		require.Nil(t, err, "add fork: %d", b.Header.Height)
		assert.Equal(t, block.Orphan, result.Kind, "fork: %d", b.Header.Height)
	}

	tip, found, err := n.bc.FetchOrphanChainTip(forkBlocks[1].Hash())
	require.Nil(t, err, "orphan tip")
	require.True(t, found, "fork tip is not an orphan chain tip")
	assert.Equal(t, int64(3), tip.Accumulated.TotalAccumulatedDifficulty.Int64(), "fork difficulty")

	_, found, err = n.bc.FetchOrphanChainTip(forkBlocks[0].Hash())
	require.Nil(t, err, "orphan tip")
	assert.False(t, found, "fork parent is still a tip")
}

func TestAddBlockReorg(t *testing.T) {
	fork := newNode(t, "fork", 2, nil, testConfig())
	forkBlocks := fork.mineN(3)

	n := newNode(t, "a", 1, nil, testConfig())
	mainBlocks := n.mineN(2)

	for _, b := range forkBlocks[:2] {
		result, err := n.bc.AddBlock(b)
		require.Nil(t, err, "add fork: %d", b.Header.Height)
		assert.Equal(t, block.Orphan, result.Kind, "fork: %d", b.Header.Height)
	}

	result, err := n.bc.AddBlock(forkBlocks[2])
	require.Nil(t, err, "add fork tip")
	require.Equal(t, block.ChainReorg, result.Kind, "kind")
	assert.True(t, result.WasChainModified(), "chain not modified")

	require.Equal(t, 3, len(result.Added), "added")
	for i, b := range forkBlocks {
		assert.Equal(t, b.Hash(), result.Added[i].Hash(), "added: %d", i)
	}
	require.Equal(t, 2, len(result.Removed), "removed")
	assert.Equal(t, mainBlocks[1].Hash(), result.Removed[0].Hash(), "removed first")
	assert.Equal(t, mainBlocks[0].Hash(), result.Removed[1].Hash(), "removed second")

	assert.Equal(t, forkBlocks[2].Hash(), n.tipHash(), "tip")

	// the old chain is an orphan chain now
	_, found, err := n.bc.FetchOrphanChainTip(mainBlocks[1].Hash())
	require.Nil(t, err, "old tip")
	assert.True(t, found, "old tip is not an orphan chain tip")
	for _, b := range mainBlocks {
		exists, err := n.bc.Contains(chainstorage.OrphanBlockKey(b.Hash()))
		require.Nil(t, err, "contains")
		assert.True(t, exists, "old block: %d not in pool", b.Header.Height)
	}
	orphans, err := n.bc.OrphanCount()
	require.Nil(t, err, "orphan count")
	assert.Equal(t, 2, orphans, "orphans")

	reorgs, err := n.bc.FetchAllReorgs()
	require.Nil(t, err, "reorgs")
	require.Equal(t, 1, len(reorgs), "reorgs")
	reorg := reorgs[0]
	assert.Equal(t, mainBlocks[1].Hash(), reorg.FromHash, "from")
	assert.Equal(t, forkBlocks[2].Hash(), reorg.ToHash, "to")
	assert.Equal(t, uint64(3), reorg.NumBlocksAdded, "added")
	assert.Equal(t, uint64(2), reorg.NumBlocksRemoved, "removed")

	// body of the new chain is in place
	b, err := n.bc.FetchBlock(1, true)
	require.Nil(t, err, "fetch")
	assert.Equal(t, forkBlocks[0].Hash(), b.Hash(), "block 1")
	assert.Equal(t, forkBlocks[0].Body.Outputs[0].Hash(), b.Block.Body.Outputs[0].Hash(), "output of block 1")
}

func TestAddBlockFailedReorgRestoresChain(t *testing.T) {
	fork := newNode(t, "fork", 2, nil, testConfig())
	forkBlocks := fork.mineN(2)

	validator := &rejectBody{hash: forkBlocks[1].Hash()}
	n := newNode(t, "a", 1, validator, testConfig())
	mainBlocks := n.mineN(1)

	result, err := n.bc.AddBlock(forkBlocks[0])
	require.Nil(t, err, "add fork")
	assert.Equal(t, block.Orphan, result.Kind, "fork kind")

	_, err = n.bc.AddBlock(forkBlocks[1])
	assert.True(t, fault.IsErrValidation(err), "unexpected error: %v", err)

	assert.Equal(t, mainBlocks[0].Hash(), n.tipHash(), "tip not restored")

	bad, err := n.bc.BadBlockExists(forkBlocks[1].Hash())
	require.Nil(t, err, "bad block")
	assert.True(t, bad, "rejected block not recorded")

	exists, err := n.bc.Contains(chainstorage.OrphanBlockKey(forkBlocks[1].Hash()))
	require.Nil(t, err, "contains")
	assert.False(t, exists, "rejected block left in pool")

	_, found, err := n.bc.FetchOrphanChainTip(forkBlocks[0].Hash())
	require.Nil(t, err, "valid fork tip")
	assert.True(t, found, "valid part of fork is not a tip")

	_, err = n.bc.AddBlock(forkBlocks[1])
	assert.True(t, fault.IsErrValidation(err), "unexpected error: %v", err)

	// the restored chain still grows
	n.mine()
}

func TestAddBlockInvalidHeader(t *testing.T) {
	n := newNode(t, "a", 1, &rejectHeight{height: 2}, testConfig())
	n.mine()
	b := n.template()

	_, err := n.bc.AddBlock(b)
	assert.True(t, fault.IsErrValidation(err), "unexpected error: %v", err)

	bad, err := n.bc.BadBlockExists(b.Hash())
	require.Nil(t, err, "bad block")
	assert.True(t, bad, "invalid block not recorded")

	_, err = n.bc.AddBlock(b)
	assert.True(t, fault.IsErrValidation(err), "unexpected error: %v", err)
}

func TestRewindToHeight(t *testing.T) {
	n := newNode(t, "a", 1, nil, testConfig())
	mined := n.mineN(5)

	removed, err := n.bc.RewindToHeight(3)
	require.Nil(t, err, "rewind")
	require.Equal(t, 2, len(removed), "removed")
	assert.Equal(t, mined[4].Hash(), removed[0].Hash(), "removed first")
	assert.Equal(t, mined[3].Hash(), removed[1].Hash(), "removed second")

	assert.Equal(t, mined[2].Hash(), n.tipHash(), "tip")
	last, err := n.bc.FetchLastHeader()
	require.Nil(t, err, "last header")
	assert.Equal(t, uint64(3), last.Height, "last header")

	orphans, err := n.bc.OrphanCount()
	require.Nil(t, err, "orphan count")
	assert.Equal(t, 2, orphans, "orphans")

	_, err = n.bc.RewindToHeight(4)
	assert.True(t, fault.IsErrInvalid(err), "unexpected error: %v", err)
}
