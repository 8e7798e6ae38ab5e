// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

func TestHeaderContiguity(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)

	empty, err := db.IsEmpty()
	assert.Nil(t, err, "is empty")
	assert.True(t, empty, "new store not empty")

	_, err = db.FetchLastHeader()
	assert.Equal(t, fault.ErrEmptyStore, err, "last header of empty store")

	genesis := b.add(nil)

	// a first header that is not height 0 would have been refused
	h1 := b.headerOnly(genesis.Block.Header)
	h2 := b.headerOnly(h1.Header)
	err = db.Write(chainstorage.NewDbTransaction().InsertChainHeader(h2))
	assert.True(t, errors.Is(err, fault.ErrHeaderOutOfOrder), "gap accepted: %v", err)

	unlinked := b.headerOnly(genesis.Block.Header)
	unlinked.Header.PrevHash = blockdigest.NewDigest([]byte("elsewhere"))
	unlinked.Accumulated.Hash = unlinked.Header.Hash()
	err = db.Write(chainstorage.NewDbTransaction().InsertChainHeader(unlinked))
	assert.True(t, errors.Is(err, fault.ErrBrokenChainLinkage), "broken link accepted: %v", err)

	err = db.Write(chainstorage.NewDbTransaction().InsertChainHeader(genesis.ToChainHeader()))
	assert.True(t, errors.Is(err, fault.ErrHeaderExists), "duplicate accepted: %v", err)
	assert.True(t, fault.IsErrExists(err), "wrong class")

	other := b.headerOnly(genesis.Block.Header)
	other.Header.Height = 0
	other.Accumulated.Hash = other.Header.Hash()
	err = db.Write(chainstorage.NewDbTransaction().InsertChainHeader(other))
	assert.True(t, errors.Is(err, fault.ErrDifferentHeaderAtHeight), "replacement accepted: %v", err)

	require.Nil(t, db.Write(chainstorage.NewDbTransaction().InsertChainHeader(h1).InsertChainHeader(h2)), "in order")

	last, err := db.FetchLastHeader()
	assert.Nil(t, err, "last header")
	assert.Equal(t, h2.Hash(), last.Hash(), "wrong last header")

	found, err := db.Contains(chainstorage.BlockHashKey(h1.Hash()))
	assert.Nil(t, err, "contains")
	assert.True(t, found, "header hash not indexed")

	value, err := db.Fetch(chainstorage.BlockHeaderKey(2))
	assert.Nil(t, err, "fetch")
	require.NotNil(t, value, "header missing")
	assert.Equal(t, h2.Hash(), value.Header.Hash(), "wrong header by height")

	value, err = db.Fetch(chainstorage.BlockHeaderKey(7))
	assert.Nil(t, err, "fetch absent")
	assert.Nil(t, value, "absent header returned")

	// tip is still the genesis block
	tip, err := db.FetchTipHeader()
	assert.Nil(t, err, "tip")
	assert.Equal(t, genesis.Hash(), tip.Hash(), "tip moved with headers")
}

func TestHeaderDeletionReverseOnly(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)
	genesis := b.add(nil)

	h1 := b.headerOnly(genesis.Block.Header)
	h2 := b.headerOnly(h1.Header)
	require.Nil(t, db.Write(chainstorage.NewDbTransaction().InsertChainHeader(h1).InsertChainHeader(h2)), "headers")

	err := db.Write(chainstorage.NewDbTransaction().DeleteHeader(1))
	assert.True(t, errors.Is(err, fault.ErrHeaderNotLast), "middle header deleted: %v", err)

	err = db.Write(chainstorage.NewDbTransaction().DeleteHeader(0))
	assert.True(t, errors.Is(err, fault.ErrHeaderHasBlockData), "header with body deleted: %v", err)

	// cached then deleted
	cached, err := db.FetchChainHeaderByHeight(2)
	assert.Nil(t, err, "fetch by height")
	assert.Equal(t, h2.Hash(), cached.Hash(), "wrong header")

	n, err := db.ClearAllPendingHeaders()
	assert.Nil(t, err, "clear pending")
	assert.Equal(t, 2, n, "wrong number cleared")

	_, err = db.FetchChainHeaderByHeight(2)
	assert.True(t, errors.Is(err, fault.ErrHeaderNotFound), "stale cached header: %v", err)

	found, err := db.Contains(chainstorage.BlockHashKey(h1.Hash()))
	assert.Nil(t, err, "contains")
	assert.False(t, found, "hash index left behind")

	n, err = db.ClearAllPendingHeaders()
	assert.Nil(t, err, "clear nothing")
	assert.Equal(t, 0, n, "cleared at tip")
}

func TestFetchHeaderContainingMmrPosition(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)

	// outputs per block: 1, 3, 2 so leaves 0 | 1 2 3 | 4 5
	genesis := b.add(nil)
	first := b.add(nil, b.output(0), b.output(0))
	second := b.add(nil, b.output(0))

	expected := []blockdigest.Digest{
		genesis.Hash(),
		first.Hash(), first.Hash(), first.Hash(),
		second.Hash(), second.Hash(),
	}
	for position, hash := range expected {
		header, err := db.FetchHeaderContainingUtxoMmr(uint64(position))
		assert.Nil(t, err, "position: %d", position)
		assert.Equal(t, hash, header.Hash(), "wrong header for position: %d", position)
	}

	_, err := db.FetchHeaderContainingUtxoMmr(6)
	assert.True(t, fault.IsErrNotFound(err), "position beyond range: %v", err)

	// kernels: 1, 2, 2
	header, err := db.FetchHeaderContainingKernelMmr(2)
	assert.Nil(t, err, "kernel position")
	assert.Equal(t, first.Hash(), header.Hash(), "wrong header for kernel")
}

func TestGenesisKernelMmrPositions(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)

	body := b.body(nil, nil)
	body.Kernels = append(body.Kernels, b.kernel(transactionrecord.PlainKernel))
	genesis := b.commit(b.makeBlock(body))

	size, err := db.FetchMmrSize(chainstorage.KernelTree)
	assert.Nil(t, err, "kernel mmr size")
	assert.Equal(t, uint64(2), size, "wrong kernel count")

	for _, position := range []uint64{0, 1} {
		header, err := db.FetchHeaderContainingKernelMmr(position)
		require.Nil(t, err, "kernel position: %d", position)
		assert.Equal(t, uint64(0), header.Height(), "wrong height for kernel position: %d", position)
		assert.Equal(t, genesis.Hash(), header.Hash(), "wrong header for kernel position: %d", position)
	}

	_, err = db.FetchHeaderContainingKernelMmr(2)
	assert.True(t, fault.IsErrNotFound(err), "kernel position beyond range: %v", err)

	header, err := db.FetchHeaderContainingUtxoMmr(0)
	require.Nil(t, err, "output position")
	assert.Equal(t, genesis.Hash(), header.Hash(), "wrong header for output")

	_, err = db.FetchHeaderContainingUtxoMmr(1)
	assert.True(t, fault.IsErrNotFound(err), "output position beyond range: %v", err)
}

func TestSetBestBlockGuard(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)
	genesis := b.add(nil)
	block := b.makeBlock(b.body(nil, nil))

	before, err := db.FetchChainMetadata()
	require.Nil(t, err, "metadata before")

	unchanged := func(title string) {
		metadata, err := db.FetchChainMetadata()
		require.Nil(t, err, "%s: metadata", title)
		assert.Equal(t, before.HeightOfLongestChain, metadata.HeightOfLongestChain, "%s: height changed", title)
		assert.Equal(t, before.BestBlock, metadata.BestBlock, "%s: best block changed", title)
		assert.Equal(t, 0, before.AccumulatedDifficulty.Cmp(metadata.AccumulatedDifficulty), "%s: work changed", title)
		assert.Equal(t, before.Timestamp, metadata.Timestamp, "%s: timestamp changed", title)
	}

	work := big.NewInt(2)
	txn := chainstorage.NewDbTransaction().
		InsertTipBlockBody(block).
		SetBestBlock(1, block.Hash(), work, blockdigest.NewDigest([]byte("wrong")), 5)
	err = db.Write(txn)
	assert.True(t, errors.Is(err, fault.ErrBestBlockMismatch), "wrong previous accepted: %v", err)
	unchanged("mismatch")

	// nothing of the failed batch remains
	found, err := db.Contains(chainstorage.BlockHashKey(block.Hash()))
	assert.Nil(t, err, "contains")
	assert.False(t, found, "partial batch committed")

	txn = chainstorage.NewDbTransaction().
		SetBestBlock(1, block.Hash(), work, genesis.Hash(), 5)
	err = db.Write(txn)
	assert.True(t, errors.Is(err, fault.ErrBestBlockUnknown), "unknown hash accepted: %v", err)
	unchanged("unknown hash")

	b.commit(block)
	metadata, err := db.FetchChainMetadata()
	assert.Nil(t, err, "metadata")
	assert.Equal(t, uint64(1), metadata.HeightOfLongestChain, "wrong height")
	assert.Equal(t, block.Hash(), metadata.BestBlock, "wrong best block")
	assert.Equal(t, 0, work.Cmp(metadata.AccumulatedDifficulty), "wrong work")
}

func TestChainHeaderInAllChains(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)
	genesis := b.add(nil)

	orphan := b.makeBlock(b.body(nil, nil))
	orphan.Block.Header.Nonce = 99
	orphan.Accumulated.Hash = orphan.Block.Header.Hash()
	require.Nil(t, db.Write(chainstorage.NewDbTransaction().InsertChainOrphanBlock(orphan)), "orphan")

	header, err := db.FetchChainHeaderInAllChains(genesis.Hash())
	assert.Nil(t, err, "main chain")
	assert.Equal(t, genesis.Hash(), header.Hash(), "wrong main chain header")

	header, err = db.FetchChainHeaderInAllChains(orphan.Hash())
	assert.Nil(t, err, "orphan")
	assert.Equal(t, orphan.Hash(), header.Hash(), "wrong orphan header")

	_, err = db.FetchChainHeaderInAllChains(blockdigest.NewDigest([]byte("nowhere")))
	assert.True(t, fault.IsErrNotFound(err), "unknown hash: %v", err)

	accumulated, found, err := db.FetchHeaderAccumulatedData(genesis.Hash())
	assert.Nil(t, err, "accumulated")
	assert.True(t, found, "accumulated missing")
	assert.Equal(t, genesis.Accumulated.Hash, accumulated.Hash, "wrong accumulated data")

	_, found, err = db.FetchHeaderAccumulatedData(orphan.Hash())
	assert.Nil(t, err, "orphan accumulated")
	assert.False(t, found, "orphan data found in main chain")

	last, err := db.FetchLastChainHeader()
	assert.Nil(t, err, "last chain header")
	assert.Equal(t, genesis.Hash(), last.Hash(), "orphan became last")

}
