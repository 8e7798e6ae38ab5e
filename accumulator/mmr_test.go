// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package accumulator_test

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/accumulator"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/util"
)

func leaf(n int) blockdigest.Digest {
	return blockdigest.NewDigest([]byte{byte(n), byte(n >> 8)})
}

func pushAll(t *testing.T, m *accumulator.MerkleMountainRange, from int, to int) {
	for i := from; i < to; i += 1 {
		index, err := m.Push(leaf(i))
		require.Nil(t, err, "push")
		require.Equal(t, uint64(i), index, "wrong leaf index")
	}
}

func TestSmallRoots(t *testing.T) {
	m, err := accumulator.NewMerkleMountainRange(accumulator.PrunedHashSet{})
	require.Nil(t, err, "new")
	assert.Equal(t, blockdigest.NewDigest(), m.Root(), "empty root")

	pushAll(t, m, 0, 1)
	assert.Equal(t, leaf(0), m.Root(), "single leaf root")

	pushAll(t, m, 1, 2)
	parent := m.Root()
	assert.NotEqual(t, leaf(0), parent, "two leaf root")
	assert.NotEqual(t, leaf(1), parent, "two leaf root")
	assert.Equal(t, uint64(3), m.Size(), "wrong node count")

	pushAll(t, m, 2, 3)
	l2 := leaf(2)
	assert.Equal(t, blockdigest.NewDigest(parent[:], l2[:]), m.Root(), "three leaf root")
	assert.Equal(t, 2, len(m.PrunedHashSet().Peaks), "wrong peak count")
}

func TestRestoreFromPrunedSet(t *testing.T) {
	full, err := accumulator.NewMerkleMountainRange(accumulator.PrunedHashSet{})
	require.Nil(t, err, "new")
	pushAll(t, full, 0, 37)

	for split := 0; split <= 37; split += 1 {
		first, err := accumulator.NewMerkleMountainRange(accumulator.PrunedHashSet{})
		require.Nil(t, err, "new")
		pushAll(t, first, 0, split)

		restored, err := accumulator.NewMerkleMountainRange(first.PrunedHashSet())
		require.Nil(t, err, "restore at: %d", split)
		pushAll(t, restored, split, 37)

		assert.Equal(t, full.Root(), restored.Root(), "root differs after restore at: %d", split)
		assert.Equal(t, full.Size(), restored.Size(), "size differs after restore at: %d", split)
	}
}

func TestFindLeafIndex(t *testing.T) {
	m, err := accumulator.NewMerkleMountainRange(accumulator.PrunedHashSet{})
	require.Nil(t, err, "new")
	pushAll(t, m, 0, 5)

	restored, err := accumulator.NewMerkleMountainRange(m.PrunedHashSet())
	require.Nil(t, err, "restore")
	pushAll(t, restored, 5, 7)

	i, ok := restored.FindLeafIndex(leaf(6))
	assert.True(t, ok, "leaf pushed this session not found")
	assert.Equal(t, uint64(6), i, "wrong index")

	_, ok = restored.FindLeafIndex(leaf(2))
	assert.False(t, ok, "leaf from a previous session found")
}

func TestPrunedHashSetPacking(t *testing.T) {
	m, err := accumulator.NewMerkleMountainRange(accumulator.PrunedHashSet{})
	require.Nil(t, err, "new")
	pushAll(t, m, 0, 11)
	set := m.PrunedHashSet()

	u := util.NewUnpacker(set.Pack())
	unpacked := accumulator.UnpackPrunedHashSet(u)
	assert.Nil(t, u.Done(), "unpack")
	assert.Equal(t, set, unpacked, "set changed")

	// peak count disagrees with the leaf count
	bad := util.Packed{}.AppendUint64(3).AppendUint64(1).AppendFixed(make([]byte, 32))
	u = util.NewUnpacker(bad)
	_ = accumulator.UnpackPrunedHashSet(u)
	assert.Equal(t, fault.ErrUnexpectedRecordType, u.Err(), "corrupt set accepted")

	_, err = accumulator.NewMerkleMountainRange(accumulator.PrunedHashSet{LeafCount: 3})
	assert.NotNil(t, err, "missing peaks accepted")
}

func TestMutableMmrDelete(t *testing.T) {
	m, err := accumulator.NewMutableMmr(accumulator.PrunedHashSet{}, nil)
	require.Nil(t, err, "new")
	for i := 0; i < 4; i += 1 {
		_, err := m.Push(leaf(i))
		require.Nil(t, err, "push")
	}
	before := m.Root()

	assert.Nil(t, m.Delete(2), "delete")
	assert.True(t, fault.IsErrInvalid(m.Delete(2)), "double delete accepted")
	assert.True(t, fault.IsErrInvalid(m.Delete(4)), "delete beyond end accepted")
	assert.NotEqual(t, before, m.Root(), "root ignores deletions")
	assert.Equal(t, []uint32{2}, m.Deleted().ToArray(), "wrong deleted set")
}

func TestMutableMmrClonesBitmap(t *testing.T) {
	deleted := roaring.BitmapOf(0)
	set := accumulator.PrunedHashSet{LeafCount: 1, Peaks: []blockdigest.Digest{leaf(0)}}
	m, err := accumulator.NewMutableMmr(set, deleted)
	require.Nil(t, err, "new")
	_, err = m.Push(leaf(1))
	require.Nil(t, err, "push")
	require.Nil(t, m.Delete(1), "delete")

	assert.Equal(t, uint64(1), deleted.GetCardinality(), "caller bitmap modified")
	assert.Equal(t, uint64(2), m.Deleted().GetCardinality(), "wrong deleted count")
}

func TestBitmapSerialisation(t *testing.T) {
	b := roaring.BitmapOf(1, 2, 3, 1000, 70000)
	b.RunOptimize()

	decoded, err := accumulator.DeserializeBitmap(accumulator.SerializeBitmap(b))
	assert.Nil(t, err, "deserialize")
	assert.True(t, b.Equals(decoded), "bitmap changed")

	empty, err := accumulator.DeserializeBitmap(nil)
	assert.Nil(t, err, "empty")
	assert.True(t, empty.IsEmpty(), "empty buffer not empty bitmap")

	_, err = accumulator.DeserializeBitmap([]byte{1, 2, 3})
	assert.True(t, fault.IsErrConversion(err), "garbage accepted: %v", err)
}
