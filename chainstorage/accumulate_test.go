// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage_test

import (
	"errors"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

func noOutputs(blockdigest.Digest) (uint32, bool, error) {
	return 0, false, nil
}

func TestAddCommitmentsWraps(t *testing.T) {
	top := transactionrecord.Commitment{}
	for i := range top {
		top[i] = 0xff
	}
	one := transactionrecord.Commitment{31: 1}
	two := transactionrecord.Commitment{31: 2}

	assert.Equal(t, transactionrecord.Commitment{}, chainstorage.AddCommitments(top, one), "no wrap")
	assert.Equal(t, one, chainstorage.AddCommitments(top, two), "wrong wrap")
	assert.Equal(t, two, chainstorage.AddCommitments(one, one), "wrong sum")
}

func TestAccumulateBodyIsPure(t *testing.T) {
	b := &chainBuilder{t: t}
	body := b.body(nil, []*transactionrecord.Output{b.output(transactionrecord.StandardOutput)})

	first, err := chainstorage.AccumulateBody(nil, nil, body, noOutputs)
	require.Nil(t, err, "first")
	second, err := chainstorage.AccumulateBody(nil, roaring.New(), body, noOutputs)
	require.Nil(t, err, "second")

	assert.Equal(t, first.Roots, second.Roots, "same input gave different roots")
	assert.Equal(t, uint64(2), first.Roots.OutputMmrSize, "wrong output size")
	assert.Equal(t, uint64(2), first.Roots.KernelMmrSize, "wrong kernel size")
	assert.Equal(t, uint32(0), first.OutputStart, "wrong output start")

	// the chain bitmap changes the output root but not the block deletions
	third, err := chainstorage.AccumulateBody(first.Data, roaring.BitmapOf(0), body, noOutputs)
	require.Nil(t, err, "third")
	assert.Equal(t, uint32(2), third.OutputStart, "wrong output start")
	assert.True(t, third.Data.Deleted.IsEmpty(), "chain deletions copied into block")

	fourth, err := chainstorage.AccumulateBody(first.Data, nil, body, noOutputs)
	require.Nil(t, err, "fourth")
	assert.NotEqual(t, third.Roots.OutputMr, fourth.Roots.OutputMr, "output root ignores chain deletions")
	assert.Equal(t, third.Roots.KernelMr, fourth.Roots.KernelMr, "kernel root depends on deletions")
}

func TestAccumulateBodyInputs(t *testing.T) {
	b := &chainBuilder{t: t}
	created := b.output(transactionrecord.StandardOutput)
	stored := blockdigest.NewDigest([]byte("stored"))

	lookup := func(hash blockdigest.Digest) (uint32, bool, error) {
		if stored == hash {
			return 0, true, nil
		}
		return 0, false, nil
	}

	prior, err := chainstorage.AccumulateBody(nil, nil, b.body(nil, nil), noOutputs)
	require.Nil(t, err, "prior")

	inputs := []*transactionrecord.Input{
		{OutputHash: stored},
		spend(created),
	}
	acc, err := chainstorage.AccumulateBody(prior.Data, nil, b.body(inputs, []*transactionrecord.Output{created}), lookup)
	require.Nil(t, err, "accumulate")
	assert.Equal(t, []uint32{0, 2}, acc.InputPositions, "wrong positions")
	assert.Equal(t, []bool{false, true}, acc.ZeroConf, "wrong zero-conf flags")
	assert.Equal(t, []uint32{0, 2}, acc.Data.Deleted.ToArray(), "wrong block deletions")

	missing := []*transactionrecord.Input{{OutputHash: blockdigest.NewDigest([]byte("missing"))}}
	_, err = chainstorage.AccumulateBody(prior.Data, nil, b.body(missing, nil), lookup)
	assert.True(t, errors.Is(err, fault.ErrUnspendableInput), "missing output spent: %v", err)
}
