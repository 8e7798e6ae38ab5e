// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord_test

import (
	"math/big"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/accumulator"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

func makeHeader() *blockrecord.Header {
	return &blockrecord.Header{
		Version:       blockrecord.Version,
		Height:        7,
		PrevHash:      blockdigest.NewDigest([]byte("previous")),
		Timestamp:     1600000000,
		OutputMmrSize: 12,
		KernelMmrSize: 8,
		Nonce:         99,
		Pow: blockrecord.ProofOfWork{
			Algorithm: blockrecord.PowSha3,
			Data:      []byte{},
		},
	}
}

func TestHeaderHash(t *testing.T) {
	header := makeHeader()

	unpacked, err := blockrecord.HeaderFromBytes(header.Pack())
	require.Nil(t, err, "unpack")
	assert.Equal(t, header, unpacked, "header changed")
	assert.Equal(t, header.Hash(), unpacked.Hash(), "hash changed")

	other := *header
	other.Nonce += 1
	assert.NotEqual(t, header.Hash(), other.Hash(), "nonce not hashed")

	_, err = blockrecord.HeaderFromBytes(append(header.Pack(), 0))
	assert.Equal(t, fault.ErrUnexpectedRecordType, err, "trailing bytes accepted")
}

func TestChainHeaderHashMustMatch(t *testing.T) {
	header := makeHeader()
	accumulated := &blockrecord.HeaderAccumulatedData{
		Hash:                       header.Hash(),
		AchievedDifficulty:         3,
		TotalAccumulatedDifficulty: big.NewInt(100),
	}

	chainHeader, err := blockrecord.NewChainHeader(header, accumulated)
	require.Nil(t, err, "new chain header")
	assert.Equal(t, uint64(7), chainHeader.Height(), "wrong height")

	accumulated.Hash = blockdigest.Digest{}
	_, err = blockrecord.NewChainHeader(header, accumulated)
	assert.True(t, fault.IsErrInconsistent(err), "mismatched hash accepted")
}

func TestAccumulatedDataRecords(t *testing.T) {
	header := makeHeader()
	accumulated := &blockrecord.HeaderAccumulatedData{
		Hash:                       header.Hash(),
		TargetDifficulty:           2,
		TotalAccumulatedDifficulty: new(big.Int).Lsh(big.NewInt(1), 100),
	}
	a, err := blockrecord.HeaderAccumulatedDataFromBytes(accumulated.Pack())
	require.Nil(t, err, "unpack header data")
	assert.Equal(t, 0, accumulated.TotalAccumulatedDifficulty.Cmp(a.TotalAccumulatedDifficulty), "difficulty changed")

	data := blockrecord.NewBlockAccumulatedData()
	data.Kernels = accumulator.PrunedHashSet{LeafCount: 1, Peaks: []blockdigest.Digest{header.Hash()}}
	data.Deleted = roaring.BitmapOf(4, 9)
	data.KernelSum = transactionrecord.Commitment{1, 2, 3}

	b, err := blockrecord.BlockAccumulatedDataFromBytes(data.Pack())
	require.Nil(t, err, "unpack block data")
	assert.Equal(t, data.Kernels, b.Kernels, "kernel set changed")
	assert.Equal(t, uint64(0), b.Outputs.LeafCount, "output set changed")
	assert.True(t, data.Deleted.Equals(b.Deleted), "deleted changed")
	assert.Equal(t, data.KernelSum, b.KernelSum, "sum changed")
}

func TestNewBlockFromBlock(t *testing.T) {
	coinbase := &transactionrecord.Kernel{Features: transactionrecord.CoinbaseKernel}
	plain := &transactionrecord.Kernel{ExcessSig: transactionrecord.Signature{7}}
	block := &blockrecord.Block{
		Header: makeHeader(),
		Body: &transactionrecord.AggregateBody{
			Outputs: []*transactionrecord.Output{
				{Features: transactionrecord.OutputFeatures{OutputType: transactionrecord.CoinbaseOutput}},
				{},
			},
			Kernels: []*transactionrecord.Kernel{coinbase, plain},
		},
	}

	nb := blockrecord.NewBlockFromBlock(block)
	assert.Equal(t, []*transactionrecord.Kernel{coinbase}, nb.CoinbaseKernels, "wrong coinbase kernels")
	assert.Equal(t, 1, len(nb.CoinbaseOutputs), "wrong coinbase outputs")
	assert.Equal(t, []transactionrecord.Signature{plain.ExcessSig}, nb.KernelExcessSigs, "wrong excess sigs")
}

func TestMmrRoots(t *testing.T) {
	roots := &blockrecord.MmrRoots{
		KernelMr:      blockdigest.NewDigest([]byte("k")),
		KernelMmrSize: 3,
		OutputMmrSize: 4,
	}
	header := makeHeader()
	assert.False(t, roots.Matches(header), "unexpected match")
	roots.Apply(header)
	assert.True(t, roots.Matches(header), "roots not applied")
}

func TestHorizonBlockHeight(t *testing.T) {
	metadata := &blockrecord.ChainMetadata{PruningHorizon: 10}
	assert.Equal(t, uint64(0), metadata.HorizonBlockHeight(5), "below horizon")
	assert.Equal(t, uint64(15), metadata.HorizonBlockHeight(25), "above horizon")
	metadata.PruningHorizon = 0
	assert.True(t, metadata.IsArchivalNode(), "archival")
}
