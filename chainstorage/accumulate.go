// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"math"
	"math/big"

	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/accumulator"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

// OutputLookup - leaf index of an output already in the store
type OutputLookup func(outputHash blockdigest.Digest) (uint32, bool, error)

// BodyAccumulation - a block body added to the accumulated data of its
// parent
type BodyAccumulation struct {
	// new accumulated data, Deleted holds only this block's positions
	Data  *blockrecord.BlockAccumulatedData
	Roots blockrecord.MmrRoots

	// leaf index of the first kernel and the first output
	KernelStart uint32
	OutputStart uint32

	// one entry per input: the spent leaf and whether it was created
	// by this same body
	InputPositions []uint32
	ZeroConf       []bool
}

// AccumulateBody - push a body into the three ranges without touching
// the store
//
// outputs are pushed before inputs are resolved so an input may spend
// an output of the same body; burned outputs are deleted as soon as
// they are pushed; the output root commits to chainDeleted plus the
// positions deleted here
func AccumulateBody(prior *blockrecord.BlockAccumulatedData, chainDeleted *roaring.Bitmap, body *transactionrecord.AggregateBody, lookup OutputLookup) (*BodyAccumulation, error) {
	if nil == prior {
		prior = blockrecord.NewBlockAccumulatedData()
	}

	kernelMmr, err := accumulator.NewMerkleMountainRange(prior.Kernels)
	if nil != err {
		return nil, err
	}
	outputMmr, err := accumulator.NewMutableMmr(prior.Outputs, roaring.New())
	if nil != err {
		return nil, err
	}
	witnessMmr, err := accumulator.NewMerkleMountainRange(prior.Witness)
	if nil != err {
		return nil, err
	}

	if kernelMmr.LeafCount()+uint64(len(body.Kernels)) > math.MaxUint32 {
		return nil, errors.Wrapf(fault.ErrMmrCountOverflow, "kernel leaves: %d + %d", kernelMmr.LeafCount(), len(body.Kernels))
	}
	if outputMmr.LeafCount()+uint64(len(body.Outputs)) > math.MaxUint32 {
		return nil, errors.Wrapf(fault.ErrMmrCountOverflow, "output leaves: %d + %d", outputMmr.LeafCount(), len(body.Outputs))
	}

	result := &BodyAccumulation{
		KernelStart:    uint32(kernelMmr.LeafCount()),
		OutputStart:    uint32(outputMmr.LeafCount()),
		InputPositions: make([]uint32, len(body.Inputs)),
		ZeroConf:       make([]bool, len(body.Inputs)),
	}

	kernelSum := transactionrecord.Commitment{}
	for _, kernel := range body.Kernels {
		kernelSum = AddCommitments(kernelSum, kernel.Excess)
		if _, err := kernelMmr.Push(kernel.Hash()); nil != err {
			return nil, err
		}
	}

	for _, output := range body.Outputs {
		hash := output.Hash()
		index, err := outputMmr.Push(hash)
		if nil != err {
			return nil, err
		}
		if _, err := witnessMmr.Push(output.WitnessHash()); nil != err {
			return nil, err
		}
		if output.IsBurned() {
			if err := outputMmr.Delete(index); nil != err {
				return nil, err
			}
		}
	}

	for i, input := range body.Inputs {
		position, found, err := lookup(input.OutputHash)
		if nil != err {
			return nil, err
		}
		if !found {
			index, ok := outputMmr.FindLeafIndex(input.OutputHash)
			if !ok {
				return nil, errors.Wrapf(fault.ErrUnspendableInput, "output: %s", input.OutputHash)
			}
			position = uint32(index)
			result.ZeroConf[i] = true
		}
		if err := outputMmr.Delete(uint64(position)); nil != err {
			return nil, err
		}
		result.InputPositions[i] = position
	}

	blockDeleted := outputMmr.Deleted().Clone()
	blockDeleted.RunOptimize()

	full := blockDeleted.Clone()
	if nil != chainDeleted {
		full.Or(chainDeleted)
	}
	outputMmr.SetDeleted(full)
	outputMmr.Compress()

	result.Data = &blockrecord.BlockAccumulatedData{
		Kernels:   kernelMmr.PrunedHashSet(),
		Outputs:   outputMmr.PrunedHashSet(),
		Witness:   witnessMmr.PrunedHashSet(),
		Deleted:   blockDeleted,
		KernelSum: kernelSum,
	}
	result.Roots = blockrecord.MmrRoots{
		KernelMr:      kernelMmr.Root(),
		KernelMmrSize: kernelMmr.LeafCount(),
		OutputMr:      outputMmr.Root(),
		WitnessMr:     witnessMmr.Root(),
		OutputMmrSize: outputMmr.LeafCount(),
	}
	return result, nil
}

var commitmentModulus = new(big.Int).Lsh(big.NewInt(1), 8*transactionrecord.CommitmentLength)

// AddCommitments - sum of two commitments taken as big endian integers
// modulo 2^256
func AddCommitments(a transactionrecord.Commitment, b transactionrecord.Commitment) transactionrecord.Commitment {
	sum := new(big.Int).SetBytes(a[:])
	sum.Add(sum, new(big.Int).SetBytes(b[:]))
	sum.Mod(sum, commitmentModulus)

	result := transactionrecord.Commitment{}
	sum.FillBytes(result[:])
	return result
}
