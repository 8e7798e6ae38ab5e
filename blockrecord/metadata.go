// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"math/big"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/transactionrecord"
	"github.com/bitmark-inc/chainstore/util"
)

// ChainMetadata - summary of the best chain
type ChainMetadata struct {
	HeightOfLongestChain  uint64             `json:"heightOfLongestChain"`
	BestBlock             blockdigest.Digest `json:"bestBlock"`
	PruningHorizon        uint64             `json:"pruningHorizon"`
	PrunedHeight          uint64             `json:"prunedHeight"`
	AccumulatedDifficulty *big.Int           `json:"accumulatedDifficulty"`
	Timestamp             uint64             `json:"timestamp"`
}

// IsArchivalNode - a zero horizon keeps every output
func (metadata *ChainMetadata) IsArchivalNode() bool {
	return 0 == metadata.PruningHorizon
}

// HorizonBlockHeight - the height below which outputs may be pruned
func (metadata *ChainMetadata) HorizonBlockHeight(tip uint64) uint64 {
	if metadata.IsArchivalNode() || tip < metadata.PruningHorizon {
		return 0
	}
	return tip - metadata.PruningHorizon
}

// HorizonData - sums of the chain state at the pruning horizon
type HorizonData struct {
	KernelSum transactionrecord.Commitment `json:"kernelSum"`
	UtxoSum   transactionrecord.Commitment `json:"utxoSum"`
}

// Pack - binary form of the horizon data
func (data *HorizonData) Pack() util.Packed {
	return util.Packed{}.AppendFixed(data.KernelSum[:]).AppendFixed(data.UtxoSum[:])
}

// HorizonDataFromBytes - unpack a record written by Pack
func HorizonDataFromBytes(record []byte) (*HorizonData, error) {
	u := util.NewUnpacker(record)
	data := &HorizonData{}
	u.Fixed(data.KernelSum[:])
	u.Fixed(data.UtxoSum[:])
	if err := u.Done(); nil != err {
		return nil, err
	}
	return data, nil
}

// Reorg - record of a chain reorganisation
type Reorg struct {
	FromHeight                uint64             `json:"fromHeight"`
	FromHash                  blockdigest.Digest `json:"fromHash"`
	FromAccumulatedDifficulty *big.Int           `json:"fromAccumulatedDifficulty"`
	ToHeight                  uint64             `json:"toHeight"`
	ToHash                    blockdigest.Digest `json:"toHash"`
	ToAccumulatedDifficulty   *big.Int           `json:"toAccumulatedDifficulty"`
	NumBlocksAdded            uint64             `json:"numBlocksAdded"`
	NumBlocksRemoved          uint64             `json:"numBlocksRemoved"`
	Timestamp                 uint64             `json:"timestamp"`
}

// NewReorg - describe a switch from one tip to another
func NewReorg(from *ChainHeader, to *ChainHeader, added int, removed int, timestamp uint64) *Reorg {
	return &Reorg{
		FromHeight:                from.Height(),
		FromHash:                  from.Hash(),
		FromAccumulatedDifficulty: from.Accumulated.TotalAccumulatedDifficulty,
		ToHeight:                  to.Height(),
		ToHash:                    to.Hash(),
		ToAccumulatedDifficulty:   to.Accumulated.TotalAccumulatedDifficulty,
		NumBlocksAdded:            uint64(added),
		NumBlocksRemoved:          uint64(removed),
		Timestamp:                 timestamp,
	}
}

func bigBytes(n *big.Int) []byte {
	if nil == n {
		return []byte{}
	}
	return n.Bytes()
}

// Pack - binary form of the reorg
func (reorg *Reorg) Pack() util.Packed {
	buffer := util.Packed{}
	buffer = buffer.AppendUint64(reorg.FromHeight)
	buffer = buffer.AppendFixed(reorg.FromHash[:])
	buffer = buffer.AppendBytes(bigBytes(reorg.FromAccumulatedDifficulty))
	buffer = buffer.AppendUint64(reorg.ToHeight)
	buffer = buffer.AppendFixed(reorg.ToHash[:])
	buffer = buffer.AppendBytes(bigBytes(reorg.ToAccumulatedDifficulty))
	buffer = buffer.AppendUint64(reorg.NumBlocksAdded)
	buffer = buffer.AppendUint64(reorg.NumBlocksRemoved)
	return buffer.AppendUint64(reorg.Timestamp)
}

// ReorgFromBytes - unpack a record written by Pack
func ReorgFromBytes(record []byte) (*Reorg, error) {
	u := util.NewUnpacker(record)
	reorg := &Reorg{}
	reorg.FromHeight = u.Uint64()
	u.Fixed(reorg.FromHash[:])
	reorg.FromAccumulatedDifficulty = new(big.Int).SetBytes(u.Bytes())
	reorg.ToHeight = u.Uint64()
	u.Fixed(reorg.ToHash[:])
	reorg.ToAccumulatedDifficulty = new(big.Int).SetBytes(u.Bytes())
	reorg.NumBlocksAdded = u.Uint64()
	reorg.NumBlocksRemoved = u.Uint64()
	reorg.Timestamp = u.Uint64()
	if err := u.Done(); nil != err {
		return nil, err
	}
	return reorg, nil
}

// MmrRoots - roots and sizes a header must carry for a block body
type MmrRoots struct {
	KernelMr      blockdigest.Digest `json:"kernelMr"`
	KernelMmrSize uint64             `json:"kernelMmrSize"`
	OutputMr      blockdigest.Digest `json:"outputMr"`
	WitnessMr     blockdigest.Digest `json:"witnessMr"`
	OutputMmrSize uint64             `json:"outputMmrSize"`
}

// Apply - copy the roots into a header
func (roots *MmrRoots) Apply(header *Header) {
	header.KernelMr = roots.KernelMr
	header.KernelMmrSize = roots.KernelMmrSize
	header.OutputMr = roots.OutputMr
	header.WitnessMr = roots.WitnessMr
	header.OutputMmrSize = roots.OutputMmrSize
}

// Matches - true if the header carries these roots
func (roots *MmrRoots) Matches(header *Header) bool {
	return header.KernelMr == roots.KernelMr &&
		header.KernelMmrSize == roots.KernelMmrSize &&
		header.OutputMr == roots.OutputMr &&
		header.WitnessMr == roots.WitnessMr &&
		header.OutputMmrSize == roots.OutputMmrSize
}
