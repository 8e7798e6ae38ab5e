// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

// HistoricalBlock - a main chain block as stored, possibly with some
// outputs pruned
type HistoricalBlock struct {
	Block         *blockrecord.Block                 `json:"block"`
	Accumulated   *blockrecord.HeaderAccumulatedData `json:"accumulated"`
	Confirmations uint64                             `json:"confirmations"`

	// outputs whose data has gone, only their hashes remain
	PrunedOutputs []chainstorage.PrunedOutput `json:"prunedOutputs"`
}

// Header - header of the block
func (h *HistoricalBlock) Header() *blockrecord.Header {
	return h.Block.Header
}

// Hash - hash of the block
func (h *HistoricalBlock) Hash() blockdigest.Digest {
	return h.Accumulated.Hash
}

// IsPruned - some outputs are no longer stored in full
func (h *HistoricalBlock) IsPruned() bool {
	return 0 != len(h.PrunedOutputs)
}

// ToChainBlock - the complete block, fails if any output was pruned
func (h *HistoricalBlock) ToChainBlock() (*blockrecord.ChainBlock, error) {
	if h.IsPruned() {
		return nil, errors.Wrapf(fault.ErrBlockPruned, "block: %s  pruned outputs: %d", h.Hash(), len(h.PrunedOutputs))
	}
	return blockrecord.NewChainBlock(h.Block, h.Accumulated)
}

// FetchBlock - main chain block at height, compact keeps inputs as
// references to the outputs they spend
func (bc *BlockchainDatabase) FetchBlock(height uint64, compact bool) (*HistoricalBlock, error) {
	bc.RLock()
	defer bc.RUnlock()

	metadata, err := bc.FetchChainMetadata()
	if nil != err {
		return nil, err
	}
	if height > metadata.HeightOfLongestChain {
		return nil, errors.Wrapf(fault.ErrBlockNotFound, "height: %d  tip: %d", height, metadata.HeightOfLongestChain)
	}
	return bc.fetchBlockAt(height, metadata.HeightOfLongestChain, compact)
}

// FetchBlockByHash - main chain block with the given hash, nil if the
// hash is not a main chain block
func (bc *BlockchainDatabase) FetchBlockByHash(hash blockdigest.Digest, compact bool) (*HistoricalBlock, error) {
	bc.RLock()
	defer bc.RUnlock()

	value, err := bc.Fetch(chainstorage.BlockHashKey(hash))
	if nil != err || nil == value {
		return nil, err
	}
	metadata, err := bc.FetchChainMetadata()
	if nil != err {
		return nil, err
	}
	if value.Header.Height > metadata.HeightOfLongestChain {
		return nil, nil
	}
	return bc.fetchBlockAt(value.Header.Height, metadata.HeightOfLongestChain, compact)
}

func (bc *BlockchainDatabase) fetchBlockAt(height uint64, tipHeight uint64, compact bool) (*HistoricalBlock, error) {
	chainHeader, err := bc.FetchChainHeaderByHeight(height)
	if nil != err {
		return nil, err
	}
	hash := chainHeader.Hash()

	kernels, err := bc.FetchKernelsInBlock(hash)
	if nil != err {
		return nil, err
	}
	rows, err := bc.FetchOutputsInBlock(hash)
	if nil != err {
		return nil, err
	}
	inputs, err := bc.FetchInputsInBlock(hash)
	if nil != err {
		return nil, err
	}

	for i, input := range inputs {
		if compact {
			inputs[i] = input.ToCompact()
		} else if input.IsCompact() {
			info, found, err := bc.FetchOutput(input.OutputHash)
			if nil != err {
				return nil, err
			}
			if found && !info.Output.IsPruned() {
				input.AddOutputData(info.Output.Output)
			}
		}
	}

	outputs := make([]*transactionrecord.Output, 0, len(rows))
	pruned := []chainstorage.PrunedOutput{}
	for _, row := range rows {
		if row.IsPruned() {
			pruned = append(pruned, row)
		} else {
			outputs = append(outputs, row.Output)
		}
	}

	return &HistoricalBlock{
		Block: &blockrecord.Block{
			Header: chainHeader.Header,
			Body: &transactionrecord.AggregateBody{
				Inputs:  inputs,
				Outputs: outputs,
				Kernels: kernels,
			},
		},
		Accumulated:   chainHeader.Accumulated,
		Confirmations: tipHeight - height,
		PrunedOutputs: pruned,
	}, nil
}

// the complete block at height, for moving it into the orphan pool
func (bc *BlockchainDatabase) fetchChainBlockAt(height uint64) (*blockrecord.ChainBlock, error) {
	h, err := bc.fetchBlockAt(height, height, true)
	if nil != err {
		return nil, err
	}
	return h.ToChainBlock()
}

// clamp an inclusive range to a maximum, false if nothing is left
func clampRange(start uint64, end uint64, max uint64) (uint64, bool) {
	if end > max {
		end = max
	}
	return end, start <= end
}

// FetchBlocks - main chain blocks from start to end inclusive, end is
// clamped to the tip
func (bc *BlockchainDatabase) FetchBlocks(start uint64, end uint64, compact bool) ([]*HistoricalBlock, error) {
	bc.RLock()
	defer bc.RUnlock()

	metadata, err := bc.FetchChainMetadata()
	if nil != err {
		return nil, err
	}
	tip := metadata.HeightOfLongestChain

	blocks := []*HistoricalBlock{}
	end, ok := clampRange(start, end, tip)
	if !ok {
		return blocks, nil
	}
	for height := start; height <= end; height += 1 {
		block, err := bc.fetchBlockAt(height, tip, compact)
		if nil != err {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// FetchHeaders - stored headers from start to end inclusive, end is
// clamped to the last header which may be above the tip
func (bc *BlockchainDatabase) FetchHeaders(start uint64, end uint64) ([]*blockrecord.Header, error) {
	bc.RLock()
	defer bc.RUnlock()
	return bc.fetchHeaders(start, end)
}

func (bc *BlockchainDatabase) fetchHeaders(start uint64, end uint64) ([]*blockrecord.Header, error) {
	last, err := bc.FetchLastHeader()
	if nil != err {
		return nil, err
	}

	headers := []*blockrecord.Header{}
	end, ok := clampRange(start, end, last.Height)
	if !ok {
		return headers, nil
	}
	for height := start; height <= end; height += 1 {
		chainHeader, err := bc.FetchChainHeaderByHeight(height)
		if nil != err {
			return nil, err
		}
		headers = append(headers, chainHeader.Header)
	}
	return headers, nil
}

// FindHeadersAfterHash - up to count main chain headers following the
// first known hash
//
// returns the index of the hash used; false if no hash is known
func (bc *BlockchainDatabase) FindHeadersAfterHash(hashes []blockdigest.Digest, count uint64) (int, []*blockrecord.Header, bool, error) {
	bc.RLock()
	defer bc.RUnlock()

	for i, hash := range hashes {
		value, err := bc.Fetch(chainstorage.BlockHashKey(hash))
		if nil != err {
			return 0, nil, false, err
		}
		if nil == value {
			continue
		}
		if 0 == count {
			return i, []*blockrecord.Header{}, true, nil
		}

		metadata, err := bc.FetchChainMetadata()
		if nil != err {
			return 0, nil, false, err
		}
		end := value.Header.Height + count
		if end > metadata.HeightOfLongestChain {
			end = metadata.HeightOfLongestChain
		}
		headers, err := bc.fetchHeaders(value.Header.Height+1, end)
		if nil != err {
			return 0, nil, false, err
		}
		return i, headers, true, nil
	}
	return 0, nil, false, nil
}

// FetchBlockHashesFromHeaderTip - n hashes, highest first, starting
// offset below the last header
func (bc *BlockchainDatabase) FetchBlockHashesFromHeaderTip(n uint64, offset uint64) ([]blockdigest.Digest, error) {
	bc.RLock()
	defer bc.RUnlock()

	hashes := []blockdigest.Digest{}
	if 0 == n {
		return hashes, nil
	}

	last, err := bc.FetchLastHeader()
	if nil != err {
		return nil, err
	}
	if offset > last.Height {
		return hashes, nil
	}
	end := last.Height - offset
	start := uint64(0)
	if end >= n-1 {
		start = end - (n - 1)
	}

	headers, err := bc.fetchHeaders(start, end)
	if nil != err {
		return nil, err
	}
	for i := len(headers) - 1; i >= 0; i -= 1 {
		hashes = append(hashes, headers[i].Hash())
	}
	return hashes, nil
}

// CalculateMmrRoots - roots a block extending the tip must carry
func (bc *BlockchainDatabase) CalculateMmrRoots(block *blockrecord.Block) (*blockrecord.MmrRoots, error) {
	bc.RLock()
	defer bc.RUnlock()
	return bc.calculateMmrRoots(block)
}

func (bc *BlockchainDatabase) calculateMmrRoots(block *blockrecord.Block) (*blockrecord.MmrRoots, error) {
	metadata, err := bc.FetchChainMetadata()
	if nil != err {
		return nil, err
	}
	if block.Header.PrevHash != metadata.BestBlock {
		return nil, errors.Wrapf(fault.ErrInvalidArguments, "block parent: %s is not the tip: %s", block.Header.PrevHash, metadata.BestBlock)
	}

	prior, found, err := bc.FetchBlockAccumulatedData(metadata.BestBlock)
	if nil != err {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(fault.ErrAccumulatedDataNotFound, "tip: %s", metadata.BestBlock)
	}
	deleted, err := bc.FetchDeletedBitmap()
	if nil != err {
		return nil, err
	}

	lookup := func(outputHash blockdigest.Digest) (uint32, bool, error) {
		return bc.FetchMmrLeafIndex(chainstorage.UtxoTree, outputHash)
	}
	acc, err := chainstorage.AccumulateBody(prior, deleted, block.Body, lookup)
	if nil != err {
		return nil, err
	}
	return &acc.Roots, nil
}

// PrepareNewBlock - complete a template for the block after the tip by
// filling in its roots
func (bc *BlockchainDatabase) PrepareNewBlock(header *blockrecord.Header, body *transactionrecord.AggregateBody) (*blockrecord.Block, error) {
	bc.RLock()
	defer bc.RUnlock()

	if 0 == header.Height {
		return nil, errors.Wrap(fault.ErrInvalidArguments, "cannot prepare a genesis block")
	}
	tip, err := bc.FetchTipHeader()
	if nil != err {
		return nil, err
	}
	if header.Height != tip.Height()+1 {
		return nil, errors.Wrapf(fault.ErrInvalidArguments, "template height: %d  tip height: %d", header.Height, tip.Height())
	}
	if header.PrevHash != tip.Hash() {
		return nil, errors.Wrapf(fault.ErrInvalidArguments, "template parent: %s  tip: %s", header.PrevHash, tip.Hash())
	}

	h := *header
	block := &blockrecord.Block{
		Header: &h,
		Body:   body,
	}
	roots, err := bc.calculateMmrRoots(block)
	if nil != err {
		return nil, err
	}
	roots.Apply(block.Header)
	return block, nil
}
