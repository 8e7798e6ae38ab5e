// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/bitmark-inc/chainstore/accumulator"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
	"github.com/bitmark-inc/chainstore/util"
)

// Block - a header and its body
type Block struct {
	Header *Header                          `json:"header"`
	Body   *transactionrecord.AggregateBody `json:"body"`
}

// Hash - hash of the block's header
func (block *Block) Hash() blockdigest.Digest {
	return block.Header.Hash()
}

// Pack - binary form of the block
func (block *Block) Pack() util.Packed {
	buffer := block.Header.Pack()
	return append(buffer, block.Body.Pack()...)
}

// BlockFromBytes - unpack a record written by Pack
func BlockFromBytes(record []byte) (*Block, error) {
	u := util.NewUnpacker(record)
	header := UnpackHeader(u)
	body := transactionrecord.UnpackBody(u)
	if err := u.Done(); nil != err {
		return nil, err
	}
	return &Block{
		Header: header,
		Body:   body,
	}, nil
}

// ChainBlock - a block with the accumulated data of its header
type ChainBlock struct {
	Accumulated *HeaderAccumulatedData `json:"accumulated"`
	Block       *Block                 `json:"block"`
}

// NewChainBlock - pair a block with its accumulated data
func NewChainBlock(block *Block, accumulated *HeaderAccumulatedData) (*ChainBlock, error) {
	if block.Hash() != accumulated.Hash {
		return nil, fault.ErrHeaderHashMismatch
	}
	return &ChainBlock{
		Accumulated: accumulated,
		Block:       block,
	}, nil
}

// Height - height of the block
func (chainBlock *ChainBlock) Height() uint64 {
	return chainBlock.Block.Header.Height
}

// Hash - hash of the block
func (chainBlock *ChainBlock) Hash() blockdigest.Digest {
	return chainBlock.Accumulated.Hash
}

// ToChainHeader - drop the body
func (chainBlock *ChainBlock) ToChainHeader() *ChainHeader {
	return &ChainHeader{
		Header:      chainBlock.Block.Header,
		Accumulated: chainBlock.Accumulated,
	}
}

// NewBlock - compact block announcement: the coinbase in full and the
// excess signatures of every other kernel
type NewBlock struct {
	Header           *Header                       `json:"header"`
	CoinbaseKernels  []*transactionrecord.Kernel   `json:"coinbaseKernels"`
	CoinbaseOutputs  []*transactionrecord.Output   `json:"coinbaseOutputs"`
	KernelExcessSigs []transactionrecord.Signature `json:"kernelExcessSigs"`
}

// NewBlockFromBlock - build the compact form of a block
func NewBlockFromBlock(block *Block) *NewBlock {
	nb := &NewBlock{
		Header:           block.Header,
		CoinbaseKernels:  []*transactionrecord.Kernel{},
		CoinbaseOutputs:  []*transactionrecord.Output{},
		KernelExcessSigs: []transactionrecord.Signature{},
	}
	for _, kernel := range block.Body.Kernels {
		if kernel.IsCoinbase() {
			nb.CoinbaseKernels = append(nb.CoinbaseKernels, kernel)
		} else {
			nb.KernelExcessSigs = append(nb.KernelExcessSigs, kernel.ExcessSig)
		}
	}
	for _, output := range block.Body.Outputs {
		if output.IsCoinbase() {
			nb.CoinbaseOutputs = append(nb.CoinbaseOutputs, output)
		}
	}
	return nb
}

// BlockAccumulatedData - range peaks after a block and the output
// positions the block spent
type BlockAccumulatedData struct {
	Kernels   accumulator.PrunedHashSet    `json:"kernels"`
	Outputs   accumulator.PrunedHashSet    `json:"outputs"`
	Witness   accumulator.PrunedHashSet    `json:"witness"`
	Deleted   *roaring.Bitmap              `json:"-"`
	KernelSum transactionrecord.Commitment `json:"kernelSum"`
}

// NewBlockAccumulatedData - empty data, as before the genesis block
func NewBlockAccumulatedData() *BlockAccumulatedData {
	return &BlockAccumulatedData{
		Deleted: roaring.New(),
	}
}

// Pack - binary form of the accumulated data
func (data *BlockAccumulatedData) Pack() util.Packed {
	buffer := util.Packed{}
	buffer = append(buffer, data.Kernels.Pack()...)
	buffer = append(buffer, data.Outputs.Pack()...)
	buffer = append(buffer, data.Witness.Pack()...)
	buffer = buffer.AppendBytes(accumulator.SerializeBitmap(data.Deleted))
	return buffer.AppendFixed(data.KernelSum[:])
}

// BlockAccumulatedDataFromBytes - unpack a record written by Pack
func BlockAccumulatedDataFromBytes(record []byte) (*BlockAccumulatedData, error) {
	u := util.NewUnpacker(record)
	data := &BlockAccumulatedData{}
	data.Kernels = accumulator.UnpackPrunedHashSet(u)
	data.Outputs = accumulator.UnpackPrunedHashSet(u)
	data.Witness = accumulator.UnpackPrunedHashSet(u)
	deleted := u.Bytes()
	u.Fixed(data.KernelSum[:])
	if err := u.Done(); nil != err {
		return nil, err
	}
	bitmap, err := accumulator.DeserializeBitmap(deleted)
	if nil != err {
		return nil, err
	}
	data.Deleted = bitmap
	return data, nil
}
