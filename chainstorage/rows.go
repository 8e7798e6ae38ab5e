// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"encoding/binary"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
	"github.com/bitmark-inc/chainstore/util"
)

// PrunedOutput - an output row: the output, or only its hashes once
// pruned
type PrunedOutput struct {
	Output      *transactionrecord.Output `json:"output,omitempty"`
	OutputHash  blockdigest.Digest        `json:"outputHash"`
	WitnessHash blockdigest.Digest        `json:"witnessHash"`
}

// IsPruned - the output data has been discarded
func (p *PrunedOutput) IsPruned() bool {
	return nil == p.Output
}

// UtxoMinedInfo - an output with where and when it was mined
type UtxoMinedInfo struct {
	Output         PrunedOutput       `json:"output"`
	MmrPosition    uint32             `json:"mmrPosition"`
	MinedHeight    uint64             `json:"minedHeight"`
	HeaderHash     blockdigest.Digest `json:"headerHash"`
	MinedTimestamp uint64             `json:"minedTimestamp"`
}

func (info *UtxoMinedInfo) pack() util.Packed {
	buffer := util.Packed{}
	buffer = buffer.AppendBool(nil != info.Output.Output)
	if nil != info.Output.Output {
		buffer = buffer.AppendBytes(info.Output.Output.Pack())
	}
	buffer = buffer.AppendFixed(info.Output.OutputHash[:])
	buffer = buffer.AppendFixed(info.Output.WitnessHash[:])
	buffer = buffer.AppendUint64(uint64(info.MmrPosition))
	buffer = buffer.AppendUint64(info.MinedHeight)
	buffer = buffer.AppendFixed(info.HeaderHash[:])
	return buffer.AppendUint64(info.MinedTimestamp)
}

func unpackUtxoMinedInfo(record []byte) (*UtxoMinedInfo, error) {
	u := util.NewUnpacker(record)
	info := &UtxoMinedInfo{}
	if u.Bool() {
		inner := util.NewUnpacker(u.Bytes())
		info.Output.Output = transactionrecord.UnpackOutput(inner)
		if err := inner.Done(); nil != err {
			return nil, err
		}
	}
	u.Fixed(info.Output.OutputHash[:])
	u.Fixed(info.Output.WitnessHash[:])
	info.MmrPosition = uint32(u.Uint64())
	info.MinedHeight = u.Uint64()
	u.Fixed(info.HeaderHash[:])
	info.MinedTimestamp = u.Uint64()
	if err := u.Done(); nil != err {
		return nil, err
	}
	return info, nil
}

// InputMinedInfo - a compact input with the block that spent it
type InputMinedInfo struct {
	Input       *transactionrecord.Input `json:"input"`
	HeaderHash  blockdigest.Digest       `json:"headerHash"`
	MmrPosition uint32                   `json:"mmrPosition"`
	SpentHeight uint64                   `json:"spentHeight"`
	Hash        blockdigest.Digest       `json:"hash"`
}

func (info *InputMinedInfo) pack() util.Packed {
	buffer := util.Packed{}
	buffer = buffer.AppendBytes(info.Input.ToCompact().Pack())
	buffer = buffer.AppendFixed(info.HeaderHash[:])
	buffer = buffer.AppendUint64(uint64(info.MmrPosition))
	buffer = buffer.AppendUint64(info.SpentHeight)
	return buffer.AppendFixed(info.Hash[:])
}

func unpackInputMinedInfo(record []byte) (*InputMinedInfo, error) {
	u := util.NewUnpacker(record)
	info := &InputMinedInfo{}
	inner := util.NewUnpacker(u.Bytes())
	info.Input = transactionrecord.UnpackInput(inner)
	if err := inner.Done(); nil != err {
		return nil, err
	}
	u.Fixed(info.HeaderHash[:])
	info.MmrPosition = uint32(u.Uint64())
	info.SpentHeight = u.Uint64()
	u.Fixed(info.Hash[:])
	if err := u.Done(); nil != err {
		return nil, err
	}
	return info, nil
}

// kernel row
type kernelRow struct {
	kernel      *transactionrecord.Kernel
	headerHash  blockdigest.Digest
	mmrPosition uint32
	hash        blockdigest.Digest
}

func (row *kernelRow) pack() util.Packed {
	buffer := util.Packed{}
	buffer = buffer.AppendBytes(row.kernel.Pack())
	buffer = buffer.AppendFixed(row.headerHash[:])
	buffer = buffer.AppendUint64(uint64(row.mmrPosition))
	return buffer.AppendFixed(row.hash[:])
}

func unpackKernelRow(record []byte) (*kernelRow, error) {
	u := util.NewUnpacker(record)
	row := &kernelRow{}
	inner := util.NewUnpacker(u.Bytes())
	row.kernel = transactionrecord.UnpackKernel(inner)
	if err := inner.Done(); nil != err {
		return nil, err
	}
	u.Fixed(row.headerHash[:])
	row.mmrPosition = uint32(u.Uint64())
	u.Fixed(row.hash[:])
	if err := u.Done(); nil != err {
		return nil, err
	}
	return row, nil
}

// value of both kernel indexes: where to find the kernel row
type kernelLocation struct {
	headerHash  blockdigest.Digest
	mmrPosition uint32
	hash        blockdigest.Digest
}

func (l kernelLocation) pack() []byte {
	buffer := make([]byte, 0, 2*blockdigest.Length+4)
	buffer = append(buffer, l.headerHash[:]...)
	buffer = binary.BigEndian.AppendUint32(buffer, l.mmrPosition)
	return append(buffer, l.hash[:]...)
}

func unpackKernelLocation(record []byte) (kernelLocation, error) {
	l := kernelLocation{}
	if 2*blockdigest.Length+4 != len(record) {
		return l, fault.ErrTruncatedRecord
	}
	copy(l.headerHash[:], record)
	l.mmrPosition = binary.BigEndian.Uint32(record[blockdigest.Length:])
	copy(l.hash[:], record[blockdigest.Length+4:])
	return l, nil
}

// value of txos_hash_to_index: the leaf position and the utxos key
type txoIndex struct {
	mmrPosition uint32
	key         []byte
}

func (t txoIndex) pack() []byte {
	buffer := binary.BigEndian.AppendUint32(nil, t.mmrPosition)
	return append(buffer, t.key...)
}

func unpackTxoIndex(record []byte) (txoIndex, error) {
	if len(record) < 4 {
		return txoIndex{}, fault.ErrTruncatedRecord
	}
	return txoIndex{
		mmrPosition: binary.BigEndian.Uint32(record),
		key:         record[4:],
	}, nil
}

// a height and a header hash: values of the output size index and the
// deleted position index
type heightHash struct {
	height uint64
	hash   blockdigest.Digest
}

func (h heightHash) pack() []byte {
	buffer := binary.BigEndian.AppendUint64(make([]byte, 0, 8+blockdigest.Length), h.height)
	return append(buffer, h.hash[:]...)
}

func unpackHeightHash(record []byte) (heightHash, error) {
	h := heightHash{}
	if 8+blockdigest.Length != len(record) {
		return h, fault.ErrTruncatedRecord
	}
	h.height = binary.BigEndian.Uint64(record)
	copy(h.hash[:], record[8:])
	return h, nil
}

// fixed width big endian keys and values
func beUint64(n uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), n)
}

func beUint32(n uint32) []byte {
	return binary.BigEndian.AppendUint32(make([]byte, 0, 4), n)
}

func fromBeUint64(record []byte) (uint64, error) {
	if 8 != len(record) {
		return 0, fault.ErrTruncatedRecord
	}
	return binary.BigEndian.Uint64(record), nil
}

func digestFrom(record []byte) (blockdigest.Digest, error) {
	d := blockdigest.Digest{}
	err := blockdigest.DigestFromBytes(&d, record)
	return d, err
}
