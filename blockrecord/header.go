// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"math/big"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/util"
)

// currently supported block version
const (
	Version        = 1
	MinimumVersion = 1
)

// PowAlgorithm - proof of work algorithm
type PowAlgorithm uint8

// supported algorithms
const (
	PowMonero = PowAlgorithm(0)
	PowSha3   = PowAlgorithm(1)
)

// String - algorithm name
func (algorithm PowAlgorithm) String() string {
	switch algorithm {
	case PowMonero:
		return "Monero"
	case PowSha3:
		return "Sha3"
	default:
		return "Unknown"
	}
}

// ProofOfWork - algorithm and algorithm specific data
type ProofOfWork struct {
	Algorithm PowAlgorithm `json:"algorithm"`
	Data      []byte       `json:"data"`
}

// Header - the unpacked header structure
type Header struct {
	Version           uint16             `json:"version"`
	Height            uint64             `json:"height,string"`
	PrevHash          blockdigest.Digest `json:"prevHash"`
	Timestamp         uint64             `json:"timestamp,string"`
	OutputMr          blockdigest.Digest `json:"outputMr"`
	WitnessMr         blockdigest.Digest `json:"witnessMr"`
	OutputMmrSize     uint64             `json:"outputMmrSize"`
	KernelMr          blockdigest.Digest `json:"kernelMr"`
	KernelMmrSize     uint64             `json:"kernelMmrSize"`
	TotalKernelOffset blockdigest.Digest `json:"totalKernelOffset"`
	TotalScriptOffset blockdigest.Digest `json:"totalScriptOffset"`
	Nonce             uint64             `json:"nonce,string"`
	Pow               ProofOfWork        `json:"pow"`
}

// Pack - binary form of the header
func (header *Header) Pack() util.Packed {
	buffer := util.Packed{}
	buffer = buffer.AppendUint64(uint64(header.Version))
	buffer = buffer.AppendUint64(header.Height)
	buffer = buffer.AppendFixed(header.PrevHash[:])
	buffer = buffer.AppendUint64(header.Timestamp)
	buffer = buffer.AppendFixed(header.OutputMr[:])
	buffer = buffer.AppendFixed(header.WitnessMr[:])
	buffer = buffer.AppendUint64(header.OutputMmrSize)
	buffer = buffer.AppendFixed(header.KernelMr[:])
	buffer = buffer.AppendUint64(header.KernelMmrSize)
	buffer = buffer.AppendFixed(header.TotalKernelOffset[:])
	buffer = buffer.AppendFixed(header.TotalScriptOffset[:])
	buffer = buffer.AppendUint64(header.Nonce)
	buffer = buffer.AppendUint64(uint64(header.Pow.Algorithm))
	return buffer.AppendBytes(header.Pow.Data)
}

// Hash - identity of the header and of its block
func (header *Header) Hash() blockdigest.Digest {
	return blockdigest.NewDigest(header.Pack())
}

// UnpackHeader - read a header written by Pack
func UnpackHeader(u *util.Unpacker) *Header {
	header := &Header{}
	header.Version = uint16(u.Uint64())
	header.Height = u.Uint64()
	u.Fixed(header.PrevHash[:])
	header.Timestamp = u.Uint64()
	u.Fixed(header.OutputMr[:])
	u.Fixed(header.WitnessMr[:])
	header.OutputMmrSize = u.Uint64()
	u.Fixed(header.KernelMr[:])
	header.KernelMmrSize = u.Uint64()
	u.Fixed(header.TotalKernelOffset[:])
	u.Fixed(header.TotalScriptOffset[:])
	header.Nonce = u.Uint64()
	header.Pow.Algorithm = PowAlgorithm(u.Uint64())
	header.Pow.Data = u.Bytes()
	if nil != u.Err() {
		return nil
	}
	return header
}

// HeaderFromBytes - unpack a complete header record
func HeaderFromBytes(record []byte) (*Header, error) {
	u := util.NewUnpacker(record)
	header := UnpackHeader(u)
	if err := u.Done(); nil != err {
		return nil, err
	}
	return header, nil
}

// HeaderAccumulatedData - totals up to and including a header
type HeaderAccumulatedData struct {
	Hash                       blockdigest.Digest `json:"hash"`
	TotalKernelOffset          blockdigest.Digest `json:"totalKernelOffset"`
	AchievedDifficulty         uint64             `json:"achievedDifficulty"`
	TargetDifficulty           uint64             `json:"targetDifficulty"`
	TotalAccumulatedDifficulty *big.Int           `json:"totalAccumulatedDifficulty"`
}

// Pack - binary form of the accumulated data
func (data *HeaderAccumulatedData) Pack() util.Packed {
	total := []byte{}
	if nil != data.TotalAccumulatedDifficulty {
		total = data.TotalAccumulatedDifficulty.Bytes()
	}
	buffer := util.Packed{}
	buffer = buffer.AppendFixed(data.Hash[:])
	buffer = buffer.AppendFixed(data.TotalKernelOffset[:])
	buffer = buffer.AppendUint64(data.AchievedDifficulty)
	buffer = buffer.AppendUint64(data.TargetDifficulty)
	return buffer.AppendBytes(total)
}

// HeaderAccumulatedDataFromBytes - unpack a record written by Pack
func HeaderAccumulatedDataFromBytes(record []byte) (*HeaderAccumulatedData, error) {
	u := util.NewUnpacker(record)
	data := &HeaderAccumulatedData{}
	u.Fixed(data.Hash[:])
	u.Fixed(data.TotalKernelOffset[:])
	data.AchievedDifficulty = u.Uint64()
	data.TargetDifficulty = u.Uint64()
	data.TotalAccumulatedDifficulty = new(big.Int).SetBytes(u.Bytes())
	if err := u.Done(); nil != err {
		return nil, err
	}
	return data, nil
}

// ChainHeader - a header with its accumulated data
type ChainHeader struct {
	Header      *Header                `json:"header"`
	Accumulated *HeaderAccumulatedData `json:"accumulated"`
}

// NewChainHeader - pair a header with its accumulated data
//
// the accumulated data must carry the header's hash
func NewChainHeader(header *Header, accumulated *HeaderAccumulatedData) (*ChainHeader, error) {
	if header.Hash() != accumulated.Hash {
		return nil, fault.ErrHeaderHashMismatch
	}
	return &ChainHeader{
		Header:      header,
		Accumulated: accumulated,
	}, nil
}

// Hash - hash of the header
func (chainHeader *ChainHeader) Hash() blockdigest.Digest {
	return chainHeader.Accumulated.Hash
}

// Height - height of the header
func (chainHeader *ChainHeader) Height() uint64 {
	return chainHeader.Header.Height
}
