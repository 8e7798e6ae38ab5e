// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/util"
)

// Input - spends an output
//
// a compact input only carries the hash of the output it spends; the
// output itself is filled in from storage when needed
type Input struct {
	Version         uint8              `json:"version"`
	OutputHash      blockdigest.Digest `json:"outputHash"`
	Spent           *Output            `json:"spent,omitempty"`
	InputData       []byte             `json:"inputData"`
	ScriptSignature Signature          `json:"scriptSignature"`
}

// IsCompact - true if the spent output data is absent
func (input *Input) IsCompact() bool {
	return nil == input.Spent
}

// Commitment - commitment of the spent output
func (input *Input) Commitment() (Commitment, error) {
	if input.IsCompact() {
		return Commitment{}, fault.ErrMissingTransactionInput
	}
	return input.Spent.Commitment, nil
}

// Features - features of the spent output
func (input *Input) Features() (*OutputFeatures, error) {
	if input.IsCompact() {
		return nil, fault.ErrMissingTransactionInput
	}
	return &input.Spent.Features, nil
}

// AddOutputData - attach the spent output
func (input *Input) AddOutputData(output *Output) {
	input.Spent = output
}

// ToCompact - copy without the spent output
func (input *Input) ToCompact() *Input {
	c := *input
	c.Spent = nil
	return &c
}

// Hash - canonical hash, the same for full and compact forms
func (input *Input) Hash() blockdigest.Digest {
	h := blockdigest.NewDomainHasher("transaction_input")
	h.Uint64(uint64(input.Version))
	h.Bytes(input.OutputHash[:])
	h.Bytes(input.InputData)
	h.Bytes(input.ScriptSignature[:])
	return h.Digest()
}

// Pack - binary form of the input
func (input *Input) Pack() util.Packed {
	buffer := util.Packed{}.AppendUint64(uint64(InputTag))
	return input.pack(buffer)
}

func (input *Input) pack(buffer util.Packed) util.Packed {
	buffer = buffer.AppendUint64(uint64(input.Version))
	buffer = buffer.AppendFixed(input.OutputHash[:])
	buffer = buffer.AppendBool(nil != input.Spent)
	if nil != input.Spent {
		buffer = input.Spent.pack(buffer)
	}
	buffer = buffer.AppendBytes(input.InputData)
	return buffer.AppendFixed(input.ScriptSignature[:])
}

// UnpackInput - read an input written by Pack
func UnpackInput(u *util.Unpacker) *Input {
	expectTag(u, InputTag)
	return unpackInputFields(u)
}

func unpackInputFields(u *util.Unpacker) *Input {
	input := &Input{}
	input.Version = uint8(u.Uint64())
	u.Fixed(input.OutputHash[:])
	if u.Bool() {
		input.Spent = unpackOutputFields(u)
	}
	input.InputData = u.Bytes()
	u.Fixed(input.ScriptSignature[:])
	if nil != u.Err() {
		return nil
	}
	return input
}
