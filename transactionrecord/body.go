// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"bytes"
	"sort"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/util"
)

// AggregateBody - the inputs, outputs and kernels of one or more
// transactions
type AggregateBody struct {
	Inputs  []*Input  `json:"inputs"`
	Outputs []*Output `json:"outputs"`
	Kernels []*Kernel `json:"kernels"`
}

// IsEmpty - nothing in the body
func (body *AggregateBody) IsEmpty() bool {
	return 0 == len(body.Inputs) && 0 == len(body.Outputs) && 0 == len(body.Kernels)
}

// Add - append all items of another body
func (body *AggregateBody) Add(other *AggregateBody) {
	body.Inputs = append(body.Inputs, other.Inputs...)
	body.Outputs = append(body.Outputs, other.Outputs...)
	body.Kernels = append(body.Kernels, other.Kernels...)
}

// Sort - canonical order: each list ordered by hash
func (body *AggregateBody) Sort() {
	sort.SliceStable(body.Inputs, func(i, j int) bool {
		a, b := body.Inputs[i].Hash(), body.Inputs[j].Hash()
		return bytes.Compare(a[:], b[:]) < 0
	})
	sort.SliceStable(body.Outputs, func(i, j int) bool {
		a, b := body.Outputs[i].Hash(), body.Outputs[j].Hash()
		return bytes.Compare(a[:], b[:]) < 0
	})
	sort.SliceStable(body.Kernels, func(i, j int) bool {
		a, b := body.Kernels[i].Hash(), body.Kernels[j].Hash()
		return bytes.Compare(a[:], b[:]) < 0
	})
}

// Pack - binary form of the body
func (body *AggregateBody) Pack() util.Packed {
	buffer := util.Packed{}.AppendUint64(uint64(BodyTag))
	return body.pack(buffer)
}

func (body *AggregateBody) pack(buffer util.Packed) util.Packed {
	buffer = buffer.AppendUint64(uint64(len(body.Inputs)))
	for _, input := range body.Inputs {
		buffer = input.pack(buffer)
	}
	buffer = buffer.AppendUint64(uint64(len(body.Outputs)))
	for _, output := range body.Outputs {
		buffer = output.pack(buffer)
	}
	buffer = buffer.AppendUint64(uint64(len(body.Kernels)))
	for _, kernel := range body.Kernels {
		buffer = kernel.pack(buffer)
	}
	return buffer
}

// UnpackBody - read a body written by Pack
func UnpackBody(u *util.Unpacker) *AggregateBody {
	expectTag(u, BodyTag)
	return unpackBodyFields(u)
}

func unpackBodyFields(u *util.Unpacker) *AggregateBody {
	body := &AggregateBody{}

	n := u.Uint64()
loop_inputs:
	for i := uint64(0); i < n; i += 1 {
		input := unpackInputFields(u)
		if nil == input {
			break loop_inputs
		}
		body.Inputs = append(body.Inputs, input)
	}

	n = u.Uint64()
loop_outputs:
	for i := uint64(0); i < n; i += 1 {
		output := unpackOutputFields(u)
		if nil == output {
			break loop_outputs
		}
		body.Outputs = append(body.Outputs, output)
	}

	n = u.Uint64()
loop_kernels:
	for i := uint64(0); i < n; i += 1 {
		kernel := unpackKernelFields(u)
		if nil == kernel {
			break loop_kernels
		}
		body.Kernels = append(body.Kernels, kernel)
	}

	if nil != u.Err() {
		return nil
	}
	return body
}

// Transaction - a body plus the offsets that balance it
type Transaction struct {
	Offset       blockdigest.Digest `json:"offset"`
	ScriptOffset blockdigest.Digest `json:"scriptOffset"`
	Body         AggregateBody      `json:"body"`
}

// FirstKernelExcessSig - the excess signature that identifies a
// transaction, false if it has no kernels
func (tx *Transaction) FirstKernelExcessSig() (Signature, bool) {
	if 0 == len(tx.Body.Kernels) {
		return Signature{}, false
	}
	return tx.Body.Kernels[0].ExcessSig, true
}

// Pack - binary form of the transaction
func (tx *Transaction) Pack() util.Packed {
	buffer := util.Packed{}.AppendUint64(uint64(TransactionTag))
	buffer = buffer.AppendFixed(tx.Offset[:])
	buffer = buffer.AppendFixed(tx.ScriptOffset[:])
	return tx.Body.pack(buffer)
}

// UnpackTransaction - read a transaction written by Pack
func UnpackTransaction(u *util.Unpacker) *Transaction {
	expectTag(u, TransactionTag)
	tx := &Transaction{}
	u.Fixed(tx.Offset[:])
	u.Fixed(tx.ScriptOffset[:])
	body := unpackBodyFields(u)
	if nil == body {
		return nil
	}
	tx.Body = *body
	return tx
}
