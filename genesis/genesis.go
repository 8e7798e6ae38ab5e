// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package genesis

import (
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

// SourceData - data embedded into a genesis block
type SourceData struct {
	Timestamp uint64
	Nonce     uint64
	Message   string
}

// some data embedded into the genesis block
// for live chain
var LiveNet = SourceData{
	// 2015-12-28T02:13:11Z
	Timestamp: 0x56809ab7,
	Nonce:     0x4fa9713e80a6d2ed,
	Message:   "DOWN the RABBIT hole",
}

// some data embedded into the genesis block
// for test chain
var TestNet = SourceData{
	// 2014-11-28T09:37:15Z
	Timestamp: 0x5478424b,
	Nonce:     0x473640eeca2b4cd4,
	Message:   "Bitmark Testing Genesis Block",
}

// some data embedded into the genesis block
// for a private chain
var LocalNet = SourceData{
	// 2020-01-01T00:00:00Z
	Timestamp: 0x5e0be100,
	Nonce:     0x4c6f63616c4e6574,
	Message:   "Local Genesis Block",
}

// ForChain - genesis block of a named chain
func ForChain(name string) (*blockrecord.Block, error) {
	switch name {
	case chain.Live:
		return New(LiveNet)
	case chain.Testing:
		return New(TestNet)
	case chain.Local:
		return New(LocalNet)
	default:
		return nil, errors.Wrapf(fault.ErrInvalidChain, "chain: %q", name)
	}
}

// New - assemble a genesis block carrying a single coinbase
//
// the block is deterministic: the same source always gives the same
// hash
func New(source SourceData) (*blockrecord.Block, error) {
	message := []byte(source.Message)

	output := &transactionrecord.Output{
		Version: 1,
		Features: transactionrecord.OutputFeatures{
			OutputType: transactionrecord.CoinbaseOutput,
		},
		Script: message,
	}
	copy(output.Commitment[:], digestOf("commitment", message, source.Nonce).Bytes())
	copy(output.MetadataSignature[:], digestOf("metadata", message, source.Nonce).Bytes())

	kernel := &transactionrecord.Kernel{
		Version:  1,
		Features: transactionrecord.CoinbaseKernel,
	}
	copy(kernel.Excess[:], digestOf("excess", message, source.Nonce).Bytes())
	copy(kernel.ExcessSig[:], digestOf("signature", message, source.Nonce).Bytes())

	body := &transactionrecord.AggregateBody{
		Inputs:  []*transactionrecord.Input{},
		Outputs: []*transactionrecord.Output{output},
		Kernels: []*transactionrecord.Kernel{kernel},
	}

	header := &blockrecord.Header{
		Version:   blockrecord.Version,
		Height:    0,
		Timestamp: source.Timestamp,
		Nonce:     source.Nonce,
		Pow: blockrecord.ProofOfWork{
			Algorithm: blockrecord.PowSha3,
		},
	}

	noInputs := func(blockdigest.Digest) (uint32, bool, error) {
		return 0, false, nil
	}
	acc, err := chainstorage.AccumulateBody(nil, nil, body, noInputs)
	if nil != err {
		return nil, err
	}
	acc.Roots.Apply(header)

	return &blockrecord.Block{
		Header: header,
		Body:   body,
	}, nil
}

func digestOf(label string, message []byte, nonce uint64) blockdigest.Digest {
	return blockdigest.NewDomainHasher("genesis." + label).
		Bytes(message).
		Uint64(nonce).
		Digest()
}
