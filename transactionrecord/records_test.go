// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
	"github.com/bitmark-inc/chainstore/util"
)

func makeOutput(n byte, outputType transactionrecord.OutputType) *transactionrecord.Output {
	output := &transactionrecord.Output{
		Version: 1,
		Features: transactionrecord.OutputFeatures{
			OutputType: outputType,
			Maturity:   uint64(n),
		},
		Script:              []byte{0x73, n},
		RangeProof:          []byte{n, n, n},
		EncryptedData:       []byte{},
		MinimumValuePromise: 10,
	}
	output.Commitment[0] = n
	output.SenderOffsetPublicKey[1] = n
	output.MetadataSignature[2] = n
	return output
}

func makeBody() *transactionrecord.AggregateBody {
	vn := makeOutput(3, transactionrecord.ValidatorNodeOutput)
	vn.Features.SideChain = &transactionrecord.SideChainFeature{
		ValidatorNode: &transactionrecord.ValidatorNodeRegistration{},
	}
	vn.Features.SideChain.ValidatorNode.PublicKey[0] = 0xaa

	template := makeOutput(4, transactionrecord.CodeTemplateOutput)
	template.Features.SideChain = &transactionrecord.SideChainFeature{
		Template: &transactionrecord.TemplateRegistration{
			Name:      "counter",
			Version:   2,
			BinarySha: blockdigest.NewDigest([]byte("wasm")),
			BinaryURL: "https://example.com/counter.wasm",
		},
	}

	burn := transactionrecord.Commitment{9}
	return &transactionrecord.AggregateBody{
		Inputs: []*transactionrecord.Input{
			{Version: 1, OutputHash: blockdigest.NewDigest([]byte{1}), InputData: []byte{}, Spent: makeOutput(1, transactionrecord.StandardOutput)},
			{Version: 1, OutputHash: blockdigest.NewDigest([]byte{2}), InputData: []byte{5}},
		},
		Outputs: []*transactionrecord.Output{
			makeOutput(2, transactionrecord.CoinbaseOutput),
			vn,
			template,
		},
		Kernels: []*transactionrecord.Kernel{
			{Version: 1, Features: transactionrecord.CoinbaseKernel, Excess: transactionrecord.Commitment{1}},
			{Version: 1, Features: transactionrecord.BurnKernel, Fee: 5, Excess: transactionrecord.Commitment{2}, BurnCommitment: &burn},
		},
	}
}

func TestBodyPackUnpack(t *testing.T) {
	body := makeBody()

	u := util.NewUnpacker(body.Pack())
	unpacked := transactionrecord.UnpackBody(u)
	assert.Nil(t, u.Done(), "unpack")
	assert.Equal(t, body, unpacked, "body changed")

	tx := &transactionrecord.Transaction{
		Offset: blockdigest.NewDigest([]byte("offset")),
		Body:   *body,
	}
	u = util.NewUnpacker(tx.Pack())
	assert.Equal(t, tx, transactionrecord.UnpackTransaction(u), "transaction changed")
	assert.Nil(t, u.Done(), "unpack transaction")
}

func TestUnpackWrongTag(t *testing.T) {
	kernel := &transactionrecord.Kernel{Version: 1}

	u := util.NewUnpacker(kernel.Pack())
	output := transactionrecord.UnpackOutput(u)
	assert.Nil(t, output, "kernel unpacked as output")
	assert.Equal(t, fault.ErrUnexpectedRecordType, u.Err(), "wrong error")

	packed := kernel.Pack()
	u = util.NewUnpacker(packed[:len(packed)-3])
	assert.Nil(t, transactionrecord.UnpackKernel(u), "truncated kernel accepted")
	assert.Equal(t, fault.ErrTruncatedRecord, u.Err(), "wrong error")
}

func TestInputHashIgnoresCompaction(t *testing.T) {
	body := makeBody()
	full := body.Inputs[0]
	compact := full.ToCompact()

	assert.True(t, compact.IsCompact(), "not compact")
	assert.False(t, full.IsCompact(), "source input modified")
	assert.Equal(t, full.Hash(), compact.Hash(), "hash depends on spent output")

	_, err := compact.Commitment()
	assert.Equal(t, fault.ErrMissingTransactionInput, err, "compact input has commitment")

	commitment, err := full.Commitment()
	assert.Nil(t, err, "commitment")
	assert.Equal(t, full.Spent.Commitment, commitment, "wrong commitment")
}

func TestOutputHashes(t *testing.T) {
	a := makeOutput(1, transactionrecord.StandardOutput)
	b := makeOutput(1, transactionrecord.StandardOutput)
	b.RangeProof = []byte{0xff}

	assert.Equal(t, a.Hash(), b.Hash(), "range proof changes the output hash")
	assert.NotEqual(t, a.WitnessHash(), b.WitnessHash(), "range proof ignored by the witness hash")

	b.Features.Maturity += 1
	assert.NotEqual(t, a.Hash(), b.Hash(), "features ignored by the output hash")

	assert.True(t, makeOutput(1, transactionrecord.BurnOutput).IsBurned(), "burn not detected")
	assert.Nil(t, a.ValidatorNodeRegistration(), "unexpected registration")
}

func TestKernelFlags(t *testing.T) {
	body := makeBody()
	assert.True(t, body.Kernels[0].IsCoinbase(), "coinbase flag")
	assert.False(t, body.Kernels[0].IsBurned(), "burn flag")
	assert.True(t, body.Kernels[1].IsBurned(), "burn flag")
	assert.Equal(t, 64, len(body.Kernels[1].ExcessSigKey()), "wrong excess signature key size")
}

func TestFixedTypesText(t *testing.T) {
	c := transactionrecord.Commitment{0x01, 0xfe}
	text, err := c.MarshalText()
	assert.Nil(t, err, "marshal")

	var decoded transactionrecord.Commitment
	assert.Nil(t, decoded.UnmarshalText(text), "unmarshal")
	assert.Equal(t, c, decoded, "commitment")

	var sig transactionrecord.Signature
	assert.Equal(t, fault.ErrInvalidArguments, sig.UnmarshalText(text), "short signature accepted")

	var key transactionrecord.PublicKey
	assert.NotNil(t, key.UnmarshalText([]byte("zz"+string(text[2:]))), "bad hex accepted")
}
