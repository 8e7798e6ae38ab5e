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

// OutputType - what an output is for
type OutputType uint8

// output types
const (
	StandardOutput          = OutputType(0)
	CoinbaseOutput          = OutputType(1)
	BurnOutput              = OutputType(2)
	ValidatorNodeOutput     = OutputType(3)
	CodeTemplateOutput      = OutputType(4)
	maximumOutputTypeNumber = CodeTemplateOutput
)

// ValidatorNodeRegistration - side chain validator registration
type ValidatorNodeRegistration struct {
	PublicKey PublicKey `json:"publicKey"`
	Signature Signature `json:"signature"`
}

// TemplateRegistration - side chain code template registration
type TemplateRegistration struct {
	AuthorPublicKey PublicKey          `json:"authorPublicKey"`
	Name            string             `json:"name"`
	Version         uint64             `json:"version"`
	BinarySha       blockdigest.Digest `json:"binarySha"`
	BinaryURL       string             `json:"binaryUrl"`
}

// SideChainFeature - at most one of the fields is set
type SideChainFeature struct {
	ValidatorNode *ValidatorNodeRegistration `json:"validatorNode,omitempty"`
	Template      *TemplateRegistration      `json:"template,omitempty"`
}

// OutputFeatures - consensus relevant attributes of an output
type OutputFeatures struct {
	OutputType OutputType        `json:"outputType"`
	Maturity   uint64            `json:"maturity"`
	SideChain  *SideChainFeature `json:"sideChain,omitempty"`
}

// Output - a transaction output
type Output struct {
	Version               uint8          `json:"version"`
	Features              OutputFeatures `json:"features"`
	Commitment            Commitment     `json:"commitment"`
	Script                []byte         `json:"script"`
	SenderOffsetPublicKey PublicKey      `json:"senderOffsetPublicKey"`
	MetadataSignature     Signature      `json:"metadataSignature"`
	RangeProof            []byte         `json:"rangeProof"`
	EncryptedData         []byte         `json:"encryptedData"`
	MinimumValuePromise   uint64         `json:"minimumValuePromise"`
}

// IsBurned - burn outputs are never spendable
func (output *Output) IsBurned() bool {
	return BurnOutput == output.Features.OutputType
}

// IsCoinbase - coinbase output
func (output *Output) IsCoinbase() bool {
	return CoinbaseOutput == output.Features.OutputType
}

// ValidatorNodeRegistration - registration carried by the output, or nil
func (output *Output) ValidatorNodeRegistration() *ValidatorNodeRegistration {
	if nil == output.Features.SideChain {
		return nil
	}
	return output.Features.SideChain.ValidatorNode
}

// TemplateRegistration - registration carried by the output, or nil
func (output *Output) TemplateRegistration() *TemplateRegistration {
	if nil == output.Features.SideChain {
		return nil
	}
	return output.Features.SideChain.Template
}

// Hash - leaf of the output range, covers everything except the
// range proof
func (output *Output) Hash() blockdigest.Digest {
	h := blockdigest.NewDomainHasher("transaction_output")
	h.Uint64(uint64(output.Version))
	h.Bytes(output.Features.pack(nil))
	h.Bytes(output.Commitment[:])
	h.Bytes(output.Script)
	h.Bytes(output.SenderOffsetPublicKey[:])
	h.Bytes(output.MetadataSignature[:])
	h.Bytes(output.EncryptedData)
	h.Uint64(output.MinimumValuePromise)
	return h.Digest()
}

// WitnessHash - leaf of the witness range
func (output *Output) WitnessHash() blockdigest.Digest {
	h := blockdigest.NewDomainHasher("transaction_output_witness")
	h.Bytes(output.RangeProof)
	h.Bytes(output.MetadataSignature[:])
	return h.Digest()
}

func (features OutputFeatures) pack(buffer util.Packed) util.Packed {
	buffer = buffer.AppendUint64(uint64(features.OutputType))
	buffer = buffer.AppendUint64(features.Maturity)

	sideChain := features.SideChain
	vn := (*ValidatorNodeRegistration)(nil)
	template := (*TemplateRegistration)(nil)
	if nil != sideChain {
		vn = sideChain.ValidatorNode
		template = sideChain.Template
	}
	buffer = buffer.AppendBool(nil != vn)
	if nil != vn {
		buffer = buffer.AppendFixed(vn.PublicKey[:])
		buffer = buffer.AppendFixed(vn.Signature[:])
	}
	buffer = buffer.AppendBool(nil != template)
	if nil != template {
		buffer = buffer.AppendFixed(template.AuthorPublicKey[:])
		buffer = buffer.AppendBytes([]byte(template.Name))
		buffer = buffer.AppendUint64(template.Version)
		buffer = buffer.AppendFixed(template.BinarySha[:])
		buffer = buffer.AppendBytes([]byte(template.BinaryURL))
	}
	return buffer
}

func unpackFeatures(u *util.Unpacker) OutputFeatures {
	features := OutputFeatures{}
	outputType := u.Uint64()
	if outputType > uint64(maximumOutputTypeNumber) {
		u.Fail(fault.ErrUnexpectedRecordType)
	}
	features.OutputType = OutputType(outputType)
	features.Maturity = u.Uint64()

	if u.Bool() {
		vn := &ValidatorNodeRegistration{}
		u.Fixed(vn.PublicKey[:])
		u.Fixed(vn.Signature[:])
		features.SideChain = &SideChainFeature{ValidatorNode: vn}
	}
	if u.Bool() {
		template := &TemplateRegistration{}
		u.Fixed(template.AuthorPublicKey[:])
		template.Name = string(u.Bytes())
		template.Version = u.Uint64()
		u.Fixed(template.BinarySha[:])
		template.BinaryURL = string(u.Bytes())
		if nil == features.SideChain {
			features.SideChain = &SideChainFeature{}
		}
		features.SideChain.Template = template
	}
	return features
}

// Pack - binary form of the output
func (output *Output) Pack() util.Packed {
	buffer := util.Packed{}.AppendUint64(uint64(OutputTag))
	return output.pack(buffer)
}

func (output *Output) pack(buffer util.Packed) util.Packed {
	buffer = buffer.AppendUint64(uint64(output.Version))
	buffer = output.Features.pack(buffer)
	buffer = buffer.AppendFixed(output.Commitment[:])
	buffer = buffer.AppendBytes(output.Script)
	buffer = buffer.AppendFixed(output.SenderOffsetPublicKey[:])
	buffer = buffer.AppendFixed(output.MetadataSignature[:])
	buffer = buffer.AppendBytes(output.RangeProof)
	buffer = buffer.AppendBytes(output.EncryptedData)
	return buffer.AppendUint64(output.MinimumValuePromise)
}

// UnpackOutput - read an output written by Pack
func UnpackOutput(u *util.Unpacker) *Output {
	expectTag(u, OutputTag)
	return unpackOutputFields(u)
}

func unpackOutputFields(u *util.Unpacker) *Output {
	output := &Output{}
	output.Version = uint8(u.Uint64())
	output.Features = unpackFeatures(u)
	u.Fixed(output.Commitment[:])
	output.Script = u.Bytes()
	u.Fixed(output.SenderOffsetPublicKey[:])
	u.Fixed(output.MetadataSignature[:])
	output.RangeProof = u.Bytes()
	output.EncryptedData = u.Bytes()
	output.MinimumValuePromise = u.Uint64()
	if nil != u.Err() {
		return nil
	}
	return output
}
