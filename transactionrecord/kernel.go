// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/util"
)

// KernelFeatures - bit flags
type KernelFeatures uint8

// kernel feature bits
const (
	PlainKernel    = KernelFeatures(0)
	CoinbaseKernel = KernelFeatures(1)
	BurnKernel     = KernelFeatures(2)
)

// Kernel - proof that a transaction balances
type Kernel struct {
	Version        uint8          `json:"version"`
	Features       KernelFeatures `json:"features"`
	Fee            uint64         `json:"fee"`
	LockHeight     uint64         `json:"lockHeight"`
	Excess         Commitment     `json:"excess"`
	ExcessSig      Signature      `json:"excessSig"`
	BurnCommitment *Commitment    `json:"burnCommitment,omitempty"`
}

// IsCoinbase - coinbase kernel
func (kernel *Kernel) IsCoinbase() bool {
	return 0 != kernel.Features&CoinbaseKernel
}

// IsBurned - burn kernel
func (kernel *Kernel) IsBurned() bool {
	return 0 != kernel.Features&BurnKernel
}

// ExcessSigKey - public nonce followed by signature, the key of the
// excess signature index
func (kernel *Kernel) ExcessSigKey() []byte {
	key := make([]byte, SignatureLength)
	copy(key, kernel.ExcessSig[:])
	return key
}

// Hash - leaf of the kernel range
func (kernel *Kernel) Hash() blockdigest.Digest {
	h := blockdigest.NewDomainHasher("transaction_kernel")
	h.Uint64(uint64(kernel.Version))
	h.Uint64(uint64(kernel.Features))
	h.Uint64(kernel.Fee)
	h.Uint64(kernel.LockHeight)
	h.Bytes(kernel.Excess[:])
	h.Bytes(kernel.ExcessSig[:])
	if nil != kernel.BurnCommitment {
		h.Bytes(kernel.BurnCommitment[:])
	}
	return h.Digest()
}

// Pack - binary form of the kernel
func (kernel *Kernel) Pack() util.Packed {
	buffer := util.Packed{}.AppendUint64(uint64(KernelTag))
	return kernel.pack(buffer)
}

func (kernel *Kernel) pack(buffer util.Packed) util.Packed {
	buffer = buffer.AppendUint64(uint64(kernel.Version))
	buffer = buffer.AppendUint64(uint64(kernel.Features))
	buffer = buffer.AppendUint64(kernel.Fee)
	buffer = buffer.AppendUint64(kernel.LockHeight)
	buffer = buffer.AppendFixed(kernel.Excess[:])
	buffer = buffer.AppendFixed(kernel.ExcessSig[:])
	buffer = buffer.AppendBool(nil != kernel.BurnCommitment)
	if nil != kernel.BurnCommitment {
		buffer = buffer.AppendFixed(kernel.BurnCommitment[:])
	}
	return buffer
}

// UnpackKernel - read a kernel written by Pack
func UnpackKernel(u *util.Unpacker) *Kernel {
	expectTag(u, KernelTag)
	return unpackKernelFields(u)
}

func unpackKernelFields(u *util.Unpacker) *Kernel {
	kernel := &Kernel{}
	kernel.Version = uint8(u.Uint64())
	kernel.Features = KernelFeatures(u.Uint64())
	kernel.Fee = u.Uint64()
	kernel.LockHeight = u.Uint64()
	u.Fixed(kernel.Excess[:])
	u.Fixed(kernel.ExcessSig[:])
	if u.Bool() {
		burn := Commitment{}
		u.Fixed(burn[:])
		kernel.BurnCommitment = &burn
	}
	if nil != u.Err() {
		return nil
	}
	return kernel
}
