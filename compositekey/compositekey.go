// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package compositekey

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/bitmark-inc/chainstore/fault"
)

// widths of the keys used by the chain store
const (
	HashLength = 32

	// header hash ‖ u32 mmr position
	OutputKeyLength = HashLength + 4

	// header hash ‖ u32 mmr position ‖ item hash
	KernelKeyLength = HashLength + 4 + HashLength
	InputKeyLength  = KernelKeyLength

	// u64 height ‖ hash
	RegistrationKeyLength = 8 + HashLength

	// parent hash ‖ child hash
	ParentChildKeyLength = 2 * HashLength
)

// Key - a fixed width key
type Key []byte

// FromParts - concatenate parts into a key of exactly width bytes
func FromParts(width int, parts ...[]byte) (Key, error) {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	if total != width {
		return nil, fault.ErrCompositeKeyLength
	}

	key := make(Key, 0, width)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key, nil
}

// Position - u32 big endian field so positions sort numerically
func Position(position uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], position)
	return b[:]
}

// Height - u64 big endian field so heights sort numerically
func Height(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

// OutputKey - header hash ‖ position
func OutputKey(headerHash []byte, position uint32) (Key, error) {
	return FromParts(OutputKeyLength, headerHash, Position(position))
}

// KernelKey - header hash ‖ position ‖ kernel hash
func KernelKey(headerHash []byte, position uint32, kernelHash []byte) (Key, error) {
	return FromParts(KernelKeyLength, headerHash, Position(position), kernelHash)
}

// InputKey - header hash ‖ position ‖ input hash
func InputKey(headerHash []byte, position uint32, inputHash []byte) (Key, error) {
	return FromParts(InputKeyLength, headerHash, Position(position), inputHash)
}

// RegistrationKey - height ‖ hash
func RegistrationKey(height uint64, hash []byte) (Key, error) {
	return FromParts(RegistrationKeyLength, Height(height), hash)
}

// ParentChildKey - parent hash ‖ child hash
func ParentChildKey(parent []byte, child []byte) (Key, error) {
	return FromParts(ParentChildKeyLength, parent, child)
}

// String - hex form for logging
func (k Key) String() string {
	return hex.EncodeToString(k)
}
