// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdigest

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/bitmark-inc/chainstore/fault"
)

// Length - number of bytes in the digest
const Length = 32

// Digest - type for a 256 bit hash
// stored and printed in natural byte order
type Digest [Length]byte

// NewDigest - create a digest from the concatenation of byte slices
func NewDigest(parts ...[]byte) Digest {
	hasher, _ := blake2b.New256(nil) // only fails for an oversize key
	for _, p := range parts {
		hasher.Write(p)
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// DomainHasher - incremental hasher that prefixes a domain label so
// that different record types never share a hash
type DomainHasher struct {
	buffer bytes.Buffer
}

// NewDomainHasher - start a hash for a labelled record type
func NewDomainHasher(label string) *DomainHasher {
	h := &DomainHasher{}
	h.Bytes([]byte(label))
	return h
}

// Bytes - add a length prefixed byte slice
func (h *DomainHasher) Bytes(b []byte) *DomainHasher {
	h.Uint64(uint64(len(b)))
	h.buffer.Write(b)
	return h
}

// Uint64 - add a fixed width little endian integer
func (h *DomainHasher) Uint64(value uint64) *DomainHasher {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], value)
	h.buffer.Write(n[:])
	return h
}

// Digest - finish the hash
func (h *DomainHasher) Digest() Digest {
	return NewDigest(h.buffer.Bytes())
}

// IsZero - true for the all zero digest
func (digest Digest) IsZero() bool {
	return digest == Digest{}
}

// Bytes - the digest as a byte slice
func (digest Digest) Bytes() []byte {
	return digest[:]
}

// String - convert a binary digest to hex string for use by the fmt package (for %s)
func (digest Digest) String() string {
	return hex.EncodeToString(digest[:])
}

// GoString - convert a binary digest to hex string for use by the fmt package (for %#v)
func (digest Digest) GoString() string {
	return "<Blake2b:" + hex.EncodeToString(digest[:]) + ">"
}

// Scan - convert a hex representation to a digest for use by the format package scan routines
func (digest *Digest) Scan(state fmt.ScanState, verb rune) error {
	token, err := state.Token(true, func(c rune) bool {
		if c >= '0' && c <= '9' {
			return true
		}
		if c >= 'A' && c <= 'F' {
			return true
		}
		if c >= 'a' && c <= 'f' {
			return true
		}
		return false
	})
	if nil != err {
		return err
	}
	buffer := make([]byte, hex.DecodedLen(len(token)))
	byteCount, err := hex.Decode(buffer, token)
	if nil != err {
		return err
	}
	return DigestFromBytes(digest, buffer[:byteCount])
}

// MarshalText - convert digest to hex text
func (digest Digest) MarshalText() ([]byte, error) {
	size := hex.EncodedLen(len(digest))
	buffer := make([]byte, size)
	hex.Encode(buffer, digest[:])
	return buffer, nil
}

// UnmarshalText - convert hex text into a digest
func (digest *Digest) UnmarshalText(s []byte) error {
	buffer := make([]byte, hex.DecodedLen(len(s)))
	byteCount, err := hex.Decode(buffer, s)
	if nil != err {
		return err
	}
	return DigestFromBytes(digest, buffer[:byteCount])
}

// DigestFromBytes - convert and validate a binary byte slice to a digest
func DigestFromBytes(digest *Digest, buffer []byte) error {
	if Length != len(buffer) {
		return fault.ErrTruncatedRecord
	}
	copy(digest[:], buffer)
	return nil
}
