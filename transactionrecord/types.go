// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"encoding/hex"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/util"
)

// TagType - type code for packed records
type TagType uint64

// enumerate the record types
// this is encoded a Varint64 at start of each packed record
const (
	// null marks beginning of list - not used as a record type
	NullTag = TagType(iota)

	OutputTag      = TagType(iota) // transaction output
	InputTag       = TagType(iota) // transaction input, full or compact
	KernelTag      = TagType(iota) // transaction kernel
	BodyTag        = TagType(iota) // aggregate body
	TransactionTag = TagType(iota) // body with offsets

	// this item must be last
	InvalidTag = TagType(iota)
)

// byte sizes for fixed fields
const (
	CommitmentLength = 32
	PublicKeyLength  = 32
	SignatureLength  = 64
)

// Commitment - an opaque Pedersen commitment
type Commitment [CommitmentLength]byte

// PublicKey - an opaque public key
type PublicKey [PublicKeyLength]byte

// Signature - public nonce followed by the signature scalar
type Signature [SignatureLength]byte

// String - hex form for the fmt package
func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// String - hex form for the fmt package
func (k PublicKey) String() string {
	return hex.EncodeToString(k[:])
}

// String - hex form for the fmt package
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// MarshalText - hex text for JSON
func (c Commitment) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// MarshalText - hex text for JSON
func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MarshalText - hex text for JSON
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText - from hex text
func (c *Commitment) UnmarshalText(s []byte) error {
	return fromHex(c[:], s)
}

// UnmarshalText - from hex text
func (k *PublicKey) UnmarshalText(s []byte) error {
	return fromHex(k[:], s)
}

// UnmarshalText - from hex text
func (s *Signature) UnmarshalText(text []byte) error {
	return fromHex(s[:], text)
}

// decode hex that must exactly fill buffer
func fromHex(buffer []byte, s []byte) error {
	if hex.EncodedLen(len(buffer)) != len(s) {
		return fault.ErrInvalidArguments
	}
	_, err := hex.Decode(buffer, s)
	return err
}

// read the leading tag of a record
func expectTag(u *util.Unpacker, tag TagType) {
	if TagType(u.Uint64()) != tag {
		u.Fail(fault.ErrUnexpectedRecordType)
	}
}
