// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"github.com/bitmark-inc/chainstore/fault"
)

// Packed - a record packed as a sequence of Varint64 integers and
// Varint64(length) prefixed byte strings
type Packed []byte

// AppendUint64 - append a Varint64 to buffer
func (buffer Packed) AppendUint64(value uint64) Packed {
	return append(buffer, ToVarint64(value)...)
}

// AppendBytes - append a bytes to a buffer
//
// the field is prefixed by Varint64(length)
func (buffer Packed) AppendBytes(data []byte) Packed {
	buffer = append(buffer, ToVarint64(uint64(len(data)))...)
	return append(buffer, data...)
}

// AppendFixed - append a fixed size field without any length prefix
func (buffer Packed) AppendFixed(data []byte) Packed {
	return append(buffer, data...)
}

// AppendBool - append a single byte flag
func (buffer Packed) AppendBool(flag bool) Packed {
	if flag {
		return append(buffer, 1)
	}
	return append(buffer, 0)
}

// Unpacker - sequential reader for a Packed record
//
// the first error sticks, all later reads return zero values
type Unpacker struct {
	buffer []byte
	n      int
	err    error
}

// NewUnpacker - start reading a record
func NewUnpacker(record []byte) *Unpacker {
	return &Unpacker{
		buffer: record,
	}
}

// Uint64 - read a Varint64
func (u *Unpacker) Uint64() uint64 {
	if nil != u.err {
		return 0
	}
	value, count := FromVarint64(u.buffer[u.n:])
	if 0 == count {
		u.err = fault.ErrTruncatedRecord
		return 0
	}
	u.n += count
	return value
}

// Bytes - read a Varint64(length) prefixed byte string
//
// the result is a copy, never nil
func (u *Unpacker) Bytes() []byte {
	length := u.Uint64()
	if nil != u.err {
		return []byte{}
	}
	if length > uint64(len(u.buffer)-u.n) {
		u.err = fault.ErrTruncatedRecord
		return []byte{}
	}
	data := make([]byte, length)
	copy(data, u.buffer[u.n:])
	u.n += int(length)
	return data
}

// Fixed - fill a fixed size destination
func (u *Unpacker) Fixed(destination []byte) {
	if nil != u.err {
		return
	}
	if len(destination) > len(u.buffer)-u.n {
		u.err = fault.ErrTruncatedRecord
		return
	}
	copy(destination, u.buffer[u.n:])
	u.n += len(destination)
}

// Bool - read a single byte flag
func (u *Unpacker) Bool() bool {
	var b [1]byte
	u.Fixed(b[:])
	return 0 != b[0]
}

// Err - the first error encountered
func (u *Unpacker) Err() error {
	return u.err
}

// Done - check the whole record was consumed without error
func (u *Unpacker) Done() error {
	if nil != u.err {
		return u.err
	}
	if u.n != len(u.buffer) {
		return fault.ErrUnexpectedRecordType
	}
	return nil
}

// Fail - record an error found by the caller while decoding
//
// has no effect if an error is already recorded
func (u *Unpacker) Fail(err error) {
	if nil == u.err {
		u.err = err
	}
}
