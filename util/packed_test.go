// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/util"
)

var varint64Tests = []struct {
	value   uint64
	encoded []byte
}{
	{0, []byte{0x00}},
	{127, []byte{0x7f}},
	{128, []byte{0x80, 0x01}},
	{16384, []byte{0x80, 0x80, 0x01}},
	{0x8000000000000000, []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80}},
	{0xffffffffffffffff, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
}

func TestVarint64(t *testing.T) {
	for i, item := range varint64Tests {
		result := util.ToVarint64(item.value)
		if !bytes.Equal(result, item.encoded) {
			t.Errorf("%d: ToVarint64(%x) -> %x  expected: %x", i, item.value, result, item.encoded)
		}
		value, count := util.FromVarint64(append(result, 0xff, 0x01))
		assert.Equal(t, item.value, value, "wrong decoded value")
		assert.Equal(t, len(item.encoded), count, "wrong decoded count")
	}

	for i, truncated := range [][]byte{{}, {0x80}, {0xff, 0xff}} {
		value, count := util.FromVarint64(truncated)
		if 0 != value || 0 != count {
			t.Errorf("%d: FromVarint64(%x) -> %d, %d  expected: 0, 0", i, truncated, value, count)
		}
	}
}

func TestPackUnpack(t *testing.T) {
	fixed := [4]byte{9, 8, 7, 6}
	record := util.Packed{}.
		AppendUint64(300).
		AppendBytes([]byte("script")).
		AppendFixed(fixed[:]).
		AppendBool(true).
		AppendBytes(nil)

	u := util.NewUnpacker(record)
	assert.Equal(t, uint64(300), u.Uint64(), "wrong integer")
	assert.Equal(t, []byte("script"), u.Bytes(), "wrong bytes")
	var f [4]byte
	u.Fixed(f[:])
	assert.Equal(t, fixed, f, "wrong fixed field")
	assert.True(t, u.Bool(), "wrong flag")
	assert.Equal(t, []byte{}, u.Bytes(), "empty bytes should be non-nil and empty")
	assert.Nil(t, u.Done(), "record not fully consumed")
}

func TestUnpackTruncated(t *testing.T) {
	record := util.Packed{}.AppendBytes([]byte("abcdef"))

	u := util.NewUnpacker(record[:4])
	_ = u.Bytes()
	assert.Equal(t, fault.ErrTruncatedRecord, u.Err(), "truncation not detected")

	// the error sticks
	assert.Equal(t, uint64(0), u.Uint64(), "read after error returned data")
	assert.Equal(t, fault.ErrTruncatedRecord, u.Done(), "wrong final error")
}

func TestUnpackTrailingBytes(t *testing.T) {
	record := util.Packed{}.AppendUint64(1).AppendUint64(2)
	u := util.NewUnpacker(record)
	_ = u.Uint64()
	assert.Equal(t, fault.ErrUnexpectedRecordType, u.Done(), "trailing data not detected")
}
