// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package accumulator

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/fault"
)

// SerializeBitmap - portable roaring encoding of a bitmap
func SerializeBitmap(bitmap *roaring.Bitmap) []byte {
	if nil == bitmap {
		bitmap = roaring.New()
	}
	buffer, err := bitmap.ToBytes()
	if nil != err {
		// writing to memory cannot fail
		panic(err)
	}
	return buffer
}

// DeserializeBitmap - decode a bitmap, an empty buffer is an empty bitmap
func DeserializeBitmap(buffer []byte) (*roaring.Bitmap, error) {
	bitmap := roaring.New()
	if 0 == len(buffer) {
		return bitmap, nil
	}
	err := bitmap.UnmarshalBinary(buffer)
	if nil != err {
		return nil, errors.Wrap(fault.ErrInvalidBitmap, err.Error())
	}
	return bitmap, nil
}
