// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/chainstore/fault"
)

// FetchCursor - cursor structure
type FetchCursor struct {
	table    *Table
	reader   Reader
	maxRange util.Range
}

// NewFetchCursor - initialise a cursor to the start of a table
func (t *Table) NewFetchCursor(r Reader) *FetchCursor {
	return &FetchCursor{
		table:    t,
		reader:   r,
		maxRange: *t.fullRange(),
	}
}

// Seek - move cursor to specific key position
func (cursor *FetchCursor) Seek(key []byte) *FetchCursor {
	cursor.maxRange.Start = cursor.table.prefixKey(key)
	return cursor
}

// Fetch - return up to count elements starting from the cursor and
// advance past them
func (cursor *FetchCursor) Fetch(count int) ([]Element, error) {
	if nil == cursor {
		return nil, fault.ErrInvalidArguments
	}
	if count <= 0 {
		return nil, fault.ErrInvalidCount
	}

	iter := cursor.reader.iterate(&cursor.maxRange, false)

	results := make([]Element, 0, count)
	lastKey := []byte(nil)
iterating:
	for iter.Next() {
		lastKey = iter.Key()
		results = append(results, cursor.table.element(lastKey, iter.Value()))
		if len(results) >= count {
			break iterating
		}
	}
	err := iter.Release()

	// the next possible key is the last key followed by a zero byte
	if nil != lastKey {
		cursor.maxRange.Start = append(lastKey, 0x00)
	}
	return results, err
}
