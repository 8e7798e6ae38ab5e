// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb/iterator"
)

// markers at the front of every pending value
const (
	opPut    = byte('P')
	opDelete = byte('D')
)

// walks committed data and pending writes together in key order
//
// a pending entry hides the committed entry with the same key, and a
// pending delete hides the key completely
type mergedIterator struct {
	base      iterator.Iterator
	pending   iterator.Iterator
	baseOk    bool
	pendingOk bool
	reverse   bool
	key       []byte
	value     []byte
	err       error
}

// pending may be nil for a plain snapshot iterator
func newMergedIterator(base iterator.Iterator, pending iterator.Iterator, reverse bool) *mergedIterator {
	m := &mergedIterator{
		base:    base,
		pending: pending,
		reverse: reverse,
	}
	if reverse {
		m.baseOk = base.Last()
		if nil != pending {
			m.pendingOk = pending.Last()
		}
	} else {
		m.baseOk = base.First()
		if nil != pending {
			m.pendingOk = pending.First()
		}
	}
	return m
}

func (m *mergedIterator) advanceBase() {
	if m.reverse {
		m.baseOk = m.base.Prev()
	} else {
		m.baseOk = m.base.Next()
	}
}

func (m *mergedIterator) advancePending() {
	if m.reverse {
		m.pendingOk = m.pending.Prev()
	} else {
		m.pendingOk = m.pending.Next()
	}
}

// Next - move to the next live entry, key and value are copies
func (m *mergedIterator) Next() bool {
	for m.baseOk || m.pendingOk {

		c := 0
		switch {
		case !m.pendingOk:
			c = -1
		case !m.baseOk:
			c = 1
		default:
			c = bytes.Compare(m.base.Key(), m.pending.Key())
			if m.reverse {
				c = -c
			}
		}

		if c < 0 {
			m.key = clone(m.base.Key())
			m.value = clone(m.base.Value())
			m.advanceBase()
			return true
		}

		key := m.pending.Key()
		value := m.pending.Value()
		if 0 == c {
			m.advanceBase()
		}
		if 0 == len(value) || opDelete == value[0] {
			m.advancePending()
			continue
		}
		m.key = clone(key)
		m.value = clone(value[1:])
		m.advancePending()
		return true
	}
	return false
}

// Key - current key including the table prefix
func (m *mergedIterator) Key() []byte {
	return m.key
}

// Value - current value
func (m *mergedIterator) Value() []byte {
	return m.value
}

// Release - release both iterators and return the first error seen
func (m *mergedIterator) Release() error {
	m.base.Release()
	err := m.base.Error()
	if nil != m.pending {
		m.pending.Release()
		if nil == err {
			err = m.pending.Error()
		}
	}
	return err
}

// contents of iterator slices must not be modified, and are only
// valid until the next move
func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
