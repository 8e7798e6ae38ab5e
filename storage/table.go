// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/pkg/errors"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/chainstore/fault"
)

// Table - one prefix separated table of the store
type Table struct {
	name   string
	prefix byte
	limit  []byte
}

// Element - a binary data item
type Element struct {
	Key   []byte
	Value []byte
}

// Name - string identifier of the table
func (t *Table) Name() string {
	return t.name
}

// prepend the prefix onto the key
func (t *Table) prefixKey(key []byte) []byte {
	prefixedKey := make([]byte, 1, len(key)+1)
	prefixedKey[0] = t.prefix
	return append(prefixedKey, key...)
}

// range of every key in the table
func (t *Table) fullRange() *ldb_util.Range {
	return &ldb_util.Range{
		Start: []byte{t.prefix}, // Start of key range, included in the range
		Limit: t.limit,          // Limit of key range, excluded from the range
	}
}

// range of every key starting with prefix
func (t *Table) prefixRange(prefix []byte) *ldb_util.Range {
	r := ldb_util.BytesPrefix(t.prefixKey(prefix))
	return r
}

// strip the prefix from an iterator key
func (t *Table) element(key []byte, value []byte) Element {
	return Element{
		Key:   key[1:],
		Value: value,
	}
}

// Get - read the value for a key
//
// second result is false if the key is absent
func (t *Table) Get(r Reader, key []byte) ([]byte, bool, error) {
	value, found, err := r.get(t.prefixKey(key))
	if nil != err {
		return nil, false, errors.Wrapf(err, "%s get: %x", t.name, key)
	}
	return value, found, nil
}

// Has - check if a key exists
func (t *Table) Has(r Reader, key []byte) (bool, error) {
	_, found, err := t.Get(r, key)
	return found, err
}

// Insert - store a new key, fails if the key already exists
func (t *Table) Insert(w *WriteTxn, key []byte, value []byte) error {
	found, err := t.Has(w, key)
	if nil != err {
		return err
	}
	if found {
		return errors.Wrapf(fault.ErrDuplicateKey, "%s insert: %x", t.name, key)
	}
	w.put(t.prefixKey(key), value)
	return nil
}

// Replace - store a key whether or not it exists
func (t *Table) Replace(w *WriteTxn, key []byte, value []byte) {
	w.put(t.prefixKey(key), value)
}

// Delete - remove a key, fails if the key is absent
func (t *Table) Delete(w *WriteTxn, key []byte) error {
	found, err := t.Has(w, key)
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrValueNotFound, "%s delete: %x", t.name, key)
	}
	w.remove(t.prefixKey(key))
	return nil
}

// DeleteIfExists - remove a key if present
//
// returns true if something was removed
func (t *Table) DeleteIfExists(w *WriteTxn, key []byte) (bool, error) {
	found, err := t.Has(w, key)
	if nil != err || !found {
		return false, err
	}
	w.remove(t.prefixKey(key))
	return true, nil
}

// DeleteByPrefix - remove every key starting with prefix and return
// the removed elements in key order
func (t *Table) DeleteByPrefix(w *WriteTxn, prefix []byte) ([]Element, error) {
	elements, err := t.FetchWithPrefix(w, prefix)
	if nil != err {
		return nil, err
	}
	for _, e := range elements {
		w.remove(t.prefixKey(e.Key))
	}
	return elements, nil
}

// DeleteWhere - remove every element matching f, returning the count
func (t *Table) DeleteWhere(w *WriteTxn, f func(key []byte, value []byte) bool) (int, error) {
	n := 0
	err := t.Map(w, func(key []byte, value []byte) error {
		if f(key, value) {
			w.remove(t.prefixKey(key))
			n += 1
		}
		return nil
	})
	return n, err
}

// Clear - remove every element, returning the count
func (t *Table) Clear(w *WriteTxn) (int, error) {
	return t.DeleteWhere(w, func([]byte, []byte) bool { return true })
}

// FetchWithPrefix - all elements whose key starts with prefix, in key order
func (t *Table) FetchWithPrefix(r Reader, prefix []byte) ([]Element, error) {
	iter := r.iterate(t.prefixRange(prefix), false)
	results := make([]Element, 0, 8)
	for iter.Next() {
		results = append(results, t.element(iter.Key(), iter.Value()))
	}
	err := iter.Release()
	if nil != err {
		return nil, errors.Wrapf(err, "%s prefix: %x", t.name, prefix)
	}
	return results, nil
}

// FirstAfter - the first element whose key is >= key
func (t *Table) FirstAfter(r Reader, key []byte) (Element, bool, error) {
	searchRange := &ldb_util.Range{
		Start: t.prefixKey(key),
		Limit: t.limit,
	}
	iter := r.iterate(searchRange, false)
	found := iter.Next()
	result := Element{}
	if found {
		result = t.element(iter.Key(), iter.Value())
	}
	err := iter.Release()
	if nil != err {
		return Element{}, false, errors.Wrapf(err, "%s first after: %x", t.name, key)
	}
	return result, found, nil
}

// Last - the element with the highest key
func (t *Table) Last(r Reader) (Element, bool, error) {
	iter := r.iterate(t.fullRange(), true)
	found := iter.Next()
	result := Element{}
	if found {
		result = t.element(iter.Key(), iter.Value())
	}
	err := iter.Release()
	if nil != err {
		return Element{}, false, errors.Wrapf(err, "%s last", t.name)
	}
	return result, found, nil
}

// Map - run a function on all elements in key order
//
// stops at the first error returned by f
func (t *Table) Map(r Reader, f func(key []byte, value []byte) error) error {
	iter := r.iterate(t.fullRange(), false)

	var err error
iterating:
	for iter.Next() {
		e := t.element(iter.Key(), iter.Value())
		err = f(e.Key, e.Value)
		if nil != err {
			break iterating
		}
	}
	iterErr := iter.Release()
	if nil == err {
		err = iterErr
	}
	return err
}

// Len - number of elements
func (t *Table) Len(r Reader) (int, error) {
	n := 0
	err := t.Map(r, func([]byte, []byte) error {
		n += 1
		return nil
	})
	return n, err
}

// Size - number of elements and total key and value bytes
func (t *Table) Size(r Reader) (TableSize, error) {
	size := TableSize{
		Name: t.name,
	}
	err := t.Map(r, func(key []byte, value []byte) error {
		size.Entries += 1
		size.KeyBytes += uint64(len(key))
		size.ValueBytes += uint64(len(value))
		return nil
	})
	return size, err
}

// TableSize - statistics for one table
type TableSize struct {
	Name       string `json:"name"`
	Entries    uint64 `json:"entries"`
	KeyBytes   uint64 `json:"keyBytes"`
	ValueBytes uint64 `json:"valueBytes"`
}
