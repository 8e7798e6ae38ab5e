// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/chainstore/fault"
)

// Reader - anything tables can be read through
type Reader interface {
	get(key []byte) ([]byte, bool, error)
	iterate(searchRange *ldb_util.Range, reverse bool) *mergedIterator
}

// ReadTxn - a consistent view of the last committed state
type ReadTxn struct {
	snapshot *leveldb.Snapshot
}

// Read - start a read transaction, Release must be called
func (d *Database) Read() (*ReadTxn, error) {
	d.access.Lock()
	db := d.db
	d.access.Unlock()

	if nil == db {
		return nil, fault.ErrNotInitialised
	}
	snapshot, err := db.GetSnapshot()
	if nil != err {
		return nil, err
	}
	return &ReadTxn{
		snapshot: snapshot,
	}, nil
}

// Release - finish with the snapshot
func (r *ReadTxn) Release() {
	r.snapshot.Release()
}

func (r *ReadTxn) get(key []byte) ([]byte, bool, error) {
	value, err := r.snapshot.Get(key, nil)
	if leveldb.ErrNotFound == err {
		return nil, false, nil
	}
	if nil != err {
		return nil, false, err
	}
	return value, true, nil
}

func (r *ReadTxn) iterate(searchRange *ldb_util.Range, reverse bool) *mergedIterator {
	return newMergedIterator(r.snapshot.NewIterator(searchRange, nil), nil, reverse)
}

// WriteTxn - an exclusive all-or-nothing write transaction
//
// writes accumulate in a batch and an ordered overlay so that reads
// through the transaction see them; nothing is visible to other
// readers until Commit
type WriteTxn struct {
	d       *Database
	batch   *leveldb.Batch
	pending *memdb.DB
	done    bool
}

// Begin - start the single write transaction
func (d *Database) Begin() (*WriteTxn, error) {
	d.access.Lock()
	defer d.access.Unlock()

	if nil == d.db {
		return nil, fault.ErrNotInitialised
	}
	if d.inUse {
		return nil, fault.ErrTransactionInUse
	}
	d.inUse = true

	return &WriteTxn{
		d:       d,
		batch:   new(leveldb.Batch),
		pending: memdb.New(comparer.DefaultComparer, 0),
	}, nil
}

func (w *WriteTxn) put(key []byte, value []byte) {
	w.batch.Put(key, value)
	marked := make([]byte, 0, len(value)+1)
	marked = append(marked, opPut)
	_ = w.pending.Put(key, append(marked, value...))
}

func (w *WriteTxn) remove(key []byte) {
	w.batch.Delete(key)
	_ = w.pending.Put(key, []byte{opDelete})
}

func (w *WriteTxn) get(key []byte) ([]byte, bool, error) {
	value, err := w.pending.Get(key)
	if nil == err {
		if opDelete == value[0] {
			return nil, false, nil
		}
		return clone(value[1:]), true, nil
	}
	if memdb.ErrNotFound != err {
		return nil, false, err
	}

	value, err = w.d.db.Get(key, nil)
	if leveldb.ErrNotFound == err {
		return nil, false, nil
	}
	if nil != err {
		return nil, false, err
	}
	return value, true, nil
}

func (w *WriteTxn) iterate(searchRange *ldb_util.Range, reverse bool) *mergedIterator {
	return newMergedIterator(
		w.d.db.NewIterator(searchRange, nil),
		w.pending.NewIterator(searchRange),
		reverse,
	)
}

// Len - number of pending writes
func (w *WriteTxn) Len() int {
	return w.batch.Len()
}

// Commit - atomically write everything, or nothing
//
// fails with fault.ErrResizeRequired if the batch does not fit in the
// current map size; the transaction is aborted in every case
func (w *WriteTxn) Commit() error {
	if w.done {
		return fault.ErrTransactionNotInUse
	}
	defer w.Abort()

	d := w.d
	size := uint64(len(w.batch.Dump()))

	d.access.Lock()
	defer d.access.Unlock()

	if 0 != d.mapSize && d.used+size > d.mapSize {
		d.log.Debugf("commit of: %d bytes exceeds map size: %d  used: %d", size, d.mapSize, d.used)
		return fault.ErrResizeRequired
	}

	err := d.db.Write(w.batch, nil)
	if nil != err {
		return err
	}
	d.used += size
	return nil
}

// Abort - discard all pending writes and release the transaction
func (w *WriteTxn) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.batch.Reset()
	w.pending.Reset()

	w.d.access.Lock()
	w.d.inUse = false
	w.d.access.Unlock()
}

// Resize - grow the map size by the configured amount
func (d *Database) Resize() error {
	d.access.Lock()
	defer d.access.Unlock()

	if 0 == d.growBy {
		return fault.ErrResizeFailed
	}
	d.mapSize += d.growBy
	d.log.Infof("resized: %q  map size: %d  used: %d", d.path, d.mapSize, d.used)
	return nil
}

// MapSize - current byte budget and bytes used
func (d *Database) MapSize() (uint64, uint64) {
	d.access.Lock()
	defer d.access.Unlock()
	return d.mapSize, d.used
}
