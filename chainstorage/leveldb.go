// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/metrics"
	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/logger"
)

// LevelDBDatabase - the Backend over a prefix table store
type LevelDBDatabase struct {
	log     *logger.L
	store   *storage.Database
	tables  *storage.Tables
	options Options
	headers *headerCache
}

// main chain headers by height
//
// every purge starts a new generation; a header read before a purge is
// not added after it
type headerCache struct {
	sync.Mutex
	cache      *lru.Cache
	generation uint64
}

// cached header at height, on a miss the current generation is
// returned for the later add
func (c *headerCache) get(height uint64) (*blockrecord.ChainHeader, uint64, bool) {
	if nil == c.cache {
		return nil, 0, false
	}
	c.Lock()
	defer c.Unlock()
	value, ok := c.cache.Get(height)
	if !ok {
		return nil, c.generation, false
	}
	return value.(*blockrecord.ChainHeader), c.generation, true
}

func (c *headerCache) add(header *blockrecord.ChainHeader, generation uint64) {
	if nil == c.cache {
		return
	}
	c.Lock()
	defer c.Unlock()
	if generation != c.generation {
		return
	}
	c.cache.Add(header.Height(), header)
}

func (c *headerCache) purge() {
	if nil == c.cache {
		return
	}
	c.Lock()
	c.generation += 1
	c.cache.Clear()
	c.Unlock()
}

// ensure the interface is satisfied
var _ Backend = &LevelDBDatabase{}

// Open - open the chain store in directory and bring its schema up to
// date
func Open(directory string, options Options) (*LevelDBDatabase, error) {
	log := logger.New("chainstorage")

	store, err := storage.Open(directory, options.Storage)
	if nil != err {
		log.Errorf("open: %q  error: %s", directory, err)
		return nil, err
	}

	cache := &headerCache{}
	if options.HeaderCacheSize > 0 {
		cache.cache = lru.New(options.HeaderCacheSize)
	}

	db := &LevelDBDatabase{
		log:     log,
		store:   store,
		tables:  &store.Tables,
		options: options,
		headers: cache,
	}

	err = db.runMigrations()
	if nil != err {
		store.Close()
		return nil, err
	}

	return db, nil
}

// Close - close the store and release its lock
func (db *LevelDBDatabase) Close() {
	db.headers.purge()
	db.store.Close()
	db.log.Info("closed")
	db.log.Flush()
}

// Options - the options the store was opened with
func (db *LevelDBDatabase) Options() Options {
	return db.options
}

// run f on a snapshot of the last committed state
func (db *LevelDBDatabase) read(f func(r storage.Reader) error) error {
	r, err := db.store.Read()
	if nil != err {
		return err
	}
	defer r.Release()
	return f(r)
}

// Write - apply every operation of txn or none of them
//
// a transaction that outgrows the store is retried after each resize
// until it fits or the attempts run out
func (db *LevelDBDatabase) Write(txn *DbTransaction) error {
	if nil == txn || txn.IsEmpty() {
		return nil
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt += 1 {
		err := db.apply(txn)
		if nil == err {
			if txn.changesHeaders() {
				db.headers.purge()
			}
			return nil
		}
		if !errors.Is(err, fault.ErrResizeRequired) {
			return err
		}

		metrics.WriteRetries.Inc()
		db.log.Warnf("write attempt: %d of: %d needs resize", attempt, maxWriteAttempts)
		err = db.store.Resize()
		if nil != err {
			db.log.Errorf("resize error: %s", err)
			return err
		}
	}

	db.log.Errorf("transaction too large after: %d attempts: %s", maxWriteAttempts, txn)
	return fault.ErrTransactionTooLarge
}

// single attempt: one write transaction, first failure aborts
func (db *LevelDBDatabase) apply(txn *DbTransaction) error {
	w, err := db.store.Begin()
	if nil != err {
		return err
	}

	for _, op := range txn.operations {
		db.log.Debugf("apply: %s", op)
		err := op.apply(db, w)
		if nil != err {
			w.Abort()
			db.log.Debugf("%s error: %s", op, err)
			return errors.Wrapf(err, "%s", op)
		}
	}
	return w.Commit()
}

// deleting headers leaves cached heights stale
func (txn *DbTransaction) changesHeaders() bool {
	for _, op := range txn.operations {
		if _, ok := op.(*deleteHeader); ok {
			return true
		}
	}
	return false
}
