// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
)

// CurrentMigrationVersion - schema version written by this binary
const CurrentMigrationVersion = 1

type migration struct {
	version uint64
	name    string
	apply   func(db *LevelDBDatabase, w *storage.WriteTxn) error
}

// applied in order, each in its own write transaction
var migrations = []migration{
	{
		version: 1,
		name:    "drop unreferenced commitment index rows",
		apply:   dropUnreferencedCommitments,
	},
}

func (db *LevelDBDatabase) runMigrations() error {
	var version uint64
	err := db.read(func(r storage.Reader) error {
		v, err := fetchMigrationVersion(db.tables, r)
		version = v
		return err
	})
	if nil != err {
		return err
	}

	if version > CurrentMigrationVersion {
		db.log.Criticalf("database version: %d is newer than supported version: %d", version, CurrentMigrationVersion)
		return errors.Wrapf(fault.ErrDatabaseVersion, "stored: %d  supported: %d", version, CurrentMigrationVersion)
	}
	if version == CurrentMigrationVersion {
		db.log.Debugf("database version: %d", version)
		return nil
	}
	if db.options.Storage.ReadOnly {
		db.log.Warnf("read only database at version: %d, expected: %d", version, CurrentMigrationVersion)
		return nil
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		db.log.Infof("migrate to version: %d  %s", m.version, m.name)

		w, err := db.store.Begin()
		if nil != err {
			return err
		}
		err = m.apply(db, w)
		if nil != err {
			w.Abort()
			db.log.Criticalf("migration: %d error: %s", m.version, err)
			return err
		}
		setMetadataUint64(db.tables, w, MigrationVersionKey, m.version)
		err = w.Commit()
		if nil != err {
			return err
		}
		version = m.version
	}
	return nil
}

// commitment index rows must name an output that has an output row
func dropUnreferencedCommitments(db *LevelDBDatabase, w *storage.WriteTxn) error {
	stale := [][]byte{}
	err := db.tables.UtxoCommitmentIndex.Map(w, func(key []byte, value []byte) error {
		found, err := db.tables.TxosHashToIndex.Has(w, value)
		if nil != err {
			return err
		}
		if !found {
			stale = append(stale, append([]byte{}, key...))
		}
		return nil
	})
	if nil != err {
		return err
	}
	for _, key := range stale {
		err := db.tables.UtxoCommitmentIndex.Delete(w, key)
		if nil != err {
			return err
		}
	}
	if 0 != len(stale) {
		db.log.Infof("dropped: %d stale commitment index rows", len(stale))
	}
	return nil
}
