// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/bitmark-inc/chainstore/fault"
)

// Stats - entry counts per table plus the engine statistics
type Stats struct {
	MapSize uint64         `json:"mapSize"`
	Used    uint64         `json:"used"`
	Engine  string         `json:"engine"`
	Tables  map[string]int `json:"tables"`
}

// Stats - count the entries of every table through r
func (d *Database) Stats(r Reader) (Stats, error) {
	mapSize, used := d.MapSize()
	stats := Stats{
		MapSize: mapSize,
		Used:    used,
		Tables:  make(map[string]int),
	}

	d.access.Lock()
	db := d.db
	d.access.Unlock()
	if nil == db {
		return Stats{}, fault.ErrNotInitialised
	}

	engine, err := db.GetProperty("leveldb.stats")
	if nil != err {
		return Stats{}, err
	}
	stats.Engine = engine

	for _, t := range d.all {
		n, err := t.Len(r)
		if nil != err {
			return Stats{}, err
		}
		stats.Tables[t.name] = n
	}
	return stats, nil
}

// TotalSizes - entries and key/value byte totals of every table
func (d *Database) TotalSizes(r Reader) ([]TableSize, error) {
	sizes := make([]TableSize, 0, len(d.all))
	for _, t := range d.all {
		size, err := t.Size(r)
		if nil != err {
			return nil, err
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}
