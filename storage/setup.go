// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/prometheus/tsdb/fileutil"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/logger"
)

// LockFileName - exclusive lock held while a store is open for writing
const LockFileName = ".chain_storage_file.lock"

// Tables - the set of tables in the chain store
//
// note all must be exported (i.e. initial capital) or initialisation will panic
type Tables struct {
	Metadata                    *Table `prefix:"m" name:"metadata"`
	Headers                     *Table `prefix:"h" name:"headers"`
	HeaderAccumulatedData       *Table `prefix:"a" name:"header_accumulated_data"`
	BlockAccumulatedData        *Table `prefix:"p" name:"mmr_peak_data"`
	BlockHashes                 *Table `prefix:"b" name:"block_hashes"`
	Utxos                       *Table `prefix:"u" name:"utxos"`
	Inputs                      *Table `prefix:"i" name:"inputs"`
	TxosHashToIndex             *Table `prefix:"x" name:"txos_hash_to_index"`
	Kernels                     *Table `prefix:"k" name:"kernels"`
	KernelExcessIndex           *Table `prefix:"e" name:"kernel_excess_index"`
	KernelExcessSigIndex        *Table `prefix:"s" name:"kernel_excess_sig_index"`
	KernelMmrSizeIndex          *Table `prefix:"K" name:"kernel_mmr_size_index"`
	OutputMmrSizeIndex          *Table `prefix:"U" name:"output_mmr_size_index"`
	DeletedTxoPositionIndex     *Table `prefix:"d" name:"deleted_txo_mmr_position_to_height_index"`
	UtxoCommitmentIndex         *Table `prefix:"c" name:"utxo_commitment_index"`
	Orphans                     *Table `prefix:"o" name:"orphans"`
	OrphanHeaderAccumulatedData *Table `prefix:"O" name:"orphan_accumulated_data"`
	OrphanChainTips             *Table `prefix:"t" name:"orphan_chain_tips"`
	OrphanParentMapIndex        *Table `prefix:"P" name:"orphan_parent_map_index"`
	MoneroSeedHeight            *Table `prefix:"M" name:"monero_seed_height"`
	BadBlocks                   *Table `prefix:"B" name:"bad_blocks"`
	Reorgs                      *Table `prefix:"r" name:"reorgs"`
	ValidatorNodes              *Table `prefix:"v" name:"validator_nodes"`
	ValidatorNodesMapping       *Table `prefix:"V" name:"validator_nodes_mapping"`
	TemplateRegistrations       *Table `prefix:"T" name:"template_registrations"`
}

// Options - how the store is opened
//
// MapSize is the byte budget of the store (zero for no limit); a
// commit that would take the store past it fails with
// fault.ErrResizeRequired until Resize adds GrowBy more bytes
type Options struct {
	MapSize  uint64
	GrowBy   uint64
	ReadOnly bool
}

// Database - an open chain store
type Database struct {
	access sync.Mutex
	Tables

	log     *logger.L
	path    string
	db      *leveldb.DB
	lock    fileutil.Releaser
	mapSize uint64
	growBy  uint64
	used    uint64
	inUse   bool
	all     []*Table
}

// Open - open up the database, creating it if necessary
//
// the directory is locked against other writers for as long as the
// database stays open
func Open(directory string, options Options) (*Database, error) {
	log := logger.New("storage")

	d := &Database{
		log:     log,
		path:    directory,
		mapSize: options.MapSize,
		growBy:  options.GrowBy,
	}

	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	if !options.ReadOnly {
		err := os.MkdirAll(directory, 0o700)
		if nil != err {
			return nil, err
		}
		releaser, _, err := fileutil.Flock(filepath.Join(directory, LockFileName))
		if nil != err {
			log.Errorf("cannot lock: %q  error: %s", directory, err)
			return nil, errors.Wrapf(fault.ErrStoreLocked, "%s", directory)
		}
		d.lock = releaser
	}

	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: options.ReadOnly,
		ReadOnly:       options.ReadOnly,
	}

	db, err := leveldb.OpenFile(directory, opt)
	if nil != err {
		return nil, err
	}
	d.db = db

	sizes, err := db.SizeOf([]ldb_util.Range{{Start: nil, Limit: nil}})
	if nil != err {
		return nil, err
	}
	d.used = uint64(sizes.Sum())
	if 0 != d.mapSize && d.used > d.mapSize {
		d.mapSize = d.used
	}

	err = d.register()
	if nil != err {
		return nil, err
	}

	log.Infof("opened: %q  used: %d  map size: %d", directory, d.used, d.mapSize)

	ok = true // prevent db close
	return d, nil
}

// fill in the table handles from the struct tags
func (d *Database) register() error {

	// this will be a struct type
	tablesType := reflect.TypeOf(d.Tables)

	// get write access by using pointer + Elem()
	tablesValue := reflect.ValueOf(&d.Tables).Elem()

	seen := make(map[byte]string)

	// scan each field
	for i := 0; i < tablesType.NumField(); i += 1 {

		fieldInfo := tablesType.Field(i)

		prefixTag := fieldInfo.Tag.Get("prefix")
		if 1 != len(prefixTag) {
			return fmt.Errorf("table: %v has invalid prefix: %q", fieldInfo.Name, prefixTag)
		}
		prefix := prefixTag[0]

		name := fieldInfo.Tag.Get("name")
		if "" == name {
			return fmt.Errorf("table: %v has no name", fieldInfo.Name)
		}

		if other, ok := seen[prefix]; ok {
			return fmt.Errorf("table: %s reuses prefix: %q of: %s", name, prefixTag, other)
		}
		seen[prefix] = name

		limit := []byte(nil)
		if prefix < 255 {
			limit = []byte{prefix + 1}
		}

		t := &Table{
			name:   name,
			prefix: prefix,
			limit:  limit,
		}
		tablesValue.Field(i).Set(reflect.ValueOf(t))
		d.all = append(d.all, t)
	}
	return nil
}

// All - every table in declaration order
func (d *Database) All() []*Table {
	return d.all
}

// Path - directory holding the store
func (d *Database) Path() string {
	return d.path
}

// Close - close the database and release the directory lock
func (d *Database) Close() {
	d.access.Lock()
	defer d.access.Unlock()

	if nil != d.db {
		err := d.db.Close()
		if nil != err {
			d.log.Errorf("close: %q  error: %s", d.path, err)
		}
		d.db = nil
	}
	if nil != d.lock {
		err := d.lock.Release()
		if nil != err {
			d.log.Errorf("release lock: %q  error: %s", d.path, err)
		}
		d.lock = nil
	}
}
