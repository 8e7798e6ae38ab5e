// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitmark-inc/chainstore/block"
	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/configuration"
	"github.com/bitmark-inc/chainstore/util"
	"github.com/bitmark-inc/logger"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultLevelDBDirectory = "data"
	defaultLiveDatabase     = chain.Live + ".leveldb"
	defaultTestingDatabase  = chain.Testing + ".leveldb"
	defaultLocalDatabase    = chain.Local + ".leveldb"

	defaultLogDirectory = "log"
	defaultLogFile      = "chainstored.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// a fresh map each time as the parser fills in the existing map
func defaultLogLevels() map[string]string {
	return map[string]string{
		logger.DefaultTag: "critical",
	}
}

// DatabaseType - where and how the chain store is kept
type DatabaseType struct {
	Directory       string `gluamapper:"directory" json:"directory"`
	Name            string `gluamapper:"name" json:"name"`
	MapSize         uint64 `gluamapper:"map_size" json:"map_size"`
	GrowSize        uint64 `gluamapper:"grow_size" json:"grow_size"`
	HeaderCacheSize int    `gluamapper:"header_cache_size" json:"header_cache_size"`

	CleanBadBlocksBeforeRelHeight uint64 `gluamapper:"clean_bad_blocks_before_rel_height" json:"clean_bad_blocks_before_rel_height"`
}

// MetricsType - prometheus endpoint, blank disables it
type MetricsType struct {
	Listen string `gluamapper:"listen" json:"listen"`
	Path   string `gluamapper:"path" json:"path"`
}

// Configuration - everything read from the configuration file
type Configuration struct {
	DataDirectory string `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string `gluamapper:"pidfile" json:"pidfile"`
	Chain         string `gluamapper:"chain" json:"chain"`
	ProfileHTTP   string `gluamapper:"profile_http" json:"profile_http"`

	Database  DatabaseType                    `gluamapper:"database" json:"database"`
	Block     block.Config                    `gluamapper:"block" json:"block"`
	Consensus chainstorage.ConsensusConstants `gluamapper:"consensus" json:"consensus"`
	Metrics   MetricsType                     `gluamapper:"metrics" json:"metrics"`
	Logging   logger.Configuration            `gluamapper:"logging" json:"logging"`
}

// StorageOptions - how the chain store is opened
func (c *Configuration) StorageOptions() chainstorage.Options {
	options := chainstorage.DefaultOptions()
	if 0 != c.Database.MapSize {
		options.Storage.MapSize = c.Database.MapSize
	}
	if 0 != c.Database.GrowSize {
		options.Storage.GrowBy = c.Database.GrowSize
	}
	if 0 != c.Database.HeaderCacheSize {
		options.HeaderCacheSize = c.Database.HeaderCacheSize
	}
	options.CleanBadBlocksBeforeRelHeight = c.Database.CleanBadBlocksBeforeRelHeight
	options.Constants = c.Consensus
	return options
}

// will read decode and verify the configuration
func getConfiguration(configurationFileName string, variables map[string]string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{
		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default
		Chain:         chain.Live,

		Database: DatabaseType{
			Directory: defaultLevelDBDirectory,
			Name:      defaultLiveDatabase,
		},

		Block:     block.DefaultConfig(),
		Consensus: chainstorage.DefaultOptions().Constants,

		Metrics: MetricsType{
			Path: "/metrics",
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels(),
		},
	}

	if err := configuration.ParseConfigurationFile(configurationFileName, options, variables); err != nil {
		return nil, err
	}

	// if the database file was not specified switch to the default
	// for the chain.  Abort if the chain name is not recognised.
	options.Chain = strings.ToLower(options.Chain)
	if !chain.Valid(options.Chain) {
		return nil, fmt.Errorf("Chain: %q is not supported", options.Chain)
	}

	// if database was not changed from default
	if options.Database.Name == defaultLiveDatabase {
		switch options.Chain {
		case chain.Live:
			// already correct default
		case chain.Testing:
			options.Database.Name = defaultTestingDatabase
		case chain.Local:
			options.Database.Name = defaultLocalDatabase
		default:
			return nil, fmt.Errorf("Chain: %s no default database setting", options.Chain)
		}
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("Path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("Path: %q is not a directory", options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = util.EnsureAbsolute(options.DataDirectory, *f)
	}

	// optional absolute paths i.e. blank or an absolute path
	optionalAbsolute := []*string{
		&options.PidFile,
	}
	for _, f := range optionalAbsolute {
		if "" != *f {
			*f = util.EnsureAbsolute(options.DataDirectory, *f)
		}
	}

	// fail if any of these are not simple file names i.e. must
	// not contain path seperator, then add the correct directory
	// prefix, file item is first and corresponding directory is
	// second (or nil if no prefix can be added)
	mustNotBePaths := [][2]*string{
		{&options.Database.Name, &options.Database.Directory},
		{&options.Logging.File, nil},
	}
	for _, f := range mustNotBePaths {
		switch filepath.Dir(*f[0]) {
		case "", ".":
			if nil != f[1] {
				*f[0] = util.EnsureAbsolute(*f[1], *f[0])
			}
		default:
			return nil, fmt.Errorf("Files: %q is not plain name", *f[0])
		}
	}

	// create directories if they do not already exist
	for _, d := range []string{
		options.Database.Directory,
		options.Logging.Directory,
	} {
		if err := util.EnsureDirectory(d); nil != err {
			return nil, err
		}
	}

	// done
	return options, nil
}
