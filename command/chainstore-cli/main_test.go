// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/block"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/genesis"
	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/logger"
)

const (
	testingDirName = "testing"
)

// Test main entrypoint
func TestMain(m *testing.M) {
	_ = os.RemoveAll(testingDirName)
	_ = os.Mkdir(testingDirName, 0o700)

	logging := logger.Configuration{
		Directory: testingDirName,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}
	_ = logger.Initialise(logging)

	result := m.Run()

	logger.Finalise()
	_ = os.RemoveAll(testingDirName)
	os.Exit(result)
}

// a closed store holding only the genesis block
func genesisStore(t *testing.T) (string, *blockrecord.Block) {
	dir := filepath.Join(testingDirName, t.Name())
	_ = os.RemoveAll(dir)

	options := chainstorage.DefaultOptions()
	options.Storage = storage.Options{}
	store, err := chainstorage.Open(dir, options)
	require.Nil(t, err, "open")

	g, err := genesis.New(genesis.TestNet)
	require.Nil(t, err, "genesis")

	config := block.DefaultConfig()
	config.CleanupInterval = 0
	bc, err := block.New(store, g, nil, config)
	require.Nil(t, err, "blockchain")
	bc.Stop()
	store.Close()

	return dir, g
}

func run(t *testing.T, arguments ...string) []byte {
	w := &bytes.Buffer{}
	e := &bytes.Buffer{}
	app := newApp(w, e)
	err := app.Run(append([]string{"chainstore-cli"}, arguments...))
	require.Nil(t, err, "run: %v  stderr: %s", arguments, e.String())
	return w.Bytes()
}

func TestInfo(t *testing.T) {
	dir, g := genesisStore(t)

	reply := infoReply{}
	require.Nil(t, json.Unmarshal(run(t, "-d", dir, "info"), &reply), "json")
	require.NotNil(t, reply.Metadata, "metadata")
	assert.Equal(t, uint64(0), reply.Metadata.HeightOfLongestChain, "height")
	assert.Equal(t, g.Hash(), reply.Metadata.BestBlock, "best block")
	assert.Equal(t, 1, reply.Utxos, "utxos")
	assert.Equal(t, 1, reply.Kernels, "kernels")
	assert.Equal(t, 0, reply.Orphans, "orphans")
}

func TestStats(t *testing.T) {
	dir, _ := genesisStore(t)

	reply := statsReply{}
	require.Nil(t, json.Unmarshal(run(t, "--database", dir, "stats", "--sizes"), &reply), "json")
	assert.NotEqual(t, 0, len(reply.Stats.Tables), "tables")
	assert.NotEqual(t, 0, len(reply.Sizes), "sizes")
}

func TestHeader(t *testing.T) {
	dir, g := genesisStore(t)

	headers := []*blockrecord.ChainHeader{}
	require.Nil(t, json.Unmarshal(run(t, "-d", dir, "header", "--height", "0", "--count", "5"), &headers), "json")
	require.Equal(t, 1, len(headers), "headers")
	assert.Equal(t, g.Hash(), headers[0].Header.Hash(), "genesis header")

	header := blockrecord.ChainHeader{}
	require.Nil(t, json.Unmarshal(run(t, "-d", dir, "header", "--hash", g.Hash().String()), &header), "json")
	assert.Equal(t, uint64(0), header.Header.Height, "height")
}

func TestOrphansAndReorgs(t *testing.T) {
	dir, _ := genesisStore(t)

	orphans := orphansReply{}
	require.Nil(t, json.Unmarshal(run(t, "-d", dir, "orphans"), &orphans), "json")
	assert.Equal(t, 0, orphans.Count, "orphans")
	assert.Equal(t, 0, len(orphans.Tips), "tips")

	reorgs := []*blockrecord.Reorg{}
	require.Nil(t, json.Unmarshal(run(t, "-d", dir, "reorgs"), &reorgs), "json")
	assert.Equal(t, 0, len(reorgs), "reorgs")
}

func TestClearPendingHeaders(t *testing.T) {
	dir, _ := genesisStore(t)

	reply := clearReply{}
	require.Nil(t, json.Unmarshal(run(t, "-d", dir, "clear-pending-headers"), &reply), "json")
	assert.Equal(t, 0, reply.Cleared, "cleared")
}

func TestMissingDatabase(t *testing.T) {
	app := newApp(&bytes.Buffer{}, &bytes.Buffer{})
	err := app.Run([]string{"chainstore-cli", "info"})
	assert.NotNil(t, err, "ran without a database")

	app = newApp(&bytes.Buffer{}, &bytes.Buffer{})
	err = app.Run([]string{"chainstore-cli", "-d", filepath.Join(testingDirName, "nonesuch"), "info"})
	assert.NotNil(t, err, "opened a missing database")
}
