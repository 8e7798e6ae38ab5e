// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/fault"
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

func openTestDatabase(t *testing.T, options storage.Options) *storage.Database {
	dir := filepath.Join(testingDirName, t.Name())
	_ = os.RemoveAll(dir)
	d, err := storage.Open(dir, options)
	require.Nil(t, err, "open database")
	t.Cleanup(d.Close)
	return d
}

func TestTablesRegistered(t *testing.T) {
	d := openTestDatabase(t, storage.Options{})

	names := make(map[string]bool)
	for _, table := range d.All() {
		names[table.Name()] = true
	}
	assert.Equal(t, 25, len(names), "wrong number of tables")
	assert.True(t, names["headers"], "headers table missing")
	assert.True(t, names["orphan_parent_map_index"], "orphan parent map missing")
	assert.Equal(t, "utxos", d.Utxos.Name(), "wrong table bound to field")
}

func TestSecondOpenIsLocked(t *testing.T) {
	d := openTestDatabase(t, storage.Options{})

	_, err := os.Stat(filepath.Join(d.Path(), storage.LockFileName))
	assert.Nil(t, err, "lock file not created")

	_, err = storage.Open(d.Path(), storage.Options{})
	assert.True(t, fault.IsErrProcess(err), "second writer not refused: %v", err)

	// closing releases the lock
	d.Close()
	again, err := storage.Open(d.Path(), storage.Options{})
	require.Nil(t, err, "reopen after close")
	again.Close()
}
