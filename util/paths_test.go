// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstore/util"
)

func TestEnsureAbsolute(t *testing.T) {
	items := []struct {
		directory string
		file      string
		expected  string
	}{
		{"/var/lib/chainstore", "data", "/var/lib/chainstore/data"},
		{"/var/lib/chainstore/", "./log/../log", "/var/lib/chainstore/log"},
		{"/var/lib/chainstore", "/tmp/x.pid", "/tmp/x.pid"},
	}
	for _, item := range items {
		assert.Equal(t, item.expected, util.EnsureAbsolute(item.directory, item.file), "directory: %q  file: %q", item.directory, item.file)
	}

}

func TestEnsureDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	assert.Nil(t, util.EnsureDirectory(dir), "create")
	info, err := os.Stat(dir)
	assert.Nil(t, err, "stat")
	assert.True(t, info.IsDir(), "not a directory")

	assert.Nil(t, util.EnsureDirectory(dir), "existing")
	assert.NotNil(t, util.EnsureDirectory("paths.go"), "file accepted as directory")
}
