// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/configuration"
	"github.com/bitmark-inc/chainstore/fault"
)

type testDatabase struct {
	Directory string `gluamapper:"directory"`
	MapSize   uint64 `gluamapper:"map_size"`
}

type testConfiguration struct {
	DataDirectory string            `gluamapper:"data_directory"`
	Chain         string            `gluamapper:"chain"`
	Interval      time.Duration     `gluamapper:"interval"`
	Database      testDatabase      `gluamapper:"database"`
	Levels        map[string]string `gluamapper:"levels"`
	Listen        []string          `gluamapper:"listen"`
}

const testConfigurationText = `
local M = {}

M.data_directory = arg[0]:match("(.*/)")
M.chain = chain_name or "local"
M.interval = 5 * minute

M.database = {
    directory = "data",
    map_size = 64 * 1024 * 1024,
}

M.levels = {
    main = "info",
    DEFAULT = "critical",
}

M.listen = { "127.0.0.1:2150", "[::1]:2150" }

return M
`

func TestParseConfigurationFile(t *testing.T) {
	fileName := writeFile(t, "chainstored.conf", testConfigurationText)

	config := testConfiguration{
		Chain: "untouched",
	}
	err := configuration.ParseConfigurationFile(fileName, &config, nil)
	require.Nil(t, err, "parse")

	assert.Equal(t, "local", config.Chain, "chain")
	assert.Equal(t, 5*time.Minute, config.Interval, "interval")
	assert.Equal(t, "data", config.Database.Directory, "database directory")
	assert.Equal(t, uint64(64*1024*1024), config.Database.MapSize, "map size")
	assert.Equal(t, "info", config.Levels["main"], "main level")
	assert.Equal(t, "critical", config.Levels["DEFAULT"], "default level")
	assert.Equal(t, []string{"127.0.0.1:2150", "[::1]:2150"}, config.Listen, "listen")
	assert.NotEqual(t, "", config.DataDirectory, "data directory")
}

func TestParseConfigurationFileVariables(t *testing.T) {
	fileName := writeFile(t, "chainstored.conf", testConfigurationText)

	config := testConfiguration{}
	variables := map[string]string{
		"chain_name": "testing",
	}
	err := configuration.ParseConfigurationFile(fileName, &config, variables)
	require.Nil(t, err, "parse")
	assert.Equal(t, "testing", config.Chain, "chain")
}

func TestParseConfigurationFileNotTable(t *testing.T) {
	fileName := writeFile(t, "bad.conf", `return "text"`)

	config := testConfiguration{}
	err := configuration.ParseConfigurationFile(fileName, &config, nil)
	assert.True(t, fault.IsErrInvalid(err), "unexpected error: %v", err)
}

func TestParseConfigurationFileErrors(t *testing.T) {
	fileName := writeFile(t, "syntax.conf", `return {`)

	config := testConfiguration{}
	err := configuration.ParseConfigurationFile(fileName, &config, nil)
	assert.NotNil(t, err, "syntax error not reported")

	err = configuration.ParseConfigurationFile(fileName+".missing", &config, nil)
	assert.NotNil(t, err, "missing file not reported")
}
