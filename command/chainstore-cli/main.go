// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/logger"
)

type metadata struct {
	database string
	w        io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {

	logging := logger.Configuration{
		Directory: os.TempDir(),
		File:      "chainstore-cli.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}
	if err := logger.Initialise(logging); nil != err {
		fmt.Fprintf(os.Stderr, "logger setup failed with error: %s\n", err)
		os.Exit(1)
	}

	app := newApp(os.Stdout, os.Stderr)
	err := app.Run(os.Args)

	logger.Finalise()

	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp(w io.Writer, e io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "chainstore-cli"
	app.Usage = "inspect a chain store"
	app.Version = version
	app.HideVersion = true

	app.Writer = w
	app.ErrWriter = e
	app.Metadata = map[string]interface{}{}

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "database, d",
			Value: "",
			Usage: "*chain store `DIRECTORY`",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "info",
			Usage:  "display chain metadata and accumulator sizes",
			Action: runInfo,
		},
		{
			Name:      "stats",
			Usage:     "display entries per table",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "sizes, s",
					Usage: " include key and value byte totals",
				},
			},
			Action: runStats,
		},
		{
			Name:      "header",
			Usage:     "display headers from a height, or the header with a hash",
			ArgsUsage: "\n   (+ = select one)",
			Flags: []cli.Flag{
				cli.Uint64Flag{
					Name:  "height, H",
					Value: 0,
					Usage: "+first header `HEIGHT`",
				},
				cli.StringFlag{
					Name:  "hash, x",
					Value: "",
					Usage: "+header `HASH` in any chain",
				},
				cli.Uint64Flag{
					Name:  "count, c",
					Value: 1,
					Usage: " number of headers `COUNT`",
				},
			},
			Action: runHeader,
		},
		{
			Name:   "orphans",
			Usage:  "display orphan pool size and orphan chain tips",
			Action: runOrphans,
		},
		{
			Name:   "reorgs",
			Usage:  "display the reorg log",
			Action: runReorgs,
		},
		{
			Name:   "clear-pending-headers",
			Usage:  "delete headers above the tip that have no block",
			Action: runClearPendingHeaders,
		},
	}

	app.Before = func(c *cli.Context) error {
		if 0 == c.NArg() || "help" == c.Args().First() || "h" == c.Args().First() {
			return nil
		}
		database := c.GlobalString("database")
		if "" == database {
			return fmt.Errorf("database directory is required")
		}
		database, err := filepath.Abs(filepath.Clean(database))
		if nil != err {
			return err
		}
		app.Metadata["config"] = &metadata{
			database: database,
			w:        app.Writer,
		}
		return nil
	}

	return app
}
