// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitmark-inc/chainstore/genesis"
	"github.com/bitmark-inc/exitwithstatus"
)

// setup command handler
//
// commands that need neither the configuration nor the chain store
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {
	case "version", "v":
		fmt.Printf("%s\n", version)

	case "help", "h", "?":
		exitwithstatus.Message("usage: %s [--help] [--verbose] [--quiet] [--define=name=value]... --config-file=FILE [[command|help] arguments...]", program)

	default:
		return false
	}
	return true
}

// configuration command handler
//
// commands that read the configuration but leave the chain store
// closed
func processConfigCommand(arguments []string, options *Configuration) bool {

	command := arguments[0]

	switch command {
	case "show-config":
		text, err := json.MarshalIndent(options, "", "  ")
		if nil != err {
			exitwithstatus.Message("marshal configuration error: %s", err)
		}
		fmt.Printf("%s\n", text)

	case "genesis":
		g, err := genesis.ForChain(options.Chain)
		if nil != err {
			exitwithstatus.Message("genesis for chain: %q  error: %s", options.Chain, err)
		}
		fmt.Printf("chain:  %s\n", options.Chain)
		fmt.Printf("hash:   %s\n", g.Hash())
		fmt.Printf("time:   %d\n", g.Header.Timestamp)

	default:
		exitwithstatus.Message("error: no such command: %q  choose from: %s", command, strings.Join([]string{"version", "help", "show-config", "genesis"}, ", "))
	}
	return true
}

// parse name=value definitions
func parseVariables(definitions []string) (map[string]string, error) {
	variables := make(map[string]string, len(definitions))
	for _, d := range definitions {
		s := strings.SplitN(d, "=", 2)
		if 2 != len(s) || "" == strings.TrimSpace(s[0]) {
			return nil, fmt.Errorf("definition: %q is not name=value", d)
		}
		variables[strings.TrimSpace(s[0])] = s[1]
	}
	return variables, nil
}
