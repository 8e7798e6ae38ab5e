// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/storage"
)

// only clear-pending-headers writes
func openStore(c *cli.Context, readOnly bool) (*chainstorage.LevelDBDatabase, *metadata, error) {
	m := c.App.Metadata["config"].(*metadata)

	options := chainstorage.DefaultOptions()
	options.Storage.ReadOnly = readOnly

	store, err := chainstorage.Open(m.database, options)
	if nil != err {
		return nil, nil, err
	}
	return store, m, nil
}

type infoReply struct {
	Metadata    *blockrecord.ChainMetadata `json:"metadata"`
	LastHeader  uint64                     `json:"lastHeaderHeight"`
	Utxos       int                        `json:"utxos"`
	Kernels     int                        `json:"kernels"`
	KernelMmr   uint64                     `json:"kernelMmrSize"`
	UtxoMmr     uint64                     `json:"utxoMmrSize"`
	Orphans     int                        `json:"orphans"`
	HorizonData *blockrecord.HorizonData   `json:"horizonData"`
}

func runInfo(c *cli.Context) error {
	store, m, err := openStore(c, true)
	if nil != err {
		return err
	}
	defer store.Close()

	reply := infoReply{}

	reply.Metadata, err = store.FetchChainMetadata()
	if nil != err {
		return err
	}
	last, err := store.FetchLastHeader()
	if nil != err {
		return err
	}
	reply.LastHeader = last.Height

	reply.Utxos, err = store.UtxoCount()
	if nil != err {
		return err
	}
	reply.Kernels, err = store.KernelCount()
	if nil != err {
		return err
	}
	reply.KernelMmr, err = store.FetchMmrSize(chainstorage.KernelTree)
	if nil != err {
		return err
	}
	reply.UtxoMmr, err = store.FetchMmrSize(chainstorage.UtxoTree)
	if nil != err {
		return err
	}
	reply.Orphans, err = store.OrphanCount()
	if nil != err {
		return err
	}
	reply.HorizonData, err = store.FetchHorizonData()
	if nil != err {
		return err
	}

	return printJson(m.w, reply)
}

type statsReply struct {
	Stats storage.Stats       `json:"stats"`
	Sizes []storage.TableSize `json:"sizes,omitempty"`
}

func runStats(c *cli.Context) error {
	store, m, err := openStore(c, true)
	if nil != err {
		return err
	}
	defer store.Close()

	reply := statsReply{}
	reply.Stats, err = store.GetStats()
	if nil != err {
		return err
	}
	if c.Bool("sizes") {
		reply.Sizes, err = store.FetchTotalSizeStats()
		if nil != err {
			return err
		}
	}
	return printJson(m.w, reply)
}

func runHeader(c *cli.Context) error {
	store, m, err := openStore(c, true)
	if nil != err {
		return err
	}
	defer store.Close()

	if s := c.String("hash"); "" != s {
		var hash blockdigest.Digest
		if err := hash.UnmarshalText([]byte(s)); nil != err {
			return err
		}
		header, err := store.FetchChainHeaderInAllChains(hash)
		if nil != err {
			return err
		}
		return printJson(m.w, header)
	}

	count := c.Uint64("count")
	if 0 == count {
		return fmt.Errorf("count must be positive")
	}
	last, err := store.FetchLastHeader()
	if nil != err {
		return err
	}

	start := c.Uint64("height")
	headers := []*blockrecord.ChainHeader{}
	for height := start; height <= last.Height && height-start < count; height += 1 {
		header, err := store.FetchChainHeaderByHeight(height)
		if nil != err {
			return err
		}
		headers = append(headers, header)
	}
	return printJson(m.w, headers)
}

type orphansReply struct {
	Count int                        `json:"count"`
	Tips  []*blockrecord.ChainHeader `json:"tips"`
}

func runOrphans(c *cli.Context) error {
	store, m, err := openStore(c, true)
	if nil != err {
		return err
	}
	defer store.Close()

	reply := orphansReply{}
	reply.Count, err = store.OrphanCount()
	if nil != err {
		return err
	}
	reply.Tips, err = store.FetchAllOrphanChainTips()
	if nil != err {
		return err
	}
	return printJson(m.w, reply)
}

func runReorgs(c *cli.Context) error {
	store, m, err := openStore(c, true)
	if nil != err {
		return err
	}
	defer store.Close()

	reorgs, err := store.FetchAllReorgs()
	if nil != err {
		return err
	}
	return printJson(m.w, reorgs)
}

type clearReply struct {
	Cleared int `json:"cleared"`
}

func runClearPendingHeaders(c *cli.Context) error {
	store, m, err := openStore(c, false)
	if nil != err {
		return err
	}
	defer store.Close()

	n, err := store.ClearAllPendingHeaders()
	if nil != err {
		return err
	}
	return printJson(m.w, clearReply{Cleared: n})
}
