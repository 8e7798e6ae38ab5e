// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/block"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/genesis"
	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/chainstore/transactionrecord"
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

func testGenesis(t *testing.T) *blockrecord.Block {
	g, err := genesis.New(genesis.TestNet)
	require.Nil(t, err, "genesis")
	return g
}

// no background cleaner unless a test asks for one
func testConfig() block.Config {
	config := block.DefaultConfig()
	config.CleanupInterval = 0
	return config
}

func openStore(t *testing.T, name string) *chainstorage.LevelDBDatabase {
	options := chainstorage.DefaultOptions()
	options.Storage = storage.Options{}

	dir := filepath.Join(testingDirName, t.Name(), name)
	_ = os.RemoveAll(dir)
	store, err := chainstorage.Open(dir, options)
	require.Nil(t, err, "open store: %s", name)
	t.Cleanup(store.Close)
	return store
}

// a chain store with its own coinbase filler so that two nodes mining
// on the same parent produce different blocks
type node struct {
	t      *testing.T
	store  *chainstorage.LevelDBDatabase
	bc     *block.BlockchainDatabase
	salt   byte
	serial byte
}

func newNode(t *testing.T, name string, salt byte, validator block.Validator, config block.Config) *node {
	store := openStore(t, name)
	bc, err := block.New(store, testGenesis(t), validator, config)
	require.Nil(t, err, "new blockchain: %s", name)
	t.Cleanup(bc.Stop)
	return &node{
		t:     t,
		store: store,
		bc:    bc,
		salt:  salt,
	}
}

func (n *node) next() byte {
	n.serial += 1
	return n.serial
}

// coinbase plus one plain kernel for every group of inputs
func (n *node) body(inputs ...*transactionrecord.Input) *transactionrecord.AggregateBody {
	s := n.next()

	output := &transactionrecord.Output{
		Version:  1,
		Features: transactionrecord.OutputFeatures{OutputType: transactionrecord.CoinbaseOutput},
		Script:   []byte{n.salt, s},
	}
	output.Commitment[0] = n.salt
	output.Commitment[1] = s
	output.Commitment[2] = 0xc0

	kernel := &transactionrecord.Kernel{
		Version:  1,
		Features: transactionrecord.CoinbaseKernel,
	}
	kernel.Excess[0] = n.salt
	kernel.Excess[1] = s
	kernel.Excess[2] = 0xe0
	kernel.ExcessSig[0] = n.salt
	kernel.ExcessSig[1] = s
	kernel.ExcessSig[2] = 0x51

	body := &transactionrecord.AggregateBody{
		Inputs:  []*transactionrecord.Input{},
		Outputs: []*transactionrecord.Output{output},
		Kernels: []*transactionrecord.Kernel{kernel},
	}
	if 0 != len(inputs) {
		plain := &transactionrecord.Kernel{
			Version:  1,
			Features: transactionrecord.PlainKernel,
			Fee:      uint64(s),
		}
		plain.Excess[0] = n.salt
		plain.Excess[1] = s
		plain.Excess[2] = 0xe1
		plain.ExcessSig[0] = n.salt
		plain.ExcessSig[1] = s
		plain.ExcessSig[2] = 0x52
		body.Inputs = append(body.Inputs, inputs...)
		body.Kernels = append(body.Kernels, plain)
	}
	return body
}

// the block after the current tip, not yet added
func (n *node) template(inputs ...*transactionrecord.Input) *blockrecord.Block {
	t := n.t

	tip, err := n.bc.FetchTipHeader()
	require.Nil(t, err, "tip header")

	header := &blockrecord.Header{
		Version:   blockrecord.Version,
		Height:    tip.Height() + 1,
		PrevHash:  tip.Hash(),
		Timestamp: tip.Header.Timestamp + 120,
		Nonce:     uint64(n.salt)<<8 | uint64(n.serial),
		Pow:       blockrecord.ProofOfWork{Algorithm: blockrecord.PowSha3},
	}
	b, err := n.bc.PrepareNewBlock(header, n.body(inputs...))
	require.Nil(t, err, "prepare block at: %d", header.Height)
	return b
}

// extend the main chain by one block
func (n *node) mine(inputs ...*transactionrecord.Input) *blockrecord.Block {
	b := n.template(inputs...)
	result, err := n.bc.AddBlock(b)
	require.Nil(n.t, err, "add block at: %d", b.Header.Height)
	require.Equal(n.t, block.Ok, result.Kind, "add block at: %d", b.Header.Height)
	return b
}

// extend the main chain by count blocks
func (n *node) mineN(count int) []*blockrecord.Block {
	blocks := make([]*blockrecord.Block, 0, count)
	for i := 0; i < count; i += 1 {
		blocks = append(blocks, n.mine())
	}
	return blocks
}

func (n *node) tipHash() blockdigest.Digest {
	tip, err := n.bc.FetchTipHeader()
	require.Nil(n.t, err, "tip header")
	return tip.Hash()
}

// a compact input spending output
func spend(output *transactionrecord.Output) *transactionrecord.Input {
	return &transactionrecord.Input{
		Version:    1,
		OutputHash: output.Hash(),
	}
}

func TestNewInsertsGenesis(t *testing.T) {
	n := newNode(t, "a", 1, nil, testConfig())

	g := testGenesis(t)
	assert.Equal(t, g.Hash(), n.tipHash(), "tip is not genesis")

	metadata, err := n.bc.FetchChainMetadata()
	require.Nil(t, err, "metadata")
	assert.Equal(t, uint64(0), metadata.HeightOfLongestChain, "height")
	assert.Equal(t, g.Hash(), metadata.BestBlock, "best block")
	assert.Equal(t, int64(1), metadata.AccumulatedDifficulty.Int64(), "accumulated difficulty")

	count, err := n.bc.UtxoCount()
	require.Nil(t, err, "utxo count")
	assert.Equal(t, 1, count, "genesis outputs")
}

func TestNewChecksStoredGenesis(t *testing.T) {
	store := openStore(t, "a")

	bc, err := block.New(store, testGenesis(t), nil, testConfig())
	require.Nil(t, err, "first open")
	bc.Stop()

	// same genesis again is fine
	bc, err = block.New(store, testGenesis(t), nil, testConfig())
	require.Nil(t, err, "second open")
	bc.Stop()

	// nil genesis trusts the store
	bc, err = block.New(store, nil, nil, testConfig())
	require.Nil(t, err, "open without genesis")
	bc.Stop()

	other, err := genesis.New(genesis.LocalNet)
	require.Nil(t, err, "other genesis")
	_, err = block.New(store, other, nil, testConfig())
	assert.True(t, fault.IsErrInvalid(err), "unexpected error: %v", err)
}

func TestNewEmptyStoreNeedsGenesis(t *testing.T) {
	store := openStore(t, "a")
	_, err := block.New(store, nil, nil, testConfig())
	assert.Equal(t, fault.ErrNoGenesisBlock, err, "wrong error")
}

func TestNewRecordsPruningHorizon(t *testing.T) {
	config := testConfig()
	config.PruningHorizon = 25
	n := newNode(t, "a", 1, nil, config)

	metadata, err := n.bc.FetchChainMetadata()
	require.Nil(t, err, "metadata")
	assert.Equal(t, uint64(25), metadata.PruningHorizon, "pruning horizon")
}

func TestAddBlockDisabled(t *testing.T) {
	n := newNode(t, "a", 1, nil, testConfig())
	b := n.template()

	n.bc.DisableAddBlock()
	assert.True(t, n.bc.IsAddBlockDisabled(), "not disabled")
	_, err := n.bc.AddBlock(b)
	assert.Equal(t, fault.ErrAddBlockDisabled, err, "wrong error")

	n.bc.EnableAddBlock()
	assert.False(t, n.bc.IsAddBlockDisabled(), "still disabled")
	result, err := n.bc.AddBlock(b)
	require.Nil(t, err, "add after enable")
	assert.Equal(t, block.Ok, result.Kind, "result")
}

func TestSetOrphanLimits(t *testing.T) {
	n := newNode(t, "a", 1, nil, testConfig())

	n.bc.SetOrphanLimits(5, 10)
	config := n.bc.Config()
	assert.Equal(t, 5, config.OrphanStorageCapacity, "capacity")
	assert.Equal(t, 10, config.OrphanCleanOutThreshold, "threshold")
}
