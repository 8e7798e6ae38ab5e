// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

// DbKeyKind - what a DbKey refers to
type DbKeyKind int

// key kinds
const (
	BlockHeaderKind DbKeyKind = iota
	BlockHashKind
	OrphanBlockKind
)

// DbKey - lookup key for Fetch and Contains
type DbKey struct {
	Kind   DbKeyKind
	Height uint64
	Hash   blockdigest.Digest
}

// BlockHeaderKey - main chain header by height
func BlockHeaderKey(height uint64) DbKey {
	return DbKey{Kind: BlockHeaderKind, Height: height}
}

// BlockHashKey - main chain header by hash
func BlockHashKey(hash blockdigest.Digest) DbKey {
	return DbKey{Kind: BlockHashKind, Hash: hash}
}

// OrphanBlockKey - orphan block by hash
func OrphanBlockKey(hash blockdigest.Digest) DbKey {
	return DbKey{Kind: OrphanBlockKind, Hash: hash}
}

// String - for logging
func (key DbKey) String() string {
	switch key.Kind {
	case BlockHeaderKind:
		return fmt.Sprintf("header at height: %d", key.Height)
	case BlockHashKind:
		return fmt.Sprintf("header with hash: %s", key.Hash)
	case OrphanBlockKind:
		return fmt.Sprintf("orphan with hash: %s", key.Hash)
	default:
		return "unknown key"
	}
}

// DbValue - result of Fetch, exactly one field is set
type DbValue struct {
	Header      *blockrecord.Header
	OrphanBlock *blockrecord.Block
}

// MmrTree - one of the three accumulators
type MmrTree int

// trees
const (
	KernelTree MmrTree = iota
	UtxoTree
	WitnessTree
)

// ValidatorNode - an active validator and its shard key
type ValidatorNode struct {
	PublicKey transactionrecord.PublicKey `json:"publicKey"`
	ShardKey  blockdigest.Digest          `json:"shardKey"`
}

// TemplateRegistrationEntry - a code template registration and where
// it was mined
type TemplateRegistrationEntry struct {
	Registration *transactionrecord.TemplateRegistration `json:"registration"`
	OutputHash   blockdigest.Digest                      `json:"outputHash"`
	BlockHeight  uint64                                  `json:"blockHeight"`
	BlockHash    blockdigest.Digest                      `json:"blockHash"`
}

// DeletedPosition - where a spent output position was spent
type DeletedPosition struct {
	Height     uint64             `json:"height"`
	HeaderHash blockdigest.Digest `json:"headerHash"`
}

// Backend - the persistent chain state
//
// fetch methods that return a pointer and a bool report absent values
// with false rather than an error
type Backend interface {
	Write(txn *DbTransaction) error
	Fetch(key DbKey) (*DbValue, error)
	Contains(key DbKey) (bool, error)

	FetchChainHeaderByHeight(height uint64) (*blockrecord.ChainHeader, error)
	FetchHeaderAccumulatedData(hash blockdigest.Digest) (*blockrecord.HeaderAccumulatedData, bool, error)
	FetchChainHeaderInAllChains(hash blockdigest.Digest) (*blockrecord.ChainHeader, error)
	FetchHeaderContainingKernelMmr(position uint64) (*blockrecord.ChainHeader, error)
	FetchHeaderContainingUtxoMmr(position uint64) (*blockrecord.ChainHeader, error)
	IsEmpty() (bool, error)

	FetchBlockAccumulatedData(hash blockdigest.Digest) (*blockrecord.BlockAccumulatedData, bool, error)
	FetchBlockAccumulatedDataByHeight(height uint64) (*blockrecord.BlockAccumulatedData, bool, error)

	FetchKernelsInBlock(hash blockdigest.Digest) ([]*transactionrecord.Kernel, error)
	FetchKernelByExcess(excess transactionrecord.Commitment) (*transactionrecord.Kernel, blockdigest.Digest, bool, error)
	FetchKernelByExcessSig(sig transactionrecord.Signature) (*transactionrecord.Kernel, blockdigest.Digest, bool, error)
	FetchUtxosInBlock(hash blockdigest.Digest, deleted *roaring.Bitmap) ([]PrunedOutput, *roaring.Bitmap, error)
	FetchOutput(outputHash blockdigest.Digest) (*UtxoMinedInfo, bool, error)
	FetchUnspentOutputHashByCommitment(commitment transactionrecord.Commitment) (blockdigest.Digest, bool, error)
	FetchOutputsInBlock(hash blockdigest.Digest) ([]PrunedOutput, error)
	FetchInputsInBlock(hash blockdigest.Digest) ([]*transactionrecord.Input, error)
	FetchMmrSize(tree MmrTree) (uint64, error)
	FetchMmrLeafIndex(tree MmrTree, hash blockdigest.Digest) (uint32, bool, error)
	UtxoCount() (int, error)
	KernelCount() (int, error)

	FetchOrphanChainTip(hash blockdigest.Digest) (*blockrecord.ChainHeader, bool, error)
	FetchAllOrphanChainTips() ([]*blockrecord.ChainHeader, error)
	FetchOrphanChildrenOf(hash blockdigest.Digest) ([]*blockrecord.Block, error)
	FetchOrphanChainBlock(hash blockdigest.Digest) (*blockrecord.ChainBlock, bool, error)
	DeleteOldestOrphans(horizonHeight uint64, capacity int) error
	OrphanCount() (int, error)

	FetchLastHeader() (*blockrecord.Header, error)
	FetchLastChainHeader() (*blockrecord.ChainHeader, error)
	FetchTipHeader() (*blockrecord.ChainHeader, error)
	FetchChainMetadata() (*blockrecord.ChainMetadata, error)
	FetchHorizonData() (*blockrecord.HorizonData, error)
	FetchDeletedBitmap() (*roaring.Bitmap, error)
	FetchHeaderHashByDeletedMmrPositions(positions []uint32) ([]*DeletedPosition, error)
	FetchMoneroSeedFirstSeenHeight(seed []byte) (uint64, error)

	FetchActiveValidatorNodes(height uint64) ([]ValidatorNode, error)
	GetShardKey(height uint64, publicKey transactionrecord.PublicKey) (blockdigest.Digest, bool, error)
	FetchTemplateRegistrations(startHeight uint64, endHeight uint64) ([]*TemplateRegistrationEntry, error)

	FetchAllReorgs() ([]*blockrecord.Reorg, error)
	BadBlockExists(hash blockdigest.Digest) (bool, error)
	ClearAllPendingHeaders() (int, error)

	GetStats() (storage.Stats, error)
	FetchTotalSizeStats() ([]storage.TableSize, error)
	Close()
}
