// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/bitmark-inc/chainstore/accumulator"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

// WriteOperation - one step of a DbTransaction
type WriteOperation interface {
	fmt.Stringer
	apply(db *LevelDBDatabase, w *storage.WriteTxn) error
}

// DbTransaction - an ordered list of write operations applied all or
// nothing by Backend.Write
type DbTransaction struct {
	operations []WriteOperation
}

// NewDbTransaction - an empty transaction
func NewDbTransaction() *DbTransaction {
	return &DbTransaction{
		operations: make([]WriteOperation, 0, 8),
	}
}

// IsEmpty - no operations
func (txn *DbTransaction) IsEmpty() bool {
	return 0 == len(txn.operations)
}

// Len - number of operations
func (txn *DbTransaction) Len() int {
	return len(txn.operations)
}

// Operations - the operations in order
func (txn *DbTransaction) Operations() []WriteOperation {
	return txn.operations
}

// String - list of operations
func (txn *DbTransaction) String() string {
	names := make([]string, len(txn.operations))
	for i, op := range txn.operations {
		names[i] = op.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func (txn *DbTransaction) add(op WriteOperation) *DbTransaction {
	txn.operations = append(txn.operations, op)
	return txn
}

type insertOrphanBlock struct {
	block *blockrecord.Block
}

func (op *insertOrphanBlock) String() string {
	return fmt.Sprintf("InsertOrphanBlock(%s)", op.block.Hash())
}

// InsertOrphanBlock - store a block outside the main chain
func (txn *DbTransaction) InsertOrphanBlock(block *blockrecord.Block) *DbTransaction {
	return txn.add(&insertOrphanBlock{block: block})
}

type insertChainHeader struct {
	header *blockrecord.ChainHeader
}

func (op *insertChainHeader) String() string {
	return fmt.Sprintf("InsertChainHeader(#%d %s)", op.header.Height(), op.header.Hash())
}

// InsertChainHeader - add the next main chain header
func (txn *DbTransaction) InsertChainHeader(header *blockrecord.ChainHeader) *DbTransaction {
	return txn.add(&insertChainHeader{header: header})
}

type insertBlockBody struct {
	block *blockrecord.ChainBlock
}

func (op *insertBlockBody) String() string {
	return fmt.Sprintf("InsertBlockBody(#%d %s)", op.block.Height(), op.block.Hash())
}

// InsertBlockBody - add the body of a block whose header is stored
func (txn *DbTransaction) InsertBlockBody(block *blockrecord.ChainBlock) *DbTransaction {
	return txn.add(&insertBlockBody{block: block})
}

// InsertTipBlockBody - header and body of the next block
func (txn *DbTransaction) InsertTipBlockBody(block *blockrecord.ChainBlock) *DbTransaction {
	return txn.InsertChainHeader(block.ToChainHeader()).InsertBlockBody(block)
}

type insertKernel struct {
	headerHash  blockdigest.Digest
	kernel      *transactionrecord.Kernel
	mmrPosition uint32
}

func (op *insertKernel) String() string {
	return fmt.Sprintf("InsertKernel(%s @%d)", op.headerHash, op.mmrPosition)
}

// InsertKernel - add a kernel row and its indexes
func (txn *DbTransaction) InsertKernel(headerHash blockdigest.Digest, kernel *transactionrecord.Kernel, mmrPosition uint32) *DbTransaction {
	return txn.add(&insertKernel{headerHash: headerHash, kernel: kernel, mmrPosition: mmrPosition})
}

type insertOutput struct {
	headerHash   blockdigest.Digest
	headerHeight uint64
	timestamp    uint64
	output       *transactionrecord.Output
	mmrPosition  uint32
}

func (op *insertOutput) String() string {
	return fmt.Sprintf("InsertOutput(%s @%d)", op.headerHash, op.mmrPosition)
}

// InsertOutput - add an unspent output row and its indexes
func (txn *DbTransaction) InsertOutput(headerHash blockdigest.Digest, headerHeight uint64, timestamp uint64, output *transactionrecord.Output, mmrPosition uint32) *DbTransaction {
	return txn.add(&insertOutput{
		headerHash:   headerHash,
		headerHeight: headerHeight,
		timestamp:    timestamp,
		output:       output,
		mmrPosition:  mmrPosition,
	})
}

type insertPrunedOutput struct {
	headerHash   blockdigest.Digest
	headerHeight uint64
	timestamp    uint64
	outputHash   blockdigest.Digest
	witnessHash  blockdigest.Digest
	mmrPosition  uint32
}

func (op *insertPrunedOutput) String() string {
	return fmt.Sprintf("InsertPrunedOutput(%s @%d)", op.headerHash, op.mmrPosition)
}

// InsertPrunedOutput - add an output row holding only hashes
func (txn *DbTransaction) InsertPrunedOutput(headerHash blockdigest.Digest, headerHeight uint64, timestamp uint64, outputHash blockdigest.Digest, witnessHash blockdigest.Digest, mmrPosition uint32) *DbTransaction {
	return txn.add(&insertPrunedOutput{
		headerHash:   headerHash,
		headerHeight: headerHeight,
		timestamp:    timestamp,
		outputHash:   outputHash,
		witnessHash:  witnessHash,
		mmrPosition:  mmrPosition,
	})
}

type deleteHeader struct {
	height uint64
}

func (op *deleteHeader) String() string {
	return fmt.Sprintf("DeleteHeader(#%d)", op.height)
}

// DeleteHeader - remove the last header, its body must already be gone
func (txn *DbTransaction) DeleteHeader(height uint64) *DbTransaction {
	return txn.add(&deleteHeader{height: height})
}

type deleteOrphan struct {
	hash blockdigest.Digest
}

func (op *deleteOrphan) String() string {
	return fmt.Sprintf("DeleteOrphan(%s)", op.hash)
}

// DeleteOrphan - remove an orphan, absent orphans are ignored
func (txn *DbTransaction) DeleteOrphan(hash blockdigest.Digest) *DbTransaction {
	return txn.add(&deleteOrphan{hash: hash})
}

type deleteOrphanChainTip struct {
	hash blockdigest.Digest
}

func (op *deleteOrphanChainTip) String() string {
	return fmt.Sprintf("DeleteOrphanChainTip(%s)", op.hash)
}

// DeleteOrphanChainTip - forget an orphan chain tip
func (txn *DbTransaction) DeleteOrphanChainTip(hash blockdigest.Digest) *DbTransaction {
	return txn.add(&deleteOrphanChainTip{hash: hash})
}

type insertOrphanChainTip struct {
	hash blockdigest.Digest
}

func (op *insertOrphanChainTip) String() string {
	return fmt.Sprintf("InsertOrphanChainTip(%s)", op.hash)
}

// InsertOrphanChainTip - mark an orphan as the tip of an orphan chain
func (txn *DbTransaction) InsertOrphanChainTip(hash blockdigest.Digest) *DbTransaction {
	return txn.add(&insertOrphanChainTip{hash: hash})
}

type deleteBlock struct {
	hash blockdigest.Digest
}

func (op *deleteBlock) String() string {
	return fmt.Sprintf("DeleteBlock(%s)", op.hash)
}

// DeleteBlock - remove a main chain block body, the header stays
func (txn *DbTransaction) DeleteBlock(hash blockdigest.Digest) *DbTransaction {
	return txn.add(&deleteBlock{hash: hash})
}

// DeleteTipBlock - remove the tip block body and then its header
func (txn *DbTransaction) DeleteTipBlock(hash blockdigest.Digest, height uint64) *DbTransaction {
	return txn.DeleteBlock(hash).DeleteHeader(height)
}

type insertMoneroSeedHeight struct {
	seed   []byte
	height uint64
}

func (op *insertMoneroSeedHeight) String() string {
	return fmt.Sprintf("InsertMoneroSeedHeight(%x, %d)", op.seed, op.height)
}

// InsertMoneroSeedHeight - record the first height a seed was seen
func (txn *DbTransaction) InsertMoneroSeedHeight(seed []byte, height uint64) *DbTransaction {
	return txn.add(&insertMoneroSeedHeight{seed: seed, height: height})
}

type setAccumulatedDataForOrphan struct {
	header *blockrecord.ChainHeader
}

func (op *setAccumulatedDataForOrphan) String() string {
	return fmt.Sprintf("SetAccumulatedDataForOrphan(%s)", op.header.Hash())
}

// SetAccumulatedDataForOrphan - attach accumulated data to a stored orphan
func (txn *DbTransaction) SetAccumulatedDataForOrphan(header *blockrecord.ChainHeader) *DbTransaction {
	return txn.add(&setAccumulatedDataForOrphan{header: header})
}

type insertChainOrphanBlock struct {
	block *blockrecord.ChainBlock
}

func (op *insertChainOrphanBlock) String() string {
	return fmt.Sprintf("InsertChainOrphanBlock(%s)", op.block.Hash())
}

// InsertChainOrphanBlock - store an orphan with its accumulated data
func (txn *DbTransaction) InsertChainOrphanBlock(block *blockrecord.ChainBlock) *DbTransaction {
	return txn.add(&insertChainOrphanBlock{block: block})
}

// UpdateBlockAccumulatedData - replacement fields, nil fields are kept
type UpdateBlockAccumulatedData struct {
	Kernels     *accumulator.PrunedHashSet
	Outputs     *accumulator.PrunedHashSet
	Witness     *accumulator.PrunedHashSet
	DeletedDiff *roaring.Bitmap
	KernelSum   *transactionrecord.Commitment
}

type updateBlockAccumulatedData struct {
	hash   blockdigest.Digest
	values UpdateBlockAccumulatedData
}

func (op *updateBlockAccumulatedData) String() string {
	return fmt.Sprintf("UpdateBlockAccumulatedData(%s)", op.hash)
}

// UpdateBlockAccumulatedData - overwrite fields of a block's accumulated data
func (txn *DbTransaction) UpdateBlockAccumulatedData(hash blockdigest.Digest, values UpdateBlockAccumulatedData) *DbTransaction {
	return txn.add(&updateBlockAccumulatedData{hash: hash, values: values})
}

type updateDeletedBitmap struct {
	deleted *roaring.Bitmap
}

func (op *updateDeletedBitmap) String() string {
	return fmt.Sprintf("UpdateDeletedBitmap(%d positions)", op.deleted.GetCardinality())
}

// UpdateDeletedBitmap - merge positions into the chain deleted bitmap
func (txn *DbTransaction) UpdateDeletedBitmap(deleted *roaring.Bitmap) *DbTransaction {
	return txn.add(&updateDeletedBitmap{deleted: deleted})
}

type pruneOutputsAtMmrPositions struct {
	positions []uint32
}

func (op *pruneOutputsAtMmrPositions) String() string {
	return fmt.Sprintf("PruneOutputsAtMmrPositions(%d positions)", len(op.positions))
}

// PruneOutputsAtMmrPositions - discard the data of spent outputs
func (txn *DbTransaction) PruneOutputsAtMmrPositions(positions []uint32) *DbTransaction {
	return txn.add(&pruneOutputsAtMmrPositions{positions: positions})
}

type deleteAllInputsInBlock struct {
	hash blockdigest.Digest
}

func (op *deleteAllInputsInBlock) String() string {
	return fmt.Sprintf("DeleteAllInputsInBlock(%s)", op.hash)
}

// DeleteAllInputsInBlock - drop the input rows of a block
func (txn *DbTransaction) DeleteAllInputsInBlock(hash blockdigest.Digest) *DbTransaction {
	return txn.add(&deleteAllInputsInBlock{hash: hash})
}

type setBestBlock struct {
	height                uint64
	hash                  blockdigest.Digest
	accumulatedDifficulty *big.Int
	expectedPrevBestBlock blockdigest.Digest
	timestamp             uint64
}

func (op *setBestBlock) String() string {
	return fmt.Sprintf("SetBestBlock(#%d %s)", op.height, op.hash)
}

// SetBestBlock - move the chain tip
//
// above genesis the stored best block must be expectedPrev
func (txn *DbTransaction) SetBestBlock(height uint64, hash blockdigest.Digest, accumulatedDifficulty *big.Int, expectedPrev blockdigest.Digest, timestamp uint64) *DbTransaction {
	return txn.add(&setBestBlock{
		height:                height,
		hash:                  hash,
		accumulatedDifficulty: accumulatedDifficulty,
		expectedPrevBestBlock: expectedPrev,
		timestamp:             timestamp,
	})
}

type setPruningHorizonConfig struct {
	horizon uint64
}

func (op *setPruningHorizonConfig) String() string {
	return fmt.Sprintf("SetPruningHorizonConfig(%d)", op.horizon)
}

// SetPruningHorizonConfig - blocks kept unpruned below the tip
func (txn *DbTransaction) SetPruningHorizonConfig(horizon uint64) *DbTransaction {
	return txn.add(&setPruningHorizonConfig{horizon: horizon})
}

type setPrunedHeight struct {
	height uint64
}

func (op *setPrunedHeight) String() string {
	return fmt.Sprintf("SetPrunedHeight(%d)", op.height)
}

// SetPrunedHeight - height up to which outputs have been pruned
func (txn *DbTransaction) SetPrunedHeight(height uint64) *DbTransaction {
	return txn.add(&setPrunedHeight{height: height})
}

type setHorizonData struct {
	data *blockrecord.HorizonData
}

func (op *setHorizonData) String() string {
	return "SetHorizonData"
}

// SetHorizonData - sums at the pruning horizon
func (txn *DbTransaction) SetHorizonData(data *blockrecord.HorizonData) *DbTransaction {
	return txn.add(&setHorizonData{data: data})
}

type insertBadBlock struct {
	hash   blockdigest.Digest
	height uint64
}

func (op *insertBadBlock) String() string {
	return fmt.Sprintf("InsertBadBlock(#%d %s)", op.height, op.hash)
}

// InsertBadBlock - remember a block that failed validation
func (txn *DbTransaction) InsertBadBlock(hash blockdigest.Digest, height uint64) *DbTransaction {
	return txn.add(&insertBadBlock{hash: hash, height: height})
}

type insertReorg struct {
	reorg *blockrecord.Reorg
}

func (op *insertReorg) String() string {
	return fmt.Sprintf("InsertReorg(%d -> %d)", op.reorg.FromHeight, op.reorg.ToHeight)
}

// InsertReorg - log a reorganisation
func (txn *DbTransaction) InsertReorg(reorg *blockrecord.Reorg) *DbTransaction {
	return txn.add(&insertReorg{reorg: reorg})
}

type clearAllReorgs struct{}

func (op *clearAllReorgs) String() string {
	return "ClearAllReorgs"
}

// ClearAllReorgs - empty the reorganisation log
func (txn *DbTransaction) ClearAllReorgs() *DbTransaction {
	return txn.add(&clearAllReorgs{})
}
