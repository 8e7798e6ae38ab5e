// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/compositekey"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

// reader level helpers, usable inside a write transaction

func (db *LevelDBDatabase) fetchHeaderAt(r storage.Reader, height uint64) (*blockrecord.Header, bool, error) {
	value, found, err := db.tables.Headers.Get(r, beUint64(height))
	if nil != err || !found {
		return nil, false, err
	}
	header, err := blockrecord.HeaderFromBytes(value)
	if nil != err {
		return nil, false, err
	}
	return header, true, nil
}

func (db *LevelDBDatabase) fetchLastHeaderIn(r storage.Reader) (*blockrecord.Header, bool, error) {
	element, found, err := db.tables.Headers.Last(r)
	if nil != err || !found {
		return nil, false, err
	}
	header, err := blockrecord.HeaderFromBytes(element.Value)
	if nil != err {
		return nil, false, err
	}
	return header, true, nil
}

func (db *LevelDBDatabase) fetchHeightFromHash(r storage.Reader, hash blockdigest.Digest) (uint64, bool, error) {
	value, found, err := db.tables.BlockHashes.Get(r, hash[:])
	if nil != err || !found {
		return 0, false, err
	}
	height, err := fromBeUint64(value)
	if nil != err {
		return 0, false, err
	}
	return height, true, nil
}

func (db *LevelDBDatabase) fetchHeaderAccumulatedDataAt(r storage.Reader, height uint64) (*blockrecord.HeaderAccumulatedData, bool, error) {
	value, found, err := db.tables.HeaderAccumulatedData.Get(r, beUint64(height))
	if nil != err || !found {
		return nil, false, err
	}
	data, err := blockrecord.HeaderAccumulatedDataFromBytes(value)
	if nil != err {
		return nil, false, err
	}
	return data, true, nil
}

func (db *LevelDBDatabase) fetchBlockAccumulatedDataAt(r storage.Reader, height uint64) (*blockrecord.BlockAccumulatedData, bool, error) {
	value, found, err := db.tables.BlockAccumulatedData.Get(r, beUint64(height))
	if nil != err || !found {
		return nil, false, err
	}
	data, err := blockrecord.BlockAccumulatedDataFromBytes(value)
	if nil != err {
		return nil, false, err
	}
	return data, true, nil
}

// header and accumulated data at height, both must exist
func (db *LevelDBDatabase) fetchChainHeaderAt(r storage.Reader, height uint64) (*blockrecord.ChainHeader, error) {
	header, found, err := db.fetchHeaderAt(r, height)
	if nil != err {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(fault.ErrHeaderNotFound, "height: %d", height)
	}
	accumulated, found, err := db.fetchHeaderAccumulatedDataAt(r, height)
	if nil != err {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(fault.ErrAccumulatedDataNotFound, "header at height: %d", height)
	}
	chainHeader, err := blockrecord.NewChainHeader(header, accumulated)
	if nil != err {
		db.log.Criticalf("accumulated data mismatch at height: %d", height)
		return nil, errors.Wrapf(fault.ErrDataInconsistency, "height: %d: %s", height, err)
	}
	return chainHeader, nil
}

func (db *LevelDBDatabase) fetchTxoPosition(r storage.Reader, outputHash blockdigest.Digest) (uint32, bool, error) {
	value, found, err := db.tables.TxosHashToIndex.Get(r, outputHash[:])
	if nil != err || !found {
		return 0, false, err
	}
	index, err := unpackTxoIndex(value)
	if nil != err {
		return 0, false, err
	}
	return index.mmrPosition, true, nil
}

func (db *LevelDBDatabase) fetchOutputIn(r storage.Reader, outputHash blockdigest.Digest) (*UtxoMinedInfo, bool, error) {
	value, found, err := db.tables.TxosHashToIndex.Get(r, outputHash[:])
	if nil != err || !found {
		return nil, false, err
	}
	index, err := unpackTxoIndex(value)
	if nil != err {
		return nil, false, err
	}
	row, found, err := db.tables.Utxos.Get(r, index.key)
	if nil != err || !found {
		return nil, false, err
	}
	info, err := unpackUtxoMinedInfo(row)
	if nil != err {
		return nil, false, err
	}
	return info, true, nil
}

func (db *LevelDBDatabase) fetchKernelAt(r storage.Reader, index *storage.Table, key []byte) (*transactionrecord.Kernel, blockdigest.Digest, bool, error) {
	value, found, err := index.Get(r, key)
	if nil != err || !found {
		return nil, blockdigest.Digest{}, false, err
	}
	location, err := unpackKernelLocation(value)
	if nil != err {
		return nil, blockdigest.Digest{}, false, err
	}
	kernelKey, err := compositekey.KernelKey(location.headerHash[:], location.mmrPosition, location.hash[:])
	if nil != err {
		return nil, blockdigest.Digest{}, false, err
	}
	value, found, err = db.tables.Kernels.Get(r, kernelKey)
	if nil != err || !found {
		return nil, blockdigest.Digest{}, false, err
	}
	row, err := unpackKernelRow(value)
	if nil != err {
		return nil, blockdigest.Digest{}, false, err
	}
	return row.kernel, location.headerHash, true, nil
}

// Fetch - a header or orphan block, nil if absent
func (db *LevelDBDatabase) Fetch(key DbKey) (*DbValue, error) {
	var result *DbValue
	err := db.read(func(r storage.Reader) error {
		switch key.Kind {
		case BlockHeaderKind:
			header, found, err := db.fetchHeaderAt(r, key.Height)
			if nil != err || !found {
				return err
			}
			result = &DbValue{Header: header}

		case BlockHashKind:
			height, found, err := db.fetchHeightFromHash(r, key.Hash)
			if nil != err || !found {
				return err
			}
			header, found, err := db.fetchHeaderAt(r, height)
			if nil != err || !found {
				return err
			}
			result = &DbValue{Header: header}

		case OrphanBlockKind:
			block, found, err := db.fetchOrphanIn(r, key.Hash)
			if nil != err || !found {
				return err
			}
			result = &DbValue{OrphanBlock: block}

		default:
			return fault.ErrInvalidArguments
		}
		return nil
	})
	return result, err
}

// Contains - true if Fetch would find a value
func (db *LevelDBDatabase) Contains(key DbKey) (bool, error) {
	var found bool
	err := db.read(func(r storage.Reader) error {
		var err error
		switch key.Kind {
		case BlockHeaderKind:
			found, err = db.tables.Headers.Has(r, beUint64(key.Height))
		case BlockHashKind:
			found, err = db.tables.BlockHashes.Has(r, key.Hash[:])
		case OrphanBlockKind:
			found, err = db.tables.Orphans.Has(r, key.Hash[:])
		default:
			err = fault.ErrInvalidArguments
		}
		return err
	})
	return found, err
}

// FetchChainHeaderByHeight - main chain header with accumulated data
func (db *LevelDBDatabase) FetchChainHeaderByHeight(height uint64) (*blockrecord.ChainHeader, error) {
	header, generation, ok := db.headers.get(height)
	if ok {
		return header, nil
	}

	var chainHeader *blockrecord.ChainHeader
	err := db.read(func(r storage.Reader) error {
		var err error
		chainHeader, err = db.fetchChainHeaderAt(r, height)
		return err
	})
	if nil != err {
		return nil, err
	}
	db.headers.add(chainHeader, generation)
	return chainHeader, nil
}

// FetchHeaderAccumulatedData - accumulated data of a main chain header
func (db *LevelDBDatabase) FetchHeaderAccumulatedData(hash blockdigest.Digest) (*blockrecord.HeaderAccumulatedData, bool, error) {
	var data *blockrecord.HeaderAccumulatedData
	var found bool
	err := db.read(func(r storage.Reader) error {
		height, ok, err := db.fetchHeightFromHash(r, hash)
		if nil != err || !ok {
			return err
		}
		data, found, err = db.fetchHeaderAccumulatedDataAt(r, height)
		return err
	})
	return data, found, err
}

// FetchChainHeaderInAllChains - a header from the main chain or the
// orphan pool
func (db *LevelDBDatabase) FetchChainHeaderInAllChains(hash blockdigest.Digest) (*blockrecord.ChainHeader, error) {
	var chainHeader *blockrecord.ChainHeader
	err := db.read(func(r storage.Reader) error {
		height, found, err := db.fetchHeightFromHash(r, hash)
		if nil != err {
			return err
		}
		if found {
			chainHeader, err = db.fetchChainHeaderAt(r, height)
			return err
		}

		chainHeader, found, err = db.fetchOrphanChainHeaderIn(r, hash)
		if nil != err {
			return err
		}
		if !found {
			return errors.Wrapf(fault.ErrHeaderNotFound, "hash: %s in any chain", hash)
		}
		return nil
	})
	return chainHeader, err
}

// the header whose range of leaves includes position
func (db *LevelDBDatabase) fetchHeaderContaining(index *storage.Table, position uint64) (*blockrecord.ChainHeader, error) {
	var chainHeader *blockrecord.ChainHeader
	err := db.read(func(r storage.Reader) error {
		element, found, err := index.FirstAfter(r, beUint64(position+1))
		if nil != err {
			return err
		}
		if !found {
			return errors.Wrapf(fault.ErrHeaderNotFound, "%s position: %d", index.Name(), position)
		}
		if len(element.Value) < 8 {
			return fault.ErrTruncatedRecord
		}
		height, err := fromBeUint64(element.Value[:8])
		if nil != err {
			return err
		}
		chainHeader, err = db.fetchChainHeaderAt(r, height)
		return err
	})
	return chainHeader, err
}

// FetchHeaderContainingKernelMmr - header of the block that added the
// kernel leaf at position
func (db *LevelDBDatabase) FetchHeaderContainingKernelMmr(position uint64) (*blockrecord.ChainHeader, error) {
	return db.fetchHeaderContaining(db.tables.KernelMmrSizeIndex, position)
}

// FetchHeaderContainingUtxoMmr - header of the block that added the
// output leaf at position
func (db *LevelDBDatabase) FetchHeaderContainingUtxoMmr(position uint64) (*blockrecord.ChainHeader, error) {
	return db.fetchHeaderContaining(db.tables.OutputMmrSizeIndex, position)
}

// IsEmpty - no headers stored
func (db *LevelDBDatabase) IsEmpty() (bool, error) {
	empty := true
	err := db.read(func(r storage.Reader) error {
		_, found, err := db.tables.Headers.Last(r)
		empty = !found
		return err
	})
	return empty, err
}

// FetchBlockAccumulatedData - accumulated data of a main chain block
func (db *LevelDBDatabase) FetchBlockAccumulatedData(hash blockdigest.Digest) (*blockrecord.BlockAccumulatedData, bool, error) {
	var data *blockrecord.BlockAccumulatedData
	var found bool
	err := db.read(func(r storage.Reader) error {
		height, ok, err := db.fetchHeightFromHash(r, hash)
		if nil != err || !ok {
			return err
		}
		data, found, err = db.fetchBlockAccumulatedDataAt(r, height)
		return err
	})
	return data, found, err
}

// FetchBlockAccumulatedDataByHeight - accumulated data at height
func (db *LevelDBDatabase) FetchBlockAccumulatedDataByHeight(height uint64) (*blockrecord.BlockAccumulatedData, bool, error) {
	var data *blockrecord.BlockAccumulatedData
	var found bool
	err := db.read(func(r storage.Reader) error {
		var err error
		data, found, err = db.fetchBlockAccumulatedDataAt(r, height)
		return err
	})
	return data, found, err
}

// FetchKernelsInBlock - kernels in leaf order
func (db *LevelDBDatabase) FetchKernelsInBlock(hash blockdigest.Digest) ([]*transactionrecord.Kernel, error) {
	kernels := []*transactionrecord.Kernel{}
	err := db.read(func(r storage.Reader) error {
		elements, err := db.tables.Kernels.FetchWithPrefix(r, hash[:])
		if nil != err {
			return err
		}
		for _, e := range elements {
			row, err := unpackKernelRow(e.Value)
			if nil != err {
				return err
			}
			kernels = append(kernels, row.kernel)
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	return kernels, nil
}

// FetchKernelByExcess - kernel and the hash of its block
func (db *LevelDBDatabase) FetchKernelByExcess(excess transactionrecord.Commitment) (*transactionrecord.Kernel, blockdigest.Digest, bool, error) {
	var kernel *transactionrecord.Kernel
	var hash blockdigest.Digest
	var found bool
	err := db.read(func(r storage.Reader) error {
		var err error
		kernel, hash, found, err = db.fetchKernelAt(r, db.tables.KernelExcessIndex, excess[:])
		return err
	})
	return kernel, hash, found, err
}

// FetchKernelByExcessSig - kernel and the hash of its block
func (db *LevelDBDatabase) FetchKernelByExcessSig(sig transactionrecord.Signature) (*transactionrecord.Kernel, blockdigest.Digest, bool, error) {
	var kernel *transactionrecord.Kernel
	var hash blockdigest.Digest
	var found bool
	err := db.read(func(r storage.Reader) error {
		var err error
		kernel, hash, found, err = db.fetchKernelAt(r, db.tables.KernelExcessSigIndex, sig[:])
		return err
	})
	return kernel, hash, found, err
}

// FetchUtxosInBlock - outputs of a block, those in deleted reported as
// pruned, and the positions the block itself spent
func (db *LevelDBDatabase) FetchUtxosInBlock(hash blockdigest.Digest, deleted *roaring.Bitmap) ([]PrunedOutput, *roaring.Bitmap, error) {
	outputs := []PrunedOutput{}
	var spent *roaring.Bitmap
	err := db.read(func(r storage.Reader) error {
		elements, err := db.tables.Utxos.FetchWithPrefix(r, hash[:])
		if nil != err {
			return err
		}
		for _, e := range elements {
			info, err := unpackUtxoMinedInfo(e.Value)
			if nil != err {
				return err
			}
			output := info.Output
			if nil != deleted && deleted.Contains(info.MmrPosition) {
				output.Output = nil
			}
			outputs = append(outputs, output)
		}

		height, found, err := db.fetchHeightFromHash(r, hash)
		if nil != err {
			return err
		}
		if !found {
			return errors.Wrapf(fault.ErrHeaderNotFound, "hash: %s", hash)
		}
		data, found, err := db.fetchBlockAccumulatedDataAt(r, height)
		if nil != err {
			return err
		}
		if !found {
			return errors.Wrapf(fault.ErrAccumulatedDataNotFound, "height: %d", height)
		}
		spent = data.Deleted.Clone()
		return nil
	})
	if nil != err {
		return nil, nil, err
	}
	return outputs, spent, nil
}

// FetchOutput - an output by hash, spent or not
func (db *LevelDBDatabase) FetchOutput(outputHash blockdigest.Digest) (*UtxoMinedInfo, bool, error) {
	var info *UtxoMinedInfo
	var found bool
	err := db.read(func(r storage.Reader) error {
		var err error
		info, found, err = db.fetchOutputIn(r, outputHash)
		return err
	})
	return info, found, err
}

// FetchUnspentOutputHashByCommitment - hash of the unspent output with
// commitment
func (db *LevelDBDatabase) FetchUnspentOutputHashByCommitment(commitment transactionrecord.Commitment) (blockdigest.Digest, bool, error) {
	var hash blockdigest.Digest
	var found bool
	err := db.read(func(r storage.Reader) error {
		value, ok, err := db.tables.UtxoCommitmentIndex.Get(r, commitment[:])
		if nil != err || !ok {
			return err
		}
		hash, err = digestFrom(value)
		found = nil == err
		return err
	})
	return hash, found, err
}

// FetchOutputsInBlock - outputs of a block in leaf order
func (db *LevelDBDatabase) FetchOutputsInBlock(hash blockdigest.Digest) ([]PrunedOutput, error) {
	outputs := []PrunedOutput{}
	err := db.read(func(r storage.Reader) error {
		elements, err := db.tables.Utxos.FetchWithPrefix(r, hash[:])
		if nil != err {
			return err
		}
		for _, e := range elements {
			info, err := unpackUtxoMinedInfo(e.Value)
			if nil != err {
				return err
			}
			outputs = append(outputs, info.Output)
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	return outputs, nil
}

// FetchInputsInBlock - compact inputs of a block
func (db *LevelDBDatabase) FetchInputsInBlock(hash blockdigest.Digest) ([]*transactionrecord.Input, error) {
	inputs := []*transactionrecord.Input{}
	err := db.read(func(r storage.Reader) error {
		elements, err := db.tables.Inputs.FetchWithPrefix(r, hash[:])
		if nil != err {
			return err
		}
		for _, e := range elements {
			info, err := unpackInputMinedInfo(e.Value)
			if nil != err {
				return err
			}
			inputs = append(inputs, info.Input)
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	return inputs, nil
}

// FetchMmrSize - number of rows behind a range
func (db *LevelDBDatabase) FetchMmrSize(tree MmrTree) (uint64, error) {
	table := db.tables.Utxos
	if KernelTree == tree {
		table = db.tables.Kernels
	}
	var n int
	err := db.read(func(r storage.Reader) error {
		var err error
		n, err = table.Len(r)
		return err
	})
	return uint64(n), err
}

// FetchMmrLeafIndex - leaf index of an output hash, only the output
// range is indexed
func (db *LevelDBDatabase) FetchMmrLeafIndex(tree MmrTree, hash blockdigest.Digest) (uint32, bool, error) {
	if UtxoTree != tree {
		return 0, false, errors.Wrapf(fault.ErrInvalidArguments, "tree: %d has no leaf index", tree)
	}
	var position uint32
	var found bool
	err := db.read(func(r storage.Reader) error {
		var err error
		position, found, err = db.fetchTxoPosition(r, hash)
		return err
	})
	return position, found, err
}

// UtxoCount - number of unspent outputs
func (db *LevelDBDatabase) UtxoCount() (int, error) {
	return db.count(db.tables.UtxoCommitmentIndex)
}

// KernelCount - number of kernels
func (db *LevelDBDatabase) KernelCount() (int, error) {
	return db.count(db.tables.Kernels)
}

func (db *LevelDBDatabase) count(table *storage.Table) (int, error) {
	var n int
	err := db.read(func(r storage.Reader) error {
		var err error
		n, err = table.Len(r)
		return err
	})
	return n, err
}

// FetchLastHeader - highest stored header, which may be above the tip
func (db *LevelDBDatabase) FetchLastHeader() (*blockrecord.Header, error) {
	var header *blockrecord.Header
	err := db.read(func(r storage.Reader) error {
		h, found, err := db.fetchLastHeaderIn(r)
		if nil != err {
			return err
		}
		if !found {
			return fault.ErrEmptyStore
		}
		header = h
		return nil
	})
	return header, err
}

// FetchLastChainHeader - highest stored header with accumulated data
func (db *LevelDBDatabase) FetchLastChainHeader() (*blockrecord.ChainHeader, error) {
	var chainHeader *blockrecord.ChainHeader
	err := db.read(func(r storage.Reader) error {
		header, found, err := db.fetchLastHeaderIn(r)
		if nil != err {
			return err
		}
		if !found {
			return fault.ErrEmptyStore
		}
		chainHeader, err = db.fetchChainHeaderAt(r, header.Height)
		return err
	})
	return chainHeader, err
}

// FetchTipHeader - header of the best block
func (db *LevelDBDatabase) FetchTipHeader() (*blockrecord.ChainHeader, error) {
	var chainHeader *blockrecord.ChainHeader
	err := db.read(func(r storage.Reader) error {
		height, err := fetchChainHeight(db.tables, r)
		if nil != err {
			return err
		}
		chainHeader, err = db.fetchChainHeaderAt(r, height)
		return err
	})
	return chainHeader, err
}

// FetchChainMetadata - the tip and pruning state
func (db *LevelDBDatabase) FetchChainMetadata() (*blockrecord.ChainMetadata, error) {
	var metadata *blockrecord.ChainMetadata
	err := db.read(func(r storage.Reader) error {
		var err error
		metadata, err = fetchMetadata(db.tables, r)
		return err
	})
	return metadata, err
}

// FetchHorizonData - sums at the pruning horizon, zero if never set
func (db *LevelDBDatabase) FetchHorizonData() (*blockrecord.HorizonData, error) {
	data := &blockrecord.HorizonData{}
	err := db.read(func(r storage.Reader) error {
		stored, found, err := fetchHorizonData(db.tables, r)
		if nil != err {
			return err
		}
		if found {
			data = stored
		}
		return nil
	})
	return data, err
}

// FetchDeletedBitmap - every spent output position
func (db *LevelDBDatabase) FetchDeletedBitmap() (*roaring.Bitmap, error) {
	var bitmap *roaring.Bitmap
	err := db.read(func(r storage.Reader) error {
		var err error
		bitmap, err = fetchDeletedBitmap(db.tables, r)
		return err
	})
	return bitmap, err
}

// FetchHeaderHashByDeletedMmrPositions - where each position was spent,
// nil entries for unspent positions
func (db *LevelDBDatabase) FetchHeaderHashByDeletedMmrPositions(positions []uint32) ([]*DeletedPosition, error) {
	result := make([]*DeletedPosition, len(positions))
	err := db.read(func(r storage.Reader) error {
		for i, position := range positions {
			value, found, err := db.tables.DeletedTxoPositionIndex.Get(r, beUint32(position))
			if nil != err {
				return err
			}
			if !found {
				continue
			}
			h, err := unpackHeightHash(value)
			if nil != err {
				return err
			}
			result[i] = &DeletedPosition{
				Height:     h.height,
				HeaderHash: h.hash,
			}
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	return result, nil
}

// FetchMoneroSeedFirstSeenHeight - zero if the seed was never seen
func (db *LevelDBDatabase) FetchMoneroSeedFirstSeenHeight(seed []byte) (uint64, error) {
	var height uint64
	err := db.read(func(r storage.Reader) error {
		value, found, err := db.tables.MoneroSeedHeight.Get(r, seed)
		if nil != err || !found {
			return err
		}
		height, err = fromBeUint64(value)
		return err
	})
	return height, err
}

// FetchAllReorgs - reorganisation log, oldest first
func (db *LevelDBDatabase) FetchAllReorgs() ([]*blockrecord.Reorg, error) {
	reorgs := []*blockrecord.Reorg{}
	err := db.read(func(r storage.Reader) error {
		return db.tables.Reorgs.Map(r, func(key []byte, value []byte) error {
			reorg, err := blockrecord.ReorgFromBytes(value)
			if nil != err {
				return err
			}
			reorgs = append(reorgs, reorg)
			return nil
		})
	})
	if nil != err {
		return nil, err
	}
	return reorgs, nil
}

// BadBlockExists - the block was recorded as invalid
func (db *LevelDBDatabase) BadBlockExists(hash blockdigest.Digest) (bool, error) {
	return db.has(db.tables.BadBlocks, hash[:])
}

func (db *LevelDBDatabase) has(table *storage.Table, key []byte) (bool, error) {
	var found bool
	err := db.read(func(r storage.Reader) error {
		var err error
		found, err = table.Has(r, key)
		return err
	})
	return found, err
}

// ClearAllPendingHeaders - delete headers above the tip, highest first,
// returning how many went
func (db *LevelDBDatabase) ClearAllPendingHeaders() (int, error) {
	var last *blockrecord.Header
	var tip uint64
	err := db.read(func(r storage.Reader) error {
		header, found, err := db.fetchLastHeaderIn(r)
		if nil != err || !found {
			return err
		}
		last = header
		tip, err = fetchChainHeight(db.tables, r)
		return err
	})
	if nil != err {
		return 0, err
	}
	if nil == last || last.Height <= tip {
		return 0, nil
	}

	txn := NewDbTransaction()
	for height := last.Height; height > tip; height -= 1 {
		txn.DeleteHeader(height)
	}
	err = db.Write(txn)
	if nil != err {
		return 0, err
	}
	db.log.Infof("cleared: %d pending headers above: %d", txn.Len(), tip)
	return txn.Len(), nil
}

// GetStats - entries per table and engine statistics
func (db *LevelDBDatabase) GetStats() (storage.Stats, error) {
	var stats storage.Stats
	err := db.read(func(r storage.Reader) error {
		var err error
		stats, err = db.store.Stats(r)
		return err
	})
	return stats, err
}

// FetchTotalSizeStats - entries and byte totals per table
func (db *LevelDBDatabase) FetchTotalSizeStats() ([]storage.TableSize, error) {
	var sizes []storage.TableSize
	err := db.read(func(r storage.Reader) error {
		var err error
		sizes, err = db.store.TotalSizes(r)
		return err
	})
	return sizes, err
}
