// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"math/big"

	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/accumulator"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/chainstore/util"
)

// MetadataKey - key of a singleton value in the metadata table
type MetadataKey byte

// metadata keys
const (
	ChainHeightKey        = MetadataKey(0)
	BestBlockKey          = MetadataKey(1)
	AccumulatedWorkKey    = MetadataKey(2)
	PruningHorizonKey     = MetadataKey(3)
	PrunedHeightKey       = MetadataKey(4)
	HorizonDataKey        = MetadataKey(5)
	DeletedBitmapKey      = MetadataKey(6)
	BestBlockTimestampKey = MetadataKey(7)
	MigrationVersionKey   = MetadataKey(8)
)

// String - name of the key
func (key MetadataKey) String() string {
	switch key {
	case ChainHeightKey:
		return "ChainHeight"
	case BestBlockKey:
		return "BestBlock"
	case AccumulatedWorkKey:
		return "AccumulatedWork"
	case PruningHorizonKey:
		return "PruningHorizon"
	case PrunedHeightKey:
		return "PrunedHeight"
	case HorizonDataKey:
		return "HorizonData"
	case DeletedBitmapKey:
		return "DeletedBitmap"
	case BestBlockTimestampKey:
		return "BestBlockTimestamp"
	case MigrationVersionKey:
		return "MigrationVersion"
	default:
		return "Unknown"
	}
}

func (key MetadataKey) bytes() []byte {
	return []byte{byte(key)}
}

func getMetadata(tables *storage.Tables, r storage.Reader, key MetadataKey) ([]byte, bool, error) {
	return tables.Metadata.Get(r, key.bytes())
}

func setMetadata(tables *storage.Tables, w *storage.WriteTxn, key MetadataKey, value []byte) {
	tables.Metadata.Replace(w, key.bytes(), value)
}

// a Varint64 metadata value, def if absent
func getMetadataUint64(tables *storage.Tables, r storage.Reader, key MetadataKey, def uint64) (uint64, bool, error) {
	value, found, err := getMetadata(tables, r, key)
	if nil != err || !found {
		return def, false, err
	}
	n, count := util.FromVarint64(value)
	if 0 == count || count != len(value) {
		return 0, false, errors.Wrapf(fault.ErrTruncatedRecord, "metadata: %s", key)
	}
	return n, true, nil
}

func setMetadataUint64(tables *storage.Tables, w *storage.WriteTxn, key MetadataKey, value uint64) {
	setMetadata(tables, w, key, util.ToVarint64(value))
}

// values that have no default fail with fault.ErrMetadataNotFound
func requireMetadata(found bool, err error, key MetadataKey) error {
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrMetadataNotFound, "metadata: %s", key)
	}
	return nil
}

func fetchChainHeight(tables *storage.Tables, r storage.Reader) (uint64, error) {
	height, found, err := getMetadataUint64(tables, r, ChainHeightKey, 0)
	if err := requireMetadata(found, err, ChainHeightKey); nil != err {
		return 0, err
	}
	return height, nil
}

func fetchBestBlock(tables *storage.Tables, r storage.Reader) (blockdigest.Digest, error) {
	value, found, err := getMetadata(tables, r, BestBlockKey)
	if err := requireMetadata(found, err, BestBlockKey); nil != err {
		return blockdigest.Digest{}, err
	}
	return digestFrom(value)
}

func fetchAccumulatedWork(tables *storage.Tables, r storage.Reader) (*big.Int, error) {
	value, found, err := getMetadata(tables, r, AccumulatedWorkKey)
	if err := requireMetadata(found, err, AccumulatedWorkKey); nil != err {
		return nil, err
	}
	return new(big.Int).SetBytes(value), nil
}

func fetchBestBlockTimestamp(tables *storage.Tables, r storage.Reader) (uint64, error) {
	timestamp, found, err := getMetadataUint64(tables, r, BestBlockTimestampKey, 0)
	if err := requireMetadata(found, err, BestBlockTimestampKey); nil != err {
		return 0, err
	}
	return timestamp, nil
}

func fetchPruningHorizon(tables *storage.Tables, r storage.Reader) (uint64, error) {
	horizon, _, err := getMetadataUint64(tables, r, PruningHorizonKey, 0)
	return horizon, err
}

func fetchPrunedHeight(tables *storage.Tables, r storage.Reader) (uint64, error) {
	height, _, err := getMetadataUint64(tables, r, PrunedHeightKey, 0)
	return height, err
}

func fetchMigrationVersion(tables *storage.Tables, r storage.Reader) (uint64, error) {
	version, _, err := getMetadataUint64(tables, r, MigrationVersionKey, 0)
	return version, err
}

func fetchDeletedBitmap(tables *storage.Tables, r storage.Reader) (*roaring.Bitmap, error) {
	value, found, err := getMetadata(tables, r, DeletedBitmapKey)
	if nil != err {
		return nil, err
	}
	if !found {
		return roaring.New(), nil
	}
	return accumulator.DeserializeBitmap(value)
}

func fetchHorizonData(tables *storage.Tables, r storage.Reader) (*blockrecord.HorizonData, bool, error) {
	value, found, err := getMetadata(tables, r, HorizonDataKey)
	if nil != err || !found {
		return nil, false, err
	}
	data, err := blockrecord.HorizonDataFromBytes(value)
	if nil != err {
		return nil, false, err
	}
	return data, true, nil
}

func fetchMetadata(tables *storage.Tables, r storage.Reader) (*blockrecord.ChainMetadata, error) {
	height, err := fetchChainHeight(tables, r)
	if nil != err {
		return nil, err
	}
	best, err := fetchBestBlock(tables, r)
	if nil != err {
		return nil, err
	}
	horizon, err := fetchPruningHorizon(tables, r)
	if nil != err {
		return nil, err
	}
	pruned, err := fetchPrunedHeight(tables, r)
	if nil != err {
		return nil, err
	}
	work, err := fetchAccumulatedWork(tables, r)
	if nil != err {
		return nil, err
	}
	timestamp, err := fetchBestBlockTimestamp(tables, r)
	if nil != err {
		return nil, err
	}
	return &blockrecord.ChainMetadata{
		HeightOfLongestChain:  height,
		BestBlock:             best,
		PruningHorizon:        horizon,
		PrunedHeight:          pruned,
		AccumulatedDifficulty: work,
		Timestamp:             timestamp,
	}, nil
}
