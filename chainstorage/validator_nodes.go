// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/compositekey"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/chainstore/transactionrecord"
	"github.com/bitmark-inc/chainstore/util"
)

// value of the validator_nodes table
type validatorNodeEntry struct {
	shardKey   blockdigest.Digest
	startEpoch uint64
	endEpoch   uint64
	publicKey  transactionrecord.PublicKey
	commitment transactionrecord.Commitment
}

func (entry *validatorNodeEntry) pack() util.Packed {
	buffer := util.Packed{}
	buffer = buffer.AppendFixed(entry.shardKey[:])
	buffer = buffer.AppendUint64(entry.startEpoch)
	buffer = buffer.AppendUint64(entry.endEpoch)
	buffer = buffer.AppendFixed(entry.publicKey[:])
	return buffer.AppendFixed(entry.commitment[:])
}

func unpackValidatorNodeEntry(record []byte) (*validatorNodeEntry, error) {
	u := util.NewUnpacker(record)
	entry := &validatorNodeEntry{}
	u.Fixed(entry.shardKey[:])
	entry.startEpoch = u.Uint64()
	entry.endEpoch = u.Uint64()
	u.Fixed(entry.publicKey[:])
	u.Fixed(entry.commitment[:])
	if err := u.Done(); nil != err {
		return nil, err
	}
	return entry, nil
}

// public key ‖ height, so the registrations of one key are adjacent
func validatorMappingKey(publicKey transactionrecord.PublicKey, height uint64) (compositekey.Key, error) {
	return compositekey.FromParts(compositekey.RegistrationKeyLength, publicKey[:], compositekey.Height(height))
}

// heights of the epochs a registration at height can see
func (db *LevelDBDatabase) epochWindow(height uint64) (uint64, uint64) {
	constants := db.options.Constants
	epoch := constants.EpochOf(height)
	start := uint64(0)
	if epoch > constants.ValidityPeriodEpochs {
		start = epoch - constants.ValidityPeriodEpochs
	}
	return start * constants.EpochLength, epoch * constants.EpochLength
}

// DeriveShardKey - keep the previous key unless the registration falls
// on the shuffle interval for its epoch
func DeriveShardKey(publicKey transactionrecord.PublicKey, previous *blockdigest.Digest, epoch uint64, interval uint64, blockHash blockdigest.Digest) blockdigest.Digest {
	if nil != previous && !requiresNewShardKey(publicKey, epoch, interval) {
		return *previous
	}
	return blockdigest.NewDomainHasher("validator_node_shard_key").
		Bytes(publicKey[:]).
		Bytes(blockHash[:]).
		Digest()
}

func requiresNewShardKey(publicKey transactionrecord.PublicKey, epoch uint64, interval uint64) bool {
	if 0 == interval {
		return false
	}
	n := new(big.Int).SetBytes(publicKey[:])
	n.Add(n, new(big.Int).SetUint64(epoch))
	return 0 == n.Mod(n, new(big.Int).SetUint64(interval)).Sign()
}

func (db *LevelDBDatabase) insertValidatorNode(w *storage.WriteTxn, header *blockrecord.Header, commitment transactionrecord.Commitment, registration *transactionrecord.ValidatorNodeRegistration) error {
	constants := db.options.Constants
	epoch := constants.EpochOf(header.Height)

	start, end := db.epochWindow(header.Height)
	previous, found, err := db.shardKeyIn(w, start, end, registration.PublicKey)
	if nil != err {
		return err
	}
	var prev *blockdigest.Digest
	if found {
		prev = &previous
	}

	entry := &validatorNodeEntry{
		shardKey:   DeriveShardKey(registration.PublicKey, prev, epoch, constants.ShuffleInterval, header.PrevHash),
		startEpoch: epoch + 1,
		endEpoch:   epoch + 1 + constants.ValidityPeriodEpochs,
		publicKey:  registration.PublicKey,
		commitment: commitment,
	}

	key, err := compositekey.RegistrationKey(header.Height, registration.PublicKey[:])
	if nil != err {
		return err
	}
	mapping, err := validatorMappingKey(registration.PublicKey, header.Height)
	if nil != err {
		return err
	}
	err = db.tables.ValidatorNodes.Insert(w, key, entry.pack())
	if nil != err {
		return err
	}
	return db.tables.ValidatorNodesMapping.Insert(w, mapping, entry.shardKey[:])
}

// remove the registration of publicKey made by the output with commitment
func (db *LevelDBDatabase) deleteValidatorNode(w *storage.WriteTxn, publicKey transactionrecord.PublicKey, commitment transactionrecord.Commitment) error {
	mappings, err := db.tables.ValidatorNodesMapping.FetchWithPrefix(w, publicKey[:])
	if nil != err {
		return err
	}
	for _, mapping := range mappings {
		height, err := fromBeUint64(mapping.Key[transactionrecord.PublicKeyLength:])
		if nil != err {
			return err
		}
		key, err := compositekey.RegistrationKey(height, publicKey[:])
		if nil != err {
			return err
		}
		value, found, err := db.tables.ValidatorNodes.Get(w, key)
		if nil != err {
			return err
		}
		if !found {
			continue
		}
		entry, err := unpackValidatorNodeEntry(value)
		if nil != err {
			return err
		}
		if entry.commitment != commitment {
			continue
		}
		err = db.tables.ValidatorNodes.Delete(w, key)
		if nil != err {
			return err
		}
		return db.tables.ValidatorNodesMapping.Delete(w, mapping.Key)
	}
	return errors.Wrapf(fault.ErrValidatorNodeNotFound, "public key: %s", publicKey)
}

func (db *LevelDBDatabase) insertTemplateRegistration(w *storage.WriteTxn, entry *TemplateRegistrationEntry) error {
	key, err := compositekey.RegistrationKey(entry.BlockHeight, entry.OutputHash[:])
	if nil != err {
		return err
	}
	return db.tables.TemplateRegistrations.Insert(w, key, packTemplateEntry(entry))
}

// registrations mined at height go when its block body goes
func (db *LevelDBDatabase) deleteRegistrationsAt(w *storage.WriteTxn, height uint64) error {
	prefix := compositekey.Height(height)
	nodes, err := db.tables.ValidatorNodes.DeleteByPrefix(w, prefix)
	if nil != err {
		return err
	}
	for _, node := range nodes {
		entry, err := unpackValidatorNodeEntry(node.Value)
		if nil != err {
			return err
		}
		mapping, err := validatorMappingKey(entry.publicKey, height)
		if nil != err {
			return err
		}
		_, err = db.tables.ValidatorNodesMapping.DeleteIfExists(w, mapping)
		if nil != err {
			return err
		}
	}
	templates, err := db.tables.TemplateRegistrations.DeleteByPrefix(w, prefix)
	if nil != err {
		return err
	}
	if 0 != len(nodes) || 0 != len(templates) {
		db.log.Debugf("height: %d removed: %d validator nodes  %d templates", height, len(nodes), len(templates))
	}
	return nil
}

// latest shard key of publicKey registered within [start, end]
func (db *LevelDBDatabase) shardKeyIn(r storage.Reader, start uint64, end uint64, publicKey transactionrecord.PublicKey) (blockdigest.Digest, bool, error) {
	mappings, err := db.tables.ValidatorNodesMapping.FetchWithPrefix(r, publicKey[:])
	if nil != err {
		return blockdigest.Digest{}, false, err
	}

	// ascending height order so the last match wins
	result := blockdigest.Digest{}
	found := false
	for _, mapping := range mappings {
		height, err := fromBeUint64(mapping.Key[transactionrecord.PublicKeyLength:])
		if nil != err {
			return blockdigest.Digest{}, false, err
		}
		if height < start || height > end {
			continue
		}
		shardKey, err := digestFrom(mapping.Value)
		if nil != err {
			return blockdigest.Digest{}, false, err
		}
		result = shardKey
		found = true
	}
	return result, found, nil
}

// FetchActiveValidatorNodes - validators registered in the epochs still
// valid at height, ordered by shard key
func (db *LevelDBDatabase) FetchActiveValidatorNodes(height uint64) ([]ValidatorNode, error) {
	start, end := db.epochWindow(height)

	latest := make(map[transactionrecord.PublicKey]blockdigest.Digest)
	err := db.read(func(r storage.Reader) error {
		cursor := db.tables.ValidatorNodes.NewFetchCursor(r).Seek(compositekey.Height(start))
	scanning:
		for {
			elements, err := cursor.Fetch(100)
			if nil != err {
				return err
			}
			if 0 == len(elements) {
				break scanning
			}
			for _, e := range elements {
				h, err := fromBeUint64(e.Key[:8])
				if nil != err {
					return err
				}
				if h > end {
					break scanning
				}
				entry, err := unpackValidatorNodeEntry(e.Value)
				if nil != err {
					return err
				}
				latest[entry.publicKey] = entry.shardKey
			}
		}
		return nil
	})
	if nil != err {
		return nil, err
	}

	nodes := make([]ValidatorNode, 0, len(latest))
	for publicKey, shardKey := range latest {
		nodes = append(nodes, ValidatorNode{
			PublicKey: publicKey,
			ShardKey:  shardKey,
		})
	}
	sort.Slice(nodes, func(i, j int) bool {
		return string(nodes[i].ShardKey[:]) < string(nodes[j].ShardKey[:])
	})
	return nodes, nil
}

// GetShardKey - shard key of a validator as seen at height
func (db *LevelDBDatabase) GetShardKey(height uint64, publicKey transactionrecord.PublicKey) (blockdigest.Digest, bool, error) {
	start, end := db.epochWindow(height)

	var shardKey blockdigest.Digest
	var found bool
	err := db.read(func(r storage.Reader) error {
		var err error
		shardKey, found, err = db.shardKeyIn(r, start, end, publicKey)
		return err
	})
	return shardKey, found, err
}

// FetchTemplateRegistrations - templates mined at heights start..=end
func (db *LevelDBDatabase) FetchTemplateRegistrations(startHeight uint64, endHeight uint64) ([]*TemplateRegistrationEntry, error) {
	if endHeight < startHeight {
		return nil, fault.ErrInvalidArguments
	}
	result := []*TemplateRegistrationEntry{}
	err := db.read(func(r storage.Reader) error {
		for height := startHeight; height <= endHeight; height += 1 {
			elements, err := db.tables.TemplateRegistrations.FetchWithPrefix(r, compositekey.Height(height))
			if nil != err {
				return err
			}
			for _, e := range elements {
				entry, err := unpackTemplateEntry(e.Value)
				if nil != err {
					return err
				}
				result = append(result, entry)
			}
			if height == endHeight {
				break
			}
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	return result, nil
}

func packTemplateEntry(entry *TemplateRegistrationEntry) util.Packed {
	registration := entry.Registration
	buffer := util.Packed{}
	buffer = buffer.AppendFixed(registration.AuthorPublicKey[:])
	buffer = buffer.AppendBytes([]byte(registration.Name))
	buffer = buffer.AppendUint64(registration.Version)
	buffer = buffer.AppendFixed(registration.BinarySha[:])
	buffer = buffer.AppendBytes([]byte(registration.BinaryURL))
	buffer = buffer.AppendFixed(entry.OutputHash[:])
	buffer = buffer.AppendUint64(entry.BlockHeight)
	return buffer.AppendFixed(entry.BlockHash[:])
}

func unpackTemplateEntry(record []byte) (*TemplateRegistrationEntry, error) {
	u := util.NewUnpacker(record)
	registration := &transactionrecord.TemplateRegistration{}
	u.Fixed(registration.AuthorPublicKey[:])
	registration.Name = string(u.Bytes())
	registration.Version = u.Uint64()
	u.Fixed(registration.BinarySha[:])
	registration.BinaryURL = string(u.Bytes())

	entry := &TemplateRegistrationEntry{
		Registration: registration,
	}
	u.Fixed(entry.OutputHash[:])
	entry.BlockHeight = u.Uint64()
	u.Fixed(entry.BlockHash[:])
	if err := u.Done(); nil != err {
		return nil, err
	}
	return entry, nil
}
