// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

// Validator - consensus checks applied while adding blocks
//
// errors that are not already fault.ValidationError are reported
// wrapped in fault.ErrInvalidBlock
type Validator interface {
	// a block on its own, before it enters the orphan pool
	ValidateOrphan(block *blockrecord.Block) error

	// a header against its parent, returning the achieved and target
	// difficulty
	ValidateHeader(header *blockrecord.Header, parent *blockrecord.ChainHeader) (uint64, uint64, error)

	// a body against the chain state it is about to extend
	ValidateBody(backend chainstorage.Backend, block *blockrecord.ChainBlock) error
}

// accepts everything with unit difficulty
type acceptAll struct{}

func (acceptAll) ValidateOrphan(*blockrecord.Block) error { return nil }

func (acceptAll) ValidateHeader(*blockrecord.Header, *blockrecord.ChainHeader) (uint64, uint64, error) {
	return 1, 1, nil
}

func (acceptAll) ValidateBody(chainstorage.Backend, *blockrecord.ChainBlock) error { return nil }

func asValidationError(err error, hash blockdigest.Digest) error {
	if nil == err || fault.IsErrValidation(err) {
		return err
	}
	return errors.Wrapf(fault.ErrInvalidBlock, "block: %s  %s", hash, err)
}

// accumulated data of a header whose parent is known
func (bc *BlockchainDatabase) accumulatedDataFor(header *blockrecord.Header, parent *blockrecord.ChainHeader) (*blockrecord.HeaderAccumulatedData, error) {
	hash := header.Hash()

	if header.Height != parent.Height()+1 {
		return nil, errors.Wrapf(fault.ErrInvalidBlock, "block: %s  height: %d  parent height: %d", hash, header.Height, parent.Height())
	}

	achieved, target, err := bc.validator.ValidateHeader(header, parent)
	if nil != err {
		return nil, asValidationError(err, hash)
	}

	total := new(big.Int).SetUint64(achieved)
	total.Add(total, parent.Accumulated.TotalAccumulatedDifficulty)

	offset := chainstorage.AddCommitments(
		transactionrecord.Commitment(parent.Accumulated.TotalKernelOffset),
		transactionrecord.Commitment(header.TotalKernelOffset),
	)

	return &blockrecord.HeaderAccumulatedData{
		Hash:                       hash,
		TotalKernelOffset:          blockdigest.Digest(offset),
		AchievedDifficulty:         achieved,
		TargetDifficulty:           target,
		TotalAccumulatedDifficulty: total,
	}, nil
}
