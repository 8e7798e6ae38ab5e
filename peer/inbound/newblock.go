// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inbound

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/block"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/metrics"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

// HandleNewBlockMessage - bring a compact block announced by a peer
// into the chain
//
// only one announcement is processed at a time, so that a block
// announced by several peers is fetched at most once
func (h *Handler) HandleNewBlockMessage(ctx context.Context, newBlock *blockrecord.NewBlock, source NodeID) error {
	hash := newBlock.Header.Hash()

	if h.chain.IsAddBlockDisabled() {
		h.log.Infof("ignoring block: %s  add block is disabled", hash)
		return nil
	}

	err := h.newBlockPermit.Acquire(ctx, 1)
	if nil != err {
		return err
	}
	defer h.newBlockPermit.Release(1)

	exists, err := h.blockExists(hash)
	if nil != err {
		return err
	}
	if exists {
		h.log.Debugf("block: %s already stored", hash)
		return nil
	}

	h.log.Debugf("block: %s is unknown, reconciling from mempool and peer: %s", hash, source)

	b, err := h.reconcileBlock(ctx, newBlock, source)
	if nil != err {
		return err
	}
	_, err = h.HandleBlock(ctx, b, source)
	return err
}

// main chain or orphan pool
func (h *Handler) blockExists(hash blockdigest.Digest) (bool, error) {
	exists, err := h.chain.Contains(chainstorage.BlockHashKey(hash))
	if nil != err || exists {
		return exists, err
	}
	return h.chain.Contains(chainstorage.OrphanBlockKey(hash))
}

// coinbase plus the given transactions in canonical order under the
// announced header
func assembleBlock(newBlock *blockrecord.NewBlock, transactions []*transactionrecord.Transaction) *blockrecord.Block {
	body := &transactionrecord.AggregateBody{
		Inputs:  []*transactionrecord.Input{},
		Outputs: append([]*transactionrecord.Output{}, newBlock.CoinbaseOutputs...),
		Kernels: append([]*transactionrecord.Kernel{}, newBlock.CoinbaseKernels...),
	}
	for _, tx := range transactions {
		body.Add(&tx.Body)
	}
	body.Sort()

	return &blockrecord.Block{
		Header: newBlock.Header,
		Body:   body,
	}
}

func (h *Handler) reconcileBlock(ctx context.Context, newBlock *blockrecord.NewBlock, source NodeID) (*blockrecord.Block, error) {
	header := newBlock.Header
	hash := header.Hash()

	// nothing besides the coinbase, so the announcement is the block
	if 0 == len(newBlock.KernelExcessSigs) {
		return assembleBlock(newBlock, nil), nil
	}

	metadata, err := h.chain.FetchChainMetadata()
	if nil != err {
		return nil, err
	}

	// roots can only be checked for a block on the tip
	if header.PrevHash != metadata.BestBlock {
		h.log.Debugf("block: %d %s does not extend tip: %d %s, fetching from peer: %s",
			header.Height, hash, metadata.HeightOfLongestChain, metadata.BestBlock, source)
		metrics.CompactBlockMisses.WithLabelValues("not_on_tip").Inc()
		return h.requestFullBlockFromPeer(ctx, source, hash)
	}

	found, err := h.mempool.RetrieveByExcessSigs(ctx, newBlock.KernelExcessSigs)
	if nil != err {
		return nil, err
	}
	transactions := found.Transactions

	if 0 == len(found.NotFound) {
		h.log.Debugf("block: %d %s all transactions found in mempool", header.Height, hash)
	} else {
		h.log.Debugf("requesting: %d unknown transactions from peer: %s", len(found.NotFound), source)

		fetched, err := h.outbound.RequestTransactionsByExcessSigs(ctx, source, found.NotFound)
		if nil != err {
			return nil, err
		}

		if 0 != len(fetched.Transactions) {
			err := h.mempool.InsertAll(ctx, fetched.Transactions)
			if nil != err {
				return nil, err
			}
		}

		if 0 != len(fetched.NotFound) {
			h.log.Warnf("peer: %s could not return: %d transactions for block: %d %s, fetching full block",
				source, len(fetched.NotFound), header.Height, hash)
			metrics.CompactBlockMisses.WithLabelValues("missing_transactions").Inc()
			return h.requestFullBlockFromPeer(ctx, source, hash)
		}
		transactions = append(transactions, fetched.Transactions...)
	}

	b := assembleBlock(newBlock, transactions)

	// a mempool transaction sharing an excess signature with a
	// different one shows up as a root mismatch
	roots, err := h.chain.CalculateMmrRoots(b)
	if nil != err {
		h.log.Debugf("block: %s roots: %s", hash, err)
		metrics.CompactBlockMisses.WithLabelValues("roots_failed").Inc()
		return h.requestFullBlockFromPeer(ctx, source, hash)
	}
	if !roots.Matches(header) {
		h.log.Warnf("reconstructed block: %d %s failed root check, fetching full block", header.Height, hash)
		metrics.CompactBlockMisses.WithLabelValues("mmr_mismatch").Inc()
		return h.requestFullBlockFromPeer(ctx, source, hash)
	}

	return b, nil
}

func (h *Handler) requestFullBlockFromPeer(ctx context.Context, source NodeID, hash blockdigest.Digest) (*blockrecord.Block, error) {
	b, err := h.outbound.RequestBlockByHash(ctx, source, hash)
	if nil != err {
		return nil, err
	}
	if nil != b {
		return b, nil
	}

	reason := fmt.Sprintf("peer: %s failed to return the block that was requested", source)
	err = h.connectivity.BanPeerUntil(ctx, source, missingBlockBanDuration, reason)
	if nil != err {
		h.log.Errorf("failed to ban peer: %s  error: %s", source, err)
	}
	h.log.Debugf("peer: %s failed to return block: %s", source, hash)

	return nil, errors.Wrapf(fault.ErrInvalidPeerResponse, "peer: %s did not provide propagated block: %s", source, hash)
}

// HandleBlock - add a complete block from a peer or, with an empty
// source, from local services
//
// blocks that extend the chain are propagated to every peer except the
// source
func (h *Handler) HandleBlock(ctx context.Context, b *blockrecord.Block, source NodeID) (blockdigest.Digest, error) {
	hash := b.Hash()
	height := b.Header.Height

	h.log.Infof("block: %d %s received from: %s", height, hash, source)
	start := time.Now()

	b, err := h.hydrateBlock(b)
	if nil != err {
		return blockdigest.Digest{}, err
	}

	result, err := h.chain.AddBlock(b)
	if nil != err {
		metrics.RejectedBlocks.WithLabelValues(rejectReason(err)).Inc()

		if fault.IsErrValidation(err) {
			h.log.Warnf("peer: %s sent an invalid block: %s", source, err)
			if "" != source {
				banErr := h.connectivity.BanPeer(ctx, source, fmt.Sprintf("peer propagated invalid block: %s", err))
				if nil != banErr {
					h.log.Errorf("failed to ban peer: %s  error: %s", source, banErr)
				}
			}
			h.publish(AddBlockValidationFailed, &BlockFailedEvent{
				Block:      b,
				SourcePeer: source,
				Err:        err,
			})
			return blockdigest.Digest{}, err
		}

		h.publish(AddBlockErrored, &BlockFailedEvent{
			Block:      b,
			SourcePeer: source,
			Err:        err,
		})
		return blockdigest.Digest{}, err
	}

	h.log.Debugf("block: %d %s added: %s in: %s", height, hash, result.Kind, time.Since(start))

	h.publish(ValidBlockAdded, &BlockAddedEvent{
		Block:  b,
		Result: result,
	})

	if block.Ok == result.Kind || block.ChainReorg == result.Kind {
		h.log.Debugf("propagate block: %s", hash)
		exclude := []NodeID{}
		if "" != source {
			exclude = append(exclude, source)
		}
		err := h.outbound.PropagateBlock(ctx, blockrecord.NewBlockFromBlock(b), exclude)
		if nil != err {
			return blockdigest.Digest{}, err
		}
	}
	return hash, nil
}

// label for the rejected blocks counter
func rejectReason(err error) string {
	if fault.IsErrValidation(err) {
		return "invalid"
	}
	return "error"
}

// fill every compact input with the output it spends
func (h *Handler) hydrateBlock(b *blockrecord.Block) (*blockrecord.Block, error) {
	hash := b.Hash()
	if 0 == len(b.Body.Inputs) {
		h.log.Debugf("block: %d %s has no inputs to hydrate", b.Header.Height, hash)
		return b, nil
	}

	inputs := make([]*transactionrecord.Input, len(b.Body.Inputs))
	for i, input := range b.Body.Inputs {
		if !input.IsCompact() {
			inputs[i] = input
			continue
		}

		info, found, err := h.chain.FetchOutput(input.OutputHash)
		if nil != err {
			return nil, err
		}
		if !found {
			return nil, errors.Wrapf(fault.ErrInvalidFullBlock, "block: %s  output: %s to be spent does not exist", hash, input.OutputHash)
		}
		if info.Output.IsPruned() {
			return nil, errors.Wrapf(fault.ErrInvalidFullBlock, "block: %s  output: %s to be spent is pruned", hash, input.OutputHash)
		}

		full := *input
		full.AddOutputData(info.Output.Output)
		inputs[i] = &full
	}

	return &blockrecord.Block{
		Header: b.Header,
		Body: &transactionrecord.AggregateBody{
			Inputs:  inputs,
			Outputs: b.Body.Outputs,
			Kernels: b.Body.Kernels,
		},
	}, nil
}
