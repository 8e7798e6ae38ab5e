// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inbound

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/block"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/peer/ratelimit"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

// Request - a query from a peer
type Request interface {
	// items named by the request, used for rate limiting
	itemCount() int
}

// GetChainMetadata - tip and pruning state
type GetChainMetadata struct{}

// FetchHeaders - main chain headers from Start to End inclusive
type FetchHeaders struct {
	Start uint64
	End   uint64
}

// FetchHeadersByHashes - main chain headers, every hash must be known
type FetchHeadersByHashes struct {
	Hashes []blockdigest.Digest
}

// FetchMatchingUtxos - outputs with the given hashes that are neither
// spent nor pruned
type FetchMatchingUtxos struct {
	Hashes []blockdigest.Digest
}

// FetchMatchingBlocks - main chain blocks from Start to End inclusive
type FetchMatchingBlocks struct {
	Start   uint64
	End     uint64
	Compact bool
}

// FetchBlocksByKernelExcessSigs - blocks holding the kernels
type FetchBlocksByKernelExcessSigs struct {
	Sigs []transactionrecord.Signature
}

// FetchBlocksByUtxos - blocks holding the unspent outputs
type FetchBlocksByUtxos struct {
	Commitments []transactionrecord.Commitment
}

// GetHeaderByHash - one main chain header
type GetHeaderByHash struct {
	Hash blockdigest.Digest
}

// GetBlockByHash - one main chain block with full inputs
type GetBlockByHash struct {
	Hash blockdigest.Digest
}

// GetNewBlock - complete a block template with its roots
type GetNewBlock struct {
	Header *blockrecord.Header
	Body   *transactionrecord.AggregateBody
}

// GetBlockFromAllChains - a block from the main chain or the orphan
// pool
type GetBlockFromAllChains struct {
	Hash blockdigest.Digest
}

// FetchKernelByExcessSig - one kernel
type FetchKernelByExcessSig struct {
	Sig transactionrecord.Signature
}

// FetchMempoolTransactionsByExcessSigs - unconfirmed transactions
type FetchMempoolTransactionsByExcessSigs struct {
	Sigs []transactionrecord.Signature
}

// FetchValidatorNodesKeys - validator nodes active at a height
type FetchValidatorNodesKeys struct {
	Height uint64
}

// GetShardKey - shard key of a validator node at a height
type GetShardKey struct {
	Height    uint64
	PublicKey transactionrecord.PublicKey
}

// FetchTemplateRegistrations - registrations mined from Start to End
// inclusive
type FetchTemplateRegistrations struct {
	Start uint64
	End   uint64
}

// FetchUnspentUtxosInBlock - outputs of a block still available in full
type FetchUnspentUtxosInBlock struct {
	Hash blockdigest.Digest
}

func (GetChainMetadata) itemCount() int                       { return 1 }
func (FetchHeaders) itemCount() int                           { return 1 }
func (r FetchHeadersByHashes) itemCount() int                 { return len(r.Hashes) }
func (r FetchMatchingUtxos) itemCount() int                   { return len(r.Hashes) }
func (FetchMatchingBlocks) itemCount() int                    { return 1 }
func (r FetchBlocksByKernelExcessSigs) itemCount() int        { return len(r.Sigs) }
func (r FetchBlocksByUtxos) itemCount() int                   { return len(r.Commitments) }
func (GetHeaderByHash) itemCount() int                        { return 1 }
func (GetBlockByHash) itemCount() int                         { return 1 }
func (GetNewBlock) itemCount() int                            { return 1 }
func (GetBlockFromAllChains) itemCount() int                  { return 1 }
func (FetchKernelByExcessSig) itemCount() int                 { return 1 }
func (r FetchMempoolTransactionsByExcessSigs) itemCount() int { return len(r.Sigs) }
func (FetchValidatorNodesKeys) itemCount() int                { return 1 }
func (GetShardKey) itemCount() int                            { return 1 }
func (FetchTemplateRegistrations) itemCount() int             { return 1 }
func (FetchUnspentUtxosInBlock) itemCount() int               { return 1 }

// Response - reply to a request, only the fields the request type
// fills are set
type Response struct {
	ChainMetadata         *blockrecord.ChainMetadata                `json:"chainMetadata,omitempty"`
	Headers               []*blockrecord.ChainHeader                `json:"headers,omitempty"`
	Header                *blockrecord.ChainHeader                  `json:"header,omitempty"`
	Outputs               []*transactionrecord.Output               `json:"outputs,omitempty"`
	HistoricalBlocks      []*block.HistoricalBlock                  `json:"historicalBlocks,omitempty"`
	HistoricalBlock       *block.HistoricalBlock                    `json:"historicalBlock,omitempty"`
	Block                 *blockrecord.Block                        `json:"block,omitempty"`
	Kernels               []*transactionrecord.Kernel               `json:"kernels,omitempty"`
	MempoolTransactions   *MempoolTransactions                      `json:"mempoolTransactions,omitempty"`
	ValidatorNodes        []chainstorage.ValidatorNode              `json:"validatorNodes,omitempty"`
	ShardKey              *blockdigest.Digest                       `json:"shardKey,omitempty"`
	TemplateRegistrations []*chainstorage.TemplateRegistrationEntry `json:"templateRegistrations,omitempty"`
}

// HandleRequest - answer a query, requests from remote peers are rate
// limited per peer
func (h *Handler) HandleRequest(ctx context.Context, source NodeID, request Request) (*Response, error) {
	err := h.limit(ctx, source, request)
	if nil != err {
		return nil, err
	}

	switch r := request.(type) {

	case GetChainMetadata:
		metadata, err := h.chain.FetchChainMetadata()
		if nil != err {
			return nil, err
		}
		return &Response{ChainMetadata: metadata}, nil

	case FetchHeaders:
		headers, err := h.chain.FetchHeaders(r.Start, r.End)
		if nil != err {
			return nil, err
		}
		chainHeaders := make([]*blockrecord.ChainHeader, 0, len(headers))
		for _, header := range headers {
			chainHeader, err := h.chain.FetchChainHeaderByHeight(header.Height)
			if nil != err {
				return nil, err
			}
			chainHeaders = append(chainHeaders, chainHeader)
		}
		return &Response{Headers: chainHeaders}, nil

	case FetchHeadersByHashes:
		if err := checkMaximum("FetchHeadersByHashes", len(r.Hashes)); nil != err {
			return nil, err
		}
		headers := make([]*blockrecord.ChainHeader, 0, len(r.Hashes))
		for _, hash := range r.Hashes {
			header, err := h.chainHeaderByHash(hash)
			if nil != err {
				return nil, err
			}
			if nil == header {
				h.log.Errorf("could not fetch header with hash: %s", hash)
				return nil, errors.Wrapf(fault.ErrHeaderNotFound, "hash: %s", hash)
			}
			headers = append(headers, header)
		}
		return &Response{Headers: headers}, nil

	case FetchMatchingUtxos:
		deleted, err := h.chain.FetchDeletedBitmap()
		if nil != err {
			return nil, err
		}
		outputs := make([]*transactionrecord.Output, 0, len(r.Hashes))
		for _, hash := range r.Hashes {
			info, found, err := h.chain.FetchOutput(hash)
			if nil != err {
				return nil, err
			}
			if !found || info.Output.IsPruned() || deleted.Contains(info.MmrPosition) {
				continue
			}
			outputs = append(outputs, info.Output.Output)
		}
		return &Response{Outputs: outputs}, nil

	case FetchMatchingBlocks:
		blocks, err := h.chain.FetchBlocks(r.Start, r.End, r.Compact)
		if nil != err {
			return nil, err
		}
		return &Response{HistoricalBlocks: blocks}, nil

	case FetchBlocksByKernelExcessSigs:
		if err := checkMaximum("FetchBlocksByKernelExcessSigs", len(r.Sigs)); nil != err {
			return nil, err
		}
		blocks := make([]*block.HistoricalBlock, 0, len(r.Sigs))
		for _, sig := range r.Sigs {
			h.log.Debugf("peer: %s requested block with kernel sig: %s", source, sig)
			b, err := h.blockWithKernel(sig)
			if nil != err {
				h.log.Warnf("cannot provide block with kernel sig: %s  error: %s", sig, err)
				continue
			}
			if nil == b {
				h.log.Warnf("cannot provide block with kernel sig: %s  not stored", sig)
				continue
			}
			blocks = append(blocks, b)
		}
		return &Response{HistoricalBlocks: blocks}, nil

	case FetchBlocksByUtxos:
		if err := checkMaximum("FetchBlocksByUtxos", len(r.Commitments)); nil != err {
			return nil, err
		}
		blocks := make([]*block.HistoricalBlock, 0, len(r.Commitments))
		for _, commitment := range r.Commitments {
			h.log.Debugf("peer: %s requested block with commitment: %s", source, commitment)
			b, err := h.blockWithUtxo(commitment)
			if nil != err {
				h.log.Warnf("cannot provide block with commitment: %s  error: %s", commitment, err)
				continue
			}
			if nil == b {
				h.log.Warnf("cannot provide block with commitment: %s  not stored", commitment)
				continue
			}
			blocks = append(blocks, b)
		}
		return &Response{HistoricalBlocks: blocks}, nil

	case GetHeaderByHash:
		header, err := h.chainHeaderByHash(r.Hash)
		if nil != err {
			return nil, err
		}
		return &Response{Header: header}, nil

	case GetBlockByHash:
		b, err := h.chain.FetchBlockByHash(r.Hash, false)
		if nil != err {
			return nil, err
		}
		return &Response{HistoricalBlock: b}, nil

	case GetNewBlock:
		b, err := h.chain.PrepareNewBlock(r.Header, r.Body)
		if nil != err {
			return nil, err
		}
		h.log.Debugf("prepared new block: %d %s", b.Header.Height, b.Hash())
		return &Response{Block: b}, nil

	case GetBlockFromAllChains:
		b, err := h.blockFromAllChains(r.Hash)
		if nil != err {
			return nil, err
		}
		return &Response{Block: b}, nil

	case FetchKernelByExcessSig:
		kernel, _, found, err := h.chain.FetchKernelByExcessSig(r.Sig)
		if nil != err {
			h.log.Errorf("could not fetch kernel: %s  error: %s", r.Sig, err)
			return nil, err
		}
		kernels := []*transactionrecord.Kernel{}
		if found {
			kernels = append(kernels, kernel)
		}
		return &Response{Kernels: kernels}, nil

	case FetchMempoolTransactionsByExcessSigs:
		found, err := h.mempool.RetrieveByExcessSigs(ctx, r.Sigs)
		if nil != err {
			return nil, err
		}
		return &Response{MempoolTransactions: found}, nil

	case FetchValidatorNodesKeys:
		nodes, err := h.chain.FetchActiveValidatorNodes(r.Height)
		if nil != err {
			return nil, err
		}
		return &Response{ValidatorNodes: nodes}, nil

	case GetShardKey:
		key, found, err := h.chain.GetShardKey(r.Height, r.PublicKey)
		if nil != err {
			return nil, err
		}
		response := &Response{}
		if found {
			response.ShardKey = &key
		}
		return response, nil

	case FetchTemplateRegistrations:
		registrations, err := h.chain.FetchTemplateRegistrations(r.Start, r.End)
		if nil != err {
			return nil, err
		}
		return &Response{TemplateRegistrations: registrations}, nil

	case FetchUnspentUtxosInBlock:
		deleted, err := h.chain.FetchDeletedBitmap()
		if nil != err {
			return nil, err
		}
		rows, _, err := h.chain.FetchUtxosInBlock(r.Hash, deleted)
		if nil != err {
			return nil, err
		}
		outputs := make([]*transactionrecord.Output, 0, len(rows))
		for _, row := range rows {
			if !row.IsPruned() {
				outputs = append(outputs, row.Output)
			}
		}
		return &Response{Outputs: outputs}, nil

	default:
		return nil, errors.Wrapf(fault.ErrUnknownRequest, "request: %T", request)
	}
}

// remote peers only, a request counts once per item it names
func (h *Handler) limit(ctx context.Context, source NodeID, request Request) error {
	if "" == source {
		return nil
	}
	count := 1
	if nil != request {
		count = request.itemCount()
	}
	if count < 1 {
		count = 1
	}
	if count > maxRequestItems {
		count = maxRequestItems
	}
	err := ratelimit.LimitN(ctx, h.limiters.Get(string(source)), count, maxRequestItems)
	if nil != err {
		h.log.Debugf("peer: %s rate limited: %s", source, err)
	}
	return err
}

func checkMaximum(request string, count int) error {
	if count > maxRequestItems {
		return errors.Wrapf(fault.ErrRequestExceedsMaximum, "%s: max: %d  got: %d", request, maxRequestItems, count)
	}
	return nil
}

// main chain header with accumulated data, nil if the hash is unknown
func (h *Handler) chainHeaderByHash(hash blockdigest.Digest) (*blockrecord.ChainHeader, error) {
	value, err := h.chain.Fetch(chainstorage.BlockHashKey(hash))
	if nil != err || nil == value {
		return nil, err
	}
	return h.chain.FetchChainHeaderByHeight(value.Header.Height)
}

func (h *Handler) blockWithKernel(sig transactionrecord.Signature) (*block.HistoricalBlock, error) {
	_, headerHash, found, err := h.chain.FetchKernelByExcessSig(sig)
	if nil != err || !found {
		return nil, err
	}
	return h.chain.FetchBlockByHash(headerHash, false)
}

func (h *Handler) blockWithUtxo(commitment transactionrecord.Commitment) (*block.HistoricalBlock, error) {
	outputHash, found, err := h.chain.FetchUnspentOutputHashByCommitment(commitment)
	if nil != err || !found {
		return nil, err
	}
	info, found, err := h.chain.FetchOutput(outputHash)
	if nil != err || !found {
		return nil, err
	}
	return h.chain.FetchBlockByHash(info.HeaderHash, false)
}

// main chain first, then the orphan pool; nil if neither has it
func (h *Handler) blockFromAllChains(hash blockdigest.Digest) (*blockrecord.Block, error) {
	b, err := h.chain.FetchBlockByHash(hash, true)
	if nil != err {
		h.log.Warnf("cannot provide block: %s  error: %s", hash, err)
		b = nil
	}
	if nil != b {
		chainBlock, err := b.ToChainBlock()
		if nil != err {
			return nil, err
		}
		return chainBlock.Block, nil
	}

	value, err := h.chain.Fetch(chainstorage.OrphanBlockKey(hash))
	if nil != err {
		h.log.Warnf("cannot provide orphan: %s  error: %s", hash, err)
		return nil, nil
	}
	if nil == value {
		return nil, nil
	}
	return value.OrphanBlock, nil
}
