// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inbound

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/chainstore/block"
	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/messagebus"
	"github.com/bitmark-inc/chainstore/peer/ratelimit"
	"github.com/bitmark-inc/chainstore/transactionrecord"
	"github.com/bitmark-inc/logger"
)

// limits
const (
	// most items a single request may name
	maxRequestItems = 100

	// how long a peer that cannot supply a block it announced is banned
	missingBlockBanDuration = 100 * time.Second

	defaultRequestRate   = 20
	defaultRequestBurst  = maxRequestItems
	defaultLimiterExpiry = 10 * time.Minute
)

// NodeID - identity of a remote peer, empty for local services
type NodeID string

// String - for logging
func (id NodeID) String() string {
	if "" == id {
		return "local services"
	}
	return string(id)
}

// MempoolTransactions - transactions found by excess signature and the
// signatures that matched nothing
type MempoolTransactions struct {
	Transactions []*transactionrecord.Transaction `json:"transactions"`
	NotFound     []transactionrecord.Signature    `json:"notFound"`
}

// Mempool - unconfirmed transactions
type Mempool interface {
	RetrieveByExcessSigs(ctx context.Context, sigs []transactionrecord.Signature) (*MempoolTransactions, error)
	InsertAll(ctx context.Context, transactions []*transactionrecord.Transaction) error
}

// Outbound - requests to remote peers
type Outbound interface {
	RequestTransactionsByExcessSigs(ctx context.Context, peer NodeID, sigs []transactionrecord.Signature) (*MempoolTransactions, error)

	// nil block if the peer does not have it
	RequestBlockByHash(ctx context.Context, peer NodeID, hash blockdigest.Digest) (*blockrecord.Block, error)

	PropagateBlock(ctx context.Context, newBlock *blockrecord.NewBlock, exclude []NodeID) error
}

// Connectivity - peer management
type Connectivity interface {
	BanPeer(ctx context.Context, peer NodeID, reason string) error
	BanPeerUntil(ctx context.Context, peer NodeID, duration time.Duration, reason string) error
}

// Config - request rate limits applied to each remote peer
type Config struct {
	RequestRate   float64       `gluamapper:"request_rate" json:"requestRate"`
	RequestBurst  int           `gluamapper:"request_burst" json:"requestBurst"`
	LimiterExpiry time.Duration `gluamapper:"limiter_expiry" json:"limiterExpiry"`
}

// DefaultConfig - limits for a new node
func DefaultConfig() Config {
	return Config{
		RequestRate:   defaultRequestRate,
		RequestBurst:  defaultRequestBurst,
		LimiterExpiry: defaultLimiterExpiry,
	}
}

// Handler - serves requests from remote peers and brings their
// announced blocks into the chain
type Handler struct {
	log          *logger.L
	chain        *block.BlockchainDatabase
	mempool      Mempool
	outbound     Outbound
	connectivity Connectivity
	events       *messagebus.BroadcastQueue

	// one new block at a time
	newBlockPermit *semaphore.Weighted

	limiters *ratelimit.Registry
}

// New - a handler over chain, events go to the given queue or to the
// process bus if nil
func New(chain *block.BlockchainDatabase, mempool Mempool, outbound Outbound, connectivity Connectivity, events *messagebus.BroadcastQueue, config Config) *Handler {
	if nil == events {
		events = messagebus.Bus.Events
	}
	if config.RequestBurst <= 0 {
		config.RequestBurst = defaultRequestBurst
	}
	if config.LimiterExpiry <= 0 {
		config.LimiterExpiry = defaultLimiterExpiry
	}
	limit := rate.Limit(config.RequestRate)
	if config.RequestRate <= 0 {
		limit = rate.Inf
	}

	return &Handler{
		log:            logger.New("inbound"),
		chain:          chain,
		mempool:        mempool,
		outbound:       outbound,
		connectivity:   connectivity,
		events:         events,
		newBlockPermit: semaphore.NewWeighted(1),
		limiters:       ratelimit.NewRegistry(limit, config.RequestBurst, config.LimiterExpiry),
	}
}
