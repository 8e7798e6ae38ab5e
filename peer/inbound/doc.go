// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package inbound handles what remote peers send to the node
//
// A compact block announcement carries the header, the coinbase and
// the excess signatures of the other kernels. The handler rebuilds the
// block from the mempool, asks the announcing peer for transactions the
// mempool lacks and falls back to the full block when rebuilding fails.
// Complete blocks are added to the chain and, if they moved the tip,
// announced to every other peer.
//
// Queries from peers are answered by HandleRequest, which limits each
// peer to a steady request rate.
package inbound

//go:generate mockgen -destination=mocks/inbound.go -package=mocks github.com/bitmark-inc/chainstore/peer/inbound Mempool,Outbound,Connectivity
