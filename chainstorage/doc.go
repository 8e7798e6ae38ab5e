// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainstorage - the persistent chain state
//
// All changes are described by a DbTransaction, an ordered list of
// write operations, and applied by Write inside a single storage
// transaction: either every operation takes effect or none does.
//
// Headers are keyed by height, block contents by header hash followed
// by the leaf position in the relevant range, so a prefix scan over a
// header hash returns a block's kernels, outputs or inputs in order.
//
// A block's spent output positions are merged into a single deleted
// bitmap kept in the metadata table; a position is in that bitmap
// exactly when an input row spending it exists.
package chainstorage
