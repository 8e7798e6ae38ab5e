// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package block - chain rules on top of the chain storage backend
//
// Every new block passes through the orphan pool. Once its parent has
// accumulated data the block gets some too, and so does any orphan
// that was waiting on it. Whenever an orphan chain tip has more
// accumulated difficulty than the main chain tip, the main chain is
// rewound to the fork point and the orphan chain applied; the blocks
// that were removed go back into the pool.
package block
