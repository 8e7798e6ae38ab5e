// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package accumulator - merkle mountain ranges over block data
//
// Only the peaks of a range are persisted (a PrunedHashSet); each block
// restores a range from the previous block's peaks, appends its leaves
// and saves the new peaks.  Interior nodes commit to their position:
//
//	node(i) = Blake2b(BE64(i+1) ‖ left ‖ right)
//
// The output range additionally carries a roaring bitmap of spent leaf
// positions and its root commits to both.
package accumulator
