// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockrecord - headers, blocks and the data accumulated
// alongside them
//
// Headers hash as Blake2b-256 over their packed form.  A block
// header's hash is the identity of the block.
package blockrecord
