// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - maintain the on-disk chain store
//
// This maintains a LevelDB database split into a series of tables.
// Each table is defined by a prefix byte that is obtained from the
// prefix tag in the struct defining the available tables.
//
// Notes:
// 1. each table has a single byte prefix
// 2. ‖            = concatenation of byte data
// 3. height       = big endian uint64 (8 bytes)
// 4. position     = big endian uint32 (4 bytes) output or kernel mmr leaf index
// 5. hash         = 32 byte Blake2b-256 digest
// 6. size         = big endian uint64 mmr leaf count
//
// Chain:
//
//	m ‖ key                    - metadata (chain height, best block, ...)
//	h ‖ height                 - block headers
//	a ‖ height                 - header accumulated data
//	p ‖ height                 - block accumulated data (mmr peaks, deleted positions)
//	b ‖ hash                   - block hash to height
//
// Transaction outputs, inputs and kernels:
//
//	u ‖ hash ‖ position        - outputs (full or pruned)
//	i ‖ hash ‖ position ‖ hash - inputs (compact)
//	x ‖ output hash            - output mmr position and output key
//	k ‖ hash ‖ position ‖ hash - kernels
//	e ‖ excess                 - kernel location by excess
//	s ‖ nonce ‖ signature      - kernel location by excess signature
//	K ‖ size                   - height of first header with kernel mmr size
//	U ‖ size                   - height and hash of first header with output mmr size
//	d ‖ position               - height and hash of block that spent the output
//	c ‖ commitment             - unspent output hash
//
// Orphans:
//
//	o ‖ hash                   - orphan blocks
//	O ‖ hash                   - orphan header accumulated data
//	t ‖ hash                   - orphan chain tips
//	P ‖ hash ‖ hash            - orphan parent to child
//
// Others:
//
//	M ‖ seed                   - first height a monero seed was seen
//	B ‖ hash                   - bad blocks
//	r ‖ timestamp              - reorg log
//	v ‖ height ‖ hash          - validator node registrations
//	V ‖ public key ‖ height    - validator node shard keys
//	T ‖ height ‖ hash          - code template registrations
//
// Write transactions are buffered in a leveldb.Batch that is written
// atomically on commit; reads inside the transaction see its own
// pending writes through an ordered memdb overlay.
package storage
