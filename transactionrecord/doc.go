// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package transactionrecord - outputs, inputs and kernels
//
// Commitments, public keys and signatures are opaque fixed size byte
// strings; nothing here verifies them.  Each record packs as
// Varint64(tag) followed by its fields in declaration order.
package transactionrecord
