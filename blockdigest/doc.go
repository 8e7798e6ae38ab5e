// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockdigest - 256 bit Blake2b digests used for block,
// output, kernel and input hashes
package blockdigest
