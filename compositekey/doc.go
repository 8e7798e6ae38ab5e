// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package compositekey - fixed width database keys built by
// concatenating their components
//
// keys compare byte by byte so a range scan returns rows ordered by
// the leading component first, i.e. all rows for one header hash are
// contiguous and can be found with a prefix scan
package compositekey
