// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messagebus - broadcast queues for events raised inside the
// node, e.g. blocks added or rejected
package messagebus
