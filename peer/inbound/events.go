// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inbound

import (
	"github.com/bitmark-inc/chainstore/block"
	"github.com/bitmark-inc/chainstore/blockrecord"
)

// event commands on the message bus
const (
	ValidBlockAdded          = "validBlockAdded"
	AddBlockValidationFailed = "addBlockValidationFailed"
	AddBlockErrored          = "addBlockErrored"
	BlockSyncComplete        = "blockSyncComplete"
	BlockSyncRewind          = "blockSyncRewind"
)

// BlockAddedEvent - item of ValidBlockAdded
type BlockAddedEvent struct {
	Block  *blockrecord.Block
	Result *block.AddResult
}

// BlockFailedEvent - item of AddBlockValidationFailed and
// AddBlockErrored
type BlockFailedEvent struct {
	Block      *blockrecord.Block
	SourcePeer NodeID
	Err        error
}

// SyncCompleteEvent - item of BlockSyncComplete
type SyncCompleteEvent struct {
	Tip            *blockrecord.ChainBlock
	StartingHeight uint64
}

// SyncRewindEvent - item of BlockSyncRewind
type SyncRewindEvent struct {
	Removed []*blockrecord.ChainBlock
}

// PublishSyncComplete - announce the end of a block sync
func (h *Handler) PublishSyncComplete(tip *blockrecord.ChainBlock, startingHeight uint64) {
	h.publish(BlockSyncComplete, &SyncCompleteEvent{
		Tip:            tip,
		StartingHeight: startingHeight,
	})
}

// PublishSyncRewind - announce blocks removed by a sync
func (h *Handler) PublishSyncRewind(removed []*blockrecord.ChainBlock) {
	h.publish(BlockSyncRewind, &SyncRewindEvent{
		Removed: removed,
	})
}

func (h *Handler) publish(command string, item interface{}) {
	if 0 == h.events.Send(command, item) {
		h.log.Debugf("no event subscribers, event: %s dropped", command)
	}
}
