// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package accumulator

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/fault"
)

// MutableMmr - output range: leaves are never removed but may be marked
// deleted in a bitmap
type MutableMmr struct {
	mmr     *MerkleMountainRange
	deleted *roaring.Bitmap
}

// NewMutableMmr - restore an output range and its deleted set
//
// the bitmap is cloned so the caller's copy is never changed
func NewMutableMmr(set PrunedHashSet, deleted *roaring.Bitmap) (*MutableMmr, error) {
	m, err := NewMerkleMountainRange(set)
	if nil != err {
		return nil, err
	}
	if nil == deleted {
		deleted = roaring.New()
	} else {
		deleted = deleted.Clone()
	}
	return &MutableMmr{
		mmr:     m,
		deleted: deleted,
	}, nil
}

// Push - add a leaf hash
func (m *MutableMmr) Push(leaf blockdigest.Digest) (uint64, error) {
	return m.mmr.Push(leaf)
}

// Delete - mark a leaf as spent
//
// fails for a leaf beyond the end of the range or one already deleted
func (m *MutableMmr) Delete(leafIndex uint64) error {
	if leafIndex >= m.mmr.LeafCount() || leafIndex > 0xffffffff {
		return errors.Wrapf(fault.ErrInvalidMmrPosition, "delete leaf: %d  leaf count: %d", leafIndex, m.mmr.LeafCount())
	}
	if !m.deleted.CheckedAdd(uint32(leafIndex)) {
		return errors.Wrapf(fault.ErrInvalidMmrPosition, "leaf: %d already deleted", leafIndex)
	}
	return nil
}

// Compress - run optimise the deleted set
func (m *MutableMmr) Compress() {
	m.deleted.RunOptimize()
}

// Deleted - the deleted set
func (m *MutableMmr) Deleted() *roaring.Bitmap {
	return m.deleted
}

// SetDeleted - replace the deleted set
func (m *MutableMmr) SetDeleted(deleted *roaring.Bitmap) {
	m.deleted = deleted.Clone()
}

// LeafCount - number of leaves including deleted ones
func (m *MutableMmr) LeafCount() uint64 {
	return m.mmr.LeafCount()
}

// FindLeafIndex - index of a leaf pushed this session
func (m *MutableMmr) FindLeafIndex(leaf blockdigest.Digest) (uint64, bool) {
	return m.mmr.FindLeafIndex(leaf)
}

// PrunedHashSet - persistable peaks of the underlying range
func (m *MutableMmr) PrunedHashSet() PrunedHashSet {
	return m.mmr.PrunedHashSet()
}

// Root - commits to the range and to the deleted set
func (m *MutableMmr) Root() blockdigest.Digest {
	root := m.mmr.Root()
	return blockdigest.NewDigest(root[:], SerializeBitmap(m.deleted))
}
