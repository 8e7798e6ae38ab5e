// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package accumulator

import (
	"hash"
	"math/bits"

	"github.com/datatrails/go-datatrails-merklelog/mmr"
	"golang.org/x/crypto/blake2b"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/util"
)

// PrunedHashSet - the persisted state of a range: its leaf count and
// the hashes of its peaks from left (highest) to right
type PrunedHashSet struct {
	LeafCount uint64               `json:"leafCount"`
	Peaks     []blockdigest.Digest `json:"peaks"`
}

// Pack - binary form of the set
func (set PrunedHashSet) Pack() util.Packed {
	buffer := util.Packed{}
	buffer = buffer.AppendUint64(set.LeafCount)
	buffer = buffer.AppendUint64(uint64(len(set.Peaks)))
	for _, p := range set.Peaks {
		buffer = buffer.AppendFixed(p[:])
	}
	return buffer
}

// UnpackPrunedHashSet - read a set written by Pack
func UnpackPrunedHashSet(u *util.Unpacker) PrunedHashSet {
	set := PrunedHashSet{
		LeafCount: u.Uint64(),
	}
	n := u.Uint64()
	if nil != u.Err() {
		return PrunedHashSet{}
	}
	if n != uint64(bits.OnesCount64(set.LeafCount)) {
		u.Fail(fault.ErrUnexpectedRecordType)
		return PrunedHashSet{}
	}
	set.Peaks = make([]blockdigest.Digest, n)
	for i := range set.Peaks {
		u.Fixed(set.Peaks[i][:])
	}
	return set
}

// MerkleMountainRange - append only accumulator restored from a
// PrunedHashSet
//
// only the peaks and the nodes appended during this session are held
type MerkleMountainRange struct {
	nodes  map[uint64][]byte
	size   uint64 // number of nodes
	leaves uint64
	added  map[blockdigest.Digest]uint64
	hasher hash.Hash
}

// NewMerkleMountainRange - restore a range from its pruned form
func NewMerkleMountainRange(set PrunedHashSet) (*MerkleMountainRange, error) {
	if len(set.Peaks) != bits.OnesCount64(set.LeafCount) {
		return nil, fault.ErrInvalidMmrPosition
	}
	hasher, _ := blake2b.New256(nil)
	m := &MerkleMountainRange{
		nodes:  make(map[uint64][]byte),
		size:   nodeCount(set.LeafCount),
		leaves: set.LeafCount,
		added:  make(map[blockdigest.Digest]uint64),
		hasher: hasher,
	}
	for i, position := range peakIndexes(set.LeafCount) {
		peak := set.Peaks[i]
		m.nodes[position] = peak[:]
	}
	return m, nil
}

// number of nodes in a range of n leaves
func nodeCount(leaves uint64) uint64 {
	return 2*leaves - uint64(bits.OnesCount64(leaves))
}

// zero based node indexes of the peaks of a range of n leaves, highest first
func peakIndexes(leaves uint64) []uint64 {
	peaks := make([]uint64, 0, bits.OnesCount64(leaves))
	offset := uint64(0)
	for height := 63; height >= 0; height -= 1 {
		treeLeaves := uint64(1) << uint(height)
		if 0 == leaves&treeLeaves {
			continue
		}
		treeSize := 2*treeLeaves - 1
		peaks = append(peaks, offset+treeSize-1)
		offset += treeSize
	}
	return peaks
}

// Get - node lookup for the mmr library
func (m *MerkleMountainRange) Get(i uint64) ([]byte, error) {
	value, ok := m.nodes[i]
	if !ok {
		return nil, fault.ErrInvalidMmrPosition
	}
	return value, nil
}

// Append - node storage for the mmr library
func (m *MerkleMountainRange) Append(value []byte) (uint64, error) {
	m.nodes[m.size] = value
	m.size += 1
	return m.size, nil
}

// Push - add a leaf hash, returning its leaf index
func (m *MerkleMountainRange) Push(leaf blockdigest.Digest) (uint64, error) {
	leafIndex := m.leaves
	value := make([]byte, blockdigest.Length)
	copy(value, leaf[:])
	if _, err := mmr.AddHashedLeaf(m, m.hasher, value); nil != err {
		return 0, err
	}
	m.leaves += 1
	if _, ok := m.added[leaf]; !ok {
		m.added[leaf] = leafIndex
	}
	m.prune()
	return leafIndex, nil
}

// drop nodes that can no longer take part in a merge
func (m *MerkleMountainRange) prune() {
	keep := make(map[uint64]struct{})
	for _, p := range peakIndexes(m.leaves) {
		keep[p] = struct{}{}
	}
	for i := range m.nodes {
		if _, ok := keep[i]; !ok {
			delete(m.nodes, i)
		}
	}
}

// LeafCount - number of leaves
func (m *MerkleMountainRange) LeafCount() uint64 {
	return m.leaves
}

// Size - number of nodes
func (m *MerkleMountainRange) Size() uint64 {
	return m.size
}

// FindLeafIndex - index of a leaf pushed since the range was restored
func (m *MerkleMountainRange) FindLeafIndex(leaf blockdigest.Digest) (uint64, bool) {
	i, ok := m.added[leaf]
	return i, ok
}

// PrunedHashSet - the current persistable state
func (m *MerkleMountainRange) PrunedHashSet() PrunedHashSet {
	set := PrunedHashSet{
		LeafCount: m.leaves,
		Peaks:     make([]blockdigest.Digest, 0, bits.OnesCount64(m.leaves)),
	}
	for _, p := range peakIndexes(m.leaves) {
		var d blockdigest.Digest
		copy(d[:], m.nodes[p])
		set.Peaks = append(set.Peaks, d)
	}
	return set
}

// Root - bag the peaks from right to left
//
// the root of an empty range is the hash of the empty string
func (m *MerkleMountainRange) Root() blockdigest.Digest {
	peaks := peakIndexes(m.leaves)
	if 0 == len(peaks) {
		return blockdigest.NewDigest()
	}
	root := m.nodes[peaks[len(peaks)-1]]
	for i := len(peaks) - 2; i >= 0; i -= 1 {
		d := blockdigest.NewDigest(m.nodes[peaks[i]], root)
		root = d[:]
	}
	var result blockdigest.Digest
	copy(result[:], root)
	return result
}
