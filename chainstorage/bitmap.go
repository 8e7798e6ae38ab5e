// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/bitmark-inc/chainstore/accumulator"
	"github.com/bitmark-inc/chainstore/storage"
)

// DeletedBitmapModel - the chain wide set of spent output positions,
// loaded and saved through a write transaction
type DeletedBitmapModel struct {
	tables *storage.Tables
	bitmap *roaring.Bitmap
	dirty  bool
}

// LoadDeletedBitmapModel - read the set, empty if never written
func LoadDeletedBitmapModel(tables *storage.Tables, r storage.Reader) (*DeletedBitmapModel, error) {
	bitmap, err := fetchDeletedBitmap(tables, r)
	if nil != err {
		return nil, err
	}
	return &DeletedBitmapModel{
		tables: tables,
		bitmap: bitmap,
	}, nil
}

// Bitmap - the current set
func (model *DeletedBitmapModel) Bitmap() *roaring.Bitmap {
	return model.bitmap
}

// Merge - add positions
func (model *DeletedBitmapModel) Merge(deleted *roaring.Bitmap) {
	model.bitmap.Or(deleted)
	model.dirty = true
}

// Remove - take positions out
func (model *DeletedBitmapModel) Remove(deleted *roaring.Bitmap) {
	model.bitmap.AndNot(deleted)
	model.dirty = true
}

// Save - write the set if it changed
func (model *DeletedBitmapModel) Save(w *storage.WriteTxn) {
	if !model.dirty {
		return
	}
	model.bitmap.RunOptimize()
	setMetadata(model.tables, w, DeletedBitmapKey, accumulator.SerializeBitmap(model.bitmap))
	model.dirty = false
}
