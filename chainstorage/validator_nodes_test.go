// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/chainstorage"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

func (b *chainBuilder) validatorOutput(publicKey transactionrecord.PublicKey) *transactionrecord.Output {
	output := b.output(transactionrecord.ValidatorNodeOutput)
	output.Features.SideChain = &transactionrecord.SideChainFeature{
		ValidatorNode: &transactionrecord.ValidatorNodeRegistration{PublicKey: publicKey},
	}
	return output
}

func (b *chainBuilder) templateOutput(name string) *transactionrecord.Output {
	output := b.output(transactionrecord.CodeTemplateOutput)
	output.Features.SideChain = &transactionrecord.SideChainFeature{
		Template: &transactionrecord.TemplateRegistration{
			Name:      name,
			Version:   1,
			BinaryURL: "https://example.com/" + name,
		},
	}
	return output
}

func TestValidatorNodeRegistration(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)
	b.add(nil)

	first := transactionrecord.PublicKey{1}
	second := transactionrecord.PublicKey{2}
	registration := b.validatorOutput(first)
	b.add(nil, registration, b.validatorOutput(second))

	// epoch length 10: registrations at height 1 are visible from epoch 1
	nodes, err := db.FetchActiveValidatorNodes(5)
	assert.Nil(t, err, "epoch 0")
	assert.Equal(t, 0, len(nodes), "registration active in its own epoch")

	nodes, err = db.FetchActiveValidatorNodes(15)
	assert.Nil(t, err, "epoch 1")
	require.Equal(t, 2, len(nodes), "wrong active count")
	assert.True(t, string(nodes[0].ShardKey[:]) < string(nodes[1].ShardKey[:]), "not ordered by shard key")

	shardKey, found, err := db.GetShardKey(15, first)
	assert.Nil(t, err, "shard key")
	assert.True(t, found, "shard key missing")
	expected := chainstorage.DeriveShardKey(first, nil, 0, 0, b.tip.Block.Header.PrevHash)
	assert.Equal(t, expected, shardKey, "wrong shard key")

	// validity of 5 epochs: gone by epoch 7
	nodes, err = db.FetchActiveValidatorNodes(75)
	assert.Nil(t, err, "expired")
	assert.Equal(t, 0, len(nodes), "expired registration active")

	// spending the registration removes it
	b.add([]*transactionrecord.Input{spend(registration)})
	_, found, err = db.GetShardKey(15, first)
	assert.Nil(t, err, "spent shard key")
	assert.False(t, found, "spent registration kept")

	_, found, err = db.GetShardKey(15, second)
	assert.Nil(t, err, "other shard key")
	assert.True(t, found, "unrelated registration removed")
}

func TestShardKeyDerivation(t *testing.T) {
	previous := blockdigest.NewDigest([]byte("previous"))
	hash := blockdigest.NewDigest([]byte("block"))
	key := transactionrecord.PublicKey{0: 0, 31: 3}

	fresh := chainstorage.DeriveShardKey(key, nil, 1, 0, hash)
	assert.NotEqual(t, previous, fresh, "no previous key must derive")

	assert.Equal(t, previous, chainstorage.DeriveShardKey(key, &previous, 1, 0, hash), "zero interval reshuffled")
	assert.Equal(t, previous, chainstorage.DeriveShardKey(key, &previous, 1, 5, hash), "off interval reshuffled")

	// 3 + 2 is a multiple of 5
	assert.Equal(t, fresh, chainstorage.DeriveShardKey(key, &previous, 2, 5, hash), "on interval kept old key")
}

func TestTemplateRegistrations(t *testing.T) {
	db := openTestStore(t, testOptions())
	b := newChainBuilder(t, db)
	b.add(nil)
	b.add(nil, b.templateOutput("one"))
	b.add(nil)
	third := b.add(nil, b.templateOutput("three"), b.templateOutput("four"))

	entries, err := db.FetchTemplateRegistrations(0, 3)
	assert.Nil(t, err, "all")
	require.Equal(t, 3, len(entries), "wrong registration count")
	assert.Equal(t, "one", entries[0].Registration.Name, "wrong first registration")
	assert.Equal(t, uint64(1), entries[0].BlockHeight, "wrong height")

	entries, err = db.FetchTemplateRegistrations(2, 3)
	assert.Nil(t, err, "range")
	assert.Equal(t, 2, len(entries), "range ignored")
	assert.Equal(t, third.Hash(), entries[0].BlockHash, "wrong block hash")

	_, err = db.FetchTemplateRegistrations(3, 2)
	assert.True(t, fault.IsErrInvalid(err), "reversed range: %v", err)

	// removing the block removes its registrations
	require.Nil(t, db.Write(chainstorage.NewDbTransaction().DeleteTipBlock(third.Hash(), 3)), "delete tip")
	entries, err = db.FetchTemplateRegistrations(0, 3)
	assert.Nil(t, err, "after delete")
	assert.Equal(t, 1, len(entries), "registrations of deleted block kept")
}
