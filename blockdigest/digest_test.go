// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdigest_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/fault"
)

func TestScanFmt(t *testing.T) {
	d := blockdigest.NewDigest([]byte("some data"))
	stringDigest := d.String()

	var scanned blockdigest.Digest
	n, err := fmt.Sscan(stringDigest, &scanned)
	assert.Nil(t, err, "scan error")
	assert.Equal(t, 1, n, "wrong scan count")
	assert.Equal(t, d, scanned, "scanned digest differs")

	assert.Equal(t, "<Blake2b:"+stringDigest+">", fmt.Sprintf("%#v", d), "wrong go string")
}

func TestJSON(t *testing.T) {
	d := blockdigest.NewDigest([]byte("json"))
	buffer, err := json.Marshal(d)
	assert.Nil(t, err, "marshal error")

	var decoded blockdigest.Digest
	err = json.Unmarshal(buffer, &decoded)
	assert.Nil(t, err, "unmarshal error")
	assert.Equal(t, d, decoded, "json round trip changed digest")
}

func TestNewDigestConcatenates(t *testing.T) {
	whole := blockdigest.NewDigest([]byte("abcdef"))
	parts := blockdigest.NewDigest([]byte("abc"), []byte("def"))
	assert.Equal(t, whole, parts, "parts should hash as their concatenation")
	assert.False(t, whole.IsZero(), "digest should not be zero")
	assert.True(t, blockdigest.Digest{}.IsZero(), "zero digest not detected")
}

func TestDomainHasherSeparatesLabels(t *testing.T) {
	a := blockdigest.NewDomainHasher("output").Bytes([]byte{1}).Digest()
	b := blockdigest.NewDomainHasher("kernel").Bytes([]byte{1}).Digest()
	assert.NotEqual(t, a, b, "labels must separate digests")

	// length prefix prevents ambiguous concatenation
	c := blockdigest.NewDomainHasher("x").Bytes([]byte{1, 2}).Bytes(nil).Digest()
	e := blockdigest.NewDomainHasher("x").Bytes([]byte{1}).Bytes([]byte{2}).Digest()
	assert.NotEqual(t, c, e, "length prefix missing")
}

func TestDigestFromBytes(t *testing.T) {
	var d blockdigest.Digest
	err := blockdigest.DigestFromBytes(&d, []byte{1, 2, 3})
	assert.Equal(t, fault.ErrTruncatedRecord, err, "short buffer accepted")

	buffer := make([]byte, blockdigest.Length)
	buffer[0] = 0x7f
	err = blockdigest.DigestFromBytes(&d, buffer)
	assert.Nil(t, err, "valid buffer rejected")
	assert.Equal(t, byte(0x7f), d[0], "wrong first byte")
}
