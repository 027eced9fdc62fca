// Copyright (c) 2017- GitHub, Inc. and Git LFS contributors
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"
	"encoding/binary"

	"testing"

	"github.com/bsdmp/got/modules/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexFixtureObject struct {
	oid    plumbing.Hash
	offset uint32
	crc    uint32
}

// buildIndexBytes assembles a well-formed version 2 pack index for objs,
// which must already be in ascending id order, and returns it along with
// its packfile checksum.
func buildIndexBytes(t *testing.T, objs []indexFixtureObject) ([]byte, plumbing.Hash) {
	t.Helper()

	var fanout [256]uint32
	for _, o := range objs {
		for b := int(o.oid[0]); b < 256; b++ {
			fanout[b]++
		}
	}

	buf := &bytes.Buffer{}
	buf.Write(indexMagic[:])
	_ = binary.Write(buf, binary.BigEndian, uint32(indexVersion2))
	for _, c := range fanout {
		_ = binary.Write(buf, binary.BigEndian, c)
	}
	for _, o := range objs {
		buf.Write(o.oid[:])
	}
	for _, o := range objs {
		_ = binary.Write(buf, binary.BigEndian, o.crc)
	}
	for _, o := range objs {
		_ = binary.Write(buf, binary.BigEndian, o.offset)
	}

	packChecksum := plumbing.NewHash("0000000000000000000000000000000000000001")
	buf.Write(packChecksum[:])

	h := plumbing.NewHasher()
	_, _ = h.Write(buf.Bytes())
	idxChecksum := h.Sum()
	buf.Write(idxChecksum[:])

	return buf.Bytes(), packChecksum
}

func TestDecodeIndexRoundTrip(t *testing.T) {
	a := indexFixtureObject{oid: plumbing.NewHash("1111111111111111111111111111111111111111"), offset: 12, crc: 0xdeadbeef}
	b := indexFixtureObject{oid: plumbing.NewHash("2222222222222222222222222222222222222222"), offset: 512, crc: 0x1}

	raw, wantPackChecksum := buildIndexBytes(t, []indexFixtureObject{a, b})

	idx, err := DecodeIndex("pack-test.idx", bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Count())
	assert.Equal(t, wantPackChecksum, idx.PackChecksum())

	entry, err := idx.Entry(a.oid)
	require.NoError(t, err)
	assert.EqualValues(t, a.offset, entry.PackOffset)
	assert.Equal(t, a.crc, entry.CRC)

	_, err = idx.Entry(plumbing.NewHash("3333333333333333333333333333333333333333"))
	assert.True(t, IsNotFound(err))
}

func TestDecodeIndexBadMagic(t *testing.T) {
	raw := make([]byte, indexHeaderWidth+indexFanoutWidth+2*plumbing.HashSize)
	_, err := DecodeIndex("pack-test.idx", bytes.NewReader(raw))
	require.Error(t, err)
	assert.IsType(t, &plumbing.ErrBadIndex{}, err)
}

func TestDecodeIndexChecksumMismatch(t *testing.T) {
	a := indexFixtureObject{oid: plumbing.NewHash("1111111111111111111111111111111111111111"), offset: 12, crc: 1}
	raw, _ := buildIndexBytes(t, []indexFixtureObject{a})

	// Corrupt one byte of the trailing index checksum.
	raw[len(raw)-1] ^= 0xff

	_, err := DecodeIndex("pack-test.idx", bytes.NewReader(raw))
	require.Error(t, err)
	assert.IsType(t, &plumbing.ErrBadIndexChecksum{}, err)
}

func TestIndexSearchByPrefix(t *testing.T) {
	a := indexFixtureObject{oid: plumbing.NewHash("abcdef0000000000000000000000000000000000"), offset: 4, crc: 1}
	raw, _ := buildIndexBytes(t, []indexFixtureObject{a})

	idx, err := DecodeIndex("pack-test.idx", bytes.NewReader(raw))
	require.NoError(t, err)

	got, err := idx.Search(plumbing.NewHash("abcdef0000000000000000000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, a.oid, got)
}
