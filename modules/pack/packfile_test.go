// Copyright (c) 2017- GitHub, Inc. and Git LFS contributors
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/bsdmp/got/modules/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeEntryHeader writes a packed object header for the inverse of
// decodeEntryHeader: these test helpers exist only to build fixture packs,
// the production code path never writes packs.
func encodeEntryHeader(kind byte, size uint64) []byte {
	first := byte(size & 0x0f)
	size >>= 4
	if size > 0 {
		first |= 0x80
	}
	first |= kind << 4
	out := []byte{first}
	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// encodeOffsetDeltaDistance is the inverse of decodeOffsetDeltaDistance: the
// final, least-significant 7-bit group is computed first and carries no
// continuation bit; each group prepended ahead of it subtracts one before
// masking, mirroring the "+1 on continuation" canonicalization the decoder
// undoes.
func encodeOffsetDeltaDistance(distance uint64) []byte {
	buf := []byte{byte(distance & 0x7f)}
	for distance >>= 7; distance != 0; distance >>= 7 {
		distance--
		buf = append(buf, byte(0x80|(distance&0x7f)))
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

func deflate(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func deltaBytes(baseSize, resultSize uint64, ops []byte) []byte {
	out := append(encodeDeltaVarint(baseSize), encodeDeltaVarint(resultSize)...)
	return append(out, ops...)
}

func encodeDeltaVarint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

// packFixture is an in-memory pack built from hand-assembled entries, paired
// with the index that describes it.
type packFixture struct {
	data []byte
}

func newPackFixtureWriter() *packFixture {
	pf := &packFixture{data: make([]byte, 12)}
	copy(pf.data[0:4], packMagic[:])
	binary.BigEndian.PutUint32(pf.data[4:8], 2)
	return pf
}

func (pf *packFixture) addPlainEntry(t *testing.T, kind byte, payload []byte) (offset int64) {
	offset = int64(len(pf.data))
	pf.data = append(pf.data, encodeEntryHeader(kind, uint64(len(payload)))...)
	pf.data = append(pf.data, deflate(t, payload)...)
	return offset
}

func (pf *packFixture) addOffsetDeltaEntry(t *testing.T, baseOffset int64, delta []byte) (offset int64) {
	offset = int64(len(pf.data))
	pf.data = append(pf.data, encodeEntryHeader(6, uint64(len(delta)))...)
	pf.data = append(pf.data, encodeOffsetDeltaDistance(uint64(offset-baseOffset))...)
	pf.data = append(pf.data, deflate(t, delta)...)
	return offset
}

func (pf *packFixture) addRefDeltaEntry(t *testing.T, base plumbing.Hash, delta []byte) (offset int64) {
	offset = int64(len(pf.data))
	pf.data = append(pf.data, encodeEntryHeader(7, uint64(len(delta)))...)
	pf.data = append(pf.data, base[:]...)
	pf.data = append(pf.data, deflate(t, delta)...)
	return offset
}

func (pf *packFixture) finish(t *testing.T, objects []indexFixtureObject) (*Packfile, *Index) {
	t.Helper()
	pack, err := DecodePackfile("fixture.pack", bytes.NewReader(pf.data))
	require.NoError(t, err)

	raw, _ := buildIndexBytes(t, objects)
	idx, err := DecodeIndex("fixture.idx", bytes.NewReader(raw))
	require.NoError(t, err)
	pack.idx = idx
	return pack, idx
}

func TestPackfileResolvesPlainObject(t *testing.T) {
	pf := newPackFixtureWriter()
	blobOID := plumbing.NewHash("1111111111111111111111111111111111111111")
	offset := pf.addPlainEntry(t, 3, []byte("hello\n"))

	pack, _ := pf.finish(t, []indexFixtureObject{{oid: blobOID, offset: uint32(offset), crc: 1}})

	data, kind, err := pack.Object(blobOID, pack)
	require.NoError(t, err)
	assert.Equal(t, plumbing.BlobObject, kind)
	assert.Equal(t, "hello\n", string(data))
}

func TestPackfileResolvesOffsetDeltaChain(t *testing.T) {
	pf := newPackFixtureWriter()
	baseOID := plumbing.NewHash("1111111111111111111111111111111111111111")
	deltaOID := plumbing.NewHash("2222222222222222222222222222222222222222")

	baseOffset := pf.addPlainEntry(t, 3, []byte("hello\n"))

	delta := deltaBytes(6, 7, []byte{
		0x90, 0x05, // COPY offset=0 size=5 ("hello")
		0x01, '!', // INSERT "!"
		0x91, 0x05, 0x01, // COPY offset=5 size=1 ("\n")
	})
	deltaOffset := pf.addOffsetDeltaEntry(t, baseOffset, delta)

	pack, _ := pf.finish(t, []indexFixtureObject{
		{oid: baseOID, offset: uint32(baseOffset), crc: 1},
		{oid: deltaOID, offset: uint32(deltaOffset), crc: 2},
	})

	data, kind, err := pack.Object(deltaOID, pack)
	require.NoError(t, err)
	assert.Equal(t, plumbing.BlobObject, kind)
	assert.Equal(t, "hello!\n", string(data))
}

func TestPackfileExists(t *testing.T) {
	pf := newPackFixtureWriter()
	oid := plumbing.NewHash("1111111111111111111111111111111111111111")
	offset := pf.addPlainEntry(t, 3, []byte("x"))
	pack, _ := pf.finish(t, []indexFixtureObject{{oid: oid, offset: uint32(offset), crc: 1}})

	assert.NoError(t, pack.Exists(oid))
	assert.True(t, IsNotFound(pack.Exists(plumbing.NewHash("ffffffffffffffffffffffffffffffffffffffff"))))
}
