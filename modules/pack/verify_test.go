// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package pack

import (
	"hash/crc32"
	"testing"

	"github.com/bsdmp/got/modules/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyEntryCRCsAllMatch(t *testing.T) {
	pf := newPackFixtureWriter()
	oidA := plumbing.NewHash("1111111111111111111111111111111111111111")
	oidB := plumbing.NewHash("2222222222222222222222222222222222222222")

	offsetA := pf.addPlainEntry(t, 3, []byte("hello\n"))
	entryABytes := append([]byte(nil), pf.data[offsetA:]...)

	offsetB := pf.addPlainEntry(t, 2, []byte("world\n"))
	entryBBytes := append([]byte(nil), pf.data[offsetB:]...)

	// Real packfiles end in a 20-byte trailer (the SHA-1 of everything
	// before it); VerifyEntryCRCs bounds the last entry's extent against
	// it rather than against EOF.
	pf.data = append(pf.data, make([]byte, plumbing.HashSize)...)

	pack, _ := pf.finish(t, []indexFixtureObject{
		{oid: oidA, offset: uint32(offsetA), crc: crc32.ChecksumIEEE(entryABytes)},
		{oid: oidB, offset: uint32(offsetB), crc: crc32.ChecksumIEEE(entryBBytes)},
	})

	var seen []plumbing.Hash
	err := pack.VerifyEntryCRCs(func(entry *IndexEntry, verr error) error {
		require.NoError(t, verr)
		seen = append(seen, entry.OID)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []plumbing.Hash{oidA, oidB}, seen)
}

func TestVerifyEntryCRCsDetectsMismatch(t *testing.T) {
	pf := newPackFixtureWriter()
	oid := plumbing.NewHash("1111111111111111111111111111111111111111")
	offset := pf.addPlainEntry(t, 3, []byte("hello\n"))
	pf.data = append(pf.data, make([]byte, plumbing.HashSize)...)

	pack, _ := pf.finish(t, []indexFixtureObject{
		{oid: oid, offset: uint32(offset), crc: 0xdeadbeef},
	})

	err := pack.VerifyEntryCRCs(func(entry *IndexEntry, verr error) error {
		assert.Error(t, verr)
		assert.IsType(t, &plumbing.ErrBadPackFile{}, verr)
		return nil
	})
	require.NoError(t, err)
}
