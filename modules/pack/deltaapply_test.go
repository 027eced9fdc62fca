// Copyright (c) 2017- GitHub, Inc. and Git LFS contributors
// SPDX-License-Identifier: MIT

package pack

import (
	"testing"

	"github.com/bsdmp/got/modules/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDeltaCopyAndInsert(t *testing.T) {
	base := []byte("hello\n")
	delta := []byte{
		0x06, // base size varint
		0x07, // result size varint
		0x90, 0x05, // COPY offset=0 size=5 ("hello")
		0x01, '!', // INSERT "!"
		0x91, 0x05, 0x01, // COPY offset=5 size=1 ("\n")
	}

	got, err := ApplyDelta(base, delta)
	require.NoError(t, err)
	assert.Equal(t, "hello!\n", string(got))
}

func TestApplyDeltaRejectsBaseSizeMismatch(t *testing.T) {
	delta := []byte{0x05, 0x00}
	_, err := ApplyDelta([]byte("hello\n"), delta)
	require.Error(t, err)
	assert.IsType(t, &plumbing.ErrBadDelta{}, err)
}

func TestApplyDeltaRejectsCopyPastBase(t *testing.T) {
	base := []byte("hi")
	delta := []byte{
		0x02, 0x01,
		0x90, 0x05, // COPY offset=0 size=5, base is only 2 bytes
	}
	_, err := ApplyDelta(base, delta)
	require.Error(t, err)
}

func TestApplyDeltaRejectsZeroCommandByte(t *testing.T) {
	delta := []byte{0x00, 0x00, 0x00}
	_, err := ApplyDelta(nil, delta)
	require.Error(t, err)
}

func TestDecodeDeltaVarintMultiByte(t *testing.T) {
	// 300 encodes as 0xAC 0x02: low 7 bits 0x2c with continuation, then 0x02.
	v, rest := decodeDeltaVarint([]byte{0xac, 0x02, 0xff})
	assert.EqualValues(t, 300, v)
	assert.Equal(t, []byte{0xff}, rest)
}
