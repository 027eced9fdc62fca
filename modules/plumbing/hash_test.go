package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHashEx(t *testing.T) {
	h, err := NewHashEx("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	require.NoError(t, err)
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", h.String())

	_, err = NewHashEx("not-a-hash")
	require.Error(t, err)
	assert.IsType(t, &ErrBadObjectName{}, err)
}

func TestHashIsZero(t *testing.T) {
	assert.True(t, ZeroHash.IsZero())
	h := NewHash("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	assert.False(t, h.IsZero())
}

func TestHashesSort(t *testing.T) {
	a := NewHash("ffffffffffffffffffffffffffffffffffffffff")
	b := NewHash("0000000000000000000000000000000000000001")
	hs := []Hash{a, b}
	HashesSort(hs)
	assert.Equal(t, b, hs[0])
	assert.Equal(t, a, hs[1])
}

func TestValidateHashHex(t *testing.T) {
	assert.True(t, ValidateHashHex("da39a3ee5e6b4b0d3255bfef95601890afd80709"))
	assert.False(t, ValidateHashHex("short"))
	assert.False(t, ValidateHashHex("zz39a3ee5e6b4b0d3255bfef95601890afd80709"))
}

func TestHasherSum(t *testing.T) {
	h := NewHasher()
	_, _ = h.Write([]byte("blob 0\x00"))
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", h.Sum().String())
}

func TestHashShorten(t *testing.T) {
	h := NewHash("abcdef0000000000000000000000000000000000")
	assert.Equal(t, 6, h.Shorten())
	assert.Equal(t, "abcdef", h.Prefix())
}
