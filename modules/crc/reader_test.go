package crc

import (
	"bytes"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRangeMatches(t *testing.T) {
	data := []byte("pack entry payload bytes")
	want := crc32.ChecksumIEEE(data[5:15])

	err := VerifyRange(bytes.NewReader(data), 5, 10, want)
	require.NoError(t, err)
}

func TestVerifyRangeMismatch(t *testing.T) {
	data := []byte("pack entry payload bytes")

	err := VerifyRange(bytes.NewReader(data), 5, 10, 0xdeadbeef)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}
