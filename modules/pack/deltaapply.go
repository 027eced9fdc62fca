// Copyright (c) 2017- GitHub, Inc. and Git LFS contributors
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"

	"github.com/bsdmp/got/modules/plumbing"
)

// maxCopySize is the value a zero-encoded copy size byte expands to: 0x10000
// as specified by the pack format, not zero.
const maxCopySize = 0x10000

var copyOffsetBits = []struct {
	mask  byte
	shift uint
}{
	{0x01, 0},
	{0x02, 8},
	{0x04, 16},
	{0x08, 24},
}

var copySizeBits = []struct {
	mask  byte
	shift uint
}{
	{0x10, 0},
	{0x20, 8},
	{0x40, 16},
}

// decodeDeltaVarint reads one of the two size varints that open a delta
// stream: 7 bits per byte, least-significant group first, continuation
// signaled by the high bit.
func decodeDeltaVarint(b []byte) (uint64, []byte) {
	var v uint64
	var shift uint
	for len(b) > 0 {
		c := b[0]
		b = b[1:]
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			break
		}
		shift += 7
	}
	return v, b
}

// ApplyDelta reconstructs an object's content by applying the copy/insert
// instruction stream in delta to the bytes of its resolved base object, per
// the pack format's patch-delta encoding: the stream opens with the
// expected base and result sizes (each a delta varint), followed by a
// sequence of COPY instructions (high bit of the command byte set; the
// remaining 7 bits select which of 4 little-endian offset bytes and 3
// little-endian size bytes follow, any omitted byte defaulting to zero, a
// zero-encoded size meaning 0x10000) and INSERT instructions (high bit
// clear, a non-zero command byte giving a literal byte count to copy
// straight from the delta stream). A command byte of zero is never valid.
func ApplyDelta(base, delta []byte) ([]byte, error) {
	baseSize, rest := decodeDeltaVarint(delta)
	if baseSize != uint64(len(base)) {
		return nil, &plumbing.ErrBadDelta{Reason: "base size does not match resolved base object"}
	}

	resultSize, rest := decodeDeltaVarint(rest)

	out := bytes.NewBuffer(make([]byte, 0, resultSize))

	for len(rest) > 0 {
		cmd := rest[0]
		rest = rest[1:]

		switch {
		case cmd&0x80 != 0:
			var offset, size uint64
			for _, o := range copyOffsetBits {
				if cmd&o.mask != 0 {
					if len(rest) == 0 {
						return nil, &plumbing.ErrBadDelta{Reason: "truncated copy offset"}
					}
					offset |= uint64(rest[0]) << o.shift
					rest = rest[1:]
				}
			}
			for _, s := range copySizeBits {
				if cmd&s.mask != 0 {
					if len(rest) == 0 {
						return nil, &plumbing.ErrBadDelta{Reason: "truncated copy size"}
					}
					size |= uint64(rest[0]) << s.shift
					rest = rest[1:]
				}
			}
			if size == 0 {
				size = maxCopySize
			}
			if offset+size < offset || offset+size > uint64(len(base)) {
				return nil, &plumbing.ErrBadDelta{Reason: "copy runs past end of base object"}
			}
			out.Write(base[offset : offset+size])

		case cmd != 0:
			size := int(cmd)
			if len(rest) < size {
				return nil, &plumbing.ErrBadDelta{Reason: "truncated insert"}
			}
			out.Write(rest[:size])
			rest = rest[size:]

		default:
			return nil, &plumbing.ErrBadDelta{Reason: "command byte 0 is never valid"}
		}
	}

	if uint64(out.Len()) != resultSize {
		return nil, &plumbing.ErrBadDelta{Reason: "result size does not match declared size"}
	}

	return out.Bytes(), nil
}
