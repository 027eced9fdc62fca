// Copyright (c) 2017- GitHub, Inc. and Git LFS contributors
// SPDX-License-Identifier: MIT

package pack

import (
	"bufio"
	"io"

	"github.com/bsdmp/got/modules/plumbing"
	"github.com/bsdmp/got/modules/streamio"
)

// maxDeltaDepth bounds how many OFS_DELTA links resolveAt walks within one
// packfile before resolution gives up. Real packs built by git never
// approach it; the cap turns an adversarially deep OFS_DELTA chain into an
// error instead of unbounded recursion. A REF_DELTA base is resolved
// through the Resolver, which starts a fresh count, so the cap does not
// bound a chain that passes through REF_DELTA links.
const maxDeltaDepth = 50

// Resolver resolves an arbitrary object id to its fully-materialized
// content and kind, independent of any particular packfile. A REF_DELTA
// entry names its base this way because the base object may live in a
// different pack, or as a loose object, rather than the same packfile as
// the delta itself.
type Resolver interface {
	ResolveByHash(oid plumbing.Hash) ([]byte, plumbing.ObjectType, error)
}

// entryHeader is the decoded form of a packed object's variable-length
// header: a continuation-bit encoded kind and size, per gitformat-pack.
type entryHeader struct {
	Kind plumbing.ObjectType
	Size uint64
}

// decodeEntryHeader reads one packed object header from r: the first byte
// carries the 3-bit kind in bits 4-6 and the low 4 bits of the size: each
// subsequent byte, while its own high bit is set, contributes 7 more bits
// to the size, least-significant group first.
func decodeEntryHeader(r io.ByteReader) (entryHeader, error) {
	b, err := r.ReadByte()
	if err != nil {
		return entryHeader{}, err
	}

	kind, err := plumbing.PackedObjectType((b >> 4) & 0x7)
	if err != nil {
		return entryHeader{}, err
	}

	size := uint64(b & 0x0f)
	shift := uint(4)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return entryHeader{}, err
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
	}

	return entryHeader{Kind: kind, Size: size}, nil
}

// decodeOffsetDeltaDistance reads the negative, base-128 offset encoding
// used by OFS_DELTA entries. Unlike decodeEntryHeader's size encoding, each
// continuation byte adds one before shifting, so that every representable
// distance has a single canonical encoding.
func decodeOffsetDeltaDistance(r io.ByteReader) (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	distance := uint64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		distance++
		distance = (distance << 7) | uint64(b&0x7f)
	}

	return distance, nil
}

// resolveAt decodes and, if necessary, recursively resolves the delta chain
// rooted at the packed entry beginning at offset, returning its fully
// materialized content and concrete object kind.
func (p *Packfile) resolveAt(offset int64, resolver Resolver, depth int) ([]byte, plumbing.ObjectType, error) {
	if depth > maxDeltaDepth {
		return nil, plumbing.InvalidObject, &plumbing.ErrDeltaChainTooDeep{Limit: maxDeltaDepth}
	}

	br := bufio.NewReader(io.NewSectionReader(p.r, offset, p.size-offset))

	hdr, err := decodeEntryHeader(br)
	if err != nil {
		return nil, plumbing.InvalidObject, &plumbing.ErrBadPackFile{Path: p.path, Reason: "bad entry header: " + err.Error()}
	}

	switch hdr.Kind {
	case plumbing.CommitObject, plumbing.TreeObject, plumbing.BlobObject, plumbing.TagObject:
		payload, err := inflate(br, hdr.Size)
		if err != nil {
			return nil, plumbing.InvalidObject, err
		}
		return payload, hdr.Kind, nil

	case plumbing.OffsetDeltaObject:
		distance, err := decodeOffsetDeltaDistance(br)
		if err != nil {
			return nil, plumbing.InvalidObject, &plumbing.ErrBadPackFile{Path: p.path, Reason: "bad offset-delta distance: " + err.Error()}
		}
		baseOffset := offset - int64(distance)
		if distance == 0 || baseOffset < 0 {
			return nil, plumbing.InvalidObject, &plumbing.ErrBadPackFile{Path: p.path, Reason: "offset-delta base lands outside packfile"}
		}

		base, kind, err := p.resolveAt(baseOffset, resolver, depth+1)
		if err != nil {
			return nil, plumbing.InvalidObject, err
		}

		delta, err := inflate(br, hdr.Size)
		if err != nil {
			return nil, plumbing.InvalidObject, err
		}

		result, err := ApplyDelta(base, delta)
		if err != nil {
			return nil, plumbing.InvalidObject, err
		}
		return result, kind, nil

	case plumbing.RefDeltaObject:
		var baseOID plumbing.Hash
		if _, err := io.ReadFull(br, baseOID[:]); err != nil {
			return nil, plumbing.InvalidObject, &plumbing.ErrBadPackFile{Path: p.path, Reason: "truncated ref-delta base id"}
		}

		base, kind, err := resolver.ResolveByHash(baseOID)
		if err != nil {
			return nil, plumbing.InvalidObject, err
		}

		delta, err := inflate(br, hdr.Size)
		if err != nil {
			return nil, plumbing.InvalidObject, err
		}

		result, err := ApplyDelta(base, delta)
		if err != nil {
			return nil, plumbing.InvalidObject, err
		}
		return result, kind, nil
	}

	return nil, plumbing.InvalidObject, &plumbing.ErrUnsupportedObjectKind{}
}

// inflate decompresses exactly size bytes of zlib-compressed payload from r.
func inflate(r io.Reader, size uint64) ([]byte, error) {
	zr, err := streamio.GetZlibReader(r)
	if err != nil {
		return nil, &plumbing.ErrBadObject{Reason: "bad zlib stream: " + err.Error()}
	}
	defer streamio.PutZlibReader(zr)

	buf := make([]byte, size)
	if _, err := io.ReadFull(zr, buf); err != nil {
		return nil, &plumbing.ErrBadObject{Reason: "truncated zlib stream: " + err.Error()}
	}
	return buf, nil
}
