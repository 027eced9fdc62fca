// Copyright (c) 2017- GitHub, Inc. and Git LFS contributors
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/bsdmp/got/modules/plumbing"
)

var packMagic = [4]byte{'P', 'A', 'C', 'K'}

// Packfile encapsulates access to the objects encoded in a single
// "pack-*.pack" file, resolving delta chains against the corresponding
// "pack-*.idx" as needed.
type Packfile struct {
	// Version is the packfile format version; git has only ever defined
	// version 2.
	Version uint32
	// Objects is the total number of objects recorded in the packfile
	// header.
	Objects uint32

	path string
	size int64
	idx  *Index
	r    io.ReaderAt
}

// Close closes the packfile and its index, if the underlying data streams
// are closeable.
func (p *Packfile) Close() error {
	var iErr error
	if p.idx != nil {
		iErr = p.idx.Close()
	}
	if c, ok := p.r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return iErr
}

// Exists reports whether name is present in this packfile's index.
func (p *Packfile) Exists(name plumbing.Hash) error {
	if _, err := p.idx.Entry(name); err != nil {
		return err
	}
	return nil
}

// Search resolves a possibly-abbreviated prefix against this packfile's
// index.
func (p *Packfile) Search(prefix plumbing.Hash) (plumbing.Hash, error) {
	return p.idx.Search(prefix)
}

// Object resolves name to its fully materialized content and object kind,
// walking any OFS_DELTA/REF_DELTA chain required to do so. resolver is
// consulted for REF_DELTA bases, which may live outside this packfile
// entirely.
func (p *Packfile) Object(name plumbing.Hash, resolver Resolver) ([]byte, plumbing.ObjectType, error) {
	entry, err := p.idx.Entry(name)
	if err != nil {
		return nil, plumbing.InvalidObject, err
	}
	return p.resolveAt(int64(entry.PackOffset), resolver, 0)
}

// ResolveByHash implements Resolver against this single packfile: it is
// used when a REF_DELTA's base happens to live in the same pack as the
// delta entry itself.
func (p *Packfile) ResolveByHash(name plumbing.Hash) ([]byte, plumbing.ObjectType, error) {
	return p.Object(name, p)
}

// DecodePackfile opens the packfile given by r for reading. It verifies the
// 12-byte header but does not decode or verify any object entries; name is
// used only to annotate errors and is typically the packfile's path.
func DecodePackfile(name string, r io.ReaderAt) (*Packfile, error) {
	var header [12]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return nil, &plumbing.ErrBadPackFile{Path: name, Reason: "short read of header"}
	}

	if !bytes.Equal(header[0:4], packMagic[:]) {
		return nil, &plumbing.ErrBadPackFile{Path: name, Reason: "bad magic"}
	}

	version := binary.BigEndian.Uint32(header[4:8])
	if version != 2 {
		return nil, &plumbing.ErrBadPackFile{Path: name, Reason: "unsupported version"}
	}
	objects := binary.BigEndian.Uint32(header[8:12])

	size, err := sizeOf(r)
	if err != nil {
		return nil, &plumbing.ErrBadPackFile{Path: name, Reason: "cannot determine file size: " + err.Error()}
	}

	return &Packfile{
		Version: version,
		Objects: objects,
		path:    name,
		size:    size,
		r:       r,
	}, nil
}
