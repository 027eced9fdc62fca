// Copyright (c) 2017- GitHub, Inc. and Git LFS contributors
// SPDX-License-Identifier: MIT

package pack

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bsdmp/got/modules/plumbing"
)

// Set is a fallback-ordered collection of packfiles sharing one object
// namespace: every lookup tries each packfile that could plausibly hold the
// requested id, in the order recorded at Set construction time, and stops
// at the first match.
type Set interface {
	Object(name plumbing.Hash) ([]byte, plumbing.ObjectType, error)
	Exists(name plumbing.Hash) error
	Search(prefix plumbing.Hash) (plumbing.Hash, error)
	Close() error
}

type set struct {
	// m maps the leading byte of an object id to the packfiles that might
	// contain an object beginning with that byte, in the same order the
	// packs were opened (directory-scan order): a lookup tries them in
	// that order and stops at the first match, so a duplicated object
	// resolves to the same pack's copy every time, the way git does.
	m map[byte][]*Packfile

	closeFn func() error
}

var _ Set = (*set)(nil)
var _ Resolver = (*set)(nil)

// Close closes every packfile and index held by the set.
func (s *set) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func (s *set) Object(name plumbing.Hash) ([]byte, plumbing.ObjectType, error) {
	for _, p := range s.m[name[0]] {
		data, kind, err := p.Object(name, s)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, plumbing.InvalidObject, err
		}
		return data, kind, nil
	}
	return nil, plumbing.InvalidObject, plumbing.NoSuchObject(name)
}

// ResolveByHash implements Resolver across the whole set, so that a
// REF_DELTA entry in one pack can name a base object stored in another.
func (s *set) ResolveByHash(name plumbing.Hash) ([]byte, plumbing.ObjectType, error) {
	return s.Object(name)
}

func (s *set) Exists(name plumbing.Hash) error {
	for _, p := range s.m[name[0]] {
		if err := p.Exists(name); err != nil {
			if IsNotFound(err) {
				continue
			}
			return err
		}
		return nil
	}
	return plumbing.NoSuchObject(name)
}

func (s *set) Search(prefix plumbing.Hash) (plumbing.Hash, error) {
	for _, p := range s.m[prefix[0]] {
		oid, err := p.Search(prefix)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return plumbing.ZeroHash, err
		}
		return oid, nil
	}
	return plumbing.ZeroHash, plumbing.NoSuchObject(prefix)
}

// packsConcat builds a Set from already-decoded packfiles, grouping each
// pack under every leading byte its fanout table says it might hold an
// object for. Packs are appended to each bucket in the order they were
// passed in (openPacks' directory-scan order) and never reordered, so
// lookups are first-match-wins in that same order.
func packsConcat(packs ...*Packfile) Set {
	m := make(map[byte][]*Packfile)

	for n := 0; n < 256; n++ {
		b := byte(n)

		for _, p := range packs {
			var count uint32
			if b == 0 {
				count = p.idx.fanout[b]
			} else {
				count = p.idx.fanout[b] - p.idx.fanout[b-1]
			}
			if count > 0 {
				m[b] = append(m[b], p)
			}
		}
	}

	return &set{
		m: m,
		closeFn: func() error {
			for _, p := range packs {
				if err := p.Close(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// packNameRe matches the basename of a packfile, capturing its "pack-<sha>"
// stem shared with its sibling index file.
var packNameRe = regexp.MustCompile(`^(pack-[0-9a-f]{40})\.pack$`)

var globEscapes = map[string]string{
	"*": "[*]",
	"?": "[?]",
	"[": "[[]",
}

func escapeGlobPattern(s string) string {
	for char, escape := range globEscapes {
		s = strings.ReplaceAll(s, char, escape)
	}
	return s
}

// openPacks discovers and decodes every "pack-*.pack"/"pack-*.idx" pair
// under db/pack, skipping (rather than failing on) a pack whose index file
// is missing, matching git's own tolerance for partially-pruned pack
// directories. An index or packfile that is present but fails to open or
// decode aborts the scan with that error.
func openPacks(db string) ([]*Packfile, error) {
	packDir := filepath.Join(db, "pack")

	paths, err := filepath.Glob(filepath.Join(escapeGlobPattern(packDir), "*.pack"))
	if err != nil {
		return nil, err
	}

	packs := make([]*Packfile, 0, len(paths))

	for _, path := range paths {
		m := packNameRe.FindStringSubmatch(filepath.Base(path))
		if len(m) != 2 {
			continue
		}
		name := m[1]

		idxPath := filepath.Join(packDir, fmt.Sprintf("%s.idx", name))
		ifd, err := os.Open(idxPath)
		if err != nil {
			continue
		}

		packPath := filepath.Join(packDir, fmt.Sprintf("%s.pack", name))
		pfd, err := os.Open(packPath)
		if err != nil {
			_ = ifd.Close()
			return nil, err
		}

		idx, err := DecodeIndex(idxPath, ifd)
		if err != nil {
			_ = ifd.Close()
			_ = pfd.Close()
			return nil, err
		}

		pack, err := DecodePackfile(packPath, pfd)
		if err != nil {
			_ = ifd.Close()
			_ = pfd.Close()
			return nil, err
		}
		pack.idx = idx

		packs = append(packs, pack)
	}
	return packs, nil
}

// NewSet discovers every pack under db/pack and returns a Set over all of
// them.
func NewSet(db string) (Set, error) {
	packs, err := openPacks(db)
	if err != nil {
		return nil, err
	}
	return packsConcat(packs...), nil
}

// Packs is a collection of decoded packfiles that additionally supports
// whole-pack enumeration.
type Packs []*Packfile

// Each iterates every object recorded in every pack's index, in index
// order, stopping at the first error fn returns.
func (ps Packs) Each(fn func(*Packfile, *IndexEntry) error) error {
	for _, p := range ps {
		if err := p.idx.Each(func(e *IndexEntry) error {
			return fn(p, e)
		}); err != nil {
			return err
		}
	}
	return nil
}

// NewPacks discovers every pack under db/pack and returns both a Set over
// them and the decoded Packs slice itself, for callers that additionally
// need whole-pack enumeration (verification, repacking inspection).
func NewPacks(db string) (Set, Packs, error) {
	packs, err := openPacks(db)
	if err != nil {
		return nil, nil, err
	}
	return packsConcat(packs...), packs, nil
}
