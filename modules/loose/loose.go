// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package loose

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bsdmp/got/modules/plumbing"
	"github.com/bsdmp/got/modules/streamio"
)

// Store gives read access to the loose objects kept directly under a
// repository's objects directory, each zlib-deflated as
// "<type> SP <size> NUL <payload>" at objects/xx/yyyy...(38 hex digits).
type Store struct {
	root string
}

// NewStore returns a Store rooted at the given objects directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the objects directory this Store reads from.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(oid plumbing.Hash) string {
	encoded := oid.String()
	return filepath.Join(s.root, encoded[:2], encoded[2:])
}

// Exists reports whether oid names a loose object on disk.
func (s *Store) Exists(oid plumbing.Hash) error {
	if _, err := os.Stat(s.path(oid)); err != nil {
		if os.IsNotExist(err) {
			return plumbing.NoSuchObject(oid)
		}
		return err
	}
	return nil
}

// Search resolves a possibly-abbreviated prefix to the one full object id
// it names among the loose objects on disk, comparing only the
// significant bytes reported by prefix.Shorten(). Ambiguous prefixes are
// not disambiguated; the first match encountered is returned.
func (s *Store) Search(prefix plumbing.Hash) (plumbing.Hash, error) {
	shortened := prefix.Shorten()

	fanout := prefix.String()[:2]
	entries, err := os.ReadDir(filepath.Join(s.root, fanout))
	if err != nil {
		if os.IsNotExist(err) {
			return plumbing.ZeroHash, plumbing.NoSuchObject(prefix)
		}
		return plumbing.ZeroHash, err
	}

	for _, e := range entries {
		if e.IsDir() || len(e.Name()) != plumbing.HashHexSize-2 {
			continue
		}
		oid, err := plumbing.NewHashEx(fanout + e.Name())
		if err != nil {
			continue
		}
		if plumbing.Compare(truncated(oid, shortened), truncated(prefix, shortened)) == 0 {
			return oid, nil
		}
	}
	return plumbing.ZeroHash, plumbing.NoSuchObject(prefix)
}

// truncated returns a copy of h with every byte beyond n zeroed, so two
// hashes can be compared over only their first n significant bytes.
func truncated(h plumbing.Hash, n int) plumbing.Hash {
	var out plumbing.Hash
	copy(out[:n], h[:n])
	return out
}

// Object is an open loose object: its header has already been parsed, and
// Read yields the remaining, still-inflating payload bytes.
type Object struct {
	Kind plumbing.ObjectType
	Size int64

	f  *os.File
	zr io.ReadCloser
	br *bufio.Reader
}

func (o *Object) Read(p []byte) (int, error) {
	return o.br.Read(p)
}

// Close releases the zlib decompressor back to its pool and closes the
// underlying file.
func (o *Object) Close() error {
	streamio.PutZlibReader(o.zr)
	return o.f.Close()
}

// Open opens the loose object named by oid, inflates and parses its header,
// and returns an Object positioned to read the payload that follows.
func (s *Store) Open(oid plumbing.Hash) (*Object, error) {
	f, err := os.Open(s.path(oid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, plumbing.NoSuchObject(oid)
		}
		return nil, err
	}

	zr, err := streamio.GetZlibReader(f)
	if err != nil {
		_ = f.Close()
		return nil, &plumbing.ErrBadObject{OID: oid, Reason: "bad zlib stream: " + err.Error()}
	}

	br := bufio.NewReader(zr)
	header, err := br.ReadString(0)
	if err != nil {
		streamio.PutZlibReader(zr)
		_ = f.Close()
		return nil, &plumbing.ErrBadObject{OID: oid, Reason: "truncated header"}
	}
	header = strings.TrimSuffix(header, "\x00")

	word, sizeText, ok := strings.Cut(header, " ")
	if !ok {
		streamio.PutZlibReader(zr)
		_ = f.Close()
		return nil, &plumbing.ErrBadObject{OID: oid, Reason: "malformed header: " + header}
	}

	kind, err := plumbing.ParseObjectTypeWord(word)
	if err != nil {
		streamio.PutZlibReader(zr)
		_ = f.Close()
		return nil, &plumbing.ErrBadObject{OID: oid, Reason: "unrecognized object type in header"}
	}

	size, err := strconv.ParseInt(sizeText, 10, 64)
	if err != nil || size < 0 {
		streamio.PutZlibReader(zr)
		_ = f.Close()
		return nil, &plumbing.ErrBadObject{OID: oid, Reason: "malformed size in header"}
	}

	return &Object{Kind: kind, Size: size, f: f, zr: zr, br: br}, nil
}

// Get reads the full payload of oid into memory and verifies its hash,
// returning the object's kind and content.
func (s *Store) Get(oid plumbing.Hash) ([]byte, plumbing.ObjectType, error) {
	obj, err := s.Open(oid)
	if err != nil {
		return nil, plumbing.InvalidObject, err
	}
	defer obj.Close()

	buf := make([]byte, obj.Size)
	if _, err := io.ReadFull(obj, buf); err != nil {
		return nil, plumbing.InvalidObject, &plumbing.ErrBadObject{OID: oid, Reason: "truncated payload: " + err.Error()}
	}

	if err := verifyHash(oid, obj.Kind, buf); err != nil {
		return nil, plumbing.InvalidObject, err
	}

	return buf, obj.Kind, nil
}

// Each lists every loose object under the store's root in no particular
// order, stopping and returning the first error fn returns. Directory
// entries that are not exactly two hex characters (e.g. "pack", "info")
// are skipped, matching git's own tolerance for the objects directory also
// holding non-fanout entries.
func (s *Store) Each(fn func(oid plumbing.Hash) error) error {
	fanoutDirs, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, fd := range fanoutDirs {
		if !fd.IsDir() || !plumbing.IsLooseDir(fd.Name()) {
			continue
		}

		names, err := os.ReadDir(filepath.Join(s.root, fd.Name()))
		if err != nil {
			return err
		}

		for _, n := range names {
			if n.IsDir() || len(n.Name()) != plumbing.HashHexSize-2 {
				continue
			}
			oid, err := plumbing.NewHashEx(fd.Name() + n.Name())
			if err != nil {
				continue
			}
			if err := fn(oid); err != nil {
				return err
			}
		}
	}
	return nil
}

// verifyHash recomputes oid's content hash from its header and payload and
// confirms it matches, the same check git performs on every loose object it
// reads.
func verifyHash(oid plumbing.Hash, kind plumbing.ObjectType, payload []byte) error {
	return plumbing.VerifyContentHash(oid, kind, payload)
}
