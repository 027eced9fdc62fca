// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package objstore is the repository-wide object opener: it tries the
// loose object store first and falls back to every packfile under
// objects/pack, returning the first match in directory order.
package objstore

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bsdmp/got/modules/loose"
	"github.com/bsdmp/got/modules/pack"
	"github.com/bsdmp/got/modules/plumbing"
	"github.com/dgraph-io/ristretto/v2"
)

// Object is a fully-resolved, in-memory object: any delta chain has already
// been applied.
type Object struct {
	OID     plumbing.Hash
	Kind    plumbing.ObjectType
	Content []byte
}

// Size returns the length of the object's content.
func (o *Object) Size() int64 {
	return int64(len(o.Content))
}

// Database is the read path over one repository's objects directory: loose
// objects plus every packfile registered under objects/pack.
type Database struct {
	root string

	loose *loose.Store

	mu       sync.RWMutex
	packs    pack.Set
	packList pack.Packs

	cache     *ristretto.Cache[string, *Object]
	closed    uint32
	withCache bool
}

// Option configures a Database at construction time.
type Option func(*Database)

// WithObjectCache enables a bounded in-memory cache of resolved objects,
// sized roughly to maxCost bytes of content. It is most valuable for
// repeatedly-requested objects at the tip of a long delta chain, since
// resolving one otherwise means walking and re-inflating every link in
// the chain on each access.
func WithObjectCache(maxCost int64) Option {
	return func(d *Database) {
		d.withCache = maxCost > 0
		if !d.withCache {
			return
		}
		c, err := ristretto.NewCache(&ristretto.Config[string, *Object]{
			NumCounters: maxCost / 100 * 10,
			MaxCost:     maxCost,
			BufferItems: 64,
		})
		if err == nil {
			d.cache = c
		}
	}
}

// Open discovers the loose object store and every pack under root/pack,
// root being the repository's objects directory (typically ".git/objects").
func Open(root string, opts ...Option) (*Database, error) {
	packs, packList, err := pack.NewPacks(root)
	if err != nil {
		return nil, fmt.Errorf("got: opening packs under %s: %w", root, err)
	}

	d := &Database{
		root:     root,
		loose:    loose.NewStore(root),
		packs:    packs,
		packList: packList,
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Reload re-scans root/pack for added or removed packfiles, closing the
// previous generation once the new one is in place.
func (d *Database) Reload() error {
	packs, packList, err := pack.NewPacks(d.root)
	if err != nil {
		return err
	}

	d.mu.Lock()
	old := d.packs
	d.packs = packs
	d.packList = packList
	d.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

func (d *Database) cacheKey(oid plumbing.Hash) string {
	return oid.String()
}

// Open resolves oid to its fully materialized Object, trying the loose
// object store first and falling back to the registered packs.
func (d *Database) Open(oid plumbing.Hash) (*Object, error) {
	if d.cache != nil {
		if obj, ok := d.cache.Get(d.cacheKey(oid)); ok {
			return obj, nil
		}
	}

	content, kind, err := d.loose.Get(oid)
	if err != nil {
		if !plumbing.IsNoSuchObject(err) {
			return nil, err
		}

		d.mu.RLock()
		packs := d.packs
		d.mu.RUnlock()

		content, kind, err = packs.Object(oid)
		if err != nil {
			return nil, err
		}
	}

	obj := &Object{OID: oid, Kind: kind, Content: content}
	if d.cache != nil {
		d.cache.Set(d.cacheKey(oid), obj, int64(len(content)))
	}
	return obj, nil
}

// typed opens oid and checks its kind matches want, the shared
// implementation behind Commit, Tree, Blob, and Tag.
func (d *Database) typed(oid plumbing.Hash, want plumbing.ObjectType) (*Object, error) {
	obj, err := d.Open(oid)
	if err != nil {
		return nil, err
	}
	if obj.Kind != want {
		return nil, &plumbing.ErrMismatchedObjectType{OID: oid, Expected: want.String(), Actual: obj.Kind}
	}
	return obj, nil
}

// Commit opens oid and confirms it is a commit object.
func (d *Database) Commit(oid plumbing.Hash) (*Object, error) {
	return d.typed(oid, plumbing.CommitObject)
}

// Tree opens oid and confirms it is a tree object.
func (d *Database) Tree(oid plumbing.Hash) (*Object, error) {
	return d.typed(oid, plumbing.TreeObject)
}

// Blob opens oid and confirms it is a blob object.
func (d *Database) Blob(oid plumbing.Hash) (*Object, error) {
	return d.typed(oid, plumbing.BlobObject)
}

// Tag opens oid and confirms it is a tag object.
func (d *Database) Tag(oid plumbing.Hash) (*Object, error) {
	return d.typed(oid, plumbing.TagObject)
}

// Exists reports whether oid is present as a loose object or in any
// registered pack, without materializing its content.
func (d *Database) Exists(oid plumbing.Hash) error {
	if err := d.loose.Exists(oid); err == nil {
		return nil
	}

	d.mu.RLock()
	packs := d.packs
	d.mu.RUnlock()
	return packs.Exists(oid)
}

// Search resolves a possibly-abbreviated prefix to the one full object id it
// names, checking loose objects before packs.
func (d *Database) Search(prefix plumbing.Hash) (plumbing.Hash, error) {
	if oid, err := d.loose.Search(prefix); err == nil {
		return oid, nil
	}

	d.mu.RLock()
	packs := d.packs
	d.mu.RUnlock()
	return packs.Search(prefix)
}

// EachLoose lists every loose object under the repository's objects
// directory, in no particular order, stopping at the first error fn
// returns.
func (d *Database) EachLoose(fn func(oid plumbing.Hash) error) error {
	return d.loose.Each(fn)
}

// Resolve accepts a full 40-character hex object id or any shorter
// abbreviation down to 4 bytes (8 hex characters) and returns the one
// full object id it names. A full id is returned as parsed, without
// checking that it exists; an abbreviation is resolved by searching loose
// storage and every pack. This
// is the entry point front ends (cmd/got, cmd/got-serve) use to turn a
// user- or client-supplied string into a Hash.
func (d *Database) Resolve(spec string) (plumbing.Hash, error) {
	if len(spec) == plumbing.HashHexSize {
		return plumbing.NewHashEx(spec)
	}
	if len(spec) < 8 || len(spec) > plumbing.HashHexSize {
		return plumbing.ZeroHash, &plumbing.ErrBadObjectName{Name: spec}
	}
	padded := spec + strings.Repeat("0", plumbing.HashHexSize-len(spec))
	prefix, err := plumbing.NewHashEx(padded)
	if err != nil {
		return plumbing.ZeroHash, &plumbing.ErrBadObjectName{Name: spec}
	}
	return d.Search(prefix)
}

// Kind returns the object kind for oid. It opens the object through Open,
// so the full content is materialized (and any delta chain resolved) even
// though only the kind is returned.
func (d *Database) Kind(oid plumbing.Hash) (plumbing.ObjectType, error) {
	obj, err := d.Open(oid)
	if err != nil {
		return plumbing.InvalidObject, err
	}
	return obj.Kind, nil
}

// Packs exposes the currently registered packfiles for callers that need
// whole-repository enumeration, such as an integrity check.
func (d *Database) Packs() pack.Packs {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.packList
}

// Close releases the loose store and every open pack and index.
func (d *Database) Close() error {
	if !atomic.CompareAndSwapUint32(&d.closed, 0, 1) {
		return nil
	}
	if d.cache != nil {
		d.cache.Close()
	}

	d.mu.RLock()
	packs := d.packs
	d.mu.RUnlock()
	if packs != nil {
		return packs.Close()
	}
	return nil
}
