// Copyright (c) 2017- GitHub, Inc. and Git LFS contributors
// SPDX-License-Identifier: MIT

package pack

import "errors"

// errObjectNotFound is returned by Index.Entry, Index.Search, Packfile.Object
// and friends when an object id is absent from a single index or packfile.
// It is intentionally unexported: callers outside the package only ever see
// it wrapped into a plumbing.ErrNoSuchObject once every pack in a Set has
// been exhausted.
var errObjectNotFound = errors.New("got: object not found in index")

// IsNotFound reports whether err denotes an object missing from one index or
// packfile, as distinct from a structural decode failure.
func IsNotFound(err error) bool {
	return errors.Is(err, errObjectNotFound)
}
