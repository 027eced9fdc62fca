// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/bsdmp/got/modules/objstore"
	"github.com/bsdmp/got/modules/plumbing"
	"github.com/sirupsen/logrus"
)

// CatFile shows the type, size, or raw content of a single object,
// resolving loose-vs-packed storage and any delta chain transparently —
// the same front door every higher-level command in the teacher's
// porcelain (log, diff, blame) is ultimately built on.
type CatFile struct {
	Object string `arg:"" name:"object" help:"Object id: full 40-character hex, or an abbreviation of at least 8 characters"`
	Type   bool   `short:"t" name:"type" help:"Print only the object's type"`
	Size   bool   `short:"s" name:"size" help:"Print only the object's size in bytes"`
	Expect string `name:"expect" enum:"commit,tree,blob,tag," default:"" help:"Require the object to be of this kind, failing otherwise"`
}

// open resolves c.Object and returns it, routed through the typed
// accessor matching --expect when given so a kind mismatch surfaces as
// ErrMismatchedObjectType instead of being checked by hand afterward.
func (c *CatFile) open(db *objstore.Database, oid plumbing.Hash) (*objstore.Object, error) {
	switch c.Expect {
	case "commit":
		return db.Commit(oid)
	case "tree":
		return db.Tree(oid)
	case "blob":
		return db.Blob(oid)
	case "tag":
		return db.Tag(oid)
	default:
		return db.Open(oid)
	}
}

func (c *CatFile) Run(g *Globals) error {
	db, err := g.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	oid, err := db.Resolve(c.Object)
	if err != nil {
		logrus.WithField("object", c.Object).WithError(err).Debug("cat-file: could not resolve object")
		return err
	}

	obj, err := c.open(db, oid)
	if err != nil {
		logrus.WithField("oid", oid).WithError(err).Debug("cat-file: could not open object")
		return err
	}
	g.DbgPrint("resolved %s to %s (%s, %d bytes)", c.Object, oid, obj.Kind, obj.Size())

	switch {
	case c.Type:
		fmt.Println(obj.Kind)
	case c.Size:
		fmt.Println(obj.Size())
	default:
		if _, err := os.Stdout.Write(obj.Content); err != nil {
			return err
		}
	}
	return nil
}
