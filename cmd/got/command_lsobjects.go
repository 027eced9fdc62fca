// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/bsdmp/got/modules/pack"
	"github.com/bsdmp/got/modules/plumbing"
)

// LsObjects enumerates every object the repository holds, loose and
// packed, without necessarily resolving packed entries' delta chains
// (pass --kind to force full resolution and print each object's type).
type LsObjects struct {
	Kind  bool `name:"kind" help:"Resolve and print each object's type (forces full delta-chain resolution for packed entries)"`
	Quiet bool `short:"q" name:"quiet" help:"Suppress the progress bar"`
}

func (c *LsObjects) Run(g *Globals) error {
	db, err := g.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	var packTotal int64
	for _, p := range db.Packs() {
		packTotal += int64(p.Objects)
	}
	prog, bar := newWalkBar(c.Quiet, "ls-objects", packTotal)
	var done int64

	print := func(oid plumbing.Hash, source string) error {
		incWalkBar(bar)
		done++
		if !c.Kind {
			fmt.Printf("%s %s\n", oid, source)
			return nil
		}
		kind, err := db.Kind(oid)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", oid, kind, source)
		return nil
	}

	if err := db.EachLoose(func(oid plumbing.Hash) error {
		return print(oid, "loose")
	}); err != nil {
		finishWalkBar(prog, bar, done)
		return err
	}

	err = db.Packs().Each(func(_ *pack.Packfile, e *pack.IndexEntry) error {
		return print(e.OID, "packed")
	})
	finishWalkBar(prog, bar, done)
	return err
}
