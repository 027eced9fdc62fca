// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Command got is a read-only inspection tool over a Git object database:
// loose objects and packfiles, with delta-chain resolution and integrity
// verification, following the teacher's CLI conventions (kong-based
// subcommands, a shared Globals struct) but exposing only the small slice
// of plumbing this repository's core covers.
package main

import (
	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
)

// App is the got command tree.
type App struct {
	Globals

	CatFile    CatFile    `cmd:"cat-file" aliases:"cat" help:"Show the type, size, or content of one object"`
	VerifyPack VerifyPack `cmd:"verify-pack" aliases:"verify,fsck" help:"Recompute and check every object's integrity"`
	LsObjects  LsObjects  `cmd:"ls-objects" aliases:"ls" help:"List every object in the repository"`
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	var app App
	ctx := kong.Parse(&app,
		kong.Name("got"),
		kong.Description("Read Git objects from loose storage or packfiles, resolving delta chains on demand."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&app.Globals)
	ctx.FatalIfErrorf(err)
}
