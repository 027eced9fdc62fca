// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/bsdmp/got/modules/config"
	"github.com/bsdmp/got/modules/objstore"
	"github.com/bsdmp/got/modules/trace"
)

// Globals holds the flags shared by every subcommand, following the
// teacher's App-embeds-Globals convention (cmd/zeta/main.go,
// pkg/command.Globals).
type Globals struct {
	Config  string `name:"config" help:"Path to a got.toml settings file" type:"path"`
	Objects string `name:"objects" help:"Path to the repository's objects directory; overrides the settings file" type:"path"`
	Verbose bool   `short:"V" name:"verbose" help:"Make the operation more talkative"`

	cfg *config.Config
}

func (g *Globals) DbgPrint(format string, args ...any) {
	if !g.Verbose {
		return
	}
	trace.DbgPrint(format, args...)
}

// settings loads and caches the settings file named by --config, falling
// back to built-in defaults when none is given.
func (g *Globals) settings() (*config.Config, error) {
	if g.cfg != nil {
		return g.cfg, nil
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, trace.Errorf("loading settings: %v", err)
	}
	if g.Objects != "" {
		cfg.Repo.ObjectsDir = g.Objects
	}
	g.cfg = cfg
	return cfg, nil
}

// openDatabase opens the object database named by the resolved settings.
func (g *Globals) openDatabase() (*objstore.Database, error) {
	cfg, err := g.settings()
	if err != nil {
		return nil, err
	}
	var opts []objstore.Option
	if cfg.Repo.CacheBytes > 0 {
		opts = append(opts, objstore.WithObjectCache(cfg.Repo.CacheBytes))
	}
	db, err := objstore.Open(cfg.Repo.ObjectsDir, opts...)
	if err != nil {
		return nil, trace.Errorf("opening %s: %v", cfg.Repo.ObjectsDir, err)
	}
	return db, nil
}
