// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the small TOML settings file used by the got
// binaries (cmd/got, cmd/got-serve). It is deliberately not a reader for
// .gotconfig/gotd.conf: those carry a section-keyed, multi-scope grammar
// that is out of scope here. This is a flat struct for the handful of
// knobs a read-only object-database front end needs.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the root of a got.toml settings file.
type Config struct {
	Repo  Repo  `toml:"repo,omitempty"`
	Serve Serve `toml:"serve,omitempty"`
}

// Repo configures how the object database itself is opened.
type Repo struct {
	// ObjectsDir is the repository's objects directory (typically
	// "<repo>/.git/objects" or "<repo>/.zeta/objects"). Defaults to
	// "objects" under the current directory when empty.
	ObjectsDir string `toml:"objectsDir,omitempty"`
	// CacheBytes bounds the resolved-object cache objstore.Database
	// keeps; 0 disables the cache entirely.
	CacheBytes int64 `toml:"cacheBytes,omitzero"`
}

// Serve configures cmd/got-serve's two boundary front ends.
type Serve struct {
	HTTPListen string `toml:"httpListen,omitempty"`
	SSHListen  string `toml:"sshListen,omitempty"`
	// HostKeyPath is a PEM-encoded private key used as the SSH server's
	// host key. When empty an ephemeral key is generated at startup.
	HostKeyPath string `toml:"hostKeyPath,omitempty"`
}

// Default returns a Config with the settings got's binaries fall back to
// when no settings file is given.
func Default() *Config {
	return &Config{
		Repo: Repo{
			ObjectsDir: "objects",
			CacheBytes: 64 << 20,
		},
		Serve: Serve{
			HTTPListen: "127.0.0.1:8088",
			SSHListen:  "127.0.0.1:8022",
		},
	}
}

// Load reads and decodes the TOML settings file at path, starting from
// Default and overwriting only the fields the file sets.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
