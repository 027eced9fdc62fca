// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverwritesOnlyGivenFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "got.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[repo]
objectsDir = "/srv/repo/objects"

[serve]
httpListen = "0.0.0.0:9090"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/repo/objects", cfg.Repo.ObjectsDir)
	assert.Equal(t, int64(64<<20), cfg.Repo.CacheBytes)
	assert.Equal(t, "0.0.0.0:9090", cfg.Serve.HTTPListen)
	assert.Equal(t, "127.0.0.1:8022", cfg.Serve.SSHListen)
}
