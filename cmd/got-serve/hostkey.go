// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"

	gossh "golang.org/x/crypto/ssh"
)

// loadOrGenerateHostKey returns the SSH host key signer at path. If path is
// empty, an ephemeral ed25519 key is generated and used only for this
// process's lifetime. If path is non-empty but does not yet exist, a new
// ed25519 key is generated and persisted there so restarts keep the same
// host identity.
func loadOrGenerateHostKey(path string) (gossh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return gossh.NewSignerFromSigner(priv)
	}

	pemBytes, err := os.ReadFile(path)
	if err == nil {
		return gossh.ParsePrivateKey(pemBytes)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	encoded := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return nil, err
	}
	return gossh.NewSignerFromSigner(priv)
}
