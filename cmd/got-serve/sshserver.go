// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/bsdmp/got/modules/objstore"
	"github.com/gliderlabs/ssh"
	"github.com/sirupsen/logrus"
	gossh "golang.org/x/crypto/ssh"
)

// sshServer is the SSH equivalent of the HTTP boundary in httpserver.go: a
// single session command, "object <oid>", that calls only
// objstore.Database methods. There is no push, no smart-protocol
// negotiation, and no user database — every key is accepted, matching a
// read-only, loopback-oriented demo front end rather than the teacher's
// authenticated daemon.
type sshServer struct {
	srv *ssh.Server
	db  *objstore.Database
}

func newSSHServer(addr string, hostKey gossh.Signer, db *objstore.Database) *sshServer {
	s := &sshServer{db: db}
	srv := &ssh.Server{
		Addr:    addr,
		Handler: s.handleSession,
	}
	srv.AddHostKey(hostKey)
	s.srv = srv
	return s
}

func (s *sshServer) ListenAndServe() error {
	logrus.Infof("got-serve: ssh server listening on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *sshServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *sshServer) handleSession(sess ssh.Session) {
	args := sess.Command()
	if len(args) != 2 || args[0] != "object" {
		fmt.Fprintln(sess.Stderr(), "usage: object <oid>")
		_ = sess.Exit(1)
		return
	}

	oid, err := s.db.Resolve(args[1])
	if err != nil {
		fmt.Fprintf(sess.Stderr(), "got-serve: %v\n", err)
		_ = sess.Exit(1)
		return
	}

	obj, err := s.db.Open(oid)
	if err != nil {
		fmt.Fprintf(sess.Stderr(), "got-serve: %v\n", err)
		_ = sess.Exit(1)
		return
	}

	fmt.Fprintf(sess, "%s %s %d\n", oid, obj.Kind, obj.Size())
	if !strings.EqualFold(sess.Subsystem(), "metadata-only") {
		_, _ = sess.Write(obj.Content)
	}
	logrus.WithFields(logrus.Fields{
		"oid":  oid,
		"kind": obj.Kind,
	}).Info("got-serve: served ssh object request")
	_ = sess.Exit(0)
}
