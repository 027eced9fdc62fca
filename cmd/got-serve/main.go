// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/bsdmp/got/modules/config"
	"github.com/bsdmp/got/modules/objstore"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// App is got-serve's sole command: there is no subcommand tree, since the
// binary does exactly one thing — serve the two read-only boundary front
// ends described in SPEC_FULL.md §B over whatever settings file it's given.
type App struct {
	Config      string `name:"config" help:"Path to a got.toml settings file" type:"path"`
	Objects     string `name:"objects" help:"Path to the repository's objects directory; overrides the settings file" type:"path"`
	HostKeyPath string `name:"host-key" help:"Path to the SSH host key; generated and persisted here if absent" type:"path"`
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var app App
	ctx := kong.Parse(&app, kong.Name("got-serve"), kong.Description("Read-only HTTP and SSH front end over a got object database"))
	ctx.FatalIfErrorf(app.Run())
}

func (a *App) Run() error {
	cfg, err := config.Load(a.Config)
	if err != nil {
		return err
	}
	if a.Objects != "" {
		cfg.Repo.ObjectsDir = a.Objects
	}

	var opts []objstore.Option
	if cfg.Repo.CacheBytes > 0 {
		opts = append(opts, objstore.WithObjectCache(cfg.Repo.CacheBytes))
	}
	db, err := objstore.Open(cfg.Repo.ObjectsDir, opts...)
	if err != nil {
		logrus.WithError(err).Error("got-serve: opening object database")
		return err
	}
	defer db.Close()

	hostKeyPath := a.HostKeyPath
	if hostKeyPath == "" {
		hostKeyPath = cfg.Serve.HostKeyPath
	}
	hostKey, err := loadOrGenerateHostKey(hostKeyPath)
	if err != nil {
		logrus.WithError(err).Error("got-serve: loading ssh host key")
		return err
	}

	httpSrv := &http.Server{Addr: cfg.Serve.HTTPListen, Handler: newRouter(db)}
	sshSrv := newSSHServer(cfg.Serve.SSHListen, hostKey, db)

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		logrus.Infof("got-serve: http server listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sshSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return waitForShutdown(gctx, httpSrv, sshSrv)
	})

	return g.Wait()
}

// waitForShutdown blocks until either the process receives a termination
// signal or the group's context is cancelled by another goroutine's error,
// then drains both servers with a bounded grace period, following the
// teacher's signal-then-timed-Shutdown pattern from cmd/zeta-serve.
func waitForShutdown(ctx context.Context, shutdowners ...shutdowner) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logrus.Infof("got-serve: received signal %v, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, s := range shutdowners {
		if err := s.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("got-serve: error during shutdown")
		}
	}
	return nil
}
