// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/toeirei/keyview/internal/config"
	"github.com/toeirei/keyview/internal/i18n"
	"github.com/toeirei/keyview/internal/logging"
	"github.com/toeirei/keyview/internal/registry"
	"github.com/toeirei/keyview/internal/source/cache"
	"github.com/toeirei/keyview/internal/source/sshagent"
	"github.com/toeirei/keyview/internal/source/sshdir"
	"github.com/toeirei/keyview/internal/store"
	"golang.org/x/crypto/ssh/agent"
)

// Seams replaced by tests.
var (
	dialAgent      func() (agent.Agent, error) = sshagent.Dial
	clipboardWrite                             = clipboard.WriteAll
	openStore                                  = store.Open
)

// app is the state shared by one command invocation.
type app struct {
	cfg config.Config
	out io.Writer

	reg   *registry.Registry
	dirs  []*sshdir.Dir
	agent *sshagent.Agent
	cache *cache.Cache
	st    *store.Store
}

// loadOptions selects the backends a command needs.
type loadOptions struct {
	cached bool
}

// load fills the registry from the configured ssh directories, the agent
// and, when asked, the database cache. Backend failures are logged and
// skipped so one broken directory does not hide the others.
func (a *app) load(ctx context.Context, opts loadOptions) error {
	a.reg = registry.New()
	for _, dir := range a.cfg.SSH.Dirs {
		d := sshdir.New(a.reg, config.ExpandHome(dir))
		if _, err := d.Reload(); err != nil {
			logging.Warnf("ssh dir %s: %v", d.Path(), err)
		}
		a.dirs = append(a.dirs, d)
	}

	if a.cfg.Agent.Enabled {
		client, err := dialAgent()
		switch {
		case errors.Is(err, sshagent.ErrNoAgent):
			logging.Debugf("ssh agent: %v", err)
		case err != nil:
			logging.Warnf("ssh agent: %v", err)
		default:
			a.agent = sshagent.New(a.reg, client)
			if _, err := a.agent.Reload(); err != nil {
				logging.Warnf("ssh agent: %v", err)
			}
		}
	}

	if opts.cached {
		st, err := a.store(ctx)
		if err != nil {
			return err
		}
		a.cache = cache.New(a.reg, st)
		if _, err := a.cache.Reload(ctx); err != nil {
			return err
		}
	}
	return nil
}

// reload rereads the ssh directories and the agent.
func (a *app) reload() {
	for _, d := range a.dirs {
		if _, err := d.Reload(); err != nil {
			logging.Warnf("ssh dir %s: %v", d.Path(), err)
		}
	}
	if a.agent != nil {
		if _, err := a.agent.Reload(); err != nil {
			logging.Warnf("ssh agent: %v", err)
		}
	}
}

// store opens the configured database once.
func (a *app) store(ctx context.Context) (*store.Store, error) {
	if a.st != nil {
		return a.st, nil
	}
	dsn := a.cfg.Database.Dsn
	if a.cfg.Database.Type == "sqlite" && dsn != ":memory:" {
		dsn = config.ExpandHome(dsn)
		if err := ensureParentDir(dsn); err != nil {
			return nil, err
		}
	}
	st, err := openStore(ctx, a.cfg.Database.Type, dsn)
	if err != nil {
		return nil, errors.New(i18n.T("config.error_init_db", err))
	}
	a.st = st
	return st, nil
}

// close releases the registry and the database.
func (a *app) close() {
	if a.reg != nil {
		a.reg.Close()
	}
	if a.st != nil {
		if err := a.st.Close(); err != nil {
			logging.Warnf("close database: %v", err)
		}
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || strings.HasPrefix(path, "file:") {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create database directory %s: %w", dir, err)
	}
	return nil
}
