// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshdir loads the public keys of an OpenSSH directory (usually
// ~/.ssh) into a registry.
//
// Every *.pub file yields one object; keys whose private half sits next to
// them are marked as private keys. authorized_keys and authorized_keys2
// yield one trusted object per line.
package sshdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/toeirei/keyview/internal/logging"
	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/registry"
	"github.com/toeirei/keyview/internal/source"
	"github.com/toeirei/keyview/internal/sshkey"
)

// Kind is the object kind of keys loaded from a directory.
const Kind object.Kind = "sshdir"

var authorizedFiles = []string{"authorized_keys", "authorized_keys2"}

// Dir is an ssh directory backend.
type Dir struct {
	path string
	src  *source.Source
}

// New returns a backend for the directory at path feeding reg. Nothing is
// loaded until Reload.
func New(reg *registry.Registry, path string) *Dir {
	return &Dir{path: path, src: source.New(path, reg)}
}

// Path returns the directory.
func (d *Dir) Path() string { return d.path }

// Source returns the object source of the directory's keys.
func (d *Dir) Source() *source.Source { return d.src }

// Reload reads the directory and reconciles the registry with it: keys that
// appeared are added, keys whose file vanished are destroyed and changed
// comments relabel the existing object. Unreadable or malformed files are
// reported in the returned error; the keys that could be read are still
// applied. A missing directory counts as empty.
func (d *Dir) Reload() (source.Stats, error) {
	want, loadErr := d.scan()
	st, err := d.src.Reconcile(want)
	return st, errors.Join(loadErr, err)
}

// Close removes every key of the directory from the registry.
func (d *Dir) Close() {
	d.src.Close()
}

func (d *Dir) scan() (map[string]*object.Object, error) {
	want := make(map[string]*object.Object)
	entries, err := os.ReadDir(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Debugf("sshdir: %s does not exist", d.path)
		return want, nil
	}
	if err != nil {
		return want, fmt.Errorf("read ssh dir %s: %w", d.path, err)
	}

	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		switch {
		case strings.HasSuffix(name, ".pub"):
			errs = append(errs, d.loadPublic(name, want))
		case isAuthorized(name):
			errs = append(errs, d.loadAuthorized(name, want))
		}
	}
	return want, errors.Join(errs...)
}

func (d *Dir) loadPublic(name string, want map[string]*object.Object) error {
	path := filepath.Join(d.path, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	k, err := sshkey.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, statErr := os.Stat(strings.TrimSuffix(path, ".pub"))
	private := statErr == nil
	want[name] = sshkey.NewObject(Kind, k, private, name, object.WithLocation(object.LocationLocal))
	return nil
}

func (d *Dir) loadAuthorized(name string, want map[string]*object.Object) error {
	path := filepath.Join(d.path, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	keys, parseErr := sshkey.ParseAll(data)
	for _, k := range keys {
		o := sshkey.NewObject(Kind, k, false, name, object.WithLocation(object.LocationLocal))
		o.SetFlags(o.Flags() | object.FlagTrusted)
		want[name+"#"+k.Fingerprint()] = o
	}
	if parseErr != nil {
		return fmt.Errorf("%s: %w", path, parseErr)
	}
	return nil
}

func isAuthorized(name string) bool {
	return slices.Contains(authorizedFiles, name)
}

// IsKeyFile reports whether a file name is one Reload reads. Watchers use
// it to ignore unrelated churn in the directory.
func IsKeyFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasSuffix(base, ".pub") || isAuthorized(base) {
		return true
	}
	// a private key appearing or vanishing flips the usage of its .pub
	_, err := os.Stat(name + ".pub")
	return err == nil || errors.Is(err, fs.ErrPermission)
}
