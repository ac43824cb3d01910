// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshagent exposes the identities held by a running ssh agent as
// objects. An agent key that is also present on disk prefers the on-disk
// object, so views can show the richer entry.
package sshagent

import (
	"errors"
	"fmt"

	"github.com/toeirei/keyview/internal/logging"
	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/registry"
	"github.com/toeirei/keyview/internal/source"
	"github.com/toeirei/keyview/internal/sshkey"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Kind is the object kind of agent identities.
const Kind object.Kind = "agent"

// Name is the source name of the agent backend.
const Name = "ssh-agent"

// ErrNoAgent is returned by Dial when no agent is reachable.
var ErrNoAgent = errors.New("no ssh agent available")

// Agent is an ssh agent backend.
type Agent struct {
	client agent.Agent
	src    *source.Source
}

// New returns a backend listing the keys of client into reg.
func New(reg *registry.Registry, client agent.Agent) *Agent {
	a := &Agent{client: client, src: source.New(Name, reg)}
	a.src.PreferOthers(func(o *object.Object) bool {
		return o.Tag() == sshkey.Tag && o.Kind() != Kind
	})
	return a
}

// Source returns the object source of the agent's keys.
func (a *Agent) Source() *source.Source { return a.src }

// Reload lists the agent's identities and reconciles the registry with
// them. Identities the agent dropped since the last call are destroyed.
func (a *Agent) Reload() (source.Stats, error) {
	keys, err := a.client.List()
	if err != nil {
		return source.Stats{}, fmt.Errorf("list agent keys: %w", err)
	}
	want := make(map[string]*object.Object, len(keys))
	var errs []error
	for _, ak := range keys {
		pub, err := ssh.ParsePublicKey(ak.Blob)
		if err != nil {
			errs = append(errs, fmt.Errorf("agent key %q: %w", ak.Comment, err))
			continue
		}
		k := sshkey.Key{Public: pub, Comment: ak.Comment}
		want[k.Fingerprint()] = sshkey.NewObject(Kind, k, true, k.Fingerprint(),
			object.WithLocation(object.LocationLocal))
	}
	st, err := a.src.Reconcile(want)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		logging.Debugf("sshagent: %d identities", len(want))
	}
	return st, errors.Join(errs...)
}

// Close removes the agent's keys from the registry.
func (a *Agent) Close() {
	a.src.Close()
}
