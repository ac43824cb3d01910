// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package sshagent

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/registry"
	"github.com/toeirei/keyview/internal/source/sshdir"
	"github.com/toeirei/keyview/internal/sshkey"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

func addKey(t *testing.T, kr agent.Agent, comment string) ssh.PublicKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := kr.Add(agent.AddedKey{PrivateKey: priv, Comment: comment}); err != nil {
		t.Fatalf("agent add: %v", err)
	}
	sp, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("ssh key: %v", err)
	}
	return sp
}

func TestReload_ListsIdentities(t *testing.T) {
	kr := agent.NewKeyring()
	pub := addKey(t, kr, "card")

	reg := registry.New()
	a := New(reg, kr)
	st, err := a.Reload()
	if err != nil || st.Added != 1 {
		t.Fatalf("Reload: %+v %v", st, err)
	}
	o := reg.Lookup(sshkey.IDOf(pub))
	if o == nil || o.Kind() != Kind || o.Label() != "card" || o.Usage() != object.UsagePrivateKey {
		t.Fatalf("agent object: %v", o)
	}

	if err := kr.RemoveAll(); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	st, err = a.Reload()
	if err != nil || st.Removed != 1 || reg.Len() != 0 {
		t.Fatalf("after removal: %+v %v len=%d", st, err, reg.Len())
	}
}

func TestReload_PrefersDiskObject(t *testing.T) {
	kr := agent.NewKeyring()
	pub := addKey(t, kr, "loaded")

	reg := registry.New()
	a := New(reg, kr)
	if _, err := a.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	agentObj := reg.Lookup(sshkey.IDOf(pub))

	dir := t.TempDir()
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub))) + " on-disk\n"
	if err := os.WriteFile(filepath.Join(dir, "id.pub"), []byte(line), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	d := sshdir.New(reg, dir)
	if _, err := d.Reload(); err != nil {
		t.Fatalf("dir Reload: %v", err)
	}

	p := agentObj.Preferred()
	if p == nil || p.Kind() != sshdir.Kind || p.Label() != "on-disk" {
		t.Fatalf("agent key does not prefer the disk key: %v", p)
	}

	d.Close()
	if agentObj.Preferred() != nil {
		t.Fatalf("preferred reference not cleared when the disk key went away")
	}
}
