// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"github.com/toeirei/keyview/internal/object"
	"golang.org/x/crypto/ssh"
)

func newKeyLine(t *testing.T, comment string) (string, ssh.PublicKey) {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sp, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("ssh key: %v", err)
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sp)))
	if comment != "" {
		line += " " + comment
	}
	return line, sp
}

func TestParse(t *testing.T) {
	line, pub := newKeyLine(t, "alice@laptop work")

	k, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if k.Algorithm() != ssh.KeyAlgoED25519 {
		t.Fatalf("algorithm: got %q", k.Algorithm())
	}
	if k.Comment != "alice@laptop work" {
		t.Fatalf("comment: got %q", k.Comment)
	}
	if k.Fingerprint() != ssh.FingerprintSHA256(pub) {
		t.Fatalf("fingerprint mismatch")
	}
}

func TestParse_WithOptions(t *testing.T) {
	line, _ := newKeyLine(t, "deploy")
	k, err := Parse(`from="10.0.0.0/8",no-pty ` + line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(k.Options) != 2 || k.Options[1] != "no-pty" {
		t.Fatalf("options: %v", k.Options)
	}
	if k.Comment != "deploy" {
		t.Fatalf("comment: got %q", k.Comment)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		noKey bool
	}{
		{"empty", "", true},
		{"blank", "   \t", true},
		{"comment", "# managed by hand", true},
		{"garbage", "ssh-ed25519 not-base64!!", false},
		{"no data", "ssh-rsa", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			if err == nil {
				t.Fatalf("expected error for %q", tt.line)
			}
			if errors.Is(err, ErrNoKey) != tt.noKey {
				t.Fatalf("ErrNoKey mismatch: %v", err)
			}
		})
	}
}

func TestParseAll(t *testing.T) {
	a, _ := newKeyLine(t, "a")
	b, _ := newKeyLine(t, "b")
	doc := "# authorized keys\n" + a + "\n\nbroken line\n" + b + "\n"

	keys, err := ParseAll([]byte(doc))
	if len(keys) != 2 || keys[0].Comment != "a" || keys[1].Comment != "b" {
		t.Fatalf("keys: %v", keys)
	}
	if err == nil || !strings.Contains(err.Error(), "line 4") {
		t.Fatalf("expected error for line 4, got %v", err)
	}
}

func TestNewObject(t *testing.T) {
	line, pub := newKeyLine(t, "")
	k, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	o := NewObject("sshdir", k, true, "id_ed25519.pub", object.WithLocation(object.LocationLocal))
	if o.ID() != IDOf(pub) || o.Tag() != Tag {
		t.Fatalf("id/tag: %s %s", o.ID(), o.Tag())
	}
	if o.Identifier() != ssh.FingerprintSHA256(pub) {
		t.Fatalf("identifier: got %q", o.Identifier())
	}
	if o.Label() != "id_ed25519.pub" {
		t.Fatalf("fallback label not used: %q", o.Label())
	}
	if o.Usage() != object.UsagePrivateKey || !o.Flags().Has(object.FlagCanSign|object.FlagIsValid) {
		t.Fatalf("usage/flags: %s %s", o.Usage(), o.Flags())
	}
	if o.Kind() != "sshdir" || o.Location() != object.LocationLocal || o.Icon() != Icon {
		t.Fatalf("kind/location/icon: %s %s %s", o.Kind(), o.Location(), o.Icon())
	}
}

func TestDescribe(t *testing.T) {
	line, _ := newKeyLine(t, "x")
	k, _ := Parse(line)

	usage, flags := Describe(k, false)
	if usage != object.UsagePublicKey {
		t.Fatalf("usage: %s", usage)
	}
	if flags&object.FlagCanSign != 0 || flags&object.FlagIsValid == 0 {
		t.Fatalf("public flags: %s", flags)
	}
	if !Deprecated("ssh-dss") || Deprecated(ssh.KeyAlgoED25519) {
		t.Fatalf("Deprecated misclassifies algorithms")
	}
}
