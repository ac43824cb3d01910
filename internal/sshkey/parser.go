// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshkey parses OpenSSH public key lines and turns them into
// objects.
package sshkey

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrNoKey is returned for lines that carry no key (blank lines, comments).
var ErrNoKey = errors.New("no key on line")

// Key is one parsed public key line.
type Key struct {
	Public  ssh.PublicKey
	Comment string
	Options []string
}

// Algorithm returns the key type, e.g. "ssh-ed25519".
func (k Key) Algorithm() string {
	return k.Public.Type()
}

// Fingerprint returns the SHA256 fingerprint in OpenSSH notation.
func (k Key) Fingerprint() string {
	return ssh.FingerprintSHA256(k.Public)
}

// Parse reads a single public key line, either the contents of a *.pub file
// or one line of an authorized_keys file. Leading options
// (from="...",command="...") are accepted and kept.
func Parse(line string) (Key, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Key{}, ErrNoKey
	}
	pub, comment, options, _, err := ssh.ParseAuthorizedKey([]byte(trimmed))
	if err != nil {
		return Key{}, fmt.Errorf("invalid public key line: %w", err)
	}
	return Key{Public: pub, Comment: comment, Options: options}, nil
}

// ParseAll parses every key of an authorized_keys style document. Blank and
// comment lines are skipped; a malformed line yields an error naming its
// line number alongside the keys parsed so far.
func ParseAll(data []byte) ([]Key, error) {
	var keys []Key
	var errs []error
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		k, err := Parse(sc.Text())
		if errors.Is(err, ErrNoKey) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", n, err))
			continue
		}
		keys = append(keys, k)
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	return keys, errors.Join(errs...)
}
