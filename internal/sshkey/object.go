// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"github.com/toeirei/keyview/internal/object"
	"golang.org/x/crypto/ssh"
)

// Tag is the object tag of every SSH key.
const Tag object.Tag = "ssh"

// Icon is the icon name used for SSH key objects.
const Icon = "key-ssh"

// Flags shared by every readable public key.
const publicFlags = object.FlagIsValid | object.FlagExportable

// Flags added when the private half is available to the user.
const privateFlags = object.FlagCanSign | object.FlagPersonal | object.FlagDeletable

// IDOf returns the object id of a public key: "ssh:" followed by its SHA256
// fingerprint. The same key always maps to the same id, whatever source it
// was loaded from.
func IDOf(pub ssh.PublicKey) object.ID {
	return object.ID(string(Tag) + ":" + ssh.FingerprintSHA256(pub))
}

// Deprecated reports whether OpenSSH refuses the algorithm by default.
func Deprecated(algorithm string) bool {
	return algorithm == "ssh-dss"
}

// Describe returns the usage and flags of k. private tells whether the
// matching private key is available.
func Describe(k Key, private bool) (object.Usage, object.Flags) {
	usage := object.UsagePublicKey
	flags := publicFlags
	if private {
		usage = object.UsagePrivateKey
		flags |= privateFlags
	}
	if Deprecated(k.Algorithm()) {
		flags = flags&^object.FlagIsValid | object.FlagDisabled
	}
	return usage, flags
}

// NewObject builds an object for k. fallback labels keys without a comment.
// Further options are applied after the key-derived ones.
func NewObject(kind object.Kind, k Key, private bool, fallback string, opts ...object.Option) *object.Object {
	label := k.Comment
	if label == "" {
		label = fallback
	}
	usage, flags := Describe(k, private)
	base := []object.Option{
		object.WithKind(kind),
		object.WithID(IDOf(k.Public)),
		object.WithLabel(label),
		object.WithUsage(usage),
		object.WithFlags(flags),
	}
	o := object.New(append(base, opts...)...)
	o.SetIcon(Icon)
	return o
}
