// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package object

import (
	"fmt"
	"strings"

	"github.com/toeirei/keyview/internal/i18n"
)

// ID is a namespaced object identifier of the form "tag:identifier".
// The empty ID is the null id.
type ID string

// Split returns the part before the first ':' as the tag and the rest as the
// identifier. Without a ':' the whole id is the tag.
func (id ID) Split() (Tag, string) {
	s := string(id)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return Tag(s[:i]), s[i+1:]
	}
	return Tag(s), ""
}

// Tag is the type category of an object, e.g. "ssh" or "openpgp".
type Tag string

// Kind names the concrete producer type of an object ("sshdir", "agent",
// ...). It is fixed when the object is created.
type Kind string

// Location describes where an object lives. Larger values are closer.
type Location int

const (
	LocationInvalid   Location = 0
	LocationMissing   Location = 10
	LocationSearching Location = 20
	LocationRemote    Location = 50
	LocationLocal     Location = 100
)

var locationNames = map[Location]string{
	LocationInvalid:   "invalid",
	LocationMissing:   "missing",
	LocationSearching: "searching",
	LocationRemote:    "remote",
	LocationLocal:     "local",
}

func (l Location) String() string {
	if s, ok := locationNames[l]; ok {
		return s
	}
	return fmt.Sprintf("location(%d)", int(l))
}

// DisplayName returns the translated name of the location.
func (l Location) DisplayName() string {
	return i18n.T("location." + l.String())
}

// ParseLocation is the inverse of Location.String.
func ParseLocation(s string) (Location, error) {
	for l, name := range locationNames {
		if strings.EqualFold(name, s) {
			return l, nil
		}
	}
	return LocationInvalid, fmt.Errorf("unknown location %q", s)
}

// Usage describes what an object is for.
type Usage int

const (
	UsageNone Usage = iota
	UsageSymmetricKey
	UsagePublicKey
	UsagePrivateKey
	UsageCredentials
	UsageIdentity
	UsageOther
)

var usageNames = []string{
	UsageNone:         "none",
	UsageSymmetricKey: "symmetric_key",
	UsagePublicKey:    "public_key",
	UsagePrivateKey:   "private_key",
	UsageCredentials:  "credentials",
	UsageIdentity:     "identity",
	UsageOther:        "other",
}

func (u Usage) String() string {
	if u >= 0 && int(u) < len(usageNames) {
		return usageNames[u]
	}
	return fmt.Sprintf("usage(%d)", int(u))
}

// DisplayName returns the translated name of the usage.
func (u Usage) DisplayName() string {
	return i18n.T("usage." + u.String())
}

// ParseUsage is the inverse of Usage.String. Dashes are accepted in place
// of underscores.
func ParseUsage(s string) (Usage, error) {
	s = strings.ReplaceAll(strings.ToLower(s), "-", "_")
	for u, name := range usageNames {
		if name == s {
			return Usage(u), nil
		}
	}
	return UsageNone, fmt.Errorf("unknown usage %q", s)
}

// Flags is a bitmask of capability and state bits.
type Flags uint32

const (
	FlagIsValid Flags = 1 << iota
	FlagCanEncrypt
	FlagCanSign
	FlagExpired
	FlagRevoked
	FlagDisabled
	FlagTrusted
	FlagPersonal
	FlagExportable
	FlagDeletable
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagIsValid, "valid"},
	{FlagCanEncrypt, "can-encrypt"},
	{FlagCanSign, "can-sign"},
	{FlagExpired, "expired"},
	{FlagRevoked, "revoked"},
	{FlagDisabled, "disabled"},
	{FlagTrusted, "trusted"},
	{FlagPersonal, "personal"},
	{FlagExportable, "exportable"},
	{FlagDeletable, "deletable"},
}

// Has reports whether every bit of mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseFlags reads a '|' or ',' separated list of flag names.
func ParseFlags(s string) (Flags, error) {
	var out Flags
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.TrimSpace(strings.ToLower(part))
		found := false
		for _, fn := range flagNames {
			if fn.name == part {
				out |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown flag %q", part)
		}
	}
	return out, nil
}

// Property names a field of an Object in change notifications.
type Property int

const (
	PropContext Property = iota + 1
	PropSource
	PropPreferred
	PropID
	PropTag
	PropLabel
	PropMarkup
	PropNickname
	PropIcon
	PropIdentifier
	PropLocation
	PropUsage
	PropFlags
)

var propertyNames = map[Property]string{
	PropContext:    "context",
	PropSource:     "source",
	PropPreferred:  "preferred",
	PropID:         "id",
	PropTag:        "tag",
	PropLabel:      "label",
	PropMarkup:     "markup",
	PropNickname:   "nickname",
	PropIcon:       "icon",
	PropIdentifier: "identifier",
	PropLocation:   "location",
	PropUsage:      "usage",
	PropFlags:      "flags",
}

func (p Property) String() string {
	if s, ok := propertyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("property(%d)", int(p))
}
