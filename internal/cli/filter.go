// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/predicate"
)

// filterFlags are the predicate flags shared by list, watch and export.
type filterFlags struct {
	tag, id, kind, location, usage string
	flags, nflags                  string
	match                          string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.tag, "tag", "", `only objects of this tag, e.g. "ssh"`)
	fs.StringVar(&f.id, "id", "", "only the object with this id")
	fs.StringVar(&f.kind, "kind", "", `only objects of this kind ("sshdir", "agent", "cache")`)
	fs.StringVar(&f.location, "location", "", "only objects at this location (missing, remote, local, ...)")
	fs.StringVar(&f.usage, "usage", "", "only objects with this usage (public-key, private-key, ...)")
	fs.StringVar(&f.flags, "flags", "", `objects having any of these flags, e.g. "trusted|can-sign"`)
	fs.StringVar(&f.nflags, "nflags", "", "objects having none of these flags")
	fs.StringVar(&f.match, "match", "", "case-insensitive text in label, nickname or identifier")
}

// predicate builds the match predicate described by the flags.
func (f *filterFlags) predicate() (*predicate.Predicate, error) {
	p := &predicate.Predicate{
		Tag:  object.Tag(f.tag),
		ID:   object.ID(f.id),
		Kind: object.Kind(f.kind),
	}
	var err error
	if f.location != "" {
		if p.Location, err = object.ParseLocation(f.location); err != nil {
			return nil, err
		}
	}
	if f.usage != "" {
		if p.Usage, err = object.ParseUsage(f.usage); err != nil {
			return nil, err
		}
	}
	if p.Flags, err = object.ParseFlags(f.flags); err != nil {
		return nil, err
	}
	if p.NFlags, err = object.ParseFlags(f.nflags); err != nil {
		return nil, err
	}
	if f.match != "" {
		p.Custom = matchText
		p.CustomArg = strings.ToLower(f.match)
	}
	return p, nil
}

func matchText(o *object.Object, arg any) bool {
	needle, _ := arg.(string)
	for _, s := range []string{o.Label(), o.Nickname(), o.Identifier()} {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}
