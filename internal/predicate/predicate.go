// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package predicate holds the declarative object filter used by registries
// and collections.
package predicate

import (
	"github.com/toeirei/keyview/internal/logging"
	"github.com/toeirei/keyview/internal/object"
)

// Predicate selects objects. Every zero-valued field is a wildcard; the set
// fields must all hold for a match.
type Predicate struct {
	Tag      object.Tag
	ID       object.ID
	Kind     object.Kind
	Location object.Location
	Usage    object.Usage
	// Flags matches objects sharing at least one bit with it.
	Flags object.Flags
	// NFlags rejects objects sharing any bit with it.
	NFlags object.Flags
	Source object.Source

	// Custom is consulted last, with CustomArg as its second argument.
	Custom    func(o *object.Object, arg any) bool
	CustomArg any
}

// Match reports whether o satisfies every set criterion. It does not modify
// p or o and may be called from several readers at once.
func (p *Predicate) Match(o *object.Object) bool {
	if o == nil {
		logging.Warnf("predicate: match called with nil object")
		return false
	}
	if p == nil {
		return true
	}
	if p.Tag != "" && p.Tag != o.Tag() {
		return false
	}
	if p.ID != "" && p.ID != o.ID() {
		return false
	}
	if p.Kind != "" && p.Kind != o.Kind() {
		return false
	}
	if p.Location != object.LocationInvalid && p.Location != o.Location() {
		return false
	}
	if p.Usage != object.UsageNone && p.Usage != o.Usage() {
		return false
	}
	if p.Flags != 0 && p.Flags&o.Flags() == 0 {
		return false
	}
	if p.NFlags != 0 && p.NFlags&o.Flags() != 0 {
		return false
	}
	if p.Source != nil && p.Source != o.Source() {
		return false
	}
	if p.Custom != nil && !p.Custom(o, p.CustomArg) {
		return false
	}
	return true
}

// Clear resets p to the match-everything predicate.
func (p *Predicate) Clear() {
	*p = Predicate{}
}

// IsZero reports whether p constrains nothing.
func (p *Predicate) IsZero() bool {
	return p.Tag == "" && p.ID == "" && p.Kind == "" &&
		p.Location == object.LocationInvalid && p.Usage == object.UsageNone &&
		p.Flags == 0 && p.NFlags == 0 && p.Source == nil && p.Custom == nil
}
