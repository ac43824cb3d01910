// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package source provides the bookkeeping shared by object backends.
//
// A Source is a named backend that puts objects into a registry and keeps
// track of them under keys of its own choosing. Backends (ssh directories,
// the ssh agent, the database cache) compute the objects they want and hand
// them to Reconcile, which adds, updates or destroys registry members so
// that the registry follows the backend incrementally.
package source

import (
	"slices"

	"github.com/toeirei/keyview/internal/logging"
	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/registry"
	"github.com/toeirei/keyview/internal/signal"
	"github.com/toeirei/keyview/internal/weakref"
)

// Stats counts the registry changes made by one Reconcile.
type Stats struct {
	Added   int
	Removed int
	Updated int
}

// Source implements object.Source for one backend.
type Source struct {
	anchor  weakref.Anchor
	name    string
	reg     *registry.Registry
	objects map[string]*object.Object

	prefer    func(*object.Object) bool
	onAdded   signal.Handle
	onChanged signal.Handle
	closed    bool
}

// New returns a source named name feeding reg.
func New(name string, reg *registry.Registry) *Source {
	return &Source{
		name:    name,
		reg:     reg,
		objects: make(map[string]*object.Object),
	}
}

// WeakAnchor implements weakref.Anchored.
func (s *Source) WeakAnchor() *weakref.Anchor {
	if s == nil {
		return nil
	}
	return &s.anchor
}

// Name returns the display name of the backend.
func (s *Source) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Source) String() string { return s.Name() }

// Registry returns the registry the source feeds.
func (s *Source) Registry() *registry.Registry { return s.reg }

// Len returns the number of objects the source currently owns.
func (s *Source) Len() int { return len(s.objects) }

// Objects returns the source's objects ordered by key.
func (s *Source) Objects() []*object.Object {
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]*object.Object, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.objects[k])
	}
	return out
}

// Owns reports whether o was put into the registry by this source.
func (s *Source) Owns(o *object.Object) bool {
	src := o.Source()
	return src != nil && src == object.Source(s)
}

// Reconcile makes the source's registry objects equal to want.
//
// Keys missing from want are destroyed. Keys already known keep their
// object, whose label, location, usage, flags and icon are updated from the
// wanted one inside a single Update. New keys add the wanted object after
// pointing its source at s. Objects passed in for known keys are discarded
// and must not have been added anywhere.
func (s *Source) Reconcile(want map[string]*object.Object) (Stats, error) {
	var st Stats
	if s.closed {
		return st, registry.ErrDisposed
	}

	for _, key := range sortedKeys(s.objects) {
		o := s.objects[key]
		if _, ok := want[key]; ok && s.reg.Contains(o) {
			continue
		}
		delete(s.objects, key)
		if s.reg.Contains(o) {
			s.reg.Destroy(o)
			st.Removed++
		} else {
			// removed behind our back; re-added below if still wanted
			o.Dispose()
		}
	}

	var firstErr error
	for _, key := range sortedKeys(want) {
		fresh := want[key]
		if cur, ok := s.objects[key]; ok {
			if copyFields(cur, fresh) {
				st.Updated++
			}
			s.link(cur)
			continue
		}
		fresh.SetSource(s)
		if err := s.reg.Add(fresh); err != nil {
			fresh.SetSource(nil)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.objects[key] = fresh
		st.Added++
		s.link(fresh)
	}
	logging.Debugf("source %s: +%d -%d ~%d", s.name, st.Added, st.Removed, st.Updated)
	return st, firstErr
}

// copyFields moves the backend-provided fields of src onto dst and reports
// whether anything changed.
func copyFields(dst, src *object.Object) bool {
	changed := false
	count := func(object.Property) { changed = true }
	h := dst.Notify().Connect(count)
	dst.Update(func(o *object.Object) {
		o.SetLabel(src.Label())
		o.SetLocation(src.Location())
		o.SetUsage(src.Usage())
		o.SetFlags(src.Flags())
		o.SetIcon(src.Icon())
	})
	dst.Notify().Disconnect(h)
	return changed
}

// PreferOthers makes every object of this source prefer a registry object
// with the same id that belongs to another backend and is accepted by
// accept. Links are made for objects already present and kept up to date
// as objects are added to the registry or change id; they clear by
// themselves when the preferred object is disposed.
func (s *Source) PreferOthers(accept func(*object.Object) bool) {
	if s.closed || s.prefer != nil {
		return
	}
	s.prefer = accept
	s.onAdded = s.reg.Added().Connect(s.registryAdded)
	s.onChanged = s.reg.Changed().Connect(s.registryChanged)
	for _, o := range s.Objects() {
		s.link(o)
	}
}

func (s *Source) registryAdded(o *object.Object) {
	if s.Owns(o) || !s.prefer(o) {
		return
	}
	for _, own := range s.objects {
		if own.ID() == o.ID() && own.Preferred() == nil {
			own.SetPreferred(o)
		}
	}
}

// registryChanged drops links whose ends no longer share an id and
// relinks the affected objects.
func (s *Source) registryChanged(o *object.Object) {
	if s.Owns(o) {
		if p := o.Preferred(); p != nil && p.ID() != o.ID() {
			o.SetPreferred(nil)
		}
		s.link(o)
		return
	}
	for _, own := range s.objects {
		if own.Preferred() == o && own.ID() != o.ID() {
			own.SetPreferred(nil)
			s.link(own)
		}
	}
	if s.prefer(o) {
		s.registryAdded(o)
	}
}

func (s *Source) link(own *object.Object) {
	if s.prefer == nil || own.Preferred() != nil {
		return
	}
	for _, cand := range s.reg.LookupAll(own.ID()) {
		if cand != own && !s.Owns(cand) && s.prefer(cand) {
			own.SetPreferred(cand)
			return
		}
	}
}

// Close destroys every object of the source and disposes it, which clears
// the source of any object still pointing at it.
func (s *Source) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.prefer != nil {
		s.reg.Added().Disconnect(s.onAdded)
		s.reg.Changed().Disconnect(s.onChanged)
	}
	for _, key := range sortedKeys(s.objects) {
		s.reg.Destroy(s.objects[key])
	}
	s.objects = nil
	s.anchor.Dispose()
}

func sortedKeys(m map[string]*object.Object) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
