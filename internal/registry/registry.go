// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package registry is the authoritative store of every known object.
//
// A Registry owns the objects added to it: it is the only holder allowed to
// dispose them. It announces membership and state changes on three signals,
// Added, Removed and Changed, delivered synchronously in subscription order.
// Changed fires for every property notification of a member object.
package registry

import (
	"fmt"

	"github.com/toeirei/keyview/internal/logging"
	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/predicate"
	"github.com/toeirei/keyview/internal/signal"
	"github.com/toeirei/keyview/internal/weakref"
)

type entry struct {
	id     object.ID
	notify signal.Handle
}

// Registry holds objects and implements object.Context.
// It is not safe for concurrent use.
type Registry struct {
	anchor  weakref.Anchor
	entries map[*object.Object]*entry
	order   []*object.Object
	byID    map[object.ID][]*object.Object
	closed  bool

	added   signal.Signal[*object.Object]
	removed signal.Signal[*object.Object]
	changed signal.Signal[*object.Object]
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[*object.Object]*entry),
		byID:    make(map[object.ID][]*object.Object),
	}
}

// WeakAnchor implements weakref.Anchored.
func (r *Registry) WeakAnchor() *weakref.Anchor {
	if r == nil {
		return nil
	}
	return &r.anchor
}

// Added fires after an object joined the registry.
func (r *Registry) Added() *signal.Signal[*object.Object] { return &r.added }

// Removed fires after an object left the registry.
func (r *Registry) Removed() *signal.Signal[*object.Object] { return &r.removed }

// Changed fires when a member object changed one of its properties.
func (r *Registry) Changed() *signal.Signal[*object.Object] { return &r.changed }

// Add registers o, making the registry its owner.
func (r *Registry) Add(o *object.Object) error {
	switch {
	case o == nil:
		return ErrNilObject
	case r.closed:
		return ErrDisposed
	case o.Disposed():
		return fmt.Errorf("add %s: %w", o, ErrDisposed)
	}
	if _, ok := r.entries[o]; ok {
		return fmt.Errorf("add %s: %w", o, ErrAlreadyRegistered)
	}
	if ctx := o.Context(); ctx != nil && ctx != object.Context(r) {
		return fmt.Errorf("add %s: %w", o, ErrForeignObject)
	}

	e := &entry{}
	r.entries[o] = e
	r.order = append(r.order, o)
	r.index(o, e)
	o.SetContext(r)
	e.notify = o.Notify().Connect(func(p object.Property) {
		r.onNotify(o, p)
	})

	logging.Debugf("registry: added %s", o)
	r.added.Emit(o)
	return nil
}

// onNotify keeps the id index current and forwards the change.
func (r *Registry) onNotify(o *object.Object, p object.Property) {
	e, ok := r.entries[o]
	if !ok {
		return
	}
	switch p {
	case object.PropContext:
		// set by the registry itself on add and remove
		return
	case object.PropID:
		r.unindex(o, e)
		r.index(o, e)
	}
	r.changed.Emit(o)
}

// RemoveObject deregisters o without disposing it. Non-members are ignored.
func (r *Registry) RemoveObject(o *object.Object) {
	e, ok := r.entries[o]
	if !ok {
		return
	}
	o.Notify().Disconnect(e.notify)
	delete(r.entries, o)
	r.order = removeFrom(r.order, o)
	r.unindex(o, e)
	o.SetContext(nil)

	logging.Debugf("registry: removed %s", o)
	r.removed.Emit(o)
}

// Destroy removes o and disposes it. Only the owning registry may do this.
func (r *Registry) Destroy(o *object.Object) {
	if !r.Contains(o) {
		logging.Warnf("registry: destroy of non-member %s ignored", o)
		return
	}
	r.RemoveObject(o)
	o.Dispose()
}

// Contains reports whether o is currently registered.
func (r *Registry) Contains(o *object.Object) bool {
	_, ok := r.entries[o]
	return ok
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Objects returns a snapshot of every member in insertion order.
func (r *Registry) Objects() []*object.Object {
	out := make([]*object.Object, len(r.order))
	copy(out, r.order)
	return out
}

// FindObjectsMatching returns a fresh slice of the members matching p, in
// insertion order. A nil p matches every member.
func (r *Registry) FindObjectsMatching(p *predicate.Predicate) []*object.Object {
	var out []*object.Object
	for _, o := range r.order {
		if p.Match(o) {
			out = append(out, o)
		}
	}
	return out
}

// Lookup returns the first registered object with the given id.
func (r *Registry) Lookup(id object.ID) *object.Object {
	if objs := r.byID[id]; len(objs) > 0 {
		return objs[0]
	}
	return nil
}

// LookupAll returns every registered object with the given id.
func (r *Registry) LookupAll(id object.ID) []*object.Object {
	objs := r.byID[id]
	out := make([]*object.Object, len(objs))
	copy(out, objs)
	return out
}

// Close destroys every member and disposes the registry. Weak context
// references to it clear.
func (r *Registry) Close() {
	if r.closed {
		return
	}
	for _, o := range r.Objects() {
		if r.Contains(o) {
			r.Destroy(o)
		}
	}
	r.closed = true
	r.added.Reset()
	r.removed.Reset()
	r.changed.Reset()
	r.anchor.Dispose()
}

func (r *Registry) index(o *object.Object, e *entry) {
	e.id = o.ID()
	if e.id != "" {
		r.byID[e.id] = append(r.byID[e.id], o)
	}
}

func (r *Registry) unindex(o *object.Object, e *entry) {
	rest := removeFrom(r.byID[e.id], o)
	if len(rest) == 0 {
		delete(r.byID, e.id)
	} else {
		r.byID[e.id] = rest
	}
	e.id = ""
}

func removeFrom(objs []*object.Object, o *object.Object) []*object.Object {
	for i, x := range objs {
		if x == o {
			out := make([]*object.Object, 0, len(objs)-1)
			out = append(out, objs[:i]...)
			return append(out, objs[i+1:]...)
		}
	}
	return objs
}
