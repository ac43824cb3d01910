// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package collection provides a live, predicate-filtered view of a registry.
//
// A Collection listens to the registry's added, removed and changed signals
// and keeps its member set equal to the registry objects matching its
// predicate. Consumers (list views, exporters, watchers) subscribe to the
// collection's own Added and Removed signals.
package collection

import (
	"github.com/toeirei/keyview/internal/logging"
	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/predicate"
	"github.com/toeirei/keyview/internal/signal"
)

// Context is the registry contract a Collection depends on.
type Context interface {
	FindObjectsMatching(p *predicate.Predicate) []*object.Object
	Contains(o *object.Object) bool
	Added() *signal.Signal[*object.Object]
	Removed() *signal.Signal[*object.Object]
	Changed() *signal.Signal[*object.Object]
}

// Collection is the set of registry objects matching a fixed predicate.
// It never owns its members. It is not safe for concurrent use.
type Collection struct {
	ctx     Context
	pred    *predicate.Predicate
	destroy func(*predicate.Predicate)
	objects map[*object.Object]struct{}

	onAdded, onRemoved, onChanged signal.Handle
	closed                        bool

	added   signal.Signal[*object.Object]
	removed signal.Signal[*object.Object]
}

// New creates a collection over ctx holding the objects matched by pred.
// A nil pred yields a collection that stays empty. destroy, if not nil, is
// called with pred when the collection is closed.
func New(ctx Context, pred *predicate.Predicate, destroy func(*predicate.Predicate)) *Collection {
	c := &Collection{
		ctx:     ctx,
		pred:    pred,
		destroy: destroy,
		objects: make(map[*object.Object]struct{}),
	}
	c.onAdded = ctx.Added().Connect(c.objectAdded)
	c.onRemoved = ctx.Removed().Connect(c.objectRemoved)
	c.onChanged = ctx.Changed().Connect(c.objectChanged)
	c.Refresh()
	return c
}

// Added fires after an object joined the collection. The predicate held for
// the object at that moment.
func (c *Collection) Added() *signal.Signal[*object.Object] { return &c.added }

// Removed fires after an object left the collection.
func (c *Collection) Removed() *signal.Signal[*object.Object] { return &c.removed }

// Predicate returns the predicate given to New.
func (c *Collection) Predicate() *predicate.Predicate { return c.pred }

// HasObject reports whether o is a member.
func (c *Collection) HasObject(o *object.Object) bool {
	_, ok := c.objects[o]
	return ok
}

// Len returns the number of members.
func (c *Collection) Len() int {
	return len(c.objects)
}

// Objects returns a snapshot of the members in unspecified order.
func (c *Collection) Objects() []*object.Object {
	out := make([]*object.Object, 0, len(c.objects))
	for o := range c.objects {
		out = append(out, o)
	}
	return out
}

// Refresh resynchronizes the member set with the registry, emitting Added
// and Removed for the differences only. Calling it on an up to date
// collection emits nothing.
func (c *Collection) Refresh() {
	if c.closed {
		return
	}
	seen := make(map[*object.Object]struct{}, len(c.objects))
	for o := range c.objects {
		seen[o] = struct{}{}
	}

	var matched []*object.Object
	if c.pred != nil {
		matched = c.ctx.FindObjectsMatching(c.pred)
	}
	for _, o := range matched {
		delete(seen, o)
		c.maybeAdd(o)
	}

	stale := make([]*object.Object, 0, len(seen))
	for o := range seen {
		stale = append(stale, o)
	}
	for _, o := range stale {
		c.maybeRemove(o)
	}
}

// Close detaches from the registry, emits Removed for every remaining
// member and calls the predicate destructor. Further calls are no-ops.
func (c *Collection) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.ctx.Added().Disconnect(c.onAdded)
	c.ctx.Removed().Disconnect(c.onRemoved)
	c.ctx.Changed().Disconnect(c.onChanged)

	for _, o := range c.Objects() {
		c.remove(o)
	}
	c.objects = nil
	if c.destroy != nil {
		c.destroy(c.pred)
	}
	c.added.Reset()
	c.removed.Reset()
}

func (c *Collection) objectAdded(o *object.Object) {
	c.maybeAdd(o)
}

func (c *Collection) objectRemoved(o *object.Object) {
	c.remove(o)
}

func (c *Collection) objectChanged(o *object.Object) {
	if c.HasObject(o) {
		c.maybeRemove(o)
	} else {
		c.maybeAdd(o)
	}
}

// maybeAdd adds o when it is a registry member matching the predicate and
// not yet in the set. The membership check covers objects removed by an
// earlier handler of the same dispatch.
func (c *Collection) maybeAdd(o *object.Object) bool {
	if c.closed || c.HasObject(o) {
		return false
	}
	if c.pred == nil || !c.pred.Match(o) || !c.ctx.Contains(o) {
		return false
	}
	c.objects[o] = struct{}{}
	logging.Debugf("collection: added %s", o)
	c.added.Emit(o)
	return true
}

// maybeRemove drops o when it no longer matches.
func (c *Collection) maybeRemove(o *object.Object) bool {
	if c.pred != nil && c.pred.Match(o) && c.ctx.Contains(o) {
		return false
	}
	return c.remove(o)
}

func (c *Collection) remove(o *object.Object) bool {
	if !c.HasObject(o) {
		return false
	}
	delete(c.objects, o)
	logging.Debugf("collection: removed %s", o)
	c.removed.Emit(o)
	return true
}
