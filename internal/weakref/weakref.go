// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package weakref implements non-owning references that clear themselves
// when their target is disposed.
//
// A target carries an Anchor. Holders keep a Ref, which registers a watcher on
// the target's anchor; disposing the anchor runs every watcher, so each Ref
// pointing at it reads as unset from then on. Nothing here keeps a target
// alive or frees it: disposal is decided by the target's owner.
package weakref

// Anchored is implemented by anything that can be the target of a Ref.
// WeakAnchor must return nil for a nil receiver.
type Anchored interface {
	WeakAnchor() *Anchor
}

// Anchor is the dispose notification point of a weak target.
// The zero value is ready to use.
type Anchor struct {
	watchers map[uint64]func()
	next     uint64
	disposed bool
}

// WeakAnchor lets a type embedding Anchor satisfy Anchored.
func (a *Anchor) WeakAnchor() *Anchor { return a }

// Watch registers fn to run once when the anchor is disposed and returns an
// id for Unwatch. Watching a disposed anchor runs fn immediately.
func (a *Anchor) Watch(fn func()) uint64 {
	if a.disposed {
		fn()
		return 0
	}
	if a.watchers == nil {
		a.watchers = make(map[uint64]func())
	}
	a.next++
	a.watchers[a.next] = fn
	return a.next
}

// Unwatch drops the watcher registered under id.
func (a *Anchor) Unwatch(id uint64) {
	delete(a.watchers, id)
}

// Watchers returns the number of live watchers.
func (a *Anchor) Watchers() int {
	return len(a.watchers)
}

// Disposed reports whether Dispose has run.
func (a *Anchor) Disposed() bool {
	return a.disposed
}

// Dispose marks the anchor disposed and runs every watcher. Further calls
// are no-ops.
func (a *Anchor) Dispose() {
	if a.disposed {
		return
	}
	a.disposed = true
	watchers := a.watchers
	a.watchers = nil
	for _, fn := range watchers {
		fn()
	}
}

// Ref is a weak reference to a T. The zero value is unset.
// A Ref registers a callback holding its own address, so it must not be
// copied once set.
type Ref[T interface {
	comparable
	Anchored
}] struct {
	target T
	watch  uint64
	set    bool
}

// Get returns the target, or the zero T if unset or the target was disposed.
func (r *Ref[T]) Get() T {
	return r.target
}

// IsSet reports whether the reference currently points at a live target.
func (r *Ref[T]) IsSet() bool {
	return r.set
}

// Set points the reference at v and reports whether the stored target
// changed. Setting a nil or already disposed target clears the reference.
func (r *Ref[T]) Set(v T) bool {
	if r.set && r.target == v {
		return false
	}
	anchor := anchorOf(v)
	if anchor != nil && anchor.Disposed() {
		anchor = nil
	}
	if !r.set && anchor == nil {
		return false
	}
	r.release()
	if anchor == nil {
		return true
	}
	r.target = v
	r.set = true
	r.watch = anchor.Watch(r.clear)
	return true
}

// Clear unsets the reference and stops watching the target.
func (r *Ref[T]) Clear() bool {
	if !r.set {
		return false
	}
	r.release()
	return true
}

func (r *Ref[T]) release() {
	if r.set {
		if a := anchorOf(r.target); a != nil {
			a.Unwatch(r.watch)
		}
	}
	r.clear()
}

func (r *Ref[T]) clear() {
	var zero T
	r.target = zero
	r.watch = 0
	r.set = false
}

func anchorOf[T Anchored](v T) *Anchor {
	if any(v) == nil {
		return nil
	}
	return v.WeakAnchor()
}
