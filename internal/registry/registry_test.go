// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"errors"
	"testing"

	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/predicate"
)

type events struct {
	added, removed, changed []*object.Object
}

func watch(r *Registry) *events {
	ev := &events{}
	r.Added().Connect(func(o *object.Object) { ev.added = append(ev.added, o) })
	r.Removed().Connect(func(o *object.Object) { ev.removed = append(ev.removed, o) })
	r.Changed().Connect(func(o *object.Object) { ev.changed = append(ev.changed, o) })
	return ev
}

func TestAdd_SetsContextAndEmits(t *testing.T) {
	r := New()
	ev := watch(r)
	o := object.New(object.WithID("ssh:A"))

	if err := r.Add(o); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if o.Context() != object.Context(r) {
		t.Fatalf("context not set on added object")
	}
	if len(ev.added) != 1 || ev.added[0] != o {
		t.Fatalf("added events: %v", ev.added)
	}
	if len(ev.changed) != 0 {
		t.Fatalf("context assignment must not surface as a change: %v", ev.changed)
	}
	if !r.Contains(o) || r.Len() != 1 || r.Lookup("ssh:A") != o {
		t.Fatalf("registry state wrong after add")
	}
}

func TestAdd_Errors(t *testing.T) {
	r := New()
	o := object.New()
	if err := r.Add(nil); !errors.Is(err, ErrNilObject) {
		t.Fatalf("nil: got %v", err)
	}
	if err := r.Add(o); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(o); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("twice: got %v", err)
	}
	if err := New().Add(o); !errors.Is(err, ErrForeignObject) {
		t.Fatalf("foreign: got %v", err)
	}

	dead := object.New()
	dead.Dispose()
	if err := r.Add(dead); !errors.Is(err, ErrDisposed) {
		t.Fatalf("disposed: got %v", err)
	}

	r.Close()
	if err := r.Add(object.New()); !errors.Is(err, ErrDisposed) {
		t.Fatalf("closed registry: got %v", err)
	}
}

func TestChanged_ForwardsPropertyNotifications(t *testing.T) {
	r := New()
	o := object.New(object.WithID("ssh:A"))
	_ = r.Add(o)
	ev := watch(r)

	o.SetFlags(object.FlagTrusted)
	if len(ev.changed) != 1 || ev.changed[0] != o {
		t.Fatalf("changed events: %v", ev.changed)
	}

	ev.changed = nil
	o.Update(func(o *object.Object) {
		o.SetLabel("one")
		o.SetLocation(object.LocationLocal)
	})
	// label, markup, nickname, location
	if len(ev.changed) != 4 {
		t.Fatalf("expected one change per coalesced property, got %d", len(ev.changed))
	}
}

func TestRemoveObject(t *testing.T) {
	r := New()
	o := object.New(object.WithID("ssh:A"))
	_ = r.Add(o)
	ev := watch(r)

	r.RemoveObject(o)
	if o.Context() != nil {
		t.Fatalf("context not cleared on removal")
	}
	if len(ev.removed) != 1 || r.Contains(o) || r.Lookup("ssh:A") != nil {
		t.Fatalf("removal incomplete")
	}
	o.SetLabel("after")
	if len(ev.changed) != 0 {
		t.Fatalf("removed object still forwards changes")
	}
	r.RemoveObject(o)
	if len(ev.removed) != 1 {
		t.Fatalf("second removal emitted again")
	}
	if o.Disposed() {
		t.Fatalf("RemoveObject must not dispose")
	}
}

func TestDispose_DeregistersThroughContext(t *testing.T) {
	r := New()
	o := object.New()
	_ = r.Add(o)
	ev := watch(r)

	o.Dispose()
	if r.Contains(o) || len(ev.removed) != 1 {
		t.Fatalf("disposing a member did not remove it")
	}
}

func TestDestroy(t *testing.T) {
	r := New()
	o := object.New()
	_ = r.Add(o)
	r.Destroy(o)
	if !o.Disposed() || r.Contains(o) {
		t.Fatalf("Destroy did not remove and dispose")
	}
	stranger := object.New()
	r.Destroy(stranger)
	if stranger.Disposed() {
		t.Fatalf("Destroy disposed an object it does not own")
	}
}

func TestFindObjectsMatching(t *testing.T) {
	r := New()
	a := object.New(object.WithID("openpgp:A"))
	b := object.New(object.WithID("ssh:B"))
	c := object.New(object.WithID("ssh:C"))
	for _, o := range []*object.Object{a, b, c} {
		_ = r.Add(o)
	}

	got := r.FindObjectsMatching(&predicate.Predicate{Tag: "ssh"})
	if len(got) != 2 || got[0] != b || got[1] != c {
		t.Fatalf("got %v", got)
	}
	if all := r.FindObjectsMatching(nil); len(all) != 3 {
		t.Fatalf("nil predicate should match all, got %d", len(all))
	}

	got[0] = nil
	if r.FindObjectsMatching(&predicate.Predicate{Tag: "ssh"})[0] != b {
		t.Fatalf("result slice aliases registry state")
	}
}

func TestLookup_FollowsIDChanges(t *testing.T) {
	r := New()
	o := object.New(object.WithID("ssh:A"))
	twin := object.New(object.WithID("ssh:A"))
	_ = r.Add(o)
	_ = r.Add(twin)

	if all := r.LookupAll("ssh:A"); len(all) != 2 {
		t.Fatalf("LookupAll: %v", all)
	}
	o.SetID("ssh:Z")
	if r.Lookup("ssh:Z") != o || r.Lookup("ssh:A") != twin {
		t.Fatalf("index not updated after id change")
	}
}

func TestClose_DestroysMembers(t *testing.T) {
	r := New()
	a, b := object.New(), object.New()
	_ = r.Add(a)
	_ = r.Add(b)
	ev := watch(r)

	r.Close()
	if !a.Disposed() || !b.Disposed() {
		t.Fatalf("members survived Close")
	}
	if len(ev.removed) != 2 {
		t.Fatalf("expected removed for each member, got %d", len(ev.removed))
	}
	if r.Len() != 0 {
		t.Fatalf("registry not empty after Close")
	}
	r.Close()
}

func TestReentrantRemovalDuringAdded(t *testing.T) {
	r := New()
	victim := object.New()
	_ = r.Add(victim)

	r.Added().Connect(func(o *object.Object) {
		if r.Contains(victim) {
			r.Destroy(victim)
		}
	})
	var seen []*object.Object
	r.Added().Connect(func(o *object.Object) { seen = append(seen, o) })

	n := object.New()
	if err := r.Add(n); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(seen) != 1 || seen[0] != n || r.Contains(victim) || r.Len() != 1 {
		t.Fatalf("reentrant destroy broke dispatch: seen=%v len=%d", seen, r.Len())
	}
}
