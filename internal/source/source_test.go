// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package source

import (
	"testing"

	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/registry"
)

func want(pairs ...string) map[string]*object.Object {
	m := make(map[string]*object.Object)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = object.New(object.WithID(object.ID("ssh:"+pairs[i])), object.WithLabel(pairs[i+1]))
	}
	return m
}

func TestReconcile_AddUpdateRemove(t *testing.T) {
	reg := registry.New()
	s := New("test", reg)

	st, err := s.Reconcile(want("a", "first", "b", "second"))
	if err != nil || st.Added != 2 || reg.Len() != 2 {
		t.Fatalf("initial reconcile: %+v %v len=%d", st, err, reg.Len())
	}
	a := reg.Lookup("ssh:a")
	if a.Source() != object.Source(s) || !s.Owns(a) {
		t.Fatalf("source not set on added object")
	}

	var changed int
	reg.Changed().Connect(func(*object.Object) { changed++ })
	st, err = s.Reconcile(want("a", "renamed"))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if st.Updated != 1 || st.Removed != 1 || st.Added != 0 {
		t.Fatalf("second reconcile: %+v", st)
	}
	if reg.Lookup("ssh:a") != a || a.Label() != "renamed" {
		t.Fatalf("existing object not updated in place")
	}
	if changed == 0 {
		t.Fatalf("update did not reach the registry")
	}
	if reg.Lookup("ssh:b") != nil {
		t.Fatalf("dropped key still registered")
	}

	st, _ = s.Reconcile(want("a", "renamed"))
	if st != (Stats{}) {
		t.Fatalf("no-op reconcile changed something: %+v", st)
	}
}

func TestReconcile_ReaddsObjectsRemovedElsewhere(t *testing.T) {
	reg := registry.New()
	s := New("test", reg)
	_, _ = s.Reconcile(want("a", "x"))
	reg.Destroy(reg.Lookup("ssh:a"))

	st, _ := s.Reconcile(want("a", "x"))
	if st.Added != 1 || reg.Lookup("ssh:a") == nil {
		t.Fatalf("object not re-added: %+v", st)
	}
}

func TestClose(t *testing.T) {
	reg := registry.New()
	s := New("test", reg)
	_, _ = s.Reconcile(want("a", "x", "b", "y"))

	s.Close()
	if reg.Len() != 0 || s.Len() != 0 {
		t.Fatalf("objects left after close: reg=%d", reg.Len())
	}
	if _, err := s.Reconcile(want("c", "z")); err == nil {
		t.Fatalf("closed source accepted objects")
	}
	s.Close()
}

func TestPreferOthers(t *testing.T) {
	reg := registry.New()
	agent := New("agent", reg)
	disk := New("disk", reg)
	_, _ = agent.Reconcile(want("k", "from agent"))
	own := reg.Lookup("ssh:k")

	agent.PreferOthers(func(o *object.Object) bool { return o.Source() == object.Source(disk) })
	if own.Preferred() != nil {
		t.Fatalf("preferred set without a candidate")
	}

	_, _ = disk.Reconcile(want("k", "from disk"))
	var other *object.Object
	for _, o := range reg.LookupAll("ssh:k") {
		if o != own {
			other = o
		}
	}
	if own.Preferred() != other {
		t.Fatalf("agent object does not prefer the disk object")
	}

	disk.Close()
	if own.Preferred() != nil {
		t.Fatalf("preferred reference survived disposal")
	}

	_, _ = disk.Reconcile(want("k", "again"))
	if own.Preferred() != nil {
		t.Fatalf("closed source produced objects")
	}
}

func TestPreferOthers_FollowsIDChanges(t *testing.T) {
	reg := registry.New()
	defer reg.Close()
	agent := New("agent", reg)
	disk := New("disk", reg)
	_, _ = agent.Reconcile(want("k", "from agent"))
	_, _ = disk.Reconcile(want("j", "from disk"))
	own := reg.Lookup("ssh:k")
	other := reg.Lookup("ssh:j")
	agent.PreferOthers(func(o *object.Object) bool { return o.Source() == object.Source(disk) })

	if own.Preferred() != nil {
		t.Fatalf("linked objects with different ids")
	}
	other.SetID("ssh:k")
	if own.Preferred() != other {
		t.Fatalf("no link after the other object took the same id")
	}

	own.SetID("ssh:x")
	if own.Preferred() != nil {
		t.Fatalf("link kept after the own object changed id")
	}
	own.SetID("ssh:k")
	if own.Preferred() != other {
		t.Fatalf("no link after the own object returned to the shared id")
	}

	other.SetID("ssh:y")
	if own.Preferred() != nil {
		t.Fatalf("link kept after the preferred object changed id")
	}
}
