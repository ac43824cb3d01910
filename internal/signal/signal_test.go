// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package signal

import (
	"reflect"
	"testing"
)

func TestEmit_DeliversInConnectOrder(t *testing.T) {
	var s Signal[int]
	var got []string
	s.Connect(func(v int) { got = append(got, "a") })
	s.Connect(func(v int) { got = append(got, "b") })
	s.Connect(func(v int) { got = append(got, "c") })

	s.Emit(1)
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order: got %v want %v", got, want)
	}
}

func TestDisconnect(t *testing.T) {
	var s Signal[string]
	calls := 0
	h := s.Connect(func(string) { calls++ })
	if !s.Disconnect(h) {
		t.Fatalf("expected disconnect to report true")
	}
	if s.Disconnect(h) {
		t.Fatalf("second disconnect should report false")
	}
	s.Emit("x")
	if calls != 0 {
		t.Fatalf("disconnected handler was called %d times", calls)
	}
	if s.Len() != 0 {
		t.Fatalf("expected no handlers, got %d", s.Len())
	}
}

func TestDisconnectDuringEmit_SkipsPendingHandler(t *testing.T) {
	var s Signal[int]
	var second Handle
	secondCalls := 0
	s.Connect(func(int) { s.Disconnect(second) })
	second = s.Connect(func(int) { secondCalls++ })

	s.Emit(0)
	if secondCalls != 0 {
		t.Fatalf("handler disconnected mid-emission still ran")
	}
}

func TestConnectDuringEmit_NotCalledUntilNextEmit(t *testing.T) {
	var s Signal[int]
	late := 0
	once := false
	s.Connect(func(int) {
		if !once {
			once = true
			s.Connect(func(int) { late++ })
		}
	})

	s.Emit(0)
	if late != 0 {
		t.Fatalf("handler connected mid-emission ran in the same emission")
	}
	s.Emit(0)
	if late != 1 {
		t.Fatalf("late handler calls: got %d want 1", late)
	}
}

func TestNestedEmit(t *testing.T) {
	var s Signal[int]
	var seen []int
	s.Connect(func(v int) {
		seen = append(seen, v)
		if v < 3 {
			s.Emit(v + 1)
		}
	})
	s.Emit(1)
	if want := []int{1, 2, 3}; !reflect.DeepEqual(seen, want) {
		t.Fatalf("nested: got %v want %v", seen, want)
	}
}

func TestReset(t *testing.T) {
	var s Signal[int]
	calls := 0
	s.Connect(func(int) { calls++ })
	s.Connect(func(int) { calls++ })
	s.Reset()
	s.Emit(0)
	if calls != 0 || s.Len() != 0 {
		t.Fatalf("reset left handlers behind: calls=%d len=%d", calls, s.Len())
	}
}
