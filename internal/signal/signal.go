// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package signal provides a typed, synchronous subscriber list.
//
// Emit calls every handler connected at the moment of emission, in the order
// they were connected, on the calling goroutine. Handlers may connect,
// disconnect or emit again while an emission is in progress: the handler list
// is snapshotted before delivery and a handler disconnected mid-emission is
// skipped if it has not run yet.
package signal

// Handle identifies a connected handler. The zero Handle is never issued.
type Handle uint64

type slot[T any] struct {
	id     Handle
	fn     func(T)
	active bool
}

// Signal is a list of handlers receiving values of type T.
// The zero value is ready to use. A Signal is not safe for concurrent use.
type Signal[T any] struct {
	slots []*slot[T]
	next  Handle
}

// Connect registers fn and returns a handle for Disconnect.
func (s *Signal[T]) Connect(fn func(T)) Handle {
	s.next++
	s.slots = append(s.slots, &slot[T]{id: s.next, fn: fn, active: true})
	return s.next
}

// Disconnect removes the handler registered under h. It reports whether a
// handler was removed.
func (s *Signal[T]) Disconnect(h Handle) bool {
	for i, sl := range s.slots {
		if sl.id != h {
			continue
		}
		sl.active = false
		// copy so that snapshots held by running emissions stay intact
		slots := make([]*slot[T], 0, len(s.slots)-1)
		slots = append(slots, s.slots[:i]...)
		s.slots = append(slots, s.slots[i+1:]...)
		return true
	}
	return false
}

// Emit delivers v to every connected handler.
func (s *Signal[T]) Emit(v T) {
	snapshot := s.slots
	for _, sl := range snapshot {
		if sl.active {
			sl.fn(v)
		}
	}
}

// Len returns the number of connected handlers.
func (s *Signal[T]) Len() int {
	return len(s.slots)
}

// Reset disconnects every handler.
func (s *Signal[T]) Reset() {
	for _, sl := range s.slots {
		sl.active = false
	}
	s.slots = nil
}
