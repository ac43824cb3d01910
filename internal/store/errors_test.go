// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package store

import (
	"errors"
	"testing"
)

func TestMapDBError_Duplicates(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"mysql duplicate entry", errors.New("Error 1062: Duplicate entry 'x' for key 'PRIMARY'")},
		{"postgres unique violation", errors.New("ERROR: duplicate key value violates unique constraint \"objects_pkey\" (SQLSTATE 23505)")},
		{"sqlite unique constraint", errors.New("constraint failed: UNIQUE constraint failed: objects.id, objects.source")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if mapped := MapDBError(c.err); !errors.Is(mapped, ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate, got: %v", mapped)
			}
		})
	}
}

func TestMapDBError_Passthrough(t *testing.T) {
	if MapDBError(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	e := errors.New("connection refused")
	if got := MapDBError(e); got != e {
		t.Fatalf("expected the original error, got: %v", got)
	}
}
