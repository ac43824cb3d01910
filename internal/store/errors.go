// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicate is returned when inserting a record that already exists.
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnsupported is returned for an unknown database type.
	ErrUnsupported = errors.New("unsupported database type")
)

// MapDBError maps driver-specific constraint violations onto ErrDuplicate.
// The match is string based so this file needs none of the driver packages.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	// MySQL duplicate entry (1062), Postgres unique violation (23505), SQLite unique constraint
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
