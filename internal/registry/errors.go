// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import "errors"

var (
	// ErrNilObject is returned when a nil object is added.
	ErrNilObject = errors.New("registry: nil object")
	// ErrAlreadyRegistered is returned when an object is added twice.
	ErrAlreadyRegistered = errors.New("registry: object already registered")
	// ErrForeignObject is returned when an object belongs to another context.
	ErrForeignObject = errors.New("registry: object belongs to another context")
	// ErrDisposed is returned when a disposed object or a closed registry is used.
	ErrDisposed = errors.New("registry: disposed")
)
