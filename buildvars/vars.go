// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars holds values injected at link time.
package buildvars

// Version is set via `-ldflags -X github.com/toeirei/keyview/buildvars.Version=...`.
// It is empty for local builds.
var Version string

// VersionOrDefault returns Version, or def when Version was not injected.
func VersionOrDefault(def string) string {
	if Version != "" {
		return Version
	}
	return def
}
