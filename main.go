// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Keyview.
//
// Usage:
//
//	go run . [command] [flags]
//	./keyview [command] [flags]
//
// See --help for commands and options.
package main

import (
	"os"

	"github.com/toeirei/keyview/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
