// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Command keyview lists and watches the SSH keys known to this machine.
package main

import (
	"os"

	"github.com/toeirei/keyview/internal/cli"
)

func main() {
	// cobra has already printed the error
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
