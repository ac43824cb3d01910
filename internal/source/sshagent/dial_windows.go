//go:build windows
// +build windows

// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package sshagent

import (
	"fmt"
	"os"

	"github.com/Microsoft/go-winio"
	"github.com/davidmz/go-pageant"
	"golang.org/x/crypto/ssh/agent"
)

const defaultPipe = `\\.\pipe\openssh-ssh-agent`

// Dial connects to a Pageant compatible agent when one runs, otherwise to
// the OpenSSH agent pipe named by SSH_AUTH_SOCK or its default pipe.
func Dial() (agent.Agent, error) {
	if pageant.Available() {
		return pageant.New(), nil
	}
	pipe := os.Getenv("SSH_AUTH_SOCK")
	if pipe == "" {
		pipe = defaultPipe
	}
	conn, err := winio.DialPipe(pipe, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoAgent, pipe, err)
	}
	return agent.NewClient(conn), nil
}
