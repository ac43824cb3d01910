// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli implements the keyview command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toeirei/keyview/buildvars"
	"github.com/toeirei/keyview/internal/config"
	"github.com/toeirei/keyview/internal/i18n"
	"github.com/toeirei/keyview/internal/logging"
)

var (
	version   = "dev" // set at build time
	gitCommit = "dev" // set at build time with the short commit SHA
	buildDate = ""    // set at build time (RFC3339)
)

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds a fresh command tree. Each call returns independent
// state so tests can run commands side by side.
func NewRootCmd() *cobra.Command {
	a := &app{}
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "keyview",
		Short: "Keyview lists the SSH keys known to this machine.",
		Long: `Keyview collects keys from ssh directories, the running ssh agent
and its own database into one registry, and shows live, filtered views
of it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig[config.Config](cmd, config.Defaults(), &cfgFile)
			if err != nil {
				return err
			}
			if err := logging.SetLevel(cfg.Log.Level); err != nil {
				return err
			}
			i18n.Init(cfg.Language)
			a.cfg = cfg
			a.out = cmd.OutOrStdout()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	cmd.Version = versionString()

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is keyview.yaml in the user or system config dir)")
	pf.String("db-type", "sqlite", `database type ("sqlite", "postgres", "mysql")`)
	pf.String("db-dsn", "", "database connection string (DSN)")
	pf.StringSlice("ssh-dir", nil, "ssh directory to scan (repeatable)")
	pf.Bool("agent", true, "include keys held by the ssh agent")
	pf.String("lang", "en", `display language ("en", "de")`)
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.String("color", "auto", `color output ("auto", "always", "never")`)

	cmd.AddCommand(
		newListCmd(a),
		newWatchCmd(a),
		newSaveCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newCopyCmd(a),
		newConfigCmd(a),
		newDBCmd(a),
		newDebugCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func versionString() string {
	v := buildvars.VersionOrDefault(version)
	if gitCommit != "" && gitCommit != "dev" {
		v += " (" + gitCommit
		if buildDate != "" {
			v += ", " + buildDate
		}
		v += ")"
	}
	return v
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keyview %s\n", versionString())
		},
	}
}
