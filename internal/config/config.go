// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads keyview's configuration from defaults, keyview.yaml,
// KEYVIEW_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full keyview configuration.
type Config struct {
	SSH      SSH      `mapstructure:"ssh" yaml:"ssh"`
	Agent    Agent    `mapstructure:"agent" yaml:"agent"`
	Database Database `mapstructure:"database" yaml:"database"`
	Language string   `mapstructure:"language" yaml:"language"`
	Log      Log      `mapstructure:"log" yaml:"log"`
	Output   Output   `mapstructure:"output" yaml:"output"`
}

// SSH lists the directories scanned for keys.
type SSH struct {
	Dirs []string `mapstructure:"dirs" yaml:"dirs"`
}

// Agent controls the ssh agent backend.
type Agent struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Database selects the store backend.
type Database struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// Log holds the log level name.
type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Output controls terminal rendering. Color is auto, always or never.
type Output struct {
	Color string `mapstructure:"color" yaml:"color"`
}

// flagKeys maps command line flag names onto config keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"color":     "output.color",
	"db-type":   "database.type",
	"db-dsn":    "database.dsn",
	"ssh-dir":   "ssh.dirs",
	"agent":     "agent.enabled",
	"lang":      "language",
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	dsn := "keyview.db"
	if dir, err := os.UserConfigDir(); err == nil {
		dsn = filepath.Join(dir, "keyview", "keyview.db")
	}
	return map[string]any{
		"ssh.dirs":      []string{"~/.ssh"},
		"agent.enabled": true,
		"database.type": "sqlite",
		"database.dsn":  dsn,
		"language":      "en",
		"log.level":     "warn",
		"output.color":  "auto",
	}
}

// GetConfigPath returns the path of the user or system wide keyview.yaml.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Keyview")
		default:
			configDir = "/etc/keyview"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "keyview")
	}
	return filepath.Join(configDir, "keyview.yaml"), nil
}

// LoadConfig builds a T from defaults, the first keyview.yaml found (or
// configFile when not nil), KEYVIEW_* environment variables and the flags of
// cmd.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("keyview")
	v.SetConfigType("yaml")
	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
	}
	if userPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userPath))
	}
	if systemPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("keyview")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return c, bindErr
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// WriteConfigFile writes c as YAML to the user or system config path and
// returns the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	// the dsn may carry credentials
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
