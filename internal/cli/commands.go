// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/toeirei/keyview/internal/collection"
	"github.com/toeirei/keyview/internal/config"
	"github.com/toeirei/keyview/internal/export"
	"github.com/toeirei/keyview/internal/i18n"
	"github.com/toeirei/keyview/internal/logging"
	"github.com/toeirei/keyview/internal/object"
	"github.com/toeirei/keyview/internal/predicate"
	"github.com/toeirei/keyview/internal/source/cache"
	"github.com/toeirei/keyview/internal/source/sshdir"
	"github.com/toeirei/keyview/internal/sshkey"
	"github.com/toeirei/keyview/internal/store"
	"github.com/toeirei/keyview/internal/watch"
)

const defaultExportFile = "keyview-export.json.zst"

// watchDebounce is the settle time of directory events.
var watchDebounce = 300 * time.Millisecond

func newListCmd(a *app) *cobra.Command {
	var f filterFlags
	var cached, all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the keys matching the filter flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := f.predicate()
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context(), loadOptions{cached: cached}); err != nil {
				return err
			}
			c := collection.New(a.reg, pred, nil)
			defer c.Close()

			objs := c.Objects()
			if !all {
				objs = visible(objs)
			}
			sortByLabel(objs)
			renderTable(a.out, objs, colorEnabled(a.cfg.Output.Color, a.out))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&cached, "cached", false, "include keys remembered in the database")
	cmd.Flags().BoolVar(&all, "all", false, "also list entries shadowed by a preferred entry")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var f filterFlags
	var poll time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print keys as they join or leave the filtered view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := f.predicate()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.watch(ctx, pred, poll)
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&poll, "agent-poll", 5*time.Second, "how often to relist the ssh agent (0 disables)")
	return cmd
}

// watch prints collection changes until ctx is done. Directory events are
// debounced by the watcher; every registry mutation happens on this
// goroutine.
func (a *app) watch(ctx context.Context, pred *predicate.Predicate, poll time.Duration) error {
	if err := a.load(ctx, loadOptions{}); err != nil {
		return err
	}
	c := collection.New(a.reg, pred, nil)
	added := c.Added().Connect(func(o *object.Object) {
		a.printf("%s\n", i18n.T("watch.added", o.Label(), o.Identifier()))
	})
	removed := c.Removed().Connect(func(o *object.Object) {
		a.printf("%s\n", i18n.T("watch.removed", o.Label(), o.Identifier()))
	})
	defer func() {
		// teardown emits removed for every member; those keys did not leave
		c.Added().Disconnect(added)
		c.Removed().Disconnect(removed)
		c.Close()
	}()

	var dirs []string
	for _, d := range a.dirs {
		if st, err := os.Stat(d.Path()); err == nil && st.IsDir() {
			dirs = append(dirs, d.Path())
		}
	}
	cfg := watch.DefaultConfig(dirs...)
	cfg.Debounce = watchDebounce
	cfg.Filter = sshdir.IsKeyFile
	w, err := watch.New(cfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	var tick <-chan time.Time
	if a.agent != nil && poll > 0 {
		t := time.NewTicker(poll)
		defer t.Stop()
		tick = t.C
	}

	a.printf("%s\n", i18n.T("watch.started", c.Len()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			a.reload()
		case <-tick:
			if _, err := a.agent.Reload(); err != nil {
				logging.Warnf("ssh agent: %v", err)
			}
		}
	}
}

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Remember the current keys in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.load(ctx, loadOptions{}); err != nil {
				return err
			}
			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			now := time.Now()
			var recs []store.Record
			for _, o := range a.reg.Objects() {
				if o.Kind() != cache.Kind {
					recs = append(recs, store.RecordOf(o, now))
				}
			}
			recs = store.Merge(recs)
			if err := st.Save(ctx, recs); err != nil {
				return err
			}
			a.printf("%s\n", i18n.T("save.done", len(recs), st.Type()))
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var f filterFlags
	var out string
	var cached bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered keys to a compressed JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := f.predicate()
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context(), loadOptions{cached: cached}); err != nil {
				return err
			}
			c := collection.New(a.reg, pred, nil)
			defer c.Close()

			doc := export.Snapshot(c.Objects(), time.Now())
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.Write(file, doc); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			a.printf("%s\n", i18n.T("export.done", len(doc.Objects), out))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", defaultExportFile, "output file")
	cmd.Flags().BoolVar(&cached, "cached", false, "include keys remembered in the database")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load an export into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = file.Close() }()
			doc, err := export.Read(file)
			if err != nil {
				return err
			}
			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			if replace {
				err = st.Replace(ctx, doc.Objects)
			} else {
				err = st.Save(ctx, doc.Objects)
			}
			if err != nil {
				return err
			}
			a.printf("%s\n", i18n.T("import.done", len(doc.Objects), args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "drop all stored records first")
	return cmd
}

func newCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Copy a key's identifier to the clipboard",
		Long: `Copies the identifier (the SHA256 fingerprint for SSH keys) of the
key whose id or identifier is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context(), loadOptions{}); err != nil {
				return err
			}
			o := find(a.reg.Objects(), args[0])
			if o == nil {
				return fmt.Errorf("%s", i18n.T("copy.not_found", args[0]))
			}
			if err := clipboardWrite(o.Identifier()); err != nil {
				return fmt.Errorf("clipboard: %w", err)
			}
			a.printf("%s\n", i18n.T("copy.done", o.Identifier()))
			return nil
		},
	}
}

// find returns the object whose id or identifier equals ref, preferring
// objects without a preferred stand-in.
func find(objs []*object.Object, ref string) *object.Object {
	var hit *object.Object
	for _, o := range objs {
		if string(o.ID()) != ref && o.Identifier() != ref {
			continue
		}
		if o.Preferred() == nil {
			return o
		}
		if hit == nil {
			hit = o
		}
	}
	return hit
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var system bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to keyview.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteConfigFile(&a.cfg, system)
			if err != nil {
				return err
			}
			a.printf("%s\n", i18n.T("config.written", path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&system, "system", false, "write the system wide file instead of the user file")
	cmd.AddCommand(initCmd)
	return cmd
}

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database housekeeping",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "maintain",
		Short: "Run engine specific maintenance (VACUUM, OPTIMIZE)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			if err := st.Maintain(cmd.Context()); err != nil {
				return err
			}
			a.printf("%s\n", i18n.T("maintain.done", st.Type()))
			return nil
		},
	})

	var source string
	forget := &cobra.Command{
		Use:   "forget <id>",
		Short: "Drop the stored records of a key",
		Long: `Deletes the database records whose id or identifier is given, from
every source or only from --source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			id := args[0]
			if !strings.Contains(id, ":") || strings.HasPrefix(id, "SHA256:") {
				id = string(sshkey.Tag) + ":" + id
			}
			n, err := st.Delete(ctx, id, source)
			if err != nil {
				return err
			}
			a.printf("%s\n", i18n.T("forget.done", n, id))
			return nil
		},
	}
	forget.Flags().StringVar(&source, "source", "", "only forget the record seen in this source")
	cmd.AddCommand(forget)
	return cmd
}

func newDebugCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Dump the effective configuration, flags and environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printf("--- KEYVIEW DEBUG ---\n")
			b, err := json.MarshalIndent(a.cfg, "", "  ")
			if err != nil {
				return err
			}
			a.printf("-- config --\n%s\n", b)

			a.printf("-- flags --\n")
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				a.printf("%s = %s\n", f.Name, f.Value.String())
			})
			a.printf("-- environment (KEYVIEW_*, SSH_AUTH_SOCK) --\n")
			for _, e := range os.Environ() {
				if strings.HasPrefix(e, "KEYVIEW_") || strings.HasPrefix(e, "SSH_AUTH_SOCK=") {
					a.printf("%s\n", e)
				}
			}
			a.printf("--- END DEBUG ---\n")
			return nil
		},
	}
}
