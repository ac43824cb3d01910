// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"github.com/toeirei/keyview/internal/i18n"
	"github.com/toeirei/keyview/internal/object"
	"golang.org/x/term"
)

// colorEnabled resolves the output.color setting for w.
func colorEnabled(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newRenderer returns a lipgloss renderer for w honoring the color mode.
func newRenderer(w io.Writer, color bool) *lipgloss.Renderer {
	if color {
		return lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI256))
	}
	return lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
}

// visible drops objects that prefer another member of objs, so a key
// present on disk and in the agent is listed once.
func visible(objs []*object.Object) []*object.Object {
	members := make(map[*object.Object]bool, len(objs))
	for _, o := range objs {
		members[o] = true
	}
	out := objs[:0:0]
	for _, o := range objs {
		if p := o.Preferred(); p != nil && members[p] {
			continue
		}
		out = append(out, o)
	}
	return out
}

// sortByLabel orders objects by label, then id.
func sortByLabel(objs []*object.Object) {
	slices.SortFunc(objs, func(a, b *object.Object) int {
		if c := strings.Compare(strings.ToLower(a.Label()), strings.ToLower(b.Label())); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID()), string(b.ID()))
	})
}

func sourceName(o *object.Object) string {
	if s := o.Source(); s != nil {
		return s.Name()
	}
	return ""
}

// renderTable writes objs as a bordered table.
func renderTable(w io.Writer, objs []*object.Object, color bool) {
	if len(objs) == 0 {
		fmt.Fprintln(w, i18n.T("list.empty"))
		return
	}
	r := newRenderer(w, color)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	dim := cell.Foreground(lipgloss.Color("244"))
	warn := cell.Foreground(lipgloss.Color("203"))

	rows := make([][]string, 0, len(objs))
	for _, o := range objs {
		rows = append(rows, []string{
			o.Label(),
			o.Identifier(),
			string(o.Tag()),
			o.Location().DisplayName(),
			o.Usage().DisplayName(),
			sourceName(o),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(
			i18n.T("list.header.label"),
			i18n.T("list.header.identifier"),
			i18n.T("list.header.tag"),
			i18n.T("list.header.location"),
			i18n.T("list.header.usage"),
			i18n.T("list.header.source"),
		).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			o := objs[row]
			switch {
			case o.Flags()&(object.FlagExpired|object.FlagRevoked|object.FlagDisabled) != 0:
				return warn
			case o.Location() < object.LocationLocal:
				return dim
			}
			return cell
		})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, i18n.T("list.count", len(objs)))
}
