// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package object

import "strings"

// setString stores value in *storage when the contents differ and reports
// whether anything was written.
func setString(storage *string, value string) bool {
	if *storage == value {
		return false
	}
	*storage = value
	return true
}

var markupReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// escapeMarkup escapes text for inclusion in Pango/XML markup.
func escapeMarkup(text string) string {
	return markupReplacer.Replace(text)
}
