// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n provides translated display strings for keyview.
// It uses the go-i18n library to load the embedded YAML locale files.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// localeFS embeds the YAML translation files from the 'locales' directory
// into the application binary.
//
//go:embed locales/*.yaml
var localeFS embed.FS

var (
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      string
	available map[string]string
)

// Init loads every embedded locale and selects lang for T.
func Init(l string) {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	available = make(map[string]string)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		mf, err := bundle.ParseMessageFileBytes(data, f.Name())
		if err != nil {
			continue
		}
		tag := strings.TrimSuffix(f.Name(), ".yaml")
		available[tag] = displayName(mf)
	}

	lang = l
	localizer = i18n.NewLocalizer(bundle, l)
}

// displayName returns the locale's self-description, falling back to its tag.
func displayName(mf *i18n.MessageFile) string {
	for _, m := range mf.Messages {
		if m.ID == "language.name" {
			return m.Other
		}
	}
	return mf.Tag.String()
}

// T translates messageID. Extra args are applied fmt-style to the
// translated text. Unknown ids are returned unchanged.
func T(messageID string, args ...any) string {
	if localizer == nil {
		Init("en")
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// SetLang changes the active language.
func SetLang(l string) {
	Init(l)
}

// GetLang returns the active language tag.
func GetLang() string {
	if localizer == nil {
		Init("en")
	}
	return lang
}

// GetAvailableLocales maps each embedded locale tag to its display name.
func GetAvailableLocales() map[string]string {
	if localizer == nil {
		Init("en")
	}
	out := make(map[string]string, len(available))
	for k, v := range available {
		out[k] = v
	}
	return out
}
