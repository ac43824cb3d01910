// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import "testing"

func TestInitAndAvailableLocales(t *testing.T) {
	Init("en")
	if GetLang() != "en" {
		t.Fatalf("expected lang 'en', got %q", GetLang())
	}

	av := GetAvailableLocales()
	for k, want := range map[string]string{"en": "English", "de": "Deutsch"} {
		if got, ok := av[k]; !ok || got != want {
			t.Fatalf("locale %q: got %q (present=%v) want %q", k, got, ok, want)
		}
	}
}

func TestT_BasicAndFormatting(t *testing.T) {
	Init("en")

	if got := T("location.local"); got != "Local" {
		t.Fatalf("expected 'Local', got %q", got)
	}
	if got := T("list.count", 3); got != "3 key(s)" {
		t.Fatalf("unexpected formatted translation: %q", got)
	}

	SetLang("de")
	defer SetLang("en")
	if got := T("location.local"); got != "Lokal" {
		t.Fatalf("expected German 'Lokal', got %q", got)
	}
}

func TestT_UnknownIDFallsBack(t *testing.T) {
	Init("en")
	if got := T("no.such.message"); got != "no.such.message" {
		t.Fatalf("expected id fallback, got %q", got)
	}
}
