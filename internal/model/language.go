// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"

	"golang.org/x/text/language"
)

// ValidateLangCode checks that a configured target language code is a
// parseable BCP 47 tag. LangOther is reserved for base records and is
// rejected as a fetch target.
func ValidateLangCode(code string) error {
	if code == "" {
		return fmt.Errorf("empty language code")
	}
	if code == LangOther {
		return fmt.Errorf("language code %q is reserved for base-language records", LangOther)
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return nil
}

// LanguageName returns the English display name for a language code, used in
// provider prompts. Falls back to the raw code for unlisted languages.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name, ok := languageNames[tag.String()]; ok {
		return name
	}
	// Try the base language for regional variants like pt-BR.
	base, _ := tag.Base()
	if name, ok := languageNames[base.String()]; ok {
		return name
	}
	return code
}

var languageNames = map[string]string{
	"en": "English",
	"ru": "Russian",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
	"uk": "Ukrainian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"he": "Hebrew",
	"fa": "Persian",
	"tr": "Turkish",
	"vi": "Vietnamese",
	"th": "Thai",
	"hi": "Hindi",
}
