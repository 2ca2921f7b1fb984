// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// LangOther is the reserved language code for base (site-language) records.
// The canonical source text of every fingerprint is stored under this code;
// real ISO codes are used only for fetched or human-entered translations.
const LangOther = "other"

// Scope kinds for translation source contexts
const (
	ScopeKindCourse  = "course"
	ScopeKindModule  = "module"
	ScopeKindSection = "section"
)

// Translation is a single stored translation of a fingerprinted text span.
// At most one row exists per (Hash, Lang) pair; the row with Lang == LangOther
// is the canonical source text for the hash.
type Translation struct {
	ID            int64     `json:"id"`
	Hash          string    `json:"hash"` // 10-char content fingerprint
	Lang          string    `json:"lang"` // ISO 639-1 code or LangOther
	Text          string    `json:"text"`
	ScopeKind     string    `json:"scope_kind"` // course, module, section
	ScopeID       int64     `json:"scope_id"`   // scope the hash was first seen in
	IsHumanEdited bool      `json:"is_human_edited"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
}

// IsBase returns true if this is the canonical base-language record.
func (t *Translation) IsBase() bool {
	return t.Lang == LangOther
}

// ScopeMapping links a content fingerprint to an organizational scope it
// appears in. The relation is many-to-many: one hash may appear in several
// courses and one course contains many hashes.
type ScopeMapping struct {
	Hash      string    `json:"hash"`
	ScopeID   int64     `json:"scope_id"`
	CreatedAt time.Time `json:"created_at"`
}
