// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package fingerprint derives stable short identifiers from text content.
// Identical content always produces the same identifier, which is used as the
// join key between languages and scopes across the whole system.
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
)

// Length is the number of characters in a fingerprint.
const Length = 10

// Fingerprint returns a deterministic identifier of Length alphanumeric
// characters derived from the SHA-256 digest of the raw content bytes.
//
// The content is hashed as-is: no whitespace or formatting normalization is
// performed, so a trivial formatting edit yields a new identity. Changing
// this would silently break every stored hash.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	encoded := base64.StdEncoding.EncodeToString(sum[:])

	// Keep only [A-Za-z0-9] so the identifier fits the marker grammar.
	out := make([]byte, 0, Length)
	for i := 0; i < len(encoded) && len(out) < Length; i++ {
		c := encoded[i]
		if isAlnum(c) {
			out = append(out, c)
		}
	}
	return string(out)
}

// IsValid reports whether s has the shape of a fingerprint.
func IsValid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) {
			return false
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
