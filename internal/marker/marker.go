// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package marker embeds and extracts inline reference markers of the form
// {t:AB12cd34Ef} in rendered text. Detection is an explicit scanner over the
// marker grammar rather than a regex, so malformed markers (truncated tokens,
// nested braces) are a defined no-marker case instead of undefined behavior.
package marker

import (
	"fmt"
	"strings"

	"github.com/lingotag/lingotag/internal/fingerprint"
)

const prefix = "{t:"

// ErrMalformedContent is returned by Apply when the content's markup is too
// broken to safely append a marker (unclosed tag, unterminated attribute
// value or comment).
type ErrMalformedContent struct {
	Reason string
}

func (e *ErrMalformedContent) Error() string {
	return fmt.Sprintf("malformed content: %s", e.Reason)
}

// Has reports whether text contains a well-formed marker.
func Has(text string) bool {
	_, _, _, found := scan(text)
	return found
}

// Extract returns the identifier of the first well-formed marker in text and
// the text with that marker removed. If no well-formed marker is present
// (including truncated or otherwise malformed tokens), ok is false and the
// text is returned unchanged.
func Extract(text string) (id string, content string, ok bool) {
	start, end, id, found := scan(text)
	if !found {
		return "", text, false
	}
	return id, text[:start] + text[end:], true
}

// Apply appends the marker for id to content and returns the rewritten text.
// Already-marked content is returned unchanged: Apply is idempotent, and the
// reconciliation pass relies on that to never double-tag a field.
//
// For HTML content the markup is validated first; the marker goes after the
// final closing tag, never inside a tag or an attribute value. Content that
// ends mid-tag is rejected rather than risk corrupting it.
func Apply(content, id string, html bool) (string, error) {
	if !fingerprint.IsValid(id) {
		return "", fmt.Errorf("invalid identifier %q", id)
	}
	if Has(content) {
		return content, nil
	}
	if html {
		if err := validateMarkup(content); err != nil {
			return "", err
		}
	}
	return content + prefix + id + "}", nil
}

// Strip removes every well-formed marker from text. Used when re-hashing
// content that may already carry a marker.
func Strip(text string) string {
	for {
		start, end, _, found := scan(text)
		if !found {
			return text
		}
		text = text[:start] + text[end:]
	}
}

// scan finds the first well-formed marker in text. A candidate starts at a
// "{t:" sequence and is accepted only if exactly fingerprint.Length
// alphanumeric characters follow, closed by '}'. Anything else, including a
// nested "{t:" before the close brace, rejects the candidate and scanning
// resumes one byte later, so an inner valid marker is still found.
func scan(text string) (start, end int, id string, found bool) {
	for i := 0; i+len(prefix) <= len(text); i++ {
		if text[i] != '{' || !strings.HasPrefix(text[i:], prefix) {
			continue
		}
		idStart := i + len(prefix)
		idEnd := idStart + fingerprint.Length
		if idEnd >= len(text) {
			// Truncated token at end of text.
			continue
		}
		candidate := text[idStart:idEnd]
		if !fingerprint.IsValid(candidate) || text[idEnd] != '}' {
			continue
		}
		return i, idEnd + 1, candidate, true
	}
	return 0, 0, "", false
}

// markup scanner states
const (
	stText = iota
	stTag
	stAttrValueDq
	stAttrValueSq
	stComment
)

// validateMarkup walks the content with a small tag/attribute state machine
// and errors if the content ends inside a tag, a quoted attribute value, or
// a comment. It does not validate tag nesting: appending at the very end is
// safe as long as we are back in text state.
func validateMarkup(content string) error {
	state := stText
	for i := 0; i < len(content); i++ {
		c := content[i]
		switch state {
		case stText:
			if c == '<' {
				if strings.HasPrefix(content[i:], "<!--") {
					state = stComment
					i += 3
				} else {
					state = stTag
				}
			}
		case stTag:
			switch c {
			case '>':
				state = stText
			case '"':
				state = stAttrValueDq
			case '\'':
				state = stAttrValueSq
			}
		case stAttrValueDq:
			if c == '"' {
				state = stTag
			}
		case stAttrValueSq:
			if c == '\'' {
				state = stTag
			}
		case stComment:
			if c == '-' && strings.HasPrefix(content[i:], "-->") {
				state = stText
				i += 2
			}
		}
	}

	switch state {
	case stTag:
		return &ErrMalformedContent{Reason: "content ends inside an unclosed tag"}
	case stAttrValueDq, stAttrValueSq:
		return &ErrMalformedContent{Reason: "content ends inside an attribute value"}
	case stComment:
		return &ErrMalformedContent{Reason: "content ends inside a comment"}
	}
	return nil
}
