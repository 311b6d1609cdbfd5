// Package stringutil holds small rune-aware helpers for chat text.
package stringutil

import (
	"strings"
	"unicode/utf8"
)

// IsNumeric reports whether s is non-empty and made of ASCII digits only.
// Full-width digits are rejected; callers normalize input first.
func IsNumeric(s string) bool {
	return s != "" && !strings.ContainsFunc(s, func(r rune) bool { return r < '0' || r > '9' })
}

const ellipsis = "…"

// TruncateRunes shortens text to at most maxRunes runes, ending with an
// ellipsis when anything was cut. Platform limits count characters, so a
// Hangul syllable counts once.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	keep := maxRunes - 1
	if maxRunes == 1 {
		keep = 1
	}
	n := 0
	for i := range text {
		if n == keep {
			if keep == maxRunes {
				return text[:i]
			}
			return text[:i] + ellipsis
		}
		n++
	}
	return text
}

// Mask keeps the first visible runes of an identifier for logging,
// e.g. Mask("U1234567890", 4) = "U123***".
func Mask(s string, visible int) string {
	visible = max(visible, 0)
	n := 0
	for i := range s {
		if n == visible {
			return s[:i] + "***"
		}
		n++
	}
	return s + "***"
}
