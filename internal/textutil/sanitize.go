package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeUTF8 strips invalid byte sequences and control characters from
// external tool output, keeping newlines and tabs. Transcription binaries
// occasionally emit partial multibyte sequences at buffer boundaries.
func SanitizeUTF8(text string) string {
	if utf8.ValidString(text) && !strings.ContainsFunc(text, isDisallowedControl) {
		return text
	}
	cleaned := strings.ToValidUTF8(text, "")
	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if isDisallowedControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDisallowedControl(r rune) bool {
	if r == '\n' || r == '\t' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// CollapseWhitespace trims the string and folds internal whitespace runs into
// single spaces.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
