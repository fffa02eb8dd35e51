package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate shortens s to at most maxLen runes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

// Collapse flattens runs of whitespace, including newlines, to single spaces
// so multi-line text previews on one line.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
