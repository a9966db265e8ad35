package util

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// Sanitize trims s and truncates it to max runes.
func Sanitize(s string, max int) string {
	return Truncate(strings.TrimSpace(s), max)
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
