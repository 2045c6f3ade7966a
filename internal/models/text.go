package models

import (
	"strings"
	"unicode/utf8"
)

// CountWords counts the non-empty whitespace separated tokens of text
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountChars counts the characters (runes) of text
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// TruncateRunes cuts text to at most max characters without splitting a rune
func TruncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}
