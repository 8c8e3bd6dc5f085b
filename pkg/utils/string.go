package utils

import "strings"

// StringHelper provides string utility functions.
type StringHelper struct{}

// NewStringHelper creates a new string helper.
func NewStringHelper() *StringHelper {
	return &StringHelper{}
}

// NormalizeWhitespace trims the string and collapses inner whitespace runs to a single space.
func (s *StringHelper) NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString truncates string to max runes.
func (s *StringHelper) TruncateString(str string, maxLength int) string {
	runes := []rune(str)
	if len(runes) <= maxLength {
		return str
	}

	return string(runes[:maxLength]) + "..."
}

// SanitizeCell prefixes values that a spreadsheet would evaluate as a
// formula with a single quote.
func (s *StringHelper) SanitizeCell(str string) string {
	if str == "" {
		return str
	}

	switch str[0] {
	case '=', '+', '-', '@':
		return "'" + str
	}

	return str
}
