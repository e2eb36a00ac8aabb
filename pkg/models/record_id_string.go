package models

import (
	"fmt"
	"strings"
)

// isASCIIDigit checks if a rune is an ASCII digit (0-9)
func isASCIIDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

// isASCIIAlphanumeric checks if a rune is an ASCII letter or digit
func isASCIIAlphanumeric(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || isASCIIDigit(ch)
}

// escapeString escapes a string according to the delimiter character.
// It escapes the delimiter and backslash characters.
func escapeString(s string, delimiter rune) string {
	var result strings.Builder
	for _, ch := range s {
		if ch == delimiter || ch == '\\' {
			result.WriteRune('\\')
		}
		result.WriteRune(ch)
	}
	return result.String()
}

// isAllDigitsOrUnderscore checks if a string contains only digits and underscores
func isAllDigitsOrUnderscore(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch != '_' && !isASCIIDigit(ch) {
			return false
		}
	}
	return true
}

// needsEscaping checks if a string id must be wrapped in ⟨⟩
func needsEscaping(s string) bool {
	// Check if contains non-alphanumeric (except underscore) characters
	hasSpecialChars := false
	for _, ch := range s {
		if !isASCIIAlphanumeric(ch) && ch != '_' {
			hasSpecialChars = true
			break
		}
	}

	// If has special chars OR is all digits/underscores, needs escaping
	return hasSpecialChars || isAllDigitsOrUnderscore(s)
}

// formatID renders an id value, wrapping strings in ⟨⟩ when they would
// otherwise be ambiguous.
func formatID(id any) string {
	switch v := id.(type) {
	case string:
		if needsEscaping(v) {
			return fmt.Sprintf("⟨%s⟩", escapeString(v, '⟩'))
		}
		return v
	case Range:
		return v.String()
	case *Range:
		return v.String()
	}
	return fmt.Sprintf("%v", id)
}

// String returns the string representation of the RecordID with proper escaping.
//
// String ids made only of digits and underscores, or containing anything
// other than ASCII letters, digits and underscores, are wrapped in ⟨⟩.
//
// Complex ids (arrays and objects) use Go's %v formatting, so `foo:['a','2',3]`
// is rendered as `foo:[a 2 3]`.
func (r RecordID) String() string {
	return fmt.Sprintf("%s:%s", r.Table, formatID(r.ID))
}
