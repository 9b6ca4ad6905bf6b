// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SanitizeField flattens a raw source value into a single clean line:
// control characters are stripped and any interior whitespace run collapses
// to one space. Feed exports routinely smuggle tabs and CRLF into location
// and carrier columns.
func SanitizeField(s string) string {
	return strings.Join(strings.Fields(SanitizeText(s)), " ")
}

// NormalizeCode sanitizes and uppercases short identifier-like values such
// as currency or location codes.
func NormalizeCode(s string) string {
	return strings.ToUpper(SanitizeField(s))
}
