// Package textx contains tests for the text utilities.
package textx

import "testing"

func TestSanitizeText(t *testing.T) {
	in := "he\x00llo\nwo\x7frld\t!"
	got := SanitizeText(in)
	if got != "hello\nworld\t!" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestSanitizeField(t *testing.T) {
	in := " Port of\r\n  New York\t\x00 "
	if got := SanitizeField(in); got != "Port of New York" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode(" usd\n"); got != "USD" {
		t.Fatalf("unexpected: %q", got)
	}
}
