// Package policy scrubs conversation text before it reaches the logs.
package policy

import (
	"regexp"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// RedactPII masks emails, card numbers and phone numbers.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, rule := range []struct {
		pattern *regexp.Regexp
		marker  string
	}{
		{emailPattern, "[REDACTED_EMAIL]"},
		// cards before phones, or long digit runs match the phone rule
		{cardPattern, "[REDACTED_CARD]"},
		{phonePattern, "[REDACTED_PHONE]"},
	} {
		next := rule.pattern.ReplaceAllString(out, rule.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// LogRedactor prepares transcripts and replies for log fields.
type LogRedactor struct {
	// MaxRunes truncates the redacted text; 0 keeps it whole.
	MaxRunes int
	// Disabled passes text through untouched, for local debugging.
	Disabled bool
}

func (r LogRedactor) Preview(text string) string {
	if !r.Disabled {
		text, _ = RedactPII(text)
	}
	if r.MaxRunes <= 0 || utf8.RuneCountInString(text) <= r.MaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:r.MaxRunes]) + "…"
}
