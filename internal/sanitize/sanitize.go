// Package sanitize normalizes raw chat text before chunking: emoji and
// acknowledgement noise are stripped, PII patterns are redacted, and
// whitespace is collapsed. All functions are deterministic and pure.
package sanitize

import (
	"regexp"
	"strings"
)

// RedactedToken replaces every PII match.
const RedactedToken = "[REDACTED]"

var (
	// Pictographic code points plus :shortcode: emoji.
	emojiPattern = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{10000}-\x{10FFFF}]+|:[a-zA-Z0-9_]+:`)

	// Acknowledgement noise and bot-command prefixes.
	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+1\b`),
		regexp.MustCompile(`(?i)\bthank you\b`),
		regexp.MustCompile(`(?i)\bthanks\b`),
		regexp.MustCompile(`^/\w+\b`),
	}

	// SSN-shaped digit runs, 16-digit numeric runs, and email addresses.
	piiPattern = regexp.MustCompile(`\b\d{3}[-.]?\d{2}[-.]?\d{4}\b|\b\d{16}\b|[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Clean strips noise and redacts PII from text. It returns the cleaned text
// and the number of PII redactions performed. Empty input yields empty
// output.
func Clean(text string) (string, int) {
	if text == "" {
		return "", 0
	}

	text = emojiPattern.ReplaceAllString(text, "")
	for _, p := range noisePatterns {
		text = p.ReplaceAllString(text, "")
	}

	redactions := len(piiPattern.FindAllStringIndex(text, -1))
	text = piiPattern.ReplaceAllString(text, RedactedToken)

	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), redactions
}
