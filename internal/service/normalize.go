package service

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	horizontalWS = regexp.MustCompile(`[ \t]+`)
	excessNL     = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText canonicalizes raw extracted text before chunking:
// unicode compatibility normalization (NFKC), non-breaking spaces to
// ASCII spaces, runs of horizontal whitespace collapsed, 3+ consecutive
// newlines collapsed to exactly two, and the whole string trimmed.
//
// NFKC runs first so that any whitespace it produces is collapsed by
// the later passes; this makes the function idempotent.
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, " ", " ")
	text = horizontalWS.ReplaceAllString(text, " ")
	text = excessNL.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
