// Package textnorm canonicalises text for comparison between a corrected
// reference transcript and machine-generated captions.
package textnorm

import (
	"strings"
	"unicode"
)

// quoteReplacer maps typographic quote glyphs onto their ASCII equivalents.
var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'", "`", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
)

// Normalize lowercases text, straightens quotes, drops everything that is not
// a letter, digit, underscore, apostrophe or whitespace, and splits the result
// into word tokens. Empty or punctuation-only input yields an empty slice.
//
// Normalize is deterministic and safe for concurrent use.
func Normalize(text string) []string {
	if text == "" {
		return []string{}
	}
	text = quoteReplacer.Replace(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '\'':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	// Fields collapses whitespace runs.
	return strings.Fields(b.String())
}

// Join normalises every text and concatenates the token sequences.
func Join(texts ...string) []string {
	var out []string
	for _, t := range texts {
		out = append(out, Normalize(t)...)
	}
	if out == nil {
		return []string{}
	}
	return out
}
