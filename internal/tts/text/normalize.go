// Package text provides text normalization for synthesis requests.
//
// Normalization is language-neutral: it only touches typography and
// whitespace, so French or German input reaches the engine unchanged.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const whitespaceRegexPattern = `\s+`

// Punctuation constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

// Normalizer cleans raw request text before validation.
type Normalizer struct {
	whitespacePattern *regexp.Regexp
	typography        *strings.Replacer
}

// NewNormalizer creates a Normalizer with its patterns compiled upfront.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
		typography: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
			"\u00a0", " ",
		),
	}
}

// Normalize returns text in NFC form with invalid UTF-8 bytes dropped,
// typography unified, control characters removed and whitespace collapsed.
// Whitespace-only input yields "".
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}

	cleaned := strings.ToValidUTF8(text, "")
	cleaned = n.typography.Replace(norm.NFC.String(cleaned))
	cleaned = stripControl(cleaned)
	cleaned = n.whitespacePattern.ReplaceAllString(cleaned, " ")

	return strings.TrimSpace(cleaned)
}

// Length returns the length of text in characters.
func Length(text string) int {
	return utf8.RuneCountInString(text)
}

// stripControl drops control characters except whitespace, which is
// collapsed later.
func stripControl(text string) string {
	return strings.Map(func(char rune) rune {
		if unicode.IsControl(char) && !unicode.IsSpace(char) {
			return -1
		}

		return char
	}, text)
}
