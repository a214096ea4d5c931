package text_test

import (
	"testing"

	"github.com/book-expert/tts-handler/internal/tts/text"
)

// normalizerTestCase defines a standard test case for the normalizer.
type normalizerTestCase struct {
	name     string
	input    string
	expected string
}

func TestNormalizer_Normalize(t *testing.T) {
	t.Parallel()

	tests := []normalizerTestCase{
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: " \t\r\n  ", expected: ""},
		{name: "plain text unchanged", input: "Hello world", expected: "Hello world"},
		{name: "collapses whitespace", input: "  Hello \n\n  world\t!  ", expected: "Hello world !"},
		{name: "smart quotes", input: "“Bonjour” ‘toi’", expected: `"Bonjour" 'toi'`},
		{name: "dashes and ellipsis", input: "wait—no… fine–ok", expected: "wait-no... fine-ok"},
		{name: "control characters", input: "a\x00b\x07c", expected: "abc"},
		{name: "non-breaking space", input: "Marie\u00a0Curie", expected: "Marie Curie"},
		{name: "accents preserved", input: "Très bien, Ça va", expected: "Très bien, Ça va"},
		{name: "invalid utf8 dropped", input: "ok\xff\xfeay", expected: "okay"},
		{name: "replacement character kept", input: "bad \uFFFD glyph", expected: "bad \uFFFD glyph"},
		{name: "combining accents composed", input: "Tre\u0300s", expected: "Très"},
	}

	normalizer := text.NewNormalizer()

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := normalizer.Normalize(testCase.input)
			if result != testCase.expected {
				t.Errorf("Expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

func TestLength_CountsCharacters(t *testing.T) {
	t.Parallel()

	if got := text.Length("éàü"); got != 3 {
		t.Errorf("Expected 3 characters, got %d", got)
	}

	composed := text.NewNormalizer().Normalize("e\u0301te\u0301")
	if got := text.Length(composed); got != 3 {
		t.Errorf("Expected 3 characters after composition, got %d", got)
	}
}
