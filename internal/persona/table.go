// Package persona holds the immutable table mapping persona identifiers to
// synthesis voices and languages.
//
// A Table is built once at startup and shared read-only between requests,
// so none of its methods lock.
package persona

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrEmptySlug indicates an entry without a persona identifier.
	ErrEmptySlug = errors.New("persona slug cannot be empty")
	// ErrDuplicatePersona indicates two entries with the same identifier.
	ErrDuplicatePersona = errors.New("duplicate persona slug")
	// ErrEmptyVoiceSelector indicates an entry with neither voice, category nor reference.
	ErrEmptyVoiceSelector = errors.New("persona has no voice selector")
	// ErrUnknownCategory indicates an entry pointing at an undefined category.
	ErrUnknownCategory = errors.New("unknown voice category")
	// ErrEmptyCategoryVoice indicates a category without a voice.
	ErrEmptyCategoryVoice = errors.New("voice category has no voice")
)

// Entry maps a persona to a voice/language pair, to a voice category, or to
// a reference audio file named after the persona on the voice volume.
type Entry struct {
	Slug      string `toml:"slug"      yaml:"slug"`
	Voice     string `toml:"voice"     yaml:"voice"`
	Category  string `toml:"category"  yaml:"category"`
	Language  string `toml:"language"  yaml:"language"`
	Reference bool   `toml:"reference" yaml:"reference"`
}

// Category is the default voice/language of a coarse voice class.
type Category struct {
	Voice    string `toml:"voice"    yaml:"voice"`
	Language string `toml:"language" yaml:"language"`
}

// Defaults are the table-wide fallbacks.
type Defaults struct {
	Voice            string
	Language         string
	FallbackCategory string
}

// Table is the read-only persona lookup structure.
type Table struct {
	entries    map[string]Entry
	categories map[string]Category
	defaults   Defaults
}

// New validates entries and categories and returns a Table owning copies of
// them.
func New(entries []Entry, categories map[string]Category, defaults Defaults) (*Table, error) {
	table := &Table{
		entries:    make(map[string]Entry, len(entries)),
		categories: make(map[string]Category, len(categories)),
		defaults: Defaults{
			Voice:            strings.TrimSpace(defaults.Voice),
			Language:         NormalizeLanguage(defaults.Language),
			FallbackCategory: NormalizeKey(defaults.FallbackCategory),
		},
	}

	for name, category := range categories {
		key := NormalizeKey(name)
		if strings.TrimSpace(category.Voice) == "" {
			return nil, fmt.Errorf("%w: %q", ErrEmptyCategoryVoice, name)
		}

		table.categories[key] = Category{
			Voice:    strings.TrimSpace(category.Voice),
			Language: NormalizeLanguage(category.Language),
		}
	}

	for _, entry := range entries {
		normalized, err := table.normalizeEntry(entry)
		if err != nil {
			return nil, err
		}

		if _, exists := table.entries[normalized.Slug]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePersona, normalized.Slug)
		}

		table.entries[normalized.Slug] = normalized
	}

	return table, nil
}

// Lookup returns the entry for slug. Slugs are matched case-insensitively.
func (t *Table) Lookup(slug string) (Entry, bool) {
	entry, ok := t.entries[NormalizeKey(slug)]

	return entry, ok
}

// Category returns the default voice of a voice category.
func (t *Table) Category(name string) (Category, bool) {
	category, ok := t.categories[NormalizeKey(name)]

	return category, ok
}

// Defaults returns the table-wide fallbacks.
func (t *Table) Defaults() Defaults {
	return t.defaults
}

// Len returns the number of personas.
func (t *Table) Len() int {
	return len(t.entries)
}

// Slugs returns the persona identifiers in sorted order.
func (t *Table) Slugs() []string {
	slugs := make([]string, 0, len(t.entries))
	for slug := range t.entries {
		slugs = append(slugs, slug)
	}

	slices.Sort(slugs)

	return slugs
}

func (t *Table) normalizeEntry(entry Entry) (Entry, error) {
	normalized := Entry{
		Slug:      NormalizeKey(entry.Slug),
		Voice:     strings.TrimSpace(entry.Voice),
		Category:  NormalizeKey(entry.Category),
		Language:  NormalizeLanguage(entry.Language),
		Reference: entry.Reference,
	}

	if normalized.Slug == "" {
		return Entry{}, ErrEmptySlug
	}

	if normalized.Voice == "" && normalized.Category == "" && !normalized.Reference {
		return Entry{}, fmt.Errorf("%w: %q", ErrEmptyVoiceSelector, normalized.Slug)
	}

	if normalized.Category != "" {
		if _, ok := t.categories[normalized.Category]; !ok {
			return Entry{}, fmt.Errorf("%w: %q used by %q", ErrUnknownCategory, normalized.Category, normalized.Slug)
		}
	}

	return normalized, nil
}

// NormalizeKey lower-cases and trims a slug or category name.
func NormalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeLanguage lower-cases a language code and unifies its separator,
// so "fr_FR" and "FR-fr" compare equal.
func NormalizeLanguage(value string) string {
	return strings.ReplaceAll(NormalizeKey(value), "_", "-")
}
