package persona

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownTableFormat is returned for persona table files that are neither
// TOML nor YAML.
var ErrUnknownTableFormat = errors.New("persona table must be a .toml, .yaml or .yml file")

// tableFile is the on-disk shape of a persona table.
type tableFile struct {
	DefaultVoice     string              `toml:"default_voice"     yaml:"default_voice"`
	DefaultLanguage  string              `toml:"default_language"  yaml:"default_language"`
	FallbackCategory string              `toml:"fallback_category" yaml:"fallback_category"`
	Categories       map[string]Category `toml:"categories"        yaml:"categories"`
	Personas         []Entry             `toml:"persona"           yaml:"persona"`
}

// Load reads a persona table from a TOML or YAML file, chosen by extension.
// Values missing from the file are taken from fallback.
func Load(path string, fallback Defaults) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona table %s: %w", path, err)
	}

	var table *Table

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		table, err = Parse(data, fallback)
	case ".yaml", ".yml":
		table, err = ParseYAML(data, fallback)
	default:
		err = ErrUnknownTableFormat
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load persona table %s: %w", path, err)
	}

	return table, nil
}

// Parse builds a Table from TOML data.
func Parse(data []byte, fallback Defaults) (*Table, error) {
	var file tableFile

	err := toml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal persona table: %w", err)
	}

	return file.build(fallback)
}

// ParseYAML builds a Table from YAML data with the same keys as the TOML form.
func ParseYAML(data []byte, fallback Defaults) (*Table, error) {
	var file tableFile

	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal persona table: %w", err)
	}

	return file.build(fallback)
}

func (f tableFile) build(fallback Defaults) (*Table, error) {
	defaults := Defaults{
		Voice:            firstNonEmpty(f.DefaultVoice, fallback.Voice),
		Language:         firstNonEmpty(f.DefaultLanguage, fallback.Language),
		FallbackCategory: firstNonEmpty(f.FallbackCategory, fallback.FallbackCategory),
	}

	return New(f.Personas, f.Categories, defaults)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
