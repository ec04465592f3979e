// Package vocabulary loads the controlled estimating vocabulary: the closed
// category dictionary plus the alias and override tables used to correct
// hallucinated codes. The data lives in vocabulary.yaml so rules can be
// retuned without touching code.
package vocabulary

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Category is one entry of the closed category dictionary. Name and
// Description are used for display, not correctness.
type Category struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Rewrite maps a sanitized "{category} {selector}" pair to a corrected pair
type Rewrite struct {
	From     string `yaml:"from"`
	Category string `yaml:"category"`
	Selector string `yaml:"selector"`
}

type vocabularyFile struct {
	Version    int        `yaml:"version"`
	Categories []Category `yaml:"categories"`
	Aliases    []Rewrite  `yaml:"aliases"`
	Overrides  []Rewrite  `yaml:"overrides"`
}

// Vocabulary is an immutable, loaded vocabulary
type Vocabulary struct {
	version    int
	categories map[string]Category
	aliases    map[string]Rewrite
	overrides  map[string]Rewrite
}

// Load parses a vocabulary from YAML bytes
func Load(data []byte) (*Vocabulary, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("vocabulary has no categories")
	}

	v := &Vocabulary{
		version:    file.Version,
		categories: make(map[string]Category, len(file.Categories)),
		aliases:    make(map[string]Rewrite, len(file.Aliases)),
		overrides:  make(map[string]Rewrite, len(file.Overrides)),
	}
	for _, c := range file.Categories {
		v.categories[c.Code] = c
	}
	for _, a := range file.Aliases {
		v.aliases[a.From] = a
	}
	for _, o := range file.Overrides {
		v.overrides[o.From] = o
	}
	return v, nil
}

// LoadFile loads a vocabulary from a YAML file on disk
func LoadFile(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	return Load(data)
}

// Default returns the embedded vocabulary. It panics only if the embedded
// data is invalid, which is a build defect, not a runtime condition.
func Default() *Vocabulary {
	v, err := Load(defaultVocabulary)
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary is invalid: %v", err))
	}
	return v
}

// Version returns the vocabulary data version
func (v *Vocabulary) Version() int {
	return v.version
}

// CategoryCount returns the number of known categories
func (v *Vocabulary) CategoryCount() int {
	return len(v.categories)
}

// LookupCategory returns the dictionary entry for a category code
func (v *Vocabulary) LookupCategory(code string) (Category, bool) {
	c, ok := v.categories[code]
	return c, ok
}

// IsKnownCategory reports whether a category code is in the dictionary
func (v *Vocabulary) IsKnownCategory(code string) bool {
	_, ok := v.categories[code]
	return ok
}

// LookupAlias returns the correction for a known hallucinated code pair
func (v *Vocabulary) LookupAlias(code string) (Rewrite, bool) {
	r, ok := v.aliases[code]
	return r, ok
}

// LookupOverride returns the hard override for an ambiguous code pair
func (v *Vocabulary) LookupOverride(code string) (Rewrite, bool) {
	r, ok := v.overrides[code]
	return r, ok
}
