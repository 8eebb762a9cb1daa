// Package keywords matches free text against a curated topic vocabulary:
// canonical keywords with declared synonyms, plus a flat exclusion list.
//
// Matching is case-insensitive substring containment. There is no stemming and
// no word-boundary check, so short forms can match inside longer words.
package keywords

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Entry is one canonical keyword and its alternate surface forms.
type Entry struct {
	Keyword string   `yaml:"keyword"`
	Forms   []string `yaml:"forms"`
}

type document struct {
	Synonyms   []Entry  `yaml:"synonyms"`
	Exclusions []string `yaml:"exclusions"`
}

// Vocabulary is immutable after construction and safe for concurrent use.
type Vocabulary struct {
	synonyms   map[string][]string
	canonical  map[string]string
	exclusions []string
}

// Default returns the vocabulary shipped with the binary.
func Default() (*Vocabulary, error) {
	return Parse(defaultVocabulary)
}

// Load reads a vocabulary YAML file. An empty path yields the default vocabulary.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return Parse(data)
}

// Parse decodes a vocabulary YAML document.
func Parse(data []byte) (*Vocabulary, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	return New(doc.Synonyms, doc.Exclusions), nil
}

// New builds a vocabulary from entries and exclusion terms. Everything is lower-cased.
// When a form is declared under several keywords the last declaration wins the
// reverse index, and a canonical keyword always maps to itself.
func New(entries []Entry, exclusions []string) *Vocabulary {
	v := &Vocabulary{
		synonyms:  make(map[string][]string, len(entries)),
		canonical: make(map[string]string),
	}

	for _, e := range entries {
		key := normalize(e.Keyword)
		if key == "" {
			continue
		}
		forms := make([]string, 0, len(e.Forms))
		for _, f := range e.Forms {
			if f = normalize(f); f != "" {
				forms = append(forms, f)
			}
		}
		v.synonyms[key] = forms
		v.canonical[key] = key
		for _, f := range forms {
			v.canonical[f] = key
		}
	}

	for _, term := range exclusions {
		if term = normalize(term); term != "" {
			v.exclusions = append(v.exclusions, term)
		}
	}

	return v
}

// Synonyms returns the declared forms of a canonical keyword.
func (v *Vocabulary) Synonyms(keyword string) []string {
	forms := v.synonyms[normalize(keyword)]
	out := make([]string, len(forms))
	copy(out, forms)
	return out
}

// Canonical returns the canonical keyword for any known form.
func (v *Vocabulary) Canonical(form string) (string, bool) {
	key, ok := v.canonical[normalize(form)]
	return key, ok
}

// Exclusions returns the exclusion terms in declaration order.
func (v *Vocabulary) Exclusions() []string {
	out := make([]string, len(v.exclusions))
	copy(out, v.exclusions)
	return out
}

// Len is the number of canonical keywords.
func (v *Vocabulary) Len() int {
	return len(v.synonyms)
}

// Expand returns the lower-cased keywords plus their synonyms. A keyword that is
// itself a synonym also contributes its canonical keyword and that keyword's forms.
func (v *Vocabulary) Expand(keywords []string) map[string]struct{} {
	expanded := make(map[string]struct{})
	for _, kw := range keywords {
		key := normalize(kw)
		if key == "" {
			continue
		}
		expanded[key] = struct{}{}

		for _, f := range v.synonyms[key] {
			expanded[f] = struct{}{}
		}

		if primary, ok := v.canonical[key]; ok {
			expanded[primary] = struct{}{}
			for _, f := range v.synonyms[primary] {
				expanded[f] = struct{}{}
			}
		}
	}
	return expanded
}

// Variations lists every surface form related to keyword, sorted.
func (v *Vocabulary) Variations(keyword string) []string {
	set := v.Expand([]string{keyword})
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
