package glossary

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Term is a canonical entity name with its aliases across scripts. Terms are
// used only for query-side expansion; chunk text is never rewritten.
type Term struct {
	Canonical     string   `yaml:"canonical" json:"canonical"`
	English       string   `yaml:"english,omitempty" json:"english,omitempty"`
	Chinese       string   `yaml:"chinese,omitempty" json:"chinese,omitempty"`
	Synonyms      []string `yaml:"synonyms,omitempty" json:"synonyms,omitempty"`
	Abbreviations []string `yaml:"abbreviations,omitempty" json:"abbreviations,omitempty"`
}

// forms returns every surface form of the term, canonical first.
func (t *Term) forms() []string {
	out := make([]string, 0, 3+len(t.Synonyms)+len(t.Abbreviations))
	for _, f := range []string{t.Canonical, t.English, t.Chinese} {
		if f != "" {
			out = append(out, f)
		}
	}
	out = append(out, t.Synonyms...)
	out = append(out, t.Abbreviations...)
	return out
}

// Glossary holds the bidirectional proper-noun glossary. Lookup order is the
// term order of the source file, so expansion output is deterministic.
type Glossary struct {
	terms []Term
}

// New creates a glossary from the given terms.
func New(terms []Term) *Glossary {
	return &Glossary{terms: terms}
}

// glossaryFile is the on-disk YAML shape.
type glossaryFile struct {
	Terms []Term `yaml:"terms"`
}

// LoadFile reads a glossary from a YAML file.
func LoadFile(path string) (*Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	var file glossaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse glossary %s: %w", path, err)
	}
	for i, term := range file.Terms {
		if term.Canonical == "" {
			return nil, fmt.Errorf("glossary %s: term %d has no canonical form", path, i)
		}
	}
	return New(file.Terms), nil
}

// Len returns the number of glossary terms.
func (g *Glossary) Len() int { return len(g.terms) }

// matchesQuery reports whether the alias occurs in the query. CJK aliases
// match as substrings; Latin aliases match on word boundaries so "ABC" does
// not fire inside "ABCDEF".
func matchesQuery(query, lowerQuery, alias string) bool {
	if alias == "" {
		return false
	}
	if containsCJK(alias) {
		return strings.Contains(query, alias)
	}
	lowerAlias := strings.ToLower(alias)
	idx := 0
	for {
		pos := strings.Index(lowerQuery[idx:], lowerAlias)
		if pos < 0 {
			return false
		}
		pos += idx
		end := pos + len(lowerAlias)
		if boundaryBefore(lowerQuery, pos) && boundaryAfter(lowerQuery, end) {
			return true
		}
		idx = pos + 1
	}
}

func boundaryBefore(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	return !isWordByte(s[pos-1])
}

func boundaryAfter(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	return !isWordByte(s[end])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func containsCJK(s string) bool {
	for _, r := range s {
		if r >= 0x2E80 && r <= 0x9FFF || r >= 0xF900 && r <= 0xFAFF {
			return true
		}
	}
	return false
}
