package glossary

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Composition classifies the script mix of a query.
type Composition string

const (
	CompositionLatin Composition = "latin"
	CompositionCJK   Composition = "cjk"
	CompositionMixed Composition = "mixed"
	CompositionNone  Composition = "none"
)

// whatLangOpts restricts detection to the two corpus languages.
var whatLangOpts = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Cmn: true,
	},
}

// Language names produced by DetectLanguage.
const (
	LanguageEnglish  = "English"
	LanguageMandarin = "Mandarin"
)

// DetectLanguage names the dominant language of a query, restricted to the
// two corpus languages. Empty or signal-free text yields "".
func DetectLanguage(query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}
	info := whatlanggo.DetectWithOptions(query, whatLangOpts)
	switch info.Lang {
	case whatlanggo.Eng:
		return LanguageEnglish
	case whatlanggo.Cmn:
		return LanguageMandarin
	default:
		return ""
	}
}

// Expansion is the result of query expansion. Original is always preserved
// verbatim; Expanded carries the original as a prefix followed by the added
// cross-script forms. The lexical path can favor Original for exact
// original-script matching while the dense path embeds Expanded.
type Expansion struct {
	Original    string      `json:"original"`
	Expanded    string      `json:"expanded"`
	Matched     []string    `json:"matched,omitempty"`
	Composition Composition `json:"composition"`
	Language    string      `json:"language"`
}

// Expand looks up every glossary term whose alias appears in the query and
// appends the term's remaining surface forms to the expanded variant. The
// original query string is never modified.
func (g *Glossary) Expand(query string) Expansion {
	exp := Expansion{
		Original:    query,
		Expanded:    query,
		Composition: detectComposition(query),
	}
	exp.Language = DetectLanguage(query)
	if exp.Composition == CompositionNone {
		return exp
	}

	lowerQuery := strings.ToLower(query)
	var additions []string
	present := make(map[string]struct{})

	for i := range g.terms {
		term := &g.terms[i]
		hit := false
		for _, alias := range term.forms() {
			if matchesQuery(query, lowerQuery, alias) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		exp.Matched = append(exp.Matched, term.Canonical)
		for _, form := range term.forms() {
			lower := strings.ToLower(form)
			if _, dup := present[lower]; dup {
				continue
			}
			present[lower] = struct{}{}
			// Forms already in the query add nothing.
			if matchesQuery(query, lowerQuery, form) {
				continue
			}
			additions = append(additions, form)
		}
	}

	if len(additions) > 0 {
		exp.Expanded = query + " " + strings.Join(additions, " ")
	}
	return exp
}

func detectComposition(query string) Composition {
	var hasLatin, hasCJK bool
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			hasLatin = true
		case r >= 0x2E80 && r <= 0x9FFF || r >= 0xF900 && r <= 0xFAFF:
			hasCJK = true
		}
	}
	switch {
	case hasLatin && hasCJK:
		return CompositionMixed
	case hasLatin:
		return CompositionLatin
	case hasCJK:
		return CompositionCJK
	default:
		return CompositionNone
	}
}
