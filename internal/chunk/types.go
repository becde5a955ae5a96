// Package chunk defines the knowledge chunk model and its hygiene pipeline:
// schema validation, per-language size measurement, and canonical content
// hashing. Chunks are authored externally and become immutable once indexed.
package chunk

import (
	"fmt"
	"sort"
	"strings"
)

// Type classifies the kind of knowledge a chunk carries.
type Type string

const (
	TypeFacts           Type = "facts"
	TypeHowto           Type = "howto"
	TypePolicy          Type = "policy"
	TypeFAQ             Type = "faq"
	TypeTroubleshooting Type = "troubleshooting"
	TypeAbout           Type = "about"
	TypeIntegration     Type = "integration"
	TypeEcosystem       Type = "ecosystem"
	TypeMarketing       Type = "marketing"
)

// Lang is the primary language of a chunk body.
type Lang string

const (
	LangEN        Lang = "en"
	LangZH        Lang = "zh"
	LangBilingual Lang = "bilingual"
)

// Stability describes how volatile a chunk's facts are.
type Stability string

const (
	StabilityStable     Stability = "stable"
	StabilityVolatile   Stability = "volatile"
	StabilityEvolving   Stability = "evolving"
	StabilityDeprecated Stability = "deprecated"
)

// validTypes, validLangs and validStabilities back enum validation.
var (
	validTypes = map[Type]struct{}{
		TypeFacts: {}, TypeHowto: {}, TypePolicy: {}, TypeFAQ: {},
		TypeTroubleshooting: {}, TypeAbout: {}, TypeIntegration: {},
		TypeEcosystem: {}, TypeMarketing: {},
	}
	validLangs = map[Lang]struct{}{
		LangEN: {}, LangZH: {}, LangBilingual: {},
	}
	validStabilities = map[Stability]struct{}{
		StabilityStable: {}, StabilityVolatile: {}, StabilityEvolving: {}, StabilityDeprecated: {},
	}
)

// MetaCard holds structured facts attached to a chunk (contract address,
// ticker, blockchain, ...). It must be rendered into retrievable text at
// index time, never dropped.
type MetaCard map[string]string

// RenderText renders the card as deterministic "key: value" lines,
// sorted by key so the content hash and index text are stable.
func (m MetaCard) RenderText() string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, m[k])
	}
	return b.String()
}

// Chunk is the atomic knowledge unit.
// Every chunk carries both summaries regardless of Lang.
type Chunk struct {
	// Identity
	ID       string `json:"id" yaml:"id"`
	SourceID string `json:"source_id" yaml:"source_id"`

	// Classification
	Type      Type      `json:"type" yaml:"type"`
	Lang      Lang      `json:"lang" yaml:"lang"`
	Tags      []string  `json:"tags" yaml:"tags"`
	Stability Stability `json:"stability" yaml:"stability"`

	// Content
	Title     string   `json:"title" yaml:"title"`
	Body      string   `json:"body" yaml:"body"`
	SummaryEN string   `json:"summary_en" yaml:"summary_en"`
	SummaryZH string   `json:"summary_zh" yaml:"summary_zh"`
	MetaCard  MetaCard `json:"meta_card,omitempty" yaml:"meta_card,omitempty"`

	// Upstream relevance hint used by duplicate representative selection.
	RelevanceScore float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// Derived by the core, never authored.
	Hash       string `json:"hash,omitempty" yaml:"hash,omitempty"`
	TokenCount int    `json:"-" yaml:"-"`
	CharCount  int    `json:"-" yaml:"-"`
}

// IndexText returns the text that enters both search paths: title, body and
// the rendered meta card. Summaries are carried as metadata, not index text.
func (c *Chunk) IndexText() string {
	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title)
		b.WriteString("\n")
	}
	b.WriteString(c.Body)
	if card := c.MetaCard.RenderText(); card != "" {
		b.WriteString("\n")
		b.WriteString(card)
	}
	return b.String()
}

// SortedTags returns a sorted, deduplicated copy of the tag set.
func (c *Chunk) SortedTags() []string {
	seen := make(map[string]struct{}, len(c.Tags))
	out := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MetadataFieldCount counts populated optional metadata fields. Used by
// duplicate representative scoring.
func (c *Chunk) MetadataFieldCount() int {
	n := len(c.Tags) + len(c.MetaCard)
	if c.Title != "" {
		n++
	}
	if c.SummaryEN != "" {
		n++
	}
	if c.SummaryZH != "" {
		n++
	}
	return n
}
