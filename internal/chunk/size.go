package chunk

import (
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// SizeBounds configures per-language size limits.
// English is measured in tokens, Chinese in non-whitespace Unicode
// characters.
type SizeBounds struct {
	MinENTokens int
	MaxENTokens int
	MinZHChars  int
	MaxZHChars  int
}

// DefaultSizeBounds returns the default corpus-quality bounds:
// English 50-300 tokens, Chinese 100-500 characters.
func DefaultSizeBounds() SizeBounds {
	return SizeBounds{
		MinENTokens: 50,
		MaxENTokens: 300,
		MinZHChars:  100,
		MaxZHChars:  500,
	}
}

// SizeFlag marks which bound a chunk violates. Size violations are advisory:
// the chunk is still hashed and indexed, but logged for corpus monitoring.
type SizeFlag string

const (
	SizeOK           SizeFlag = "ok"
	SizeBelowMinimum SizeFlag = "below_minimum"
	SizeAboveMaximum SizeFlag = "above_maximum"
)

// SizeReport is the result of measuring a chunk body.
type SizeReport struct {
	ChunkID    string
	Lang       Lang
	TokenCount int // English token estimate
	CharCount  int // non-whitespace Unicode scalar count (not bytes)
	Flag       SizeFlag
}

// Sizer measures chunk sizes. When the tiktoken encoding is loadable it
// counts real BPE tokens; otherwise it falls back to the ~4 chars/token
// estimate. Both paths are deterministic.
type Sizer struct {
	bounds SizeBounds

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewSizer creates a sizer with the given bounds.
func NewSizer(bounds SizeBounds) *Sizer {
	return &Sizer{bounds: bounds}
}

// NewHeuristicSizer creates a sizer that never loads the BPE encoding and
// always uses the ~4 chars/token estimate. Used offline and in tests.
func NewHeuristicSizer(bounds SizeBounds) *Sizer {
	s := &Sizer{bounds: bounds}
	s.once.Do(func() {})
	return s
}

// MeasureSize measures a chunk body against the configured bounds.
func (s *Sizer) MeasureSize(c *Chunk) SizeReport {
	report := SizeReport{
		ChunkID:    c.ID,
		Lang:       c.Lang,
		TokenCount: s.countTokens(c.Body),
		CharCount:  countChars(c.Body),
		Flag:       SizeOK,
	}

	switch c.Lang {
	case LangEN:
		report.Flag = flagBetween(report.TokenCount, s.bounds.MinENTokens, s.bounds.MaxENTokens)
	case LangZH:
		report.Flag = flagBetween(report.CharCount, s.bounds.MinZHChars, s.bounds.MaxZHChars)
	case LangBilingual:
		// A bilingual body passes if it satisfies either language's bounds.
		en := flagBetween(report.TokenCount, s.bounds.MinENTokens, s.bounds.MaxENTokens)
		zh := flagBetween(report.CharCount, s.bounds.MinZHChars, s.bounds.MaxZHChars)
		if en != SizeOK && zh != SizeOK {
			report.Flag = en
		}
	}

	return report
}

// countTokens estimates token count for English text.
func (s *Sizer) countTokens(text string) int {
	s.once.Do(func() {
		// Network fetch of the BPE ranks may fail offline; the heuristic
		// below covers that case.
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			s.enc = enc
		}
	})
	if s.enc != nil {
		return len(s.enc.Encode(text, nil, nil))
	}
	// ~1 token per 4 characters, rounding up
	n := len([]rune(text))
	return (n + 3) / 4
}

// countChars counts non-whitespace Unicode scalars; whitespace never
// counts toward the character bounds.
func countChars(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func flagBetween(n, min, max int) SizeFlag {
	switch {
	case n < min:
		return SizeBelowMinimum
	case n > max:
		return SizeAboveMaximum
	default:
		return SizeOK
	}
}
