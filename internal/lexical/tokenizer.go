package lexical

import (
	"strings"
	"unicode"
)

// connectiveRunes are semantically empty CJK function characters. Bigrams
// that straddle one of these (e.g. a possessive-particle boundary) match
// across unrelated documents and are never emitted as tokens.
var connectiveRunes = map[rune]struct{}{
	'的': {}, '之': {}, '了': {}, '和': {}, '与': {}, '或': {}, '及': {},
}

// ConnectiveBigrams is the explicit denylist of known-noisy CJK bigrams,
// checked in addition to the connective-rune rule. Overridable via Config.
var ConnectiveBigrams = []string{
	"的是", "是的", "的和", "和的", "之的",
}

// DefaultStopWords is the English stop-word list applied to Latin tokens.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "have", "how", "in", "is", "it", "its", "of", "on", "or",
	"that", "the", "this", "to", "was", "what", "when", "where",
	"which", "who", "will", "with",
}

// Tokenizer splits mixed-script text into index tokens. Latin words are
// lowercased, length-filtered and stop-word-filtered; CJK runs always emit
// the full run (exact-entity matching), plus particle-separated segments,
// plus character bigrams for runs of length >= 4.
type Tokenizer struct {
	stopWords      map[string]struct{}
	deniedBigrams  map[string]struct{}
	minBigramRun   int
	minLatinLength int
}

// NewTokenizer creates a tokenizer with the given stop words and bigram
// denylist. Nil slices select the defaults.
func NewTokenizer(stopWords, deniedBigrams []string) *Tokenizer {
	if stopWords == nil {
		stopWords = DefaultStopWords
	}
	if deniedBigrams == nil {
		deniedBigrams = ConnectiveBigrams
	}
	return &Tokenizer{
		stopWords:      BuildStopWordMap(stopWords),
		deniedBigrams:  BuildStopWordMap(deniedBigrams),
		minBigramRun:   4,
		minLatinLength: 2,
	}
}

// Tokenize splits text into tokens. Token order follows text order; a token
// may repeat when it occurs more than once (term frequency is the caller's
// concern).
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var latin, cjk []rune

	flushLatin := func() {
		if len(latin) == 0 {
			return
		}
		word := strings.ToLower(string(latin))
		latin = latin[:0]
		if len(word) < t.minLatinLength {
			return
		}
		if _, stop := t.stopWords[word]; stop {
			return
		}
		tokens = append(tokens, word)
	}
	flushCJK := func() {
		if len(cjk) == 0 {
			return
		}
		tokens = append(tokens, t.cjkRunTokens(cjk)...)
		cjk = cjk[:0]
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flushLatin()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '$' || r == '@':
			// $ and @ are kept so tickers and handles survive as exact tokens.
			flushCJK()
			latin = append(latin, r)
		default:
			flushLatin()
			flushCJK()
		}
	}
	flushLatin()
	flushCJK()

	return tokens
}

// cjkRunTokens expands one contiguous CJK run. Tokens are deduplicated
// within the run so a segment and its identical bigram count once per
// occurrence of the run in the text.
func (t *Tokenizer) cjkRunTokens(run []rune) []string {
	seen := make(map[string]struct{})
	var tokens []string
	emit := func(tok string) {
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}

	if !allConnective(run) {
		emit(string(run))
	}

	// Particle-separated segments: the meaningful units on either side of
	// a connective (entity name, noun).
	start := 0
	for i := 0; i <= len(run); i++ {
		atEnd := i == len(run)
		if !atEnd {
			if _, conn := connectiveRunes[run[i]]; !conn {
				continue
			}
		}
		if seg := run[start:i]; len(seg) >= 2 {
			emit(string(seg))
		}
		start = i + 1
	}

	// Character bigrams only for longer runs; short runs are already
	// covered by the full-run token.
	if len(run) >= t.minBigramRun {
		for i := 0; i+1 < len(run); i++ {
			if _, conn := connectiveRunes[run[i]]; conn {
				continue
			}
			if _, conn := connectiveRunes[run[i+1]]; conn {
				continue
			}
			bg := string(run[i : i+2])
			if _, denied := t.deniedBigrams[bg]; denied {
				continue
			}
			emit(bg)
		}
	}

	return tokens
}

func allConnective(run []rune) bool {
	for _, r := range run {
		if _, conn := connectiveRunes[r]; !conn {
			return false
		}
	}
	return true
}

// isCJK reports whether r belongs to a CJK script handled by run-based
// tokenization.
func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// BuildStopWordMap converts a word list to a lookup map.
func BuildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}
