package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_LatinWords(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	tokens := tok.Tokenize("The Validator earns staking rewards!")
	assert.Equal(t, []string{"validator", "earns", "staking", "rewards"}, tokens)
}

func TestTokenize_ShortAndStopWordsDropped(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	tokens := tok.Tokenize("a I x of the to validator")
	assert.Equal(t, []string{"validator"}, tokens)
}

func TestTokenize_TickerAndHandleSurvive(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	tokens := tok.Tokenize("price of $ABC today, follow @abc_official")
	assert.Contains(t, tokens, "$abc")
	assert.Contains(t, tokens, "@abc")
	assert.Contains(t, tokens, "official")
}

func TestTokenize_CJKRunWholeToken(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	// Short run: full run only, no bigrams.
	tokens := tok.Tokenize("质押")
	assert.Equal(t, []string{"质押"}, tokens)
}

func TestTokenize_CJKBigramsForLongRuns(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	tokens := tok.Tokenize("质押奖励机制")
	assert.Contains(t, tokens, "质押奖励机制")
	assert.Contains(t, tokens, "质押")
	assert.Contains(t, tokens, "押奖")
	assert.Contains(t, tokens, "奖励")
	assert.Contains(t, tokens, "机制")
}

func TestTokenize_PossessiveParticleBoundary(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	// Entity + possessive particle + noun: the full string, the entity and
	// the noun must all be tokens; the particle-boundary bigrams must not.
	tokens := tok.Tokenize("币安的合约")
	assert.Contains(t, tokens, "币安的合约")
	assert.Contains(t, tokens, "币安")
	assert.Contains(t, tokens, "合约")
	assert.NotContains(t, tokens, "安的")
	assert.NotContains(t, tokens, "的合")
}

func TestTokenize_ConnectiveOnlyRunDropped(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	assert.Empty(t, tok.Tokenize("的"))
}

func TestTokenize_MixedScript(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	tokens := tok.Tokenize("ABC代币的价格 is rising")
	assert.Contains(t, tokens, "abc")
	assert.Contains(t, tokens, "代币的价格")
	assert.Contains(t, tokens, "代币")
	assert.Contains(t, tokens, "价格")
	assert.Contains(t, tokens, "rising")
	assert.NotContains(t, tokens, "的价")
}

func TestTokenize_Empty(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	assert.Empty(t, tok.Tokenize(""))
	assert.Empty(t, tok.Tokenize("   ,.;!"))
}
