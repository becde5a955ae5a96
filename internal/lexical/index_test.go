package lexical

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	ix := NewIndex(DefaultConfig())
	ix.Build([]Document{
		{ID: "staking", Content: "staking locks tokens with a validator to earn staking rewards"},
		{ID: "bridge", Content: "the bridge transfers tokens between chains using a relayer"},
		{ID: "contract", Content: "the token contract address is 0x1234abcd deployed on mainnet"},
		{ID: "faq-zh", Content: "质押奖励每个周期发放 质押的合约部署在主网"},
	})
	return ix
}

func TestIndex_SearchRanksByRelevance(t *testing.T) {
	ix := buildTestIndex(t)

	results := ix.Search(ix.Tokenizer().Tokenize("staking rewards"), 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "staking", results[0].DocID)
	assert.ElementsMatch(t, []string{"staking", "rewards"}, results[0].MatchedTerms)
}

func TestIndex_ZeroOverlapFiltered(t *testing.T) {
	ix := buildTestIndex(t)

	results := ix.Search(ix.Tokenizer().Tokenize("governance voting"), 10)
	assert.Empty(t, results)

	// Only documents containing at least one query token appear.
	results = ix.Search(ix.Tokenizer().Tokenize("relayer"), 10)
	require.Len(t, results, 1)
	assert.Equal(t, "bridge", results[0].DocID)
}

func TestIndex_ExactAddressMatch(t *testing.T) {
	ix := buildTestIndex(t)

	results := ix.Search(ix.Tokenizer().Tokenize("0x1234abcd"), 10)
	require.Len(t, results, 1)
	assert.Equal(t, "contract", results[0].DocID)
}

func TestIndex_CJKEntityMatch(t *testing.T) {
	ix := buildTestIndex(t)

	results := ix.Search(ix.Tokenizer().Tokenize("质押"), 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "faq-zh", results[0].DocID)
}

func TestIndex_TopKTruncation(t *testing.T) {
	ix := NewIndex(DefaultConfig())
	docs := make([]Document, 20)
	for i := range docs {
		docs[i] = Document{ID: fmt.Sprintf("d%02d", i), Content: "tokens everywhere"}
	}
	ix.Build(docs)

	results := ix.Search([]string{"tokens"}, 5)
	assert.Len(t, results, 5)
	// Equal scores keep insertion order.
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("d%02d", i), r.DocID)
	}
}

func TestIndex_RebuildReplacesContents(t *testing.T) {
	ix := buildTestIndex(t)
	require.Equal(t, 4, ix.DocCount())

	ix.Build([]Document{{ID: "only", Content: "fresh corpus"}})
	assert.Equal(t, 1, ix.DocCount())
	assert.Empty(t, ix.Search([]string{"staking"}, 10))
}

func TestIndex_Unbuilt(t *testing.T) {
	ix := NewIndex(DefaultConfig())
	assert.False(t, ix.Available())
	assert.Nil(t, ix.Search([]string{"staking"}, 10))
}
