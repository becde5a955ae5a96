package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_TickerWithPriceContext(t *testing.T) {
	d := NewDetector(IntentRules{})

	det := d.Detect("what is the price of $NXP today")
	assert.Contains(t, det.Intents, IntentTickerSymbol)
	assert.GreaterOrEqual(t, det.LexicalWeight, 0.75)
	assert.GreaterOrEqual(t, det.DenseWeight, MinDenseWeight)
}

func TestDetect_TickerWithoutPriceContextIsNotTickerIntent(t *testing.T) {
	d := NewDetector(IntentRules{})

	det := d.Detect("tell me about $NXP governance")
	assert.NotContains(t, det.Intents, IntentTickerSymbol)
	// The literal ticker still counts as an exact signal.
	assert.Contains(t, det.ExactSignals, "$NXP")
}

func TestDetect_ContractAddress(t *testing.T) {
	d := NewDetector(IntentRules{})

	det := d.Detect("is 0x9f8a72c4e1b21dd0 the right one")
	assert.Contains(t, det.Intents, IntentContractAddress)
	// 0.8 intent weight + exact signal boost stays capped at 0.8.
	assert.InDelta(t, MaxLexicalWeight, det.LexicalWeight, 1e-9)
	assert.InDelta(t, MinDenseWeight, det.DenseWeight, 1e-9)
}

func TestDetect_ChineseAddressKeyword(t *testing.T) {
	d := NewDetector(IntentRules{})

	det := d.Detect("代币的合约地址是什么")
	assert.Contains(t, det.Intents, IntentContractAddress)
}

func TestDetect_OfficialChannel(t *testing.T) {
	d := NewDetector(IntentRules{})

	det := d.Detect("official telegram link please")
	assert.Contains(t, det.Intents, IntentOfficialChannel)
	assert.InDelta(t, 0.65, det.LexicalWeight, 1e-9)
}

func TestDetect_ConceptualQueryKeepsBaseWeight(t *testing.T) {
	d := NewDetector(IntentRules{})

	det := d.Detect("how does proof of stake work")
	assert.Empty(t, det.Intents)
	assert.Empty(t, det.ExactSignals)
	assert.InDelta(t, BaseLexicalWeight, det.LexicalWeight, 1e-9)
	assert.InDelta(t, 1-BaseLexicalWeight, det.DenseWeight, 1e-9)
}

func TestDetect_TechnicalSpecs(t *testing.T) {
	d := NewDetector(IntentRules{})

	det := d.Detect("what consensus mechanism is used")
	assert.Contains(t, det.Intents, IntentTechnicalSpecs)
	assert.InDelta(t, 0.45, det.LexicalWeight, 1e-9)
}

func TestDetect_ExactSignalBoost(t *testing.T) {
	d := NewDetector(IntentRules{})

	// Channel intent (0.65) plus one handle signal (+0.1).
	det := d.Detect("@nexusproto")
	assert.Contains(t, det.Intents, IntentOfficialChannel)
	assert.InDelta(t, 0.75, det.LexicalWeight, 1e-9)
}

func TestDetect_Cached(t *testing.T) {
	d := NewDetector(IntentRules{})

	first := d.Detect("price of $NXP")
	second := d.Detect("price of $NXP")
	assert.Equal(t, first, second)
}
