package search

import (
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Intent is a detected slot category biasing fusion toward exact matching.
type Intent string

const (
	IntentContractAddress Intent = "contract_address"
	IntentTickerSymbol    Intent = "ticker_symbol"
	IntentOfficialChannel Intent = "official_channel"
	IntentTechnicalSpecs  Intent = "technical_specs"
)

// Weight bounds for dynamic fusion.
const (
	BaseLexicalWeight = 0.3
	MaxLexicalWeight  = 0.8
	MinDenseWeight    = 0.2
	ExactSignalBoost  = 0.1

	// DefaultDetectorCacheSize bounds the per-query detection LRU.
	DefaultDetectorCacheSize = 4096
)

// intentLexicalWeights maps each intent to the lexical weight it demands.
var intentLexicalWeights = map[Intent]float64{
	IntentContractAddress: 0.8,
	IntentTickerSymbol:    0.75,
	IntentOfficialChannel: 0.65,
	IntentTechnicalSpecs:  0.45,
}

// Exact-signal shapes: things worth matching verbatim.
var (
	addressPattern = regexp.MustCompile(`\b0x[0-9a-fA-F]{6,}\b`)
	tickerPattern  = regexp.MustCompile(`\$[A-Za-z][A-Za-z0-9]{1,9}\b`)
	handlePattern  = regexp.MustCompile(`@[A-Za-z0-9_]{2,}`)
)

// IntentRules holds the keyword heuristics per intent. These are an
// empirically tuned starting configuration, overridable from config, not a
// fixed contract.
type IntentRules struct {
	AddressKeywords []string `yaml:"address_keywords"`
	PriceKeywords   []string `yaml:"price_keywords"`
	ChannelKeywords []string `yaml:"channel_keywords"`
	SpecKeywords    []string `yaml:"spec_keywords"`
}

// DefaultIntentRules returns the built-in bilingual keyword sets.
func DefaultIntentRules() IntentRules {
	return IntentRules{
		AddressKeywords: []string{
			"contract address", "contract", "address", "合约地址", "合约", "地址",
		},
		PriceKeywords: []string{
			"price", "cost", "market cap", "trading", "buy", "worth",
			"价格", "币价", "市值", "多少钱", "购买",
		},
		ChannelKeywords: []string{
			"official", "twitter", "telegram", "discord", "website", "channel",
			"announcement", "官方", "官网", "推特", "电报", "公告",
		},
		SpecKeywords: []string{
			"tps", "consensus", "block time", "throughput", "architecture",
			"specification", "protocol version", "共识", "吞吐", "技术参数", "区块时间",
		},
	}
}

// Detection is the per-query intent analysis result.
type Detection struct {
	Intents       []Intent
	ExactSignals  []string
	LexicalWeight float64
	DenseWeight   float64
}

// Detector runs the keyword/pattern heuristics with a small LRU so repeated
// queries skip re-analysis.
type Detector struct {
	rules IntentRules
	cache *lru.Cache[string, Detection]
}

// NewDetector creates an intent detector. Empty rule sets fall back to the
// defaults field by field.
func NewDetector(rules IntentRules) *Detector {
	defaults := DefaultIntentRules()
	if len(rules.AddressKeywords) == 0 {
		rules.AddressKeywords = defaults.AddressKeywords
	}
	if len(rules.PriceKeywords) == 0 {
		rules.PriceKeywords = defaults.PriceKeywords
	}
	if len(rules.ChannelKeywords) == 0 {
		rules.ChannelKeywords = defaults.ChannelKeywords
	}
	if len(rules.SpecKeywords) == 0 {
		rules.SpecKeywords = defaults.SpecKeywords
	}
	cache, _ := lru.New[string, Detection](DefaultDetectorCacheSize)
	return &Detector{rules: rules, cache: cache}
}

// Detect analyzes a query for slot intents and exact signals, and derives
// the fusion weights: the strongest intent sets the lexical weight, each
// exact signal adds ExactSignalBoost, and the dense weight never drops
// below MinDenseWeight.
func (d *Detector) Detect(query string) Detection {
	if det, ok := d.cache.Get(query); ok {
		return det
	}

	lower := strings.ToLower(query)
	var det Detection

	hasAddress := addressPattern.MatchString(query)
	hasTicker := tickerPattern.MatchString(query)
	hasHandle := handlePattern.MatchString(query)

	if hasAddress || containsAny(lower, d.rules.AddressKeywords) {
		det.Intents = append(det.Intents, IntentContractAddress)
	}
	if hasTicker && containsAny(lower, d.rules.PriceKeywords) {
		det.Intents = append(det.Intents, IntentTickerSymbol)
	}
	if hasHandle || containsAny(lower, d.rules.ChannelKeywords) {
		det.Intents = append(det.Intents, IntentOfficialChannel)
	}
	if containsAny(lower, d.rules.SpecKeywords) {
		det.Intents = append(det.Intents, IntentTechnicalSpecs)
	}

	det.ExactSignals = append(det.ExactSignals, addressPattern.FindAllString(query, -1)...)
	det.ExactSignals = append(det.ExactSignals, tickerPattern.FindAllString(query, -1)...)
	det.ExactSignals = append(det.ExactSignals, handlePattern.FindAllString(query, -1)...)

	lexical := BaseLexicalWeight
	for _, intent := range det.Intents {
		if w := intentLexicalWeights[intent]; w > lexical {
			lexical = w
		}
	}
	lexical += float64(len(det.ExactSignals)) * ExactSignalBoost
	if lexical > MaxLexicalWeight {
		lexical = MaxLexicalWeight
	}

	// Strongest intent first for reporting.
	sort.SliceStable(det.Intents, func(i, j int) bool {
		return intentLexicalWeights[det.Intents[i]] > intentLexicalWeights[det.Intents[j]]
	})

	det.LexicalWeight = lexical
	det.DenseWeight = 1 - lexical
	if det.DenseWeight < MinDenseWeight {
		det.DenseWeight = MinDenseWeight
		det.LexicalWeight = 1 - MinDenseWeight
	}

	d.cache.Add(query, det)
	return det
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
