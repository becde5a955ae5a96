package search

import (
	"sort"

	"github.com/cognidex/cognidex/internal/lexical"
	"github.com/cognidex/cognidex/internal/store"
)

// fused is the intermediate per-chunk fusion state.
type fused struct {
	chunkID      string
	denseScore   float64
	lexicalScore float64
	fusionScore  float64
	finalScore   float64
	matchedTerms []string
	// order preserves dense-then-lexical insertion order for tie-breaks.
	order int
}

// fuse merges the two result lists by chunk id and blends scores as
// denseWeight*dense + (1-denseWeight)*lexical. BM25 scores are unbounded, so
// the lexical list is max-normalized to [0, 1] per query before blending;
// dense scores are cosine similarities and already comparable.
func fuse(denseResults []*store.VectorResult, lexResults []lexical.Result, denseWeight float64) []*fused {
	byID := make(map[string]*fused, len(denseResults)+len(lexResults))
	var ordered []*fused

	add := func(id string) *fused {
		if f, ok := byID[id]; ok {
			return f
		}
		f := &fused{chunkID: id, order: len(ordered)}
		byID[id] = f
		ordered = append(ordered, f)
		return f
	}

	for _, r := range denseResults {
		add(r.ID).denseScore = r.Score
	}

	var maxLex float64
	for _, r := range lexResults {
		if r.Score > maxLex {
			maxLex = r.Score
		}
	}
	for _, r := range lexResults {
		f := add(r.DocID)
		if maxLex > 0 {
			f.lexicalScore = r.Score / maxLex
		}
		f.matchedTerms = r.MatchedTerms
	}

	for _, f := range ordered {
		f.fusionScore = denseWeight*f.denseScore + (1-denseWeight)*f.lexicalScore
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].fusionScore != ordered[j].fusionScore {
			return ordered[i].fusionScore > ordered[j].fusionScore
		}
		return ordered[i].order < ordered[j].order
	})
	return ordered
}
