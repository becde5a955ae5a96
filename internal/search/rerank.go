package search

import "math"

// Rerank blend weights: a cross-encoder-style approximation that leans on
// direct query/candidate cosine over the fused score.
const (
	rerankFusionWeight = 0.3
	rerankCosineWeight = 0.7
)

// rerank recomputes each candidate's score as a blend of its fusion score
// and the cosine between the query embedding and the candidate embedding.
// Candidates without an embedding, and degraded (lexical-only) queries, keep
// their fusion score. Results below minScore are dropped, the rest truncated
// to topK.
func rerank(candidates []*fused, queryEmbedding []float32, lookup func(id string) ([]float32, bool), minScore float64, topK int) []*fused {
	rescored := make([]*fused, 0, len(candidates))
	for _, c := range candidates {
		c.finalScore = c.fusionScore
		if len(queryEmbedding) > 0 && lookup != nil {
			if vec, ok := lookup(c.chunkID); ok && len(vec) == len(queryEmbedding) {
				c.finalScore = rerankFusionWeight*c.fusionScore + rerankCosineWeight*cosineSimilarity(queryEmbedding, vec)
			}
		}
		if c.finalScore < minScore {
			continue
		}
		rescored = append(rescored, c)
	}

	// Input arrives fusion-sorted; rescoring can reorder.
	stableSortByScore(rescored)
	if len(rescored) > topK && topK > 0 {
		rescored = rescored[:topK]
	}
	return rescored
}

func stableSortByScore(results []*fused) {
	// Insertion sort keeps the pre-rerank order for equal scores and the
	// candidate sets here are small.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].finalScore > results[j-1].finalScore; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

// cosineSimilarity computes cosine over float32 vectors without assuming
// either side is pre-normalized.
func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
