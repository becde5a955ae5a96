package dedup

// KeepBestPerSource is the post-retrieval dedup pass: it groups query-time
// results by source id and keeps only the highest-scoring result per source,
// so multiple chunks split from one source document cannot dominate the
// result list. It is independent of build-time clustering.
//
// The function works on indices so callers keep their own result types:
// sourceID and score are accessors over the caller's slice of length n.
// Returned indices preserve the input order (stable).
func KeepBestPerSource(n int, sourceID func(i int) string, score func(i int) float64) []int {
	if n == 0 {
		return nil
	}

	bestBySource := make(map[string]int, n)
	for i := 0; i < n; i++ {
		src := sourceID(i)
		if src == "" {
			continue
		}
		if prev, ok := bestBySource[src]; !ok || score(i) > score(prev) {
			bestBySource[src] = i
		}
	}

	kept := make([]int, 0, len(bestBySource))
	for i := 0; i < n; i++ {
		src := sourceID(i)
		if src == "" {
			// No source grouping possible; keep as-is.
			kept = append(kept, i)
			continue
		}
		if bestBySource[src] == i {
			kept = append(kept, i)
		}
	}
	return kept
}
