package index

// Stats describes a loaded snapshot for reporting.
type Stats struct {
	Chunks     int    `json:"chunks"`
	Sources    int    `json:"sources"`
	Vocabulary int    `json:"vocabulary"`
	Vectors    int    `json:"vectors"`
	DenseReady bool   `json:"dense_ready"`
	EmbedModel string `json:"embed_model,omitempty"`
	EmbedDims  int    `json:"embed_dims,omitempty"`
	CorpusHash string `json:"corpus_hash"`
	BuiltAt    string `json:"built_at"`
}

// Stats summarizes the snapshot.
func (s *Snapshot) Stats() Stats {
	sources := make(map[string]struct{}, len(s.Chunks))
	for _, c := range s.Chunks {
		sources[c.SourceID] = struct{}{}
	}

	st := Stats{
		Chunks:     len(s.Chunks),
		Sources:    len(sources),
		Vocabulary: s.Lexical.TermCount(),
		EmbedModel: s.EmbedModel,
		EmbedDims:  s.EmbedDims,
		CorpusHash: s.CorpusHash,
		BuiltAt:    s.BuiltAt,
	}
	if s.Vectors != nil {
		st.Vectors = s.Vectors.Count()
		st.DenseReady = true
	}
	return st
}
