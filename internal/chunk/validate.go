package chunk

import "fmt"

// Violation describes a single failed validation check.
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// ValidationResult lists every violation found in a chunk. The caller decides
// whether to reject or merely warn; validation never mutates the chunk.
type ValidationResult struct {
	ChunkID    string
	Violations []Violation
}

// Valid reports whether no violations were found.
func (r ValidationResult) Valid() bool {
	return len(r.Violations) == 0
}

// Validate checks presence of all required fields and enum membership.
// Both summaries are required regardless of Lang.
func Validate(c *Chunk) ValidationResult {
	res := ValidationResult{ChunkID: c.ID}
	add := func(field, reason string) {
		res.Violations = append(res.Violations, Violation{Field: field, Reason: reason})
	}

	if c.ID == "" {
		add("id", "required")
	}
	if c.SourceID == "" {
		add("source_id", "required")
	}
	if c.Title == "" {
		add("title", "required")
	}
	if c.Body == "" {
		add("body", "required")
	}
	if c.SummaryEN == "" {
		add("summary_en", "required")
	}
	if c.SummaryZH == "" {
		add("summary_zh", "required")
	}

	if _, ok := validTypes[c.Type]; !ok {
		add("type", fmt.Sprintf("unknown value %q", c.Type))
	}
	if _, ok := validLangs[c.Lang]; !ok {
		add("lang", fmt.Sprintf("unknown value %q", c.Lang))
	}
	if _, ok := validStabilities[c.Stability]; !ok {
		add("stability", fmt.Sprintf("unknown value %q", c.Stability))
	}

	// Tags must behave as a set.
	seen := make(map[string]struct{}, len(c.Tags))
	for _, t := range c.Tags {
		if t == "" {
			add("tags", "empty tag")
			continue
		}
		if _, dup := seen[t]; dup {
			add("tags", fmt.Sprintf("duplicate tag %q", t))
		}
		seen[t] = struct{}{}
	}

	return res
}
