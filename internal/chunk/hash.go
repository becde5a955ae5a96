package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"strings"
)

// hashFieldSep separates canonical fields. The unit separator cannot appear
// in authored text, so field boundaries never collide.
const hashFieldSep = "\x1f"

// CanonicalString builds the ordered concatenation of all hash-input fields:
// {id, source_id, type, title, body, summary_en, summary_zh, sorted(tags)}.
// The hash changes iff any of these change.
func CanonicalString(c *Chunk) string {
	parts := []string{
		c.ID,
		c.SourceID,
		string(c.Type),
		c.Title,
		c.Body,
		c.SummaryEN,
		c.SummaryZH,
		strings.Join(c.SortedTags(), ","),
	}
	return strings.Join(parts, hashFieldSep)
}

// ComputeHash returns the hex SHA-256 of the chunk's canonical string.
func ComputeHash(c *Chunk) string {
	sum := sha256.Sum256([]byte(CanonicalString(c)))
	return hex.EncodeToString(sum[:])
}

// FallbackHash is the deterministic non-cryptographic path (FNV-1a 64-bit)
// for environments without a crypto primitive. Same input contract as
// ComputeHash; weaker collision resistance, still deterministic.
func FallbackHash(c *Chunk) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(CanonicalString(c)))
	var buf [8]byte
	sum := h.Sum(buf[:0])
	return hex.EncodeToString(sum)
}
