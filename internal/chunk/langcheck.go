package chunk

import "github.com/abadojack/whatlanggo"

// detectOpts restricts detection to the two corpus languages so short
// bodies are not misattributed to lookalike scripts.
var detectOpts = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Cmn: true,
	},
}

// langConfidenceFloor gates mismatch reports; below it the detector's
// guess is noise and the declared lang stands.
const langConfidenceFloor = 0.5

// LangReport is the result of checking a chunk's declared language
// against its body text.
type LangReport struct {
	ChunkID  string
	Declared Lang
	// Detected is the body language per script and trigram detection,
	// empty when detection found neither corpus language.
	Detected Lang
	// Mismatch is advisory, like size flags: a flagged chunk is still
	// hashed and indexed.
	Mismatch bool
}

// CheckLang detects the body language and compares it with the declared
// lang field. Bilingual chunks are never flagged, nor are bodies the
// detector is unsure about.
func CheckLang(c *Chunk) LangReport {
	rep := LangReport{ChunkID: c.ID, Declared: c.Lang}

	info := whatlanggo.DetectWithOptions(c.Body, detectOpts)
	switch info.Lang {
	case whatlanggo.Eng:
		rep.Detected = LangEN
	case whatlanggo.Cmn:
		rep.Detected = LangZH
	default:
		return rep
	}

	if info.Confidence < langConfidenceFloor || c.Lang == LangBilingual {
		return rep
	}
	rep.Mismatch = rep.Detected != c.Lang
	return rep
}
