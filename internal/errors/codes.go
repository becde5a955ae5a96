// Package errors provides structured error handling for cognidex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (index artifacts, corpus files)
//   - 3XX: Collaborator errors (embedding service)
//   - 4XX: Validation errors (chunk hygiene, queries)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates index artifact and corpus I/O errors.
	CategoryIO Category = "IO"
	// CategoryCollaborator indicates failures of external collaborators
	// (embedding service). These degrade queries, never abort them.
	CategoryCollaborator Category = "COLLABORATOR"
	// CategoryValidation indicates chunk or query validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the caller can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeCorpusNotFound   = "ERR_201_CORPUS_NOT_FOUND"
	ErrCodeCorpusMalformed  = "ERR_202_CORPUS_MALFORMED"
	ErrCodeIndexUnavailable = "ERR_203_INDEX_UNAVAILABLE"
	ErrCodeIndexCorrupt     = "ERR_204_INDEX_CORRUPT"
	ErrCodeBuildLocked      = "ERR_205_BUILD_LOCKED"

	// Collaborator errors (300-399)
	ErrCodeEmbedTimeout     = "ERR_301_EMBED_TIMEOUT"
	ErrCodeEmbedUnavailable = "ERR_302_EMBED_UNAVAILABLE"
	ErrCodeEmbedDimension   = "ERR_303_EMBED_DIMENSION"

	// Validation errors (400-499)
	ErrCodeChunkInvalid = "ERR_401_CHUNK_INVALID"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"
	ErrCodeQueryTooLong = "ERR_403_QUERY_TOO_LONG"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
	ErrCodeBuildFailed  = "ERR_503_BUILD_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryCollaborator
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexUnavailable, ErrCodeIndexCorrupt, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeEmbedTimeout, ErrCodeEmbedUnavailable, ErrCodeChunkInvalid:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether the caller may retry the operation.
// Retry policy belongs to the orchestration layer; the core never retries.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedTimeout, ErrCodeEmbedUnavailable, ErrCodeBuildLocked:
		return true
	default:
		return false
	}
}
