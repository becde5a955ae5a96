package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityFatal},
		{ErrCodeIndexUnavailable, CategoryIO, SeverityFatal},
		{ErrCodeEmbedTimeout, CategoryCollaborator, SeverityWarning},
		{ErrCodeChunkInvalid, CategoryValidation, SeverityWarning},
		{ErrCodeInternal, CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestWrap_PreservesChain(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(ErrCodeIndexCorrupt, cause)

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeIndexCorrupt, CodeOf(err))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeIndexUnavailable, "no lexical index", nil)
	b := IndexUnavailable("anything")
	assert.ErrorIs(t, a, b)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeEmbedTimeout, "slow", nil)))
	assert.False(t, IsRetryable(New(ErrCodeChunkInvalid, "bad chunk", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestCodeOf_WrappedDeep(t *testing.T) {
	inner := New(ErrCodeEmbedDimension, "384 != 768", nil)
	outer := fmt.Errorf("query failed: %w", inner)
	assert.Equal(t, ErrCodeEmbedDimension, CodeOf(outer))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeChunkInvalid, "missing summary", nil).
		WithDetail("chunk_id", "c-12").
		WithDetail("field", "summary_zh")
	assert.Equal(t, "c-12", err.Details["chunk_id"])
	assert.Equal(t, "summary_zh", err.Details["field"])
}
