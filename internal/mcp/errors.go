// Package mcp exposes retrieval over the Model Context Protocol so a
// downstream answering assistant can call it as a tool.
package mcp

import (
	"context"
	"errors"
	"fmt"

	coreerr "github.com/cognidex/cognidex/internal/errors"
)

// JSON-RPC error codes, plus server-specific codes in the -32000 range.
const (
	ErrCodeIndexUnavailable = -32001
	ErrCodeTimeout          = -32002

	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// ProtocolError is an MCP protocol error with a JSON-RPC code.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-parameters error.
func NewInvalidParamsError(msg string) *ProtocolError {
	return &ProtocolError{Code: ErrCodeInvalidParams, Message: msg}
}

// MapError converts internal errors to protocol errors. The structured core
// error carries the category; everything else is internal.
func MapError(err error) *ProtocolError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ProtocolError{Code: ErrCodeTimeout, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &ProtocolError{Code: ErrCodeTimeout, Message: "request was canceled"}
	}

	var ce *coreerr.CoreError
	if !errors.As(err, &ce) {
		return &ProtocolError{Code: ErrCodeInternalError, Message: "internal server error"}
	}

	switch {
	case ce.Code == coreerr.ErrCodeIndexUnavailable:
		return &ProtocolError{
			Code:    ErrCodeIndexUnavailable,
			Message: "index not available, run 'cognidex index' first",
		}
	case ce.Category == coreerr.CategoryValidation:
		return &ProtocolError{Code: ErrCodeInvalidParams, Message: ce.Message}
	default:
		return &ProtocolError{Code: ErrCodeInternalError, Message: ce.Message}
	}
}
