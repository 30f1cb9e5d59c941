package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a dealflow error code.
type ErrorCode string

const (
	ErrInvalidInput         ErrorCode = "INVALID_INPUT"         // 400
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400
	ErrNotFound             ErrorCode = "NOT_FOUND"             // 404
	ErrConflict             ErrorCode = "CONFLICT"              // 409
	ErrInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION" // 422
	ErrInsufficientData     ErrorCode = "INSUFFICIENT_DATA"     // 422
	ErrCancelled            ErrorCode = "CANCELLED"             // 499
	ErrInternal             ErrorCode = "INTERNAL"              // 500
)

// DealError represents a structured error with code, status, and details.
// Details carry the context a caller needs to log and retry upstream
// (document, company, field or criterion).
type DealError struct {
	Code    ErrorCode      `json:"code"`
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *DealError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidInput creates a 400 error for unusable pipeline input.
// sourceID identifies the document; field names the offending input field.
func NewInvalidInput(sourceID, field, msg string) *DealError {
	details := map[string]any{"field": field}
	if sourceID != "" {
		details["source_id"] = sourceID
	}
	return &DealError{
		Code:    ErrInvalidInput,
		Status:  400,
		Message: msg,
		Details: details,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DealError {
	return &DealError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing record of the given kind.
func NewNotFound(kind, identifier string) *DealError {
	return &DealError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewDuplicateDocument creates a 409 error when a source document was already ingested.
func NewDuplicateDocument(sourceID string) *DealError {
	return &DealError{
		Code:    ErrConflict,
		Status:  409,
		Message: fmt.Sprintf("document with source_id %q already ingested", sourceID),
		Details: map[string]any{"source_id": sourceID},
	}
}

// NewInvalidConfiguration creates a 422 error for rejected configuration data.
func NewInvalidConfiguration(field, msg string) *DealError {
	return &DealError{
		Code:    ErrInvalidConfiguration,
		Status:  422,
		Message: fmt.Sprintf("%s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

// NewInsufficientData creates a 422 error when no criterion could be scored.
func NewInsufficientData(company string, missing []string) *DealError {
	name := company
	if name == "" {
		name = "(unnamed company)"
	}
	return &DealError{
		Code:    ErrInsufficientData,
		Status:  422,
		Message: fmt.Sprintf("no usable scoring criteria for %s", name),
		Details: map[string]any{"company": company, "missing_criteria": missing},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled by the caller.
func NewCancelled(operation string) *DealError {
	return &DealError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DealError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DealError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a DealError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DealError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// As extracts a DealError from err, wrapping anything else as INTERNAL.
func As(err error) *DealError {
	var dErr *DealError
	if stderrors.As(err, &dErr) {
		return dErr
	}
	return NewInternal(err)
}
