package errors

import (
	"fmt"
	"testing"
)

func TestDealError_Error(t *testing.T) {
	err := &DealError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "candidate not found",
	}

	expected := "NOT_FOUND: candidate not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidInput(t *testing.T) {
	err := NewInvalidInput("msg-42", "raw_text", "raw_text is empty")

	if err.Code != ErrInvalidInput {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidInput)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Details["source_id"] != "msg-42" {
		t.Errorf("Details[source_id] = %v, want %q", err.Details["source_id"], "msg-42")
	}
	if err.Details["field"] != "raw_text" {
		t.Errorf("Details[field] = %v, want %q", err.Details["field"], "raw_text")
	}
}

func TestNewInvalidInput_NoSourceID(t *testing.T) {
	err := NewInvalidInput("", "raw_text", "raw_text is empty")

	if _, ok := err.Details["source_id"]; ok {
		t.Errorf("Details should not contain source_id when empty")
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("profile is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "profile is required" {
		t.Errorf("Message = %q, want %q", err.Message, "profile is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("score", "01ABC")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Message != "score not found: 01ABC" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["kind"] != "score" || err.Details["identifier"] != "01ABC" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewDuplicateDocument(t *testing.T) {
	err := NewDuplicateDocument("inbox/1.eml")

	if err.Code != ErrConflict {
		t.Errorf("Code = %q, want %q", err.Code, ErrConflict)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["source_id"] != "inbox/1.eml" {
		t.Errorf("Details[source_id] = %v", err.Details["source_id"])
	}
}

func TestNewInvalidConfiguration(t *testing.T) {
	err := NewInvalidConfiguration("weights", "must sum to 1.0, got 0.9")

	if err.Code != ErrInvalidConfiguration {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidConfiguration)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Message != "weights: must sum to 1.0, got 0.9" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["field"] != "weights" {
		t.Errorf("Details[field] = %v", err.Details["field"])
	}
}

func TestNewInsufficientData(t *testing.T) {
	err := NewInsufficientData("Acme", []string{"team", "technology"})

	if err.Code != ErrInsufficientData {
		t.Errorf("Code = %q, want %q", err.Code, ErrInsufficientData)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Message != "no usable scoring criteria for Acme" {
		t.Errorf("Message = %q", err.Message)
	}
	missing, ok := err.Details["missing_criteria"].([]string)
	if !ok || len(missing) != 2 {
		t.Errorf("Details[missing_criteria] = %v", err.Details["missing_criteria"])
	}
}

func TestNewInsufficientData_Unnamed(t *testing.T) {
	err := NewInsufficientData("", nil)

	if err.Message != "no usable scoring criteria for (unnamed company)" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("ingest_batch")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", err.Code, ErrCancelled)
	}
	if err.Status != 499 {
		t.Errorf("Status = %d, want 499", err.Status)
	}
	if err.Message != "ingest_batch cancelled" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))

	if err.Code != ErrInternal {
		t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
	if err.Message != "disk full" {
		t.Errorf("Message = %q, want %q", err.Message, "disk full")
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)

	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{
			name: "matching code",
			err:  NewInsufficientData("Acme", nil),
			code: ErrInsufficientData,
			want: true,
		},
		{
			name: "different code",
			err:  NewInvalidRequest("bad"),
			code: ErrInsufficientData,
			want: false,
		},
		{
			name: "wrapped DealError",
			err:  fmt.Errorf("scoring: %w", NewInvalidConfiguration("weights", "negative")),
			code: ErrInvalidConfiguration,
			want: true,
		},
		{
			name: "plain error",
			err:  fmt.Errorf("boom"),
			code: ErrInternal,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			code: ErrInternal,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	dErr := NewNotFound("memo", "x")
	if got := As(fmt.Errorf("wrap: %w", dErr)); got != dErr {
		t.Errorf("As() did not unwrap DealError")
	}

	got := As(fmt.Errorf("plain"))
	if got.Code != ErrInternal || got.Message != "plain" {
		t.Errorf("As(plain) = %+v", got)
	}
}
