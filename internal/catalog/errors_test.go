package catalog

import (
	"errors"
	"fmt"
	"testing"
)

// ============================================================================
// Error taxonomy
// ============================================================================

func TestTransitionError(t *testing.T) {
	err := &TransitionError{UploadID: "abc", From: StatusMerged, To: StatusValidating}

	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("TransitionError should match ErrInvalidTransition")
	}
	want := "upload abc: illegal transition merged -> validating"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMergeFailureUnwrap(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := &MergeFailure{UploadID: "abc", Stage: "price-history", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("MergeFailure should unwrap to its cause")
	}
	if got := err.Error(); got != "merge of upload abc failed at price-history: deadlock detected" {
		t.Errorf("Error() = %q", got)
	}
}

// ============================================================================
// MapError
// ============================================================================

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error",
			err:      nil,
			wantCode: "OK",
		},
		{
			name:     "illegal transition",
			err:      &TransitionError{UploadID: "x", From: StatusMerged, To: StatusValidating},
			wantCode: "UPL001",
		},
		{
			name:     "merge precondition",
			err:      fmt.Errorf("upload x in status received: %w", ErrMergePrecondition),
			wantCode: "UPL002",
		},
		{
			name:     "upload not found",
			err:      fmt.Errorf("upload x: %w", ErrUploadNotFound),
			wantCode: "UPL003",
		},
		{
			name:     "supplier not found",
			err:      fmt.Errorf("supplier y: %w", ErrSupplierNotFound),
			wantCode: "UPL004",
		},
		{
			name:     "bad request",
			err:      errors.New("invalid request: rows must not be empty"),
			wantCode: "REQ001",
		},
		{
			name:     "merge failure",
			err:      &MergeFailure{UploadID: "x", Stage: "finalize", Err: errors.New("boom")},
			wantCode: "MRG001",
		},
		{
			name:     "duplicate key",
			err:      errors.New(`ERROR: duplicate key value violates unique constraint "suppliers_code_key"`),
			wantCode: "DB001",
		},
		{
			name:     "foreign key",
			err:      errors.New(`insert or update violates foreign key constraint`),
			wantCode: "DB003",
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode: "DB004",
		},
		{
			name:     "deadlock",
			err:      errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"),
			wantCode: "DB006",
		},
		{
			name:     "context deadline",
			err:      errors.New("context deadline exceeded"),
			wantCode: "DB007",
		},
		{
			name:     "rate limited",
			err:      errors.New("rate limit exceeded"),
			wantCode: "RATE001",
		},
		{
			name:     "unknown error",
			err:      errors.New("something nobody anticipated"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if got.Message == "" {
				t.Error("MapError() returned empty Message")
			}
		})
	}
}

func TestMapError_CaseInsensitive(t *testing.T) {
	got := MapError(errors.New("DEADLOCK DETECTED"))
	if got.Code != "DB006" {
		t.Errorf("MapError should match case-insensitively, got code %q", got.Code)
	}
}
