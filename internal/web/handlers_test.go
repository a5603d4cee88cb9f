package web

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/supplysync/pricelist/internal/catalog"
)

// ============================================================================
// Error status mapping
// ============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "upload not found",
			err:  fmt.Errorf("upload x: %w", catalog.ErrUploadNotFound),
			want: http.StatusNotFound,
		},
		{
			name: "supplier not found",
			err:  fmt.Errorf("supplier y: %w", catalog.ErrSupplierNotFound),
			want: http.StatusNotFound,
		},
		{
			name: "illegal transition",
			err:  &catalog.TransitionError{UploadID: "x", From: catalog.StatusMerged, To: catalog.StatusValidating},
			want: http.StatusConflict,
		},
		{
			name: "merge precondition",
			err:  fmt.Errorf("upload x in status received: %w", catalog.ErrMergePrecondition),
			want: http.StatusConflict,
		},
		{
			name: "bad request",
			err:  badRequest("rows must not be empty"),
			want: http.StatusBadRequest,
		},
		{
			name: "anything else",
			err:  fmt.Errorf("pool exhausted"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ============================================================================
// Report capping
// ============================================================================

func TestCapReport(t *testing.T) {
	id := uuid.New()
	report := &catalog.ValidationReport{
		UploadID: id,
		Status:   catalog.ReportInvalid,
	}
	for i := 0; i < maxDisplayErrors+25; i++ {
		report.Errors = append(report.Errors, catalog.RowError{RowNum: i + 1, Field: "price", Message: "missing price"})
	}
	for i := 0; i < 3; i++ {
		report.Warnings = append(report.Warnings, catalog.RowWarning{SKU: "DUP", Message: "duplicate"})
	}

	resp := capReport(report)

	if len(resp.ValidationReport.Errors) != maxDisplayErrors {
		t.Errorf("capped errors = %d, want %d", len(resp.ValidationReport.Errors), maxDisplayErrors)
	}
	if resp.ErrorsOmitted != 25 {
		t.Errorf("ErrorsOmitted = %d, want 25", resp.ErrorsOmitted)
	}
	if len(resp.ValidationReport.Warnings) != 3 || resp.WarningsOmitted != 0 {
		t.Errorf("warnings should be untouched below the cap")
	}

	// The original report keeps the full detail for persistence
	if len(report.Errors) != maxDisplayErrors+25 {
		t.Errorf("capReport must not mutate the original report")
	}
}

func TestCapReport_SmallReportUntouched(t *testing.T) {
	report := &catalog.ValidationReport{
		UploadID: uuid.New(),
		Status:   catalog.ReportValid,
	}

	resp := capReport(report)
	if resp.ValidationReport != report {
		t.Error("small reports should pass through without copying")
	}
	if resp.ErrorsOmitted != 0 || resp.WarningsOmitted != 0 {
		t.Error("omitted counts should be zero")
	}
}
