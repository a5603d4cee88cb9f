package catalog

import (
	"testing"

	"github.com/google/uuid"
)

// ============================================================================
// BuildReport
// ============================================================================

func TestBuildReport_CleanUpload(t *testing.T) {
	id := uuid.New()
	rows := []StagedRow{goodRow(1), namedRow(2, "XYZ-9")}

	report := BuildReport(id, rows, map[string]bool{})

	if report.Status != ReportValid {
		t.Fatalf("Status = %s, want %s", report.Status, ReportValid)
	}
	if len(report.Errors) != 0 || len(report.Warnings) != 0 {
		t.Errorf("clean upload produced %d errors, %d warnings", len(report.Errors), len(report.Warnings))
	}
	if report.Summary.TotalRows != 2 {
		t.Errorf("Summary.TotalRows = %d, want 2", report.Summary.TotalRows)
	}
	if report.Summary.NewProducts != 2 {
		t.Errorf("Summary.NewProducts = %d, want 2", report.Summary.NewProducts)
	}
	if report.Summary.UpdatedPrices != 0 {
		t.Errorf("Summary.UpdatedPrices = %d, want 0", report.Summary.UpdatedPrices)
	}
}

func TestBuildReport_InvalidRows(t *testing.T) {
	id := uuid.New()
	bad := goodRow(2)
	bad.Price = dec("0")
	rows := []StagedRow{goodRow(1), bad}

	report := BuildReport(id, rows, map[string]bool{})

	if report.Status != ReportInvalid {
		t.Fatalf("Status = %s, want %s", report.Status, ReportInvalid)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(report.Errors))
	}
	if report.Errors[0].RowNum != 2 || report.Errors[0].Field != FieldPrice {
		t.Errorf("Errors[0] = %+v, want row 2 field %s", report.Errors[0], FieldPrice)
	}
}

func TestBuildReport_DuplicateSKUsWarn(t *testing.T) {
	id := uuid.New()
	rows := []StagedRow{
		namedRow(1, "DUP-1"),
		namedRow(2, "DUP-1"),
		namedRow(3, "DUP-1"),
		namedRow(4, "OTHER"),
	}

	report := BuildReport(id, rows, map[string]bool{})

	if report.Status != ReportWarning {
		t.Fatalf("Status = %s, want %s", report.Status, ReportWarning)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("len(Warnings) = %d, want 1", len(report.Warnings))
	}
	w := report.Warnings[0]
	if w.SKU != "DUP-1" {
		t.Errorf("Warnings[0].SKU = %q, want %q", w.SKU, "DUP-1")
	}
	// Last occurrence wins, so the warning points at row 3
	if w.RowNum != 3 {
		t.Errorf("Warnings[0].RowNum = %d, want 3", w.RowNum)
	}
	if report.Summary.DuplicateSKUs != 1 {
		t.Errorf("Summary.DuplicateSKUs = %d, want 1", report.Summary.DuplicateSKUs)
	}
	// Three rows collapse into one product plus one distinct SKU
	if report.Summary.NewProducts != 2 {
		t.Errorf("Summary.NewProducts = %d, want 2", report.Summary.NewProducts)
	}
}

func TestBuildReport_NewVersusUpdated(t *testing.T) {
	id := uuid.New()
	rows := []StagedRow{
		namedRow(1, "KNOWN-1"),
		namedRow(2, "KNOWN-2"),
		namedRow(3, "FRESH-1"),
	}
	existing := map[string]bool{"KNOWN-1": true, "KNOWN-2": true}

	report := BuildReport(id, rows, existing)

	if report.Summary.NewProducts != 1 {
		t.Errorf("Summary.NewProducts = %d, want 1", report.Summary.NewProducts)
	}
	if report.Summary.UpdatedPrices != 2 {
		t.Errorf("Summary.UpdatedPrices = %d, want 2", report.Summary.UpdatedPrices)
	}
}

func TestBuildReport_UnmappedCategories(t *testing.T) {
	id := uuid.New()
	mapped := namedRow(1, "A")
	mapped.Category = "Dairy"
	rows := []StagedRow{mapped, namedRow(2, "B"), namedRow(3, "C")}

	report := BuildReport(id, rows, map[string]bool{})

	if report.Summary.UnmappedCategory != 2 {
		t.Errorf("Summary.UnmappedCategory = %d, want 2", report.Summary.UnmappedCategory)
	}
}

func TestBuildReport_IneligibleRowsExcludedFromCounts(t *testing.T) {
	id := uuid.New()
	bad := namedRow(1, "BROKEN")
	bad.Price = dec("-1")
	rows := []StagedRow{bad, namedRow(2, "GOOD")}

	report := BuildReport(id, rows, map[string]bool{})

	// The broken SKU must not be counted as a new product
	if report.Summary.NewProducts != 1 {
		t.Errorf("Summary.NewProducts = %d, want 1", report.Summary.NewProducts)
	}
	if report.Status != ReportInvalid {
		t.Errorf("Status = %s, want %s", report.Status, ReportInvalid)
	}
}

func TestBuildReport_EmptyUpload(t *testing.T) {
	report := BuildReport(uuid.New(), nil, map[string]bool{})

	if report.Status != ReportValid {
		t.Errorf("Status = %s, want %s for empty upload", report.Status, ReportValid)
	}
	if report.Summary.TotalRows != 0 {
		t.Errorf("Summary.TotalRows = %d, want 0", report.Summary.TotalRows)
	}
}

// namedRow returns a valid row with a specific SKU.
func namedRow(num int, sku string) StagedRow {
	r := goodRow(num)
	r.SKU = sku
	return r
}
