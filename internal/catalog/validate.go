package catalog

// validate.go implements the validation gate. A validation run is a pure
// function of the staged rows plus the current product catalog, so running
// it twice on the same upload produces the same report and terminal status.
//
// Row-level failures never abort the run; the report always covers every
// row. Duplicate SKUs are a warning, not an error: the merge resolves them
// deterministically by taking the last occurrence in source order.

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// errorsKeyReport is the key under which the validation report is persisted
// in the upload's errors payload.
const errorsKeyReport = "validation_report"

// Validate runs the validation gate on an upload and transitions it to
// validated, warning or failed. Re-validating a validated or warning upload
// is allowed and converges on the same result; validating a merged or failed
// upload is an ordering error.
func (s *Service) Validate(ctx context.Context, uploadID uuid.UUID) (*ValidationReport, error) {
	u, err := s.Transition(ctx, uploadID, StatusValidating, nil)
	if err != nil {
		return nil, err
	}

	rows, err := loadRows(ctx, s.pool, uploadID)
	if err != nil {
		s.failValidation(ctx, uploadID, err)
		return nil, err
	}

	existing, err := s.existingSKUs(ctx, u.SupplierID, rows)
	if err != nil {
		s.failValidation(ctx, uploadID, err)
		return nil, err
	}

	report := BuildReport(uploadID, rows, existing)

	to := StatusValidated
	switch report.Status {
	case ReportInvalid:
		to = StatusFailed
	case ReportWarning:
		to = StatusWarning
	}

	u, err = s.Transition(ctx, uploadID, to, map[string]any{errorsKeyReport: report})
	if err != nil {
		return nil, err
	}
	if to == StatusFailed {
		s.publishFailed(ctx, u)
	}
	return report, nil
}

// failValidation moves an upload out of validating after an internal error,
// so it does not wedge in a state with no exit except more validation. The
// failure reason is persisted; a reprocess clears it.
func (s *Service) failValidation(ctx context.Context, uploadID uuid.UUID, cause error) {
	// Best-effort; the caller reports the original error either way.
	_, _ = s.Transition(ctx, uploadID, StatusFailed,
		map[string]any{"validation_error": cause.Error()})
}

// BuildReport computes the validation report for a set of staged rows.
// existing is the set of SKUs the supplier already has in the canonical
// catalog; it splits the summary into new products versus price updates.
func BuildReport(uploadID uuid.UUID, rows []StagedRow, existing map[string]bool) *ValidationReport {
	report := &ValidationReport{
		UploadID: uploadID,
		Status:   ReportValid,
		Summary:  ValidationSummary{TotalRows: len(rows)},
	}

	// Row numbers of the last occurrence per SKU, and occurrence counts.
	lastRow := make(map[string]int)
	skuCount := make(map[string]int)
	eligible := make(map[string]bool)

	for _, r := range rows {
		report.Errors = append(report.Errors, CheckRow(r)...)
		if r.Category == "" {
			report.Summary.UnmappedCategory++
		}
		if r.SKU == "" {
			continue
		}
		skuCount[r.SKU]++
		lastRow[r.SKU] = r.RowNum
		if RowEligible(r) {
			eligible[r.SKU] = true
		}
	}

	// Duplicate SKUs warn but do not block; the merge keeps the last row.
	var dups []string
	for sku, n := range skuCount {
		if n > 1 {
			dups = append(dups, sku)
		}
	}
	sort.Strings(dups)
	for _, sku := range dups {
		report.Warnings = append(report.Warnings, RowWarning{
			RowNum: lastRow[sku],
			SKU:    sku,
			Message: fmt.Sprintf("SKU %q appears %d times; the last occurrence (row %d) will be merged",
				sku, skuCount[sku], lastRow[sku]),
		})
	}
	report.Summary.DuplicateSKUs = len(dups)

	for sku := range eligible {
		if existing[sku] {
			report.Summary.UpdatedPrices++
		} else {
			report.Summary.NewProducts++
		}
	}

	switch {
	case len(report.Errors) > 0:
		report.Status = ReportInvalid
	case len(report.Warnings) > 0:
		report.Status = ReportWarning
	}
	return report
}

// existingSKUs returns which of the staged SKUs already exist as canonical
// products for the supplier.
func (s *Service) existingSKUs(ctx context.Context, supplierID uuid.UUID, rows []StagedRow) (map[string]bool, error) {
	seen := make(map[string]bool, len(rows))
	skus := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.SKU != "" && !seen[r.SKU] {
			seen[r.SKU] = true
			skus = append(skus, r.SKU)
		}
	}
	if len(skus) == 0 {
		return map[string]bool{}, nil
	}

	res, err := s.pool.Query(ctx,
		`SELECT sku FROM products WHERE supplier_id = $1 AND sku = ANY($2)`,
		supplierID, skus)
	if err != nil {
		return nil, fmt.Errorf("lookup existing skus: %w", err)
	}
	defer res.Close()

	existing := make(map[string]bool)
	for res.Next() {
		var sku string
		if err := res.Scan(&sku); err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		existing[sku] = true
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("existing skus: %w", err)
	}
	return existing, nil
}

// Report returns the stored validation report payload for an upload along
// with its current status. Returns a nil payload when the upload has not
// been validated yet.
func (s *Service) Report(ctx context.Context, uploadID uuid.UUID) (UploadStatus, map[string]any, error) {
	u, err := s.GetUpload(ctx, uploadID)
	if err != nil {
		return "", nil, err
	}
	if u.Errors == nil {
		return u.Status, nil, nil
	}
	payload, _ := u.Errors[errorsKeyReport].(map[string]any)
	return u.Status, payload, nil
}
