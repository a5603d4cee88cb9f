package catalog

// merge.go is the merge engine's entry point. The actual execution is
// delegated to one of two strategies that must produce identical canonical
// state for the same staged input:
//
//	procMerge - one call to the catalog_merge_upload database function;
//	            the whole merge runs server-side in a single statement.
//	txMerge   - a client-orchestrated transaction that walks the winning
//	            rows from Go; slower, but debuggable step by step and
//	            independent of the installed function version.
//
// Row eligibility and last-row-wins duplicate resolution are pure functions
// here (RowEligible, pickWinners); the database function splices in
// rowEligibleSQL, the SQL rendering of the same rules, and resolves
// duplicates with an equivalent DISTINCT ON cursor.

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// mergeStrategy executes a merge for an upload that already passed the
// precondition check. Implementations run everything inside one database
// transaction and leave the upload in status merged on success.
type mergeStrategy interface {
	name() string
	run(ctx context.Context, s *Service, u *Upload, opts MergeOptions) (*MergeResult, error)
}

// Merge reconciles an upload's staged rows into the canonical product and
// price-history tables. Without SkipInvalidRows the upload must be in status
// validated or warning; with it, any upload that is not merged or mid-
// validation may be merged and ineligible rows are excluded per row.
//
// The merge is all-or-nothing: on any failure the transaction rolls back,
// the upload keeps its previous status, and the error is wrapped in a
// MergeFailure. Retrying a failed merge is safe.
func (s *Service) Merge(ctx context.Context, uploadID uuid.UUID, opts MergeOptions) (*MergeResult, error) {
	start := time.Now()

	u, err := s.GetUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if !mergeable(u.Status, opts.SkipInvalidRows) {
		return nil, fmt.Errorf("upload %s in status %s: %w", uploadID, u.Status, ErrMergePrecondition)
	}

	res, err := s.merger.run(ctx, s, u, opts)
	if err != nil {
		return nil, err
	}
	res.UploadID = uploadID
	res.Strategy = s.merger.name()
	res.Duration = time.Since(start)

	s.publishMerged(ctx, u, res)
	return res, nil
}

// pickWinners filters rows to the merge-eligible set and resolves duplicate
// SKUs last-row-wins: for each SKU the eligible occurrence with the highest
// row number survives. Winners come back in SKU order, matching the
// server-side merge's `DISTINCT ON (sku) ... ORDER BY sku, row_num DESC`
// cursor.
func pickWinners(rows []StagedRow) []StagedRow {
	last := make(map[string]StagedRow)
	for _, r := range rows {
		if !RowEligible(r) {
			continue
		}
		if prev, ok := last[r.SKU]; !ok || r.RowNum > prev.RowNum {
			last[r.SKU] = r
		}
	}
	if len(last) == 0 {
		return nil
	}

	winners := make([]StagedRow, 0, len(last))
	for _, r := range last {
		winners = append(winners, r)
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].SKU < winners[j].SKU })
	return winners
}

// priceUnchanged reports whether a winning row carries the same price and
// currency as the product's current record. An unchanged price leaves the
// history untouched, which is what makes re-merging a merged pricelist
// report zero price updates.
func priceUnchanged(current decimal.Decimal, currency string, r StagedRow) bool {
	return current.Equal(r.Price.Decimal) && currency == r.Currency
}

// skippedPayload renders the skipped-row errors for persistence in the
// upload's errors payload, preserving any prior validation report.
func skippedPayload(prior map[string]any, skipped []RowError) map[string]any {
	payload := make(map[string]any, len(prior)+1)
	for k, v := range prior {
		payload[k] = v
	}
	payload["skipped_rows"] = skipped
	return payload
}
