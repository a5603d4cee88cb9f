package catalog

// status.go implements the upload lifecycle state machine:
//
//	received ──> validating ──> validated ──┐
//	    ^             │    └──> warning   ──┼──> merged
//	    │             └──────> failed       │
//	    └───────────(reprocess)─┘           │
//	validated/warning ──> validating (re-validation is idempotent)
//
// Every status write goes through Transition or transitionTx, which check
// the edge against legalTransitions under a row lock. An illegal edge is a
// TransitionError and the calling operation aborts.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// legalTransitions is the set of allowed status edges. Validated and warning
// uploads may re-enter validating so a re-run of the validator converges on
// the same result instead of erroring.
var legalTransitions = map[UploadStatus][]UploadStatus{
	StatusReceived:   {StatusValidating},
	StatusValidating: {StatusValidated, StatusWarning, StatusFailed},
	StatusValidated:  {StatusMerged, StatusValidating},
	StatusWarning:    {StatusMerged, StatusValidating},
	StatusFailed:     {StatusReceived},
	StatusMerged:     {},
}

// canTransition reports whether the edge from -> to is legal.
func canTransition(from, to UploadStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// mergeable reports whether an upload in the given status may be merged.
// Without skip, only a clean or warning validation result qualifies. With
// skip, any pre-merge status qualifies since eligibility is applied per row.
func mergeable(status UploadStatus, skipInvalid bool) bool {
	if skipInvalid {
		return status != StatusMerged && status != StatusValidating
	}
	return status == StatusValidated || status == StatusWarning
}

// CreateUpload opens a new upload header in status received.
func (s *Service) CreateUpload(ctx context.Context, in NewUpload) (*Upload, error) {
	if in.Filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if in.Currency != "" && !ValidCurrency(in.Currency) {
		return nil, fmt.Errorf("default currency must be a 3-letter code, got %q", in.Currency)
	}
	if in.ValidFrom.IsZero() {
		in.ValidFrom = time.Now().UTC().Truncate(24 * time.Hour)
	}

	ok, err := s.supplierExists(ctx, s.pool, in.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("check supplier: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("supplier %s: %w", in.SupplierID, ErrSupplierNotFound)
	}

	u := &Upload{
		ID:         uuid.New(),
		SupplierID: in.SupplierID,
		Filename:   in.Filename,
		Currency:   in.Currency,
		ValidFrom:  in.ValidFrom,
		ValidTo:    in.ValidTo,
		Status:     StatusReceived,
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO pricelist_uploads (id, supplier_id, filename, currency, valid_from, valid_to, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		u.ID, u.SupplierID, u.Filename, u.Currency, u.ValidFrom, u.ValidTo, u.Status,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	return u, nil
}

// Transition moves an upload to a new status in its own transaction,
// optionally replacing the error payload. The row is locked for the
// read-check-update so concurrent transitions serialize.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to UploadStatus, errPayload map[string]any) (*Upload, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := transitionTx(ctx, tx, id, to, errPayload)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return u, nil
}

// transitionTx performs the guarded status update inside an existing
// transaction. A nil errPayload leaves the stored errors untouched;
// clearErrors wipes them explicitly.
func transitionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, to UploadStatus, errPayload map[string]any) (*Upload, error) {
	u, err := getUpload(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if !canTransition(u.Status, to) {
		return nil, &TransitionError{UploadID: id.String(), From: u.Status, To: to}
	}

	q := `UPDATE pricelist_uploads SET status = $2, updated_at = now()`
	args := []interface{}{id, to}
	if errPayload != nil {
		q += `, errors = $3`
		args = append(args, errPayload)
	}
	if to == StatusMerged {
		q += `, processed_at = now()`
	}
	q += ` WHERE id = $1 RETURNING ` + uploadColumns

	updated, err := scanUpload(tx.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("upload %s: %w", id, ErrUploadNotFound)
		}
		return nil, fmt.Errorf("transition upload: %w", err)
	}
	return updated, nil
}

// Reprocess resets a failed upload to received, clearing its error payload
// and staged rows so an importer can resubmit corrected data under the same
// upload id.
func (s *Service) Reprocess(ctx context.Context, id uuid.UUID) (*Upload, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reprocess: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := transitionTx(ctx, tx, id, StatusReceived, map[string]any{})
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM staged_rows WHERE upload_id = $1`, id); err != nil {
		return nil, fmt.Errorf("clear staged rows: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE pricelist_uploads SET row_count = 0 WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("reset row count: %w", err)
	}
	u.RowCount = 0

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reprocess: %w", err)
	}
	return u, nil
}
