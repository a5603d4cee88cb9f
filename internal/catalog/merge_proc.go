package catalog

// merge_proc.go is the server-side merge strategy: one call into the
// catalog_merge_upload function installed by EnsureSchema. Postgres runs the
// entire merge atomically and returns the change counts; the function raises
// on a missing upload or a bad status, which is translated back into the
// same error taxonomy the transaction strategy uses.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type procMerge struct{}

func (procMerge) name() string { return StrategyProcedure }

func (procMerge) run(ctx context.Context, s *Service, u *Upload, opts MergeOptions) (*MergeResult, error) {
	res := &MergeResult{}
	err := s.pool.QueryRow(ctx,
		`SELECT created, updated, prices_updated, skipped
		 FROM catalog_merge_upload($1, $2)`,
		u.ID, opts.SkipInvalidRows,
	).Scan(&res.Created, &res.Updated, &res.PricesUpdated, &res.SkippedRows)
	if err != nil {
		return nil, translateProcError(u.ID.String(), err)
	}
	return res, nil
}

// translateProcError maps the function's raised errors onto the package
// sentinels so both strategies fail identically from a caller's view.
func translateProcError(uploadID string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "P0002": // no_data_found
			return fmt.Errorf("upload %s: %w", uploadID, ErrUploadNotFound)
		case pgErr.Code == "P0001" && strings.Contains(pgErr.Message, "not in a mergeable status"):
			return fmt.Errorf("upload %s: %w", uploadID, ErrMergePrecondition)
		}
	}
	return &MergeFailure{UploadID: uploadID, Stage: "procedure", Err: err}
}
