package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Default tuning values, overridable via Options.
const (
	DefaultBatchSize = 500

	// StrategyProcedure runs the merge as a single server-side function call.
	StrategyProcedure = "procedure"
	// StrategyTransaction runs the merge as a client-orchestrated transaction.
	StrategyTransaction = "transaction"
)

// Options configures a Service.
type Options struct {
	// BatchSize is the number of staged rows inserted per statement batch.
	BatchSize int

	// MergeStrategy selects the merge execution path:
	// StrategyProcedure (default) or StrategyTransaction.
	MergeStrategy string

	// Events receives terminal upload events. May be nil.
	Events EventSink
}

// Service provides the staging-validation-merge pipeline.
// All methods are synchronous and run to completion; callers own
// per-upload serialization of validate and merge.
type Service struct {
	pool      *pgxpool.Pool
	batchSize int
	merger    mergeStrategy
	events    EventSink
}

// NewService creates a Service. The merge strategy is fixed at construction
// so tests and deployments can pin a path deterministically.
func NewService(pool *pgxpool.Pool, opts Options) (*Service, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	var merger mergeStrategy
	switch opts.MergeStrategy {
	case "", StrategyProcedure:
		merger = procMerge{}
	case StrategyTransaction:
		merger = txMerge{}
	default:
		return nil, fmt.Errorf("unknown merge strategy %q", opts.MergeStrategy)
	}

	return &Service{
		pool:      pool,
		batchSize: opts.BatchSize,
		merger:    merger,
		events:    opts.Events,
	}, nil
}

// MergeStrategy returns the name of the configured merge path.
func (s *Service) MergeStrategy() string { return s.merger.name() }

// Ping verifies database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ============================================================================
// Suppliers
// ============================================================================

// CreateSupplier registers a supplier. Upload headers must reference an
// existing supplier, so importers create suppliers before their first upload.
func (s *Service) CreateSupplier(ctx context.Context, name, code string) (*Supplier, error) {
	if name == "" || code == "" {
		return nil, fmt.Errorf("supplier name and code are required")
	}

	sup := &Supplier{ID: uuid.New(), Name: name, Code: code}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO suppliers (id, name, code) VALUES ($1, $2, $3) RETURNING created_at`,
		sup.ID, sup.Name, sup.Code,
	).Scan(&sup.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return sup, nil
}

// ListSuppliers returns all suppliers ordered by name.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, code, created_at FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var sup Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Code, &sup.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("supplier rows: %w", err)
	}
	return suppliers, nil
}

// supplierExists reports whether the supplier id is known.
func (s *Service) supplierExists(ctx context.Context, db DBTX, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// ============================================================================
// Upload reads
// ============================================================================

const uploadColumns = `id, supplier_id, filename, currency, valid_from, valid_to,
	row_count, status, errors, processed_at, created_at, updated_at`

// GetUpload returns one upload header.
func (s *Service) GetUpload(ctx context.Context, id uuid.UUID) (*Upload, error) {
	return getUpload(ctx, s.pool, id, false)
}

// getUpload fetches an upload, optionally locking the row for the duration
// of the surrounding transaction.
func getUpload(ctx context.Context, db DBTX, id uuid.UUID, forUpdate bool) (*Upload, error) {
	q := `SELECT ` + uploadColumns + ` FROM pricelist_uploads WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	u, err := scanUpload(db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("upload %s: %w", id, ErrUploadNotFound)
		}
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return u, nil
}

// ListUploads returns upload headers, newest first, optionally filtered by
// supplier. This feeds the operator-facing upload history view.
func (s *Service) ListUploads(ctx context.Context, supplierID *uuid.UUID, limit int) ([]Upload, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := `SELECT ` + uploadColumns + ` FROM pricelist_uploads`
	args := []interface{}{}
	if supplierID != nil {
		q += ` WHERE supplier_id = $1`
		args = append(args, *supplierID)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		uploads = append(uploads, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("upload rows: %w", err)
	}
	return uploads, nil
}

// scanUpload reads an upload header from a row with uploadColumns order.
func scanUpload(row pgx.Row) (*Upload, error) {
	var u Upload
	var validTo, processedAt *time.Time
	err := row.Scan(
		&u.ID, &u.SupplierID, &u.Filename, &u.Currency, &u.ValidFrom, &validTo,
		&u.RowCount, &u.Status, &u.Errors, &processedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ValidTo = validTo
	u.ProcessedAt = processedAt
	return &u, nil
}

// publishMerged emits a terminal merge event when an event sink is wired.
func (s *Service) publishMerged(ctx context.Context, u *Upload, res *MergeResult) {
	if s.events == nil {
		return
	}
	s.events.UploadMerged(ctx, UploadEvent{
		UploadID:      u.ID,
		SupplierID:    u.SupplierID,
		Status:        StatusMerged,
		Created:       res.Created,
		Updated:       res.Updated,
		PricesUpdated: res.PricesUpdated,
		OccurredAt:    time.Now().UTC(),
	})
}

// publishFailed emits a validation-failure event when an event sink is wired.
func (s *Service) publishFailed(ctx context.Context, u *Upload) {
	if s.events == nil {
		return
	}
	s.events.UploadFailed(ctx, UploadEvent{
		UploadID:   u.ID,
		SupplierID: u.SupplierID,
		Status:     StatusFailed,
		OccurredAt: time.Now().UTC(),
	})
}
