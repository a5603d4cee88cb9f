// Package catalog implements the pricelist staging, validation and merge
// pipeline. Importers stage raw supplier rows against an upload header,
// the validator gates them against structural rules, and the merge engine
// reconciles them into the canonical product and price-history tables.
// This package has no HTTP dependencies and can be driven by any frontend.
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// UploadStatus is the lifecycle state of a pricelist upload.
type UploadStatus string

const (
	StatusReceived   UploadStatus = "received"
	StatusValidating UploadStatus = "validating"
	StatusValidated  UploadStatus = "validated"
	StatusWarning    UploadStatus = "warning"
	StatusFailed     UploadStatus = "failed"
	StatusMerged     UploadStatus = "merged"
)

// Supplier is the party a pricelist belongs to. Upload headers reference
// suppliers by id; the merge keys canonical products on (supplier, sku).
type Supplier struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// Upload is the staging header for one pricelist submission.
// It is created once by an importer, mutated only by the validator and the
// merge engine, and never deleted (audit trail).
type Upload struct {
	ID          uuid.UUID      `json:"id"`
	SupplierID  uuid.UUID      `json:"supplierId"`
	Filename    string         `json:"filename"`
	Currency    string         `json:"currency"`
	ValidFrom   time.Time      `json:"validFrom"`
	ValidTo     *time.Time     `json:"validTo,omitempty"`
	RowCount    int            `json:"rowCount"`
	Status      UploadStatus   `json:"status"`
	Errors      map[string]any `json:"errors,omitempty"`
	ProcessedAt *time.Time     `json:"processedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// NewUpload contains the fields an importer supplies when opening an upload.
type NewUpload struct {
	SupplierID uuid.UUID  `json:"supplierId"`
	Filename   string     `json:"filename"`
	Currency   string     `json:"currency"`
	ValidFrom  time.Time  `json:"validFrom"`
	ValidTo    *time.Time `json:"validTo,omitempty"`
}

// StagedRow is one raw pricelist line as received from an importer.
// Rows are immutable once inserted; only the validator and merge read them.
//
// Attrs is an open bag for source-specific extras (column leftovers, AI
// extraction metadata). Values should be JSON scalars; the bag never
// influences validation or merge decisions.
type StagedRow struct {
	UploadID uuid.UUID           `json:"uploadId"`
	RowNum   int                 `json:"rowNum"`
	SKU      string              `json:"sku"`
	Name     string              `json:"name"`
	Brand    string              `json:"brand"`
	UOM      string              `json:"uom"`
	PackSize decimal.NullDecimal `json:"packSize"`
	Price    decimal.NullDecimal `json:"price"`
	Currency string              `json:"currency"`
	Category string              `json:"category"`
	VATCode  string              `json:"vatCode,omitempty"`
	Barcode  string              `json:"barcode,omitempty"`
	Attrs    map[string]any      `json:"attrs,omitempty"`
}

// Product is the canonical, deduplicated representation of a supplier SKU.
// The pair (SupplierID, SKU) is unique and is the natural key the merge
// uses to decide insert-vs-update. Descriptive fields are last-write-wins.
type Product struct {
	ID          uuid.UUID           `json:"id"`
	SupplierID  uuid.UUID           `json:"supplierId"`
	SKU         string              `json:"sku"`
	Name        string              `json:"name"`
	Brand       string              `json:"brand"`
	UOM         string              `json:"uom"`
	PackSize    decimal.NullDecimal `json:"packSize"`
	Barcode     string              `json:"barcode,omitempty"`
	IsActive    bool                `json:"isActive"`
	FirstSeenAt time.Time           `json:"firstSeenAt"`
	LastSeenAt  time.Time           `json:"lastSeenAt"`
}

// PriceRecord is one temporal price entry for a product. At most one record
// per product has IsCurrent set; older records carry a closed validity span.
type PriceRecord struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	ValidFrom time.Time       `json:"validFrom"`
	ValidTo   *time.Time      `json:"validTo,omitempty"`
	IsCurrent bool            `json:"isCurrent"`
}

// RowError is a single row-level validation failure.
type RowError struct {
	RowNum  int    `json:"rowNum"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RowWarning is a non-blocking row-level finding, e.g. a duplicate SKU.
type RowWarning struct {
	RowNum  int    `json:"rowNum,omitempty"`
	SKU     string `json:"sku,omitempty"`
	Message string `json:"message"`
}

// ReportStatus is the outcome of a validation run.
type ReportStatus string

const (
	ReportValid   ReportStatus = "valid"
	ReportWarning ReportStatus = "warning"
	ReportInvalid ReportStatus = "invalid"
)

// ValidationSummary holds the aggregate counts of a validation run.
type ValidationSummary struct {
	TotalRows        int `json:"totalRows"`
	NewProducts      int `json:"newProducts"`
	UpdatedPrices    int `json:"updatedPrices"`
	UnmappedCategory int `json:"unmappedCategory"`
	DuplicateSKUs    int `json:"duplicateSkus"`
}

// ValidationReport is the full result of validating an upload.
// Errors and Warnings are complete; display capping is a caller concern.
type ValidationReport struct {
	UploadID uuid.UUID         `json:"uploadId"`
	Status   ReportStatus      `json:"status"`
	Errors   []RowError        `json:"errors,omitempty"`
	Warnings []RowWarning      `json:"warnings,omitempty"`
	Summary  ValidationSummary `json:"summary"`
}

// MergeOptions controls merge behavior.
type MergeOptions struct {
	// SkipInvalidRows applies the row-level validity rules inline and
	// excludes failing rows from the merge set instead of requiring a
	// clean validation pass.
	SkipInvalidRows bool `json:"skipInvalidRows"`
}

// MergeResult reports what a merge changed.
type MergeResult struct {
	UploadID      uuid.UUID     `json:"uploadId"`
	Created       int           `json:"created"`
	Updated       int           `json:"updated"`
	PricesUpdated int           `json:"pricesUpdated"`
	SkippedRows   int           `json:"skippedRows"`
	Errors        []RowError    `json:"errors,omitempty"`
	Strategy      string        `json:"strategy"`
	Duration      time.Duration `json:"duration"`
}

// UploadEvent is published to downstream consumers when an upload reaches a
// terminal state. Best-effort: delivery failures never affect the pipeline.
type UploadEvent struct {
	UploadID      uuid.UUID    `json:"uploadId"`
	SupplierID    uuid.UUID    `json:"supplierId"`
	Status        UploadStatus `json:"status"`
	Created       int          `json:"created,omitempty"`
	Updated       int          `json:"updated,omitempty"`
	PricesUpdated int          `json:"pricesUpdated,omitempty"`
	OccurredAt    time.Time    `json:"occurredAt"`
}

// EventSink receives terminal upload events. Implementations must be
// non-blocking best-effort; the pipeline ignores their failures.
type EventSink interface {
	UploadMerged(ctx context.Context, e UploadEvent)
	UploadFailed(ctx context.Context, e UploadEvent)
}
