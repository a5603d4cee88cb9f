package catalog

// merge_tx.go is the client-orchestrated merge strategy. It loads the
// staged rows inside one transaction, resolves the winning row per SKU in
// Go, then walks the winners: upsert the product, compare the current
// price, close-then-open the price history only when the price or currency
// actually changed. Any error rolls the whole transaction back.

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type txMerge struct{}

func (txMerge) name() string { return StrategyTransaction }

const upsertProductSQL = `INSERT INTO products
		(supplier_id, sku, name, brand, uom, pack_size, barcode)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (supplier_id, sku) DO UPDATE SET
		name = EXCLUDED.name,
		brand = EXCLUDED.brand,
		uom = EXCLUDED.uom,
		pack_size = EXCLUDED.pack_size,
		barcode = EXCLUDED.barcode,
		is_active = true,
		last_seen_at = now()
	RETURNING id, (xmax = 0)`

func (txMerge) run(ctx context.Context, s *Service, u *Upload, opts MergeOptions) (*MergeResult, error) {
	fail := func(stage string, err error) (*MergeResult, error) {
		return nil, &MergeFailure{UploadID: u.ID.String(), Stage: stage, Err: err}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fail("begin", err)
	}
	defer tx.Rollback(ctx)

	// Re-read under lock: the pre-check ran outside the transaction and a
	// concurrent merge may have won the race.
	locked, err := getUpload(ctx, tx, u.ID, true)
	if err != nil {
		return fail("lock-upload", err)
	}
	if !mergeable(locked.Status, opts.SkipInvalidRows) {
		return nil, fmt.Errorf("upload %s in status %s: %w", u.ID, locked.Status, ErrMergePrecondition)
	}

	staged, err := loadRows(ctx, tx, u.ID)
	if err != nil {
		return fail("load-rows", err)
	}

	res := &MergeResult{}
	if opts.SkipInvalidRows {
		for _, r := range staged {
			if RowEligible(r) {
				continue
			}
			res.SkippedRows++
			res.Errors = append(res.Errors, CheckRow(r)...)
		}
	}

	for _, r := range pickWinners(staged) {
		var productID uuid.UUID
		var inserted bool
		err := tx.QueryRow(ctx, upsertProductSQL,
			u.SupplierID, r.SKU, r.Name, r.Brand, r.UOM, r.PackSize, r.Barcode,
		).Scan(&productID, &inserted)
		if err != nil {
			return fail("upsert-products", fmt.Errorf("sku %q: %w", r.SKU, err))
		}
		if inserted {
			res.Created++
		} else {
			res.Updated++
		}

		changed, err := applyPrice(ctx, tx, productID, r, u)
		if err != nil {
			return fail("price-history", fmt.Errorf("sku %q: %w", r.SKU, err))
		}
		if changed {
			res.PricesUpdated++
		}
	}

	errPayload := locked.Errors
	if opts.SkipInvalidRows {
		errPayload = skippedPayload(locked.Errors, res.Errors)
	}
	_, err = tx.Exec(ctx,
		`UPDATE pricelist_uploads
		 SET status = $2, processed_at = now(), updated_at = now(), errors = $3
		 WHERE id = $1`,
		u.ID, StatusMerged, errPayload)
	if err != nil {
		return fail("finalize", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fail("commit", err)
	}
	return res, nil
}

// applyPrice maintains the product's price history for one winning row.
// Returns false without writing when the current price already matches,
// so an unchanged pricelist leaves the history untouched.
func applyPrice(ctx context.Context, tx pgx.Tx, productID uuid.UUID, r StagedRow, u *Upload) (bool, error) {
	var current decimal.Decimal
	var currency string
	err := tx.QueryRow(ctx,
		`SELECT price, currency FROM price_records WHERE product_id = $1 AND is_current`,
		productID).Scan(&current, &currency)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// No current price; fall through to open the first record.
	case err != nil:
		return false, err
	case priceUnchanged(current, currency, r):
		return false, nil
	default:
		_, err = tx.Exec(ctx,
			`UPDATE price_records SET valid_to = $2, is_current = false
			 WHERE product_id = $1 AND is_current`,
			productID, u.ValidFrom)
		if err != nil {
			return false, err
		}
	}

	// A retried merge with the same validity date updates the record in
	// place instead of violating (product_id, valid_from).
	_, err = tx.Exec(ctx,
		`INSERT INTO price_records (product_id, price, currency, valid_from, valid_to)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (product_id, valid_from) DO UPDATE SET
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			valid_to = EXCLUDED.valid_to,
			is_current = true`,
		productID, r.Price.Decimal, r.Currency, u.ValidFrom, u.ValidTo)
	if err != nil {
		return false, err
	}
	return true, nil
}
