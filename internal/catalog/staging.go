package catalog

// staging.go implements the batch loader. Importers append raw rows to an
// upload in chunks; each call is all-or-nothing inside one transaction, so a
// mid-batch failure never leaves a partial tail of rows behind. Row numbers
// continue from the current maximum, which preserves source order across
// multiple append calls and makes last-row-wins deterministic.

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const insertStagedRowSQL = `INSERT INTO staged_rows
	(upload_id, row_num, sku, name, brand, uom, pack_size, price, currency, category, vat_code, barcode, attrs)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// InsertRows stages a chunk of raw rows for an upload. The upload must be in
// status received; staged rows are frozen once validation starts. Rows are
// normalized (cell cleanup, currency uppercased) and the upload's default
// currency is applied to rows that carry none. Row numbers are always
// assigned here, overwriting any caller-set RowNum: the loader owns the
// (upload_id, row_num) sequence so it stays dense and in append order
// across multiple calls. Returns the upload's new total row count.
func (s *Service) InsertRows(ctx context.Context, uploadID uuid.UUID, rows []StagedRow) (int, error) {
	if len(rows) == 0 {
		u, err := s.GetUpload(ctx, uploadID)
		if err != nil {
			return 0, err
		}
		return u.RowCount, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin staging: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := getUpload(ctx, tx, uploadID, true)
	if err != nil {
		return 0, err
	}
	if u.Status != StatusReceived {
		return 0, &TransitionError{UploadID: uploadID.String(), From: u.Status, To: StatusReceived}
	}

	var nextNum int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(row_num), 0) + 1 FROM staged_rows WHERE upload_id = $1`,
		uploadID).Scan(&nextNum)
	if err != nil {
		return 0, fmt.Errorf("next row number: %w", err)
	}

	for i := range rows {
		NormalizeRow(&rows[i])
		rows[i].UploadID = uploadID
		rows[i].RowNum = nextNum + i
		if rows[i].Currency == "" {
			rows[i].Currency = u.Currency
		}
	}

	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := insertChunk(ctx, tx, rows[start:end]); err != nil {
			return 0, fmt.Errorf("staging rows %d-%d: %w", rows[start].RowNum, rows[end-1].RowNum, err)
		}
	}

	total := u.RowCount + len(rows)
	_, err = tx.Exec(ctx,
		`UPDATE pricelist_uploads SET row_count = $2, updated_at = now() WHERE id = $1`,
		uploadID, total)
	if err != nil {
		return 0, fmt.Errorf("update row count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit staging: %w", err)
	}
	return total, nil
}

// insertChunk pipelines one chunk of inserts through a single batch round trip.
func insertChunk(ctx context.Context, tx pgx.Tx, rows []StagedRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertStagedRowSQL,
			r.UploadID, r.RowNum, r.SKU, r.Name, r.Brand, r.UOM,
			r.PackSize, r.Price, r.Currency, r.Category, r.VATCode, r.Barcode, r.Attrs)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return br.Close()
}

// GetRows returns an upload's staged rows in source order.
func (s *Service) GetRows(ctx context.Context, uploadID uuid.UUID) ([]StagedRow, error) {
	return loadRows(ctx, s.pool, uploadID)
}

func loadRows(ctx context.Context, db DBTX, uploadID uuid.UUID) ([]StagedRow, error) {
	rows, err := db.Query(ctx,
		`SELECT upload_id, row_num, sku, name, brand, uom, pack_size, price,
		        currency, category, vat_code, barcode, attrs
		 FROM staged_rows WHERE upload_id = $1 ORDER BY row_num`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("load staged rows: %w", err)
	}
	defer rows.Close()

	var out []StagedRow
	for rows.Next() {
		var r StagedRow
		err := rows.Scan(&r.UploadID, &r.RowNum, &r.SKU, &r.Name, &r.Brand, &r.UOM,
			&r.PackSize, &r.Price, &r.Currency, &r.Category, &r.VATCode, &r.Barcode, &r.Attrs)
		if err != nil {
			return nil, fmt.Errorf("scan staged row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staged rows: %w", err)
	}
	return out, nil
}
