package catalog

// schema.go installs the pipeline's tables, indexes and the server-side
// merge function. EnsureSchema is idempotent and runs at startup; every
// statement is IF NOT EXISTS or CREATE OR REPLACE.
//
// The price-history invariant is enforced in the database itself: the
// partial unique index price_records_current_idx guarantees at most one
// is_current record per product no matter which merge path ran.

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS suppliers (
		id         uuid PRIMARY KEY,
		name       text NOT NULL,
		code       text NOT NULL UNIQUE,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS pricelist_uploads (
		id           uuid PRIMARY KEY,
		supplier_id  uuid NOT NULL REFERENCES suppliers(id),
		filename     text NOT NULL,
		currency     text NOT NULL DEFAULT '',
		valid_from   date NOT NULL,
		valid_to     date,
		row_count    integer NOT NULL DEFAULT 0,
		status       text NOT NULL DEFAULT 'received',
		errors       jsonb,
		processed_at timestamptz,
		created_at   timestamptz NOT NULL DEFAULT now(),
		updated_at   timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS staged_rows (
		upload_id uuid NOT NULL REFERENCES pricelist_uploads(id) ON DELETE CASCADE,
		row_num   integer NOT NULL,
		sku       text NOT NULL DEFAULT '',
		name      text NOT NULL DEFAULT '',
		brand     text NOT NULL DEFAULT '',
		uom       text NOT NULL DEFAULT '',
		pack_size numeric,
		price     numeric,
		currency  text NOT NULL DEFAULT '',
		category  text NOT NULL DEFAULT '',
		vat_code  text NOT NULL DEFAULT '',
		barcode   text NOT NULL DEFAULT '',
		attrs     jsonb,
		PRIMARY KEY (upload_id, row_num)
	)`,

	`CREATE INDEX IF NOT EXISTS staged_rows_sku_idx ON staged_rows (upload_id, sku)`,

	`CREATE TABLE IF NOT EXISTS products (
		id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		supplier_id   uuid NOT NULL REFERENCES suppliers(id),
		sku           text NOT NULL,
		name          text NOT NULL,
		brand         text NOT NULL DEFAULT '',
		uom           text NOT NULL,
		pack_size     numeric,
		barcode       text NOT NULL DEFAULT '',
		is_active     boolean NOT NULL DEFAULT true,
		first_seen_at timestamptz NOT NULL DEFAULT now(),
		last_seen_at  timestamptz NOT NULL DEFAULT now(),
		UNIQUE (supplier_id, sku)
	)`,

	`CREATE TABLE IF NOT EXISTS price_records (
		id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		product_id uuid NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		price      numeric NOT NULL,
		currency   text NOT NULL,
		valid_from date NOT NULL,
		valid_to   date,
		is_current boolean NOT NULL DEFAULT true,
		created_at timestamptz NOT NULL DEFAULT now(),
		UNIQUE (product_id, valid_from)
	)`,

	// At most one current price per product, regardless of merge path.
	`CREATE UNIQUE INDEX IF NOT EXISTS price_records_current_idx
		ON price_records (product_id) WHERE is_current`,

	mergeFunctionSQL,
}

// mergeFunctionSQL is the server-side merge. It must stay behaviorally
// identical to the txMerge strategy: the row-eligibility predicate is
// spliced in from rowEligibleSQL so the two cannot drift, and the
// last-row-wins resolution and close-then-open price history mirror the
// Go path statement for statement.
const mergeFunctionSQL = `
CREATE OR REPLACE FUNCTION catalog_merge_upload(p_upload_id uuid, p_skip_invalid boolean)
RETURNS TABLE(created integer, updated integer, prices_updated integer, skipped integer)
LANGUAGE plpgsql AS $fn$
DECLARE
	v_upload       pricelist_uploads%ROWTYPE;
	v_row          RECORD;
	v_product_id   uuid;
	v_inserted     boolean;
	v_cur_price    numeric;
	v_cur_currency text;
	v_skipped      jsonb;
BEGIN
	created := 0; updated := 0; prices_updated := 0; skipped := 0;

	SELECT * INTO v_upload FROM pricelist_uploads WHERE id = p_upload_id FOR UPDATE;
	IF NOT FOUND THEN
		RAISE EXCEPTION 'upload % not found', p_upload_id USING ERRCODE = 'P0002';
	END IF;
	IF NOT (v_upload.status IN ('validated', 'warning')
			OR (p_skip_invalid AND v_upload.status NOT IN ('merged', 'validating'))) THEN
		RAISE EXCEPTION 'upload % in status %: not in a mergeable status',
			p_upload_id, v_upload.status USING ERRCODE = 'P0001';
	END IF;

	FOR v_row IN
		SELECT DISTINCT ON (sku)
			row_num, sku, name, brand, uom, pack_size, price, currency, barcode
		FROM staged_rows
		WHERE upload_id = p_upload_id
		  AND ` + rowEligibleSQL + `
		ORDER BY sku, row_num DESC
	LOOP
		INSERT INTO products AS p (supplier_id, sku, name, brand, uom, pack_size, barcode)
		VALUES (v_upload.supplier_id, v_row.sku, v_row.name, v_row.brand,
		        v_row.uom, v_row.pack_size, v_row.barcode)
		ON CONFLICT (supplier_id, sku) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			uom = EXCLUDED.uom,
			pack_size = EXCLUDED.pack_size,
			barcode = EXCLUDED.barcode,
			is_active = true,
			last_seen_at = now()
		RETURNING p.id, (xmax = 0) INTO v_product_id, v_inserted;

		IF v_inserted THEN
			created := created + 1;
		ELSE
			updated := updated + 1;
		END IF;

		SELECT pr.price, pr.currency INTO v_cur_price, v_cur_currency
		FROM price_records pr
		WHERE pr.product_id = v_product_id AND pr.is_current;
		IF FOUND THEN
			IF v_cur_price = v_row.price AND v_cur_currency = v_row.currency THEN
				CONTINUE;
			END IF;
			UPDATE price_records
			SET valid_to = v_upload.valid_from, is_current = false
			WHERE product_id = v_product_id AND is_current;
		END IF;

		INSERT INTO price_records (product_id, price, currency, valid_from, valid_to)
		VALUES (v_product_id, v_row.price, v_row.currency, v_upload.valid_from, v_upload.valid_to)
		ON CONFLICT (product_id, valid_from) DO UPDATE SET
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			valid_to = EXCLUDED.valid_to,
			is_current = true;
		prices_updated := prices_updated + 1;
	END LOOP;

	IF p_skip_invalid THEN
		SELECT count(*),
		       COALESCE(jsonb_agg(jsonb_build_object(
		           'rowNum', row_num, 'field', 'row',
		           'message', 'row failed validity rules')), '[]'::jsonb)
		INTO skipped, v_skipped
		FROM staged_rows
		WHERE upload_id = p_upload_id
		  AND NOT (` + rowEligibleSQL + `);

		UPDATE pricelist_uploads
		SET errors = COALESCE(errors, '{}'::jsonb)
		             || jsonb_build_object('skipped_rows', v_skipped),
		    status = 'merged', processed_at = now(), updated_at = now()
		WHERE id = p_upload_id;
	ELSE
		UPDATE pricelist_uploads
		SET status = 'merged', processed_at = now(), updated_at = now()
		WHERE id = p_upload_id;
	END IF;

	RETURN NEXT;
END;
$fn$`

// EnsureSchema creates the pipeline's tables, indexes and merge function.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
