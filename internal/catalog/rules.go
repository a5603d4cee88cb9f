package catalog

// rules.go holds the row-level validity rules. The validator and the
// transaction merge strategy apply them through CheckRow/RowEligible;
// rowEligibleSQL is the SQL rendering of the identical predicate, spliced
// into the server-side merge function, so row eligibility cannot drift
// between the Go checks and the database path.

import "fmt"

// Field names used in row-level errors. These are part of the report
// contract consumed by operator views.
const (
	FieldSupplierSKU = "supplier_sku"
	FieldName        = "name"
	FieldUOM         = "uom"
	FieldPrice       = "price"
	FieldCurrency    = "currency"
)

// rowEligibleSQL is the SQL predicate selecting merge-eligible staged rows.
// It must accept exactly the rows for which CheckRow returns no errors.
const rowEligibleSQL = `sku <> '' AND name <> '' AND uom <> ''` +
	` AND price IS NOT NULL AND price > 0 AND currency ~ '^[A-Za-z]{3}$'`

// CheckRow applies the structural rules to one staged row and returns every
// violation. An empty result means the row is merge-eligible.
func CheckRow(r StagedRow) []RowError {
	var errs []RowError

	if r.SKU == "" {
		errs = append(errs, RowError{RowNum: r.RowNum, Field: FieldSupplierSKU, Message: "missing supplier SKU"})
	}
	if r.Name == "" {
		errs = append(errs, RowError{RowNum: r.RowNum, Field: FieldName, Message: "missing product name"})
	}
	if r.UOM == "" {
		errs = append(errs, RowError{RowNum: r.RowNum, Field: FieldUOM, Message: "missing unit of measure"})
	}
	switch {
	case !r.Price.Valid:
		errs = append(errs, RowError{RowNum: r.RowNum, Field: FieldPrice, Message: "missing price"})
	case r.Price.Decimal.Sign() <= 0:
		errs = append(errs, RowError{RowNum: r.RowNum, Field: FieldPrice,
			Message: fmt.Sprintf("price must be positive, got %s", r.Price.Decimal.String())})
	}
	if !ValidCurrency(r.Currency) {
		errs = append(errs, RowError{RowNum: r.RowNum, Field: FieldCurrency,
			Message: fmt.Sprintf("currency must be a 3-letter code, got %q", r.Currency)})
	}

	return errs
}

// RowEligible reports whether a row passes all structural rules.
func RowEligible(r StagedRow) bool {
	return len(CheckRow(r)) == 0
}
