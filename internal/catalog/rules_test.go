package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func goodRow(num int) StagedRow {
	return StagedRow{
		RowNum:   num,
		SKU:      "ABC-123",
		Name:     "Whole Milk 1L",
		UOM:      "EA",
		Price:    dec("12.50"),
		Currency: "EUR",
	}
}

// ============================================================================
// CheckRow
// ============================================================================

func TestCheckRow(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*StagedRow)
		wantFields []string
	}{
		{
			name:       "valid row",
			mutate:     func(r *StagedRow) {},
			wantFields: nil,
		},
		{
			name:       "missing sku",
			mutate:     func(r *StagedRow) { r.SKU = "" },
			wantFields: []string{FieldSupplierSKU},
		},
		{
			name:       "missing name",
			mutate:     func(r *StagedRow) { r.Name = "" },
			wantFields: []string{FieldName},
		},
		{
			name:       "missing uom",
			mutate:     func(r *StagedRow) { r.UOM = "" },
			wantFields: []string{FieldUOM},
		},
		{
			name:       "missing price",
			mutate:     func(r *StagedRow) { r.Price = decimal.NullDecimal{} },
			wantFields: []string{FieldPrice},
		},
		{
			name:       "zero price",
			mutate:     func(r *StagedRow) { r.Price = dec("0") },
			wantFields: []string{FieldPrice},
		},
		{
			name:       "negative price",
			mutate:     func(r *StagedRow) { r.Price = dec("-4.20") },
			wantFields: []string{FieldPrice},
		},
		{
			name:       "bad currency",
			mutate:     func(r *StagedRow) { r.Currency = "EURO" },
			wantFields: []string{FieldCurrency},
		},
		{
			name:       "empty currency",
			mutate:     func(r *StagedRow) { r.Currency = "" },
			wantFields: []string{FieldCurrency},
		},
		{
			name: "everything wrong",
			mutate: func(r *StagedRow) {
				*r = StagedRow{RowNum: r.RowNum}
			},
			wantFields: []string{FieldSupplierSKU, FieldName, FieldUOM, FieldPrice, FieldCurrency},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := goodRow(7)
			tt.mutate(&row)

			errs := CheckRow(row)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("CheckRow() returned %d errors, want %d: %v", len(errs), len(tt.wantFields), errs)
			}
			for i, want := range tt.wantFields {
				if errs[i].Field != want {
					t.Errorf("errs[%d].Field = %q, want %q", i, errs[i].Field, want)
				}
				if errs[i].RowNum != 7 {
					t.Errorf("errs[%d].RowNum = %d, want 7", i, errs[i].RowNum)
				}
			}
		})
	}
}

func TestRowEligible(t *testing.T) {
	if !RowEligible(goodRow(1)) {
		t.Error("RowEligible() = false for a valid row")
	}

	bad := goodRow(1)
	bad.Price = dec("0")
	if RowEligible(bad) {
		t.Error("RowEligible() = true for a zero-price row")
	}
}
