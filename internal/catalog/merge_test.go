package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

// skuRow builds an eligible staged row for a given SKU and row number.
func skuRow(num int, sku string) StagedRow {
	r := goodRow(num)
	r.SKU = sku
	return r
}

// ============================================================================
// pickWinners
// ============================================================================

func TestPickWinners_LastRowWins(t *testing.T) {
	rows := []StagedRow{
		skuRow(1, "B-2"),
		skuRow(2, "A-1"),
		skuRow(3, "A-1"), // later occurrence wins
		skuRow(4, "C-3"),
	}
	rows[2].Price = dec("99.99")

	winners := pickWinners(rows)
	if len(winners) != 3 {
		t.Fatalf("pickWinners() returned %d rows, want 3: %v", len(winners), winners)
	}

	// Winners come back in SKU order.
	wantSKUs := []string{"A-1", "B-2", "C-3"}
	for i, want := range wantSKUs {
		if winners[i].SKU != want {
			t.Errorf("winners[%d].SKU = %q, want %q", i, winners[i].SKU, want)
		}
	}

	if winners[0].RowNum != 3 {
		t.Errorf("winner for A-1 is row %d, want 3", winners[0].RowNum)
	}
	if !winners[0].Price.Decimal.Equal(decimal.RequireFromString("99.99")) {
		t.Errorf("winner for A-1 carries price %s, want 99.99", winners[0].Price.Decimal)
	}
}

func TestPickWinners_IneligibleLaterRowDoesNotWin(t *testing.T) {
	rows := []StagedRow{
		skuRow(1, "A-1"),
		skuRow(2, "A-1"),
	}
	rows[1].Price = dec("0") // fails the rules; row 1 stays the winner

	winners := pickWinners(rows)
	if len(winners) != 1 {
		t.Fatalf("pickWinners() returned %d rows, want 1: %v", len(winners), winners)
	}
	if winners[0].RowNum != 1 {
		t.Errorf("winner is row %d, want 1", winners[0].RowNum)
	}
}

func TestPickWinners_Empty(t *testing.T) {
	if got := pickWinners(nil); got != nil {
		t.Errorf("pickWinners(nil) = %v, want nil", got)
	}

	ineligible := goodRow(1)
	ineligible.SKU = ""
	if got := pickWinners([]StagedRow{ineligible}); got != nil {
		t.Errorf("pickWinners() with only ineligible rows = %v, want nil", got)
	}
}

// ============================================================================
// priceUnchanged
// ============================================================================

func TestPriceUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		currency string
		rowPrice string
		rowCurr  string
		want     bool
	}{
		{"same price and currency", "12.50", "EUR", "12.50", "EUR", true},
		{"same value different scale", "12.5", "EUR", "12.50", "EUR", true},
		{"different price", "12.50", "EUR", "13.00", "EUR", false},
		{"different currency", "12.50", "EUR", "12.50", "USD", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := goodRow(1)
			r.Price = dec(tt.rowPrice)
			r.Currency = tt.rowCurr

			got := priceUnchanged(decimal.RequireFromString(tt.current), tt.currency, r)
			if got != tt.want {
				t.Errorf("priceUnchanged(%s %s vs %s %s) = %v, want %v",
					tt.current, tt.currency, tt.rowPrice, tt.rowCurr, got, tt.want)
			}
		})
	}
}
