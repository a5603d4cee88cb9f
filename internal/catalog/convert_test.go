package catalog

import (
	"testing"
	"time"
)

// ============================================================================
// ParseDecimal
// ============================================================================

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{"plain integer", "42", "42", true},
		{"plain decimal", "12.50", "12.5", true},
		{"leading plus", "+3.14", "3.14", true},
		{"negative", "-7.5", "-7.5", true},
		{"dollar sign", "$1,234.56", "1234.56", true},
		{"euro sign", "€99.90", "99.9", true},
		{"pound sign", "£5", "5", true},
		{"thousands separators", "1,000,000", "1000000", true},
		{"accounting negative", "(123.45)", "-123.45", true},
		{"accounting with symbol", "($50.00)", "-50", true},
		{"scientific notation", "1.5e2", "150", true},
		{"surrounding spaces", "  10.00  ", "10", true},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
		{"text", "N/A", "", false},
		{"two decimal points", "1.2.3", "", false},
		{"bare symbol", "$", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDecimal(tt.input)
			if got.Valid != tt.valid {
				t.Fatalf("ParseDecimal(%q).Valid = %v, want %v", tt.input, got.Valid, tt.valid)
			}
			if tt.valid && got.Decimal.String() != tt.want {
				t.Errorf("ParseDecimal(%q) = %s, want %s", tt.input, got.Decimal.String(), tt.want)
			}
		})
	}
}

// ============================================================================
// ParseDate
// ============================================================================

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"iso", "2026-03-15", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"slashes", "2026/03/15", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"dots european", "15.03.2026", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"compact", "20260315", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"month name", "Mar 15, 2026", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "next tuesday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// CleanCell / NormalizeRow
// ============================================================================

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "ABC-123", "ABC-123"},
		{"whitespace", "  ABC-123  ", "ABC-123"},
		{"excel formula quote", `="000123"`, "000123"},
		{"excel formula bare", "=SKU42", "SKU42"},
		{"double quoted", `"Milk 1L"`, "Milk 1L"},
		{"single quoted", "'Milk 1L'", "Milk 1L"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeRow(t *testing.T) {
	row := StagedRow{
		SKU:      `="000123"`,
		Name:     "  Whole Milk 1L ",
		Brand:    `"Dairyco"`,
		UOM:      " ea ",
		Currency: " eur ",
		Category: " Dairy ",
	}
	NormalizeRow(&row)

	if row.SKU != "000123" {
		t.Errorf("SKU = %q, want %q", row.SKU, "000123")
	}
	if row.Name != "Whole Milk 1L" {
		t.Errorf("Name = %q, want %q", row.Name, "Whole Milk 1L")
	}
	if row.Brand != "Dairyco" {
		t.Errorf("Brand = %q, want %q", row.Brand, "Dairyco")
	}
	if row.Currency != "EUR" {
		t.Errorf("Currency = %q, want %q (uppercased)", row.Currency, "EUR")
	}
}

func TestValidCurrency(t *testing.T) {
	valid := []string{"EUR", "usd", "Gbp"}
	invalid := []string{"", "EU", "EURO", "E1R", "€"}

	for _, s := range valid {
		if !ValidCurrency(s) {
			t.Errorf("ValidCurrency(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if ValidCurrency(s) {
			t.Errorf("ValidCurrency(%q) = true, want false", s)
		}
	}
}
