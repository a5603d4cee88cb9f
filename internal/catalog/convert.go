package catalog

// convert.go provides parsing helpers for the messy reality of supplier
// pricelist data:
//   - Currency symbols and thousand separators in prices
//   - Accounting format (parentheses for negative)
//   - Multiple date formats for validity windows
//   - Excel formula prefixes (="value") and stray quotes
//
// Importers are expected to do most of the cleanup, but the staging layer
// still normalizes every cell so the validator and merge operate on
// predictable values.

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// currencyRegex matches a 3-letter ISO-4217 style currency code.
var currencyRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Date layouts accepted for validity windows. Slash dates are read as US
// month-first; suppliers sending day-first slashes must use dots or ISO.
var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02",
	"02.01.2006", "01/02/2006",
	"Jan 2, 2006", "2 Jan 2006",
	"20060102",
}

// ParseDecimal converts a raw cell to a decimal, tolerating currency symbols,
// thousands separators, and accounting-style negatives. Returns an invalid
// NullDecimal for empty or unparseable input.
func ParseDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency symbols and thousands separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// ParseDate converts a raw cell to a date. Returns the zero time and false
// for empty or unparseable input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidCurrency reports whether s is a 3-letter currency code.
func ValidCurrency(s string) bool {
	return currencyRegex.MatchString(s)
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// trims whitespace, strips Excel formula prefixes (="..."), and removes
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// NormalizeRow cleans a staged row in place before insertion: cell artifacts
// are stripped from text fields and the currency is uppercased. The attrs
// bag is left untouched.
func NormalizeRow(r *StagedRow) {
	r.SKU = CleanCell(r.SKU)
	r.Name = CleanCell(r.Name)
	r.Brand = CleanCell(r.Brand)
	r.UOM = CleanCell(r.UOM)
	r.Category = CleanCell(r.Category)
	r.VATCode = CleanCell(r.VATCode)
	r.Barcode = CleanCell(r.Barcode)
	r.Currency = strings.ToUpper(CleanCell(r.Currency))
}
