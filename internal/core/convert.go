package core

// convert.go provides tolerant coercion of workbook cells into model values.
//
// These functions handle the messy reality of hand-maintained billing sheets:
//   - Currency markers (₹, Rs., INR, $) and Indian or Western thousand separators
//   - Accounting format for negatives: (1,200.00)
//   - Excel formula prefixes (="value") and stray quotes
//   - Placeholder text left by exports: nan, none, null, n/a
//   - Identifiers that Excel stored as floats ("1.0")
//
// Invalid or empty numeric input coerces to zero rather than failing the row.

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// floatIdentifierRegex matches whole numbers rendered with a zero fraction.
var floatIdentifierRegex = regexp.MustCompile(`^(\d+)\.0+$`)

// currencyMarkers are stripped from numeric cells. Longer markers come first
// so "Rs." is removed before "Rs".
var currencyMarkers = []string{"₹", "INR", "Rs.", "Rs", "rs.", "rs", "$", "€", "£"}

// placeholders are cell values treated as empty.
var placeholders = map[string]bool{
	"nan":  true,
	"none": true,
	"null": true,
	"n/a":  true,
	"na":   true,
	"-":    true,
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
// - Maps export placeholders such as "nan" to ""
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.TrimSpace(strings.Trim(s, `"'`))

	if placeholders[strings.ToLower(s)] {
		return ""
	}
	return s
}

// ToText converts a cell to display text, collapsing runs of whitespace.
func ToText(s string) string {
	return strings.Join(strings.Fields(CleanCell(s)), " ")
}

// ToDecimal converts a cell to a decimal.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative). Returns false for empty or non-numeric input.
func ToDecimal(s string) (decimal.Decimal, bool) {
	s = CleanCell(s)
	if s == "" {
		return decimal.Zero, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, m := range currencyMarkers {
		s = strings.ReplaceAll(s, m, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "/-", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ToAmount converts a cell to a non-negative decimal. Empty, invalid and
// negative input all yield zero.
func ToAmount(s string) decimal.Decimal {
	d, ok := ToDecimal(s)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ToPercent converts a cell such as "10", "10%" or "10 %" to a decimal.
func ToPercent(s string) (decimal.Decimal, bool) {
	return ToDecimal(strings.TrimSuffix(strings.TrimSpace(CleanCell(s)), "%"))
}

// ToIdentifier converts a cell to an item identifier. Whole numbers that Excel
// rendered as floats lose their zero fraction: "1.0" becomes "1".
func ToIdentifier(s string) string {
	s = ToText(s)
	if m := floatIdentifierRegex.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
