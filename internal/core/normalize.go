package core

// normalize.go turns resolved sheet records into model values.
//
// Normalization never rejects a row for bad data. A non-numeric quantity or a
// negative rate is coerced to zero and reported as an Issue, so the caller can
// surface it as a warning while the bill is still produced.

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/billdocs/internal/schema"
)

// Issue describes one value that normalization had to coerce.
type Issue struct {
	Sheet   string
	Line    int // 1-based sheet row
	Field   schema.Field
	Value   string // the original cell text
	Message string
}

func (e Issue) Error() string {
	return fmt.Sprintf("%s row %d: %s %q %s", e.Sheet, e.Line, e.Field, e.Value, e.Message)
}

// NormalizeItems converts resolved line-item records into LineItems.
//
// Text fields are cleaned, numeric fields are coerced with negatives clamped
// to zero, and rows whose required fields are all empty are dropped. Output
// order follows input order.
func NormalizeItems(sheet string, records []schema.Record) ([]LineItem, []Issue) {
	items := make([]LineItem, 0, len(records))
	var issues []Issue

	numeric := func(rec schema.Record, f schema.Field) decimal.Decimal {
		raw := rec.Get(f)
		d, ok := ToDecimal(raw)
		switch {
		case !ok && CleanCell(raw) != "":
			issues = append(issues, Issue{Sheet: sheet, Line: rec.Line, Field: f, Value: raw, Message: "is not a number, using 0"})
		case ok && d.IsNegative():
			issues = append(issues, Issue{Sheet: sheet, Line: rec.Line, Field: f, Value: raw, Message: "is negative, using 0"})
		}
		return ToAmount(raw)
	}

	for _, rec := range records {
		item := LineItem{
			Identifier:  ToIdentifier(rec.Get(schema.Identifier)),
			Description: ToText(rec.Get(schema.Description)),
			Unit:        ToText(rec.Get(schema.Unit)),
			Remark:      ToText(rec.Get(schema.Remark)),
		}
		if item.Identifier == "" && item.Description == "" {
			continue
		}
		item.QuantitySinceLast = numeric(rec, schema.QuantitySinceLast)
		item.Quantity = numeric(rec, schema.Quantity)
		item.Rate = numeric(rec, schema.Rate)
		item.Amount = Round2(item.Quantity.Mul(item.Rate))
		items = append(items, item)
	}
	return items, issues
}

// NormalizeTitle converts key/value records into ordered title fields.
// Rows with an empty key are dropped; a trailing colon on the key is removed.
func NormalizeTitle(records []schema.Record) []TitleField {
	fields := make([]TitleField, 0, len(records))
	for _, rec := range records {
		key := schema.CleanLabel(ToText(rec.Get(schema.Key)))
		if key == "" {
			continue
		}
		fields = append(fields, TitleField{Key: key, Value: ToText(rec.Get(schema.Value))})
	}
	return fields
}
