// Package schema maps loosely structured workbook sheets onto canonical record schemas.
//
// Column labels in billing workbooks vary between offices ("Qty", "Quantity upto
// date", "Nos"), and header rows do not always sit on the first line. Each
// canonical field therefore declares a ranked synonym table, and Resolve searches
// the first few rows for a header that satisfies every required field.
package schema

import "strings"

// FieldType represents the expected data type for a canonical field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
	FieldIdentifier
)

// Field names one logical column of a canonical schema.
type Field string

const (
	Identifier        Field = "identifier"
	Description       Field = "description"
	Unit              Field = "unit"
	QuantitySinceLast Field = "quantitySinceLast"
	Quantity          Field = "quantity"
	Rate              Field = "rate"
	Remark            Field = "remark"

	Key   Field = "key"
	Value Field = "value"
)

// Kind distinguishes tabular line-item sheets from key/value title sheets.
type Kind int

const (
	KindLineItems Kind = iota
	KindKeyValue
)

// FieldSpec defines how one canonical field is located in a sheet.
type FieldSpec struct {
	Field    Field
	Type     FieldType
	Required bool
	// Synonyms are lowercase substrings matched against column labels,
	// highest priority first.
	Synonyms []string
}

// Schema is the canonical field set for one record kind.
// Fields are resolved in slice order, so more specific fields come first.
type Schema struct {
	Name   string
	Kind   Kind
	Fields []FieldSpec
}

// Spec returns the FieldSpec for f.
func (s Schema) Spec(f Field) (FieldSpec, bool) {
	for _, spec := range s.Fields {
		if spec.Field == f {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// RawSheet is one sheet exactly as read from the workbook.
// Cells hold trimmed strings; missing trailing cells are simply absent.
type RawSheet struct {
	Name string
	Rows [][]string
}

// Width returns the widest row length in the sheet.
func (s RawSheet) Width() int {
	w := 0
	for _, row := range s.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Cell returns the cell at row r, column c, or "" when out of range.
func (s RawSheet) Cell(r, c int) string {
	if r < 0 || r >= len(s.Rows) || c < 0 || c >= len(s.Rows[r]) {
		return ""
	}
	return s.Rows[r][c]
}

// Labeled returns row r as a label -> value view against the header at row h.
// Columns without a header label are keyed "Column_N".
func (s RawSheet) Labeled(h, r int) map[string]string {
	out := make(map[string]string)
	if r < 0 || r >= len(s.Rows) {
		return out
	}
	for c, v := range s.Rows[r] {
		label := CleanLabel(s.Cell(h, c))
		if label == "" {
			label = "Column_" + itoa(c+1)
		}
		out[label] = v
	}
	return out
}

// Mapping records which column each canonical field was resolved to.
type Mapping struct {
	Sheet     string
	Schema    string
	HeaderRow int // -1 when the sheet has no header row
	columns   map[Field]int
	labels    map[Field]string
}

// Column returns the resolved column index for f.
func (m *Mapping) Column(f Field) (int, bool) {
	c, ok := m.columns[f]
	return c, ok
}

// Label returns the observed column label mapped to f, or "" if unmapped.
func (m *Mapping) Label(f Field) string {
	return m.labels[f]
}

// Mapped returns the number of fields that resolved to a column.
func (m *Mapping) Mapped() int {
	return len(m.columns)
}

// Record is one data row viewed through a Mapping.
type Record struct {
	Line   int // 1-based row number in the sheet
	values map[Field]string
}

// Get returns the raw value for f, or "" if the field is unmapped.
func (r Record) Get(f Field) string {
	return r.values[f]
}

// NewRecord builds a Record directly from field values. Used by tests and
// callers that do not read from a sheet.
func NewRecord(line int, values map[Field]string) Record {
	return Record{Line: line, values: values}
}

// Records returns every row below the header as a Record, in sheet order.
func (s RawSheet) Records(m *Mapping) []Record {
	start := m.HeaderRow + 1
	if start < 0 {
		start = 0
	}
	var out []Record
	for r := start; r < len(s.Rows); r++ {
		values := make(map[Field]string, len(m.columns))
		for f, c := range m.columns {
			values[f] = s.Cell(r, c)
		}
		out = append(out, Record{Line: r + 1, values: values})
	}
	return out
}

// CleanLabel normalizes a header label: trims it, collapses inner whitespace
// and drops a trailing colon.
func CleanLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSuffix(s, ":")
}

func itoa(i int) string {
	var b [20]byte
	n := len(b)
	if i == 0 {
		return "0"
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	return string(b[n:])
}
