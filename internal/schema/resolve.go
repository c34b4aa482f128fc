package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxHeaderSearchRows is the number of leading rows tried as a header row.
var MaxHeaderSearchRows = 10

// ResolutionError reports that a sheet could not be mapped onto its schema.
type ResolutionError struct {
	Sheet   string
	Missing []Field
	Reason  string
}

func (e *ResolutionError) Error() string {
	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, f := range e.Missing {
			names[i] = string(f)
		}
		return fmt.Sprintf("schema resolution failed for sheet %q: missing required column(s) %s",
			e.Sheet, strings.Join(names, ", "))
	}
	return fmt.Sprintf("schema resolution failed for sheet %q: %s", e.Sheet, e.Reason)
}

// Resolve maps the sheet's columns onto the schema.
//
// Line-item sheets try header offsets 0..MaxHeaderSearchRows-1 and accept the
// first offset at which every required field resolves. Key/value sheets have
// no header: the first two non-empty columns are the key and the value.
func Resolve(sheet RawSheet, s Schema) (*Mapping, error) {
	if s.Kind == KindKeyValue {
		return resolveKeyValue(sheet, s)
	}

	limit := MaxHeaderSearchRows
	if len(sheet.Rows) < limit {
		limit = len(sheet.Rows)
	}

	var best []Field
	for offset := 0; offset < limit; offset++ {
		m, missing := resolveHeader(sheet.Rows[offset], s)
		if len(missing) == 0 {
			m.Sheet = sheet.Name
			m.HeaderRow = offset
			return m, nil
		}
		if best == nil || len(missing) < len(best) {
			best = missing
		}
	}

	if best == nil {
		best = requiredFields(s)
	}
	return nil, &ResolutionError{Sheet: sheet.Name, Missing: best}
}

// resolveHeader matches one candidate header row against the schema.
// Each field takes the first unclaimed column containing its highest-priority
// synonym; a claimed column is never reused by a later field.
func resolveHeader(header []string, s Schema) (*Mapping, []Field) {
	m := &Mapping{
		Schema:  s.Name,
		columns: make(map[Field]int),
		labels:  make(map[Field]string),
	}
	claimed := make(map[int]bool)
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(CleanLabel(h))
	}

	var missing []Field
	for _, spec := range s.Fields {
		col := matchColumn(normalized, claimed, spec.Synonyms)
		if col < 0 {
			if spec.Required {
				missing = append(missing, spec.Field)
			}
			continue
		}
		claimed[col] = true
		m.columns[spec.Field] = col
		m.labels[spec.Field] = CleanLabel(header[col])
	}
	return m, missing
}

func matchColumn(labels []string, claimed map[int]bool, synonyms []string) int {
	for _, syn := range synonyms {
		for col, label := range labels {
			if claimed[col] || label == "" {
				continue
			}
			if matchesLabel(label, syn) {
				return col
			}
		}
	}
	return -1
}

// shortSynonymLen is the longest synonym matched only as a whole word, so
// "id" finds "ID" but not "Width" or "Paid".
const shortSynonymLen = 3

func matchesLabel(label, syn string) bool {
	if len(syn) > shortSynonymLen || strings.IndexFunc(syn, isSeparator) >= 0 {
		return strings.Contains(label, syn)
	}
	for _, w := range strings.FieldsFunc(label, isSeparator) {
		if w == syn {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func resolveKeyValue(sheet RawSheet, s Schema) (*Mapping, error) {
	var cols []int
	for c := 0; c < sheet.Width() && len(cols) < 2; c++ {
		for r := range sheet.Rows {
			if sheet.Cell(r, c) != "" {
				cols = append(cols, c)
				break
			}
		}
	}
	if len(cols) < 2 {
		return nil, &ResolutionError{
			Sheet:  sheet.Name,
			Reason: fmt.Sprintf("key/value sheet needs at least two columns, found %d", len(cols)),
		}
	}
	return &Mapping{
		Sheet:     sheet.Name,
		Schema:    s.Name,
		HeaderRow: -1,
		columns:   map[Field]int{Key: cols[0], Value: cols[1]},
		labels:    map[Field]string{Key: "Column_" + itoa(cols[0]+1), Value: "Column_" + itoa(cols[1]+1)},
	}, nil
}

func requiredFields(s Schema) []Field {
	var out []Field
	for _, spec := range s.Fields {
		if spec.Required {
			out = append(out, spec.Field)
		}
	}
	return out
}

// ResolveSheets assigns workbook sheet names to logical roles.
// Matching is case-insensitive substring matching on the ranked synonyms of
// each role. A missing required sheet yields a ResolutionError naming it.
func ResolveSheets(names []string) (map[SheetRole]string, error) {
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = strings.ToLower(CleanLabel(n))
	}

	claimed := make(map[int]bool)
	roles := make(map[SheetRole]string, len(WorkbookSheets))
	for _, spec := range WorkbookSheets {
		idx := matchColumn(normalized, claimed, spec.Synonyms)
		if idx < 0 {
			if spec.Required {
				return nil, &ResolutionError{
					Sheet:  string(spec.Role),
					Reason: fmt.Sprintf("sheet not found in workbook (available: %s)", strings.Join(names, ", ")),
				}
			}
			continue
		}
		claimed[idx] = true
		roles[spec.Role] = names[idx]
	}
	return roles, nil
}
