// Package workbook reads billing workbooks into raw sheets.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/billdocs/internal/schema"
)

// ErrFileNotFound indicates the input workbook does not exist.
var ErrFileNotFound = errors.New("workbook not found")

// Error reports a failure reading or writing a workbook.
type Error struct {
	Op    string // "read" or "write"
	File  string
	Sheet string
	Err   error
}

func (e *Error) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("%s workbook %q: %v", e.Op, e.File, e.Err)
	}
	return fmt.Sprintf("%s workbook %q sheet %q: %v", e.Op, e.File, e.Sheet, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Workbook is every sheet of one input file, in workbook order.
type Workbook struct {
	Path   string
	Sheets []schema.RawSheet
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the sheet with the given name.
func (w *Workbook) Sheet(name string) (schema.RawSheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return schema.RawSheet{}, false
}

// Open reads every sheet of the workbook at path.
// Cell values are read raw (no number formats applied) and trimmed.
// Formulas are not evaluated; the cached value stored in the file is used.
func Open(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Op: "read", File: path, Err: ErrFileNotFound}
		}
		return nil, &Error{Op: "read", File: path, Err: err}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &Error{Op: "read", File: path, Err: err}
	}
	defer f.Close()

	return read(path, f)
}

// Read parses a workbook from r. name is used only in error messages.
func Read(name string, r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &Error{Op: "read", File: name, Err: err}
	}
	defer f.Close()

	return read(name, f)
}

func read(name string, f *excelize.File) (*Workbook, error) {
	wb := &Workbook{Path: name}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &Error{Op: "read", File: name, Sheet: sheet, Err: err}
		}
		wb.Sheets = append(wb.Sheets, schema.RawSheet{Name: sheet, Rows: trimRows(rows)})
	}
	return wb, nil
}

// trimRows trims every cell and drops trailing empty cells in each row.
func trimRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		end := 0
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.TrimSpace(c)
			if cells[j] != "" {
				end = j + 1
			}
		}
		out[i] = cells[:end]
	}
	return out
}
