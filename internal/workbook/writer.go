package workbook

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/billdocs/internal/schema"
)

// Write saves sheets as a new workbook at path. Cells that parse as numbers
// are stored as numeric cells so that readers see them the way a spreadsheet
// application would have written them.
func Write(path string, sheets []schema.RawSheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("write workbook %q: no sheets", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return &Error{Op: "write", File: path, Sheet: sheet.Name, Err: err}
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return &Error{Op: "write", File: path, Sheet: sheet.Name, Err: err}
		}

		for r, row := range sheet.Rows {
			for c, v := range row {
				if v == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return &Error{Op: "write", File: path, Sheet: sheet.Name, Err: err}
				}
				if err := f.SetCellValue(sheet.Name, cell, cellValue(v)); err != nil {
					return &Error{Op: "write", File: path, Sheet: sheet.Name, Err: err}
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return &Error{Op: "write", File: path, Err: err}
	}
	return nil
}

func cellValue(v string) any {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

// Sample returns a small, complete billing workbook.
func Sample() []schema.RawSheet {
	return []schema.RawSheet{
		{Name: "Title", Rows: [][]string{
			{"Name of Work", "Repair of approach road"},
			{"Contractor", "M/s Shree Builders"},
			{"Agreement No", "48/2024-25"},
			{"Bill No", "First and Final"},
			{"Premium", "10"},
		}},
		{Name: "Work Order", Rows: [][]string{
			{"Item No", "Description", "Unit", "Quantity", "Rate"},
			{"1", "Earthwork in excavation", "cum", "120", "245.50"},
			{"2", "Cement concrete 1:2:4", "cum", "35", "5200"},
			{"3", "Dismantling old surface", "sqm", "80", "0"},
		}},
		{Name: "Bill Quantity", Rows: [][]string{
			{"Item No", "Description", "Unit", "Quantity", "Rate"},
			{"1", "Earthwork in excavation", "cum", "132", ""},
			{"2", "Cement concrete 1:2:4", "cum", "30", ""},
			{"3", "Dismantling old surface", "sqm", "80", ""},
		}},
		{Name: "Extra Items", Rows: [][]string{
			{"Item No", "Description", "Unit", "Quantity", "Rate", "Remark"},
			{"E1", "Shifting of electric pole", "each", "2", "1500", "site order"},
		}},
	}
}
