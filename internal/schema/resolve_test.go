package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestResolve_LineItemSynonyms(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   map[Field]string
	}{
		{
			name:   "canonical labels",
			header: []string{"Item No.", "Description", "Unit", "Quantity", "Rate", "Remark"},
			want: map[Field]string{
				Identifier: "Item No.", Description: "Description", Unit: "Unit",
				Quantity: "Quantity", Rate: "Rate", Remark: "Remark",
			},
		},
		{
			name:   "abbreviations and mixed case",
			header: []string{"S.No", "PARTICULARS", "UOM", "Qty", "Unit Rate"},
			want: map[Field]string{
				Identifier: "S.No", Description: "PARTICULARS", Unit: "UOM",
				Quantity: "Qty", Rate: "Unit Rate",
			},
		},
		{
			name:   "item description is not an identifier",
			header: []string{"Item Description", "Item Code", "Nos", "Price"},
			want: map[Field]string{
				Description: "Item Description", Identifier: "Item Code",
				Quantity: "Nos", Rate: "Price",
			},
		},
		{
			name:   "id only as a whole word",
			header: []string{"Width", "Description", "Amount Paid", "ID"},
			want: map[Field]string{
				Identifier: "ID", Description: "Description",
			},
		},
		{
			name:   "since last and to date quantities",
			header: []string{"Item", "Description", "Quantity Since Last", "Quantity Upto Date", "Rate"},
			want: map[Field]string{
				Identifier: "Item", Description: "Description",
				QuantitySinceLast: "Quantity Since Last", Quantity: "Quantity Upto Date", Rate: "Rate",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := RawSheet{Name: "Work Order", Rows: [][]string{tt.header}}
			m, err := Resolve(sheet, LineItemSchema)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			for f, label := range tt.want {
				if got := m.Label(f); got != label {
					t.Errorf("Label(%s) = %q, want %q", f, got, label)
				}
			}
			if m.Mapped() != len(tt.want) {
				t.Errorf("Mapped() = %d, want %d", m.Mapped(), len(tt.want))
			}
		})
	}
}

func TestResolve_HeaderOffset(t *testing.T) {
	sheet := RawSheet{
		Name: "Work Order",
		Rows: [][]string{
			{"Name of Work: Road repair"},
			{},
			{"Item", "Description", "Qty", "Rate"},
			{"1", "Earthwork", "50", "1200"},
		},
	}

	m, err := Resolve(sheet, LineItemSchema)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if m.HeaderRow != 2 {
		t.Errorf("HeaderRow = %d, want 2", m.HeaderRow)
	}

	recs := sheet.Records(m)
	if len(recs) != 1 {
		t.Fatalf("Records() len = %d, want 1", len(recs))
	}
	if recs[0].Line != 4 {
		t.Errorf("Line = %d, want 4", recs[0].Line)
	}
	if got := recs[0].Get(Description); got != "Earthwork" {
		t.Errorf("Get(Description) = %q, want Earthwork", got)
	}
}

func TestResolve_MissingRequired(t *testing.T) {
	sheet := RawSheet{Name: "Extra Items", Rows: [][]string{{"Qty", "Rate"}, {"1", "2"}}}

	_, err := Resolve(sheet, LineItemSchema)
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("Resolve() error = %v, want *ResolutionError", err)
	}
	if rerr.Sheet != "Extra Items" {
		t.Errorf("Sheet = %q, want Extra Items", rerr.Sheet)
	}
	if !strings.Contains(err.Error(), `"Extra Items"`) {
		t.Errorf("error should name the sheet: %v", err)
	}
	if len(rerr.Missing) != 2 {
		t.Errorf("Missing = %v, want identifier and description", rerr.Missing)
	}
}

func TestResolve_EmptySheet(t *testing.T) {
	_, err := Resolve(RawSheet{Name: "Work Order"}, LineItemSchema)
	if err == nil {
		t.Fatal("Resolve() expected error for empty sheet")
	}
}

func TestResolve_KeyValue(t *testing.T) {
	sheet := RawSheet{
		Name: "Title",
		Rows: [][]string{
			{"", "Name of Work", "Road repair"},
			{"", "Contractor", "M/s Builders"},
		},
	}

	m, err := Resolve(sheet, TitleSchema)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if c, _ := m.Column(Key); c != 1 {
		t.Errorf("Column(Key) = %d, want 1", c)
	}
	if c, _ := m.Column(Value); c != 2 {
		t.Errorf("Column(Value) = %d, want 2", c)
	}
	if got := len(sheet.Records(m)); got != 2 {
		t.Errorf("Records() len = %d, want 2", got)
	}
}

func TestResolve_KeyValueTooNarrow(t *testing.T) {
	sheet := RawSheet{Name: "Title", Rows: [][]string{{"only one column"}}}
	_, err := Resolve(sheet, TitleSchema)
	if err == nil || !strings.Contains(err.Error(), "two columns") {
		t.Fatalf("Resolve() error = %v, want two-column error", err)
	}
}

func TestResolveSheets(t *testing.T) {
	roles, err := ResolveSheets([]string{"Title", "Work Order", "Bill Quantity", "Extra Items"})
	if err != nil {
		t.Fatalf("ResolveSheets() error = %v", err)
	}
	want := map[SheetRole]string{
		SheetTitle:        "Title",
		SheetWorkOrder:    "Work Order",
		SheetBillQuantity: "Bill Quantity",
		SheetExtraItems:   "Extra Items",
	}
	for role, name := range want {
		if roles[role] != name {
			t.Errorf("roles[%s] = %q, want %q", role, roles[role], name)
		}
	}
}

func TestResolveSheets_OptionalAbsent(t *testing.T) {
	roles, err := ResolveSheets([]string{"TITLE", "work order"})
	if err != nil {
		t.Fatalf("ResolveSheets() error = %v", err)
	}
	if _, ok := roles[SheetBillQuantity]; ok {
		t.Error("bill quantity should be absent")
	}
	if roles[SheetWorkOrder] != "work order" {
		t.Errorf("work order = %q", roles[SheetWorkOrder])
	}
}

func TestResolveSheets_MissingRequired(t *testing.T) {
	_, err := ResolveSheets([]string{"Title", "Bill Quantity"})
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("ResolveSheets() error = %v, want *ResolutionError", err)
	}
	if rerr.Sheet != string(SheetWorkOrder) {
		t.Errorf("Sheet = %q, want %q", rerr.Sheet, SheetWorkOrder)
	}
	if !strings.Contains(err.Error(), "Work Order") {
		t.Errorf("error should name the missing sheet: %v", err)
	}
}

func TestRawSheet_Labeled(t *testing.T) {
	sheet := RawSheet{Rows: [][]string{{"Item", ""}, {"1", "x"}}}
	got := sheet.Labeled(0, 1)
	if got["Item"] != "1" || got["Column_2"] != "x" {
		t.Errorf("Labeled() = %v", got)
	}
}
