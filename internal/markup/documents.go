package markup

import (
	"slices"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/billdocs/internal/core"
)

//go:generate templ generate

// row is one table row. Cells at the num indexes are right-aligned.
type row struct {
	cells []string
	num   []int
	grand bool
}

func (r row) numeric(i int) bool {
	return slices.Contains(r.num, i)
}

// amountRow is a two-cell label and amount row.
func amountRow(label, amount string) row {
	return row{cells: []string{label, amount}, num: []int{1}}
}

var deviationColumns = []string{"Item No", "Description", "Unit", "Rate", "Qty as per Work Order", "Qty Executed",
	"Excess Qty", "Excess Amount", "Saving Qty", "Saving Amount"}

func itemColumns(withRemark bool) []string {
	cols := []string{"Item No", "Description", "Unit", "Qty Since Last", "Qty Upto Date", "Rate", "Amount"}
	if withRemark {
		cols = append(cols, "Remark")
	}
	return cols
}

func itemRows(items []core.ItemView, withRemark bool) []row {
	rows := make([]row, len(items))
	for i, it := range items {
		cells := []string{it.Identifier, it.Description, it.Unit, it.QuantitySinceLast, it.Quantity, it.Rate, it.Amount}
		if withRemark {
			cells = append(cells, it.Remark)
		}
		rows[i] = row{cells: cells, num: []int{3, 4, 5, 6}}
	}
	return rows
}

func deviationRows(devs []core.DeviationView) []row {
	rows := make([]row, len(devs))
	for i, d := range devs {
		rows[i] = row{
			cells: []string{d.Identifier, d.Description, d.Unit, d.Rate, d.OrderedQty, d.BilledQty,
				d.ExcessQty, d.ExcessAmount, d.SavingQty, d.SavingAmount},
			num: []int{3, 4, 5, 6, 7, 8, 9},
		}
	}
	return rows
}

// totalsRows lays out the abstract: work value, premium, gross, each
// deduction and the net payable.
func totalsRows(t core.TotalsView) []row {
	rows := []row{
		amountRow("Total value of work done", t.BaseAmount),
		amountRow("Add tender premium @ "+t.PremiumPercent, t.PremiumAmount),
		{cells: []string{"Gross amount", t.GrossTotal}, num: []int{1}, grand: true},
	}
	for _, d := range t.Deductions {
		rows = append(rows, amountRow("Less "+d.Label+" @ "+d.Percent, d.Amount))
	}
	return append(rows,
		amountRow("Total deductions", t.TotalDeductions),
		row{cells: []string{"Net amount payable", t.NetPayable}, num: []int{1}, grand: true},
	)
}

func scrutinyRows(m *core.DocumentModel) []row {
	t := m.View.Totals
	rows := []row{amountRow("Value of work as per bill", m.View.BillTotal)}
	if m.HasExtraItems {
		rows = append(rows, amountRow("Value of extra items", m.View.ExtraTotal))
	}
	rows = append(rows,
		amountRow("Tender premium @ "+t.PremiumPercent, t.PremiumAmount),
		amountRow("Gross amount", t.GrossTotal),
		amountRow("Excess over work order", m.View.ExcessTotal),
		amountRow("Saving against work order", m.View.SavingTotal),
	)
	for _, d := range t.Deductions {
		rows = append(rows, amountRow(d.Label+" @ "+d.Percent, d.Amount))
	}
	return append(rows, amountRow("Net amount payable", t.NetPayable))
}

func summary(m *core.DocumentModel) (templ.Component, error) {
	return summaryDoc(m), nil
}

func deviation(m *core.DocumentModel) (templ.Component, error) {
	return deviationDoc(m), nil
}

func scrutiny(m *core.DocumentModel) (templ.Component, error) {
	return scrutinyDoc(m), nil
}

func extraItems(m *core.DocumentModel) (templ.Component, error) {
	return extraItemsDoc(m), nil
}

func certificateII(m *core.DocumentModel) (templ.Component, error) {
	contractor, err := requireTitle(m, core.DocCertificateII, "contractor")
	if err != nil {
		return nil, err
	}
	work, _ := m.TitleValue("work")
	return certificateIIDoc(m, work, contractor), nil
}

func certificateIII(m *core.DocumentModel) (templ.Component, error) {
	contractor, err := requireTitle(m, core.DocCertificateIII, "contractor")
	if err != nil {
		return nil, err
	}
	return certificateIIIDoc(m, contractor), nil
}
