package core

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Assemble builds the DocumentModel for one workbook. It is pure: inputs are
// copied, so later changes to the caller's slices never reach the model, and
// identical inputs always produce identical models.
func Assemble(title []TitleField, workOrder, billed, extra []LineItem, deviations []Deviation, totals Totals) *DocumentModel {
	totals.Deductions = slices.Clone(totals.Deductions)

	m := &DocumentModel{
		Title:          cloneOrEmpty(title),
		WorkOrderItems: cloneOrEmpty(workOrder),
		BillItems:      cloneOrEmpty(billed),
		ExtraItems:     cloneOrEmpty(extra),
		Deviations:     cloneOrEmpty(deviations),
		Totals:         totals,
		HasExtraItems:  len(extra) > 0,
	}
	if m.Totals.Deductions == nil {
		m.Totals.Deductions = []Deduction{}
	}

	excess, saving := decimal.Zero, decimal.Zero
	for _, d := range m.Deviations {
		excess = excess.Add(d.ExcessAmount)
		saving = saving.Add(d.SavingAmount)
	}

	m.View = View{
		WorkOrder:   itemViews(m.WorkOrderItems),
		Bill:        itemViews(m.BillItems),
		Extra:       itemViews(m.ExtraItems),
		Deviations:  deviationViews(m.Deviations),
		BillTotal:   FormatAmount(SumAmounts(m.BillItems)),
		ExtraTotal:  FormatAmount(SumAmounts(m.ExtraItems)),
		ExcessTotal: FormatAmount(excess),
		SavingTotal: FormatAmount(saving),
		Totals:      totalsView(m.Totals),
	}
	return m
}

func cloneOrEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

// ItemViewOf formats one line item. Suppressed items keep only their
// identifier and description.
func ItemViewOf(it LineItem) ItemView {
	v := ItemView{Identifier: it.Identifier, Description: it.Description}
	if it.Suppressed || it.Rate.IsZero() {
		return v
	}
	v.Unit = it.Unit
	v.QuantitySinceLast = FormatQuantity(it.QuantitySinceLast)
	v.Quantity = FormatQuantity(it.Quantity)
	v.Rate = FormatAmount(it.Rate)
	v.Amount = FormatAmount(it.Amount)
	v.Remark = it.Remark
	return v
}

func itemViews(items []LineItem) []ItemView {
	out := make([]ItemView, len(items))
	for i, it := range items {
		out[i] = ItemViewOf(it)
	}
	return out
}

func deviationViews(devs []Deviation) []DeviationView {
	out := make([]DeviationView, len(devs))
	for i, d := range devs {
		v := DeviationView{Identifier: d.Identifier, Description: d.Description}
		if d.Rate.IsPositive() {
			v.Unit = d.Unit
			v.Rate = FormatAmount(d.Rate)
			v.OrderedQty = FormatQuantity(d.OrderedQty)
			v.BilledQty = FormatQuantity(d.BilledQty)
			v.ExcessQty = FormatQuantity(d.ExcessQty)
			v.ExcessAmount = FormatAmount(d.ExcessAmount)
			v.SavingQty = FormatQuantity(d.SavingQty)
			v.SavingAmount = FormatAmount(d.SavingAmount)
		}
		out[i] = v
	}
	return out
}

func totalsView(t Totals) TotalsView {
	ds := make([]DeductionView, len(t.Deductions))
	for i, d := range t.Deductions {
		ds[i] = DeductionView{Label: d.Label, Percent: FormatPercent(d.Percent), Amount: FormatAmount(d.Amount)}
	}
	return TotalsView{
		BaseAmount:        FormatAmount(t.BaseAmount),
		PremiumPercent:    FormatPercent(t.PremiumPercent),
		PremiumAmount:     FormatAmount(t.PremiumAmount),
		GrossTotal:        FormatAmount(t.GrossTotal),
		Deductions:        ds,
		TotalDeductions:   FormatAmount(t.TotalDeductions),
		NetPayable:        FormatAmount(t.NetPayable),
		NetPayableInWords: t.NetPayableInWords,
	}
}
