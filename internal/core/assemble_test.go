package core

import (
	"bytes"
	"encoding/json"
	"testing"
)

func assembleScenario() *DocumentModel {
	title := []TitleField{{Key: "Name of Work", Value: "Road repair"}, {Key: "Contractor", Value: "M/s Builders"}}
	wo := ApplySuppression(scenarioItems())
	billed := ApplySuppression(MergeBilledRates(wo, scenarioItems()))
	devs := ComputeDeviations(wo, billed)
	totals := ComputeTotals(billed, nil, scenarioRules())
	return Assemble(title, wo, billed, nil, devs, totals)
}

func TestAssemble_SuppressedItemView(t *testing.T) {
	m := assembleScenario()

	v := m.View.Bill[1]
	if v.Identifier != "2" || v.Description != "Dismantling" {
		t.Errorf("suppressed view lost identity: %+v", v)
	}
	empty := map[string]string{
		"unit": v.Unit, "quantitySinceLast": v.QuantitySinceLast, "quantity": v.Quantity,
		"rate": v.Rate, "amount": v.Amount, "remark": v.Remark,
	}
	for name, val := range empty {
		if val != "" {
			t.Errorf("suppressed view field %s = %q, want empty", name, val)
		}
	}

	priced := m.View.Bill[0]
	if priced.Amount != "60,000.00" || priced.Rate != "1,200.00" || priced.Quantity != "50" {
		t.Errorf("priced view = %+v", priced)
	}

	if m.View.Totals.BaseAmount != "2,94,600.00" || m.View.Totals.NetPayable != "2,75,451.00" {
		t.Errorf("totals view = %+v", m.View.Totals)
	}
	if m.View.Totals.PremiumPercent != "10%" {
		t.Errorf("premium percent view = %q", m.View.Totals.PremiumPercent)
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	a, err := json.Marshal(assembleScenario())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	b, err := json.Marshal(assembleScenario())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("assembling identical inputs twice produced different JSON")
	}
}

func TestAssemble_CopiesInputs(t *testing.T) {
	title := []TitleField{{Key: "Contractor", Value: "A"}}
	items := scenarioItems()
	totals := ComputeTotals(items, nil, scenarioRules())

	m := Assemble(title, items, items, nil, nil, totals)

	title[0].Value = "changed"
	items[0].Description = "changed"
	totals.Deductions[0].Amount = dec("1")

	if m.Title[0].Value != "A" {
		t.Error("title mutation leaked into model")
	}
	if m.WorkOrderItems[0].Description != "Earthwork" || m.BillItems[0].Description != "Earthwork" {
		t.Error("item mutation leaked into model")
	}
	if m.Totals.Deductions[0].Amount.Equal(dec("1")) {
		t.Error("deduction mutation leaked into model")
	}
}

func TestAssemble_ExtraItemsFlag(t *testing.T) {
	m := Assemble(nil, nil, nil, nil, nil, Totals{})
	if m.HasExtraItems {
		t.Error("HasExtraItems should be false without extra items")
	}
	if m.Title == nil || m.ExtraItems == nil || m.Totals.Deductions == nil {
		t.Error("nil inputs should become empty slices")
	}

	m = Assemble(nil, nil, nil, []LineItem{item("E1", "Extra", "1", "10")}, nil, Totals{})
	if !m.HasExtraItems {
		t.Error("HasExtraItems should be true with extra items")
	}
	if m.View.ExtraTotal != "10.00" {
		t.Errorf("ExtraTotal = %q, want 10.00", m.View.ExtraTotal)
	}
}

func TestDocumentModel_TitleValue(t *testing.T) {
	m := &DocumentModel{Title: []TitleField{{Key: "Name of Contractor", Value: "M/s Builders"}}}
	if v, ok := m.TitleValue("contractor"); !ok || v != "M/s Builders" {
		t.Errorf("TitleValue(contractor) = %q, %v", v, ok)
	}
	if _, ok := m.TitleValue("agreement"); ok {
		t.Error("TitleValue(agreement) should not be found")
	}
}
