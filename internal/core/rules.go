package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Rules is the per-bill configuration of the business rule engine.
type Rules struct {
	PremiumPercent decimal.Decimal
	Deductions     []DeductionRate
}

// DefaultDeductions is the statutory deduction set used when none is configured.
func DefaultDeductions() []DeductionRate {
	return []DeductionRate{
		NewDeductionRate("security_deposit", 10),
		NewDeductionRate("income_tax", 2),
		NewDeductionRate("gst", 2),
		NewDeductionRate("labour_cess", 1),
	}
}

// NewDeductionRate builds a deduction rate with a display label derived from key.
func NewDeductionRate(key string, percent float64) DeductionRate {
	return DeductionRate{Key: key, Label: DeductionLabel(key), Percent: decimal.NewFromFloat(percent)}
}

var acronyms = map[string]bool{"gst": true, "cgst": true, "sgst": true, "igst": true, "tds": true, "it": true}

// DeductionLabel turns a deduction key such as "labour_cess" into "Labour Cess".
func DeductionLabel(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		lw := strings.ToLower(w)
		if acronyms[lw] {
			words[i] = strings.ToUpper(lw)
			continue
		}
		words[i] = strings.ToUpper(lw[:1]) + lw[1:]
	}
	return strings.Join(words, " ")
}

// ForTitle returns the rules with the premium percent taken from a numeric
// title field whose key contains "premium", when one exists.
func (r Rules) ForTitle(title []TitleField) Rules {
	v, ok := lookupTitle(title, "premium")
	if !ok {
		return r
	}
	if p, ok := ToPercent(v); ok {
		r.PremiumPercent = p
	}
	return r
}

// Round2 rounds d to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ApplySuppression returns a copy of items in which every zero-rate item is
// marked suppressed with a zero amount.
func ApplySuppression(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, it := range items {
		if it.Rate.IsZero() {
			it.Suppressed = true
			it.Amount = decimal.Zero
		}
		out[i] = it
	}
	return out
}

// SumAmounts totals the amounts of items with a positive rate.
func SumAmounts(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if it.Rate.IsPositive() {
			sum = sum.Add(it.Amount)
		}
	}
	return sum
}

// ComputeTotals applies the premium and deductions to the billed and extra items.
//
//	base    = sum of amounts over billed and extra items with rate > 0
//	premium = round(base * p / 100, 2)
//	gross   = base + premium
//	each    = round(gross * pct / 100, 2)
//	net     = gross - sum(each)
func ComputeTotals(billed, extra []LineItem, r Rules) Totals {
	base := SumAmounts(billed).Add(SumAmounts(extra))
	premium := Round2(base.Mul(r.PremiumPercent).Div(hundred))
	gross := base.Add(premium)

	deductions := make([]Deduction, len(r.Deductions))
	total := decimal.Zero
	for i, d := range r.Deductions {
		amt := Round2(gross.Mul(d.Percent).Div(hundred))
		deductions[i] = Deduction{Key: d.Key, Label: d.Label, Percent: d.Percent, Amount: amt}
		total = total.Add(amt)
	}

	net := gross.Sub(total)
	return Totals{
		BaseAmount:        base,
		PremiumPercent:    r.PremiumPercent,
		PremiumAmount:     premium,
		GrossTotal:        gross,
		Deductions:        deductions,
		TotalDeductions:   total,
		NetPayable:        net,
		NetPayableInWords: AmountInWords(net),
	}
}

// ComputeDeviations compares each ordered item with its billed counterpart,
// matched by identifier with the first match winning. An ordered item with no
// billed counterpart counts as billed zero.
func ComputeDeviations(ordered, billed []LineItem) []Deviation {
	out := make([]Deviation, 0, len(ordered))
	for _, o := range ordered {
		billedQty := decimal.Zero
		if b, ok := findItem(billed, o.Identifier); ok {
			billedQty = b.Quantity
		}

		excess := decimal.Max(decimal.Zero, billedQty.Sub(o.Quantity))
		saving := decimal.Max(decimal.Zero, o.Quantity.Sub(billedQty))
		out = append(out, Deviation{
			Identifier:   o.Identifier,
			Description:  o.Description,
			Unit:         o.Unit,
			Rate:         o.Rate,
			OrderedQty:   o.Quantity,
			BilledQty:    billedQty,
			ExcessQty:    excess,
			ExcessAmount: Round2(excess.Mul(o.Rate)),
			SavingQty:    saving,
			SavingAmount: Round2(saving.Mul(o.Rate)),
		})
	}
	return out
}

// MergeBilledRates fills the rate, unit and description of each bill item
// from the matching work-order item when the bill row leaves them empty, and
// recomputes the amount.
func MergeBilledRates(workOrder, bill []LineItem) []LineItem {
	out := make([]LineItem, len(bill))
	for i, b := range bill {
		if w, ok := findItem(workOrder, b.Identifier); ok {
			if b.Rate.IsZero() {
				b.Rate = w.Rate
			}
			if b.Unit == "" {
				b.Unit = w.Unit
			}
			if b.Description == "" {
				b.Description = w.Description
			}
		}
		b.Amount = Round2(b.Quantity.Mul(b.Rate))
		out[i] = b
	}
	return out
}

func findItem(items []LineItem, id string) (LineItem, bool) {
	if id == "" {
		return LineItem{}, false
	}
	for _, it := range items {
		if strings.EqualFold(it.Identifier, id) {
			return it, true
		}
	}
	return LineItem{}, false
}
