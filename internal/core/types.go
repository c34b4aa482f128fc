package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one normalized row of a work-order, bill-quantity or extra-items sheet.
// Quantities and rates are never negative. Amount is Quantity x Rate rounded to
// two decimals; it is zero whenever the item is suppressed.
type LineItem struct {
	Identifier        string          `json:"identifier"`
	Description       string          `json:"description"`
	Unit              string          `json:"unit"`
	QuantitySinceLast decimal.Decimal `json:"quantitySinceLast"`
	Quantity          decimal.Decimal `json:"quantity"`
	Rate              decimal.Decimal `json:"rate"`
	Amount            decimal.Decimal `json:"amount"`
	Remark            string          `json:"remark"`
	Suppressed        bool            `json:"suppressed"`
}

// TitleField is one key/value pair of the title sheet, in sheet order.
type TitleField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DeductionRate is one configured statutory deduction.
type DeductionRate struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Percent decimal.Decimal `json:"percent"`
}

// Deduction is a deduction rate applied to a gross total.
type Deduction struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
}

// Totals holds the computed money figures for one bill.
type Totals struct {
	BaseAmount        decimal.Decimal `json:"baseAmount"`
	PremiumPercent    decimal.Decimal `json:"premiumPercent"`
	PremiumAmount     decimal.Decimal `json:"premiumAmount"`
	GrossTotal        decimal.Decimal `json:"grossTotal"`
	Deductions        []Deduction     `json:"deductions"`
	TotalDeductions   decimal.Decimal `json:"totalDeductions"`
	NetPayable        decimal.Decimal `json:"netPayable"`
	NetPayableInWords string          `json:"netPayableInWords"`
}

// Deviation compares the ordered and billed quantity of one work-order item.
type Deviation struct {
	Identifier   string          `json:"identifier"`
	Description  string          `json:"description"`
	Unit         string          `json:"unit"`
	Rate         decimal.Decimal `json:"rate"`
	OrderedQty   decimal.Decimal `json:"orderedQty"`
	BilledQty    decimal.Decimal `json:"billedQty"`
	ExcessQty    decimal.Decimal `json:"excessQty"`
	ExcessAmount decimal.Decimal `json:"excessAmount"`
	SavingQty    decimal.Decimal `json:"savingQty"`
	SavingAmount decimal.Decimal `json:"savingAmount"`
}

// ItemView is a LineItem pre-formatted for display.
// For suppressed items every field except Identifier and Description is empty.
type ItemView struct {
	Identifier        string `json:"identifier"`
	Description       string `json:"description"`
	Unit              string `json:"unit"`
	QuantitySinceLast string `json:"quantitySinceLast"`
	Quantity          string `json:"quantity"`
	Rate              string `json:"rate"`
	Amount            string `json:"amount"`
	Remark            string `json:"remark"`
}

// DeviationView is a Deviation pre-formatted for display.
type DeviationView struct {
	Identifier   string `json:"identifier"`
	Description  string `json:"description"`
	Unit         string `json:"unit"`
	Rate         string `json:"rate"`
	OrderedQty   string `json:"orderedQty"`
	BilledQty    string `json:"billedQty"`
	ExcessQty    string `json:"excessQty"`
	ExcessAmount string `json:"excessAmount"`
	SavingQty    string `json:"savingQty"`
	SavingAmount string `json:"savingAmount"`
}

// DeductionView is a Deduction pre-formatted for display.
type DeductionView struct {
	Label   string `json:"label"`
	Percent string `json:"percent"`
	Amount  string `json:"amount"`
}

// TotalsView is Totals pre-formatted for display.
type TotalsView struct {
	BaseAmount        string          `json:"baseAmount"`
	PremiumPercent    string          `json:"premiumPercent"`
	PremiumAmount     string          `json:"premiumAmount"`
	GrossTotal        string          `json:"grossTotal"`
	Deductions        []DeductionView `json:"deductions"`
	TotalDeductions   string          `json:"totalDeductions"`
	NetPayable        string          `json:"netPayable"`
	NetPayableInWords string          `json:"netPayableInWords"`
}

// View holds the display projections consumed by markup templates.
type View struct {
	WorkOrder   []ItemView      `json:"workOrder"`
	Bill        []ItemView      `json:"bill"`
	Extra       []ItemView      `json:"extra"`
	Deviations  []DeviationView `json:"deviations"`
	ExtraTotal  string          `json:"extraTotal"`
	BillTotal   string          `json:"billTotal"`
	ExcessTotal string          `json:"excessTotal"`
	SavingTotal string          `json:"savingTotal"`
	Totals      TotalsView      `json:"totals"`
}

// DocumentModel is the complete, immutable input to markup rendering for one
// workbook. It contains only slices and scalars, so its JSON encoding is
// byte-stable for identical inputs.
type DocumentModel struct {
	Title          []TitleField `json:"title"`
	WorkOrderItems []LineItem   `json:"workOrderItems"`
	BillItems      []LineItem   `json:"billItems"`
	ExtraItems     []LineItem   `json:"extraItems"`
	Deviations     []Deviation  `json:"deviations"`
	Totals         Totals       `json:"totals"`
	View           View         `json:"view"`
	HasExtraItems  bool         `json:"hasExtraItems"`
}

// TitleValue returns the value of the first title field whose key contains
// name, compared case-insensitively.
func (m *DocumentModel) TitleValue(name string) (string, bool) {
	return lookupTitle(m.Title, name)
}

func lookupTitle(fields []TitleField, name string) (string, bool) {
	name = strings.ToLower(name)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f.Key), name) {
			return f.Value, true
		}
	}
	return "", false
}

// DocumentType identifies one kind of generated document.
type DocumentType string

const (
	DocSummary        DocumentType = "summary"
	DocDeviation      DocumentType = "deviation"
	DocScrutiny       DocumentType = "scrutiny"
	DocExtraItems     DocumentType = "extra_items"
	DocCertificateII  DocumentType = "certificate_ii"
	DocCertificateIII DocumentType = "certificate_iii"
)

// TemplateError reports that a document could not be produced from the model,
// typically because the template references data the model does not carry.
type TemplateError struct {
	DocumentType DocumentType
	Reference    string // the referenced field, e.g. "title.contractor"
	Message      string
	Err          error
}

func (e *TemplateError) Error() string {
	msg := fmt.Sprintf("template %s", e.DocumentType)
	if e.Reference != "" {
		msg += fmt.Sprintf(" references %s", e.Reference)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}
