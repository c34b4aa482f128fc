package schema

// LineItemSchema is the canonical schema for work-order, bill-quantity and
// extra-item sheets. Description is resolved first so that "Item Description"
// is not claimed by the identifier synonym "item"; rate precedes unit so that
// "Unit Rate" is never read as a unit column.
var LineItemSchema = Schema{
	Name: "line items",
	Kind: KindLineItems,
	Fields: []FieldSpec{
		{Field: Description, Type: FieldText, Required: true,
			Synonyms: []string{"description", "particulars", "item of work", "name of item", "desc"}},
		{Field: Identifier, Type: FieldIdentifier, Required: true,
			Synonyms: []string{"item no", "item code", "s. no", "s.no", "sl. no", "sl no", "serial", "code", "id", "item"}},
		{Field: Rate, Type: FieldNumeric,
			Synonyms: []string{"unit rate", "rate", "price"}},
		{Field: QuantitySinceLast, Type: FieldNumeric,
			Synonyms: []string{"since last", "since previous", "this bill"}},
		{Field: Quantity, Type: FieldNumeric,
			Synonyms: []string{"upto date", "up to date", "to date", "quantity", "qty", "nos", "number"}},
		{Field: Unit, Type: FieldText,
			Synonyms: []string{"unit", "uom"}},
		{Field: Remark, Type: FieldText,
			Synonyms: []string{"remark", "note", "comment"}},
	},
}

// TitleSchema is the canonical schema for key/value title sheets.
var TitleSchema = Schema{
	Name: "title",
	Kind: KindKeyValue,
	Fields: []FieldSpec{
		{Field: Key, Type: FieldText, Required: true},
		{Field: Value, Type: FieldText, Required: true},
	},
}

// SheetRole identifies one logical sheet of a billing workbook.
type SheetRole string

const (
	SheetTitle        SheetRole = "Title"
	SheetWorkOrder    SheetRole = "Work Order"
	SheetBillQuantity SheetRole = "Bill Quantity"
	SheetExtraItems   SheetRole = "Extra Items"
)

// SheetSpec describes how a logical sheet is found and which schema it uses.
type SheetSpec struct {
	Role     SheetRole
	Required bool
	Synonyms []string
	Schema   Schema
}

// WorkbookSheets lists the logical sheets in resolution order. Extra items and
// bill quantity resolve before the work order so the generic "order" synonym
// cannot claim them.
var WorkbookSheets = []SheetSpec{
	{Role: SheetTitle, Required: true, Schema: TitleSchema,
		Synonyms: []string{"title", "name of work", "details", "cover"}},
	{Role: SheetExtraItems, Schema: LineItemSchema,
		Synonyms: []string{"extra item", "extra"}},
	{Role: SheetBillQuantity, Schema: LineItemSchema,
		Synonyms: []string{"bill quantity", "bill qty", "measurement", "bill"}},
	{Role: SheetWorkOrder, Required: true, Schema: LineItemSchema,
		Synonyms: []string{"work order", "workorder", "order"}},
}
