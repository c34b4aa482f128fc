package core

func init() {
	Register(DocumentDefinition{Type: DocSummary, Name: "Abstract Summary", Order: 10})
	Register(DocumentDefinition{Type: DocDeviation, Name: "Deviation Statement", Order: 20})
	Register(DocumentDefinition{Type: DocScrutiny, Name: "Scrutiny Sheet", Order: 30})
	Register(DocumentDefinition{
		Type:    DocExtraItems,
		Name:    "Extra Items",
		Order:   40,
		Include: func(m *DocumentModel) bool { return m.HasExtraItems },
	})
	Register(DocumentDefinition{Type: DocCertificateII, Name: "Certificate II", Order: 50})
	Register(DocumentDefinition{Type: DocCertificateIII, Name: "Certificate III", Order: 60})
}
