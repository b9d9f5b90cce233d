package docxtpl

import (
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(doc *docx.Docx, headers ...string) *docx.Table {
	tbl := doc.AddTable(1, len(headers), 0, nil)
	for i, h := range headers {
		tbl.TableRows[0].TableCells[i].AddParagraph().AddText(h)
	}
	return tbl
}

func rowTexts(row *docx.WTableRow) []string {
	out := make([]string, 0, len(row.TableCells))
	for _, c := range row.TableCells {
		out = append(out, CellText(c))
	}
	return out
}

func isBold(c *docx.WTableCell) bool {
	r := c.Paragraphs[0].Children[0].(*docx.Run)
	return r.RunProperties != nil && r.RunProperties.Bold != nil
}

func sampleData() TableData {
	return TableData{
		Sections: []Section{
			{Title: "EQUIPMENT", Rows: []Row{{Name: "Inverter X", Quantity: 1, UnitPrice: decimal.NewFromInt(50000), Sum: decimal.NewFromInt(50000), Marker: "20%"}}},
			{Title: "MATERIALS", Rows: []Row{{Name: "Cable", Quantity: 10, UnitPrice: decimal.NewFromInt(100), Sum: decimal.NewFromInt(1000), Marker: "20%"}}},
			{Title: "WORKS"},
		},
		Summary: []SummaryRow{
			{Label: "Subtotal", Amount: decimal.NewFromInt(51000)},
			{Label: "VAT (20%)", Amount: decimal.NewFromInt(10200)},
			{Label: "TOTAL", Amount: decimal.NewFromInt(61200), Bold: true},
		},
	}
}

func TestPopulate_PlaceholderSplitAcrossRuns(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	p := doc.AddParagraph()
	for _, frag := range []string{"Cust", "omer: {{", "cust", "omer}", "}"} {
		p.AddText(frag)
	}

	pop := &Populator{}
	res := pop.Populate(doc, map[string]string{"customer": "ACME"}, TableData{})

	assert.Equal(t, 1, res.Substitutions)
	assert.Equal(t, "Customer: ACME", ParagraphText(p))
	assert.False(t, res.TableFound)
}

func TestPopulate_UnknownPlaceholderLeftAlone(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	p := doc.AddParagraph()
	p.AddText("{{date}} / {{missing}}")

	res := (&Populator{}).Populate(doc, map[string]string{"date": "01.02.2026"}, TableData{})

	assert.Equal(t, 1, res.Substitutions)
	assert.Equal(t, "01.02.2026 / {{missing}}", ParagraphText(p))
}

func TestPopulate_PlaceholdersInCells(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	vendor := newTable(doc, "Vendor: {{vendor_name}}", "{{vendor_tax_id}}")
	nested := &docx.Table{TableRows: []*docx.WTableRow{{TableCells: []*docx.WTableCell{{}}}}}
	nested.TableRows[0].TableCells[0].AddParagraph().AddText("IBAN {{vendor_bank}}")
	vendor.TableRows[0].TableCells[1].Tables = append(vendor.TableRows[0].TableCells[1].Tables, nested)

	res := (&Populator{Sentinels: []string{"Name"}}).Populate(doc, map[string]string{
		"vendor_name":   "Sun LLC",
		"vendor_tax_id": "12345678",
		"vendor_bank":   "UA00",
	}, sampleData())

	assert.Equal(t, 3, res.Substitutions)
	assert.False(t, res.TableFound)
	assert.Equal(t, []string{"Vendor: Sun LLC", "12345678"}, rowTexts(vendor.TableRows[0]))
	assert.Equal(t, "IBAN UA00", CellText(nested.TableRows[0].TableCells[0]))
	// the vendor table is not the item table and must not grow
	assert.Len(t, vendor.TableRows, 1)
}

func TestPopulate_FourColumnTable(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	other := newTable(doc, "Requisites", "", "", "")
	tbl := newTable(doc, "Name", "Qty", "Price", "Sum")

	res := (&Populator{Sentinels: []string{"name"}}).Populate(doc, nil, sampleData())

	require.True(t, res.TableFound)
	assert.Equal(t, 4, res.Columns)
	assert.Equal(t, 7, res.RowsAdded)
	require.Len(t, tbl.TableRows, 8)
	assert.Len(t, other.TableRows, 1)

	header := tbl.TableRows[1]
	require.Len(t, header.TableCells, 1)
	assert.Equal(t, "EQUIPMENT", CellText(header.TableCells[0]))
	assert.Equal(t, 4, header.TableCells[0].TableCellProperties.GridSpan.Val)
	assert.True(t, isBold(header.TableCells[0]))

	assert.Equal(t, []string{"Inverter X", "1", "50 000.00", "50 000.00"}, rowTexts(tbl.TableRows[2]))
	assert.Equal(t, "MATERIALS", CellText(tbl.TableRows[3].TableCells[0]))
	assert.Equal(t, []string{"Cable", "10", "100.00", "1 000.00"}, rowTexts(tbl.TableRows[4]))

	assert.Equal(t, []string{"Subtotal", "51 000.00"}, rowTexts(tbl.TableRows[5]))
	assert.Equal(t, 3, tbl.TableRows[5].TableCells[0].TableCellProperties.GridSpan.Val)
	assert.Equal(t, []string{"VAT (20%)", "10 200.00"}, rowTexts(tbl.TableRows[6]))
	assert.Equal(t, []string{"TOTAL", "61 200.00"}, rowTexts(tbl.TableRows[7]))
	assert.True(t, isBold(tbl.TableRows[7].TableCells[1]))
	assert.False(t, isBold(tbl.TableRows[6].TableCells[1]))

	price := tbl.TableRows[2].TableCells[2].Paragraphs[0]
	assert.Equal(t, "right", price.Properties.Justification.Val)
	qty := tbl.TableRows[2].TableCells[1].Paragraphs[0]
	assert.Equal(t, "center", qty.Properties.Justification.Val)
}

func TestPopulate_FiveColumnTableGetsMarker(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	tbl := newTable(doc, "Найменування", "К-сть", "Ціна", "ПДВ", "Сума")

	res := (&Populator{Sentinels: []string{"Найменування"}}).Populate(doc, nil, sampleData())

	require.True(t, res.TableFound)
	assert.Equal(t, 5, res.Columns)
	assert.Equal(t, []string{"Inverter X", "1", "50 000.00", "20%", "50 000.00"}, rowTexts(tbl.TableRows[2]))
	assert.Equal(t, 5, tbl.TableRows[1].TableCells[0].TableCellProperties.GridSpan.Val)
	assert.Equal(t, 4, tbl.TableRows[5].TableCells[0].TableCellProperties.GridSpan.Val)
}

func TestPopulate_NarrowTablesDegrade(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	tbl := newTable(doc, "Item", "Sum")

	(&Populator{Sentinels: []string{"item"}}).Populate(doc, nil, sampleData())

	assert.Equal(t, []string{"Inverter X", "50 000.00"}, rowTexts(tbl.TableRows[2]))
	assert.Equal(t, []string{"TOTAL", "61 200.00"}, rowTexts(tbl.TableRows[len(tbl.TableRows)-1]))
}

func TestPopulate_BoldLabels(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	p := doc.AddParagraph()
	p.AddText("Замовник: {{customer}}")
	plain := doc.AddParagraph()
	plain.AddText("Нотатка без мітки")

	(&Populator{BoldLabels: []string{"Замовник:"}}).Populate(doc, map[string]string{"customer": "ТОВ Сонце"}, TableData{})

	require.Len(t, p.Children, 2)
	head := p.Children[0].(*docx.Run)
	tail := p.Children[1].(*docx.Run)
	assert.NotNil(t, head.RunProperties.Bold)
	assert.Nil(t, tail.RunProperties.Bold)
	assert.Equal(t, "Замовник: ТОВ Сонце", ParagraphText(p))
	assert.Equal(t, "Замовник:", head.Children[0].(*docx.Text).Text)

	assert.Len(t, plain.Children, 1)
}

func TestPopulate_BoldLabelKeepsBreaksAndSplitRuns(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	withBreak := doc.AddParagraph()
	withBreak.Children = append(withBreak.Children, &docx.Run{
		RunProperties: &docx.RunProperties{},
		Children: []interface{}{
			&docx.Text{Text: "Адреса:"},
			&docx.BarterRabbet{},
			&docx.Text{Text: "Київ"},
		},
	})
	split := doc.AddParagraph()
	split.AddText("Замов")
	split.AddText("ник: ТОВ Сонце")

	(&Populator{BoldLabels: []string{"Адреса:", "Замовник:"}}).Populate(doc, nil, TableData{})

	require.Len(t, withBreak.Children, 2)
	head := withBreak.Children[0].(*docx.Run)
	tail := withBreak.Children[1].(*docx.Run)
	assert.NotNil(t, head.RunProperties.Bold)
	assert.Nil(t, tail.RunProperties.Bold)
	require.Len(t, tail.Children, 2)
	assert.IsType(t, &docx.BarterRabbet{}, tail.Children[0])
	assert.Equal(t, "Адреса:Київ", ParagraphText(withBreak))

	require.Len(t, split.Children, 3)
	assert.NotNil(t, split.Children[0].(*docx.Run).RunProperties.Bold)
	assert.NotNil(t, split.Children[1].(*docx.Run).RunProperties.Bold)
	assert.Nil(t, split.Children[2].(*docx.Run).RunProperties.Bold)
	assert.Equal(t, " ТОВ Сонце", ParagraphText(&docx.Paragraph{Children: split.Children[2:]}))
	assert.Equal(t, "Замовник: ТОВ Сонце", ParagraphText(split))
}

func TestPopulate_MultilineValueBecomesBreaks(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	p := doc.AddParagraph()
	p.AddText("{{intro}}")

	(&Populator{}).Populate(doc, map[string]string{"intro": "first\nsecond"}, TableData{})

	run := p.Children[0].(*docx.Run)
	require.Len(t, run.Children, 3)
	assert.IsType(t, &docx.BarterRabbet{}, run.Children[1])
	assert.Equal(t, "firstsecond", ParagraphText(p))
}

func TestColumnCount_HonorsGridSpan(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	tbl := newTable(doc, "Name", "Qty", "Sum")
	tbl.TableRows[0].TableCells[0].TableCellProperties.GridSpan = &docx.WGridSpan{Val: 2}

	assert.Equal(t, 4, columnCount(tbl))
}
