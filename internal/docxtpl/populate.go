// Package docxtpl fills DOCX templates: {{key}} placeholders in paragraphs and
// cells, and grouped item rows appended to the table marked by a sentinel header.
package docxtpl

import (
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/shopspring/decimal"

	"quotegen/internal/money"
)

const (
	alignLeft   = "left"
	alignCenter = "center"
	alignRight  = "right"
)

// Row is one item line of the table.
type Row struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Sum       decimal.Decimal
	// Marker fills the tax-applicability column when the table has one.
	Marker string
}

// Section is a bucket header followed by its rows. Empty sections are skipped.
type Section struct {
	Title string
	Rows  []Row
}

// SummaryRow is a label/amount line appended after all sections.
type SummaryRow struct {
	Label  string
	Amount decimal.Decimal
	Bold   bool
}

// TableData is what gets appended to the sentinel table.
type TableData struct {
	Sections []Section
	Summary  []SummaryRow
}

// Result reports what Populate did.
type Result struct {
	Substitutions int
	TableFound    bool
	RowsAdded     int
	Columns       int
}

// Populator is safe for concurrent use; it holds configuration only.
type Populator struct {
	// Sentinels identify the item table by its first-row first-cell text.
	Sentinels []string
	// BoldLabels are paragraph prefixes rendered bold up to the first colon.
	BoldLabels []string
}

// Populate mutates doc in place. Placeholders are always substituted; rows are
// appended only when a sentinel table exists, other tables are never touched.
func (p *Populator) Populate(doc *docx.Docx, reps map[string]string, data TableData) Result {
	var res Result
	items := doc.Document.Body.Items

	walkParagraphs(items, func(para *docx.Paragraph) {
		res.Substitutions += substitute(para, reps)
	})
	if len(p.BoldLabels) > 0 {
		for _, it := range items {
			if para, ok := it.(*docx.Paragraph); ok {
				emboldenLabel(para, p.BoldLabels)
			}
		}
	}

	tbl := p.FindTable(doc)
	if tbl == nil {
		return res
	}
	res.TableFound = true
	res.Columns = columnCount(tbl)
	res.RowsAdded = appendRows(tbl, data, res.Columns)
	return res
}

// FindTable returns the first body table whose first-row first-cell text
// contains a sentinel, case-insensitively, or nil.
func (p *Populator) FindTable(doc *docx.Docx) *docx.Table {
	for _, it := range doc.Document.Body.Items {
		tbl, ok := it.(*docx.Table)
		if !ok || len(tbl.TableRows) == 0 || len(tbl.TableRows[0].TableCells) == 0 {
			continue
		}
		head := strings.ToLower(CellText(tbl.TableRows[0].TableCells[0]))
		for _, s := range p.Sentinels {
			if s != "" && strings.Contains(head, strings.ToLower(s)) {
				return tbl
			}
		}
	}
	return nil
}

// columnCount is the grid width of the header row, honoring gridSpan.
func columnCount(tbl *docx.Table) int {
	n := 0
	for _, c := range tbl.TableRows[0].TableCells {
		span := 1
		if c.TableCellProperties != nil && c.TableCellProperties.GridSpan != nil && c.TableCellProperties.GridSpan.Val > 1 {
			span = c.TableCellProperties.GridSpan.Val
		}
		n += span
	}
	return n
}

// columnWidths returns per grid column widths in twips, 0 when unknown.
func columnWidths(tbl *docx.Table, cols int) []int64 {
	w := make([]int64, cols)
	if tbl.TableGrid != nil && len(tbl.TableGrid.GridCols) == cols {
		for i, g := range tbl.TableGrid.GridCols {
			if g != nil {
				w[i] = g.W
			}
		}
		return w
	}
	header := tbl.TableRows[0].TableCells
	if len(header) == cols {
		for i, c := range header {
			if c.TableCellProperties != nil && c.TableCellProperties.TableCellWidth != nil {
				w[i] = c.TableCellProperties.TableCellWidth.W
			}
		}
	}
	return w
}

func appendRows(tbl *docx.Table, data TableData, cols int) int {
	if cols == 0 {
		return 0
	}
	widths := columnWidths(tbl, cols)
	added := 0
	add := func(cells ...*docx.WTableCell) {
		tbl.TableRows = append(tbl.TableRows, &docx.WTableRow{
			TableRowProperties: &docx.WTableRowProperties{},
			TableCells:         cells,
		})
		added++
	}

	for _, sec := range data.Sections {
		if len(sec.Rows) == 0 {
			continue
		}
		add(newCell(sec.Title, span(widths, 0, cols), cols, alignCenter, true, true))
		for _, r := range sec.Rows {
			add(itemCells(r, widths)...)
		}
	}
	for _, s := range data.Summary {
		add(summaryCells(s, widths)...)
	}
	return added
}

// itemCells lays a row out over the real column count: name, qty, price,
// markers..., sum for four or more columns, degrading for narrower tables.
func itemCells(r Row, widths []int64) []*docx.WTableCell {
	name := newCell(r.Name, widths[0], 1, alignLeft, false, false)
	qty := strconv.Itoa(r.Quantity)
	price := money.Format(r.UnitPrice)
	sum := money.Format(r.Sum)

	switch cols := len(widths); {
	case cols == 1:
		return []*docx.WTableCell{name}
	case cols == 2:
		return []*docx.WTableCell{name, newCell(sum, widths[1], 1, alignRight, false, false)}
	case cols == 3:
		return []*docx.WTableCell{
			name,
			newCell(qty, widths[1], 1, alignCenter, false, false),
			newCell(sum, widths[2], 1, alignRight, false, false),
		}
	default:
		cells := []*docx.WTableCell{
			name,
			newCell(qty, widths[1], 1, alignCenter, false, false),
			newCell(price, widths[2], 1, alignRight, false, false),
		}
		for i := 3; i < cols-1; i++ {
			cells = append(cells, newCell(r.Marker, widths[i], 1, alignCenter, false, false))
		}
		return append(cells, newCell(sum, widths[cols-1], 1, alignRight, false, false))
	}
}

func summaryCells(s SummaryRow, widths []int64) []*docx.WTableCell {
	cols := len(widths)
	amount := money.Format(s.Amount)
	if cols == 1 {
		return []*docx.WTableCell{newCell(s.Label+" "+amount, widths[0], 1, alignRight, s.Bold, false)}
	}
	return []*docx.WTableCell{
		newCell(s.Label, span(widths, 0, cols-1), cols-1, alignLeft, s.Bold, false),
		newCell(amount, widths[cols-1], 1, alignRight, s.Bold, false),
	}
}

func span(widths []int64, from, to int) int64 {
	var w int64
	for _, x := range widths[from:to] {
		w += x
	}
	return w
}

func newCell(text string, width int64, gridSpan int, align string, bold, italic bool) *docx.WTableCell {
	run := &docx.Run{RunProperties: &docx.RunProperties{}, Children: textNodes(text)}
	if bold {
		run.Bold()
	}
	if italic {
		run.Italic()
	}
	para := &docx.Paragraph{Children: []interface{}{run}}
	para.Justification(align)

	cw := &docx.WTableCellWidth{Type: "auto"}
	if width > 0 {
		cw = &docx.WTableCellWidth{W: width, Type: "dxa"}
	}
	props := &docx.WTableCellProperties{TableCellWidth: cw}
	if gridSpan > 1 {
		props.GridSpan = &docx.WGridSpan{Val: gridSpan}
	}
	return &docx.WTableCell{TableCellProperties: props, Paragraphs: []*docx.Paragraph{para}}
}
