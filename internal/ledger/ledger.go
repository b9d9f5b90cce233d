// Package ledger appends one row per generation to an external spreadsheet.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Entry is one logged generation. Date is the document's calendar date and
// is written as given; Time is the moment of generation.
type Entry struct {
	Date           time.Time
	Time           time.Time
	DocumentNumber string
	Customer       string
	Address        string
	Vendor         string
	Responsible    string
	Items          int
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	GrandTotal     decimal.Decimal
	Files          []string
}

// Sink records entries. Failures are reported to the caller, who decides
// whether they matter.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

var header = []interface{}{
	"Дата", "Номер КП", "Замовник", "Адреса", "Виконавець", "Відповідальний",
	"Позицій", "Разом", "Податок", "Загальна вартість", "Файли", "Створено",
}

// XLSXSink appends to a workbook on disk, creating it with a header row on
// first use. Appends are serialized.
type XLSXSink struct {
	path  string
	sheet string
	loc   *time.Location
	mu    sync.Mutex
}

func NewXLSXSink(path, sheet string, loc *time.Location) *XLSXSink {
	if sheet == "" {
		sheet = "Log"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &XLSXSink{path: path, sheet: sheet, loc: loc}
}

func (s *XLSXSink) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, created, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(s.sheet); idx == -1 {
		if _, err := f.NewSheet(s.sheet); err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
		if err := f.SetSheetRow(s.sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	row := []interface{}{
		e.Date.Format("02.01.2006"),
		e.DocumentNumber,
		e.Customer,
		e.Address,
		e.Vendor,
		e.Responsible,
		e.Items,
		e.Subtotal.InexactFloat64(),
		e.Tax.InexactFloat64(),
		e.GrandTotal.InexactFloat64(),
		strings.Join(e.Files, ", "),
		e.Time.In(s.loc).Format("2006-01-02 15:04:05"),
	}
	if err := f.SetSheetRow(s.sheet, cell, &row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}

	if created {
		err = f.SaveAs(s.path)
	} else {
		err = f.Save()
	}
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (s *XLSXSink) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("open ledger: %w", err)
	}
	f = excelize.NewFile()
	if err := f.SetSheetName("Sheet1", s.sheet); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(s.sheet, "A1", &header); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("write header: %w", err)
	}
	return f, true, nil
}
