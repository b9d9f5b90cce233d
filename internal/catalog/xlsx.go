package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"quotegen/internal/model"
	"quotegen/internal/money"
	"quotegen/internal/storage"
)

var ErrNoSheet = errors.New("catalog sheet not found")

// Opener returns the raw workbook bytes.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// FileOpener reads the workbook from the local filesystem.
func FileOpener(path string) Opener {
	return func(context.Context) (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// StorageOpener reads the workbook from object storage.
func StorageOpener(store storage.Storage, key string) Opener {
	return func(ctx context.Context) (io.ReadCloser, error) {
		rc, _, err := store.Get(ctx, key)
		return rc, err
	}
}

// XLSXSource reads a price list laid out as Category | Name | Price. A row
// with a category and no name starts a section; rows with an empty category
// inherit the current section. A leading header row is skipped.
type XLSXSource struct {
	Open   Opener
	Sheet  string
	Logger *slog.Logger
}

func (s *XLSXSource) Load(ctx context.Context) (*Catalog, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rc, err := s.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("read catalog workbook: %w", err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoSheet
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, fmt.Errorf("%w: %q", ErrNoSheet, sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", sheet, err)
	}

	entries, malformed := parseRows(rows, logger)
	logger.Info("catalog.xlsx.loaded", "sheet", sheet, "items", len(entries), "malformed_prices", malformed)
	return New(entries), nil
}

func parseRows(rows [][]string, logger *slog.Logger) ([]model.CatalogEntry, int) {
	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var (
		entries   []model.CatalogEntry
		current   string
		malformed int
	)
	for i, row := range rows {
		cat, name, raw := cell(row, 0), cell(row, 1), cell(row, 2)
		if name == "" {
			if cat != "" {
				current = cat
			}
			continue
		}
		if cat == "" {
			cat = current
		} else {
			current = cat
		}
		price, ok := money.Parse(raw)
		if !ok {
			if i == 0 {
				// header row
				current = ""
				continue
			}
			malformed++
			logger.Warn("catalog.price.malformed", "row", i+1, "category", cat, "item", name, "raw", raw)
		}
		entries = append(entries, model.CatalogEntry{Category: cat, Name: name, UnitPrice: price})
	}
	return entries, malformed
}
