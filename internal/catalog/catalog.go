// Package catalog holds the read-only price list the selection draws default
// prices from, and the sources it can be loaded from.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"quotegen/internal/config"
	"quotegen/internal/model"
	"quotegen/internal/money"
)

// Source loads a catalog snapshot.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

type key struct{ category, name string }

// Catalog is immutable once built and safe for concurrent reads.
type Catalog struct {
	entries    []model.CatalogEntry
	categories []string
	index      map[key]int
}

// New builds a catalog keeping input order. A repeated (category, name) pair
// keeps its first price.
func New(entries []model.CatalogEntry) *Catalog {
	c := &Catalog{index: make(map[key]int, len(entries))}
	seenCat := make(map[string]bool)
	for _, e := range entries {
		e.Category = strings.TrimSpace(e.Category)
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			continue
		}
		k := key{e.Category, e.Name}
		if _, dup := c.index[k]; dup {
			continue
		}
		c.index[k] = len(c.entries)
		c.entries = append(c.entries, e)
		if !seenCat[e.Category] {
			seenCat[e.Category] = true
			c.categories = append(c.categories, e.Category)
		}
	}
	return c
}

// Len is the number of distinct items.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []model.CatalogEntry {
	return append([]model.CatalogEntry(nil), c.entries...)
}

// Categories lists category labels in first-seen order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Items returns the entries of one category.
func (c *Catalog) Items(category string) []model.CatalogEntry {
	var out []model.CatalogEntry
	for _, e := range c.entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// Lookup finds an entry by category and name.
func (c *Catalog) Lookup(category, name string) (model.CatalogEntry, bool) {
	i, ok := c.index[key{strings.TrimSpace(category), strings.TrimSpace(name)}]
	if !ok {
		return model.CatalogEntry{}, false
	}
	return c.entries[i], true
}

// Price is the default unit price of an item.
func (c *Catalog) Price(category, name string) (decimal.Decimal, bool) {
	e, ok := c.Lookup(category, name)
	return e.UnitPrice, ok
}

// StaticSource serves a fixed catalog.
type StaticSource struct {
	Catalog *Catalog
}

func (s StaticSource) Load(context.Context) (*Catalog, error) {
	return s.Catalog, nil
}

// FromProfile builds the catalog configured in the profile. A malformed price
// becomes zero and is logged.
func FromProfile(cats []config.CatalogCategory, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	var entries []model.CatalogEntry
	for _, cat := range cats {
		for _, it := range cat.Items {
			entries = append(entries, model.CatalogEntry{
				Category:  cat.Category,
				Name:      it.Name,
				UnitPrice: parsePrice(logger, cat.Category, it.Name, it.Price),
			})
		}
	}
	return New(entries)
}

func parsePrice(logger *slog.Logger, category, name, raw string) decimal.Decimal {
	p, ok := money.Parse(raw)
	if !ok {
		logger.Warn("catalog.price.malformed", "category", category, "item", name, "raw", raw)
		return decimal.Zero
	}
	return p
}
