// Package selection is the editable list of line items one document is built from.
package selection

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"quotegen/internal/catalog"
	"quotegen/internal/model"
)

var (
	ErrUnknownItem     = errors.New("item not in catalog")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrEmptyName       = errors.New("item name is required")
	ErrNotSelected     = errors.New("item not selected")
)

type itemKey struct{ category, name string }

// Selection keeps items in insertion order, one row per (category, name).
// It is owned by a single request and is not safe for concurrent use.
type Selection struct {
	catalog *catalog.Catalog
	items   []model.LineItem
}

// New starts an empty selection priced from cat. A nil catalog allows only custom items.
func New(cat *catalog.Catalog) *Selection {
	return &Selection{catalog: cat}
}

func (s *Selection) find(category, name string) int {
	k := itemKey{strings.TrimSpace(category), strings.TrimSpace(name)}
	for i, it := range s.items {
		if (itemKey{it.Category, it.Name}) == k {
			return i
		}
	}
	return -1
}

// Add selects a catalog item at its default price. Adding an item that is
// already selected increases its quantity and keeps its current price.
func (s *Selection) Add(category, name string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.catalog == nil {
		return ErrUnknownItem
	}
	e, ok := s.catalog.Lookup(category, name)
	if !ok {
		return ErrUnknownItem
	}
	if i := s.find(e.Category, e.Name); i >= 0 {
		s.items[i].Quantity += qty
		return nil
	}
	s.items = append(s.items, model.LineItem{
		Name:      e.Name,
		Quantity:  qty,
		UnitPrice: e.UnitPrice,
		Category:  e.Category,
	})
	return nil
}

// AddCustom selects an item at an explicit price. Like Add, repeating an item
// increases its quantity; the row then takes the latest price.
func (s *Selection) AddCustom(item model.LineItem) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if item.Name == "" {
		return ErrEmptyName
	}
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if item.UnitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	if i := s.find(item.Category, item.Name); i >= 0 {
		s.items[i].Quantity += item.Quantity
		s.items[i].UnitPrice = item.UnitPrice
		return nil
	}
	s.items = append(s.items, item)
	return nil
}

func (s *Selection) SetQuantity(category, name string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	i := s.find(category, name)
	if i < 0 {
		return ErrNotSelected
	}
	s.items[i].Quantity = qty
	return nil
}

func (s *Selection) SetPrice(category, name string, price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	i := s.find(category, name)
	if i < 0 {
		return ErrNotSelected
	}
	s.items[i].UnitPrice = price
	return nil
}

// Remove drops an item; removing an unselected item is not an error.
func (s *Selection) Remove(category, name string) {
	if i := s.find(category, name); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

// Items returns a copy in insertion order.
func (s *Selection) Items() []model.LineItem {
	return append([]model.LineItem(nil), s.items...)
}

func (s *Selection) Len() int { return len(s.items) }

// Line is one requested row as it arrives from a form: a catalog reference
// with an optional price override, or a fully custom item.
type Line struct {
	Category string           `json:"category"`
	Name     string           `json:"name"`
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"unit_price,omitempty"`
}

// FromLines builds a selection from form rows. Rows without a price must
// reference the catalog; rows with a price are taken as given. Repeated rows
// are merged into one with the summed quantity.
func FromLines(cat *catalog.Catalog, lines []Line) (*Selection, error) {
	s := New(cat)
	for _, l := range lines {
		var err error
		if l.Price != nil {
			err = s.AddCustom(model.LineItem{Name: l.Name, Quantity: l.Quantity, UnitPrice: *l.Price, Category: l.Category})
		} else {
			err = s.Add(l.Category, l.Name, l.Quantity)
		}
		if err != nil {
			return nil, &LineError{Category: l.Category, Name: l.Name, Err: err}
		}
	}
	return s, nil
}

// LineError names the row that was rejected.
type LineError struct {
	Category string
	Name     string
	Err      error
}

func (e *LineError) Error() string {
	return e.Category + " / " + e.Name + ": " + e.Err.Error()
}

func (e *LineError) Unwrap() error { return e.Err }
