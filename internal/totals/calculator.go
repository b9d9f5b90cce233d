// Package totals turns selected line items into grouped, cent-accurate totals.
// All arithmetic is fixed-point; every monetary intermediate is rounded half-up to two places.
package totals

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"quotegen/internal/model"
)

var (
	ErrRateOutOfRange = errors.New("tax rate must be within [0, 1]")
	ErrUnknownTaxMode = errors.New("unknown tax mode")
	ErrInvalidItem    = errors.New("invalid line item")
)

// Line is an item as it is displayed: for TaxIncluded the unit price is already inflated.
type Line struct {
	Item   model.LineItem
	Bucket Bucket
}

// Sum is the displayed line sum.
func (l Line) Sum() decimal.Decimal { return l.Item.Sum() }

// Group is one non-empty bucket with its lines in input order.
type Group struct {
	Bucket   Bucket
	Lines    []Line
	Subtotal decimal.Decimal
}

// Breakdown is the full result of a calculation.
type Breakdown struct {
	Mode   model.TaxMode
	Rate   decimal.Decimal
	Groups []Group
	Totals model.TotalsResult
}

// ShowsTaxLine reports whether subtotal and tax rows are printed before the grand total.
func (b Breakdown) ShowsTaxLine() bool { return b.Mode != model.TaxIncluded }

// Lines returns every displayed line in group order.
func (b Breakdown) Lines() []Line {
	var out []Line
	for _, g := range b.Groups {
		out = append(out, g.Lines...)
	}
	return out
}

// Calculator computes totals over line items.
type Calculator struct {
	classifier *Classifier
}

// NewCalculator returns a calculator using c, or DefaultClassifier when c is nil.
func NewCalculator(c *Classifier) *Calculator {
	if c == nil {
		c = DefaultClassifier()
	}
	return &Calculator{classifier: c}
}

// Classifier exposes the bucket rules used by the calculator.
func (c *Calculator) Classifier() *Classifier { return c.classifier }

// Compute groups items into buckets and computes totals under mode. An empty
// mode means TaxAdditive.
func (c *Calculator) Compute(items []model.LineItem, rate decimal.Decimal, mode model.TaxMode) (Breakdown, error) {
	if mode == "" {
		mode = model.TaxAdditive
	}
	if !mode.Valid() {
		return Breakdown{}, fmt.Errorf("%w: %q", ErrUnknownTaxMode, mode)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return Breakdown{}, fmt.Errorf("%w: %s", ErrRateOutOfRange, rate)
	}

	multiplier := decimal.NewFromInt(1).Add(rate)
	byBucket := make(map[Bucket]*Group)
	for i, it := range items {
		if it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			return Breakdown{}, fmt.Errorf("%w: #%d %q", ErrInvalidItem, i, it.Name)
		}
		if mode == model.TaxIncluded {
			it.UnitPrice = it.UnitPrice.Mul(multiplier).Round(2)
		}
		b := c.classifier.Classify(it.Category)
		g, ok := byBucket[b]
		if !ok {
			g = &Group{Bucket: b, Subtotal: decimal.Zero}
			byBucket[b] = g
		}
		g.Lines = append(g.Lines, Line{Item: it, Bucket: b})
		g.Subtotal = g.Subtotal.Add(it.Sum())
	}

	out := Breakdown{Mode: mode, Rate: rate}
	sum := decimal.Zero
	for _, b := range c.classifier.order() {
		g, ok := byBucket[b]
		if !ok {
			continue
		}
		out.Groups = append(out.Groups, *g)
		sum = sum.Add(g.Subtotal)
	}

	switch mode {
	case model.TaxIncluded:
		out.Totals = Included(sum, rate)
	default:
		out.Totals = Additive(sum, rate)
	}
	return out, nil
}

// Additive computes tax on top of a pre-tax subtotal.
func Additive(subtotal, rate decimal.Decimal) model.TotalsResult {
	s := subtotal.Round(2)
	tax := s.Mul(rate).Round(2)
	return model.TotalsResult{
		Subtotal:   s,
		Tax:        tax,
		GrandTotal: s.Add(tax).Round(2),
	}
}

// Included backs the embedded tax out of a tax-inclusive grand total once.
func Included(grand, rate decimal.Decimal) model.TotalsResult {
	g := grand.Round(2)
	pre := g.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
	return model.TotalsResult{
		Subtotal:   pre,
		Tax:        g.Sub(pre),
		GrandTotal: g,
	}
}
