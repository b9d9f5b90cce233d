package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogEntry is one priced item of the reference catalog.
type CatalogEntry struct {
	Category  string          `json:"category"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineItem is one selected row of a quotation.
// The line sum is never stored; it is derived from quantity and unit price.
type LineItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Category  string          `json:"category"`
}

// Sum returns unit price × quantity rounded half-up to cents.
func (li LineItem) Sum() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(2)
}

// TaxMode selects how the vendor's tax is presented.
type TaxMode string

const (
	// TaxAdditive adds tax on top of the pre-tax subtotal and shows it as a separate line.
	TaxAdditive TaxMode = "additive"
	// TaxIncluded bakes the tax into every displayed unit price; only the grand total is shown.
	TaxIncluded TaxMode = "included"
)

// Valid reports whether m is a known tax mode.
func (m TaxMode) Valid() bool {
	return m == TaxAdditive || m == TaxIncluded
}

// VendorProfile is the issuing company. TaxLabel and TaxRate always travel together.
type VendorProfile struct {
	ID          string          `json:"id"`
	LegalName   string          `json:"legal_name"`
	ShortName   string          `json:"short_name"`
	TaxID       string          `json:"tax_id"`
	Address     string          `json:"address"`
	BankAccount string          `json:"bank_account"`
	TaxLabel    string          `json:"tax_label"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxMode     TaxMode         `json:"tax_mode"`
	// TaxMarker is printed per row when the item table has a tax-applicability column.
	TaxMarker string `json:"tax_marker"`
}

// DocumentRequest is everything one generate action needs. It is read only for the pipeline.
type DocumentRequest struct {
	Vendor            VendorProfile
	CustomerName      string
	SiteAddress       string
	DocumentNumber    string
	ResponsiblePerson string
	// Date is a calendar date and prints as given. Zero means today in the
	// presentation zone.
	Date            time.Time
	Phone           string
	Email           string
	Items           []LineItem
	IntroParagraphs []string
}

// TotalsResult holds cent-rounded totals.
type TotalsResult struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// DocumentKind identifies one of the generated outputs.
type DocumentKind string

const (
	KindQuotation  DocumentKind = "quotation"
	KindSupplySpec DocumentKind = "supply"
	KindWorksSpec  DocumentKind = "works"
)

// GeneratedFile is an in-memory output ready to be downloaded or sent.
type GeneratedFile struct {
	Kind        DocumentKind `json:"kind"`
	Name        string       `json:"name"`
	Data        []byte       `json:"-"`
	ContentType string       `json:"content_type"`
}
