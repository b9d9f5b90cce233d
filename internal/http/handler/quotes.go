package handler

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"quotegen/internal/catalog"
	"quotegen/internal/model"
	"quotegen/internal/packager"
	"quotegen/internal/selection"
	"quotegen/internal/service"
	"quotegen/internal/templates"
	"quotegen/internal/totals"
)

// quoteRequest is the body of /totals and /quotes.
type quoteRequest struct {
	VendorID    string           `json:"vendor_id"`
	TaxMode     string           `json:"tax_mode"`
	Customer    string           `json:"customer"`
	Address     string           `json:"address"`
	Number      string           `json:"number"`
	Responsible string           `json:"responsible"`
	Date        string           `json:"date"`
	Phone       string           `json:"phone"`
	Email       string           `json:"email"`
	Intro       []string         `json:"intro"`
	Items       []selection.Line `json:"items"`
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", time.RFC3339}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// requestError is a client error already mapped to a code.
type requestError struct {
	status  int
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(code, message string) *requestError {
	return &requestError{status: fiber.StatusBadRequest, code: code, message: message}
}

// parseQuoteRequest decodes the body and resolves the vendor and the items
// against the catalog.
func parseQuoteRequest(c *fiber.Ctx, src catalog.Source, vendors *service.VendorDirectory) (model.DocumentRequest, error) {
	var body quoteRequest
	if err := c.BodyParser(&body); err != nil {
		return model.DocumentRequest{}, badRequest("INVALID_BODY", "invalid request body")
	}

	if vendors == nil {
		return model.DocumentRequest{}, badRequest("UNKNOWN_VENDOR", "no vendors configured")
	}
	vendor, err := vendors.Lookup(body.VendorID)
	if err != nil {
		return model.DocumentRequest{}, badRequest("UNKNOWN_VENDOR", "unknown vendor")
	}
	if body.TaxMode != "" {
		mode := model.TaxMode(body.TaxMode)
		if !mode.Valid() {
			return model.DocumentRequest{}, badRequest("INVALID_TAX_MODE", "tax_mode must be additive or included")
		}
		vendor.TaxMode = mode
	}

	cat := catalog.New(nil)
	if src != nil {
		if cat, err = src.Load(c.UserContext()); err != nil {
			return model.DocumentRequest{}, &requestError{status: fiber.StatusServiceUnavailable, code: "CATALOG_UNAVAILABLE", message: "catalog unavailable"}
		}
	}
	sel, err := selection.FromLines(cat, body.Items)
	if err != nil {
		return model.DocumentRequest{}, badRequest("INVALID_ITEM", err.Error())
	}

	req := model.DocumentRequest{
		Vendor:            vendor,
		CustomerName:      strings.TrimSpace(body.Customer),
		SiteAddress:       strings.TrimSpace(body.Address),
		DocumentNumber:    strings.TrimSpace(body.Number),
		ResponsiblePerson: strings.TrimSpace(body.Responsible),
		Phone:             strings.TrimSpace(body.Phone),
		Email:             strings.TrimSpace(body.Email),
		Items:             sel.Items(),
		IntroParagraphs:   body.Intro,
	}
	if body.Date != "" {
		if req.Date, err = parseDate(body.Date); err != nil {
			return model.DocumentRequest{}, badRequest("INVALID_DATE", "date must be YYYY-MM-DD or DD.MM.YYYY")
		}
	}
	return req, nil
}

// writeServiceError maps pipeline errors to the error envelope.
func writeServiceError(c *fiber.Ctx, err error) error {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return writeError(c, re.status, re.code, re.message)
	case errors.Is(err, service.ErrNoItems):
		return writeError(c, fiber.StatusBadRequest, "NO_ITEMS", "at least one line item is required")
	case errors.Is(err, totals.ErrRateOutOfRange):
		return writeError(c, fiber.StatusBadRequest, "INVALID_TAX_RATE", "tax rate must be within [0, 1]")
	case errors.Is(err, totals.ErrUnknownTaxMode):
		return writeError(c, fiber.StatusBadRequest, "INVALID_TAX_MODE", "unknown tax mode")
	case errors.Is(err, totals.ErrInvalidItem):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ITEM", err.Error())
	case errors.Is(err, templates.ErrTemplateNotFound):
		return writeError(c, fiber.StatusServiceUnavailable, "TEMPLATE_UNAVAILABLE", "quotation template is not available")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

type totalsView struct {
	Subtotal   string `json:"subtotal"`
	Tax        string `json:"tax"`
	GrandTotal string `json:"grand_total"`
}

func newTotalsView(t model.TotalsResult) totalsView {
	return totalsView{
		Subtotal:   t.Subtotal.StringFixed(2),
		Tax:        t.Tax.StringFixed(2),
		GrandTotal: t.GrandTotal.StringFixed(2),
	}
}

type lineView struct {
	Category  string `json:"category"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Sum       string `json:"sum"`
}

type groupView struct {
	Bucket   string     `json:"bucket"`
	Lines    []lineView `json:"lines"`
	Subtotal string     `json:"subtotal"`
}

type breakdownView struct {
	Mode         model.TaxMode `json:"mode"`
	Rate         string        `json:"rate"`
	ShowsTaxLine bool          `json:"shows_tax_line"`
	Groups       []groupView   `json:"groups"`
	Totals       totalsView    `json:"totals"`
}

func newBreakdownView(bd totals.Breakdown) breakdownView {
	v := breakdownView{
		Mode:         bd.Mode,
		Rate:         bd.Rate.String(),
		ShowsTaxLine: bd.ShowsTaxLine(),
		Groups:       make([]groupView, 0, len(bd.Groups)),
		Totals:       newTotalsView(bd.Totals),
	}
	for _, g := range bd.Groups {
		gv := groupView{Bucket: string(g.Bucket), Subtotal: g.Subtotal.StringFixed(2)}
		for _, l := range g.Lines {
			gv.Lines = append(gv.Lines, lineView{
				Category:  l.Item.Category,
				Name:      l.Item.Name,
				Quantity:  l.Item.Quantity,
				UnitPrice: l.Item.UnitPrice.StringFixed(2),
				Sum:       l.Sum().StringFixed(2),
			})
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

type fileView struct {
	Kind        model.DocumentKind `json:"kind"`
	Name        string             `json:"name"`
	ContentType string             `json:"content_type"`
	Size        int                `json:"size"`
	// Data is base64 encoded by encoding/json.
	Data []byte `json:"data"`
}

type quoteResponse struct {
	Totals   totalsView       `json:"totals"`
	Files    []fileView       `json:"files"`
	Warnings []string         `json:"warnings"`
	Archived []model.Document `json:"archived,omitempty"`
}

// ComputeTotals previews the breakdown of a request without rendering.
func ComputeTotals(gen service.GenerationService, src catalog.Source, vendors *service.VendorDirectory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseQuoteRequest(c, src, vendors)
		if err != nil {
			return writeServiceError(c, err)
		}
		bd, err := gen.Totals(c.UserContext(), req.Items, req.Vendor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newBreakdownView(bd))
	}
}

// GenerateQuotes runs the pipeline and returns every file inline.
func GenerateQuotes(gen service.GenerationService, src catalog.Source, vendors *service.VendorDirectory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseQuoteRequest(c, src, vendors)
		if err != nil {
			return writeServiceError(c, err)
		}
		res, err := gen.Generate(c.UserContext(), req)
		if err != nil {
			return writeServiceError(c, err)
		}

		out := quoteResponse{
			Totals:   newTotalsView(res.Totals),
			Files:    make([]fileView, 0, len(res.Files)),
			Warnings: res.Warnings,
			Archived: res.Archived,
		}
		if out.Warnings == nil {
			out.Warnings = []string{}
		}
		for _, f := range res.Files {
			out.Files = append(out.Files, fileView{
				Kind:        f.Kind,
				Name:        f.Name,
				ContentType: f.ContentType,
				Size:        len(f.Data),
				Data:        f.Data,
			})
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	}
}

// DownloadQuote runs the pipeline and returns one file as an attachment.
// ?format=pdf selects the converted copy.
func DownloadQuote(gen service.GenerationService, src catalog.Source, vendors *service.VendorDirectory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind := model.DocumentKind(c.Params("kind"))
		switch kind {
		case model.KindQuotation, model.KindSupplySpec, model.KindWorksSpec:
		default:
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", "kind must be quotation, supply or works")
		}
		mime := packager.DocxMIME
		switch c.Query("format", "docx") {
		case "docx":
		case "pdf":
			mime = packager.PDFMIME
		default:
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORMAT", "format must be docx or pdf")
		}

		req, err := parseQuoteRequest(c, src, vendors)
		if err != nil {
			return writeServiceError(c, err)
		}
		res, err := gen.Generate(c.UserContext(), req)
		if err != nil {
			return writeServiceError(c, err)
		}
		f, ok := res.File(kind, mime)
		if !ok {
			return writeError(c, fiber.StatusNotFound, "NOT_GENERATED", "document was not generated for this request")
		}

		c.Set(fiber.HeaderContentType, f.ContentType)
		c.Set(fiber.HeaderContentDisposition, contentDisposition(f.Name))
		c.Set("X-Warnings", strconv.Itoa(len(res.Warnings)))
		return c.Send(f.Data)
	}
}

// contentDisposition keeps an ASCII fallback next to the RFC 5987 UTF-8 name.
func contentDisposition(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + url.PathEscape(name)
}

type catalogItemView struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
}

type catalogCategoryView struct {
	Category string            `json:"category"`
	Items    []catalogItemView `json:"items"`
}

// ListCatalog returns the price list grouped by category.
func ListCatalog(src catalog.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat := catalog.New(nil)
		if src != nil {
			var err error
			if cat, err = src.Load(c.UserContext()); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "catalog unavailable")
			}
		}
		out := make([]catalogCategoryView, 0, len(cat.Categories()))
		for _, category := range cat.Categories() {
			cv := catalogCategoryView{Category: category}
			for _, e := range cat.Items(category) {
				cv.Items = append(cv.Items, catalogItemView{Name: e.Name, UnitPrice: e.UnitPrice.StringFixed(2)})
			}
			out = append(out, cv)
		}
		return c.JSON(fiber.Map{"data": out, "total": cat.Len()})
	}
}

// ListVendors returns the configured issuing companies.
func ListVendors(vendors *service.VendorDirectory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if vendors == nil {
			return c.JSON(fiber.Map{"data": []model.VendorProfile{}, "default": ""})
		}
		return c.JSON(fiber.Map{"data": vendors.All(), "default": vendors.Default()})
	}
}
