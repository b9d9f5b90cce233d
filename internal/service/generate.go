package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fumiama/go-docx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"quotegen/internal/config"
	"quotegen/internal/convert"
	"quotegen/internal/docxtpl"
	"quotegen/internal/ledger"
	"quotegen/internal/model"
	"quotegen/internal/money"
	"quotegen/internal/notify"
	"quotegen/internal/packager"
	"quotegen/internal/templates"
	"quotegen/internal/totals"
	"quotegen/internal/words"
)

var ErrNoItems = errors.New("at least one line item is required")

const dateLayout = "02.01.2006"

// Replacements is the full set of template placeholders.
type Replacements struct {
	DocumentNumber    string
	Date              string
	Customer          string
	Address           string
	ResponsiblePerson string
	Phone             string
	Email             string
	VendorName        string
	VendorShort       string
	VendorTaxID       string
	VendorAddress     string
	VendorBank        string
	TaxLabel          string
	Intro             string
	Subtotal          string
	TaxTotal          string
	TotalDigits       string
	TotalWords        string
}

// Map returns the values keyed by placeholder name.
func (r Replacements) Map() map[string]string {
	return map[string]string{
		"kp_num":           r.DocumentNumber,
		"date":             r.Date,
		"customer":         r.Customer,
		"address":          r.Address,
		"responsible":      r.ResponsiblePerson,
		"phone":            r.Phone,
		"email":            r.Email,
		"vendor_name":      r.VendorName,
		"vendor_short":     r.VendorShort,
		"vendor_tax_id":    r.VendorTaxID,
		"vendor_address":   r.VendorAddress,
		"vendor_bank":      r.VendorBank,
		"tax_label":        r.TaxLabel,
		"intro":            r.Intro,
		"subtotal":         r.Subtotal,
		"tax_total":        r.TaxTotal,
		"total_sum_digits": r.TotalDigits,
		"total_sum_words":  r.TotalWords,
	}
}

// withTotals sets the amount placeholders for t.
func (r Replacements) withTotals(t model.TotalsResult, loc words.Locale) Replacements {
	r.Subtotal = money.Format(t.Subtotal)
	r.TaxTotal = money.Format(t.Tax)
	r.TotalDigits = money.Format(t.GrandTotal)
	r.TotalWords = words.AmountToWords(t.GrandTotal, loc)
	return r
}

// Presentation holds the labels and formats documents are rendered with.
type Presentation struct {
	FilePattern   string
	TypeLabels    map[model.DocumentKind]string
	BucketTitles  map[totals.Bucket]string
	SubtotalLabel string
	GrandLabel    string
	Locale        words.Locale
	Location      *time.Location
}

// PresentationFromProfile reads labels from the business profile.
func PresentationFromProfile(p *config.Profile, loc *time.Location) Presentation {
	pres := Presentation{
		FilePattern:   p.FilePattern,
		TypeLabels:    make(map[model.DocumentKind]string),
		BucketTitles:  make(map[totals.Bucket]string),
		SubtotalLabel: p.Summary.Subtotal,
		GrandLabel:    p.Summary.Grand,
		Locale:        words.LocaleFor(p.Locale),
		Location:      loc,
	}
	for _, k := range []model.DocumentKind{model.KindQuotation, model.KindSupplySpec, model.KindWorksSpec} {
		pres.TypeLabels[k] = p.TypeLabel(k)
	}
	for b := range p.Buckets.Titles {
		pres.BucketTitles[totals.Bucket(b)] = p.BucketTitle(totals.Bucket(b))
	}
	return pres
}

func (p Presentation) typeLabel(kind model.DocumentKind) string {
	if l := p.TypeLabels[kind]; l != "" {
		return l
	}
	return string(kind)
}

func (p Presentation) bucketTitle(b totals.Bucket) string {
	if t := p.BucketTitles[b]; t != "" {
		return t
	}
	return string(b)
}

func (p Presentation) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// GenerationResult is what one generate action produced.
type GenerationResult struct {
	Files     []model.GeneratedFile `json:"files"`
	Totals    model.TotalsResult    `json:"totals"`
	Breakdown totals.Breakdown      `json:"-"`
	// Warnings lists best-effort steps that failed; the files are still valid.
	Warnings []string         `json:"warnings"`
	Archived []model.Document `json:"archived,omitempty"`
}

// File returns the first file of kind with the given MIME type.
func (r *GenerationResult) File(kind model.DocumentKind, contentType string) (model.GeneratedFile, bool) {
	for _, f := range r.Files {
		if f.Kind == kind && f.ContentType == contentType {
			return f, true
		}
	}
	return model.GeneratedFile{}, false
}

func (r *GenerationResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// GenerationService runs the document pipeline.
type GenerationService interface {
	// Generate builds the quotation and, when their items and templates exist,
	// the supply and works specifications. Only a quotation failure is an error.
	Generate(ctx context.Context, req model.DocumentRequest) (*GenerationResult, error)

	// Totals computes the breakdown without rendering anything.
	Totals(ctx context.Context, items []model.LineItem, vendor model.VendorProfile) (totals.Breakdown, error)
}

// GeneratorDeps wires the pipeline. Archive, Ledger, Notifier, Converter and
// Metrics are optional.
type GeneratorDeps struct {
	Calculator   *totals.Calculator
	Templates    templates.Store
	Populator    *docxtpl.Populator
	Presentation Presentation
	Archive      ArchiveService
	Ledger       ledger.Sink
	Notifier     notify.Notifier
	Converter    convert.Converter
	Metrics      *Metrics
	Logger       *slog.Logger
}

type generator struct {
	GeneratorDeps
	tracer trace.Tracer
	now    func() time.Time
}

// NewGenerationService constructs a GenerationService.
func NewGenerationService(deps GeneratorDeps) GenerationService {
	if deps.Calculator == nil {
		deps.Calculator = totals.NewCalculator(nil)
	}
	if deps.Populator == nil {
		deps.Populator = &docxtpl.Populator{}
	}
	if deps.Presentation.FilePattern == "" {
		deps.Presentation.FilePattern = packager.DefaultPattern
	}
	if deps.Presentation.Locale.Converter == nil {
		deps.Presentation.Locale = words.UkrainianHryvnia
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &generator{
		GeneratorDeps: deps,
		tracer:        otel.Tracer("quotegen/internal/service"),
		now:           time.Now,
	}
}

func (g *generator) Totals(ctx context.Context, items []model.LineItem, vendor model.VendorProfile) (totals.Breakdown, error) {
	_, span := g.tracer.Start(ctx, "totals.compute")
	defer span.End()
	bd, err := g.Calculator.Compute(items, vendor.TaxRate, vendor.TaxMode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return bd, err
}

func (g *generator) Generate(ctx context.Context, req model.DocumentRequest) (*GenerationResult, error) {
	ctx, span := g.tracer.Start(ctx, "generate", trace.WithAttributes(
		attribute.String("document.number", req.DocumentNumber),
		attribute.Int("document.items", len(req.Items)),
	))
	defer span.End()

	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	bd, err := g.Totals(ctx, req.Items, req.Vendor)
	if err != nil {
		return nil, err
	}

	// Request dates are calendar dates and print as given.
	date := req.Date
	if date.IsZero() {
		date = g.now().In(g.Presentation.location())
	}
	base := g.replacements(req, date)
	res := &GenerationResult{Totals: bd.Totals, Breakdown: bd}

	quote, err := g.render(ctx, model.KindQuotation, req, bd, base)
	if err != nil {
		g.Metrics.document(string(model.KindQuotation), OutcomeFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.Logger.Error("generate.quotation.failed", "number", req.DocumentNumber, "err", err)
		return nil, fmt.Errorf("quotation: %w", err)
	}
	g.Metrics.document(string(model.KindQuotation), OutcomeOK)
	res.Files = append(res.Files, quote)

	specs := []struct {
		kind  model.DocumentKind
		works bool
	}{
		{model.KindSupplySpec, false},
		{model.KindWorksSpec, true},
	}
	for _, part := range specs {
		items := g.subset(req.Items, part.works)
		if len(items) == 0 {
			g.Metrics.document(string(part.kind), OutcomeSkipped)
			continue
		}
		f, ok := g.specification(ctx, part.kind, req, items, base, res)
		if ok {
			res.Files = append(res.Files, f)
		}
	}

	g.convert(ctx, res)
	g.archive(ctx, req, res)
	g.log(ctx, req, date, res)
	g.notify(ctx, req, res)

	g.Logger.Info("generate.ok",
		"number", req.DocumentNumber,
		"files", len(res.Files),
		"grand_total", res.Totals.GrandTotal.StringFixed(2),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

func (g *generator) specification(ctx context.Context, kind model.DocumentKind, req model.DocumentRequest, items []model.LineItem, base Replacements, res *GenerationResult) (model.GeneratedFile, bool) {
	bd, err := g.Calculator.Compute(items, req.Vendor.TaxRate, req.Vendor.TaxMode)
	if err != nil {
		g.Metrics.document(string(kind), OutcomeFailed)
		res.warn("%s: %v", kind, err)
		return model.GeneratedFile{}, false
	}
	f, err := g.render(ctx, kind, req, bd, base)
	switch {
	case errors.Is(err, templates.ErrTemplateNotFound):
		g.Metrics.document(string(kind), OutcomeSkipped)
		g.Logger.Info("generate.template.missing", "kind", kind, "err", err)
		return model.GeneratedFile{}, false
	case err != nil:
		g.Metrics.document(string(kind), OutcomeFailed)
		g.Metrics.failure(SinkOutput)
		g.Logger.Warn("generate.specification.failed", "kind", kind, "err", err)
		res.warn("%s: %v", kind, err)
		return model.GeneratedFile{}, false
	}
	g.Metrics.document(string(kind), OutcomeOK)
	return f, true
}

// render opens the template of kind, fills it for bd and packages it.
func (g *generator) render(ctx context.Context, kind model.DocumentKind, req model.DocumentRequest, bd totals.Breakdown, base Replacements) (model.GeneratedFile, error) {
	ctx, span := g.tracer.Start(ctx, "generate.render", trace.WithAttributes(attribute.String("document.kind", string(kind))))
	defer span.End()

	doc, err := g.Templates.Open(ctx, kind)
	if err != nil {
		span.RecordError(err)
		return model.GeneratedFile{}, err
	}
	reps := base.withTotals(bd.Totals, g.Presentation.Locale)
	out := g.populator(kind).Populate(doc, reps.Map(), g.table(bd, req.Vendor))
	if !out.TableFound {
		g.Logger.Debug("generate.table.missing", "kind", kind)
	}
	span.SetAttributes(
		attribute.Int("docx.substitutions", out.Substitutions),
		attribute.Int("docx.rows_added", out.RowsAdded),
	)
	return g.pack(doc, kind, req)
}

// populator returns the configured populator; labels are bolded on the
// quotation only.
func (g *generator) populator(kind model.DocumentKind) *docxtpl.Populator {
	if kind == model.KindQuotation || len(g.Populator.BoldLabels) == 0 {
		return g.Populator
	}
	plain := *g.Populator
	plain.BoldLabels = nil
	return &plain
}

func (g *generator) pack(doc *docx.Docx, kind model.DocumentKind, req model.DocumentRequest) (model.GeneratedFile, error) {
	identifier := req.SiteAddress
	if strings.TrimSpace(identifier) == "" {
		identifier = req.CustomerName
	}
	name := packager.FileName(g.Presentation.FilePattern, g.Presentation.typeLabel(kind), req.DocumentNumber, identifier)
	return packager.Package(doc, kind, name)
}

// table lays out the grouped rows and the summary for bd.
func (g *generator) table(bd totals.Breakdown, vendor model.VendorProfile) docxtpl.TableData {
	var td docxtpl.TableData
	for _, grp := range bd.Groups {
		sec := docxtpl.Section{Title: g.Presentation.bucketTitle(grp.Bucket)}
		for _, l := range grp.Lines {
			sec.Rows = append(sec.Rows, docxtpl.Row{
				Name:      l.Item.Name,
				Quantity:  l.Item.Quantity,
				UnitPrice: l.Item.UnitPrice,
				Sum:       l.Sum(),
				Marker:    vendor.TaxMarker,
			})
		}
		td.Sections = append(td.Sections, sec)
	}
	if bd.ShowsTaxLine() {
		td.Summary = append(td.Summary,
			docxtpl.SummaryRow{Label: g.Presentation.SubtotalLabel, Amount: bd.Totals.Subtotal},
			docxtpl.SummaryRow{Label: vendor.TaxLabel, Amount: bd.Totals.Tax},
		)
	}
	td.Summary = append(td.Summary, docxtpl.SummaryRow{Label: g.Presentation.GrandLabel, Amount: bd.Totals.GrandTotal, Bold: true})
	return td
}

// subset returns the items in the works bucket, or all others.
func (g *generator) subset(items []model.LineItem, works bool) []model.LineItem {
	var out []model.LineItem
	for _, it := range items {
		if (g.Calculator.Classifier().Classify(it.Category) == totals.BucketWorks) == works {
			out = append(out, it)
		}
	}
	return out
}

func (g *generator) replacements(req model.DocumentRequest, date time.Time) Replacements {
	v := req.Vendor
	return Replacements{
		DocumentNumber:    req.DocumentNumber,
		Date:              date.Format(dateLayout),
		Customer:          req.CustomerName,
		Address:           req.SiteAddress,
		ResponsiblePerson: req.ResponsiblePerson,
		Phone:             req.Phone,
		Email:             req.Email,
		VendorName:        v.LegalName,
		VendorShort:       v.ShortName,
		VendorTaxID:       v.TaxID,
		VendorAddress:     v.Address,
		VendorBank:        v.BankAccount,
		TaxLabel:          v.TaxLabel,
		Intro:             strings.Join(req.IntroParagraphs, "\n"),
	}
}

func (g *generator) convert(ctx context.Context, res *GenerationResult) {
	if g.Converter == nil {
		return
	}
	ctx, span := g.tracer.Start(ctx, "generate.convert")
	defer span.End()

	var pdfs []model.GeneratedFile
	for _, f := range res.Files {
		pdf, err := g.Converter.ToPDF(ctx, f)
		if err != nil {
			span.RecordError(err)
			g.Metrics.failure(SinkConvert)
			g.Logger.Warn("convert.pdf.failed", "file", f.Name, "err", err)
			res.warn("convert %s: %v", f.Name, err)
			continue
		}
		pdfs = append(pdfs, pdf)
	}
	res.Files = append(res.Files, pdfs...)
}

func (g *generator) archive(ctx context.Context, req model.DocumentRequest, res *GenerationResult) {
	if g.Archive == nil {
		return
	}
	ctx, span := g.tracer.Start(ctx, "generate.archive")
	defer span.End()

	meta := ArchiveMeta{
		DocumentNumber: req.DocumentNumber,
		Customer:       req.CustomerName,
		Vendor:         req.Vendor.ID,
		GrandTotal:     res.Totals.GrandTotal,
	}
	for _, f := range res.Files {
		doc, err := g.Archive.Archive(ctx, f, meta)
		if err != nil {
			span.RecordError(err)
			g.Metrics.failure(SinkArchive)
			g.Logger.Warn("archive.store.failed", "file", f.Name, "err", err)
			res.warn("archive %s: %v", f.Name, err)
			continue
		}
		res.Archived = append(res.Archived, *doc)
	}
}

func (g *generator) log(ctx context.Context, req model.DocumentRequest, date time.Time, res *GenerationResult) {
	if g.Ledger == nil {
		return
	}
	ctx, span := g.tracer.Start(ctx, "generate.ledger")
	defer span.End()

	names := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		names = append(names, f.Name)
	}
	vendor := req.Vendor.ShortName
	if vendor == "" {
		vendor = req.Vendor.ID
	}
	err := g.Ledger.Append(ctx, ledger.Entry{
		Date:           date,
		Time:           g.now(),
		DocumentNumber: req.DocumentNumber,
		Customer:       req.CustomerName,
		Address:        req.SiteAddress,
		Vendor:         vendor,
		Responsible:    req.ResponsiblePerson,
		Items:          len(req.Items),
		Subtotal:       res.Totals.Subtotal,
		Tax:            res.Totals.Tax,
		GrandTotal:     res.Totals.GrandTotal,
		Files:          names,
	})
	if err != nil {
		span.RecordError(err)
		g.Metrics.failure(SinkLedger)
		g.Logger.Warn("ledger.append.failed", "number", req.DocumentNumber, "err", err)
		res.warn("ledger: %v", err)
	}
}

func (g *generator) notify(ctx context.Context, req model.DocumentRequest, res *GenerationResult) {
	if g.Notifier == nil {
		return
	}
	ctx, span := g.tracer.Start(ctx, "generate.notify")
	defer span.End()

	caption := fmt.Sprintf("%s %s\n%s\n%s %s",
		g.Presentation.typeLabel(model.KindQuotation), req.DocumentNumber,
		req.CustomerName,
		money.Format(res.Totals.GrandTotal), g.Presentation.Locale.Abbrev,
	)
	if err := g.Notifier.Notify(ctx, caption, res.Files); err != nil {
		span.RecordError(err)
		g.Metrics.failure(SinkNotify)
		g.Logger.Warn("notify.telegram.failed", "number", req.DocumentNumber, "err", err)
		res.warn("notify: %v", err)
	}
}
