package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"quotegen/internal/model"
	"quotegen/internal/totals"
)

var ErrInvalidProfile = errors.New("invalid profile")

// Profile is the business configuration: who issues documents, how items are
// grouped and which labels the templates expect. It is loaded once at startup.
type Profile struct {
	Locale        string            `yaml:"locale"`
	FilePattern   string            `yaml:"file_pattern"`
	TypeLabels    map[string]string `yaml:"type_labels"`
	DefaultVendor string            `yaml:"default_vendor"`
	Vendors       []Vendor          `yaml:"vendors"`
	Buckets       Buckets           `yaml:"buckets"`
	BoldLabels    []string          `yaml:"bold_labels"`
	Sentinels     []string          `yaml:"sentinels"`
	Summary       SummaryLabels     `yaml:"summary"`
	Catalog       []CatalogCategory `yaml:"catalog"`
}

// Vendor keeps the rate as text so YAML floats never leak into money math.
type Vendor struct {
	ID          string `yaml:"id"`
	LegalName   string `yaml:"legal_name"`
	ShortName   string `yaml:"short_name"`
	TaxID       string `yaml:"tax_id"`
	Address     string `yaml:"address"`
	BankAccount string `yaml:"bank_account"`
	TaxLabel    string `yaml:"tax_label"`
	TaxRate     string `yaml:"tax_rate"`
	TaxMode     string `yaml:"tax_mode"`
	TaxMarker   string `yaml:"tax_marker"`
}

type Buckets struct {
	Rules   []BucketRule      `yaml:"rules"`
	Default string            `yaml:"default"`
	Order   []string          `yaml:"order"`
	Titles  map[string]string `yaml:"titles"`
}

type BucketRule struct {
	Bucket   string   `yaml:"bucket"`
	Keywords []string `yaml:"keywords"`
}

type SummaryLabels struct {
	Subtotal string `yaml:"subtotal"`
	Grand    string `yaml:"grand"`
}

type CatalogCategory struct {
	Category string        `yaml:"category"`
	Items    []CatalogItem `yaml:"items"`
}

type CatalogItem struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// DefaultProfile is used when no profile file is configured.
func DefaultProfile() *Profile {
	return &Profile{
		Locale:      "uk",
		FilePattern: "{type}_{number}_{identifier}.docx",
		TypeLabels: map[string]string{
			string(model.KindQuotation):  "КП",
			string(model.KindSupplySpec): "Spec_Postavka",
			string(model.KindWorksSpec):  "Spec_Roboti",
		},
		DefaultVendor: "tov",
		Vendors: []Vendor{
			{
				ID:        "tov",
				LegalName: "ТОВ «Сонячна Енергія»",
				ShortName: "ТОВ «СЕ»",
				TaxID:     "12345678",
				Address:   "м. Київ, вул. Хрещатик, 1",
				TaxLabel:  "ПДВ 20%",
				TaxRate:   "0.20",
				TaxMode:   string(model.TaxAdditive),
				TaxMarker: "20%",
			},
			{
				ID:        "fop",
				LegalName: "ФОП Іваненко Іван Іванович",
				ShortName: "ФОП Іваненко І.І.",
				TaxID:     "1234567890",
				Address:   "м. Київ",
				TaxLabel:  "Без ПДВ",
				TaxRate:   "0",
				TaxMode:   string(model.TaxAdditive),
				TaxMarker: "без ПДВ",
			},
		},
		Buckets: Buckets{
			Rules: []BucketRule{
				{Bucket: string(totals.BucketWorks), Keywords: []string{"робот", "послуг", "монтаж", "work", "service"}},
				{Bucket: string(totals.BucketComponents), Keywords: []string{"комплектуюч", "component"}},
				{Bucket: string(totals.BucketMaterials), Keywords: []string{"матеріал", "кабел", "material", "cable", "kit", "panel"}},
			},
			Default: string(totals.BucketEquipment),
			Order: []string{
				string(totals.BucketEquipment),
				string(totals.BucketMaterials),
				string(totals.BucketComponents),
				string(totals.BucketWorks),
			},
			Titles: map[string]string{
				string(totals.BucketEquipment):  "ОБЛАДНАННЯ",
				string(totals.BucketMaterials):  "МАТЕРІАЛИ",
				string(totals.BucketComponents): "КОМПЛЕКТУЮЧІ",
				string(totals.BucketWorks):      "РОБОТИ",
			},
		},
		BoldLabels: []string{
			"Комерційна пропозиція:",
			"Дата:",
			"Замовник:",
			"Адреса:",
			"Виконавець:",
			"Контактний телефон:",
		},
		Sentinels: []string{"Найменування", "Назва", "Name"},
		Summary: SummaryLabels{
			Subtotal: "Разом, грн",
			Grand:    "ЗАГАЛЬНА ВАРТІСТЬ, грн",
		},
		Catalog: []CatalogCategory{
			{Category: "Обладнання", Items: []CatalogItem{
				{Name: "Інвертор гібридний 10 кВт", Price: "50000.00"},
				{Name: "Акумулятор LiFePO4 5 кВт·год", Price: "42000.00"},
			}},
			{Category: "Матеріали", Items: []CatalogItem{
				{Name: "Кабель сонячний 6 мм², м", Price: "100.00"},
				{Name: "Сонячна панель 550 Вт", Price: "5200.00"},
			}},
			{Category: "Комплектуючі", Items: []CatalogItem{
				{Name: "Автоматичний вимикач DC", Price: "850.00"},
			}},
			{Category: "Роботи", Items: []CatalogItem{
				{Name: "Монтаж сонячної електростанції", Price: "15000.00"},
				{Name: "Пусконалагоджувальні роботи", Price: "5000.00"},
			}},
		},
	}
}

// LoadProfile reads a YAML profile over the defaults. An empty path returns
// DefaultProfile. Lists present in the file replace the defaults, maps are merged.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks every vendor and the bucket configuration.
func (p *Profile) Validate() error {
	var errs []error
	if len(p.Vendors) == 0 {
		errs = append(errs, errors.New("at least one vendor is required"))
	}
	seen := make(map[string]bool, len(p.Vendors))
	for i, v := range p.Vendors {
		if v.ID == "" {
			errs = append(errs, fmt.Errorf("vendors[%d]: id is required", i))
		} else if seen[v.ID] {
			errs = append(errs, fmt.Errorf("vendors[%d]: duplicate id %q", i, v.ID))
		}
		seen[v.ID] = true
		if _, err := v.profile(); err != nil {
			errs = append(errs, fmt.Errorf("vendors[%d]: %w", i, err))
		}
	}
	if p.DefaultVendor != "" && !seen[p.DefaultVendor] {
		errs = append(errs, fmt.Errorf("default_vendor %q is not a configured vendor", p.DefaultVendor))
	}
	for i, r := range p.Buckets.Rules {
		if r.Bucket == "" || len(r.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("buckets.rules[%d]: bucket and keywords are required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, errors.Join(errs...))
	}
	return nil
}

func (v Vendor) profile() (model.VendorProfile, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(v.TaxRate))
	if err != nil {
		return model.VendorProfile{}, fmt.Errorf("tax_rate %q: %w", v.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return model.VendorProfile{}, fmt.Errorf("tax_rate %s is outside [0, 1]", rate)
	}
	if strings.TrimSpace(v.TaxLabel) == "" {
		return model.VendorProfile{}, errors.New("tax_label is required together with tax_rate")
	}
	mode := model.TaxMode(v.TaxMode)
	if mode == "" {
		mode = model.TaxAdditive
	}
	if !mode.Valid() {
		return model.VendorProfile{}, fmt.Errorf("unknown tax_mode %q", v.TaxMode)
	}
	return model.VendorProfile{
		ID:          v.ID,
		LegalName:   v.LegalName,
		ShortName:   v.ShortName,
		TaxID:       v.TaxID,
		Address:     v.Address,
		BankAccount: v.BankAccount,
		TaxLabel:    v.TaxLabel,
		TaxRate:     rate,
		TaxMode:     mode,
		TaxMarker:   v.TaxMarker,
	}, nil
}

// VendorProfiles converts the configured vendors, in file order.
func (p *Profile) VendorProfiles() ([]model.VendorProfile, error) {
	out := make([]model.VendorProfile, 0, len(p.Vendors))
	for _, v := range p.Vendors {
		vp, err := v.profile()
		if err != nil {
			return nil, fmt.Errorf("vendor %q: %w", v.ID, err)
		}
		out = append(out, vp)
	}
	return out, nil
}

// Classifier builds the bucket classifier. Without rules the built-in one is used.
func (p *Profile) Classifier() *totals.Classifier {
	if len(p.Buckets.Rules) == 0 {
		return totals.DefaultClassifier()
	}
	c := &totals.Classifier{Default: totals.Bucket(p.Buckets.Default)}
	if c.Default == "" {
		c.Default = totals.BucketEquipment
	}
	for _, r := range p.Buckets.Rules {
		c.Rules = append(c.Rules, totals.Rule{Bucket: totals.Bucket(r.Bucket), Keywords: r.Keywords})
	}
	for _, b := range p.Buckets.Order {
		c.Order = append(c.Order, totals.Bucket(b))
	}
	return c
}

// BucketTitle is the header printed above a bucket's rows.
func (p *Profile) BucketTitle(b totals.Bucket) string {
	if t, ok := p.Buckets.Titles[string(b)]; ok && t != "" {
		return t
	}
	return string(b)
}

// TypeLabel is the {type} part of generated file names.
func (p *Profile) TypeLabel(kind model.DocumentKind) string {
	if t, ok := p.TypeLabels[string(kind)]; ok && t != "" {
		return t
	}
	return string(kind)
}
