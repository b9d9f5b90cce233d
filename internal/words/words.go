// Package words renders monetary amounts as text for the "amount in words" line of a document.
package words

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"

	"quotegen/internal/money"
)

var ErrOutOfRange = errors.New("number out of range")

// Converter spells a non-negative integer.
type Converter interface {
	Words(n int64) (string, error)
}

// Locale bundles a converter with the fixed currency nouns.
type Locale struct {
	Code        string
	Converter   Converter
	UnitNoun    string
	SubunitNoun string
	// Abbrev follows the numeral when the converter fails.
	Abbrev string
}

var (
	UkrainianHryvnia = Locale{
		Code:        "uk",
		Converter:   Ukrainian{},
		UnitNoun:    "гривень",
		SubunitNoun: "копійок",
		Abbrev:      "грн",
	}
	EnglishHryvnia = Locale{
		Code:        "en",
		Converter:   English{},
		UnitNoun:    "hryvnias",
		SubunitNoun: "kopiikas",
		Abbrev:      "UAH",
	}
)

// LocaleFor returns the locale for code, defaulting to Ukrainian.
func LocaleFor(code string) Locale {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "en", "en-us", "en-gb":
		return EnglishHryvnia
	default:
		return UkrainianHryvnia
	}
}

// English spells integers with num2words.
type English struct{}

// MaxEnglish keeps values inside the range num2words handles on every platform.
const MaxEnglish = math.MaxInt32

// Words implements Converter.
func (English) Words(n int64) (string, error) {
	if n < 0 || n > MaxEnglish {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	return num2words.Convert(int(n)), nil
}

// AmountToWords renders amount as "<words> <unit> NN <subunit>". It never fails:
// any converter error or panic falls back to "<numeral> <abbrev>".
func AmountToWords(amount decimal.Decimal, loc Locale) (out string) {
	amount = amount.Round(2)
	fallback := money.Format(amount) + " " + loc.Abbrev

	if loc.Converter == nil || amount.IsNegative() {
		return fallback
	}
	defer func() {
		if r := recover(); r != nil {
			out = fallback
		}
	}()

	whole := amount.Floor()
	sub := amount.Sub(whole).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if !whole.LessThanOrEqual(decimal.NewFromInt(math.MaxInt64)) {
		return fallback
	}
	text, err := loc.Converter.Words(whole.IntPart())
	if err != nil || text == "" {
		return fallback
	}
	return fmt.Sprintf("%s %s %02d %s", text, loc.UnitNoun, sub, loc.SubunitNoun)
}
