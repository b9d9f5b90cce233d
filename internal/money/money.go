// Package money formats and parses cent amounts.
package money

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// groupedWhole groups the integer part with spaces and prints no fraction.
const groupedWhole = "# ###."

// Format prints a two-place amount with spaces between thousands, e.g. "1 234.56".
func Format(amount decimal.Decimal) string {
	cents := amount.Round(2)
	sign := ""
	if cents.IsNegative() {
		sign, cents = "-", cents.Neg()
	}
	fixed := cents.StringFixed(2)
	return sign + humanize.FormatInteger(groupedWhole, int(cents.IntPart())) + fixed[len(fixed)-3:]
}

var priceCleaner = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u202f", "",
	"\t", "",
	"грн.", "",
	"грн", "",
	"UAH", "",
	"₴", "",
)

// Parse reads a price cell leniently: thousands spaces, a decimal comma and a
// currency suffix are accepted. Anything unparsable or negative yields zero and ok=false.
func Parse(raw string) (price decimal.Decimal, ok bool) {
	s := priceCleaner.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}
