package words

import (
	"fmt"
	"strings"
)

// MaxUkrainian is the largest integer the built-in Ukrainian converter spells out.
const MaxUkrainian = 999_999_999_999

var (
	ukOnesMasc = []string{"", "один", "два", "три", "чотири", "п'ять", "шість", "сім", "вісім", "дев'ять"}
	ukOnesFem  = []string{"", "одна", "дві", "три", "чотири", "п'ять", "шість", "сім", "вісім", "дев'ять"}
	ukTeens    = []string{"десять", "одинадцять", "дванадцять", "тринадцять", "чотирнадцять", "п'ятнадцять",
		"шістнадцять", "сімнадцять", "вісімнадцять", "дев'ятнадцять"}
	ukTens = []string{"", "", "двадцять", "тридцять", "сорок", "п'ятдесят", "шістдесят", "сімдесят",
		"вісімдесят", "дев'яносто"}
	ukHundreds = []string{"", "сто", "двісті", "триста", "чотириста", "п'ятсот", "шістсот", "сімсот",
		"вісімсот", "дев'ятсот"}
)

type ukScale struct {
	forms    [3]string // one, few, many
	feminine bool
}

// index 0 is the unit group; hryvnia is feminine.
var ukScales = []ukScale{
	{feminine: true},
	{forms: [3]string{"тисяча", "тисячі", "тисяч"}, feminine: true},
	{forms: [3]string{"мільйон", "мільйони", "мільйонів"}},
	{forms: [3]string{"мільярд", "мільярди", "мільярдів"}},
}

// Ukrainian spells non-negative integers in Ukrainian.
type Ukrainian struct{}

// Words implements Converter.
func (Ukrainian) Words(n int64) (string, error) {
	if n < 0 || n > MaxUkrainian {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	if n == 0 {
		return "нуль", nil
	}

	var groups []int
	for v := n; v > 0; v /= 1000 {
		groups = append(groups, int(v%1000))
	}

	var parts []string
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			continue
		}
		parts = append(parts, ukTriple(g, ukScales[i].feminine)...)
		if i > 0 {
			parts = append(parts, ukScales[i].forms[ukPluralForm(g)])
		}
	}
	return strings.Join(parts, " "), nil
}

func ukTriple(n int, feminine bool) []string {
	var out []string
	if h := n / 100; h > 0 {
		out = append(out, ukHundreds[h])
	}
	rest := n % 100
	switch {
	case rest >= 10 && rest < 20:
		out = append(out, ukTeens[rest-10])
	default:
		if t := rest / 10; t > 0 {
			out = append(out, ukTens[t])
		}
		if u := rest % 10; u > 0 {
			if feminine {
				out = append(out, ukOnesFem[u])
			} else {
				out = append(out, ukOnesMasc[u])
			}
		}
	}
	return out
}

// ukPluralForm picks the one/few/many noun form for n.
func ukPluralForm(n int) int {
	n100 := n % 100
	n10 := n % 10
	switch {
	case n100 >= 11 && n100 <= 14:
		return 2
	case n10 == 1:
		return 0
	case n10 >= 2 && n10 <= 4:
		return 1
	default:
		return 2
	}
}
