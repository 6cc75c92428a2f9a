package pricing

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when the caller has no usable locale preference.
var DefaultLocale = language.English

// Languages that place the currency symbol after the amount, joined by a
// no-break space ("28.000\u00a0€").
var symbolAfterAmount = map[string]bool{
	"cs": true, "da": true, "de": true, "es": true, "fi": true, "fr": true,
	"hu": true, "it": true, "nb": true, "pl": true, "ru": true, "sk": true,
	"sv": true,
}

// Formatter renders amounts as whole-unit currency strings for one locale.
type Formatter struct {
	tag         language.Tag
	printer     *message.Printer
	symbolAfter bool
}

func NewFormatter(tag language.Tag) *Formatter {
	if tag == language.Und {
		tag = DefaultLocale
	}
	base, _ := tag.Base()
	return &Formatter{
		tag:         tag,
		printer:     message.NewPrinter(tag),
		symbolAfter: symbolAfterAmount[base.String()],
	}
}

// NewFormatterForLocale parses a BCP 47 locale such as "en" or "de-DE" and
// falls back to DefaultLocale when it cannot be parsed.
func NewFormatterForLocale(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = DefaultLocale
	}
	return NewFormatter(tag)
}

// LocaleFromAcceptLanguage returns the most preferred tag of an
// Accept-Language header, or DefaultLocale.
func LocaleFromAcceptLanguage(header string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	return tags[0]
}

func (f *Formatter) Locale() language.Tag {
	return f.tag
}

// FormatPrice formats a decimal string in the given currency (EUR when empty)
// with no fractional digits. Whenever the input cannot be formatted it is
// returned unchanged.
func (f *Formatter) FormatPrice(input string, currencyCode string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = input
		}
	}()

	value, err := ParseAmount(input)
	if err != nil {
		return input
	}
	formatted, err := f.format(value, currencyCode)
	if err != nil {
		return input
	}
	return formatted
}

// FormatAmount formats a numeric amount, falling back to the plain number.
func (f *Formatter) FormatAmount(a Amount) string {
	formatted, err := f.format(a.Value, a.Currency)
	if err != nil {
		return strconv.FormatFloat(a.Value, 'f', -1, 64)
	}
	return formatted
}

func (f *Formatter) format(value float64, currencyCode string) (string, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", ErrNotANumber
	}
	if currencyCode == "" {
		currencyCode = ReferenceCurrency
	}
	unit, err := currency.ParseISO(CurrencyCode(currencyCode))
	if err != nil {
		return "", fmt.Errorf("unsupported currency %q: %w", currencyCode, err)
	}

	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	symbol := f.printer.Sprint(currency.Symbol(unit))
	digits := f.printer.Sprint(number.Decimal(value, number.MaxFractionDigits(0)))

	if f.symbolAfter {
		return sign + digits + "\u00a0" + symbol, nil
	}
	return sign + symbol + digits, nil
}

var defaultFormatter = NewFormatter(DefaultLocale)

// FormatPrice formats input with the default (English) locale.
func FormatPrice(input string, currencyCode string) string {
	return defaultFormatter.FormatPrice(input, currencyCode)
}
