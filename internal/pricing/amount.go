package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ReferenceCurrency is the currency all offer prices are normalised to.
const ReferenceCurrency = "EUR"

var (
	ErrEmptyInput = errors.New("empty input")
	ErrNotANumber = errors.New("not a number")
)

// Amount is a numeric value tagged with its ISO 4217 currency code.
type Amount struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// ParseAmount converts a decimal string such as "28000.00" into a float.
func ParseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrEmptyInput
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount %q: %w", raw, ErrNotANumber)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount %q: %w", raw, ErrNotANumber)
	}
	return v, nil
}

// symbolCodes maps the currency symbols seen on marketplaces to ISO codes.
var symbolCodes = map[string]string{
	"€":   "EUR",
	"$":   "USD",
	"US$": "USD",
	"£":   "GBP",
	"Fr.": "CHF",
	"A$":  "AUD",
}

// CurrencyCode normalises a currency symbol or code to an upper-case ISO code.
// Unknown symbols are returned trimmed and upper-cased.
func CurrencyCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if code, ok := symbolCodes[raw]; ok {
		return code
	}
	return strings.ToUpper(raw)
}
