package fx

import (
	"errors"
	"fmt"

	"github.com/lwitkowski/aero-offers/internal/models"
	"github.com/lwitkowski/aero-offers/internal/pricing"
)

var ErrNoReferenceAmount = errors.New("offer has no reference currency amount")

// RateSource provides units of a currency per 1 EUR.
type RateSource interface {
	Rate(currency string) (float64, bool)
}

// Converter derives the reference currency (EUR) amount of an offer price.
//
// The rules, in order:
//  1. amount_in_euro when it parses
//  2. amount when the offer currency is EUR
//  3. amount / exchange_rate when the stored exchange rate is positive
//  4. amount / rate from the optional RateSource
//
// Stored exchange rates follow the ECB convention: offer currency units per 1 EUR.
type Converter struct {
	rates RateSource
}

// NewConverter creates a converter. rates may be nil.
func NewConverter(rates RateSource) *Converter {
	return &Converter{rates: rates}
}

func (c *Converter) ReferenceAmount(price models.OfferPrice) (pricing.Amount, error) {
	if v, err := pricing.ParseAmount(price.AmountInEuro.String()); err == nil {
		return pricing.Amount{Value: v, Currency: pricing.ReferenceCurrency}, nil
	}

	amount, err := pricing.ParseAmount(price.Amount.String())
	if err != nil {
		return pricing.Amount{}, fmt.Errorf("%w: %v", ErrNoReferenceAmount, err)
	}

	code := pricing.CurrencyCode(price.Currency)
	if code == "" || code == pricing.ReferenceCurrency {
		return pricing.Amount{Value: amount, Currency: pricing.ReferenceCurrency}, nil
	}

	if rate, err := pricing.ParseAmount(price.ExchangeRate.String()); err == nil && rate > 0 {
		return pricing.Amount{Value: amount / rate, Currency: pricing.ReferenceCurrency}, nil
	}

	if c != nil && c.rates != nil {
		if rate, ok := c.rates.Rate(code); ok && rate > 0 {
			return pricing.Amount{Value: amount / rate, Currency: pricing.ReferenceCurrency}, nil
		}
	}

	return pricing.Amount{}, fmt.Errorf("%w: no exchange rate for %s", ErrNoReferenceAmount, code)
}
