package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Offer struct {
	ID           ID         `json:"id,omitempty"`
	URL          string     `json:"url"`
	Category     Category   `json:"category"`
	Manufacturer string     `json:"manufacturer"`
	Model        string     `json:"model"`
	Title        string     `json:"title"`
	Location     string     `json:"location"`
	PublishedAt  Date       `json:"published_at"`
	Hours        *int       `json:"hours"`
	Starts       *int       `json:"starts"`
	Price        OfferPrice `json:"price"`
}

type OfferPrice struct {
	Amount       Decimal `json:"amount"`
	Currency     string  `json:"currency"`
	AmountInEuro Decimal `json:"amount_in_euro"`
	ExchangeRate Decimal `json:"exchange_rate"`
}

// ModelInformation is the payload of the per-model endpoint.
type ModelInformation struct {
	ManufacturerWebsite string  `json:"manufacturer_website"`
	Offers              []Offer `json:"offers"`
}

// ManufacturerModels lists known models of one manufacturer, keyed by category.
type ManufacturerModels struct {
	ManufacturerWebsite string              `json:"manufacturer_website,omitempty"`
	Models              map[string][]string `json:"models"`
}

// ID is the opaque offer identifier. Older API versions send numeric ids.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalScalar(data)
	if err != nil {
		return fmt.Errorf("offer id: %w", err)
	}
	*id = ID(raw)
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Decimal keeps the raw text of a price field. The API sends amounts either as
// strings ("28000.00") or as JSON numbers, and null for missing values.
type Decimal string

func (d *Decimal) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalScalar(data)
	if err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	*d = Decimal(raw)
	return nil
}

// unmarshalScalar returns the text of a JSON string or number; null yields "".
func unmarshalScalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("expected a string or a number: %w", err)
	}
	return n.String(), nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d Decimal) String() string {
	return string(d)
}

// Date is the publication date of an offer.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC1123,
	"2006-01-02T15:04:05",
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("unsupported date format: %q", s)
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}
