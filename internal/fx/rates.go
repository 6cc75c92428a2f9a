package fx

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const ECBDailyRatesURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

// Rates holds the latest ECB reference rates: units of a currency per 1 EUR.
type Rates struct {
	logger    *logrus.Logger
	url       string
	client    *http.Client
	rates     map[string]float64
	updatedAt time.Time
	lock      sync.RWMutex
}

func NewRates(logger *logrus.Logger, url string) *Rates {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if url == "" {
		url = ECBDailyRatesURL
	}

	return &Rates{
		logger: logger,
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		rates:  make(map[string]float64),
	}
}

type ecbEnvelope struct {
	Cubes []struct {
		Currency string `xml:"currency,attr"`
		Rate     string `xml:"rate,attr"`
	} `xml:"Cube>Cube>Cube"`
}

// Refresh downloads the daily rates and replaces the cached table.
func (r *Rates) Refresh(ctx context.Context) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.WithError(err).Error("Exchange rates request failed")
		return fmt.Errorf("exchange rates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("exchange rates source returned status %d: %s", resp.StatusCode, string(body))
	}

	count, err := r.Load(resp.Body)
	if err != nil {
		r.logger.WithError(err).Error("Failed to parse exchange rates")
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"count":       count,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Fetched exchange rates")
	return nil
}

// Load replaces the cached table with the rates found in an ECB XML document.
func (r *Rates) Load(body io.Reader) (int, error) {
	var envelope ecbEnvelope
	if err := xml.NewDecoder(body).Decode(&envelope); err != nil {
		return 0, fmt.Errorf("failed to decode exchange rates: %w", err)
	}

	rates := make(map[string]float64, len(envelope.Cubes))
	for _, cube := range envelope.Cubes {
		if cube.Currency == "" || cube.Rate == "" {
			continue
		}
		var rate float64
		if _, err := fmt.Sscanf(cube.Rate, "%g", &rate); err != nil || rate <= 0 {
			r.logger.WithField("currency", cube.Currency).Warn("Skipping invalid exchange rate")
			continue
		}
		rates[strings.ToUpper(cube.Currency)] = rate
	}
	if len(rates) == 0 {
		return 0, fmt.Errorf("no exchange rates found in document")
	}

	r.lock.Lock()
	r.rates = rates
	r.updatedAt = time.Now()
	r.lock.Unlock()

	return len(rates), nil
}

// Rate returns the number of currency units per 1 EUR.
func (r *Rates) Rate(currency string) (float64, bool) {
	currency = strings.ToUpper(currency)
	if currency == "EUR" {
		return 1, true
	}

	r.lock.RLock()
	defer r.lock.RUnlock()
	rate, ok := r.rates[currency]
	return rate, ok
}

func (r *Rates) UpdatedAt() time.Time {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.updatedAt
}
