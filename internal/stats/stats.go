package stats

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lwitkowski/aero-offers/internal/models"
	"github.com/lwitkowski/aero-offers/internal/pricing"
)

var ErrNoData = errors.New("no offers with a usable price")

// AmountSource derives the reference currency amount of an offer price.
type AmountSource interface {
	ReferenceAmount(price models.OfferPrice) (pricing.Amount, error)
}

type AggregateStats struct {
	Count  int            `json:"count"`
	Priced int            `json:"priced"`
	Median pricing.Amount `json:"median"`
	Mean   pricing.Amount `json:"mean"`
}

// Build computes count, median and mean over one group of offers. Offers
// without a reference amount count towards Count but not towards the price
// figures. A group without any priced offer yields ErrNoData.
func Build(offers []models.Offer, source AmountSource) (AggregateStats, error) {
	if len(offers) == 0 {
		return AggregateStats{}, ErrNoData
	}

	values := make([]float64, 0, len(offers))
	for _, offer := range offers {
		amount, err := source.ReferenceAmount(offer.Price)
		if err != nil {
			continue
		}
		values = append(values, amount.Value)
	}
	if len(values) == 0 {
		return AggregateStats{Count: len(offers)}, ErrNoData
	}

	median, err := pricing.Median(values)
	if err != nil {
		return AggregateStats{}, fmt.Errorf("failed to compute median: %w", err)
	}
	mean, err := pricing.Mean(values)
	if err != nil {
		return AggregateStats{}, fmt.Errorf("failed to compute mean: %w", err)
	}

	return AggregateStats{
		Count:  len(offers),
		Priced: len(values),
		Median: pricing.Amount{Value: median, Currency: pricing.ReferenceCurrency},
		Mean:   pricing.Amount{Value: mean, Currency: pricing.ReferenceCurrency},
	}, nil
}

// Summary renders the one-line description shown above the model chart.
func (s AggregateStats) Summary(f *pricing.Formatter) string {
	return fmt.Sprintf("There were %d offer(s). Median offer price is %s, average %s",
		s.Count, f.FormatAmount(s.Median), f.FormatAmount(s.Mean))
}

type PricePoint struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
	Title  string    `json:"title"`
}

// ChartPoints returns the priced offers ordered by publication date.
func ChartPoints(offers []models.Offer, source AmountSource) []PricePoint {
	points := make([]PricePoint, 0, len(offers))
	for _, offer := range offers {
		if offer.PublishedAt.IsZero() {
			continue
		}
		amount, err := source.ReferenceAmount(offer.Price)
		if err != nil {
			continue
		}
		points = append(points, PricePoint{
			Date:   offer.PublishedAt.Time,
			Amount: amount.Value,
			Title:  offer.Title,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}
