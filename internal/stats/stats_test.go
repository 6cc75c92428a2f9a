package stats

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwitkowski/aero-offers/internal/fx"
	"github.com/lwitkowski/aero-offers/internal/models"
	"github.com/lwitkowski/aero-offers/internal/pricing"
)

func loadModelOffers(t *testing.T) []models.Offer {
	t.Helper()
	data, err := os.ReadFile("testdata/model_offers.json")
	require.NoError(t, err)

	var info models.ModelInformation
	require.NoError(t, json.Unmarshal(data, &info))
	require.Len(t, info.Offers, 3)
	return info.Offers
}

func TestBuild(t *testing.T) {
	offers := loadModelOffers(t)

	s, err := Build(offers, fx.NewConverter(nil))
	require.NoError(t, err)

	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 3, s.Priced)
	assert.InDelta(t, 45000, s.Median.Value, 0.001)
	assert.InDelta(t, 43500, s.Mean.Value, 0.001)
	assert.Equal(t, "EUR", s.Median.Currency)
	assert.Equal(t, "EUR", s.Mean.Currency)
}

func TestBuild_Summary(t *testing.T) {
	s, err := Build(loadModelOffers(t), fx.NewConverter(nil))
	require.NoError(t, err)

	f := pricing.NewFormatter(pricing.DefaultLocale)
	assert.Equal(t, "There were 3 offer(s). Median offer price is €45,000, average €43,500", s.Summary(f))
}

func TestBuild_EmptyGroup(t *testing.T) {
	_, err := Build(nil, fx.NewConverter(nil))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestBuild_SkipsUnpricedOffers(t *testing.T) {
	offers := []models.Offer{
		{Title: "priced", Price: models.OfferPrice{Amount: "10000", Currency: "EUR"}},
		{Title: "on request", Price: models.OfferPrice{Amount: "", Currency: "EUR"}},
		{Title: "unknown currency", Price: models.OfferPrice{Amount: "5000", Currency: "PLN"}},
		{Title: "priced too", Price: models.OfferPrice{Amount: "20000", Currency: "EUR"}},
	}

	s, err := Build(offers, fx.NewConverter(nil))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 2, s.Priced)
	assert.Equal(t, 15000.0, s.Median.Value)
	assert.Equal(t, 15000.0, s.Mean.Value)
}

func TestBuild_NoPricedOffers(t *testing.T) {
	offers := []models.Offer{
		{Title: "on request", Price: models.OfferPrice{Currency: "EUR"}},
	}

	s, err := Build(offers, fx.NewConverter(nil))
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 1, s.Count)
}

func TestChartPoints(t *testing.T) {
	points := ChartPoints(loadModelOffers(t), fx.NewConverter(nil))
	require.Len(t, points, 3)

	assert.Equal(t, "LS4 full instruments", points[0].Title)
	assert.Equal(t, "LS-4", points[1].Title)
	assert.Equal(t, "LS 4b with trailer", points[2].Title)
	assert.InDelta(t, 45000, points[2].Amount, 0.001)
}

func TestGroupBy(t *testing.T) {
	offers := append(loadModelOffers(t), models.Offer{
		Category:     models.CategoryTMG,
		Manufacturer: "Scheibe",
		Model:        "SF 25",
		Price:        models.OfferPrice{Currency: "EUR"},
	})

	groups := GroupBy(offers, ByModel, fx.NewConverter(nil))
	require.Len(t, groups, 2)

	assert.Equal(t, "Rolladen Schneider LS-4", groups[0].Key)
	assert.True(t, groups[0].HasData)
	assert.Equal(t, 3, groups[0].Stats.Count)

	assert.Equal(t, "Scheibe SF 25", groups[1].Key)
	assert.False(t, groups[1].HasData)
	assert.Equal(t, 1, groups[1].Stats.Count)

	byCategory := GroupBy(offers, ByCategory, fx.NewConverter(nil))
	require.Len(t, byCategory, 2)
	assert.Equal(t, "glider", byCategory[0].Key)
	assert.Equal(t, "tmg", byCategory[1].Key)
}
