package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lwitkowski/aero-offers/internal/analytics"
	"github.com/lwitkowski/aero-offers/internal/models"
	"github.com/lwitkowski/aero-offers/internal/offersapi"
	"github.com/lwitkowski/aero-offers/internal/pagination"
	"github.com/lwitkowski/aero-offers/internal/pricing"
	"github.com/lwitkowski/aero-offers/internal/session"
	"github.com/lwitkowski/aero-offers/internal/stats"
)

// OffersService is the part of the offers API the view layer reads from.
type OffersService interface {
	pagination.Fetcher
	ModelInformation(ctx context.Context, manufacturer, model string) (*models.ModelInformation, error)
	Models(ctx context.Context) (map[string]models.ManufacturerModels, error)
}

// RatesStatus reports when the exchange rate table was last refreshed.
type RatesStatus interface {
	UpdatedAt() time.Time
}

type HandlerConfig struct {
	DefaultLocale string
	SessionTTL    time.Duration
	// ModelLimit bounds the offers aggregated for category statistics
	ModelLimit int
	// Rates is nil when exchange rates are disabled
	Rates RatesStatus
}

type Handler struct {
	offers           OffersService
	sessions         *session.Store
	amounts          stats.AmountSource
	tracker          analytics.Tracker
	rates            RatesStatus
	logger           *logrus.Logger
	defaultFormatter *pricing.Formatter
	sessionTTL       time.Duration
	modelLimit       int
}

// OfferView is an offer with its price rendered for the request locale.
type OfferView struct {
	models.Offer
	FormattedPrice string `json:"formatted_price"`
	ReferencePrice string `json:"reference_price,omitempty"`
}

type OffersResponse struct {
	Offers     []OfferView                `json:"offers"`
	Pagination pagination.PaginationState `json:"pagination"`
	Exhausted  bool                       `json:"exhausted"`
	Error      string                     `json:"error,omitempty"`
	Retryable  bool                       `json:"retryable,omitempty"`
}

type ModelStatsResponse struct {
	Manufacturer        string               `json:"manufacturer"`
	Model               string               `json:"model"`
	ManufacturerWebsite string               `json:"manufacturer_website,omitempty"`
	Stats               stats.AggregateStats `json:"stats"`
	HasData             bool                 `json:"has_data"`
	Summary             string               `json:"summary"`
	Chart               []stats.PricePoint   `json:"chart"`
}

type GroupStats struct {
	stats.Group
	Summary string `json:"summary"`
}

func NewHandler(offers OffersService, sessions *session.Store, amounts stats.AmountSource, tracker analytics.Tracker, cfg HandlerConfig, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if tracker == nil {
		tracker = analytics.NoopTracker{}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.ModelLimit <= 0 {
		cfg.ModelLimit = offersapi.ModelOffersLimit
	}

	return &Handler{
		offers:           offers,
		sessions:         sessions,
		amounts:          amounts,
		tracker:          tracker,
		rates:            cfg.Rates,
		logger:           logger,
		defaultFormatter: pricing.NewFormatterForLocale(cfg.DefaultLocale),
		sessionTTL:       cfg.SessionTTL,
		modelLimit:       cfg.ModelLimit,
	}
}

// GetOffers returns the session's offer list for the requested filter,
// loading the first page when the list is new.
func (h *Handler) GetOffers(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	controller := h.acquireList(c, filter)
	_, loadErr := controller.Init(c.Request.Context())
	state, loaded := controller.Snapshot()

	h.track(c, "offer_list_view", map[string]string{"filter": filter.String()})

	response := OffersResponse{
		Offers:     h.offerViews(c, loaded),
		Pagination: state,
		Exhausted:  state.State == pagination.Exhausted,
	}
	if loadErr != nil {
		h.respondLoadError(c, loadErr, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// LoadMoreOffers appends the next page to the session's list and returns the
// offers that were added.
func (h *Handler) LoadMoreOffers(c *gin.Context) {
	id, _ := c.Cookie(session.CookieName)
	controller, ok := h.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Offer list session expired"})
		return
	}

	result, err := controller.LoadMore(c.Request.Context())
	state, _ := controller.Snapshot()

	h.track(c, "offer_list_load_more", map[string]string{"filter": state.Filter.String()})

	response := OffersResponse{
		Offers:     h.offerViews(c, result.Offers),
		Pagination: state,
		Exhausted:  state.State == pagination.Exhausted,
	}
	if err != nil {
		h.respondLoadError(c, err, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) respondLoadError(c *gin.Context, err error, response OffersResponse) {
	switch {
	case errors.Is(err, pagination.ErrClosed):
		response.Error = "Offer list session expired"
		c.JSON(http.StatusGone, response)
	case errors.Is(err, context.Canceled):
		// client went away, nothing to render
		c.Status(499)
	default:
		h.logger.WithError(err).WithField("trace_id", traceID(c)).Warn("Failed to load offers")
		response.Error = "Failed to load offers"
		response.Retryable = true
		c.JSON(http.StatusBadGateway, response)
	}
}

// GetModels returns manufacturers and their models, restricted to one
// category when requested.
func (h *Handler) GetModels(c *gin.Context) {
	category := models.ParseCategory(c.Query("category"))
	if category == models.CategoryUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
		return
	}

	all, err := h.offers.Models(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).WithField("trace_id", traceID(c)).Error("Failed to get models")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get models"})
		return
	}

	c.JSON(http.StatusOK, filterModels(all, category))
}

func filterModels(all map[string]models.ManufacturerModels, category models.Category) map[string]models.ManufacturerModels {
	if category == "" {
		return all
	}
	result := make(map[string]models.ManufacturerModels)
	for manufacturer, m := range all {
		names := m.Models[category.String()]
		if len(names) == 0 {
			continue
		}
		result[manufacturer] = models.ManufacturerModels{
			ManufacturerWebsite: m.ManufacturerWebsite,
			Models:              map[string][]string{category.String(): names},
		}
	}
	return result
}

// GetModelStats returns median/mean statistics and chart points for one model.
func (h *Handler) GetModelStats(c *gin.Context) {
	manufacturer, model := c.Param("manufacturer"), c.Param("model")

	info, err := h.offers.ModelInformation(c.Request.Context(), manufacturer, model)
	var response ModelStatsResponse
	if err == nil {
		response, err = h.modelStats(c, manufacturer, model, info)
	}
	if err != nil {
		if errors.Is(err, offersapi.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown model"})
			return
		}
		h.logger.WithError(err).WithFields(logrus.Fields{
			"manufacturer": manufacturer,
			"model":        model,
			"trace_id":     traceID(c),
		}).Error("Failed to get model information")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get model information"})
		return
	}

	h.track(c, "model_stats_view", map[string]string{"manufacturer": manufacturer, "model": model})
	c.JSON(http.StatusOK, response)
}

func (h *Handler) modelStats(c *gin.Context, manufacturer, model string, info *models.ModelInformation) (ModelStatsResponse, error) {
	response := ModelStatsResponse{
		Manufacturer:        manufacturer,
		Model:               model,
		ManufacturerWebsite: info.ManufacturerWebsite,
		Chart:               stats.ChartPoints(info.Offers, h.amounts),
	}

	aggregate, err := stats.Build(info.Offers, h.amounts)
	switch {
	case err == nil:
		response.Stats = aggregate
		response.HasData = true
		response.Summary = aggregate.Summary(h.formatter(c))
	case errors.Is(err, stats.ErrNoData):
		response.Stats = aggregate
		response.Summary = noDataSummary(aggregate.Count)
	default:
		return ModelStatsResponse{}, err
	}
	return response, nil
}

func noDataSummary(count int) string {
	if count == 0 {
		return "There are no offers for this model yet"
	}
	return "There were offers for this model, but none with a known price"
}

// GetCategoryStats aggregates the first offers of a category per model.
func (h *Handler) GetCategoryStats(c *gin.Context) {
	category := models.ParseCategory(c.Query("category"))
	if category == models.CategoryUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
		return
	}

	offers, err := h.offers.FetchPage(c.Request.Context(), 0, h.modelLimit, pagination.Filter{Category: category})
	if err != nil {
		h.logger.WithError(err).WithField("trace_id", traceID(c)).Error("Failed to get offers for statistics")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get offers"})
		return
	}

	formatter := h.formatter(c)
	groups := stats.GroupBy(offers, stats.ByModel, h.amounts)
	result := make([]GroupStats, 0, len(groups))
	for _, g := range groups {
		summary := noDataSummary(g.Stats.Count)
		if g.HasData {
			summary = g.Stats.Summary(formatter)
		}
		result = append(result, GroupStats{Group: g, Summary: summary})
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"offers":   len(offers),
		"groups":   result,
	})
}

func (h *Handler) Health(c *gin.Context) {
	response := gin.H{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	}
	if h.rates != nil {
		// zero until the first successful refresh
		var updatedAt *time.Time
		if t := h.rates.UpdatedAt(); !t.IsZero() {
			updatedAt = &t
		}
		response["rates_updated_at"] = updatedAt
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) acquireList(c *gin.Context, filter pagination.Filter) *pagination.Controller {
	id, _ := c.Cookie(session.CookieName)
	id, controller := h.sessions.Acquire(id, filter)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, id, int(h.sessionTTL.Seconds()), "/", "", false, true)
	c.Set(sessionIDKey, id)
	return controller
}

func (h *Handler) offerViews(c *gin.Context, offers []models.Offer) []OfferView {
	formatter := h.formatter(c)
	views := make([]OfferView, len(offers))
	for i, offer := range offers {
		views[i] = OfferView{
			Offer:          offer,
			FormattedPrice: formatter.FormatPrice(offer.Price.Amount.String(), pricing.CurrencyCode(offer.Price.Currency)),
		}
		if amount, err := h.amounts.ReferenceAmount(offer.Price); err == nil && pricing.CurrencyCode(offer.Price.Currency) != pricing.ReferenceCurrency {
			views[i].ReferencePrice = formatter.FormatAmount(amount)
		}
	}
	return views
}

// formatter returns the price formatter for the request's Accept-Language.
func (h *Handler) formatter(c *gin.Context) *pricing.Formatter {
	header := c.GetHeader("Accept-Language")
	if header == "" {
		return h.defaultFormatter
	}
	return pricing.NewFormatter(pricing.LocaleFromAcceptLanguage(header))
}

func (h *Handler) track(c *gin.Context, name string, properties map[string]string) {
	sessionID := c.GetString(sessionIDKey)
	if sessionID == "" {
		sessionID, _ = c.Cookie(session.CookieName)
	}
	if err := h.tracker.Track(analytics.NewEvent(name, c.Request.URL.Path, sessionID, properties)); err != nil {
		h.logger.WithError(err).WithField("event", name).Debug("Analytics event not recorded")
	}
}

var errModelWithoutManufacturer = errors.New("manufacturer and model must be given together")

func filterFromQuery(c *gin.Context) (pagination.Filter, error) {
	filter := pagination.Filter{
		Category:     models.ParseCategory(c.Query("category")),
		Manufacturer: c.Query("manufacturer"),
		Model:        c.Query("model"),
	}
	if filter.Category == models.CategoryUnknown {
		return pagination.Filter{}, errors.New("unknown category")
	}
	if (filter.Manufacturer == "") != (filter.Model == "") {
		return pagination.Filter{}, errModelWithoutManufacturer
	}
	return filter, nil
}
