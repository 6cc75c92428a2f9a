package api

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lwitkowski/aero-offers/config"
	"github.com/lwitkowski/aero-offers/internal/offersapi"
	"github.com/lwitkowski/aero-offers/internal/pagination"
)

var templateFuncs = template.FuncMap{
	"pageActive": func(current, path string) bool { return current == path },
}

type offersPageData struct {
	Title       string
	Description string
	Path        string
	Pages       []config.Page
	Offers      []OfferView
	Pagination  pagination.PaginationState
	Exhausted   bool
	Error       string
}

type modelPageData struct {
	Title        string
	Description  string
	Path         string
	Pages        []config.Page
	Stats        ModelStatsResponse
	Offers       []OfferView
	CategoryPage *config.Page
	Error        string
}

// OffersPage renders the offer list of one category page.
func (h *Handler) OffersPage(page config.Page) gin.HandlerFunc {
	filter := pagination.Filter{Category: page.Category}
	return func(c *gin.Context) {
		controller := h.acquireList(c, filter)
		_, err := controller.Init(c.Request.Context())
		state, loaded := controller.Snapshot()

		data := offersPageData{
			Title:       page.Title,
			Description: page.Description,
			Path:        page.Path,
			Pages:       config.Pages,
			Offers:      h.offerViews(c, loaded),
			Pagination:  state,
			Exhausted:   state.State == pagination.Exhausted,
		}
		if err != nil {
			h.logger.WithError(err).WithField("trace_id", traceID(c)).Warn("Failed to load offers page")
			data.Error = "Offers could not be loaded, please try again."
		}

		h.track(c, "page_view", map[string]string{"title": page.Title})
		c.HTML(http.StatusOK, "offers.tmpl", data)
	}
}

// ModelPage renders statistics, chart data and offers of one model.
func (h *Handler) ModelPage(c *gin.Context) {
	manufacturer, model := c.Param("manufacturer"), c.Param("model")
	data := modelPageData{
		Title:       config.ModelPageTitle(manufacturer, model),
		Description: "Offers and prices of " + manufacturer + " " + model,
		Path:        c.Request.URL.Path,
		Pages:       config.Pages,
	}

	info, err := h.offers.ModelInformation(c.Request.Context(), manufacturer, model)
	if err == nil {
		data.Stats, err = h.modelStats(c, manufacturer, model, info)
	}

	status := http.StatusOK
	switch {
	case err == nil:
		data.Offers = h.offerViews(c, info.Offers)
		if len(info.Offers) > 0 && info.Offers[0].Category != "" {
			data.CategoryPage = config.GetPageByCategory(info.Offers[0].Category)
		}
	case errors.Is(err, offersapi.ErrNotFound):
		status = http.StatusNotFound
		data.Error = "Unknown model."
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"manufacturer": manufacturer,
			"model":        model,
			"trace_id":     traceID(c),
		}).Error("Failed to get model information")
		status = http.StatusBadGateway
		data.Error = "Model information could not be loaded, please try again."
	}

	h.track(c, "page_view", map[string]string{"title": data.Title})
	c.HTML(status, "model.tmpl", data)
}
