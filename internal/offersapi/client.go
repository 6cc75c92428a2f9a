package offersapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lwitkowski/aero-offers/internal/models"
	"github.com/lwitkowski/aero-offers/internal/pagination"
	"github.com/lwitkowski/aero-offers/internal/tracing"
)

const (
	DefaultTimeout = 10 * time.Second
	// ModelOffersLimit is how many offers the API returns for a single model.
	ModelOffersLimit = 300
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidResponse   = errors.New("invalid offers API response")
	ErrUnsupportedFilter = errors.New("manufacturer filter requires a model")
	errMissingBaseURL    = errors.New("offers API base URL is required")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("offers API returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the offers REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
	modelLimit int
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("failed to parse offers API base URL: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:     logger,
		modelLimit: ModelOffersLimit,
	}, nil
}

// SetModelLimit overrides the per-model cap.
func (c *Client) SetModelLimit(limit int) {
	if limit > 0 {
		c.modelLimit = limit
	}
}

// FetchPage implements pagination.Fetcher. Category lists are paged by the
// API; a single model's offers come in one response and are paged here.
func (c *Client) FetchPage(ctx context.Context, offset, limit int, filter pagination.Filter) ([]models.Offer, error) {
	if filter.HasModel() {
		info, err := c.ModelInformation(ctx, filter.Manufacturer, filter.Model)
		if err != nil {
			return nil, err
		}
		return window(info.Offers, offset, limit), nil
	}
	if filter.Manufacturer != "" || filter.Model != "" {
		return nil, ErrUnsupportedFilter
	}

	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	if filter.Category != "" {
		query.Set("category", string(filter.Category))
	}

	body, err := c.get(ctx, "/api/offers?"+query.Encode())
	if err != nil {
		return nil, err
	}
	if err := validate(schemaOfferList, body); err != nil {
		return nil, err
	}
	return decodeOfferList(body)
}

// ModelInformation returns the manufacturer website and all offers of a model.
func (c *Client) ModelInformation(ctx context.Context, manufacturer, model string) (*models.ModelInformation, error) {
	path := fmt.Sprintf("/api/offers/%s/%s", url.PathEscape(manufacturer), url.PathEscape(model))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := validate(schemaModelInformation, body); err != nil {
		return nil, err
	}

	var info models.ModelInformation
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode model information: %w", err)
	}
	if len(info.Offers) > c.modelLimit {
		info.Offers = info.Offers[:c.modelLimit]
	}
	return &info, nil
}

// Models returns known models grouped by manufacturer.
func (c *Client) Models(ctx context.Context) (map[string]models.ManufacturerModels, error) {
	body, err := c.get(ctx, "/api/models")
	if err != nil {
		return nil, err
	}
	if err := validate(schemaModels, body); err != nil {
		return nil, err
	}

	var result map[string]models.ManufacturerModels
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode models: %w", err)
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if traceID := tracing.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set(tracing.Header, traceID)
	}

	log := c.logger.WithFields(logrus.Fields{
		"path":     path,
		"trace_id": tracing.TraceIDFromContext(ctx),
	})
	log.Debug("Sending request to offers API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("Failed to perform request to offers API")
		return nil, fmt.Errorf("failed to request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		log.WithError(err).WithField("status_code", resp.StatusCode).Warn("Received error response from offers API")
		return nil, err
	}
	return body, nil
}

// decodeOfferList accepts a bare array as well as an object with "offers".
func decodeOfferList(body []byte) ([]models.Offer, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var offers []models.Offer
		if err := json.Unmarshal(trimmed, &offers); err != nil {
			return nil, fmt.Errorf("failed to decode offers: %w", err)
		}
		return offers, nil
	}

	var wrapped struct {
		Offers []models.Offer `json:"offers"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	return wrapped.Offers, nil
}

func window(offers []models.Offer, offset, limit int) []models.Offer {
	if offset >= len(offers) {
		return []models.Offer{}
	}
	end := offset + limit
	if end > len(offers) {
		end = len(offers)
	}
	page := make([]models.Offer, end-offset)
	copy(page, offers[offset:end])
	return page
}
