package pagination

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/lwitkowski/aero-offers/internal/models"
	"github.com/lwitkowski/aero-offers/internal/tracing"
)

var (
	ErrLoadFailed = errors.New("failed to load offers page")
	ErrClosed     = errors.New("pagination controller is closed")
)

// Fetcher loads one page of offers from the offers API.
type Fetcher interface {
	FetchPage(ctx context.Context, offset, limit int, filter Filter) ([]models.Offer, error)
}

// Result describes the outcome of a LoadMore call.
type Result struct {
	Appended int   `json:"appended"`
	State    State `json:"state"`
	// Offers is the page appended by this call.
	Offers []models.Offer `json:"-"`
	// Discarded is set when the response arrived after the filter changed.
	Discarded bool `json:"discarded"`
}

// PaginationState is the view of the controller handed to the render layer.
type PaginationState struct {
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
	Loaded int    `json:"loaded"`
	State  State  `json:"state"`
	Filter Filter `json:"filter"`
	Failed bool   `json:"failed"`
}

// Controller tracks offset/limit bookkeeping for incremental loading of one
// offer list. Every page is requested at most once at a time: concurrent
// LoadMore calls for the same offset share a single fetch.
type Controller struct {
	fetcher Fetcher
	limit   int
	logger  *logrus.Logger
	flights singleflight.Group

	mu         sync.Mutex
	filter     Filter
	generation uint64
	state      State
	offset     int
	offers     []models.Offer
	lastErr    error
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewController(fetcher Fetcher, limit int, filter Filter, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		fetcher: fetcher,
		limit:   limit,
		logger:  logger,
		filter:  filter,
		state:   Idle,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Init loads the first page unless something has been loaded already.
func (c *Controller) Init(ctx context.Context) (Result, error) {
	c.mu.Lock()
	idle := c.state == Idle && len(c.offers) == 0
	state := c.state
	c.mu.Unlock()

	if !idle {
		return Result{State: state}, nil
	}
	return c.LoadMore(ctx)
}

// LoadMore fetches the page at the current offset. It is a no-op once the
// list is exhausted. A failed fetch leaves the offset untouched so the same
// page is requested again on the next call. The fetch outlives ctx but
// carries its trace id.
func (c *Controller) LoadMore(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{}, ErrClosed
	}
	if c.state == Exhausted {
		c.mu.Unlock()
		return Result{State: Exhausted}, nil
	}
	gen, offset, filter, fetchCtx := c.generation, c.offset, c.filter, c.ctx
	c.mu.Unlock()

	if traceID := tracing.TraceIDFromContext(ctx); traceID != "" {
		fetchCtx = tracing.ContextWithTraceID(fetchCtx, traceID)
	}

	key := fmt.Sprintf("%d/%d", gen, offset)
	ch := c.flights.DoChan(key, func() (interface{}, error) {
		r, err := c.load(fetchCtx, gen, offset, filter)
		return r, err
	})

	select {
	case res := <-ch:
		r, _ := res.Val.(Result)
		return r, res.Err
	case <-ctx.Done():
		return Result{State: c.State()}, ctx.Err()
	}
}

func (c *Controller) load(ctx context.Context, gen uint64, offset int, filter Filter) (Result, error) {
	c.mu.Lock()
	if !c.isCurrent(gen, offset) {
		state := c.state
		c.mu.Unlock()
		return Result{State: state, Discarded: true}, nil
	}
	c.state = Loading
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"offset": offset,
		"limit":  c.limit,
		"filter": filter.String(),
	}).Debug("Fetching offers page")

	page, err := c.fetcher.FetchPage(ctx, offset, c.limit, filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(gen, offset) {
		c.logger.WithFields(logrus.Fields{
			"offset": offset,
			"filter": filter.String(),
		}).Debug("Discarding stale offers page")
		return Result{State: c.state, Discarded: true}, nil
	}

	if err != nil {
		if offset == 0 {
			c.state = Idle
		} else {
			c.state = Loaded
		}
		c.lastErr = err
		c.logger.WithError(err).WithField("offset", offset).Warn("Failed to fetch offers page")
		return Result{State: c.state}, fmt.Errorf("%w at offset %d: %w", ErrLoadFailed, offset, err)
	}

	c.offers = append(c.offers, page...)
	c.offset += c.limit
	c.lastErr = nil
	if len(page) < c.limit {
		c.state = Exhausted
	} else {
		c.state = Loaded
	}

	appended := make([]models.Offer, len(page))
	copy(appended, page)
	return Result{Appended: len(page), State: c.state, Offers: appended}, nil
}

func (c *Controller) isCurrent(gen uint64, offset int) bool {
	return !c.closed && c.generation == gen && c.offset == offset
}

// SetFilter switches the list to another filter. A different filter discards
// loaded offers, resets the offset and abandons any fetch in flight. It
// reports whether a reset happened.
func (c *Controller) SetFilter(filter Filter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filter == filter {
		return false
	}
	c.filter = filter
	c.resetLocked()
	return true
}

func (c *Controller) resetLocked() {
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.generation++
	c.offset = 0
	c.offers = nil
	c.state = Idle
	c.lastErr = nil
}

// Close cancels any pending fetch. Further LoadMore calls fail with ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.cancel()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the pagination state and a copy of the loaded offers.
func (c *Controller) Snapshot() (PaginationState, []models.Offer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	offers := make([]models.Offer, len(c.offers))
	copy(offers, c.offers)

	return PaginationState{
		Offset: c.offset,
		Limit:  c.limit,
		Loaded: len(c.offers),
		State:  c.state,
		Filter: c.filter,
		Failed: c.lastErr != nil,
	}, offers
}
