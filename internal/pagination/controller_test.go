package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lwitkowski/aero-offers/internal/models"
	"github.com/lwitkowski/aero-offers/internal/tracing"
)

// MockFetcher is a mock implementation of the Fetcher interface
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchPage(ctx context.Context, offset, limit int, filter Filter) ([]models.Offer, error) {
	args := m.Called(offset, limit, filter)
	offers, _ := args.Get(0).([]models.Offer)
	return offers, args.Error(1)
}

// gatedFetcher blocks every fetch until release is closed.
type gatedFetcher struct {
	started chan int
	release chan struct{}
	page    []models.Offer
	calls   atomic.Int32
}

func newGatedFetcher(page []models.Offer) *gatedFetcher {
	return &gatedFetcher{
		started: make(chan int, 10),
		release: make(chan struct{}),
		page:    page,
	}
}

func (g *gatedFetcher) FetchPage(ctx context.Context, offset, limit int, filter Filter) ([]models.Offer, error) {
	g.calls.Add(1)
	g.started <- offset
	select {
	case <-g.release:
		return g.page, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// traceRecorder remembers the trace id every fetch was made with.
type traceRecorder struct {
	mu       sync.Mutex
	traceIDs []string
	page     []models.Offer
}

func (r *traceRecorder) FetchPage(ctx context.Context, offset, limit int, filter Filter) ([]models.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traceIDs = append(r.traceIDs, tracing.TraceIDFromContext(ctx))
	return r.page, nil
}

func offers(n int) []models.Offer {
	result := make([]models.Offer, n)
	for i := range result {
		result[i] = models.Offer{ID: models.ID(fmt.Sprintf("offer-%d", i)), Title: fmt.Sprintf("Offer %d", i)}
	}
	return result
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestNewController(t *testing.T) {
	c := NewController(&MockFetcher{}, 0, Filter{}, nil)
	state, loaded := c.Snapshot()

	assert.Equal(t, Idle, state.State)
	assert.Equal(t, 0, state.Offset)
	assert.Equal(t, DefaultLimit, state.Limit)
	assert.Empty(t, loaded)
}

func TestController_FullPageAdvancesOffset(t *testing.T) {
	fetcher := &MockFetcher{}
	filter := Filter{Category: models.CategoryGlider}
	fetcher.On("FetchPage", 0, 3, filter).Return(offers(3), nil).Once()
	fetcher.On("FetchPage", 3, 3, filter).Return(offers(3), nil).Once()

	c := NewController(fetcher, 3, filter, quietLogger())

	result, err := c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Appended)
	assert.Equal(t, Loaded, result.State)
	assert.Equal(t, offers(3), result.Offers)

	state, _ := c.Snapshot()
	assert.Equal(t, 3, state.Offset)

	_, err = c.LoadMore(context.Background())
	require.NoError(t, err)

	state, loaded := c.Snapshot()
	assert.Equal(t, 6, state.Offset)
	assert.Equal(t, 6, state.Loaded)
	assert.Len(t, loaded, 6)
	fetcher.AssertExpectations(t)
}

func TestController_ShortPageExhausts(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("FetchPage", 0, 3, Filter{}).Return(offers(2), nil).Once()

	c := NewController(fetcher, 3, Filter{}, quietLogger())

	result, err := c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Exhausted, result.State)

	result, err = c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Exhausted, result.State)
	assert.Equal(t, 0, result.Appended)

	fetcher.AssertNumberOfCalls(t, "FetchPage", 1)
}

func TestController_FirstPageFailureReturnsToIdle(t *testing.T) {
	fetcher := &MockFetcher{}
	networkErr := errors.New("connection refused")
	fetcher.On("FetchPage", 0, 3, Filter{}).Return(nil, networkErr).Once()
	fetcher.On("FetchPage", 0, 3, Filter{}).Return(offers(3), nil).Once()

	c := NewController(fetcher, 3, Filter{}, quietLogger())

	result, err := c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorIs(t, err, networkErr)
	assert.Equal(t, Idle, result.State)

	state, _ := c.Snapshot()
	assert.Equal(t, 0, state.Offset)
	assert.True(t, state.Failed)
	assert.Empty(t, result.Offers)

	// retry requests the same page
	result, err = c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Loaded, result.State)
	assert.Len(t, result.Offers, 3)

	state, _ = c.Snapshot()
	assert.False(t, state.Failed)
	fetcher.AssertExpectations(t)
}

func TestController_LaterPageFailureKeepsLoaded(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("FetchPage", 0, 2, Filter{}).Return(offers(2), nil).Once()
	fetcher.On("FetchPage", 2, 2, Filter{}).Return(nil, errors.New("timeout")).Once()

	c := NewController(fetcher, 2, Filter{}, quietLogger())

	_, err := c.LoadMore(context.Background())
	require.NoError(t, err)

	result, err := c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.Equal(t, Loaded, result.State)

	state, loaded := c.Snapshot()
	assert.Equal(t, 2, state.Offset)
	assert.Len(t, loaded, 2)
	assert.NotEqual(t, Exhausted, state.State)
}

func TestController_ConcurrentLoadMoreSharesFetch(t *testing.T) {
	fetcher := newGatedFetcher(offers(2))
	c := NewController(fetcher, 2, Filter{}, quietLogger())

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.LoadMore(context.Background())
	}()
	assert.Equal(t, 0, <-fetcher.started)
	assert.Equal(t, Loading, c.State())

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = c.LoadMore(context.Background())
	}()

	// give the second caller time to join the flight
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), fetcher.calls.Load())

	state, loaded := c.Snapshot()
	assert.Equal(t, 2, state.Offset)
	assert.Len(t, loaded, 2)
}

func TestController_FilterChangeDiscardsInFlightResponse(t *testing.T) {
	fetcher := newGatedFetcher(offers(2))
	c := NewController(fetcher, 2, Filter{Category: models.CategoryGlider}, quietLogger())

	done := make(chan struct{})
	var result Result
	var err error
	go func() {
		defer close(done)
		result, err = c.LoadMore(context.Background())
	}()
	<-fetcher.started

	changed := c.SetFilter(Filter{Category: models.CategoryTMG})
	assert.True(t, changed)
	close(fetcher.release)
	<-done

	require.NoError(t, err)
	assert.True(t, result.Discarded)

	state, loaded := c.Snapshot()
	assert.Equal(t, 0, state.Offset)
	assert.Equal(t, Idle, state.State)
	assert.Equal(t, models.CategoryTMG, state.Filter.Category)
	assert.Empty(t, loaded)
}

func TestController_SetSameFilterIsNoop(t *testing.T) {
	fetcher := &MockFetcher{}
	filter := Filter{Manufacturer: "Schempp-Hirth", Model: "Discus"}
	fetcher.On("FetchPage", 0, 2, filter).Return(offers(2), nil).Once()

	c := NewController(fetcher, 2, filter, quietLogger())
	_, err := c.LoadMore(context.Background())
	require.NoError(t, err)

	assert.False(t, c.SetFilter(filter))
	state, _ := c.Snapshot()
	assert.Equal(t, 2, state.Offset)
}

func TestController_FilterChangeAfterExhausted(t *testing.T) {
	fetcher := &MockFetcher{}
	glider := Filter{Category: models.CategoryGlider}
	fetcher.On("FetchPage", 0, 2, Filter{}).Return(offers(1), nil).Twice()
	fetcher.On("FetchPage", 0, 2, glider).Return(offers(1), nil).Once()

	c := NewController(fetcher, 2, Filter{}, quietLogger())
	_, err := c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Exhausted, c.State())

	assert.True(t, c.SetFilter(glider))
	assert.Equal(t, Idle, c.State())
	_, err = c.LoadMore(context.Background())
	require.NoError(t, err)

	// switching back starts the first list over
	assert.True(t, c.SetFilter(Filter{}))
	result, err := c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Appended)
	fetcher.AssertExpectations(t)
}

func TestController_LoadMorePassesTraceID(t *testing.T) {
	fetcher := &traceRecorder{page: offers(2)}
	c := NewController(fetcher, 2, Filter{}, quietLogger())

	_, err := c.LoadMore(tracing.ContextWithTraceID(context.Background(), "trace-123"))
	require.NoError(t, err)
	_, err = c.LoadMore(context.Background())
	require.NoError(t, err)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.Equal(t, []string{"trace-123", ""}, fetcher.traceIDs)
}

func TestController_ConcurrentLoadMoreReturnSamePage(t *testing.T) {
	fetcher := newGatedFetcher(offers(2))
	c := NewController(fetcher, 2, Filter{}, quietLogger())

	results := make(chan Result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			r, err := c.LoadMore(context.Background())
			assert.NoError(t, err)
			results <- r
		}()
	}
	<-fetcher.started
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)

	for i := 0; i < 2; i++ {
		assert.Equal(t, offers(2), (<-results).Offers)
	}
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestController_Init(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("FetchPage", 0, 2, Filter{}).Return(offers(2), nil).Once()

	c := NewController(fetcher, 2, Filter{}, quietLogger())

	_, err := c.Init(context.Background())
	require.NoError(t, err)

	// already initialised, no second fetch
	result, err := c.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Loaded, result.State)
	fetcher.AssertNumberOfCalls(t, "FetchPage", 1)
}

func TestController_CloseCancelsPendingFetch(t *testing.T) {
	fetcher := newGatedFetcher(offers(2))
	c := NewController(fetcher, 2, Filter{}, quietLogger())

	done := make(chan struct{})
	var result Result
	var err error
	go func() {
		defer close(done)
		result, err = c.LoadMore(context.Background())
	}()
	<-fetcher.started

	c.Close()
	<-done

	require.NoError(t, err)
	assert.True(t, result.Discarded)

	_, err = c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestController_CallerContextCancelled(t *testing.T) {
	fetcher := newGatedFetcher(offers(2))
	c := NewController(fetcher, 2, Filter{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		_, err := c.LoadMore(ctx)
		done <- err
	}()
	<-fetcher.started

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// the shared fetch still completes for the list
	close(fetcher.release)
	assert.Eventually(t, func() bool {
		return c.State() == Loaded
	}, time.Second, 10*time.Millisecond)
}

func TestFilter_String(t *testing.T) {
	assert.Equal(t, "", Filter{}.String())
	assert.Equal(t, "category=glider", Filter{Category: models.CategoryGlider}.String())
	assert.Equal(t, "manufacturer=Schleicher&model=ASK 21", Filter{Manufacturer: "Schleicher", Model: "ASK 21"}.String())
	assert.True(t, Filter{}.IsZero())
	assert.True(t, Filter{Manufacturer: "Schleicher", Model: "ASK 21"}.HasModel())
}

