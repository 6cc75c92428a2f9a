package analytics

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

const (
	DefaultBatchSize     = 50
	DefaultFlushInterval = 5 * time.Second
)

// EventQueue buffers events in memory and hands them to subscribers in batches.
type EventQueue struct {
	items         chan Event
	done          chan struct{}
	maxSize       int
	batchSize     int
	flushInterval time.Duration
	closed        bool
	started       bool
	mu            sync.RWMutex
	wg            sync.WaitGroup
	logger        *logrus.Logger
	handlers      []func([]Event) error
}

func NewEventQueue(bufferSize, batchSize int, flushInterval time.Duration, logger *logrus.Logger) *EventQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &EventQueue{
		items:         make(chan Event, bufferSize),
		done:          make(chan struct{}),
		maxSize:       bufferSize,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		handlers:      make([]func([]Event) error, 0),
	}
}

// Push adds an event without blocking.
func (q *EventQueue) Push(event Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler called for every batch.
func (q *EventQueue) Subscribe(handler func([]Event) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *EventQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	q.wg.Add(1)
	go q.process()
}

func (q *EventQueue) process() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, q.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		q.processBatch(batch)
		batch = make([]Event, 0, q.batchSize)
	}

	for {
		select {
		case <-q.done:
			// drain what was accepted before Close
			for {
				select {
				case event := <-q.items:
					batch = append(batch, event)
					if len(batch) >= q.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case event := <-q.items:
			batch = append(batch, event)
			if len(batch) >= q.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *EventQueue) processBatch(batch []Event) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).WithField("batch_size", len(batch)).Error("Handler failed to process event batch")
		}
	}
}

// Close stops accepting events, flushes what is buffered and waits for the
// processing loop to finish.
func (q *EventQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the number of events waiting to be batched.
func (q *EventQueue) Len() int {
	return len(q.items)
}
