package analytics

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Poster delivers one record to the collector. *fluent.Fluent satisfies it.
type Poster interface {
	Post(tag string, message interface{}) error
	Close() error
}

type DispatcherConfig struct {
	Tag        string
	MaxRetries int
	RetryDelay time.Duration
}

// Dispatcher posts event batches taken from the queue, retrying failed posts.
type Dispatcher struct {
	poster Poster
	queue  *EventQueue
	config DispatcherConfig
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(poster Poster, queue *EventQueue, config DispatcherConfig, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if config.Tag == "" {
		config.Tag = "events"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		poster: poster,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes the dispatcher to the queue and starts the queue.
func (d *Dispatcher) Start() {
	d.queue.Subscribe(d.processBatch)
	d.queue.Start()
}

// Stop flushes the queue, then closes the poster. Retry delays end once Stop
// is called, so the final flush makes a single attempt per batch.
func (d *Dispatcher) Stop() error {
	d.logger.WithField("pending", d.queue.Len()).Info("Stopping analytics dispatcher")
	d.cancel()
	if err := d.queue.Close(); err != nil {
		return fmt.Errorf("failed to close event queue: %w", err)
	}
	if err := d.poster.Close(); err != nil {
		return fmt.Errorf("failed to close analytics poster: %w", err)
	}
	return nil
}

// processBatch posts every event of the batch. Events already delivered are
// not posted again on retry.
func (d *Dispatcher) processBatch(batch []Event) error {
	sent := 0
	var err error
	for attempt := 0; attempt <= d.config.MaxRetries; attempt++ {
		if attempt > 0 {
			d.logger.Infof("Retrying event batch, attempt %d of %d", attempt, d.config.MaxRetries)
			if !d.wait() {
				break
			}
		}

		for sent < len(batch) {
			if err = d.poster.Post(d.config.Tag, batch[sent].Record()); err != nil {
				break
			}
			sent++
		}

		if sent == len(batch) {
			d.logger.WithField("batch_size", len(batch)).Debug("Posted event batch")
			return nil
		}

		d.logger.WithError(err).WithField("pending", len(batch)-sent).Warn("Posting event batch failed")
	}

	return fmt.Errorf("failed to post %d of %d events after %d attempts: %w", len(batch)-sent, len(batch), d.config.MaxRetries+1, err)
}

// wait sleeps for the retry delay and reports false if the dispatcher is stopping.
func (d *Dispatcher) wait() bool {
	timer := time.NewTimer(d.config.RetryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-d.ctx.Done():
		return false
	}
}
