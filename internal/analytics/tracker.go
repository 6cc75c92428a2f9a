package analytics

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/sirupsen/logrus"
)

// QueueTracker pushes events onto an EventQueue. A full queue drops the event.
type QueueTracker struct {
	queue  *EventQueue
	logger *logrus.Logger
}

func NewQueueTracker(queue *EventQueue, logger *logrus.Logger) *QueueTracker {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &QueueTracker{queue: queue, logger: logger}
}

func (t *QueueTracker) Track(event Event) error {
	err := t.queue.Push(event)
	if errors.Is(err, ErrQueueFull) {
		t.logger.WithField("event", event.Name).Warn("Analytics queue is full, dropping event")
	}
	return err
}

type FluentConfig struct {
	Host      string
	Port      int
	TagPrefix string
	Timeout   time.Duration
}

// NewFluentPoster connects to a fluentd / fluent-bit forward input.
func NewFluentPoster(cfg FluentConfig) (*fluent.Fluent, error) {
	if cfg.TagPrefix == "" {
		return nil, fmt.Errorf("fluentd tag prefix is required")
	}

	poster, err := fluent.New(fluent.Config{
		FluentHost: cfg.Host,
		FluentPort: cfg.Port,
		TagPrefix:  cfg.TagPrefix,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fluentd client: %w", err)
	}
	return poster, nil
}
