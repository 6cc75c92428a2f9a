package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single user interaction worth counting.
type Event struct {
	ID         string
	Name       string
	Path       string
	SessionID  string
	Properties map[string]string
	Time       time.Time
}

func NewEvent(name, path, sessionID string, properties map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		Path:       path,
		SessionID:  sessionID,
		Properties: properties,
		Time:       time.Now().UTC(),
	}
}

// Record flattens the event into the message posted to the collector.
func (e Event) Record() map[string]interface{} {
	record := map[string]interface{}{
		"event_id":   e.ID,
		"event":      e.Name,
		"path":       e.Path,
		"session_id": e.SessionID,
		"time":       e.Time.Format(time.RFC3339),
	}
	for k, v := range e.Properties {
		if _, taken := record[k]; !taken {
			record[k] = v
		}
	}
	return record
}

// Tracker receives analytics events. Implementations must not block the caller.
type Tracker interface {
	Track(event Event) error
}

// NoopTracker drops every event.
type NoopTracker struct{}

func (NoopTracker) Track(Event) error {
	return nil
}
