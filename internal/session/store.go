package session

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lwitkowski/aero-offers/internal/pagination"
)

const (
	CookieName = "aero_session"
	DefaultTTL = 30 * time.Minute
)

// Factory builds the pagination controller of a new session.
type Factory func(filter pagination.Filter) *pagination.Controller

type entry struct {
	controller *pagination.Controller
	lastAccess time.Time
}

// Store keeps one offer list controller per browser session.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	factory Factory
	ttl     time.Duration
	now     func() time.Time
	logger  *logrus.Logger
}

func NewStore(factory Factory, ttl time.Duration, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]*entry),
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Acquire returns the controller of the session, creating the session when
// the id is unknown or malformed. The returned id is the one to hand back to
// the browser. The controller is switched to filter if it differs.
func (s *Store) Acquire(id string, filter pagination.Filter) (string, *pagination.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := uuid.Parse(id); err == nil {
		if e, ok := s.entries[id]; ok {
			e.lastAccess = s.now()
			e.controller.SetFilter(filter)
			return id, e.controller
		}
	}

	id = uuid.NewString()
	controller := s.factory(filter)
	s.entries[id] = &entry{controller: controller, lastAccess: s.now()}
	s.logger.WithField("session_id", id).Debug("Created list session")
	return id, controller
}

// Get returns the controller of a live session without touching its filter.
func (s *Store) Get(id string) (*pagination.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e.lastAccess = s.now()
	return e.controller, true
}

// Sweep closes sessions idle for longer than the TTL and returns how many were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*pagination.Controller
	for id, e := range s.entries {
		if e.lastAccess.Before(cutoff) {
			expired = append(expired, e.controller)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	if len(expired) > 0 {
		s.logger.WithField("count", len(expired)).Info("Expired list sessions")
	}
	return len(expired)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close closes every session.
func (s *Store) Close() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range entries {
		e.controller.Close()
	}
}
