package scheduler

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// JobType represents the periodic jobs of the view service
type JobType int

const (
	JobTypeRatesRefresh JobType = iota
	JobTypeSessionSweep
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeRatesRefresh:
		return "rates_refresh"
	case JobTypeSessionSweep:
		return "session_sweep"
	default:
		return "unknown"
	}
}

// RatesRefresher reloads exchange rates.
type RatesRefresher interface {
	Refresh(ctx context.Context) error
}

// SessionSweeper evicts idle list sessions.
type SessionSweeper interface {
	Sweep() int
}

type Config struct {
	Tick          time.Duration
	RatesInterval time.Duration
	SweepInterval time.Duration
	JobTimeout    time.Duration
}

// Scheduler manages periodic execution of background jobs
type Scheduler struct {
	rates    RatesRefresher
	sessions SessionSweeper
	config   Config
	logger   *logrus.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential job execution
	lastRun  map[JobType]time.Time
	// isStartupRun tracks whether the startup rates refresh is still running
	isStartupRun atomic.Bool
}

// NewScheduler creates a new scheduler. A nil rates refresher disables the
// rates job.
func NewScheduler(rates RatesRefresher, sessions SessionSweeper, config Config, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	if config.Tick <= 0 {
		config.Tick = time.Minute
	}
	if config.RatesInterval <= 0 {
		config.RatesInterval = 12 * time.Hour
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 5 * time.Minute
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}

	return &Scheduler{
		rates:    rates,
		sessions: sessions,
		config:   config,
		logger:   logger,
		stopChan: make(chan struct{}),
		lastRun:  make(map[JobType]time.Time),
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	now := time.Now()
	s.jobMutex.Lock()
	s.lastRun[JobTypeRatesRefresh] = now
	s.lastRun[JobTypeSessionSweep] = now
	s.jobMutex.Unlock()

	s.isStartupRun.Store(true)
	s.wg.Add(1)
	go s.runScheduler()
}

// runScheduler handles all scheduled tasks
func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup jobs")
		s.runRatesRefresh()
		s.isStartupRun.Store(false)
		s.logger.Info("Startup jobs completed")
	}()

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

// executeScheduledJobs runs all jobs whose interval elapsed by t
func (s *Scheduler) executeScheduledJobs(t time.Time) {
	// Skip if we're still running startup jobs
	if s.isStartupRun.Load() {
		s.logger.Debug("Skipping scheduled jobs while startup is in progress")
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if s.due(JobTypeSessionSweep, t, s.config.SweepInterval) {
		s.runSessionSweep()
	}
	if s.due(JobTypeRatesRefresh, t, s.config.RatesInterval) {
		s.runRatesRefresh()
	}
}

func (s *Scheduler) due(job JobType, t time.Time, interval time.Duration) bool {
	if t.Sub(s.lastRun[job]) < interval {
		return false
	}
	s.lastRun[job] = t
	return true
}

func (s *Scheduler) runRatesRefresh() {
	if s.rates == nil {
		return
	}
	log := s.logger.WithField("job_type", JobTypeRatesRefresh.String())
	log.Info("Starting job")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
	defer cancel()

	if err := s.rates.Refresh(ctx); err != nil {
		log.WithError(err).Error("Job failed")
		return
	}
	log.Info("Job completed successfully")
}

func (s *Scheduler) runSessionSweep() {
	if s.sessions == nil {
		return
	}
	removed := s.sessions.Sweep()
	s.logger.WithFields(logrus.Fields{
		"job_type": JobTypeSessionSweep.String(),
		"removed":  removed,
	}).Debug("Job completed successfully")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
