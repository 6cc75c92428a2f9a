package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	return r.err
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 0
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestJobType_String(t *testing.T) {
	assert.Equal(t, "rates_refresh", JobTypeRatesRefresh.String())
	assert.Equal(t, "session_sweep", JobTypeSessionSweep.String())
	assert.Equal(t, "unknown", JobType(42).String())
}

func TestScheduler_RunsStartupAndPeriodicJobs(t *testing.T) {
	rates := &countingRefresher{}
	sweeper := &countingSweeper{}

	s := NewScheduler(rates, sweeper, Config{
		Tick:          5 * time.Millisecond,
		RatesInterval: 20 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	}, quietLogger())
	s.Start()

	assert.Eventually(t, func() bool {
		return rates.calls.Load() >= 2 && sweeper.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
}

func TestScheduler_ExecuteScheduledJobs(t *testing.T) {
	rates := &countingRefresher{err: errors.New("ecb unavailable")}
	sweeper := &countingSweeper{}

	s := NewScheduler(rates, sweeper, Config{
		RatesInterval: time.Hour,
		SweepInterval: 5 * time.Minute,
	}, quietLogger())

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.lastRun[JobTypeRatesRefresh] = start
	s.lastRun[JobTypeSessionSweep] = start

	s.executeScheduledJobs(start.Add(time.Minute))
	assert.Equal(t, int32(0), sweeper.calls.Load())
	assert.Equal(t, int32(0), rates.calls.Load())

	s.executeScheduledJobs(start.Add(5 * time.Minute))
	assert.Equal(t, int32(1), sweeper.calls.Load())
	assert.Equal(t, int32(0), rates.calls.Load())

	// a failing refresh is logged, not retried before the next interval
	s.executeScheduledJobs(start.Add(time.Hour))
	assert.Equal(t, int32(1), rates.calls.Load())
	s.executeScheduledJobs(start.Add(time.Hour + time.Minute))
	assert.Equal(t, int32(1), rates.calls.Load())
}

func TestScheduler_SkipsWhileStartupRuns(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewScheduler(nil, sweeper, Config{SweepInterval: time.Minute}, quietLogger())
	s.isStartupRun.Store(true)

	s.executeScheduledJobs(time.Now().Add(time.Hour))
	assert.Equal(t, int32(0), sweeper.calls.Load())
}

func TestScheduler_NilJobsAreSkipped(t *testing.T) {
	s := NewScheduler(nil, nil, Config{Tick: 5 * time.Millisecond}, quietLogger())
	s.Start()
	s.Stop()
}
