// Package scheduler drives the poll cycle on a fixed period.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/models"
	"github.com/yourusername/odds-tracker/internal/tracker"
)

// Poller runs one poll cycle
type Poller interface {
	PollOnce(ctx context.Context) (tracker.CycleResult, error)
}

// Scheduler manages the periodic poll job
type Scheduler struct {
	cron            *cron.Cron
	poller          Poller
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
	runOnStart      bool
	interval        time.Duration
}

// cronLogger adapts logrus to the cron.Logger interface
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

// NewScheduler creates a new scheduler. Triggers that fire while a cycle is still
// running are skipped.
func NewScheduler(poller Poller, logger *logrus.Logger) *Scheduler {
	cl := cronLogger{entry: logger.WithField("component", "scheduler")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		poller:          poller,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// SchedulePolling schedules the poll cycle every intervalSeconds. With runOnStart the
// first cycle runs as soon as the scheduler starts.
func (s *Scheduler) SchedulePolling(intervalSeconds int, runOnStart bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	if intervalSeconds < 5 {
		intervalSeconds = 5
	}
	s.interval = time.Duration(intervalSeconds) * time.Second
	s.runOnStart = runOnStart

	entryID, err := s.cron.AddJob(fmt.Sprintf("@every %ds", intervalSeconds), cron.FuncJob(s.runCycle))
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("interval_seconds", intervalSeconds).Info("Scheduled odds polling job")

	return nil
}

// runCycle runs one poll. Failures are logged by the tracker and never escape.
func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.poller.PollOnce(ctx); err != nil && !errors.Is(err, models.ErrCycleInProgress) {
		s.logger.WithError(err).Debug("Poll cycle ended without a snapshot")
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	if s.runOnStart {
		go s.runCycle()
	}

	return nil
}

// Stop waits for a running cycle to finish, up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	timer := time.NewTimer(s.gracefulTimeout)
	defer timer.Stop()

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-timer.C:
		return fmt.Errorf("scheduler did not stop within %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled poll
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}
