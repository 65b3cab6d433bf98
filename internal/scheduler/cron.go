package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/controllers"
	"github.com/animarr/animarr/internal/models"
)

// historySize bounds the in-memory cycle history kept for the status API
const historySize = 20

// Scheduler runs poll cycles on a cron cadence and keeps a bounded
// history of recent results. Cycle results are observability data only
// and are never persisted.
type Scheduler struct {
	cron    *cron.Cron
	tracker *controllers.Tracker
	logger  *logrus.Logger

	// runMu serializes cycles: the cron tick, the initial run and the
	// manual trigger never overlap
	runMu sync.Mutex

	mu      sync.Mutex
	history []*models.CycleResult

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler
func NewScheduler(tracker *controllers.Tracker, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(),
		tracker: tracker,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the polling schedule and kicks off an initial cycle
func (s *Scheduler) Start(timesPerDay int) error {
	s.logger.Info("Starting scheduler")

	spec, err := cronSpec(timesPerDay)
	if err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(spec, func() {
		s.runCycle()
	}); err != nil {
		return fmt.Errorf("failed to add poll job: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("schedule", spec).Info("Scheduler started")

	// Run the first cycle immediately instead of waiting for the next tick
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCycle()
	}()

	return nil
}

// Stop halts the cron loop and waits for an in-flight cycle to drain
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// RunNow triggers a cycle outside the schedule and returns its result
func (s *Scheduler) RunNow() (*models.CycleResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	result, err := s.tracker.RunCycle(s.ctx)
	if err != nil {
		return nil, err
	}
	s.record(result)
	return result, nil
}

// History returns the recent cycle results, newest first
func (s *Scheduler) History() []*models.CycleResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.CycleResult, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Scheduler) runCycle() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	result, err := s.tracker.RunCycle(s.ctx)
	if err != nil {
		s.logger.WithError(err).Error("Poll cycle failed")
		return
	}
	s.record(result)
}

func (s *Scheduler) record(result *models.CycleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]*models.CycleResult{result}, s.history...)
	if len(s.history) > historySize {
		s.history = s.history[:historySize]
	}
}

// cronSpec converts a times-per-day setting into a cron expression with
// evenly spaced runs starting at midnight
func cronSpec(timesPerDay int) (string, error) {
	if timesPerDay < 1 || timesPerDay > 24 {
		return "", fmt.Errorf("poll times per day must be between 1 and 24, got %d", timesPerDay)
	}
	if timesPerDay == 1 {
		return "0 0 * * *", nil
	}
	if 24%timesPerDay == 0 {
		return fmt.Sprintf("0 */%d * * *", 24/timesPerDay), nil
	}
	// Uneven divisors fall back to hourly-interval rounding
	interval := 24 / timesPerDay
	if interval < 1 {
		interval = 1
	}
	return fmt.Sprintf("0 */%d * * *", interval), nil
}
