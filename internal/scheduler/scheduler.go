// Package scheduler drives the time-based jobs of the application.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"moneta/internal/logger"
	"moneta/internal/services"
)

// recurringSpec fires once daily at 00:01 in the processing timezone.
const recurringSpec = "1 0 * * *"

// Scheduler owns the cron runner that triggers the recurring transaction
// engine once per day. The engine's own idempotency claim makes overlapping
// or manually triggered runs safe, so no lock is taken here.
type Scheduler struct {
	cron      *cron.Cron
	recurring services.RecurringServicer
}

// New creates a Scheduler pinned to the fixed processing timezone.
func New(recurring services.RecurringServicer, loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		recurring: recurring,
	}
}

// Start registers the daily recurring job and starts the cron runner in its
// own goroutine.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(recurringSpec, s.runRecurring); err != nil {
		return err
	}
	s.cron.Start()
	logger.Get().Infow("scheduler started", "recurring_spec", recurringSpec)
	return nil
}

// Stop stops the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Get().Info("scheduler stopped")
}

func (s *Scheduler) runRecurring() {
	result, err := s.recurring.ProcessDueTemplates(time.Now())
	if err != nil {
		logger.Get().Errorw("scheduled recurring run failed", "error", err.Error())
		return
	}
	logger.Get().Infow("scheduled recurring run completed",
		"run_date", result.RunDate,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"errored", result.Errored,
	)
}
