package ingest

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs SyncAll on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler creates a scheduler that triggers the orchestrator on the
// given cron expression ("@every 10m" style specs included).
func NewScheduler(log *slog.Logger, orchestrator *Orchestrator, schedule string) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	logger := log.With(slog.String("component", "sync_scheduler"))

	runner := cron.New()
	_, err := runner.AddFunc(schedule, func() {
		orchestrator.SyncAll(context.Background())
	})
	if err != nil {
		return nil, err
	}
	logger.Info("sync scheduled", slog.String("schedule", schedule))
	return &Scheduler{cron: runner, logger: logger}, nil
}

// Start begins firing scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("sync scheduler stopped")
}
