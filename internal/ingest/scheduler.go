package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler triggers ingestion runs on a fixed interval. The interval doubles
// as the implicit retry policy: nothing in the pipeline retries on its own,
// failed sources and dropped batches self-heal on the next run.
type Scheduler struct {
	scheduler    *gocron.Scheduler
	orchestrator *Orchestrator
	interval     time.Duration
	logger       *slog.Logger
}

// NewScheduler creates a scheduler around the orchestrator.
func NewScheduler(orchestrator *Orchestrator, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler:    gocron.NewScheduler(time.UTC),
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logger,
	}
}

// Start runs one ingestion immediately, then repeats on the interval in the
// background until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	job := func() {
		s.orchestrator.Run(ctx)
	}

	if _, err := s.scheduler.Every(s.interval).StartImmediately().Do(job); err != nil {
		return err
	}

	s.logger.Info("ingestion scheduler started", "interval", s.interval)
	s.scheduler.StartAsync()
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
