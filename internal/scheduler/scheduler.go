package scheduler

import (
	"context"
	"fmt"
	"sync"

	"betlab/ingestion/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// RunFunc executes one ingestion pass over the shard directory.
type RunFunc func(ctx context.Context) error

// Scheduler triggers periodic re-ingestion of the shard directory.
// Re-runs are safe: previously loaded records are rejected as duplicates,
// so the cron job only picks up shards that appeared since the last pass.
type Scheduler struct {
	cfg  *config.Config
	run  RunFunc
	cron *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, run RunFunc) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		run:  run,
		cron: cron.New(),
	}
}

// Start registers the ingestion cron job and starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.IngestCron, func() {
		s.trigger(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule ingestion: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.IngestCron).
		Msg("Periodic ingestion scheduled")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	log.Info().Msg("Scheduler stopped")
}

// trigger runs one ingestion pass unless one is already in flight.
// Overlapping passes would double-read the same shards for no benefit.
func (s *Scheduler) trigger(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn().Msg("Previous ingestion run still in progress, skipping this trigger")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Info().Msg("Running scheduled ingestion...")
	if err := s.run(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled ingestion failed")
	}
}
