package station

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Scheduler drives the station on a fixed publish interval. Cycles never
// overlap: a tick arriving while a cycle is still in flight is skipped,
// not queued, so at most one submission is outstanding at any time. The
// interval itself is the retry mechanism; there is no backoff inside a
// cycle.
type Scheduler struct {
	svc      Service
	interval time.Duration
	logger   *slog.Logger
	busy     atomic.Bool
}

func NewScheduler(svc Service, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		svc:      svc,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the scheduler until the context is cancelled. The first
// cycle runs immediately; afterwards one cycle runs per tick.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("contribution scheduler started",
		slog.Duration("publish_interval", s.interval))

	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("contribution scheduler stopping")

			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs a single cycle unless one is already in flight.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn("previous contribution cycle still in flight, skipping tick")

		return
	}
	defer s.busy.Store(false)

	if err := s.svc.RunCycle(ctx); err != nil {
		s.logger.Debug("contribution cycle returned error", slog.Any("error", err))
	}
}
