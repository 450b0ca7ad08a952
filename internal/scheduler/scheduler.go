package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/application/earningsservice"
	"github.com/uuakee/xotc/pkg/config"
)

// Scheduler drives the periodic earnings settlement. Runs are serialized;
// a pass still in flight when the ticker fires again simply delays the next
// one.
type Scheduler struct {
	earningsSvc earningsservice.IEarningsService
	interval    time.Duration
	runOnBoot   bool
	logger      zerolog.Logger
}

func New(earningsSvc earningsservice.IEarningsService, cfg config.EarningsConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		earningsSvc: earningsSvc,
		interval:    cfg.Interval,
		runOnBoot:   cfg.RunOnBoot,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("Earnings scheduler started")

	if s.runOnBoot {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Earnings scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.earningsSvc.ProcessScheduled(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Earnings pass failed")
		return
	}
	if result.Processed > 0 {
		s.logger.Info().
			Int("paid", result.Paid).
			Int("unvalidated", result.Unvalidated).
			Int("failed", result.Failed).
			Msg("Earnings pass finished")
	}
}
