// Package scheduler drives the periodic background jobs of the service.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
)

// Job is one runnable background task.
type Job interface {
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), log: log}
}

// ScheduleRefresh registers the news refresh sweep at the given interval.
// Partial sweeps are expected under load and logged at warn, not error.
func (s *Scheduler) ScheduleRefresh(interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("schedule refresh: non-positive interval %v", interval)
	}

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		start := time.Now()
		err := job.Run(context.Background())
		switch {
		case err == nil:
			s.log.Debug().Dur("took", time.Since(start)).Msg("background refresh complete")
		case errors.Is(err, domain.ErrPartialRefresh):
			s.log.Warn().Err(err).Dur("took", time.Since(start)).Msg("background refresh ran out of budget")
		default:
			s.log.Error().Err(err).Msg("background refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	return nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
