// Package scheduler owns the recurring maintenance jobs: the periodic
// batch pass, the backlog rescan and the nightly retention sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/alexandreamato/spamanvil/internal/service"
	"github.com/alexandreamato/spamanvil/internal/worker"
)

const jobTimeout = 5 * time.Minute

// BacklogScanner is the intake port the rescan job uses.
type BacklogScanner interface {
	ScanBacklog(ctx context.Context) (*service.ScanReport, error)
}

// RetentionSweeper is the queue port the nightly prune uses.
type RetentionSweeper interface {
	RetentionSweep(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// New registers the standing schedule: a batch pass every 5 minutes, a
// backlog rescan every 15 and a retention sweep at 03:00 UTC.
func New(runner *worker.Runner, intake BacklogScanner, queue RetentionSweeper, logger zerolog.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc("@every 5m", func() {
		runner.Trigger(service.ProcessOptions{})
	}); err != nil {
		return nil, fmt.Errorf("schedule batch pass: %w", err)
	}

	if _, err := c.AddFunc("@every 15m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		report, err := intake.ScanBacklog(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("backlog scan failed")
			return
		}
		if report.Scanned > 0 {
			logger.Info().Int("scanned", report.Scanned).Int("blocked", report.Blocked).
				Int("queued", report.Queued).Msg("backlog scan finished")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule backlog scan: %w", err)
	}

	if _, err := c.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := queue.RetentionSweep(ctx); err != nil {
			logger.Error().Err(err).Msg("retention sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule retention sweep: %w", err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop ends scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}
