// Package worker drives batch queue passes in the background.
package worker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alexandreamato/spamanvil/internal/service"
)

// BatchProcessor is the queue port the runner drains.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, opts service.ProcessOptions) (service.ProcessReport, error)
}

// Runner serializes batch passes: triggers arriving while a pass is
// running or already pending are coalesced into at most one queued pass.
// Cross-process exclusion is the queue lease's job, not the runner's.
type Runner struct {
	queue   BatchProcessor
	logger  zerolog.Logger
	trigger chan service.ProcessOptions
}

func NewRunner(queue BatchProcessor, logger zerolog.Logger) *Runner {
	return &Runner{
		queue:   queue,
		logger:  logger,
		trigger: make(chan service.ProcessOptions, 1),
	}
}

// Trigger requests a pass with the given options. Returns false when a
// pass is already pending and this request was coalesced into it.
func (r *Runner) Trigger(opts service.ProcessOptions) bool {
	select {
	case r.trigger <- opts:
		return true
	default:
		return false
	}
}

// Run consumes triggers until the context is cancelled. Pass failures
// are logged and never stop the loop.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info().Msg("queue runner started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("queue runner stopped")
			return
		case opts := <-r.trigger:
			report, err := r.queue.ProcessBatch(ctx, opts)
			if err != nil {
				r.logger.Error().Err(err).Msg("batch pass failed")
				continue
			}
			if report.Skipped {
				r.logger.Debug().Msg("batch pass skipped, lease held elsewhere")
				continue
			}
			r.logger.Info().
				Int("attempted", report.Attempted).
				Int("processed", report.Processed).
				Int("remaining", report.Remaining).
				Bool("forced", opts.Forced).
				Msg("batch pass finished")
		}
	}
}
