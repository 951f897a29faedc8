package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/alexandreamato/spamanvil/internal/entity"
	"github.com/alexandreamato/spamanvil/internal/heuristics"
	"github.com/alexandreamato/spamanvil/internal/provider"
	"github.com/alexandreamato/spamanvil/internal/repository/postgresql"
)

const (
	// staleReclaimWindow is how long a job may sit in processing before a
	// claim treats it as orphaned and requeues it.
	staleReclaimWindow = 10 * time.Minute

	// leaseTTL bounds one batch pass; the lease is released on completion
	// and expires on its own if the process dies mid-pass.
	leaseTTL = 5 * time.Minute

	leaseKey = "anvil:queue:lease"

	maxAttempts = 3

	// maxErrorReason bounds the failure text persisted with a job.
	maxErrorReason = 500
)

// backoffSchedule is indexed by attempts-1 and clamped to the last entry.
var backoffSchedule = []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}

// Lease is the batch mutual-exclusion port.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLease implements Lease with SET NX EX.
type RedisLease struct {
	rdb redis.Cmdable
}

func NewRedisLease(rdb redis.Cmdable) *RedisLease {
	return &RedisLease{rdb: rdb}
}

func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, "1", ttl).Result()
}

func (l *RedisLease) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, key).Err()
}

// ScoreSelector is the provider-chain port (implementation: Selector).
type ScoreSelector interface {
	Score(ctx context.Context, slugs []string, consensus bool, systemPrompt, userPrompt string) (*provider.Result, []Attempt, error)
}

// ProcessReport is the outcome of one batch pass.
type ProcessReport struct {
	Attempted int  `json:"attempted"`
	Processed int  `json:"processed"`
	Remaining int  `json:"remaining"`
	Skipped   bool `json:"skipped,omitempty"`
}

// QueueService owns the job lifecycle: enqueue, claim, per-job scoring,
// retry backoff and retention.
type QueueService struct {
	jobs       JobRepository
	subs       SubmissionStore
	logs       EvalLogSink
	selector   ScoreSelector
	prompts    *PromptBuilder
	engine     *heuristics.Engine
	reputation SpamSignalRecorder
	counters   Counters
	settings   Settings
	lease      Lease
	hooks      *Hooks
	logger     zerolog.Logger
	now        func() time.Time
}

// SpamSignalRecorder is the reputation port the queue needs
// (implementation: ReputationService).
type SpamSignalRecorder interface {
	RecordSpamSignal(ctx context.Context, origin string) error
}

func NewQueueService(
	jobs JobRepository,
	subs SubmissionStore,
	logs EvalLogSink,
	selector ScoreSelector,
	prompts *PromptBuilder,
	engine *heuristics.Engine,
	reputation SpamSignalRecorder,
	counters Counters,
	settings Settings,
	lease Lease,
	hooks *Hooks,
	logger zerolog.Logger,
) *QueueService {
	return &QueueService{
		jobs:       jobs,
		subs:       subs,
		logs:       logs,
		selector:   selector,
		prompts:    prompts,
		engine:     engine,
		reputation: reputation,
		counters:   counters,
		settings:   settings,
		lease:      lease,
		hooks:      hooks,
		logger:     logger,
		now:        time.Now,
	}
}

// Enqueue creates a queued job for the submission. A submission with an
// active job is left alone.
func (s *QueueService) Enqueue(ctx context.Context, submissionID uuid.UUID, heuristicScore int) (uuid.UUID, error) {
	id, err := s.jobs.Enqueue(ctx, submissionID, heuristicScore)
	if err != nil {
		if errors.Is(err, postgresql.ErrAlreadyQueued) {
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("enqueue: %w", err)
	}
	s.logger.Debug().Stringer("job_id", id).Stringer("submission_id", submissionID).
		Int("heuristic_score", heuristicScore).Msg("job enqueued")
	return id, nil
}

// ProcessOptions tunes one batch pass. Forced claims also take
// max_retries jobs and reset their attempt counters; Budget, when
// positive, ends the pass early once the wall clock is spent, leaving
// unprocessed claims to the next pass or stale reclaim.
type ProcessOptions struct {
	Forced bool
	Budget time.Duration
}

// ProcessBatch runs one claim-and-score pass under the batch lease.
// A pass that loses the lease race reports Skipped without touching any
// job. Job failures never abort the pass.
func (s *QueueService) ProcessBatch(ctx context.Context, opts ProcessOptions) (ProcessReport, error) {
	acquired, err := s.lease.Acquire(ctx, leaseKey, leaseTTL)
	if err != nil {
		return ProcessReport{}, fmt.Errorf("acquire lease: %w", err)
	}
	if !acquired {
		return ProcessReport{Skipped: true}, nil
	}
	defer func() {
		if err := s.lease.Release(ctx, leaseKey); err != nil {
			s.logger.Warn().Err(err).Msg("lease release failed")
		}
	}()

	start := s.now()

	if n, err := s.jobs.ReclaimStale(ctx, start.Add(-staleReclaimWindow)); err != nil {
		s.logger.Warn().Err(err).Msg("stale reclaim failed")
	} else if n > 0 {
		s.logger.Info().Int64("reclaimed", n).Msg("requeued stale processing jobs")
	}

	s.refreshWordList(ctx)

	batchSize, err := s.settings.BatchSize(ctx)
	if err != nil {
		return ProcessReport{}, err
	}

	claimed, err := s.claim(ctx, batchSize, opts.Forced)
	if err != nil {
		return ProcessReport{}, err
	}

	report := ProcessReport{Attempted: len(claimed)}
	for _, job := range claimed {
		if opts.Budget > 0 && s.now().Sub(start) > opts.Budget {
			s.logger.Info().Int("processed", report.Processed).
				Msg("pass budget exhausted, leaving remaining jobs claimed")
			break
		}
		if err := s.processJob(ctx, &job); err != nil {
			s.logger.Error().Stringer("job_id", job.ID).Err(err).Msg("job processing failed")
			continue
		}
		report.Processed++
	}

	if counts, err := s.jobs.StatusCounts(ctx); err == nil {
		report.Remaining = counts.Queued + counts.Failed
	}
	return report, nil
}

// ProcessSingle claims and scores exactly one job, used by synchronous
// intake. The job must currently be claimable.
func (s *QueueService) ProcessSingle(ctx context.Context, jobID uuid.UUID) error {
	n, err := s.jobs.MarkProcessing(ctx, []uuid.UUID{jobID}, false)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("job %s is not claimable", jobID)
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	s.refreshWordList(ctx)
	return s.processJob(ctx, job)
}

// claim selects and atomically marks a batch processing. The two-step
// select-then-update is safe because the update is guarded by status and
// keyed by the selected id set.
func (s *QueueService) claim(ctx context.Context, limit int, forced bool) ([]entity.Job, error) {
	jobs, err := s.jobs.SelectClaimable(ctx, limit, forced, s.now())
	if err != nil {
		return nil, fmt.Errorf("select claimable: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	if _, err := s.jobs.MarkProcessing(ctx, ids, forced); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	if forced {
		for i := range jobs {
			jobs[i].Attempts = 0
		}
	}
	return jobs, nil
}

func (s *QueueService) refreshWordList(ctx context.Context) {
	words, err := s.settings.SpamWords(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("spam word reload failed")
		return
	}
	s.engine.SetWordList(words)
}

func (s *QueueService) processJob(ctx context.Context, job *entity.Job) error {
	sub, err := s.subs.GetByID(ctx, job.SubmissionID)
	if err != nil {
		if errors.Is(err, postgresql.ErrNotFound) {
			// The submission vanished before scoring; resolve the job
			// rather than retrying forever.
			return s.jobs.Complete(ctx, job.ID, 0, "submission no longer exists", "", "")
		}
		return fmt.Errorf("load submission: %w", err)
	}

	analysis := s.engine.Analyze(heuristics.Input{
		Content:     sub.Content,
		AuthorName:  sub.AuthorName,
		AuthorEmail: sub.AuthorEmail,
		AuthorURL:   sub.AuthorURL,
	})

	systemPrompt, userPrompt, err := s.prompts.Build(ctx, sub, analysis)
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}

	slugs, err := s.settings.ProviderOrder(ctx)
	if err != nil {
		return err
	}
	consensus, err := s.settings.AnvilMode(ctx)
	if err != nil {
		return err
	}

	result, attempts, scoreErr := s.selector.Score(ctx, slugs, consensus, systemPrompt, userPrompt)

	s.recordAttempts(ctx, job, &analysis, attempts)

	if scoreErr != nil {
		return s.handleFailure(ctx, job, scoreErr)
	}

	threshold, err := s.settings.SpamThreshold(ctx)
	if err != nil {
		return err
	}
	threshold = s.hooks.applyThreshold(threshold, sub)
	isSpam := result.Score >= threshold

	status := entity.SubmissionApproved
	if isSpam {
		status = entity.SubmissionSpam
	}
	if err := s.subs.UpdateStatus(ctx, sub.ID, status); err != nil {
		return fmt.Errorf("set submission status: %w", err)
	}
	if err := s.jobs.Complete(ctx, job.ID, result.Score, result.Reason, result.Provider, result.Model); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	s.counters.Incr(ctx, CounterChecked)
	if isSpam {
		s.counters.Incr(ctx, CounterSpamDetected)
		if err := s.reputation.RecordSpamSignal(ctx, sub.OriginIP); err != nil {
			s.logger.Warn().Err(err).Msg("origin signal failed")
		}
	} else {
		s.counters.Incr(ctx, CounterHamApproved)
	}

	s.logger.Info().
		Stringer("job_id", job.ID).
		Stringer("submission_id", sub.ID).
		Int("score", result.Score).
		Int("threshold", threshold).
		Str("provider", result.Provider).
		Bool("spam", isSpam).
		Msg("job completed")
	return nil
}

// recordAttempts writes one eval-log entry per provider invocation,
// successes and failures alike, with the heuristic context attached.
func (s *QueueService) recordAttempts(ctx context.Context, job *entity.Job, analysis *heuristics.Analysis, attempts []Attempt) {
	for _, a := range attempts {
		s.counters.Incr(ctx, CounterProviderCalls)
		entry := entity.EvalLogEntry{
			SubmissionID:     job.SubmissionID,
			Provider:         a.Slug,
			Model:            a.Model,
			HeuristicScore:   &analysis.Score,
			HeuristicDetails: heuristics.FormatForPrompt(*analysis),
		}
		if a.Result != nil {
			score := a.Result.Score
			entry.Score = &score
			entry.Reason = a.Result.Reason
			ms := a.Result.ProcessingTimeMS
			entry.ProcessingTimeMS = &ms
		} else if a.Err != nil {
			entry.Reason = truncateReason(a.Err.Error())
			s.counters.Incr(ctx, CounterProviderErrors)
		}
		if _, err := s.logs.Insert(ctx, &entry); err != nil {
			s.logger.Warn().Err(err).Msg("eval log write failed")
		}
	}
}

func (s *QueueService) handleFailure(ctx context.Context, job *entity.Job, cause error) error {
	attempts := job.Attempts + 1
	reason := truncateReason(cause.Error())
	if attempts >= maxAttempts {
		s.logger.Warn().Stringer("job_id", job.ID).Int("attempts", attempts).
			Str("reason", reason).Msg("job exhausted retries")
		return s.jobs.ExhaustRetries(ctx, job.ID, attempts, reason)
	}

	idx := attempts - 1
	if idx >= len(backoffSchedule) {
		idx = len(backoffSchedule) - 1
	}
	retryAt := s.now().Add(backoffSchedule[idx])

	s.logger.Info().Stringer("job_id", job.ID).Int("attempts", attempts).
		Time("retry_at", retryAt).Str("reason", reason).
		Msg("job scheduled for retry")
	return s.jobs.Fail(ctx, job.ID, attempts, reason, retryAt)
}

// Status returns the per-state job counts.
func (s *QueueService) Status(ctx context.Context) (*entity.QueueStatus, error) {
	return s.jobs.StatusCounts(ctx)
}

// RetentionSweep prunes eval logs and terminal jobs older than the
// configured retention period.
func (s *QueueService) RetentionSweep(ctx context.Context) error {
	days, err := s.settings.LogRetentionDays(ctx)
	if err != nil {
		return err
	}
	cutoff := s.now().AddDate(0, 0, -days)

	logsDeleted, err := s.logs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune eval logs: %w", err)
	}
	jobsDeleted, err := s.jobs.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune jobs: %w", err)
	}
	s.logger.Info().Int64("logs_deleted", logsDeleted).Int64("jobs_deleted", jobsDeleted).
		Int("retention_days", days).Msg("retention sweep finished")
	return nil
}

// truncateReason bounds a failure text, cutting on a rune boundary.
func truncateReason(s string) string {
	if runes := []rune(s); len(runes) > maxErrorReason {
		return string(runes[:maxErrorReason])
	}
	return s
}
