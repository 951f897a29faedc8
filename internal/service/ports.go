// Package service holds the pipeline orchestration: intake decisions,
// queue claim and batch processing, provider selection, prompt building,
// origin reputation and statistics.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alexandreamato/spamanvil/internal/entity"
	"github.com/alexandreamato/spamanvil/internal/provider"
	"github.com/alexandreamato/spamanvil/internal/repository/postgresql"
)

// Settings is the configuration port (implementation: settings.Service).
type Settings interface {
	Enabled(ctx context.Context) (bool, error)
	Mode(ctx context.Context) (string, error)
	SpamThreshold(ctx context.Context) (int, error)
	HeuristicAutoSpam(ctx context.Context) (int, error)
	BatchSize(ctx context.Context) (int, error)
	ProviderOrder(ctx context.Context) ([]string, error)
	AnvilMode(ctx context.Context) (bool, error)
	OriginBlockingEnabled(ctx context.Context) (bool, error)
	OriginBlockThreshold(ctx context.Context) (int, error)
	SiteLanguage(ctx context.Context) (string, error)
	SystemPrompt(ctx context.Context) (string, error)
	UserPrompt(ctx context.Context) (string, error)
	SpamWords(ctx context.Context) ([]string, error)
	LogRetentionDays(ctx context.Context) (int, error)
}

// JobRepository is the job table port (implementation:
// postgresql.JobRepository).
type JobRepository interface {
	Enqueue(ctx context.Context, submissionID uuid.UUID, heuristicScore int) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
	SelectClaimable(ctx context.Context, limit int, forced bool, now time.Time) ([]entity.Job, error)
	MarkProcessing(ctx context.Context, ids []uuid.UUID, forced bool) (int64, error)
	Complete(ctx context.Context, id uuid.UUID, score int, reason, provider, model string) error
	Fail(ctx context.Context, id uuid.UUID, attempts int, reason string, retryAt time.Time) error
	ExhaustRetries(ctx context.Context, id uuid.UUID, attempts int, reason string) error
	StatusCounts(ctx context.Context) (*entity.QueueStatus, error)
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SubmissionStore is the hosted-content port (implementation:
// postgresql.SubmissionRepository).
type SubmissionStore interface {
	Create(ctx context.Context, s *entity.Submission) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Submission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.SubmissionStatus) error
	ListUnqueuedPending(ctx context.Context, limit int) ([]entity.Submission, error)
}

// EvalLogSink is the append-only evaluation log port (implementation:
// postgresql.EvalLogRepository).
type EvalLogSink interface {
	Insert(ctx context.Context, e *entity.EvalLogEntry) (int64, error)
	List(ctx context.Context, provider string, limit, offset int) ([]entity.EvalLogEntry, int, error)
	ScoredPairs(ctx context.Context) ([]postgresql.ScoredPair, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OriginStore is the reputation table port (implementation:
// postgresql.OriginRepository).
type OriginStore interface {
	GetByHash(ctx context.Context, hash string) (*entity.OriginRecord, error)
	Insert(ctx context.Context, rec *entity.OriginRecord) (int64, error)
	Update(ctx context.Context, rec *entity.OriginRecord) error
	List(ctx context.Context, limit, offset int) ([]entity.OriginRecord, int, error)
	Delete(ctx context.Context, id int64) error
}

// ProviderFactory builds a scoring backend for a configured slug.
type ProviderFactory interface {
	Create(ctx context.Context, slug string) (provider.Provider, error)
}

// Counters is the daily-bucketed counter port (implementation:
// StatsService). Increments are best effort.
type Counters interface {
	Incr(ctx context.Context, key string)
}

// Counter keys.
const (
	CounterChecked          = "checked"
	CounterSpamDetected     = "spam_detected"
	CounterHamApproved      = "ham_approved"
	CounterHeuristicBlocked = "heuristic_blocked"
	CounterOriginBlocked    = "origin_blocked"
	CounterProviderCalls    = "provider_calls"
	CounterProviderErrors   = "provider_errors"
)
