package postgresql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandreamato/spamanvil/internal/entity"
)

// ErrAlreadyQueued is returned by Enqueue when the submission already has
// an active job. At most one non-terminal job exists per submission.
var ErrAlreadyQueued = errors.New("submission already has an active job")

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `id, submission_id, status, score, reason, provider, model,
heuristic_score, attempts, retry_at, created_at, updated_at`

func scanJob(row pgx.Row) (*entity.Job, error) {
	var (
		job        entity.Job
		statusText string
		reason     *string
		provider   *string
		model      *string
	)
	if err := row.Scan(
		&job.ID,
		&job.SubmissionID,
		&statusText,
		&job.Score, // NULL => nil
		&reason,
		&provider,
		&model,
		&job.HeuristicScore,
		&job.Attempts,
		&job.RetryAt, // NULL => nil
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	status, err := entity.ParseJobStatus(statusText)
	if err != nil {
		return nil, err
	}
	job.Status = status
	if reason != nil {
		job.Reason = *reason
	}
	if provider != nil {
		job.Provider = *provider
	}
	if model != nil {
		job.Model = *model
	}
	return &job, nil
}

// Enqueue inserts a queued job unless the submission already has one in
// a non-completed state. A max_retries job also blocks a new insert; its
// only exit is the forced claim path.
func (r *JobRepository) Enqueue(ctx context.Context, submissionID uuid.UUID, heuristicScore int) (uuid.UUID, error) {
	const q = `
INSERT INTO jobs (submission_id, status, heuristic_score)
SELECT $1, 'queued', $2
WHERE NOT EXISTS (
    SELECT 1 FROM jobs
    WHERE submission_id = $1 AND status IN ('queued', 'processing', 'failed', 'max_retries')
)
RETURNING id;
`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q, submissionID, heuristicScore).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrAlreadyQueued
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`

	job, err := scanJob(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ReclaimStale requeues processing jobs whose last update is older than
// cutoff, recovering work orphaned by a crashed batch.
func (r *JobRepository) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
UPDATE jobs SET status = 'queued', retry_at = NULL, updated_at = now()
WHERE status = 'processing' AND updated_at < $1;
`
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SelectClaimable returns the oldest jobs eligible for a batch. A normal
// claim takes queued and failed jobs whose retry delay has elapsed; a
// forced claim also takes max_retries jobs and ignores retry delays.
func (r *JobRepository) SelectClaimable(ctx context.Context, limit int, forced bool, now time.Time) ([]entity.Job, error) {
	var rows pgx.Rows
	var err error
	if forced {
		const q = `
SELECT ` + jobColumns + ` FROM jobs
WHERE status IN ('queued', 'failed', 'max_retries')
ORDER BY created_at ASC
LIMIT $1;
`
		rows, err = r.pool.Query(ctx, q, limit)
	} else {
		const q = `
SELECT ` + jobColumns + ` FROM jobs
WHERE status IN ('queued', 'failed')
  AND (retry_at IS NULL OR retry_at <= $2)
ORDER BY created_at ASC
LIMIT $1;
`
		rows, err = r.pool.Query(ctx, q, limit, now)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// MarkProcessing transitions exactly the given jobs to processing,
// guarded by their current status so a concurrent claim cannot double
// take a job. A forced claim resets the attempt counter.
func (r *JobRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID, forced bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var q string
	if forced {
		q = `
UPDATE jobs SET status = 'processing', attempts = 0, retry_at = NULL, updated_at = now()
WHERE id = ANY($1) AND status IN ('queued', 'failed', 'max_retries');
`
	} else {
		q = `
UPDATE jobs SET status = 'processing', updated_at = now()
WHERE id = ANY($1) AND status IN ('queued', 'failed');
`
	}
	tag, err := r.pool.Exec(ctx, q, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepository) Complete(ctx context.Context, id uuid.UUID, score int, reason, provider, model string) error {
	const q = `
UPDATE jobs
SET status = 'completed', score = $2, reason = $3, provider = $4, model = $5,
    retry_at = NULL, updated_at = now()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, q, id, score, reason, provider, model)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Fail schedules a retry, persisting the failure reason alongside the
// backoff deadline.
func (r *JobRepository) Fail(ctx context.Context, id uuid.UUID, attempts int, reason string, retryAt time.Time) error {
	const q = `
UPDATE jobs SET status = 'failed', attempts = $2, reason = $3, retry_at = $4, updated_at = now()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, q, id, attempts, reason, retryAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExhaustRetries parks the job for manual intervention, keeping the last
// failure reason on the row.
func (r *JobRepository) ExhaustRetries(ctx context.Context, id uuid.UUID, attempts int, reason string) error {
	const q = `
UPDATE jobs SET status = 'max_retries', attempts = $2, reason = $3, retry_at = NULL, updated_at = now()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, q, id, attempts, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *JobRepository) StatusCounts(ctx context.Context) (*entity.QueueStatus, error) {
	const q = `SELECT status, COUNT(*) FROM jobs GROUP BY status;`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var status entity.QueueStatus
	for rows.Next() {
		var (
			st    string
			count int
		)
		if err := rows.Scan(&st, &count); err != nil {
			return nil, err
		}
		switch entity.JobStatus(st) {
		case entity.StatusQueued:
			status.Queued = count
		case entity.StatusProcessing:
			status.Processing = count
		case entity.StatusFailed:
			status.Failed = count
		case entity.StatusMaxRetries:
			status.MaxRetries = count
		case entity.StatusCompleted:
			status.Completed = count
		}
	}
	return &status, rows.Err()
}

// DeleteCompletedBefore prunes terminal jobs older than cutoff during the
// retention sweep.
func (r *JobRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
DELETE FROM jobs WHERE status IN ('completed', 'max_retries') AND updated_at < $1;
`
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
