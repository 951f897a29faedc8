package postgresql

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandreamato/spamanvil/internal/entity"
)

type EvalLogRepository struct {
	pool *pgxpool.Pool
}

func NewEvalLogRepository(pool *pgxpool.Pool) *EvalLogRepository {
	return &EvalLogRepository{pool: pool}
}

func (r *EvalLogRepository) Insert(ctx context.Context, e *entity.EvalLogEntry) (int64, error) {
	const q = `
INSERT INTO eval_logs (submission_id, score, provider, model, reason, heuristic_score, heuristic_details, processing_time_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id;
`
	var id int64
	if err := r.pool.QueryRow(ctx, q,
		e.SubmissionID, e.Score, e.Provider, e.Model, e.Reason,
		e.HeuristicScore, e.HeuristicDetails, e.ProcessingTimeMS,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// List returns log entries newest first with the total count for
// pagination. provider filters to one backend when non-empty.
func (r *EvalLogRepository) List(ctx context.Context, provider string, limit, offset int) ([]entity.EvalLogEntry, int, error) {
	const countQ = `SELECT COUNT(*) FROM eval_logs WHERE ($1 = '' OR provider = $1);`

	var total int
	if err := r.pool.QueryRow(ctx, countQ, provider).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
SELECT id, submission_id, score, provider, model, reason, heuristic_score, heuristic_details, processing_time_ms, created_at
FROM eval_logs
WHERE ($1 = '' OR provider = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.pool.Query(ctx, q, provider, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []entity.EvalLogEntry
	for rows.Next() {
		var (
			e       entity.EvalLogEntry
			model   *string
			reason  *string
			details *string
		)
		if err := rows.Scan(
			&e.ID, &e.SubmissionID, &e.Score, &e.Provider, &model,
			&reason, &e.HeuristicScore, &details, &e.ProcessingTimeMS, &e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if model != nil {
			e.Model = *model
		}
		if reason != nil {
			e.Reason = *reason
		}
		if details != nil {
			e.HeuristicDetails = *details
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// ScoredPair couples a logged model score with the moderation outcome of
// its submission. The threshold suggestion sweep consumes these.
type ScoredPair struct {
	Score int
	Spam  bool
}

// ScoredPairs returns every scored log entry whose submission has reached
// a human-visible verdict.
func (r *EvalLogRepository) ScoredPairs(ctx context.Context) ([]ScoredPair, error) {
	const q = `
SELECT e.score, s.status = 'spam'
FROM eval_logs e
JOIN submissions s ON s.id = e.submission_id
WHERE e.score IS NOT NULL AND s.status IN ('approved', 'spam');
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScoredPair
	for rows.Next() {
		var p ScoredPair
		if err := rows.Scan(&p.Score, &p.Spam); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteBefore prunes log entries older than cutoff during the retention
// sweep.
func (r *EvalLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM eval_logs WHERE created_at < $1;`

	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
