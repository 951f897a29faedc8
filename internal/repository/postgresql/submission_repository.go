package postgresql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandreamato/spamanvil/internal/entity"
)

type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

func (r *SubmissionRepository) Create(ctx context.Context, s *entity.Submission) (uuid.UUID, error) {
	const q = `
INSERT INTO submissions (author_name, author_email, author_url, content, post_title, post_excerpt, origin_ip, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id;
`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q,
		s.AuthorName, s.AuthorEmail, s.AuthorURL, s.Content, s.PostTitle, s.PostExcerpt, s.OriginIP, string(s.Status),
	).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Submission, error) {
	const q = `
SELECT id, author_name, author_email, author_url, content, post_title, post_excerpt, origin_ip, status, created_at
FROM submissions
WHERE id = $1;
`
	var (
		s          entity.Submission
		statusText string
	)
	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&s.ID,
		&s.AuthorName,
		&s.AuthorEmail,
		&s.AuthorURL,
		&s.Content,
		&s.PostTitle,
		&s.PostExcerpt,
		&s.OriginIP,
		&statusText,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.Status = entity.SubmissionStatus(statusText)
	return &s, nil
}

func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.SubmissionStatus) error {
	const q = `UPDATE submissions SET status = $2 WHERE id = $1;`

	tag, err := r.pool.Exec(ctx, q, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnqueuedPending returns pending submissions that have no active job,
// oldest first. The backlog scan enqueues these. A max_retries job counts
// as active here: reviving a parked job takes a forced claim, not a fresh
// enqueue.
func (r *SubmissionRepository) ListUnqueuedPending(ctx context.Context, limit int) ([]entity.Submission, error) {
	const q = `
SELECT s.id, s.author_name, s.author_email, s.author_url, s.content, s.post_title, s.post_excerpt, s.origin_ip, s.status, s.created_at
FROM submissions s
WHERE s.status = 'pending'
  AND NOT EXISTS (
      SELECT 1 FROM jobs j
      WHERE j.submission_id = s.id AND j.status IN ('queued', 'processing', 'failed', 'max_retries')
  )
ORDER BY s.created_at ASC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Submission
	for rows.Next() {
		var (
			s          entity.Submission
			statusText string
		)
		if err := rows.Scan(
			&s.ID, &s.AuthorName, &s.AuthorEmail, &s.AuthorURL,
			&s.Content, &s.PostTitle, &s.PostExcerpt, &s.OriginIP, &statusText, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		s.Status = entity.SubmissionStatus(statusText)
		out = append(out, s)
	}
	return out, rows.Err()
}
