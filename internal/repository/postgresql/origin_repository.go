package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandreamato/spamanvil/internal/entity"
)

type OriginRepository struct {
	pool *pgxpool.Pool
}

func NewOriginRepository(pool *pgxpool.Pool) *OriginRepository {
	return &OriginRepository{pool: pool}
}

func (r *OriginRepository) GetByHash(ctx context.Context, hash string) (*entity.OriginRecord, error) {
	const q = `
SELECT id, origin_hash, origin_display, attempts, blocked_until, escalation_level, created_at, updated_at
FROM blocked_origins
WHERE origin_hash = $1;
`
	var rec entity.OriginRecord
	if err := r.pool.QueryRow(ctx, q, hash).Scan(
		&rec.ID,
		&rec.OriginHash,
		&rec.OriginDisplay,
		&rec.Attempts,
		&rec.BlockedUntil, // NULL => nil
		&rec.EscalationLevel,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *OriginRepository) Insert(ctx context.Context, rec *entity.OriginRecord) (int64, error) {
	const q = `
INSERT INTO blocked_origins (origin_hash, origin_display, attempts, blocked_until, escalation_level)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;
`
	var id int64
	if err := r.pool.QueryRow(ctx, q,
		rec.OriginHash, rec.OriginDisplay, rec.Attempts, rec.BlockedUntil, rec.EscalationLevel,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *OriginRepository) Update(ctx context.Context, rec *entity.OriginRecord) error {
	const q = `
UPDATE blocked_origins
SET attempts = $2, blocked_until = $3, escalation_level = $4, updated_at = now()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, q, rec.ID, rec.Attempts, rec.BlockedUntil, rec.EscalationLevel)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns origin records newest first along with the total count for
// pagination.
func (r *OriginRepository) List(ctx context.Context, limit, offset int) ([]entity.OriginRecord, int, error) {
	const countQ = `SELECT COUNT(*) FROM blocked_origins;`

	var total int
	if err := r.pool.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
SELECT id, origin_hash, origin_display, attempts, blocked_until, escalation_level, created_at, updated_at
FROM blocked_origins
ORDER BY updated_at DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []entity.OriginRecord
	for rows.Next() {
		var rec entity.OriginRecord
		if err := rows.Scan(
			&rec.ID, &rec.OriginHash, &rec.OriginDisplay, &rec.Attempts,
			&rec.BlockedUntil, &rec.EscalationLevel, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// Delete removes a record entirely. Unblocking an origin clears its
// attempt history and escalation level with it.
func (r *OriginRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM blocked_origins WHERE id = $1;`

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
