package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shoplive/internal/core/domain"
	"shoplive/pkg/utils"
)

const streamColumns = `id, owner_id, title, is_active, created_at, updated_at`

// StreamRepository keeps one row per owner; owner_id is UNIQUE so Activate
// is a single upsert.
type StreamRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewStreamRepository(pool *pgxpool.Pool) *StreamRepository {
	return &StreamRepository{pool: pool, now: time.Now}
}

func (r *StreamRepository) Activate(ctx context.Context, owner domain.UserID, title string) (*domain.StreamRecord, error) {
	now := r.now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO streams (id, owner_id, title, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, TRUE, $4, $4)
		 ON CONFLICT (owner_id) DO UPDATE SET
		     is_active = TRUE,
		     title = CASE WHEN EXCLUDED.title = '' THEN streams.title ELSE EXCLUDED.title END,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+streamColumns,
		utils.NewID(), string(owner), title, now)

	rec, err := scanStream(row)
	if err != nil {
		return nil, fmt.Errorf("activate stream: %w", err)
	}
	return rec, nil
}

func (r *StreamRepository) Deactivate(ctx context.Context, owner domain.UserID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE streams SET is_active = FALSE, updated_at = $2 WHERE owner_id = $1`,
		string(owner), r.now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate stream: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStreamNotFound
	}
	return nil
}

func (r *StreamRepository) GetByOwner(ctx context.Context, owner domain.UserID) (*domain.StreamRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+streamColumns+` FROM streams WHERE owner_id = $1`, string(owner))
	rec, err := scanStream(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return rec, nil
}

func (r *StreamRepository) ListActive(ctx context.Context) ([]*domain.StreamRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+streamColumns+` FROM streams WHERE is_active ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active streams: %w", err)
	}
	defer rows.Close()

	list := []*domain.StreamRecord{}
	for rows.Next() {
		rec, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func scanStream(row pgx.Row) (*domain.StreamRecord, error) {
	var (
		rec       domain.StreamRecord
		id, owner string
	)
	if err := row.Scan(&id, &owner, &rec.Title, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.ID = domain.StreamID(id)
	rec.OwnerID = domain.UserID(owner)
	return &rec, nil
}
