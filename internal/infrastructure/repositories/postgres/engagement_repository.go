package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"shoplive/internal/core/domain"
)

// EngagementRepository relies on the (stream_id, user_id) primary keys for
// one view and one like per user.
type EngagementRepository struct {
	pool *pgxpool.Pool
}

func NewEngagementRepository(pool *pgxpool.Pool) *EngagementRepository {
	return &EngagementRepository{pool: pool}
}

func (r *EngagementRepository) AddView(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO stream_views (stream_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		string(streamID), string(userID))
	if err != nil {
		return false, fmt.Errorf("insert view: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EngagementRepository) AddLike(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO stream_likes (stream_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		string(streamID), string(userID))
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EngagementRepository) AddComment(ctx context.Context, c *domain.Comment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stream_comments (id, stream_id, user_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, string(c.StreamID), string(c.AuthorID), c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *EngagementRepository) CountViews(ctx context.Context, streamID domain.StreamID) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM stream_views WHERE stream_id = $1`, streamID)
}

func (r *EngagementRepository) CountLikes(ctx context.Context, streamID domain.StreamID) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM stream_likes WHERE stream_id = $1`, streamID)
}

func (r *EngagementRepository) count(ctx context.Context, q string, streamID domain.StreamID) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, q, string(streamID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (r *EngagementRepository) ListComments(ctx context.Context, streamID domain.StreamID) ([]*domain.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, stream_id, user_id, text, created_at FROM stream_comments
		 WHERE stream_id = $1 ORDER BY created_at ASC, id ASC`,
		string(streamID))
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	list := []*domain.Comment{}
	for rows.Next() {
		var (
			c              domain.Comment
			stream, author string
		)
		if err := rows.Scan(&c.ID, &stream, &author, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.StreamID = domain.StreamID(stream)
		c.AuthorID = domain.UserID(author)
		list = append(list, &c)
	}
	return list, rows.Err()
}
