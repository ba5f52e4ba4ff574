package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"shoplive/internal/core/domain"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, body, media_kind, media_ref, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, string(msg.SenderID), string(msg.ReceiverID), msg.Body, string(msg.MediaKind), msg.MediaRef, msg.Read, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// History returns the conversation of a and b, oldest first.
func (r *MessageRepository) History(ctx context.Context, a, b domain.UserID) ([]*domain.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, sender_id, receiver_id, body, media_kind, media_ref, is_read, created_at
		 FROM messages
		 WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY created_at ASC, id ASC`,
		string(a), string(b))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	list := []*domain.Message{}
	for rows.Next() {
		var (
			m                domain.Message
			sender, receiver string
			kind             string
		)
		if err := rows.Scan(&m.ID, &sender, &receiver, &m.Body, &kind, &m.MediaRef, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SenderID = domain.UserID(sender)
		m.ReceiverID = domain.UserID(receiver)
		m.MediaKind = domain.MediaKind(kind)
		list = append(list, &m)
	}
	return list, rows.Err()
}
