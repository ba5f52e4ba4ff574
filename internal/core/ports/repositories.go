package ports

import (
	"context"

	"shoplive/internal/core/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// History returns every message exchanged between a and b in either
	// direction, oldest first.
	History(ctx context.Context, a, b domain.UserID) ([]*domain.Message, error)
}

type StreamRepository interface {
	// Activate creates or reuses the owner's record and marks it active.
	Activate(ctx context.Context, ownerID domain.UserID, title string) (*domain.StreamRecord, error)
	// Deactivate clears the active flag. It returns domain.ErrStreamNotFound
	// when the owner has no record.
	Deactivate(ctx context.Context, ownerID domain.UserID) error
	GetByOwner(ctx context.Context, ownerID domain.UserID) (*domain.StreamRecord, error)
	ListActive(ctx context.Context) ([]*domain.StreamRecord, error)
}

// EngagementRepository stores likes, views and comments keyed by
// (stream, user). AddView and AddLike are idempotent and report whether a new
// row was written.
type EngagementRepository interface {
	AddView(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error)
	AddLike(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error)
	AddComment(ctx context.Context, comment *domain.Comment) error
	CountViews(ctx context.Context, streamID domain.StreamID) (int64, error)
	CountLikes(ctx context.Context, streamID domain.StreamID) (int64, error)
	ListComments(ctx context.Context, streamID domain.StreamID) ([]*domain.Comment, error)
}
