package ports

import (
	"context"

	"shoplive/internal/core/domain"
)

// Connection is a live transport handle able to deliver outbound events.
type Connection interface {
	ID() domain.ConnID
	Send(event string, data interface{}) error
	Close() error
}

// Broadcaster delivers outbound events and manages broadcast group
// membership. Group membership is transport-level and independent of the
// viewer sets kept by the session store.
type Broadcaster interface {
	ToConnection(conn Connection, event string, data interface{}) error
	ToRoom(room domain.RoomID, event string, data interface{})
	ToAll(event string, data interface{})
	JoinRoom(room domain.RoomID, conn Connection)
	LeaveRoom(room domain.RoomID, conn Connection)
	ReleaseRoom(room domain.RoomID)
}

// WriteQueue runs best-effort durable writes off the caller's path.
type WriteQueue interface {
	Enqueue(op string, fn func(ctx context.Context) error)
}

// Locker is a best-effort cross-process mutex.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	SetOnlineUsers(n int)
	SetLiveRooms(n int)
	RecordEvent(event, result string)
	RecordDroppedFrame()
	RecordStorageFailure(op string)
	RecordMessage()
	RecordLike()
	RecordComment()
}

type MessagingService interface {
	Send(ctx context.Context, senderID, receiverID domain.UserID, content domain.MessageContent) (*domain.Message, error)
	History(ctx context.Context, a, b domain.UserID) ([]*domain.Message, error)
}

type StreamSessionService interface {
	StartStream(ctx context.Context, conn Connection, hostID domain.UserID, title string) (*domain.StreamRecord, error)
	JoinStream(ctx context.Context, conn Connection, hostID, viewerID domain.UserID) (domain.StreamInfo, error)
	LeaveStream(ctx context.Context, conn Connection, hostID, viewerID domain.UserID) error
	Like(ctx context.Context, hostID, userID domain.UserID) (domain.LikeReply, error)
	Comment(ctx context.Context, hostID, userID domain.UserID, text string) (domain.Comment, error)
	EndStream(ctx context.Context, hostID domain.UserID) error
	StreamInfo(ctx context.Context, hostID domain.UserID) (domain.StreamInfoReply, error)
	LiveHosts() []domain.UserID
}

// StreamQueryService answers read-only questions about streams.
type StreamQueryService interface {
	ActiveStreams(ctx context.Context) ([]*domain.StreamRecord, error)
	StreamInfo(ctx context.Context, hostID domain.UserID) (domain.StreamInfoReply, error)
	Engagement(ctx context.Context, hostID domain.UserID) (*domain.Engagement, error)
}

type DisconnectReconciler interface {
	Reconcile(ctx context.Context, conn Connection)
}

// PresenceRegistry maps identities to their current connection.
type PresenceRegistry interface {
	Register(userID domain.UserID, conn Connection) (previous Connection, replaced bool)
	Lookup(userID domain.UserID) (Connection, bool)
	IdentityOf(connID domain.ConnID) (domain.UserID, bool)
	Remove(conn Connection) (userID domain.UserID, active bool)
	Count() int
}
