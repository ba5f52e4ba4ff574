package domain

import "time"

// UserID is the stable identity of a user. It is owned by the authentication
// collaborator and never created or destroyed by the realtime layer.
type UserID string

// ConnID identifies one live transport connection. It is invalidated on every
// reconnect and must never key long-lived business state.
type ConnID string

type User struct {
	ID        UserID
	Username  string
	CreatedAt time.Time
}
