package domain

import (
	"time"
)

type StreamID string

// RoomID names a broadcast group.
type RoomID string

// StreamRoom is the broadcast group of the live stream hosted by hostID.
func StreamRoom(hostID UserID) RoomID {
	return RoomID("stream:" + string(hostID))
}

type StreamStatus string

const (
	StatusLive  StreamStatus = "live"
	StatusEnded StreamStatus = "ended"
)

// StreamRecord is the durable stream row. IsActive is the public "host is
// live" signal read by listing endpoints. One record exists per owner.
type StreamRecord struct {
	ID        StreamID  `json:"id"`
	OwnerID   UserID    `json:"ownerId"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment is a live comment. It lives both in the session ring buffer and in
// durable storage.
type Comment struct {
	ID        string    `json:"id"`
	StreamID  StreamID  `json:"streamId,omitempty"`
	AuthorID  UserID    `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// StreamInfo is a point-in-time copy of a live session's aggregates.
type StreamInfo struct {
	HostID    UserID       `json:"hostId"`
	StreamID  StreamID     `json:"streamId"`
	Title     string       `json:"title"`
	Viewers   int          `json:"viewers"`
	Likes     int          `json:"likes"`
	Comments  []Comment    `json:"comments"`
	StartedAt time.Time    `json:"startedAt"`
	Status    StreamStatus `json:"status"`
}

// DurationSeconds is the whole number of seconds the stream has been live at now.
func (i StreamInfo) DurationSeconds(now time.Time) int64 {
	d := now.Sub(i.StartedAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Engagement is the durable view of a stream's counters.
type Engagement struct {
	StreamID StreamID  `json:"streamId"`
	Views    int64     `json:"views"`
	Likes    int64     `json:"likes"`
	Comments []Comment `json:"comments"`
}
