package domain

// Outbound event names.
const (
	EventReceiveMessage    = "receiveMessage"
	EventMessageSent       = "messageSent"
	EventStreamUpdate      = "streamUpdate"
	EventReceiveComment    = "receiveComment"
	EventUpdateLikes       = "updateLikes"
	EventViewerLeft        = "viewerLeft"
	EventStreamEnded       = "streamEnded"
	EventStreamListUpdated = "streamListUpdated"
	EventError             = "error"
)

type StreamUpdatePayload struct {
	HostID   UserID    `json:"hostId"`
	Viewers  int       `json:"viewers"`
	Likes    int       `json:"likes"`
	Comments []Comment `json:"comments"`
}

type LikesPayload struct {
	HostID UserID `json:"hostId"`
	Count  int    `json:"count"`
}

type ViewerLeftPayload struct {
	HostID  UserID `json:"hostId"`
	Viewers int    `json:"viewers"`
}

type StreamEndedPayload struct {
	HostID UserID `json:"hostId"`
}

type StreamListPayload struct {
	HostIDs []UserID `json:"hostIds"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code"`
	Event  string `json:"event,omitempty"`
}

// StreamInfoReply answers getStreamInfo.
type StreamInfoReply struct {
	HostID          UserID    `json:"hostId"`
	Title           string    `json:"title"`
	Viewers         int       `json:"viewers"`
	Likes           int       `json:"likes"`
	Comments        []Comment `json:"comments"`
	DurationSeconds int64     `json:"durationSeconds"`
}

// LikeReply acknowledges sendLike. Applied is false for a repeat like.
type LikeReply struct {
	Applied bool `json:"applied"`
	Likes   int  `json:"likes"`
}
