package signal

import (
	"bytes"
	"encoding/json"

	"shoplive/internal/core/domain"
)

// Inbound event names.
const (
	EventJoin          = "join"
	EventSendMessage   = "sendMessage"
	EventStartStream   = "startStream"
	EventJoinStream    = "joinStream"
	EventLeaveStream   = "leaveStream"
	EventSendLike      = "sendLike"
	EventSendComment   = "sendComment"
	EventEndStream     = "endStream"
	EventGetStreamInfo = "getStreamInfo"
)

type JoinPayload struct {
	UserID domain.UserID `json:"userId" validate:"required,userid"`
}

// UnmarshalJSON also accepts a bare JSON string, as older clients send it.
func (p *JoinPayload) UnmarshalJSON(b []byte) error {
	if b = bytes.TrimSpace(b); len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		p.UserID = domain.UserID(id)
		return nil
	}
	type plain JoinPayload
	return json.Unmarshal(b, (*plain)(p))
}

type SendMessagePayload struct {
	SenderID   domain.UserID         `json:"senderId" validate:"required,userid"`
	ReceiverID domain.UserID         `json:"receiverId" validate:"required,userid"`
	Content    domain.MessageContent `json:"content"`
}

type StartStreamPayload struct {
	HostID domain.UserID `json:"hostId" validate:"required,userid"`
	Title  string        `json:"title" validate:"max=140"`
}

type StreamMemberPayload struct {
	HostID   domain.UserID `json:"hostId" validate:"required,userid"`
	ViewerID domain.UserID `json:"viewerId" validate:"required,userid"`
}

type LikePayload struct {
	HostID domain.UserID `json:"hostId" validate:"required,userid"`
	UserID domain.UserID `json:"userId" validate:"required,userid"`
}

type CommentPayload struct {
	HostID domain.UserID `json:"hostId" validate:"required,userid"`
	UserID domain.UserID `json:"userId" validate:"required,userid"`
	Text   string        `json:"text" validate:"required,notblank,max=500"`
}

type HostPayload struct {
	HostID domain.UserID `json:"hostId" validate:"required,userid"`
}

// roomScoped payloads address one host's live room.
type roomScoped interface {
	room() domain.UserID
}

func (p *StartStreamPayload) room() domain.UserID  { return p.HostID }
func (p *StreamMemberPayload) room() domain.UserID { return p.HostID }
func (p *LikePayload) room() domain.UserID         { return p.HostID }
func (p *CommentPayload) room() domain.UserID      { return p.HostID }
func (p *HostPayload) room() domain.UserID         { return p.HostID }
