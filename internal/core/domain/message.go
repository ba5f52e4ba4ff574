package domain

import (
	"fmt"
	"strings"
	"time"
)

type MediaKind string

const (
	MediaText  MediaKind = "text"
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaText, MediaImage, MediaVideo:
		return true
	}
	return false
}

// MessageContent is the client-supplied part of a chat message.
type MessageContent struct {
	Body      *string   `json:"body,omitempty"`
	MediaKind MediaKind `json:"mediaKind,omitempty"`
	MediaRef  *string   `json:"mediaRef,omitempty"`
}

// Message is a durable private chat message. Body or MediaRef is always set.
type Message struct {
	ID         string    `json:"id"`
	SenderID   UserID    `json:"senderId"`
	ReceiverID UserID    `json:"receiverId"`
	Body       *string   `json:"body"`
	MediaKind  MediaKind `json:"mediaKind"`
	MediaRef   *string   `json:"mediaRef"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Resolve normalizes the content. Blank strings count as absent; a media
// reference requires an image or video kind; a text kind forbids one.
func (c MessageContent) Resolve() (body *string, kind MediaKind, ref *string, err error) {
	body = nonBlank(c.Body)
	ref = nonBlank(c.MediaRef)
	kind = c.MediaKind

	if body == nil && ref == nil {
		return nil, "", nil, ErrInvalidContent
	}

	if kind == "" {
		if ref != nil {
			return nil, "", nil, fmt.Errorf("%w: mediaKind is required with mediaRef", ErrInvalidContent)
		}
		kind = MediaText
	}
	if !kind.Valid() {
		return nil, "", nil, fmt.Errorf("%w: unknown mediaKind %q", ErrInvalidContent, kind)
	}
	if kind == MediaText && ref != nil {
		return nil, "", nil, fmt.Errorf("%w: text messages cannot carry mediaRef", ErrInvalidContent)
	}
	if kind != MediaText && ref == nil {
		return nil, "", nil, fmt.Errorf("%w: %s messages need mediaRef", ErrInvalidContent, kind)
	}
	return body, kind, ref, nil
}

// NewMessage builds a message from validated content.
func NewMessage(id string, sender, receiver UserID, content MessageContent, createdAt time.Time) (*Message, error) {
	if sender == "" || receiver == "" {
		return nil, fmt.Errorf("%w: sender and receiver are required", ErrInvalidPayload)
	}
	body, kind, ref, err := content.Resolve()
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		Body:       body,
		MediaKind:  kind,
		MediaRef:   ref,
		CreatedAt:  createdAt,
	}, nil
}

// Between reports whether the message belongs to the conversation of a and b.
func (m *Message) Between(a, b UserID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	if strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}
