package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/pkg/utils"
)

type MessagingService struct {
	repo        ports.MessageRepository
	presence    ports.PresenceRegistry
	broadcaster ports.Broadcaster
	metrics     ports.Metrics
	logger      *zap.SugaredLogger

	now   func() time.Time
	newID func() string
}

func NewMessagingService(
	repo ports.MessageRepository,
	presence ports.PresenceRegistry,
	broadcaster ports.Broadcaster,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *MessagingService {
	return &MessagingService{
		repo:        repo,
		presence:    presence,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		newID:       utils.NewID,
	}
}

// Send persists the message and then pushes it to whichever of the two
// parties is online. Offline receivers pick it up through History.
func (s *MessagingService) Send(ctx context.Context, senderID, receiverID domain.UserID, content domain.MessageContent) (*domain.Message, error) {
	msg, err := domain.NewMessage(s.newID(), senderID, receiverID, content, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		s.metrics.RecordStorageFailure("create_message")
		s.logger.Errorw("Failed to persist message",
			"sender_id", senderID,
			"receiver_id", receiverID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: persist message: %v", domain.ErrStorageFailure, err)
	}
	s.metrics.RecordMessage()

	if conn, ok := s.presence.Lookup(senderID); ok {
		if err := s.broadcaster.ToConnection(conn, domain.EventMessageSent, msg); err != nil {
			s.logger.Debugw("Echo to sender not delivered", "user_id", senderID, "error", err)
		}
	}
	if conn, ok := s.presence.Lookup(receiverID); ok {
		if err := s.broadcaster.ToConnection(conn, domain.EventReceiveMessage, msg); err != nil {
			s.logger.Debugw("Message not pushed to receiver", "user_id", receiverID, "error", err)
		}
	}

	return msg, nil
}

// History is the full conversation between a and b, oldest first.
func (s *MessagingService) History(ctx context.Context, a, b domain.UserID) ([]*domain.Message, error) {
	if a == "" || b == "" {
		return nil, fmt.Errorf("%w: both participants are required", domain.ErrInvalidPayload)
	}
	msgs, err := s.repo.History(ctx, a, b)
	if err != nil {
		s.metrics.RecordStorageFailure("message_history")
		return nil, fmt.Errorf("%w: load history: %v", domain.ErrStorageFailure, err)
	}
	return msgs, nil
}
