package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/internal/core/session"
	"shoplive/pkg/utils"
)

// StreamSessionService drives the live room lifecycle. It is the only writer
// of both the session store and the durable stream records.
//
// Creation writes the durable record before the ephemeral session. Joins,
// likes and comments mutate the session, broadcast, and hand the durable
// write to the write queue. No session lock is held during storage I/O.
type StreamSessionService struct {
	streams     ports.StreamRepository
	engagement  ports.EngagementRepository
	store       *session.Store
	broadcaster ports.Broadcaster
	writes      ports.WriteQueue
	metrics     ports.Metrics
	logger      *zap.SugaredLogger

	now   func() time.Time
	newID func() string
}

func NewStreamSessionService(
	streams ports.StreamRepository,
	engagement ports.EngagementRepository,
	store *session.Store,
	broadcaster ports.Broadcaster,
	writes ports.WriteQueue,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *StreamSessionService {
	return &StreamSessionService{
		streams:     streams,
		engagement:  engagement,
		store:       store,
		broadcaster: broadcaster,
		writes:      writes,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		newID:       utils.NewID,
	}
}

func (s *StreamSessionService) StartStream(ctx context.Context, conn ports.Connection, hostID domain.UserID, title string) (*domain.StreamRecord, error) {
	title = utils.TruncateRunes(utils.SanitizeText(title), 140)

	existing, err := s.streams.GetByOwner(ctx, hostID)
	switch {
	case err == nil && existing.IsActive:
		return nil, domain.ErrAlreadyLive
	case err != nil && !errors.Is(err, domain.ErrStreamNotFound):
		return nil, s.storageFailure("get_stream", hostID, err)
	}
	if _, live := s.store.Get(hostID); live {
		return nil, domain.ErrAlreadyLive
	}

	record, err := s.streams.Activate(ctx, hostID, title)
	if err != nil {
		return nil, s.storageFailure("activate_stream", hostID, err)
	}

	if _, err := s.store.Create(hostID, record.ID, record.Title); err != nil {
		// A concurrent start for the same host won; the record it activated is ours too.
		return nil, err
	}

	room := domain.StreamRoom(hostID)
	if conn != nil {
		s.broadcaster.JoinRoom(room, conn)
	}
	s.metrics.SetLiveRooms(s.store.Count())
	s.broadcastLiveList()

	s.logger.Infow("Stream started",
		"host_id", hostID,
		"stream_id", record.ID,
		"title", record.Title,
	)
	return record, nil
}

func (s *StreamSessionService) JoinStream(ctx context.Context, conn ports.Connection, hostID, viewerID domain.UserID) (domain.StreamInfo, error) {
	info, added, err := s.store.AddViewer(hostID, viewerID)
	if err != nil {
		return domain.StreamInfo{}, err
	}

	room := domain.StreamRoom(hostID)
	if conn != nil {
		s.broadcaster.JoinRoom(room, conn)
		// The room may have ended (and its group been released) since
		// AddViewer; undo the subscribe so it cannot leak into a later session.
		if cur, live := s.store.Get(hostID); !live || cur.StreamID != info.StreamID {
			s.broadcaster.LeaveRoom(room, conn)
			return domain.StreamInfo{}, domain.ErrNotLive
		}
	}
	s.broadcaster.ToRoom(room, domain.EventStreamUpdate, domain.StreamUpdatePayload{
		HostID:   hostID,
		Viewers:  info.Viewers,
		Likes:    info.Likes,
		Comments: info.Comments,
	})

	if added {
		streamID := info.StreamID
		s.writes.Enqueue("add_view", func(ctx context.Context) error {
			_, err := s.engagement.AddView(ctx, streamID, viewerID)
			return err
		})
	}

	s.logger.Debugw("Viewer joined", "host_id", hostID, "user_id", viewerID, "viewers", info.Viewers)
	return info, nil
}

func (s *StreamSessionService) LeaveStream(ctx context.Context, conn ports.Connection, hostID, viewerID domain.UserID) error {
	info, removed, err := s.store.RemoveViewer(hostID, viewerID)
	if err != nil {
		return err
	}

	room := domain.StreamRoom(hostID)
	if conn != nil {
		s.broadcaster.LeaveRoom(room, conn)
	}
	if removed {
		s.broadcaster.ToRoom(room, domain.EventViewerLeft, domain.ViewerLeftPayload{
			HostID:  hostID,
			Viewers: info.Viewers,
		})
	}

	s.logger.Debugw("Viewer left", "host_id", hostID, "user_id", viewerID, "viewers", info.Viewers)
	return nil
}

// Like applies at most one like per user. A repeat is acknowledged with
// Applied=false and has no other effect.
func (s *StreamSessionService) Like(ctx context.Context, hostID, userID domain.UserID) (domain.LikeReply, error) {
	res, err := s.store.AddLike(hostID, userID)
	if err != nil {
		return domain.LikeReply{}, err
	}
	if !res.Applied {
		return domain.LikeReply{Applied: false, Likes: res.Count}, nil
	}

	s.metrics.RecordLike()
	s.broadcaster.ToRoom(domain.StreamRoom(hostID), domain.EventUpdateLikes, domain.LikesPayload{
		HostID: hostID,
		Count:  res.Count,
	})

	streamID := res.StreamID
	s.writes.Enqueue("add_like", func(ctx context.Context) error {
		_, err := s.engagement.AddLike(ctx, streamID, userID)
		return err
	})

	return domain.LikeReply{Applied: true, Likes: res.Count}, nil
}

func (s *StreamSessionService) Comment(ctx context.Context, hostID, userID domain.UserID, text string) (domain.Comment, error) {
	text = utils.TruncateRunes(utils.SanitizeText(text), 500)
	if text == "" {
		return domain.Comment{}, fmt.Errorf("%w: comment text is empty", domain.ErrInvalidPayload)
	}

	c, err := s.store.AppendComment(hostID, domain.Comment{
		ID:       s.newID(),
		AuthorID: userID,
		Text:     text,
	})
	if err != nil {
		return domain.Comment{}, err
	}

	s.metrics.RecordComment()
	s.broadcaster.ToRoom(domain.StreamRoom(hostID), domain.EventReceiveComment, c)

	stored := c
	s.writes.Enqueue("add_comment", func(ctx context.Context) error {
		return s.engagement.AddComment(ctx, &stored)
	})

	return c, nil
}

// EndStream closes the host's room. With no live session but an active
// durable record left behind, the record is deactivated and the call succeeds.
func (s *StreamSessionService) EndStream(ctx context.Context, hostID domain.UserID) error {
	if _, live := s.store.Get(hostID); !live {
		return s.endStale(ctx, hostID)
	}

	if err := s.streams.Deactivate(ctx, hostID); err != nil && !errors.Is(err, domain.ErrStreamNotFound) {
		// The room still closes; a later endStream retries the durable flag.
		_ = s.storageFailure("deactivate_stream", hostID, err)
	}

	final, ok := s.store.Destroy(hostID)
	if !ok {
		return domain.ErrNotLive
	}

	room := domain.StreamRoom(hostID)
	s.broadcaster.ToRoom(room, domain.EventStreamEnded, domain.StreamEndedPayload{HostID: hostID})
	s.metrics.SetLiveRooms(s.store.Count())
	s.broadcastLiveList()
	s.broadcaster.ReleaseRoom(room)

	s.logger.Infow("Stream ended",
		"host_id", hostID,
		"stream_id", final.StreamID,
		"viewers", final.Viewers,
		"likes", final.Likes,
		"duration_s", final.DurationSeconds(s.now()),
	)
	return nil
}

func (s *StreamSessionService) endStale(ctx context.Context, hostID domain.UserID) error {
	record, err := s.streams.GetByOwner(ctx, hostID)
	if errors.Is(err, domain.ErrStreamNotFound) {
		return domain.ErrNotLive
	}
	if err != nil {
		return s.storageFailure("get_stream", hostID, err)
	}
	if !record.IsActive {
		return domain.ErrNotLive
	}

	if err := s.streams.Deactivate(ctx, hostID); err != nil {
		return s.storageFailure("deactivate_stream", hostID, err)
	}
	s.logger.Infow("Deactivated stale stream record", "host_id", hostID, "stream_id", record.ID)
	s.broadcastLiveList()
	return nil
}

func (s *StreamSessionService) StreamInfo(ctx context.Context, hostID domain.UserID) (domain.StreamInfoReply, error) {
	info, ok := s.store.Get(hostID)
	if !ok {
		return domain.StreamInfoReply{}, domain.ErrNotLive
	}
	return domain.StreamInfoReply{
		HostID:          info.HostID,
		Title:           info.Title,
		Viewers:         info.Viewers,
		Likes:           info.Likes,
		Comments:        info.Comments,
		DurationSeconds: info.DurationSeconds(s.now()),
	}, nil
}

func (s *StreamSessionService) LiveHosts() []domain.UserID {
	return s.store.HostIDs()
}

func (s *StreamSessionService) ActiveStreams(ctx context.Context) ([]*domain.StreamRecord, error) {
	records, err := s.streams.ListActive(ctx)
	if err != nil {
		return nil, s.storageFailure("list_streams", "", err)
	}
	return records, nil
}

// Engagement reads the durable counters of the host's stream record.
func (s *StreamSessionService) Engagement(ctx context.Context, hostID domain.UserID) (*domain.Engagement, error) {
	record, err := s.streams.GetByOwner(ctx, hostID)
	if err != nil {
		if errors.Is(err, domain.ErrStreamNotFound) {
			return nil, err
		}
		return nil, s.storageFailure("get_stream", hostID, err)
	}

	views, err := s.engagement.CountViews(ctx, record.ID)
	if err != nil {
		return nil, s.storageFailure("count_views", hostID, err)
	}
	likes, err := s.engagement.CountLikes(ctx, record.ID)
	if err != nil {
		return nil, s.storageFailure("count_likes", hostID, err)
	}
	comments, err := s.engagement.ListComments(ctx, record.ID)
	if err != nil {
		return nil, s.storageFailure("list_comments", hostID, err)
	}

	out := &domain.Engagement{StreamID: record.ID, Views: views, Likes: likes, Comments: make([]domain.Comment, 0, len(comments))}
	for _, c := range comments {
		out.Comments = append(out.Comments, *c)
	}
	return out, nil
}

func (s *StreamSessionService) broadcastLiveList() {
	s.broadcaster.ToAll(domain.EventStreamListUpdated, domain.StreamListPayload{HostIDs: s.store.HostIDs()})
}

func (s *StreamSessionService) storageFailure(op string, hostID domain.UserID, err error) error {
	s.metrics.RecordStorageFailure(op)
	s.logger.Errorw("Storage operation failed",
		"op", op,
		"host_id", hostID,
		"error", err,
	)
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageFailure, op, err)
}
