package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	apperrors "shoplive/pkg/errors"
	applog "shoplive/pkg/logger"
	"shoplive/pkg/tracing"
	"shoplive/pkg/validation"
)

// request is one decoded inbound event.
type request[T any] struct {
	client  *Client
	payload *T
}

type route struct {
	// reply sends the handler result even without an ack id.
	reply  bool
	handle func(ctx context.Context, c *Client, data json.RawMessage) (interface{}, error)
}

// Router decodes inbound frames, validates them and dispatches to the core
// services. Errors go back to the originating connection only.
type Router struct {
	routes map[string]route

	hub       *Hub
	presence  ports.PresenceRegistry
	messaging ports.MessagingService
	streams   ports.StreamSessionService
	validator *validation.Validator
	metrics   ports.Metrics
	logger    *zap.SugaredLogger
	ctxLog    *applog.ContextLogger
}

func NewRouter(
	hub *Hub,
	presence ports.PresenceRegistry,
	messaging ports.MessagingService,
	streams ports.StreamSessionService,
	validator *validation.Validator,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *Router {
	r := &Router{
		routes:    make(map[string]route),
		hub:       hub,
		presence:  presence,
		messaging: messaging,
		streams:   streams,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		ctxLog:    applog.NewContextLogger(logger.Desugar()),
	}

	on(r, EventJoin, false, func(p *JoinPayload) domain.UserID { return p.UserID }, r.handleJoin)
	on(r, EventSendMessage, false, func(p *SendMessagePayload) domain.UserID { return p.SenderID }, r.handleSendMessage)
	on(r, EventStartStream, false, func(p *StartStreamPayload) domain.UserID { return p.HostID }, r.handleStartStream)
	on(r, EventJoinStream, false, func(p *StreamMemberPayload) domain.UserID { return p.ViewerID }, r.handleJoinStream)
	on(r, EventLeaveStream, false, func(p *StreamMemberPayload) domain.UserID { return p.ViewerID }, r.handleLeaveStream)
	on(r, EventSendLike, false, func(p *LikePayload) domain.UserID { return p.UserID }, r.handleLike)
	on(r, EventSendComment, false, func(p *CommentPayload) domain.UserID { return p.UserID }, r.handleComment)
	on(r, EventEndStream, false, func(p *HostPayload) domain.UserID { return p.HostID }, r.handleEndStream)
	on(r, EventGetStreamInfo, true, nil, r.handleStreamInfo)

	return r
}

// on registers a typed handler. actor names the identity the event speaks
// for; nil means the event is anonymous and does not bind presence.
func on[T any](
	r *Router,
	event string,
	reply bool,
	actor func(*T) domain.UserID,
	fn func(ctx context.Context, req request[T]) (interface{}, error),
) {
	r.routes[event] = route{
		reply: reply,
		handle: func(ctx context.Context, c *Client, data json.RawMessage) (interface{}, error) {
			p := new(T)
			if len(data) > 0 && string(data) != "null" {
				if err := json.Unmarshal(data, p); err != nil {
					return nil, fmt.Errorf("%w: %s: malformed data", domain.ErrInvalidPayload, event)
				}
			}
			if err := r.validator.Struct(p); err != nil {
				return nil, err
			}
			if rs, ok := any(p).(roomScoped); ok {
				tracing.Annotate(ctx, tracing.HostIDKey.String(string(rs.room())))
			}
			if actor != nil {
				if err := r.bind(c, actor(p)); err != nil {
					return nil, err
				}
			}
			return fn(ctx, request[T]{client: c, payload: p})
		},
	}
}

// Dispatch handles one raw inbound frame.
func (r *Router) Dispatch(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		r.logger.Debugw("Malformed frame", "conn_id", c.ID(), "error", err)
		r.metrics.RecordEvent("unknown", "invalid")
		r.sendError(c, "", "", fmt.Errorf("%w: frame must be {event, data}", domain.ErrInvalidPayload))
		return
	}

	rt, ok := r.routes[env.Event]
	if !ok {
		r.logger.Debugw("Ignoring unknown event", "conn_id", c.ID(), "event", env.Event)
		r.metrics.RecordEvent("unknown", "ignored")
		return
	}

	if !c.allow() {
		r.metrics.RecordEvent(env.Event, "rate_limited")
		r.sendError(c, env.Event, env.Ack, apperrors.NewRateLimitError())
		return
	}

	ctx, span := tracing.TraceEvent(context.Background(), env.Event, string(c.ID()))
	defer span.End()
	ctx = applog.WithConnID(ctx, string(c.ID()))
	ctx = applog.WithTraceID(ctx, tracing.TraceID(ctx))
	if userID, ok := r.presence.IdentityOf(c.ID()); ok {
		ctx = applog.WithUserID(ctx, string(userID))
		span.SetAttributes(tracing.UserIDKey.String(string(userID)))
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("Panic in event handler", "event", env.Event, "conn_id", c.ID(), "panic", rec)
			r.metrics.RecordEvent(env.Event, "panic")
			r.sendError(c, env.Event, env.Ack, apperrors.NewInternalError("internal error"))
		}
	}()

	result, err := rt.handle(ctx, c, env.Data)
	if err != nil {
		tracing.RecordError(ctx, err)
		r.metrics.RecordEvent(env.Event, "error")
		r.logFailure(ctx, env.Event, err)
		r.sendError(c, env.Event, env.Ack, err)
		return
	}

	r.metrics.RecordEvent(env.Event, "ok")
	if env.Ack != "" || rt.reply {
		if err := c.reply(env.Event, env.Ack, result); err != nil {
			r.logger.Debugw("Reply not delivered", "conn_id", c.ID(), "event", env.Event, "error", err)
		}
	}
}

// bind ties the connection to userID on first use and rejects any event
// that speaks for somebody else afterwards.
func (r *Router) bind(c *Client, userID domain.UserID) error {
	if c.identity != "" && c.identity != userID {
		return fmt.Errorf("%w: connection is authenticated as %s", domain.ErrIdentityMismatch, c.identity)
	}
	if bound, ok := r.presence.IdentityOf(c.ID()); ok {
		if bound != userID {
			return fmt.Errorf("%w: connection is bound to %s", domain.ErrIdentityMismatch, bound)
		}
		return nil
	}

	prev, replaced := r.presence.Register(userID, c)
	r.metrics.SetOnlineUsers(r.presence.Count())
	if replaced {
		rooms := r.hub.Transfer(prev, c)
		r.logger.Infow("Connection superseded",
			"user_id", userID,
			"conn_id", c.ID(),
			"previous_conn_id", prev.ID(),
			"rooms", rooms,
		)
	} else {
		r.logger.Infow("User online", "user_id", userID, "conn_id", c.ID())
	}
	return nil
}

func (r *Router) sendError(c *Client, event, ack string, err error) {
	appErr := apperrors.FromDomain(err)
	payload := domain.ErrorPayload{
		Reason: appErr.Message,
		Code:   string(appErr.Code),
		Event:  event,
	}
	if sendErr := c.reply(domain.EventError, ack, payload); sendErr != nil {
		r.logger.Debugw("Error frame not delivered", "conn_id", c.ID(), "error", sendErr)
	}
}

func (r *Router) logFailure(ctx context.Context, event string, err error) {
	log := r.ctxLog.Sugar(ctx)
	switch {
	case errors.Is(err, domain.ErrStorageFailure):
		log.Errorw("Event failed", "event", event, "error", err)
	case errors.Is(err, domain.ErrIdentityMismatch):
		log.Warnw("Event rejected", "event", event, "error", err)
	default:
		log.Debugw("Event rejected", "event", event, "error", err)
	}
}

func (r *Router) handleJoin(ctx context.Context, req request[JoinPayload]) (interface{}, error) {
	// Late joiners learn who is live without waiting for the next change.
	_ = req.client.Send(domain.EventStreamListUpdated, domain.StreamListPayload{HostIDs: r.streams.LiveHosts()})
	return nil, nil
}

func (r *Router) handleSendMessage(ctx context.Context, req request[SendMessagePayload]) (interface{}, error) {
	p := req.payload
	return r.messaging.Send(ctx, p.SenderID, p.ReceiverID, p.Content)
}

func (r *Router) handleStartStream(ctx context.Context, req request[StartStreamPayload]) (interface{}, error) {
	return r.streams.StartStream(ctx, req.client, req.payload.HostID, req.payload.Title)
}

func (r *Router) handleJoinStream(ctx context.Context, req request[StreamMemberPayload]) (interface{}, error) {
	return r.streams.JoinStream(ctx, req.client, req.payload.HostID, req.payload.ViewerID)
}

func (r *Router) handleLeaveStream(ctx context.Context, req request[StreamMemberPayload]) (interface{}, error) {
	return nil, r.streams.LeaveStream(ctx, req.client, req.payload.HostID, req.payload.ViewerID)
}

func (r *Router) handleLike(ctx context.Context, req request[LikePayload]) (interface{}, error) {
	return r.streams.Like(ctx, req.payload.HostID, req.payload.UserID)
}

func (r *Router) handleComment(ctx context.Context, req request[CommentPayload]) (interface{}, error) {
	return r.streams.Comment(ctx, req.payload.HostID, req.payload.UserID, req.payload.Text)
}

func (r *Router) handleEndStream(ctx context.Context, req request[HostPayload]) (interface{}, error) {
	return nil, r.streams.EndStream(ctx, req.payload.HostID)
}

func (r *Router) handleStreamInfo(ctx context.Context, req request[HostPayload]) (interface{}, error) {
	return r.streams.StreamInfo(ctx, req.payload.HostID)
}
