package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/internal/core/session"
)

// DisconnectReconciler cleans up after a lost connection: presence first,
// then any room the identity hosted or watched.
type DisconnectReconciler struct {
	presence ports.PresenceRegistry
	store    *session.Store
	streams  ports.StreamSessionService
	metrics  ports.Metrics
	logger   *zap.SugaredLogger
}

func NewDisconnectReconciler(
	presence ports.PresenceRegistry,
	store *session.Store,
	streams ports.StreamSessionService,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *DisconnectReconciler {
	return &DisconnectReconciler{
		presence: presence,
		store:    store,
		streams:  streams,
		metrics:  metrics,
		logger:   logger,
	}
}

// Reconcile is safe to call more than once for the same connection. A
// connection that was superseded by a newer one for the same identity leaves
// room state alone.
func (r *DisconnectReconciler) Reconcile(ctx context.Context, conn ports.Connection) {
	userID, active := r.presence.Remove(conn)
	r.metrics.SetOnlineUsers(r.presence.Count())
	if !active {
		r.logger.Debugw("Connection closed without active presence",
			"conn_id", conn.ID(),
			"user_id", userID,
		)
		return
	}

	r.logger.Infow("User disconnected", "user_id", userID, "conn_id", conn.ID())

	if _, hosting := r.store.Get(userID); hosting {
		if err := r.streams.EndStream(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotLive) {
			r.logger.Warnw("Failed to end stream after host disconnect", "host_id", userID, "error", err)
		}
	}

	for _, hostID := range r.store.ViewingRooms(userID) {
		if err := r.streams.LeaveStream(ctx, conn, hostID, userID); err != nil && !errors.Is(err, domain.ErrNotLive) {
			r.logger.Warnw("Failed to leave stream after disconnect",
				"host_id", hostID,
				"user_id", userID,
				"error", err,
			)
		}
	}
}
