package services

import (
	"context"
	"time"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/pkg/cache"
)

const activeStreamsKey = "streams:active"

// CachedStreamQuery fronts the durable reads behind the HTTP API with a
// short TTL cache. Writes go through the session service, so cached
// answers may lag the live room by up to ttl.
type CachedStreamQuery struct {
	base       ports.StreamQueryService
	active     *cache.Cache[[]*domain.StreamRecord]
	engagement *cache.Cache[*domain.Engagement]
}

func NewCachedStreamQuery(base ports.StreamQueryService, ttl time.Duration) *CachedStreamQuery {
	return &CachedStreamQuery{
		base:       base,
		active:     cache.New[[]*domain.StreamRecord](ttl),
		engagement: cache.New[*domain.Engagement](ttl),
	}
}

func (q *CachedStreamQuery) ActiveStreams(ctx context.Context) ([]*domain.StreamRecord, error) {
	return q.active.GetOrLoad(ctx, activeStreamsKey, q.base.ActiveStreams)
}

// StreamInfo reads the in-memory session and is never cached.
func (q *CachedStreamQuery) StreamInfo(ctx context.Context, hostID domain.UserID) (domain.StreamInfoReply, error) {
	return q.base.StreamInfo(ctx, hostID)
}

func (q *CachedStreamQuery) Engagement(ctx context.Context, hostID domain.UserID) (*domain.Engagement, error) {
	return q.engagement.GetOrLoad(ctx, string(hostID), func(ctx context.Context) (*domain.Engagement, error) {
		return q.base.Engagement(ctx, hostID)
	})
}

func (q *CachedStreamQuery) Stop() {
	q.active.Stop()
	q.engagement.Stop()
}
