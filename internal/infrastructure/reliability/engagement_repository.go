package reliability

import (
	"context"

	"go.uber.org/zap"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/pkg/circuitbreaker"
	"shoplive/pkg/tracing"
)

// EngagementRepository wraps an engagement store with a circuit breaker so a
// storage outage turns into fast failures instead of piling up writes behind
// the write-behind queue.
type EngagementRepository struct {
	repo    ports.EngagementRepository
	driver  string
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

var _ ports.EngagementRepository = (*EngagementRepository)(nil)

// NewEngagementRepository wraps repo. driver names the backend in trace spans.
func NewEngagementRepository(repo ports.EngagementRepository, driver string, cfg circuitbreaker.Config, logger *zap.SugaredLogger) *EngagementRepository {
	breaker := circuitbreaker.New(cfg)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		if to == circuitbreaker.StateOpen {
			logger.Warnw("Engagement storage circuit opened", "from", from.String())
			return
		}
		logger.Infow("Engagement storage circuit state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})
	return &EngagementRepository{repo: repo, driver: driver, breaker: breaker, logger: logger}
}

func guarded[T any](ctx context.Context, r *EngagementRepository, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracing.TraceStorage(ctx, r.driver, op)
	defer span.End()

	out, err := circuitbreaker.Do(ctx, r.breaker, fn)
	if err != nil {
		tracing.RecordError(ctx, err)
	}
	return out, err
}

func (r *EngagementRepository) State() circuitbreaker.State {
	return r.breaker.State()
}

func (r *EngagementRepository) AddView(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error) {
	return guarded(ctx, r, "add_view", func(ctx context.Context) (bool, error) {
		return r.repo.AddView(ctx, streamID, userID)
	})
}

func (r *EngagementRepository) AddLike(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error) {
	return guarded(ctx, r, "add_like", func(ctx context.Context) (bool, error) {
		return r.repo.AddLike(ctx, streamID, userID)
	})
}

func (r *EngagementRepository) AddComment(ctx context.Context, comment *domain.Comment) error {
	_, err := guarded(ctx, r, "add_comment", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.repo.AddComment(ctx, comment)
	})
	return err
}

func (r *EngagementRepository) CountViews(ctx context.Context, streamID domain.StreamID) (int64, error) {
	return guarded(ctx, r, "count_views", func(ctx context.Context) (int64, error) {
		return r.repo.CountViews(ctx, streamID)
	})
}

func (r *EngagementRepository) CountLikes(ctx context.Context, streamID domain.StreamID) (int64, error) {
	return guarded(ctx, r, "count_likes", func(ctx context.Context) (int64, error) {
		return r.repo.CountLikes(ctx, streamID)
	})
}

func (r *EngagementRepository) ListComments(ctx context.Context, streamID domain.StreamID) ([]*domain.Comment, error) {
	return guarded(ctx, r, "list_comments", func(ctx context.Context) ([]*domain.Comment, error) {
		return r.repo.ListComments(ctx, streamID)
	})
}
