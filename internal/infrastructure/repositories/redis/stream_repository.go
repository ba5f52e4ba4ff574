package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"shoplive/internal/core/domain"
	"shoplive/pkg/utils"
)

// RedisStreamRepository keeps one JSON record per owner plus a set of the
// owners whose record is active.
//
//	<prefix>stream:<owner>  JSON StreamRecord
//	<prefix>streams:active  SET of owner ids
type RedisStreamRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStreamRepository(client *redis.Client, prefix string) *RedisStreamRepository {
	return &RedisStreamRepository{
		client: client,
		prefix: keyPrefix(prefix),
		now:    time.Now,
	}
}

func (r *RedisStreamRepository) streamKey(owner domain.UserID) string {
	return r.prefix + "stream:" + string(owner)
}

func (r *RedisStreamRepository) activeKey() string {
	return r.prefix + "streams:active"
}

// Activate upserts the owner's record and marks it active. The read and the
// write run under WATCH so concurrent activations cannot mint two ids.
func (r *RedisStreamRepository) Activate(ctx context.Context, owner domain.UserID, title string) (*domain.StreamRecord, error) {
	key := r.streamKey(owner)
	var out *domain.StreamRecord

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := r.load(ctx, tx, owner)
		now := r.now().UTC()
		switch {
		case errors.Is(err, domain.ErrStreamNotFound):
			rec = &domain.StreamRecord{
				ID:        domain.StreamID(utils.NewID()),
				OwnerID:   owner,
				CreatedAt: now,
			}
		case err != nil:
			return err
		}
		if title != "" {
			rec.Title = title
		}
		rec.IsActive = true
		rec.UpdatedAt = now

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal stream: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, r.activeKey(), string(owner))
			return nil
		})
		out = rec
		return err
	}, key)
	if err != nil {
		return nil, fmt.Errorf("failed to activate stream: %w", err)
	}
	return out, nil
}

func (r *RedisStreamRepository) Deactivate(ctx context.Context, owner domain.UserID) error {
	key := r.streamKey(owner)
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := r.load(ctx, tx, owner)
		if err != nil {
			return err
		}
		rec.IsActive = false
		rec.UpdatedAt = r.now().UTC()

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal stream: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SRem(ctx, r.activeKey(), string(owner))
			return nil
		})
		return err
	}, key)
}

func (r *RedisStreamRepository) GetByOwner(ctx context.Context, owner domain.UserID) (*domain.StreamRecord, error) {
	return r.load(ctx, r.client, owner)
}

func (r *RedisStreamRepository) ListActive(ctx context.Context) ([]*domain.StreamRecord, error) {
	owners, err := r.client.SMembers(ctx, r.activeKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active streams from Redis: %w", err)
	}

	streams := make([]*domain.StreamRecord, 0, len(owners))
	for _, owner := range owners {
		rec, err := r.load(ctx, r.client, domain.UserID(owner))
		if errors.Is(err, domain.ErrStreamNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.IsActive {
			streams = append(streams, rec)
		}
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].UpdatedAt.After(streams[j].UpdatedAt)
	})
	return streams, nil
}

func (r *RedisStreamRepository) load(ctx context.Context, c redis.Cmdable, owner domain.UserID) (*domain.StreamRecord, error) {
	data, err := c.Get(ctx, r.streamKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream from Redis: %w", err)
	}

	var rec domain.StreamRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream: %w", err)
	}
	return &rec, nil
}
