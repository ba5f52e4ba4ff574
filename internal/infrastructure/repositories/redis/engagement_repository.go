package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"shoplive/internal/core/domain"
)

// RedisEngagementRepository keeps views and likes as sets, so a repeat by
// the same user is absorbed by SADD, and comments as an append-only list.
type RedisEngagementRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisEngagementRepository(client *redis.Client, prefix string) *RedisEngagementRepository {
	return &RedisEngagementRepository{client: client, prefix: keyPrefix(prefix)}
}

func (r *RedisEngagementRepository) viewsKey(id domain.StreamID) string {
	return r.prefix + "views:" + string(id)
}

func (r *RedisEngagementRepository) likesKey(id domain.StreamID) string {
	return r.prefix + "likes:" + string(id)
}

func (r *RedisEngagementRepository) commentsKey(id domain.StreamID) string {
	return r.prefix + "comments:" + string(id)
}

func (r *RedisEngagementRepository) AddView(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error) {
	return r.addMember(ctx, r.viewsKey(streamID), userID)
}

func (r *RedisEngagementRepository) AddLike(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error) {
	return r.addMember(ctx, r.likesKey(streamID), userID)
}

func (r *RedisEngagementRepository) addMember(ctx context.Context, key string, userID domain.UserID) (bool, error) {
	n, err := r.client.SAdd(ctx, key, string(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to add %s to %s: %w", userID, key, err)
	}
	return n == 1, nil
}

func (r *RedisEngagementRepository) AddComment(ctx context.Context, comment *domain.Comment) error {
	data, err := json.Marshal(comment)
	if err != nil {
		return fmt.Errorf("failed to marshal comment: %w", err)
	}
	if err := r.client.RPush(ctx, r.commentsKey(comment.StreamID), data).Err(); err != nil {
		return fmt.Errorf("failed to store comment: %w", err)
	}
	return nil
}

func (r *RedisEngagementRepository) CountViews(ctx context.Context, streamID domain.StreamID) (int64, error) {
	return r.client.SCard(ctx, r.viewsKey(streamID)).Result()
}

func (r *RedisEngagementRepository) CountLikes(ctx context.Context, streamID domain.StreamID) (int64, error) {
	return r.client.SCard(ctx, r.likesKey(streamID)).Result()
}

func (r *RedisEngagementRepository) ListComments(ctx context.Context, streamID domain.StreamID) ([]*domain.Comment, error) {
	raw, err := r.client.LRange(ctx, r.commentsKey(streamID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}

	out := make([]*domain.Comment, 0, len(raw))
	for _, s := range raw {
		var c domain.Comment
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comment: %w", err)
		}
		out = append(out, &c)
	}
	return out, nil
}
