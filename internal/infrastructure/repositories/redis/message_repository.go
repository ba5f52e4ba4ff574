package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"shoplive/internal/core/domain"
)

// RedisMessageRepository stores each message as JSON and indexes it in a
// per-conversation sorted set scored by creation time.
//
//	<prefix>msg:<id>          JSON Message
//	<prefix>conv:<a>|<b>      ZSET of message ids, a < b
type RedisMessageRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisMessageRepository(client *redis.Client, prefix string) *RedisMessageRepository {
	return &RedisMessageRepository{client: client, prefix: keyPrefix(prefix)}
}

func (r *RedisMessageRepository) messageKey(id string) string {
	return r.prefix + "msg:" + id
}

func (r *RedisMessageRepository) conversationKey(a, b domain.UserID) string {
	if b < a {
		a, b = b, a
	}
	return r.prefix + "conv:" + string(a) + "|" + string(b)
}

func (r *RedisMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.messageKey(msg.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	if !created {
		return fmt.Errorf("message %s already exists", msg.ID)
	}

	err = r.client.ZAdd(ctx, r.conversationKey(msg.SenderID, msg.ReceiverID), redis.Z{
		Score:  float64(msg.CreatedAt.UnixMicro()),
		Member: msg.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to index message: %w", err)
	}
	return nil
}

func (r *RedisMessageRepository) History(ctx context.Context, a, b domain.UserID) ([]*domain.Message, error) {
	ids, err := r.client.ZRange(ctx, r.conversationKey(a, b), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Message{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.messageKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	out := make([]*domain.Message, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var msg domain.Message
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		out = append(out, &msg)
	}
	return out, nil
}
