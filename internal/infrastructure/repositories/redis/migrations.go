package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shoplive/internal/core/domain"
)

const currentSchemaVersion = 1

// Migration is one step of the key layout.
type Migration struct {
	Version int
	Up      func(ctx context.Context, client *redis.Client, prefix string) error
}

// Migrate runs every migration newer than the stored schema version.
func Migrate(ctx context.Context, client *redis.Client, prefix string, logger *zap.SugaredLogger) error {
	versionKey := prefix + "schema:version"

	currentVersion, err := client.Get(ctx, versionKey).Int()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if currentVersion >= currentSchemaVersion {
		logger.Debugw("Redis schema is up to date", "version", currentVersion)
		return nil
	}

	for _, m := range migrations() {
		if m.Version <= currentVersion {
			continue
		}
		logger.Infow("Running Redis migration", "version", m.Version)
		if err := m.Up(ctx, client, prefix); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		if err := client.Set(ctx, versionKey, m.Version, 0).Err(); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}
	return nil
}

func migrations() []Migration {
	return []Migration{
		{Version: 1, Up: reindexActiveStreams},
	}
}

// reindexActiveStreams rebuilds the active-owner set from the stream records.
func reindexActiveStreams(ctx context.Context, client *redis.Client, prefix string) error {
	activeKey := prefix + "streams:active"
	streamPrefix := prefix + "stream:"

	var active []interface{}
	iter := client.Scan(ctx, 0, streamPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var rec domain.StreamRecord
		if json.Unmarshal(data, &rec) != nil {
			continue
		}
		if rec.IsActive {
			active = append(active, strings.TrimPrefix(iter.Val(), streamPrefix))
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}

	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, activeKey)
		if len(active) > 0 {
			pipe.SAdd(ctx, activeKey, active...)
		}
		return nil
	})
	return err
}
