package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultKeyPrefix = "shoplive:"

type Options struct {
	Address   string
	Password  string
	DB        int
	PoolSize  int
	KeyPrefix string
}

// NewRedisClient creates a pooled client, verifies connectivity and brings
// the key layout up to date.
func NewRedisClient(ctx context.Context, opts Options, logger *zap.SugaredLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := Migrate(pingCtx, client, keyPrefix(opts.KeyPrefix), logger); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infow("Connected to Redis",
		"address", opts.Address,
		"db", opts.DB,
		"pool_size", opts.PoolSize,
	)
	return client, nil
}

func CloseRedisClient(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

func keyPrefix(p string) string {
	if p == "" {
		return DefaultKeyPrefix
	}
	return p
}
