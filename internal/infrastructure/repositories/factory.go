package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shoplive/internal/core/ports"
	"shoplive/internal/infrastructure/repositories/memory"
	pgrepo "shoplive/internal/infrastructure/repositories/postgres"
	redisrepo "shoplive/internal/infrastructure/repositories/redis"
	"shoplive/pkg/config"
	"shoplive/pkg/distributed"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// RepositoryFactory owns the storage connection selected by storage.driver
// and hands out repositories bound to it.
type RepositoryFactory struct {
	driver      string
	redisClient *redis.Client
	redisPrefix string
	pool        *pgxpool.Pool
	logger      *zap.SugaredLogger

	// memory repositories are shared so every caller sees the same data
	messages   *memory.MemoryMessageRepository
	streams    *memory.MemoryStreamRepository
	engagement *memory.MemoryEngagementRepository
}

// NewRepositoryFactory connects to the configured backend. Unlike a cache,
// the durable store is not optional: a failed connection is returned rather
// than silently replaced with memory.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	f := &RepositoryFactory{driver: cfg.Storage.Driver, logger: logger}

	switch f.driver {
	case DriverMemory, "":
		f.driver = DriverMemory
		f.messages = memory.NewMemoryMessageRepository()
		f.streams = memory.NewMemoryStreamRepository()
		f.engagement = memory.NewMemoryEngagementRepository()
	case DriverRedis:
		client, err := redisrepo.NewRedisClient(ctx, redisrepo.Options{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			PoolSize:  cfg.Redis.PoolSize,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		f.redisClient = client
		f.redisPrefix = cfg.Redis.KeyPrefix
	case DriverPostgres:
		pool, err := pgrepo.NewPool(ctx, pgrepo.Options{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			ConnectRetries: cfg.Postgres.ConnectRetries,
			RunMigrations:  cfg.Postgres.RunMigrations,
		}, logger)
		if err != nil {
			return nil, err
		}
		f.pool = pool
	default:
		return nil, fmt.Errorf("unknown storage driver %q", f.driver)
	}

	logger.Infow("Using repositories", "driver", f.driver)
	return f, nil
}

func (f *RepositoryFactory) Driver() string {
	return f.driver
}

func (f *RepositoryFactory) CreateMessageRepository() ports.MessageRepository {
	switch f.driver {
	case DriverRedis:
		return redisrepo.NewRedisMessageRepository(f.redisClient, f.redisPrefix)
	case DriverPostgres:
		return pgrepo.NewMessageRepository(f.pool)
	}
	return f.messages
}

func (f *RepositoryFactory) CreateStreamRepository() ports.StreamRepository {
	switch f.driver {
	case DriverRedis:
		return redisrepo.NewRedisStreamRepository(f.redisClient, f.redisPrefix)
	case DriverPostgres:
		return pgrepo.NewStreamRepository(f.pool)
	}
	return f.streams
}

func (f *RepositoryFactory) CreateEngagementRepository() ports.EngagementRepository {
	switch f.driver {
	case DriverRedis:
		return redisrepo.NewRedisEngagementRepository(f.redisClient, f.redisPrefix)
	case DriverPostgres:
		return pgrepo.NewEngagementRepository(f.pool)
	}
	return f.engagement
}

// CreateLocker returns a redis-backed lock under the key prefix, or nil
// for drivers without one.
func (f *RepositoryFactory) CreateLocker(name string, ttl time.Duration) ports.Locker {
	if f.driver != DriverRedis {
		return nil
	}
	return distributed.NewLock(f.redisClient, f.redisPrefix+"lock:"+name, ttl)
}

// HealthCheck pings the backing store.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	switch f.driver {
	case DriverRedis:
		return f.redisClient.Ping(ctx).Err()
	case DriverPostgres:
		return f.pool.Ping(ctx)
	}
	return nil
}

func (f *RepositoryFactory) Close() error {
	switch f.driver {
	case DriverRedis:
		return redisrepo.CloseRedisClient(f.redisClient)
	case DriverPostgres:
		f.pool.Close()
	}
	return nil
}
