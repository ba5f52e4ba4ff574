package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplive/internal/core/domain"
	"shoplive/pkg/config"
	"shoplive/pkg/logger"
)

func TestRepositoryFactory_Memory(t *testing.T) {
	cfg := config.DefaultConfig()
	f, err := NewRepositoryFactory(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, DriverMemory, f.Driver())
	assert.NoError(t, f.HealthCheck(context.Background()))

	// Repositories created separately share one in-memory store.
	_, err = f.CreateStreamRepository().Activate(context.Background(), "host", "t")
	require.NoError(t, err)
	rec, err := f.CreateStreamRepository().GetByOwner(context.Background(), "host")
	require.NoError(t, err)
	assert.True(t, rec.IsActive)
	assert.Nil(t, f.CreateLocker("recovery", time.Minute))
}

func TestRepositoryFactory_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = DriverRedis
	cfg.Redis.Address = mr.Addr()

	f, err := NewRepositoryFactory(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer f.Close()

	ctx := context.Background()
	require.NoError(t, f.HealthCheck(ctx))

	text := "hi"
	require.NoError(t, f.CreateMessageRepository().Create(ctx, &domain.Message{
		ID: "m1", SenderID: "a", ReceiverID: "b", Body: &text, MediaKind: domain.MediaText,
	}))
	history, err := f.CreateMessageRepository().History(ctx, "b", "a")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	created, err := f.CreateEngagementRepository().AddLike(ctx, "s1", "a")
	require.NoError(t, err)
	assert.True(t, created)

	lock := f.CreateLocker("recovery", time.Minute)
	require.NotNil(t, lock)
	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists(cfg.Redis.KeyPrefix+"lock:recovery"))
	require.NoError(t, lock.Unlock(ctx))

	mr.Close()
	assert.Error(t, f.HealthCheck(ctx))
}

func TestRepositoryFactory_ConnectFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = DriverRedis
	cfg.Redis.Address = "127.0.0.1:1"

	_, err := NewRepositoryFactory(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)

	cfg.Storage.Driver = "cassandra"
	_, err = NewRepositoryFactory(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}
