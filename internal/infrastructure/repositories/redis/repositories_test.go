package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/pkg/logger"
)

var (
	_ ports.MessageRepository    = (*RedisMessageRepository)(nil)
	_ ports.StreamRepository     = (*RedisStreamRepository)(nil)
	_ ports.EngagementRepository = (*RedisEngagementRepository)(nil)
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func body(s string) *string { return &s }

func TestRedisMessageRepository(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewRedisMessageRepository(client, "")
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	msgs := []*domain.Message{
		{ID: "m2", SenderID: "bob", ReceiverID: "alice", Body: body("two"), MediaKind: domain.MediaText, CreatedAt: base.Add(2 * time.Millisecond)},
		{ID: "m1", SenderID: "alice", ReceiverID: "bob", Body: body("one"), MediaKind: domain.MediaText, CreatedAt: base.Add(time.Millisecond)},
		{ID: "m3", SenderID: "alice", ReceiverID: "bob", MediaKind: domain.MediaImage, MediaRef: body("img/1.png"), CreatedAt: base.Add(3 * time.Millisecond)},
		{ID: "mx", SenderID: "alice", ReceiverID: "carol", Body: body("elsewhere"), MediaKind: domain.MediaText, CreatedAt: base},
	}
	for _, m := range msgs {
		require.NoError(t, repo.Create(ctx, m))
	}
	assert.Error(t, repo.Create(ctx, msgs[0]), "ids are unique")

	ab, err := repo.History(ctx, "alice", "bob")
	require.NoError(t, err)
	ba, err := repo.History(ctx, "bob", "alice")
	require.NoError(t, err)

	require.Len(t, ab, 3)
	assert.Equal(t, ab, ba)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{ab[0].ID, ab[1].ID, ab[2].ID})
	assert.Nil(t, ab[2].Body)
	assert.Equal(t, "img/1.png", *ab[2].MediaRef)

	empty, err := repo.History(ctx, "bob", "carol")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisStreamRepository(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewRedisStreamRepository(client, "test:")
	ctx := context.Background()

	_, err := repo.GetByOwner(ctx, "host")
	assert.ErrorIs(t, err, domain.ErrStreamNotFound)
	assert.ErrorIs(t, repo.Deactivate(ctx, "host"), domain.ErrStreamNotFound)

	rec, err := repo.Activate(ctx, "host", "Spring collection")
	require.NoError(t, err)
	assert.True(t, rec.IsActive)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, mr.Exists("test:stream:host"))

	_, err = repo.Activate(ctx, "other", "")
	require.NoError(t, err)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, repo.Deactivate(ctx, "host"))
	got, err := repo.GetByOwner(ctx, "host")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err = repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.UserID("other"), active[0].OwnerID)

	again, err := repo.Activate(ctx, "host", "")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, "Spring collection", again.Title)
}

func TestRedisStreamRepository_ConcurrentActivate(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewRedisStreamRepository(client, "")
	ctx := context.Background()

	ids := make(chan domain.StreamID, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := repo.Activate(ctx, "host", "race")
			if err == nil {
				ids <- rec.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	final, err := repo.GetByOwner(ctx, "host")
	require.NoError(t, err)
	for id := range ids {
		assert.Equal(t, final.ID, id)
	}
}

func TestRedisEngagementRepository(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewRedisEngagementRepository(client, "")
	ctx := context.Background()

	created, err := repo.AddView(ctx, "s1", "bob")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.AddView(ctx, "s1", "bob")
	require.NoError(t, err)
	assert.False(t, created)

	_, _ = repo.AddLike(ctx, "s1", "bob")
	_, _ = repo.AddLike(ctx, "s1", "carol")
	_, _ = repo.AddLike(ctx, "s1", "carol")

	views, err := repo.CountViews(ctx, "s1")
	require.NoError(t, err)
	likes, err := repo.CountLikes(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), views)
	assert.Equal(t, int64(2), likes)

	for i, text := range []string{"first", "second"} {
		require.NoError(t, repo.AddComment(ctx, &domain.Comment{
			ID: text, StreamID: "s1", AuthorID: "bob", Text: text,
			CreatedAt: time.Unix(int64(i), 0).UTC(),
		}))
	}
	comments, err := repo.ListComments(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)

	none, err := repo.ListComments(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMigrate_ReindexesActiveSet(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	live, _ := json.Marshal(domain.StreamRecord{ID: "s1", OwnerID: "host", IsActive: true})
	ended, _ := json.Marshal(domain.StreamRecord{ID: "s2", OwnerID: "gone", IsActive: false})
	require.NoError(t, mr.Set("shoplive:stream:host", string(live)))
	require.NoError(t, mr.Set("shoplive:stream:gone", string(ended)))

	require.NoError(t, Migrate(ctx, client, DefaultKeyPrefix, logger.Nop()))

	members, err := mr.Members("shoplive:streams:active")
	require.NoError(t, err)
	assert.Equal(t, []string{"host"}, members)
	v, err := mr.Get("shoplive:schema:version")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	// A second run is a no-op.
	require.NoError(t, Migrate(ctx, client, DefaultKeyPrefix, logger.Nop()))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), Options{Address: mr.Addr(), PoolSize: 4}, logger.Nop())
	require.NoError(t, err)
	defer CloseRedisClient(client)
	assert.True(t, mr.Exists("shoplive:schema:version"))

	_, err = NewRedisClient(context.Background(), Options{Address: "127.0.0.1:1"}, logger.Nop())
	assert.Error(t, err)
}
