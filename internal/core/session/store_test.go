package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplive/internal/core/domain"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*Store, *manualClock) {
	clock := &manualClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := DefaultConfig()
	cfg.Now = clock.Now
	return NewStore(cfg), clock
}

func (r *commentRing) len() int { return r.n }

func comment(author, text string) domain.Comment {
	return domain.Comment{ID: author + ":" + text, AuthorID: domain.UserID(author), Text: text}
}

func TestStore_CreateTwiceFails(t *testing.T) {
	s, _ := newTestStore()

	info, err := s.Create("host", "st-1", "Spring sale")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLive, info.Status)
	assert.Equal(t, 0, info.Viewers)

	_, err = s.Create("host", "st-2", "again")
	assert.ErrorIs(t, err, domain.ErrAlreadyLive)
	assert.Equal(t, 1, s.Count())

	got, ok := s.Get("host")
	require.True(t, ok)
	assert.Equal(t, domain.StreamID("st-1"), got.StreamID)
}

func TestStore_MutationsRequireLiveSession(t *testing.T) {
	s, _ := newTestStore()

	_, _, err := s.AddViewer("ghost", "v")
	assert.ErrorIs(t, err, domain.ErrNotLive)
	_, err = s.AddLike("ghost", "v")
	assert.ErrorIs(t, err, domain.ErrNotLive)
	_, err = s.AppendComment("ghost", comment("v", "hi"))
	assert.ErrorIs(t, err, domain.ErrNotLive)
}

func TestStore_ViewerSetIsIdempotent(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Create("host", "st", "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		info, added, err := s.AddViewer("host", "bob")
		require.NoError(t, err)
		assert.Equal(t, i == 0, added)
		assert.Equal(t, 1, info.Viewers)
	}
	_, _, _ = s.AddViewer("host", "carol")

	info, removed, err := s.RemoveViewer("host", "bob")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 1, info.Viewers)

	for i := 0; i < 3; i++ {
		info, removed, err = s.RemoveViewer("host", "bob")
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, 1, info.Viewers)
	}
	_, _, _ = s.RemoveViewer("host", "carol")
	info, _, _ = s.RemoveViewer("host", "carol")
	assert.Equal(t, 0, info.Viewers)
}

func TestStore_LikeOncePerUser(t *testing.T) {
	s, _ := newTestStore()
	_, _ = s.Create("host", "st", "")

	res, err := s.AddLike("host", "bob")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, domain.StreamID("st"), res.StreamID)

	res, err = s.AddLike("host", "bob")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 1, res.Count)
}

func TestStore_ConcurrentLikes(t *testing.T) {
	s, _ := newTestStore()
	_, _ = s.Create("host", "st", "")

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.AddLike("host", domain.UserID(fmt.Sprintf("u%d", i%20)))
			assert.NoError(t, err)
			if res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	info, _ := s.Get("host")
	assert.Equal(t, 20, info.Likes)
	assert.Equal(t, 20, applied)
}

func TestStore_CommentOrderAndEviction(t *testing.T) {
	s, _ := newTestStore()
	_, _ = s.Create("host", "st", "")

	for i := 0; i < 60; i++ {
		_, err := s.AppendComment("host", comment(fmt.Sprintf("u%d", i), fmt.Sprintf("c%d", i)))
		require.NoError(t, err)
	}

	info, _ := s.Get("host")
	require.Len(t, info.Comments, 50)
	assert.Equal(t, "c10", info.Comments[0].Text)
	assert.Equal(t, "c59", info.Comments[49].Text)
	for i := 1; i < len(info.Comments); i++ {
		assert.False(t, info.Comments[i].CreatedAt.Before(info.Comments[i-1].CreatedAt))
	}
}

func TestStore_CommentRateLimit(t *testing.T) {
	s, clock := newTestStore()
	_, _ = s.Create("host", "st", "")
	_, _ = s.Create("other", "st2", "")

	first, err := s.AppendComment("host", comment("bob", "one"))
	require.NoError(t, err)
	assert.Equal(t, domain.StreamID("st"), first.StreamID)
	assert.False(t, first.CreatedAt.IsZero())

	clock.Advance(500 * time.Millisecond)
	_, err = s.AppendComment("host", comment("bob", "two"))
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	// Other authors and other rooms are unaffected.
	_, err = s.AppendComment("host", comment("carol", "hey"))
	assert.NoError(t, err)
	_, err = s.AppendComment("other", comment("bob", "elsewhere"))
	assert.NoError(t, err)

	clock.Advance(1000 * time.Millisecond)
	_, err = s.AppendComment("host", comment("bob", "three"))
	assert.NoError(t, err)

	info, _ := s.Get("host")
	texts := make([]string, 0, len(info.Comments))
	for _, c := range info.Comments {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"one", "hey", "three"}, texts)
}

func TestStore_Destroy(t *testing.T) {
	s, clock := newTestStore()
	_, _ = s.Create("host", "st", "t")
	_, _, _ = s.AddViewer("host", "bob")
	clock.Advance(90 * time.Second)

	final, ok := s.Destroy("host")
	require.True(t, ok)
	assert.Equal(t, domain.StatusEnded, final.Status)
	assert.Equal(t, 1, final.Viewers)
	assert.Equal(t, int64(90), final.DurationSeconds(clock.Now()))

	_, ok = s.Destroy("host")
	assert.False(t, ok)
	_, ok = s.Get("host")
	assert.False(t, ok)
	_, _, err := s.AddViewer("host", "carol")
	assert.ErrorIs(t, err, domain.ErrNotLive)

	_, err = s.Create("host", "st-next", "")
	assert.NoError(t, err)
}

func TestStore_ViewingRoomsAndHostIDs(t *testing.T) {
	s, _ := newTestStore()
	_, _ = s.Create("b-host", "s1", "")
	_, _ = s.Create("a-host", "s2", "")
	_, _ = s.Create("c-host", "s3", "")
	_, _, _ = s.AddViewer("b-host", "bob")
	_, _, _ = s.AddViewer("a-host", "bob")

	assert.Equal(t, []domain.UserID{"a-host", "b-host", "c-host"}, s.HostIDs())
	assert.Equal(t, []domain.UserID{"a-host", "b-host"}, s.ViewingRooms("bob"))
	assert.Empty(t, s.ViewingRooms("nobody"))
}

func TestCommentRing(t *testing.T) {
	r := newCommentRing(3)
	for i := 0; i < 5; i++ {
		r.push(domain.Comment{Text: fmt.Sprint(i)})
	}
	assert.Equal(t, 3, r.len())
	snap := r.snapshot()
	assert.Equal(t, "2", snap[0].Text)
	assert.Equal(t, "4", snap[2].Text)
}
