package session

import (
	"sort"
	"sync"
	"time"

	"shoplive/internal/core/domain"
)

type Config struct {
	MaxComments     int
	CommentInterval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{MaxComments: 50, CommentInterval: time.Second}
}

// Store is the in-memory table of live rooms keyed by host. The table lock
// only guards membership; each session serialises its own mutations.
type Store struct {
	cfg Config
	now func() time.Time

	mu       sync.RWMutex
	sessions map[domain.UserID]*session
}

type session struct {
	mu sync.Mutex

	hostID    domain.UserID
	streamID  domain.StreamID
	title     string
	startedAt time.Time
	status    domain.StreamStatus

	viewers       map[domain.UserID]struct{}
	likedBy       map[domain.UserID]struct{}
	likeCount     int
	comments      *commentRing
	lastCommentAt map[domain.UserID]time.Time
}

func NewStore(cfg Config) *Store {
	if cfg.MaxComments <= 0 {
		cfg.MaxComments = DefaultConfig().MaxComments
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		cfg:      cfg,
		now:      now,
		sessions: make(map[domain.UserID]*session),
	}
}

// Create opens a live session for hostID, failing with domain.ErrAlreadyLive
// if one exists.
func (s *Store) Create(hostID domain.UserID, streamID domain.StreamID, title string) (domain.StreamInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[hostID]; exists {
		return domain.StreamInfo{}, domain.ErrAlreadyLive
	}
	sess := &session{
		hostID:        hostID,
		streamID:      streamID,
		title:         title,
		startedAt:     s.now(),
		status:        domain.StatusLive,
		viewers:       make(map[domain.UserID]struct{}),
		likedBy:       make(map[domain.UserID]struct{}),
		comments:      newCommentRing(s.cfg.MaxComments),
		lastCommentAt: make(map[domain.UserID]time.Time),
	}
	s.sessions[hostID] = sess
	return sess.info(), nil
}

func (s *Store) Get(hostID domain.UserID) (domain.StreamInfo, bool) {
	sess, ok := s.lookup(hostID)
	if !ok {
		return domain.StreamInfo{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.status != domain.StatusLive {
		return domain.StreamInfo{}, false
	}
	return sess.info(), true
}

// AddViewer inserts viewerID. added is false if it was already present.
func (s *Store) AddViewer(hostID, viewerID domain.UserID) (info domain.StreamInfo, added bool, err error) {
	err = s.mutate(hostID, func(sess *session) {
		if _, ok := sess.viewers[viewerID]; !ok {
			sess.viewers[viewerID] = struct{}{}
			added = true
		}
		info = sess.info()
	})
	return info, added, err
}

// RemoveViewer deletes viewerID. removed is false if it was not present.
func (s *Store) RemoveViewer(hostID, viewerID domain.UserID) (info domain.StreamInfo, removed bool, err error) {
	err = s.mutate(hostID, func(sess *session) {
		if _, ok := sess.viewers[viewerID]; ok {
			delete(sess.viewers, viewerID)
			removed = true
		}
		info = sess.info()
	})
	return info, removed, err
}

// LikeResult reports the outcome of AddLike.
type LikeResult struct {
	Applied  bool
	Count    int
	StreamID domain.StreamID
}

// AddLike records one like per user. Applied is false for a repeat.
func (s *Store) AddLike(hostID, userID domain.UserID) (LikeResult, error) {
	var res LikeResult
	err := s.mutate(hostID, func(sess *session) {
		if _, ok := sess.likedBy[userID]; !ok {
			sess.likedBy[userID] = struct{}{}
			sess.likeCount++
			res.Applied = true
		}
		res.Count = sess.likeCount
		res.StreamID = sess.streamID
	})
	return res, err
}

// AppendComment stamps c with the current time and appends it, evicting the
// oldest comment past capacity. A comment closer than CommentInterval to the
// same author's previous accepted one fails with domain.ErrRateLimited.
func (s *Store) AppendComment(hostID domain.UserID, c domain.Comment) (domain.Comment, error) {
	var rateLimited bool
	err := s.mutate(hostID, func(sess *session) {
		now := s.now()
		if last, ok := sess.lastCommentAt[c.AuthorID]; ok && now.Sub(last) < s.cfg.CommentInterval {
			rateLimited = true
			return
		}
		c.CreatedAt = now
		c.StreamID = sess.streamID
		sess.lastCommentAt[c.AuthorID] = now
		sess.comments.push(c)
	})
	if err != nil {
		return domain.Comment{}, err
	}
	if rateLimited {
		return domain.Comment{}, domain.ErrRateLimited
	}
	return c, nil
}

// Destroy removes the session and returns its final snapshot. Later mutations
// through a stale reference fail with domain.ErrNotLive.
func (s *Store) Destroy(hostID domain.UserID) (domain.StreamInfo, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[hostID]
	if ok {
		delete(s.sessions, hostID)
	}
	s.mu.Unlock()
	if !ok {
		return domain.StreamInfo{}, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.status = domain.StatusEnded
	return sess.info(), true
}

// HostIDs lists live hosts in lexical order.
func (s *Store) HostIDs() []domain.UserID {
	s.mu.RLock()
	out := make([]domain.UserID, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ViewingRooms returns the hosts whose sessions list userID as a viewer.
func (s *Store) ViewingRooms(userID domain.UserID) []domain.UserID {
	s.mu.RLock()
	candidates := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.RUnlock()

	var out []domain.UserID
	for _, sess := range candidates {
		sess.mu.Lock()
		if _, ok := sess.viewers[userID]; ok && sess.status == domain.StatusLive {
			out = append(out, sess.hostID)
		}
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) lookup(hostID domain.UserID) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[hostID]
	return sess, ok
}

func (s *Store) mutate(hostID domain.UserID, fn func(*session)) error {
	sess, ok := s.lookup(hostID)
	if !ok {
		return domain.ErrNotLive
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.status != domain.StatusLive {
		return domain.ErrNotLive
	}
	fn(sess)
	return nil
}

// info must be called with sess.mu held.
func (sess *session) info() domain.StreamInfo {
	return domain.StreamInfo{
		HostID:    sess.hostID,
		StreamID:  sess.streamID,
		Title:     sess.title,
		Viewers:   len(sess.viewers),
		Likes:     sess.likeCount,
		Comments:  sess.comments.snapshot(),
		StartedAt: sess.startedAt,
		Status:    sess.status,
	}
}
