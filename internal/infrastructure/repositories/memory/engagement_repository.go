package memory

import (
	"context"
	"sync"

	"shoplive/internal/core/domain"
)

type MemoryEngagementRepository struct {
	mu       sync.RWMutex
	views    map[domain.StreamID]map[domain.UserID]struct{}
	likes    map[domain.StreamID]map[domain.UserID]struct{}
	comments map[domain.StreamID][]*domain.Comment
}

func NewMemoryEngagementRepository() *MemoryEngagementRepository {
	return &MemoryEngagementRepository{
		views:    make(map[domain.StreamID]map[domain.UserID]struct{}),
		likes:    make(map[domain.StreamID]map[domain.UserID]struct{}),
		comments: make(map[domain.StreamID][]*domain.Comment),
	}
}

func (r *MemoryEngagementRepository) AddView(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return addToSet(r.views, streamID, userID), nil
}

func (r *MemoryEngagementRepository) AddLike(ctx context.Context, streamID domain.StreamID, userID domain.UserID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return addToSet(r.likes, streamID, userID), nil
}

func (r *MemoryEngagementRepository) AddComment(ctx context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *comment
	r.comments[comment.StreamID] = append(r.comments[comment.StreamID], &cp)
	return nil
}

func (r *MemoryEngagementRepository) CountViews(ctx context.Context, streamID domain.StreamID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.views[streamID])), nil
}

func (r *MemoryEngagementRepository) CountLikes(ctx context.Context, streamID domain.StreamID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.likes[streamID])), nil
}

func (r *MemoryEngagementRepository) ListComments(ctx context.Context, streamID domain.StreamID) ([]*domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Comment, 0, len(r.comments[streamID]))
	for _, c := range r.comments[streamID] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func addToSet(sets map[domain.StreamID]map[domain.UserID]struct{}, streamID domain.StreamID, userID domain.UserID) bool {
	set, ok := sets[streamID]
	if !ok {
		set = make(map[domain.UserID]struct{})
		sets[streamID] = set
	}
	if _, exists := set[userID]; exists {
		return false
	}
	set[userID] = struct{}{}
	return true
}
