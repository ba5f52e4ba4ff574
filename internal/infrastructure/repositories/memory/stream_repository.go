package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shoplive/internal/core/domain"
	"shoplive/pkg/utils"
)

type MemoryStreamRepository struct {
	byOwner map[domain.UserID]*domain.StreamRecord
	mu      sync.RWMutex
	now     func() time.Time
}

func NewMemoryStreamRepository() *MemoryStreamRepository {
	return &MemoryStreamRepository{
		byOwner: make(map[domain.UserID]*domain.StreamRecord),
		now:     time.Now,
	}
}

func (r *MemoryStreamRepository) Activate(ctx context.Context, ownerID domain.UserID, title string) (*domain.StreamRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	rec, exists := r.byOwner[ownerID]
	if !exists {
		rec = &domain.StreamRecord{
			ID:        domain.StreamID(utils.NewID()),
			OwnerID:   ownerID,
			CreatedAt: now,
		}
		r.byOwner[ownerID] = rec
	}
	if title != "" || !exists {
		rec.Title = title
	}
	rec.IsActive = true
	rec.UpdatedAt = now

	cp := *rec
	return &cp, nil
}

func (r *MemoryStreamRepository) Deactivate(ctx context.Context, ownerID domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.byOwner[ownerID]
	if !exists {
		return domain.ErrStreamNotFound
	}
	rec.IsActive = false
	rec.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemoryStreamRepository) GetByOwner(ctx context.Context, ownerID domain.UserID) (*domain.StreamRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.byOwner[ownerID]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryStreamRepository) ListActive(ctx context.Context) ([]*domain.StreamRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*domain.StreamRecord, 0)
	for _, rec := range r.byOwner {
		if rec.IsActive {
			cp := *rec
			active = append(active, &cp)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].UpdatedAt.After(active[j].UpdatedAt) })
	return active, nil
}
