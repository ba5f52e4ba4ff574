package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"shoplive/internal/core/domain"
)

type conversationKey struct{ a, b domain.UserID }

func keyFor(x, y domain.UserID) conversationKey {
	if x > y {
		x, y = y, x
	}
	return conversationKey{x, y}
}

type MemoryMessageRepository struct {
	mu            sync.RWMutex
	ids           map[string]struct{}
	conversations map[conversationKey][]*domain.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		ids:           make(map[string]struct{}),
		conversations: make(map[conversationKey][]*domain.Message),
	}
}

func (r *MemoryMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[msg.ID]; exists {
		return fmt.Errorf("message already exists: %s", msg.ID)
	}
	r.ids[msg.ID] = struct{}{}

	cp := *msg
	key := keyFor(msg.SenderID, msg.ReceiverID)
	r.conversations[key] = append(r.conversations[key], &cp)
	return nil
}

func (r *MemoryMessageRepository) History(ctx context.Context, a, b domain.UserID) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.conversations[keyFor(a, b)]
	out := make([]*domain.Message, 0, len(stored))
	for _, m := range stored {
		cp := *m
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
