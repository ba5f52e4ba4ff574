package presence

import (
	"sync"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
)

// Registry maps each identity to its one current connection, with a reverse
// index from connection id to identity for disconnect handling.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]ports.Connection
	byConn map[domain.ConnID]domain.UserID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[domain.UserID]ports.Connection),
		byConn: make(map[domain.ConnID]domain.UserID),
	}
}

// Register binds userID to conn. A prior connection for the same identity is
// superseded (returned, not closed). If conn was bound to another identity
// that binding is dropped.
func (r *Registry) Register(userID domain.UserID, conn ports.Connection) (ports.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := conn.ID()
	if prevUser, ok := r.byConn[connID]; ok && prevUser != userID {
		if cur, ok := r.byUser[prevUser]; ok && cur.ID() == connID {
			delete(r.byUser, prevUser)
		}
	}

	prev, replaced := r.byUser[userID]
	if replaced {
		if prev.ID() == connID {
			replaced = false
			prev = nil
		} else {
			delete(r.byConn, prev.ID())
		}
	}

	r.byUser[userID] = conn
	r.byConn[connID] = userID
	return prev, replaced
}

func (r *Registry) Lookup(userID domain.UserID) (ports.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byUser[userID]
	return conn, ok
}

// IdentityOf returns the identity conn is currently bound to.
func (r *Registry) IdentityOf(connID domain.ConnID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[connID]
	return id, ok
}

// Remove drops conn. active is false when conn was unknown or had already
// been superseded, in which case nothing changes.
func (r *Registry) Remove(conn ports.Connection) (domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := conn.ID()
	userID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)

	cur, ok := r.byUser[userID]
	if !ok || cur.ID() != connID {
		return userID, false
	}
	delete(r.byUser, userID)
	return userID, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Online returns a snapshot of every present identity.
func (r *Registry) Online() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.byUser))
	for id := range r.byUser {
		out = append(out, id)
	}
	return out
}
