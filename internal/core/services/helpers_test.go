package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
)

type fakeConn struct {
	id     domain.ConnID
	mu     sync.Mutex
	events []sent
}

type sent struct {
	Event string
	Data  interface{}
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: domain.ConnID(id)} }

func (c *fakeConn) ID() domain.ConnID { return c.id }
func (c *fakeConn) Close() error      { return nil }

func (c *fakeConn) Send(event string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sent{event, data})
	return nil
}

func (c *fakeConn) received(event string) []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []interface{}
	for _, e := range c.events {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}

// roomBroadcaster is an in-memory ports.Broadcaster that delivers straight
// to fakeConn inboxes.
type roomBroadcaster struct {
	mu       sync.Mutex
	rooms    map[domain.RoomID]map[domain.ConnID]ports.Connection
	all      map[domain.ConnID]ports.Connection
	released []domain.RoomID

	// onJoin runs after a subscribe, outside the lock.
	onJoin func(room domain.RoomID, conn ports.Connection)
}

func newRoomBroadcaster(conns ...ports.Connection) *roomBroadcaster {
	b := &roomBroadcaster{
		rooms: make(map[domain.RoomID]map[domain.ConnID]ports.Connection),
		all:   make(map[domain.ConnID]ports.Connection),
	}
	for _, c := range conns {
		b.all[c.ID()] = c
	}
	return b
}

func (b *roomBroadcaster) ToConnection(conn ports.Connection, event string, data interface{}) error {
	return conn.Send(event, data)
}

func (b *roomBroadcaster) ToRoom(room domain.RoomID, event string, data interface{}) {
	b.mu.Lock()
	members := make([]ports.Connection, 0, len(b.rooms[room]))
	for _, c := range b.rooms[room] {
		members = append(members, c)
	}
	b.mu.Unlock()
	for _, c := range members {
		_ = c.Send(event, data)
	}
}

func (b *roomBroadcaster) ToAll(event string, data interface{}) {
	b.mu.Lock()
	members := make([]ports.Connection, 0, len(b.all))
	for _, c := range b.all {
		members = append(members, c)
	}
	b.mu.Unlock()
	for _, c := range members {
		_ = c.Send(event, data)
	}
}

func (b *roomBroadcaster) JoinRoom(room domain.RoomID, conn ports.Connection) {
	b.mu.Lock()
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[domain.ConnID]ports.Connection)
	}
	b.rooms[room][conn.ID()] = conn
	b.all[conn.ID()] = conn
	hook := b.onJoin
	b.mu.Unlock()

	if hook != nil {
		hook(room, conn)
	}
}

func (b *roomBroadcaster) LeaveRoom(room domain.RoomID, conn ports.Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms[room], conn.ID())
}

func (b *roomBroadcaster) ReleaseRoom(room domain.RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms, room)
	b.released = append(b.released, room)
}

func (b *roomBroadcaster) members(room domain.RoomID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms[room])
}

// syncQueue runs writes inline so tests can assert on storage right away.
type syncQueue struct {
	mu     sync.Mutex
	ops    []string
	errors []error
}

func (q *syncQueue) Enqueue(op string, fn func(ctx context.Context) error) {
	err := fn(context.Background())
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, op)
	if err != nil {
		q.errors = append(q.errors, err)
	}
}

func (q *syncQueue) names() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ops...)
}

type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) Activate(ctx context.Context, ownerID domain.UserID, title string) (*domain.StreamRecord, error) {
	args := m.Called(ctx, ownerID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StreamRecord), args.Error(1)
}

func (m *MockStreamRepository) Deactivate(ctx context.Context, ownerID domain.UserID) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

func (m *MockStreamRepository) GetByOwner(ctx context.Context, ownerID domain.UserID) (*domain.StreamRecord, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StreamRecord), args.Error(1)
}

func (m *MockStreamRepository) ListActive(ctx context.Context) ([]*domain.StreamRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StreamRecord), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) History(ctx context.Context, a, b domain.UserID) ([]*domain.Message, error) {
	args := m.Called(ctx, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}
