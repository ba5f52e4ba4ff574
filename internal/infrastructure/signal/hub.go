package signal

import (
	"sync"

	"go.uber.org/zap"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
)

// Hub tracks every open connection and the broadcast groups they belong to.
// Delivery goes through Connection.Send, which never blocks on a slow peer.
type Hub struct {
	mu      sync.RWMutex
	clients map[domain.ConnID]ports.Connection
	rooms   map[domain.RoomID]map[domain.ConnID]ports.Connection

	logger *zap.SugaredLogger
}

var _ ports.Broadcaster = (*Hub)(nil)

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[domain.ConnID]ports.Connection),
		rooms:   make(map[domain.RoomID]map[domain.ConnID]ports.Connection),
		logger:  logger,
	}
}

// Register makes conn reachable by ToAll.
func (h *Hub) Register(conn ports.Connection) {
	h.mu.Lock()
	h.clients[conn.ID()] = conn
	h.mu.Unlock()
}

// Unregister drops conn from the hub and from every room it joined.
func (h *Hub) Unregister(conn ports.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := conn.ID()
	delete(h.clients, id)
	for room, members := range h.rooms {
		if _, ok := members[id]; !ok {
			continue
		}
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) ToConnection(conn ports.Connection, event string, data interface{}) error {
	return conn.Send(event, data)
}

func (h *Hub) ToRoom(room domain.RoomID, event string, data interface{}) {
	h.mu.RLock()
	members := make([]ports.Connection, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	h.deliver(members, event, data)
}

func (h *Hub) ToAll(event string, data interface{}) {
	h.mu.RLock()
	members := make([]ports.Connection, 0, len(h.clients))
	for _, c := range h.clients {
		members = append(members, c)
	}
	h.mu.RUnlock()

	h.deliver(members, event, data)
}

func (h *Hub) JoinRoom(room domain.RoomID, conn ports.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[domain.ConnID]ports.Connection)
		h.rooms[room] = members
	}
	members[conn.ID()] = conn
	h.logger.Debugw("Connection joined room", "room", room, "conn_id", conn.ID())
}

func (h *Hub) LeaveRoom(room domain.RoomID, conn ports.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, conn.ID())
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Transfer moves every room subscription of from onto to. A reconnecting
// identity keeps receiving its rooms' broadcasts on the new connection.
func (h *Hub) Transfer(from, to ports.Connection) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	moved := 0
	for room, members := range h.rooms {
		if _, ok := members[from.ID()]; !ok {
			continue
		}
		delete(members, from.ID())
		members[to.ID()] = to
		moved++
		h.logger.Debugw("Room subscription transferred", "room", room, "from", from.ID(), "to", to.ID())
	}
	return moved
}

// ReleaseRoom forgets the group without touching the connections.
func (h *Hub) ReleaseRoom(room domain.RoomID) {
	h.mu.Lock()
	delete(h.rooms, room)
	h.mu.Unlock()
}

// RoomSize is the number of connections subscribed to room.
func (h *Hub) RoomSize(room domain.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every registered connection. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	all := make([]ports.Connection, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		_ = c.Close()
	}
}

func (h *Hub) deliver(members []ports.Connection, event string, data interface{}) {
	for _, c := range members {
		if err := c.Send(event, data); err != nil {
			h.logger.Debugw("Frame not delivered", "conn_id", c.ID(), "event", event, "error", err)
		}
	}
}
