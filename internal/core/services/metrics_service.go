package services

import (
	"sync"
)

// MetricsService is an in-process ports.Metrics used when Prometheus is
// disabled and by tests that assert on counters.
type MetricsService struct {
	mu sync.RWMutex

	openConnections int
	onlineUsers     int
	liveRooms       int
	events          map[string]int // "event/result"
	droppedFrames   int
	storageFailures map[string]int
	messages        int
	likes           int
	comments        int
}

func NewMetricsService() *MetricsService {
	return &MetricsService{
		events:          make(map[string]int),
		storageFailures: make(map[string]int),
	}
}

func (m *MetricsService) ConnectionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openConnections++
}

func (m *MetricsService) ConnectionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openConnections > 0 {
		m.openConnections--
	}
}

func (m *MetricsService) SetOnlineUsers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onlineUsers = n
}

func (m *MetricsService) SetLiveRooms(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveRooms = n
}

func (m *MetricsService) RecordEvent(event, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event+"/"+result]++
}

func (m *MetricsService) RecordDroppedFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.droppedFrames++
}

func (m *MetricsService) RecordStorageFailure(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageFailures[op]++
}

func (m *MetricsService) RecordMessage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages++
}

func (m *MetricsService) RecordLike() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes++
}

func (m *MetricsService) RecordComment() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments++
}

// MetricsSnapshot is a copy of the counters at one instant.
type MetricsSnapshot struct {
	OpenConnections int            `json:"openConnections"`
	OnlineUsers     int            `json:"onlineUsers"`
	LiveRooms       int            `json:"liveRooms"`
	Events          map[string]int `json:"events"`
	DroppedFrames   int            `json:"droppedFrames"`
	StorageFailures map[string]int `json:"storageFailures"`
	Messages        int            `json:"messages"`
	Likes           int            `json:"likes"`
	Comments        int            `json:"comments"`
}

func (m *MetricsService) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make(map[string]int, len(m.events))
	for k, v := range m.events {
		events[k] = v
	}
	failures := make(map[string]int, len(m.storageFailures))
	for k, v := range m.storageFailures {
		failures[k] = v
	}
	return MetricsSnapshot{
		OpenConnections: m.openConnections,
		OnlineUsers:     m.onlineUsers,
		LiveRooms:       m.liveRooms,
		Events:          events,
		DroppedFrames:   m.droppedFrames,
		StorageFailures: failures,
		Messages:        m.messages,
		Likes:           m.likes,
		Comments:        m.comments,
	}
}
