package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shoplive/internal/core/ports"
)

// PrometheusCollector is the production ports.Metrics.
type PrometheusCollector struct {
	connectionsOpen  prometheus.Gauge
	connectionsTotal prometheus.Counter
	onlineUsers      prometheus.Gauge
	liveRooms        prometheus.Gauge

	events          *prometheus.CounterVec
	droppedFrames   prometheus.Counter
	storageFailures *prometheus.CounterVec

	messages prometheus.Counter
	likes    prometheus.Counter
	comments prometheus.Counter
}

var _ ports.Metrics = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the collectors on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	f := promauto.With(reg)
	return &PrometheusCollector{
		connectionsOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "shoplive_connections_open",
			Help: "Number of open websocket connections",
		}),
		connectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "shoplive_connections_total",
			Help: "Total number of websocket connections accepted",
		}),
		onlineUsers: f.NewGauge(prometheus.GaugeOpts{
			Name: "shoplive_online_users",
			Help: "Number of identities with a live connection",
		}),
		liveRooms: f.NewGauge(prometheus.GaugeOpts{
			Name: "shoplive_live_rooms",
			Help: "Number of live stream sessions",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shoplive_inbound_events_total",
			Help: "Inbound events by name and result",
		}, []string{"event", "result"}),
		droppedFrames: f.NewCounter(prometheus.CounterOpts{
			Name: "shoplive_dropped_frames_total",
			Help: "Outbound frames dropped because a client send buffer was full",
		}),
		storageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shoplive_storage_failures_total",
			Help: "Failed durable writes by operation",
		}, []string{"op"}),
		messages: f.NewCounter(prometheus.CounterOpts{
			Name: "shoplive_messages_sent_total",
			Help: "Private messages stored",
		}),
		likes: f.NewCounter(prometheus.CounterOpts{
			Name: "shoplive_likes_total",
			Help: "Likes applied to live streams",
		}),
		comments: f.NewCounter(prometheus.CounterOpts{
			Name: "shoplive_comments_total",
			Help: "Comments accepted on live streams",
		}),
	}
}

func (p *PrometheusCollector) ConnectionOpened() {
	p.connectionsOpen.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) ConnectionClosed() {
	p.connectionsOpen.Dec()
}

func (p *PrometheusCollector) SetOnlineUsers(n int) {
	p.onlineUsers.Set(float64(n))
}

func (p *PrometheusCollector) SetLiveRooms(n int) {
	p.liveRooms.Set(float64(n))
}

func (p *PrometheusCollector) RecordEvent(event, result string) {
	p.events.WithLabelValues(event, result).Inc()
}

func (p *PrometheusCollector) RecordDroppedFrame() {
	p.droppedFrames.Inc()
}

func (p *PrometheusCollector) RecordStorageFailure(op string) {
	p.storageFailures.WithLabelValues(op).Inc()
}

func (p *PrometheusCollector) RecordMessage() { p.messages.Inc() }
func (p *PrometheusCollector) RecordLike()    { p.likes.Inc() }
func (p *PrometheusCollector) RecordComment() { p.comments.Inc() }
