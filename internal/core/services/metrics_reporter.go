package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MetricsReporter periodically logs the in-process counters. It stands in
// for a scrape endpoint when Prometheus is disabled.
type MetricsReporter struct {
	metrics  *MetricsService
	interval time.Duration
	logger   *zap.SugaredLogger

	last MetricsSnapshot
}

func NewMetricsReporter(metrics *MetricsService, interval time.Duration, logger *zap.SugaredLogger) *MetricsReporter {
	return &MetricsReporter{metrics: metrics, interval: interval, logger: logger}
}

// Run blocks until ctx is done, logging once per interval and once more on exit.
func (r *MetricsReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.report()
		case <-ctx.Done():
			r.report()
			return
		}
	}
}

func (r *MetricsReporter) report() {
	snap := r.metrics.Snapshot()
	r.logger.Infow("Metrics",
		"open_connections", snap.OpenConnections,
		"online_users", snap.OnlineUsers,
		"live_rooms", snap.LiveRooms,
		"messages", snap.Messages-r.last.Messages,
		"likes", snap.Likes-r.last.Likes,
		"comments", snap.Comments-r.last.Comments,
		"dropped_frames", snap.DroppedFrames-r.last.DroppedFrames,
		"storage_failures", sum(snap.StorageFailures)-sum(r.last.StorageFailures),
	)
	r.last = snap
}

func sum(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}
