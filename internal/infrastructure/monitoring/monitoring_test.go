package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusCollector(reg)

	p.ConnectionOpened()
	p.ConnectionOpened()
	p.ConnectionClosed()
	p.SetOnlineUsers(3)
	p.SetLiveRooms(1)
	p.RecordEvent("sendLike", "ok")
	p.RecordEvent("sendLike", "ok")
	p.RecordEvent("sendComment", "error")
	p.RecordDroppedFrame()
	p.RecordStorageFailure("add_like")
	p.RecordMessage()
	p.RecordLike()
	p.RecordComment()

	assert.Equal(t, 1.0, testutil.ToFloat64(p.connectionsOpen))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.connectionsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.onlineUsers))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.liveRooms))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.events.WithLabelValues("sendLike", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.events.WithLabelValues("sendComment", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.storageFailures.WithLabelValues("add_like")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.droppedFrames))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestPrometheusCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusCollector(prometheus.NewRegistry())
		NewPrometheusCollector(prometheus.NewRegistry())
	})
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	assert.True(t, h.IsReady(context.Background()), "no checks means ready")

	h.AddCheck("storage", func(ctx context.Context) error { return nil }, 0)
	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Checks["storage"])

	h.AddCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") }, 0)
	h.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 20*time.Millisecond)

	status = h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, "connection refused", status.Checks["redis"])
	assert.Contains(t, status.Checks["slow"], "deadline exceeded")
	assert.False(t, h.IsReady(context.Background()))
}
