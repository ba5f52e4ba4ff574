package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetricsReporter_LogsDeltas(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetricsService()
	r := NewMetricsReporter(metrics, time.Hour, zap.New(core).Sugar())

	metrics.ConnectionOpened()
	metrics.RecordLike()
	metrics.RecordLike()
	metrics.RecordStorageFailure("add_like")
	r.report()

	metrics.RecordLike()
	r.report()

	entries := logs.FilterMessage("Metrics").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.EqualValues(t, 1, first["open_connections"])
	assert.EqualValues(t, 2, first["likes"])
	assert.EqualValues(t, 1, first["storage_failures"])

	second := entries[1].ContextMap()
	assert.EqualValues(t, 1, second["likes"])
	assert.EqualValues(t, 0, second["storage_failures"])
	assert.EqualValues(t, 1, second["open_connections"], "gauges are reported as levels")
}

func TestMetricsReporter_RunReportsOnExit(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewMetricsReporter(NewMetricsService(), time.Hour, zap.New(core).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, logs.FilterMessage("Metrics").Len())
}
