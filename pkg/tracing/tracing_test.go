package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTraceEvent(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := TraceEvent(context.Background(), "sendLike", "c-1")
	assert.NotEmpty(t, TraceID(ctx))
	RecordError(ctx, errors.New("not live"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "ws.sendLike", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestTraceStorage(t *testing.T) {
	rec := withRecorder(t)

	_, span := TraceStorage(context.Background(), "postgres", "insert_message")
	span.End()

	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, "postgres.insert_message", rec.Ended()[0].Name())
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
}

func TestAnnotate(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := TraceEvent(context.Background(), "sendComment", "c-1")
	Annotate(ctx, HostIDKey.String("host"), UserIDKey.String("bob"))
	span.End()

	attrs := map[string]string{}
	for _, kv := range rec.Ended()[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "host", attrs["stream.host_id"])
	assert.Equal(t, "bob", attrs["user.id"])
	assert.Equal(t, "sendComment", attrs["ws.event"])

	// no span in ctx: a no-op
	Annotate(context.Background(), HostIDKey.String("host"))
}
