package tracing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRecordHTTPError(t *testing.T) {
	rec, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "req")
	RecordHTTPError(span, errors.New("简历不存在"), 404)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	v, ok := attrValue(spans[0].Attributes(), "error.type")
	require.True(t, ok)
	assert.Equal(t, "http", v.AsString())
	v, ok = attrValue(spans[0].Attributes(), "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(404), v.AsInt64())
	v, ok = attrValue(spans[0].Attributes(), "error.category")
	require.True(t, ok)
	assert.Equal(t, "client_error", v.AsString())
}

func TestRecordDegradationKeepsStatus(t *testing.T) {
	rec, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "assemble")
	RecordDegradation(span, fmt.Errorf("精炼超时: %w", context.DeadlineExceeded), ErrorTypeLLM)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	event := spans[0].Events()[0]
	assert.Equal(t, "degraded", event.Name)
	v, ok := attrValue(event.Attributes, "error.type")
	require.True(t, ok)
	assert.Equal(t, "timeout", v.AsString())
}

func TestRecordErrorNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(nil, errors.New("x"), ErrorTypeDB)
		RecordDegradation(nil, errors.New("x"), ErrorTypeLLM)
	})
}

func TestHTTPErrorCategory(t *testing.T) {
	assert.Equal(t, "client_error", HTTPErrorCategory(400))
	assert.Equal(t, "server_error", HTTPErrorCategory(503))
	assert.Equal(t, "unknown", HTTPErrorCategory(200))
}
