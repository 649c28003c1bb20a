package observability

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/leslieo2/go-asset-reload/internal/config"
)

func recordingTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	cfg := config.DefaultTracingConfig()
	cfg.Enabled = true
	cfg.SamplingRatio = 1

	exp := tracetest.NewInMemoryExporter()
	tracer, err := NewTracer(cfg, WithSpanExporter(exp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exp
}

func TestNewTracer_DisabledIsNoop(t *testing.T) {
	tracer, err := NewTracer(config.DefaultTracingConfig())
	require.NoError(t, err)

	_, span := tracer.StartSpan(context.Background(), "asset.load")
	assert.False(t, span.IsRecording())
	span.End()
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_StdoutExporter(t *testing.T) {
	cfg := config.DefaultTracingConfig()
	cfg.Enabled = true
	cfg.SamplingRatio = 0

	tracer, err := NewTracer(cfg)
	require.NoError(t, err)
	_, span := tracer.StartSpan(context.Background(), "asset.load")
	span.End()
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestTracer_SpanAttributes(t *testing.T) {
	tracer, exp := recordingTracer(t)

	_, span := tracer.StartSpan(context.Background(), "hotreload.apply",
		attribute.String("asset.id", "level1"),
		attribute.String("asset.category", "scene"))
	EndSpan(span, nil)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "hotreload.apply", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("asset.id", "level1"))
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestEndSpan_RecordsFailure(t *testing.T) {
	tracer, exp := recordingTracer(t)

	_, span := tracer.StartSpan(context.Background(), "asset.refresh")
	EndSpan(span, errors.New("decode failed"))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "decode failed", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestTracer_ConcurrentSpans(t *testing.T) {
	tracer, exp := recordingTracer(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, span := tracer.StartSpan(context.Background(), "asset.load", attribute.Int("n", id))
			span.End()
		}(i)
	}
	wg.Wait()
	assert.Len(t, exp.GetSpans(), 10)
}
