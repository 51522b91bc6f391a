package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartTracingDisabled(t *testing.T) {
	shutdown, err := StartTracing(context.Background(), TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracerProviderBatchesToExporter(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := newTracerProvider("", exp)

	_, span := tp.Tracer("test").Start(context.Background(), "agentapi.Run")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))
	defer tp.Shutdown(context.Background())

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "agentapi.Run", spans[0].Name)
	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "imagechat", service)
}
