package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing("nesavent-test", "")
	require.NoError(t, err)
	defer func() { require.NoError(t, shutdown(context.Background())) }()

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	require.False(t, span.SpanContext().IsSampled())
	require.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}
