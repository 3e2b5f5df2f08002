package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InitTracer exports assessment spans over OTLP. If the exporter cannot be
// built, spans stay on the no-op provider and the service keeps running.
func InitTracer(ctx context.Context, service string) Shutdown {
	endpoint := collectorEndpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	exporter, err := otlptracegrpc.New(dialCtx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(plaintext()),
	)
	if err != nil {
		slog.Warn("tracing disabled", "endpoint", endpoint, "error", err)
		return noopShutdown
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(serviceResource(service)),
	)
	otel.SetTracerProvider(provider)
	slog.Info("tracing enabled", "endpoint", endpoint)
	return provider.Shutdown
}

// Tracer is used for the risk.assess span.
func Tracer() trace.Tracer {
	return otel.Tracer(scopeName)
}
