package telemetry

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	scopeName       = "cardio-risk"
	defaultEndpoint = "localhost:4317"
	dialTimeout     = 5 * time.Second
	flushTimeout    = 3 * time.Second
)

// Shutdown flushes and stops a provider.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// collectorEndpoint picks the per-signal OTLP endpoint, then the shared one.
func collectorEndpoint(signalVar string) string {
	for _, key := range []string{signalVar, "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return defaultEndpoint
}

// Exporters dial the collector without TLS.
func plaintext() grpc.DialOption {
	return grpc.WithTransportCredentials(insecure.NewCredentials())
}

func serviceResource(service string) *resource.Resource {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(service),
		attribute.String("app", scopeName),
	))
	if err != nil {
		return resource.Default()
	}
	return res
}

// Flush calls shutdown, giving it a short deadline so exit is not held up
// by an unreachable collector.
func Flush(ctx context.Context, shutdown Shutdown) {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	_ = shutdown(ctx)
}
